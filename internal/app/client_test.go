package app

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveShot(t *testing.T) {
	t.Parallel()
	rooms := map[string]string{
		"default": "!default:example.org",
		"ops":     "!ops:example.org",
	}
	tests := []struct {
		name      string
		rooms     map[string]string
		flag      string
		words     []string
		wantRoom  string
		wantWords []string
		wantErr   bool
	}{
		{
			name:      "flag nickname expanded",
			rooms:     rooms,
			flag:      "ops",
			words:     []string{"hi"},
			wantRoom:  "!ops:example.org",
			wantWords: []string{"hi"},
		},
		{
			name:      "flag raw value passes through",
			rooms:     rooms,
			flag:      "!other:example.org",
			words:     []string{"hi"},
			wantRoom:  "!other:example.org",
			wantWords: []string{"hi"},
		},
		{
			name:      "room-shaped first word consumed",
			rooms:     rooms,
			words:     []string{"!raw:example.org", "hi", "there"},
			wantRoom:  "!raw:example.org",
			wantWords: []string{"hi", "there"},
		},
		{
			name:      "alias-shaped first word consumed",
			rooms:     rooms,
			words:     []string{"#ops:example.org", "hi"},
			wantRoom:  "#ops:example.org",
			wantWords: []string{"hi"},
		},
		{
			name:      "nickname first word consumed",
			rooms:     rooms,
			words:     []string{"ops", "hi"},
			wantRoom:  "!ops:example.org",
			wantWords: []string{"hi"},
		},
		{
			name:      "plain words fall back to default",
			rooms:     rooms,
			words:     []string{"just", "a", "message"},
			wantRoom:  "!default:example.org",
			wantWords: []string{"just", "a", "message"},
		},
		{
			name:     "no words pings default",
			rooms:    rooms,
			wantRoom: "!default:example.org",
		},
		{
			name:    "no words and no default",
			rooms:   map[string]string{},
			wantErr: true,
		},
		{
			name:    "words but no room anywhere",
			rooms:   map[string]string{},
			words:   []string{"hello"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			room, words, err := resolveShot(tt.rooms, tt.flag, tt.words)
			if tt.wantErr {
				if !errors.Is(err, errNoRoom) {
					t.Fatalf("err = %v, want errNoRoom", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveShot: %v", err)
			}
			if room != tt.wantRoom {
				t.Fatalf("room = %q, want %q", room, tt.wantRoom)
			}
			if len(words) != len(tt.wantWords) || (len(words) > 0 && !reflect.DeepEqual(words, tt.wantWords)) {
				t.Fatalf("words = %v, want %v", words, tt.wantWords)
			}
		})
	}
}

func TestCompileAllowList(t *testing.T) {
	t.Parallel()
	if re, err := compileAllowList(""); err != nil || re != nil {
		t.Fatalf("empty pattern: re=%v err=%v, want nil/nil", re, err)
	}
	re, err := compileAllowList("^@admin:example\\.org$")
	if err != nil {
		t.Fatalf("compileAllowList: %v", err)
	}
	if !re.MatchString("@admin:example.org") || re.MatchString("@mallory:example.org") {
		t.Fatal("allow list regex mismatch")
	}
	if _, err := compileAllowList("("); err == nil {
		t.Fatal("expected error for a broken pattern")
	}
}
