package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "trace", want: zerolog.TraceLevel},
		{in: "DEBUG", want: zerolog.DebugLevel},
		{in: " info ", want: zerolog.InfoLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "bogus", want: zerolog.InfoLevel},
		{in: "", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatRoomJSON(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","message":"poke failed","room":"!r:example.org","time":"x"}`
	got := formatRoomJSON([]byte(line))
	if !strings.HasPrefix(got, "[WARN] poke failed") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "room=!r:example.org") {
		t.Fatalf("field missing: %q", got)
	}
	if strings.Contains(got, "time=") {
		t.Fatalf("time should be dropped: %q", got)
	}

	raw := formatRoomJSON([]byte("  not json at all \n"))
	if raw != "not json at all" {
		t.Fatalf("raw fallback = %q", raw)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a", 50)
	got := truncate(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q (len %d)", got, len(got))
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	l.Info("zero value must not panic", String("k", "v"))
	Nop().With(Int("n", 1)).Error("nop must not panic")
}
