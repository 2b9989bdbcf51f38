package poke

import (
	"errors"
	"net/http"
	"testing"

	"github.com/arcuru/pokem/internal/roomcfg"
)

func TestValidateAuth(t *testing.T) {
	t.Parallel()
	hdr := func(k, v string) http.Header {
		h := http.Header{}
		h.Set(k, v)
		return h
	}
	tests := []struct {
		name    string
		cfg     roomcfg.Config
		header  http.Header
		msg     string
		want    string
		wantErr bool
	}{
		{
			name: "no token passes through",
			msg:  "hello",
			want: "hello",
		},
		{
			name:   "authentication header",
			cfg:    roomcfg.Config{Auth: "s3cret"},
			header: hdr("authentication", "s3cret"),
			msg:    "hello",
			want:   "hello",
		},
		{
			name:   "auth header",
			cfg:    roomcfg.Config{Auth: "s3cret"},
			header: hdr("auth", "s3cret"),
			msg:    "hello",
			want:   "hello",
		},
		{
			name:   "wrong header falls through to prefix",
			cfg:    roomcfg.Config{Auth: "s3cret"},
			header: hdr("auth", "wrong"),
			msg:    "s3cret hello",
			want:   "hello",
		},
		{
			name: "token prefix stripped with whitespace",
			cfg:  roomcfg.Config{Auth: "s3cret"},
			msg:  "s3cret\t  hello",
			want: "hello",
		},
		{
			name: "token strips only once",
			cfg:  roomcfg.Config{Auth: "s3cret"},
			msg:  "s3cret s3cret hello",
			want: "s3cret hello",
		},
		{
			name: "message equal to token",
			cfg:  roomcfg.Config{Auth: "s3cret"},
			msg:  "s3cret",
			want: "",
		},
		{
			name:    "rejected",
			cfg:     roomcfg.Config{Auth: "s3cret"},
			msg:     "hello",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := tt.header
			if h == nil {
				h = http.Header{}
			}
			got, err := ValidateAuth(tt.cfg, h, tt.msg)
			if tt.wantErr {
				if !errors.Is(err, ErrAuthRejected) {
					t.Fatalf("err = %v, want ErrAuthRejected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateAuth: %v", err)
			}
			if got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}
