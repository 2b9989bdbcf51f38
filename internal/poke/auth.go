package poke

import (
	"net/http"
	"strings"

	"github.com/arcuru/pokem/internal/roomcfg"
)

// ValidateAuth gates an inbound poke against the room's auth token and
// returns the message with the token consumed.
//
// With no token configured the message passes through untouched. Otherwise
// the caller must either present the token in an "authentication" or "auth"
// header (message unchanged), or lead the message body with the token
// verbatim, in which case the token and the whitespace after it are
// stripped. Anything else is rejected.
func ValidateAuth(cfg roomcfg.Config, header http.Header, msg string) (string, error) {
	if cfg.Auth == "" {
		return msg, nil
	}

	token := header.Get("authentication")
	if token == "" {
		token = header.Get("auth")
	}
	if token == cfg.Auth {
		return msg, nil
	}

	if !strings.HasPrefix(msg, cfg.Auth) {
		return "", ErrAuthRejected
	}
	return strings.TrimLeft(strings.TrimPrefix(msg, cfg.Auth), " \t\r\n"), nil
}
