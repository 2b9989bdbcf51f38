package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcuru/pokem/internal/transport"
)

// runSet sub-dispatches on the setting name. The legacy aliases for "auth"
// are still accepted; they write the current encoding either way.
func runSet(ctx context.Context, e *Env, _ transport.UserID, args []string, room transport.Room) error {
	cfg := e.Store.Get(ctx, room)

	var key, value string
	if len(args) > 0 {
		key = args[0]
	}
	if len(args) > 1 {
		value = args[1]
	}

	var response string
	switch key {
	case "block":
		switch {
		case value == "":
			response = fmt.Sprintf("Block cannot be empty\n`%s set block [on|off]`", e.Prefix)
		case strings.EqualFold(value, "on"):
			cfg.Block = true
			response = "Blocking messages"
		case strings.EqualFold(value, "off"):
			cfg.Block = false
			response = "Unblocking messages"
		default:
			response = "Invalid value, use 'on' or 'off'"
		}
	// TODO(2.0): drop the pass/password aliases, kept for backwards compatibility.
	case "auth", "authentication", "password", "pass":
		switch {
		case value == "":
			response = fmt.Sprintf("Token cannot be empty\n`%s set auth [off|token]`", e.Prefix)
		case strings.EqualFold(value, "on"):
			response = "Tried setting the Auth Token to 'on', that was probably an accident"
		case strings.EqualFold(value, "off"):
			cfg.Auth = ""
			response = "Auth Token removed"
		default:
			cfg.Auth = value
			response = fmt.Sprintf("Auth Token set to %s", value)
		}
	default:
		blockStatus := "off"
		if cfg.Block {
			blockStatus = "on"
		}
		authLine := ""
		if cfg.Auth != "" {
			authLine = fmt.Sprintf("\n- Authentication Token: %s", cfg.Auth)
		}
		response = fmt.Sprintf(
			"Usage:\n`%s set [block|auth] <on|off|token>`\nCurrent values:\n- block: %s%s",
			e.Prefix, blockStatus, authLine)
	}

	if err := e.Store.Set(ctx, room, cfg); err != nil {
		_ = e.reply(ctx, room, "ERROR: Failed to update room settings.", false)
		return err
	}
	return e.reply(ctx, room, response, true)
}
