// Package commands implements the chat-side command surface.
//
// Commands live in a static table so the full surface is enumerable at
// compile time and testable against the in-memory transport fake, without a
// live session.
package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/arcuru/pokem/internal/poke"
	"github.com/arcuru/pokem/internal/roomcfg"
	"github.com/arcuru/pokem/internal/transport"
	logx "github.com/arcuru/pokem/pkg/logx"
)

// Env carries everything a command handler may touch. One Env is built at
// startup and shared by every concurrent dispatch; all fields are read-only
// after construction.
type Env struct {
	Client    transport.Client
	Store     roomcfg.Store
	Pipeline  *poke.Pipeline
	Nicknames map[string]string

	// Prefix is the command prefix, e.g. "!pokem".
	Prefix string
	// Allow filters which account ids may issue commands. nil allows all.
	Allow *regexp.Regexp

	Log logx.Logger
}

// HandlerFunc runs one command. args are the tokens after the command word.
type HandlerFunc func(ctx context.Context, env *Env, caller transport.UserID, args []string, room transport.Room) error

// Command is one entry in the dispatch table.
type Command struct {
	Name string
	Args string
	Help string
	Run  HandlerFunc
}

// Table returns the static command table.
func Table() map[string]Command {
	return map[string]Command{
		"help": {
			Name: "help",
			Help: "Show available commands",
			Run:  runHelp,
		},
		"info": {
			Name: "info",
			Help: "Print room info",
			Run:  runInfo,
		},
		"poke": {
			Name: "poke",
			Args: "<room> <message>",
			Help: "Poke the room",
			Run:  runPoke,
		},
		"block": {
			Name: "block",
			Help: "Block Pok'em from sending messages to this room",
			Run:  runBlock,
		},
		"unblock": {
			Name: "unblock",
			Help: "Unblock Pok'em to allow notifications to this room",
			Run:  runUnblock,
		},
		"set": {
			Name: "set",
			Args: "<block|auth> <on|off|token>",
			Help: "Configure settings for Pok'em in this room",
			Run:  runSet,
		},
	}
}

// Dispatch routes one inbound room message. Messages not starting with the
// command prefix, from the session itself, or from senders outside the allow
// list are ignored.
func (e *Env) Dispatch(ctx context.Context, sender transport.UserID, body string, room transport.Room) {
	if sender == e.Client.UserID() {
		return
	}
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, e.Prefix) {
		return
	}
	if e.Allow != nil && !e.Allow.MatchString(string(sender)) {
		e.Log.Debug("command from disallowed sender ignored",
			logx.String("sender", string(sender)))
		return
	}

	tokens := strings.Fields(strings.TrimPrefix(body, e.Prefix))
	word := "help"
	var args []string
	if len(tokens) > 0 {
		word = tokens[0]
		args = tokens[1:]
	}

	cmd, ok := Table()[word]
	if !ok {
		cmd = Table()["help"]
		args = nil
	}

	log := e.Log.With(
		logx.String("cmd", cmd.Name),
		logx.String("sender", string(sender)),
		logx.String("room", string(room.ID())),
	)
	log.Debug("dispatching command")
	if err := cmd.Run(ctx, e, sender, args, room); err != nil {
		log.Warn("command failed", logx.Err(err))
	}
}

func (e *Env) reply(ctx context.Context, room transport.Room, text string, markdown bool) error {
	return room.Send(ctx, transport.Message{Body: text, Markdown: markdown})
}

func runHelp(ctx context.Context, e *Env, _ transport.UserID, _ []string, room transport.Room) error {
	if !e.Pipeline.CanMessage(ctx, room) {
		return nil
	}
	table := Table()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Pok'em commands:\n")
	for _, name := range names {
		c := table[name]
		b.WriteString("- `")
		b.WriteString(e.Prefix)
		b.WriteString(" ")
		b.WriteString(c.Name)
		if c.Args != "" {
			b.WriteString(" ")
			b.WriteString(c.Args)
		}
		b.WriteString("` - ")
		b.WriteString(c.Help)
		b.WriteString("\n")
	}
	return e.reply(ctx, room, b.String(), true)
}

func runInfo(ctx context.Context, e *Env, _ transport.UserID, _ []string, room transport.Room) error {
	if !e.Pipeline.CanMessage(ctx, room) {
		return nil
	}
	return e.SendRoomInfo(ctx, room)
}

// SendRoomInfo prints the room's alias, id and auth token. Also sent as part
// of the welcome message after joining.
func (e *Env) SendRoomInfo(ctx context.Context, room transport.Room) error {
	if alias := room.CanonicalAlias(); alias != "" {
		if err := e.reply(ctx, room, fmt.Sprintf("This Room's Alias is: %s", alias), false); err != nil {
			return err
		}
	}
	if err := e.reply(ctx, room, fmt.Sprintf("This Room's ID is: %s", room.ID()), false); err != nil {
		return err
	}
	if cfg := e.Store.Get(ctx, room); cfg.Auth != "" {
		return e.reply(ctx, room, fmt.Sprintf("This Room's Authentication token is: %s", cfg.Auth), false)
	}
	return nil
}

// Welcome greets a freshly joined room.
func (e *Env) Welcome(ctx context.Context, room transport.Room) {
	if !e.Pipeline.CanMessage(ctx, room) {
		return
	}
	msg := fmt.Sprintf("Welcome to Pok'em!\n\nSend `%s help` to see available commands.", e.Prefix)
	if err := e.reply(ctx, room, msg, true); err != nil {
		e.Log.Warn("welcome message failed", logx.String("room", string(room.ID())), logx.Err(err))
		return
	}
	if err := e.SendRoomInfo(ctx, room); err != nil {
		e.Log.Warn("room info failed", logx.String("room", string(room.ID())), logx.Err(err))
	}
}

func runPoke(ctx context.Context, e *Env, _ transport.UserID, args []string, room transport.Room) error {
	if len(args) == 0 {
		return e.reply(ctx, room, fmt.Sprintf("Usage: `%s poke <room> <message>`", e.Prefix), true)
	}
	topic := args[0]
	message := strings.Join(args[1:], " ")

	target, _ := poke.ResolveTopic(e.Nicknames, topic, false)
	err := e.Pipeline.Deliver(ctx, poke.Delivery{
		Topic:   topic,
		Target:  target,
		Message: message,
	})
	if err == nil {
		return nil
	}

	// Report into the originating room, unless that room itself can't be
	// messaged. Auth failures stay detail-free so the command can't be used
	// to probe whether a token exists.
	if e.Pipeline.CanMessage(ctx, room) {
		text := "Failed to send message"
		if !errors.Is(err, poke.ErrAuthRejected) {
			text = fmt.Sprintf("Failed to send message: %v", err)
		}
		if rerr := e.reply(ctx, room, text, false); rerr != nil {
			e.Log.Error("failed to report poke error", logx.Err(rerr))
		}
	}
	return err
}

func runBlock(ctx context.Context, e *Env, _ transport.UserID, _ []string, room transport.Room) error {
	// If we can't message the room we won't make any changes here.
	if !e.Pipeline.CanMessage(ctx, room) {
		return nil
	}
	cfg := e.Store.Get(ctx, room)
	cfg.Block = true
	if err := e.Store.Set(ctx, room, cfg); err != nil {
		_ = e.reply(ctx, room, "ERROR: Failed to block myself.", false)
		return err
	}
	return e.reply(ctx, room, fmt.Sprintf(
		"Pok'em has been blocked from sending messages to this room.\nSend `%s unblock` to allow messages again.",
		e.Prefix), true)
}

func runUnblock(ctx context.Context, e *Env, _ transport.UserID, _ []string, room transport.Room) error {
	cfg := e.Store.Get(ctx, room)
	cfg.Block = false
	if err := e.Store.Set(ctx, room, cfg); err != nil {
		_ = e.reply(ctx, room, "ERROR: Failed to unblock myself.", false)
		return err
	}
	return e.reply(ctx, room, "Pok'em has been unblocked from sending messages to this room.", false)
}
