package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/arcuru/pokem/internal/config"
	"github.com/arcuru/pokem/internal/poke"
	"github.com/arcuru/pokem/internal/roomcfg"
	"github.com/arcuru/pokem/internal/transport/matrix"
	logx "github.com/arcuru/pokem/pkg/logx"
)

// publicInstance is the hosted relay used when no server or matrix section
// is configured, so the bare binary works out of the box.
const publicInstance = "https://pokem.jackson.dev"

// roomShapeRe matches anything with a domain-like ":host.tld" tail, i.e. a
// raw room id or alias rather than a nickname.
var roomShapeRe = regexp.MustCompile(`^.*:.*\..*`)

var errNoRoom = errors.New("no room specified")

// OneShot is a single poke issued from the command line.
type OneShot struct {
	// Room is the explicit -room flag value; empty means derive it from
	// the message words and the configured rooms table.
	Room string
	// Words are the positional message arguments.
	Words []string
	// Stdin, when non-nil, is appended to the message. The caller decides
	// whether stdin is actually piped.
	Stdin io.Reader

	Log logx.Logger
}

// RunOneShot resolves the target and message, then delivers through the
// first configured path: a relay server, a direct Matrix session, or the
// public instance as the fallback of last resort.
func RunOneShot(ctx context.Context, cfg *config.Config, shot OneShot) error {
	room, words, err := resolveShot(cfg.Rooms, shot.Room, shot.Words)
	if err != nil {
		return err
	}
	message := strings.Join(words, " ")
	if shot.Stdin != nil {
		b, err := io.ReadAll(shot.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if extra := strings.TrimSpace(string(b)); extra != "" {
			if message == "" {
				message = extra
			} else {
				message = message + " " + extra
			}
		}
	}
	log := shot.Log

	if cfg.Server == nil && cfg.Matrix == nil {
		log.Info("no server or matrix configured, using the public instance")
		return pokeServer(ctx, &config.ServerConfig{URL: publicInstance}, room, message)
	}
	if cfg.Server != nil {
		return pokeServer(ctx, cfg.Server, room, message)
	}
	return pokeDirect(ctx, cfg, room, message, log)
}

// resolveShot picks the target room per the historical CLI precedence:
// explicit flag (nickname-expanded), then a room-shaped first word, then a
// first word matching a nickname, then the "default" nickname.
func resolveShot(rooms map[string]string, flag string, words []string) (string, []string, error) {
	if flag != "" {
		if id, ok := rooms[flag]; ok {
			return id, words, nil
		}
		return flag, words, nil
	}
	if len(words) == 0 {
		if id, ok := rooms["default"]; ok {
			return id, words, nil
		}
		return "", nil, errNoRoom
	}
	if roomShapeRe.MatchString(words[0]) {
		return words[0], words[1:], nil
	}
	if id, ok := rooms[words[0]]; ok {
		return id, words[1:], nil
	}
	if id, ok := rooms["default"]; ok {
		return id, words, nil
	}
	return "", nil, errNoRoom
}

// pokeServer POSTs the message to a relay daemon, the same wire call the
// HTTP front door accepts.
func pokeServer(ctx context.Context, server *config.ServerConfig, room, message string) error {
	base := server.URL
	if server.Port != 0 {
		base = fmt.Sprintf("%s:%d", base, server.Port)
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	target := base + "/" + url.PathEscape(room)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("poke %s: %w", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("poke %s: %s: %s", target, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// pokeDirect logs in and sends as a Matrix client, reusing the daemon's
// delivery pipeline so auth, blocking and join-wait behave identically.
func pokeDirect(ctx context.Context, cfg *config.Config, room, message string, log logx.Logger) error {
	client, err := matrix.Connect(ctx, matrix.Config{
		Homeserver: cfg.Matrix.Homeserver,
		Username:   cfg.Matrix.Username,
		Password:   cfg.Matrix.Password,
		StateDir:   cfg.Matrix.StateDir,
	}, log)
	if err != nil {
		return err
	}

	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	syncDone := make(chan error, 1)
	go func() { syncDone <- client.Run(syncCtx) }()

	select {
	case <-client.Ready():
	case err := <-syncDone:
		return fmt.Errorf("sync failed before delivery: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	pipeline := &poke.Pipeline{
		Client:        client,
		Store:         roomcfg.NewStore(log),
		DefaultFormat: cfg.Matrix.Format,
		RoomSizeLimit: cfg.Matrix.RoomSizeLimit,
		Log:           log,
	}
	err = pipeline.Deliver(ctx, poke.Delivery{
		Topic:   room,
		Target:  room,
		Message: message,
	})
	stopSync()
	<-syncDone
	_ = client.Close(context.Background())
	return err
}

// StdinIfPiped returns os.Stdin when input is piped in, nil on a terminal.
func StdinIfPiped() io.Reader {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return nil
	}
	if fi.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}
