// Package roomcfg persists per-room settings inside the room's own tags.
//
// There is no separate database: the block flag and the auth token live as
// account tags under the dev.pokem namespace, so the configuration travels
// with the room and survives restarts for free. The encoding is fixed by
// deployed clients and must not change.
package roomcfg

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcuru/pokem/internal/transport"
	logx "github.com/arcuru/pokem/pkg/logx"
)

const (
	// TagBlock marks a room the relay must not message.
	TagBlock = "dev.pokem.block"
	// TagAuthPrefix carries the auth token in the tag name itself.
	TagAuthPrefix = "dev.pokem.auth."
	// TagLegacyPrefix is the pre-1.0 token encoding. Still read, and
	// rewritten to TagAuthPrefix the first time it is seen.
	TagLegacyPrefix = "dev.pokem.pass."
)

// Config is the per-room configuration. Auth == "" means no token required.
type Config struct {
	Block bool
	Auth  string
}

// Store reads and writes room configuration through the transport.
type Store struct {
	log logx.Logger
}

func NewStore(log logx.Logger) Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return Store{log: log}
}

// Get scans the room's tags for configuration. It never fails: a tag read
// error yields the defaults. Finding a legacy pass. tag triggers an
// immediate rewrite to the current encoding; rewrite failures are logged and
// the returned config is unaffected.
func (s Store) Get(ctx context.Context, room transport.Room) Config {
	var cfg Config
	tags, err := room.Tags(ctx)
	if err != nil {
		s.log.Warn("reading room tags failed, using defaults",
			logx.String("room", string(room.ID())), logx.Err(err))
		return cfg
	}

	migrate := false
	for _, tag := range tags {
		switch {
		case tag == TagBlock:
			cfg.Block = true
		case strings.HasPrefix(tag, TagAuthPrefix):
			if cfg.Auth != "" {
				// At most one token is meaningful. Two tags usually mean a
				// failed removal during a token change; first one wins.
				s.log.Warn("multiple auth tokens set for room",
					logx.String("room", string(room.ID())))
				continue
			}
			cfg.Auth = strings.TrimPrefix(tag, TagAuthPrefix)
		case strings.HasPrefix(tag, TagLegacyPrefix):
			migrate = true
			if cfg.Auth != "" {
				s.log.Warn("multiple auth tokens set for room",
					logx.String("room", string(room.ID())))
				continue
			}
			cfg.Auth = strings.TrimPrefix(tag, TagLegacyPrefix)
		}
	}

	if migrate {
		if err := s.Set(ctx, room, cfg); err != nil {
			s.log.Error("migrating legacy auth tag failed",
				logx.String("room", string(room.ID())), logx.Err(err))
		}
	}
	return cfg
}

// Set writes the desired configuration. It is idempotent and self-correcting:
// every tag in the auth/legacy namespace not matching the desired token is
// removed, then the desired token tag is added if missing. The individual tag
// operations are not transactional; a failure is surfaced immediately so a
// lost write is never silent, and the next Get self-heals leftover state.
func (s Store) Set(ctx context.Context, room transport.Room, cfg Config) error {
	if cfg.Block {
		if err := room.AddTag(ctx, TagBlock); err != nil {
			return fmt.Errorf("set block tag: %w", err)
		}
	} else {
		if err := room.RemoveTag(ctx, TagBlock); err != nil {
			return fmt.Errorf("remove block tag: %w", err)
		}
	}

	tags, err := room.Tags(ctx)
	if err != nil {
		return fmt.Errorf("read tags: %w", err)
	}

	placed := false
	for _, tag := range tags {
		switch {
		case strings.HasPrefix(tag, TagLegacyPrefix):
			// Old encoding is always rewritten.
			if err := room.RemoveTag(ctx, tag); err != nil {
				return fmt.Errorf("remove legacy tag: %w", err)
			}
		case strings.HasPrefix(tag, TagAuthPrefix):
			if cfg.Auth != "" && strings.TrimPrefix(tag, TagAuthPrefix) == cfg.Auth {
				placed = true
				continue
			}
			if err := room.RemoveTag(ctx, tag); err != nil {
				return fmt.Errorf("remove stale auth tag: %w", err)
			}
		}
	}

	if cfg.Auth != "" && !placed {
		if err := room.AddTag(ctx, TagAuthPrefix+cfg.Auth); err != nil {
			return fmt.Errorf("set auth tag: %w", err)
		}
	}
	return nil
}
