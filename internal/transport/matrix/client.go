// Package matrix adapts a mautrix session to the transport interfaces. It is
// the only package that imports the protocol library; everything above works
// against transport.Client and is tested with the in-memory fake.
package matrix

import (
	"context"
	"fmt"
	"sync"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/arcuru/pokem/internal/transport"
	logx "github.com/arcuru/pokem/pkg/logx"
)

// Config is the session configuration.
type Config struct {
	Homeserver string
	Username   string
	Password   string
	// StateDir persists the login session between restarts.
	StateDir string
}

// roomState is the locally synced view of one room.
type roomState struct {
	membership     transport.Membership
	canonicalAlias string
	altAliases     []string
}

// Client is a live Matrix session implementing transport.Client.
type Client struct {
	cli *mautrix.Client
	log logx.Logger

	mu    sync.RWMutex
	rooms map[id.RoomID]*roomState

	readyOnce sync.Once
	ready     chan struct{}

	onMessage transport.MessageHandler
	onJoin    transport.JoinHandler
}

// Connect logs in (reusing a persisted session when one exists) and returns
// a client ready for Run. It does not start syncing.
func Connect(ctx context.Context, cfg Config, log logx.Logger) (*Client, error) {
	if cfg.Homeserver == "" || cfg.Username == "" {
		return nil, fmt.Errorf("matrix: homeserver and username are required")
	}
	log = log.With(logx.String("comp", "matrix"))

	c := &Client{
		log:   log,
		rooms: make(map[id.RoomID]*roomState),
		ready: make(chan struct{}),
	}

	if s, ok := loadSession(cfg.StateDir); ok && s.Homeserver == cfg.Homeserver {
		cli, err := mautrix.NewClient(s.Homeserver, id.UserID(s.UserID), s.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("matrix: new client: %w", err)
		}
		cli.DeviceID = id.DeviceID(s.DeviceID)
		if _, err := cli.Whoami(ctx); err == nil {
			log.Info("resumed session", logx.String("user", s.UserID))
			c.cli = cli
			c.install()
			return c, nil
		}
		// Stale token; fall through to a fresh password login.
		log.Warn("persisted session rejected, logging in again")
		dropSession(cfg.StateDir)
	}

	cli, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("matrix: new client: %w", err)
	}
	resp, err := cli.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: cfg.Username,
		},
		Password:                 cfg.Password,
		InitialDeviceDisplayName: "pokem",
		StoreCredentials:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("matrix: login: %w", err)
	}
	if cfg.StateDir != "" {
		err := saveSession(cfg.StateDir, session{
			Homeserver:  cfg.Homeserver,
			UserID:      resp.UserID.String(),
			DeviceID:    resp.DeviceID.String(),
			AccessToken: resp.AccessToken,
		})
		if err != nil {
			log.Warn("failed to persist session", logx.Err(err))
		}
	}
	log.Info("logged in", logx.String("user", resp.UserID.String()))

	c.cli = cli
	c.install()
	return c, nil
}

// install registers the sync handlers.
func (c *Client) install() {
	syncer := c.cli.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnSync(c.cli.DontProcessOldEvents)

	syncer.OnEventType(event.EventMessage, c.handleMessage)
	syncer.OnEventType(event.StateMember, c.handleMember)
	syncer.OnEventType(event.StateCanonicalAlias, c.handleAlias)
}

func (c *Client) UserID() transport.UserID {
	return transport.UserID(c.cli.UserID.String())
}

func (c *Client) Room(rid transport.RoomID) (transport.Room, bool) {
	c.mu.RLock()
	_, ok := c.rooms[id.RoomID(rid)]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &room{c: c, id: id.RoomID(rid)}, true
}

func (c *Client) JoinedRooms() []transport.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]transport.Room, 0, len(c.rooms))
	for rid, st := range c.rooms {
		if st.membership == transport.MembershipJoined {
			out = append(out, &room{c: c, id: rid})
		}
	}
	return out
}

func (c *Client) OnMessage(h transport.MessageHandler) { c.onMessage = h }
func (c *Client) OnJoin(h transport.JoinHandler)       { c.onJoin = h }

// Run primes state from the server and drives the sync loop until ctx is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	if err := c.prime(ctx); err != nil {
		return err
	}
	c.readyOnce.Do(func() { close(c.ready) })
	go func() {
		<-ctx.Done()
		c.cli.StopSync()
	}()
	err := c.cli.SyncWithContext(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Ready is closed once the initial room state has been primed. The one-shot
// client waits on it before resolving its target.
func (c *Client) Ready() <-chan struct{} { return c.ready }

func (c *Client) Close(ctx context.Context) error {
	c.cli.StopSync()
	return nil
}

// SendLogLine delivers one log line as plain text; wired as the log room
// sink.
func (c *Client) SendLogLine(ctx context.Context, roomID string, text string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    text,
	}
	_, err := c.cli.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content)
	return err
}

// prime seeds the room table with the currently joined rooms and their
// aliases, so resolution works before the first sync batch lands.
func (c *Client) prime(ctx context.Context) error {
	resp, err := c.cli.JoinedRooms(ctx)
	if err != nil {
		return fmt.Errorf("matrix: joined rooms: %w", err)
	}
	for _, rid := range resp.JoinedRooms {
		st := &roomState{membership: transport.MembershipJoined}
		var alias event.CanonicalAliasEventContent
		if err := c.cli.StateEvent(ctx, rid, event.StateCanonicalAlias, "", &alias); err == nil {
			st.canonicalAlias = alias.Alias.String()
			for _, a := range alias.AltAliases {
				st.altAliases = append(st.altAliases, a.String())
			}
		}
		c.mu.Lock()
		c.rooms[rid] = st
		c.mu.Unlock()
	}
	c.log.Info("session primed", logx.Int("rooms", len(resp.JoinedRooms)))
	return nil
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == c.cli.UserID {
		return
	}
	h := c.onMessage
	if h == nil {
		return
	}
	msg := evt.Content.AsMessage()
	if msg == nil || msg.Body == "" {
		return
	}
	h(ctx, transport.UserID(evt.Sender.String()), msg.Body, &room{c: c, id: evt.RoomID})
}

// handleMember tracks our own membership and auto-accepts invites.
func (c *Client) handleMember(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != c.cli.UserID.String() {
		return
	}
	content := evt.Content.AsMember()
	if content == nil {
		return
	}

	switch content.Membership {
	case event.MembershipInvite:
		c.setMembership(evt.RoomID, transport.MembershipInvited)
		c.log.Info("invited to room, joining", logx.String("room", evt.RoomID.String()))
		if _, err := c.cli.JoinRoomByID(ctx, evt.RoomID); err != nil {
			c.log.Error("failed to join room", logx.String("room", evt.RoomID.String()), logx.Err(err))
		}
	case event.MembershipJoin:
		first := c.setMembership(evt.RoomID, transport.MembershipJoined)
		if first {
			if h := c.onJoin; h != nil {
				h(ctx, &room{c: c, id: evt.RoomID})
			}
		}
	case event.MembershipLeave, event.MembershipBan:
		c.setMembership(evt.RoomID, transport.MembershipLeft)
	}
}

func (c *Client) handleAlias(ctx context.Context, evt *event.Event) {
	content := evt.Content.AsCanonicalAlias()
	if content == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.rooms[evt.RoomID]
	if !ok {
		st = &roomState{membership: transport.MembershipJoined}
		c.rooms[evt.RoomID] = st
	}
	st.canonicalAlias = content.Alias.String()
	st.altAliases = st.altAliases[:0]
	for _, a := range content.AltAliases {
		st.altAliases = append(st.altAliases, a.String())
	}
}

// setMembership records the new state and reports whether this was a
// transition into joined.
func (c *Client) setMembership(rid id.RoomID, m transport.Membership) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.rooms[rid]
	if !ok {
		st = &roomState{}
		c.rooms[rid] = st
	}
	joinedNow := m == transport.MembershipJoined && st.membership != transport.MembershipJoined
	st.membership = m
	return joinedNow
}
