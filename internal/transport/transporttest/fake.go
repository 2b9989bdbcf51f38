// Package transporttest provides an in-memory transport.Client for tests.
//
// Rooms are plain structs with settable membership, aliases, tags and member
// counts; every mutation is observable and error injection is per-room.
package transporttest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/arcuru/pokem/internal/transport"
)

// Room is a fake transport.Room.
type Room struct {
	mu sync.Mutex

	RoomID      transport.RoomID
	Canonical   string
	Alts        []string
	State       transport.Membership
	Members     int
	tags        map[string]bool
	sent        []transport.Message
	TagWriteErr error
	SendErr     error
}

func NewRoom(id string) *Room {
	return &Room{
		RoomID:  transport.RoomID(id),
		State:   transport.MembershipJoined,
		Members: 2,
		tags:    map[string]bool{},
	}
}

func (r *Room) ID() transport.RoomID   { return r.RoomID }
func (r *Room) CanonicalAlias() string { return r.Canonical }

func (r *Room) AltAliases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Alts...)
}

func (r *Room) Membership() transport.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State
}

func (r *Room) SetMembership(m transport.Membership) {
	r.mu.Lock()
	r.State = m
	r.mu.Unlock()
}

func (r *Room) ActiveMembers(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Members, nil
}

func (r *Room) Tags(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tags))
	for t := range r.tags {
		out = append(out, t)
	}
	// Deterministic order keeps "first encountered wins" tests stable.
	sort.Strings(out)
	return out, nil
}

func (r *Room) AddTag(ctx context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.TagWriteErr != nil {
		return r.TagWriteErr
	}
	r.tags[tag] = true
	return nil
}

func (r *Room) RemoveTag(ctx context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.TagWriteErr != nil {
		return r.TagWriteErr
	}
	delete(r.tags, tag)
	return nil
}

func (r *Room) Send(ctx context.Context, msg transport.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return r.SendErr
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of everything delivered to this room.
func (r *Room) Sent() []transport.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Message(nil), r.sent...)
}

// HasTag reports whether the tag is currently set.
func (r *Room) HasTag(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tags[tag]
}

// SeedTag sets a tag directly, bypassing error injection.
func (r *Room) SeedTag(tag string) {
	r.mu.Lock()
	r.tags[tag] = true
	r.mu.Unlock()
}

// Client is a fake transport.Client.
type Client struct {
	mu    sync.Mutex
	Self  transport.UserID
	rooms map[transport.RoomID]*Room

	onMessage transport.MessageHandler
	onJoin    transport.JoinHandler
}

func NewClient() *Client {
	return &Client{
		Self:  "@pokem:example.org",
		rooms: map[transport.RoomID]*Room{},
	}
}

// AddRoom registers a room with the session.
func (c *Client) AddRoom(r *Room) *Room {
	c.mu.Lock()
	c.rooms[r.RoomID] = r
	c.mu.Unlock()
	return r
}

func (c *Client) UserID() transport.UserID { return c.Self }

func (c *Client) Room(id transport.RoomID) (transport.Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[id]
	if !ok {
		return nil, false
	}
	return r, true
}

func (c *Client) JoinedRooms() []transport.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]transport.RoomID, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]transport.Room, 0, len(ids))
	for _, id := range ids {
		if c.rooms[id].Membership() == transport.MembershipJoined {
			out = append(out, c.rooms[id])
		}
	}
	return out
}

func (c *Client) OnMessage(h transport.MessageHandler) { c.onMessage = h }
func (c *Client) OnJoin(h transport.JoinHandler)       { c.onJoin = h }

// Receive injects an inbound message as if it arrived from sync.
func (c *Client) Receive(ctx context.Context, sender transport.UserID, body string, room *Room) {
	if c.onMessage != nil {
		c.onMessage(ctx, sender, body, room)
	}
}

// Join flips a room to joined and fires the join handler.
func (c *Client) Join(ctx context.Context, room *Room) {
	room.SetMembership(transport.MembershipJoined)
	if c.onJoin != nil {
		c.onJoin(ctx, room)
	}
}

func (c *Client) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *Client) Close(ctx context.Context) error { return nil }

// ErrInjected is a convenience error for failure injection.
var ErrInjected = errors.New("injected failure")
