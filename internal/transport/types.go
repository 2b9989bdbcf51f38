package transport

import (
	"context"
	"regexp"
	"strings"
)

// RoomID is an opaque protocol-native room identifier, e.g. "!abc:example.org".
type RoomID string

// UserID is a protocol-native account identifier, e.g. "@alice:example.org".
type UserID string

// Membership is the session's own membership state in a room.
type Membership string

const (
	MembershipJoined  Membership = "joined"
	MembershipInvited Membership = "invited"
	MembershipLeft    Membership = "left"
)

// Message is one outbound room message, already fully formatted.
type Message struct {
	Body string
	// Markdown selects rich rendering; plain text otherwise.
	Markdown bool
	// MentionRoom attaches a room-wide mention annotation.
	MentionRoom bool
}

// Room is a handle to a single room reachable through the session.
//
// Membership and aliases are served from the session's synced state and never
// block; tag and member operations go to the homeserver.
type Room interface {
	ID() RoomID
	CanonicalAlias() string
	AltAliases() []string
	Membership() Membership

	// ActiveMembers counts currently joined members.
	ActiveMembers(ctx context.Context) (int, error)

	// Tags lists the session account's tags on this room.
	Tags(ctx context.Context) ([]string, error)
	AddTag(ctx context.Context, tag string) error
	RemoveTag(ctx context.Context, tag string) error

	Send(ctx context.Context, msg Message) error
}

// MessageHandler receives one inbound room message addressed to the session.
type MessageHandler func(ctx context.Context, sender UserID, body string, room Room)

// JoinHandler fires after the session has joined a room (invite accepted).
type JoinHandler func(ctx context.Context, room Room)

// Client is the chat-network session. Login, sync and encryption live behind
// this boundary; everything above it is testable with an in-memory fake.
type Client interface {
	UserID() UserID

	// Room returns a handle by raw id, including invited-but-not-joined
	// rooms. ok is false if the session doesn't know the room at all.
	Room(id RoomID) (Room, bool)

	// JoinedRooms snapshots the currently joined rooms.
	JoinedRooms() []Room

	OnMessage(h MessageHandler)
	OnJoin(h JoinHandler)

	// Run drives the sync loop until ctx is cancelled or a fatal session
	// error occurs. Restarting after an error is the caller's concern.
	Run(ctx context.Context) error

	Close(ctx context.Context) error
}

var (
	userShapeRe  = regexp.MustCompile(`^@.*:.*\..*`)
	aliasShapeRe = regexp.MustCompile(`^#.*:.*\..*`)
)

// IsRoomID reports whether name is syntactically a native room id.
func IsRoomID(name string) bool {
	return strings.HasPrefix(name, "!") && strings.Contains(name, ":")
}

// IsUserShaped reports whether name looks like a user identifier.
// "#@someone:host.tld" is a valid room alias, so the test is anchored on '@'.
func IsUserShaped(name string) bool {
	return userShapeRe.MatchString(name)
}

// IsAliasShaped reports whether name looks like a room alias with a
// domain-like suffix.
func IsAliasShaped(name string) bool {
	return aliasShapeRe.MatchString(name)
}
