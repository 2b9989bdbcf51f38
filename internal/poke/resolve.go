package poke

import (
	"strings"

	"github.com/arcuru/pokem/internal/transport"
)

// ResolveTopic maps a notification topic through the nickname table.
//
// Urgent pokes probe "<topic>-urgent" first; when no escalation room is
// configured the poke falls back to the plain key and asks for a room-wide
// mention instead, so an urgent page with no escalation room still pages
// everyone. The returned target may still be a raw id or alias when the
// topic isn't in the table at all.
func ResolveTopic(nicknames map[string]string, topic string, urgent bool) (target string, mentionRoom bool) {
	if urgent {
		if id, ok := nicknames[topic+"-urgent"]; ok {
			return id, false
		}
		// No escalation room; page the whole room instead.
		if id, ok := nicknames[topic]; ok {
			return id, true
		}
		return topic, true
	}
	if id, ok := nicknames[topic]; ok {
		return id, false
	}
	return topic, false
}

// ResolveRoom translates a user-supplied name into a room handle.
//
// Precedence, first success wins:
//  1. a syntactically valid native room id is looked up directly;
//  2. user-shaped identifiers are refused (messaging users is unsupported);
//  3. the name is normalized to alias shape ('#' prepended if missing) and,
//     if it has a domain-like suffix, every joined room is scanned for a
//     canonical or alternate alias match.
//
// The scan is rebuilt on every call: freshness over lookup cost, which is
// fine for the small join sets this service runs with.
func ResolveRoom(client transport.Client, name string) (transport.Room, bool) {
	if name == "" {
		return nil, false
	}

	if transport.IsRoomID(name) {
		return client.Room(transport.RoomID(name))
	}

	if transport.IsUserShaped(name) {
		// Looks like a user identifier; unsupported at this time.
		return nil, false
	}

	// The '#' is annoying to put in a URL, so accept the alias without it.
	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}
	if !transport.IsAliasShaped(name) {
		return nil, false
	}

	for _, r := range client.JoinedRooms() {
		if r.CanonicalAlias() == name {
			return r, true
		}
		for _, alias := range r.AltAliases() {
			if alias == name {
				return r, true
			}
		}
	}
	return nil, false
}
