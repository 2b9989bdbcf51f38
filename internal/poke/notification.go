// Package poke implements the notification pipeline: request normalization,
// room resolution, the auth gate, message formatting and delivery.
package poke

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kyokomi/emoji/v2"
)

const (
	// PriorityDefault is assigned when no priority is given or the given
	// value is unparseable.
	PriorityDefault = 3
	// PriorityMin / PriorityMax bound the clamp range.
	PriorityMin = 1
	PriorityMax = 5
)

// Notification is one canonical inbound poke. Built once per call, immutable
// afterwards, consumed exactly once by the delivery pipeline.
type Notification struct {
	Topic    string   `json:"topic,omitempty"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message"`
	Priority int      `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Urgent reports whether this poke should try the escalation room.
func (n Notification) Urgent() bool { return n.Priority > PriorityDefault }

// Body renders the final message text: emoji-decorated tags first, then the
// bold title prefix, then the message.
func (n Notification) Body() string {
	msg := n.Message
	if n.Title != "" {
		msg = fmt.Sprintf("**%s**\n\n%s", n.Title, msg)
	}
	if glyphs := renderTags(n.Tags); glyphs != "" {
		msg = fmt.Sprintf("%s %s", glyphs, msg)
	}
	return msg
}

// renderTags resolves emoji shortcodes and concatenates the glyphs.
// Unknown shortcodes drop silently.
func renderTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	codes := emoji.CodeMap()
	var b strings.Builder
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if glyph, ok := codes[":"+tag+":"]; ok {
			b.WriteString(glyph)
		}
	}
	return b.String()
}

// ParsePriority maps a raw priority value to the 1..5 range. Numeric input is
// clamped; the well-known level names map to fixed values; anything else is
// the default.
func ParsePriority(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PriorityDefault
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return clampPriority(v)
	}
	switch strings.ToLower(raw) {
	case "min":
		return 1
	case "low":
		return 2
	case "default":
		return 3
	case "high":
		return 4
	case "urgent", "max":
		return 5
	default:
		return PriorityDefault
	}
}

func clampPriority(v int) int {
	if v < PriorityMin {
		return PriorityMin
	}
	if v > PriorityMax {
		return PriorityMax
	}
	return v
}
