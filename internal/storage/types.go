package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the delivery audit store.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (requires the sqlite build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryEntry records one delivery attempt.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	At      time.Time `json:"at"`
	Topic   string    `json:"topic,omitempty"`
	Target  string    `json:"target"`
	RoomID  string    `json:"room_id,omitempty"`
	Mention bool      `json:"mention,omitempty"`
	OK      bool      `json:"ok"`
	Cause   string    `json:"cause,omitempty"`
}
