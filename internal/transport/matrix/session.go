package matrix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// session is the persisted login state, written to state_dir/session.json so
// restarts reuse the device instead of piling up fresh ones on the server.
type session struct {
	Homeserver  string `json:"homeserver"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
	AccessToken string `json:"access_token"`
}

func sessionPath(stateDir string) string {
	return filepath.Join(stateDir, "session.json")
}

func loadSession(stateDir string) (session, bool) {
	var s session
	b, err := os.ReadFile(sessionPath(stateDir))
	if err != nil {
		return s, false
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return session{}, false
	}
	return s, s.AccessToken != "" && s.UserID != ""
}

func saveSession(stateDir string, s session) error {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := sessionPath(stateDir) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, sessionPath(stateDir))
}

func dropSession(stateDir string) {
	_ = os.Remove(sessionPath(stateDir))
}
