package config

// Config is the process configuration, loaded from YAML.
//
// Any of Matrix, Server and Daemon may be omitted; which ones are present
// selects the run mode (one-shot client vs relay daemon), matching the
// historical config file format.
type Config struct {
	// Matrix configures logging in and messaging as a chat client.
	Matrix *MatrixConfig `yaml:"matrix,omitempty"`

	// Server points at a remote relay daemon. When set, the one-shot
	// client POSTs to it instead of logging in itself.
	Server *ServerConfig `yaml:"server,omitempty"`

	// Daemon configures the HTTP front door for daemon mode.
	Daemon *DaemonConfig `yaml:"daemon,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Storage configures the optional delivery audit store.
	Storage *StorageConfig `yaml:"storage,omitempty"`

	// Rooms maps notification nicknames to room ids. The special key
	// "default" is the one-shot client's fallback; "<name>-urgent" keys
	// are escalation rooms probed for high-priority pokes.
	Rooms map[string]string `yaml:"rooms,omitempty"`

	// Schedules are recurring pokes dispatched by the daemon.
	Schedules []ScheduleConfig `yaml:"schedules,omitempty"`
}

type MatrixConfig struct {
	Homeserver string `yaml:"homeserver"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password,omitempty"`

	// StateDir holds session state. Defaults to $XDG_STATE_HOME/pokem.
	StateDir string `yaml:"state_dir,omitempty"`

	// CommandPrefix for chat commands. Defaults to "!pokem".
	CommandPrefix string `yaml:"command_prefix,omitempty"`

	// Format is the default send format: "markdown" or "plain".
	Format string `yaml:"format,omitempty"`

	// RoomSizeLimit refuses sends to rooms with more active members.
	// 0 means unlimited.
	RoomSizeLimit int `yaml:"room_size_limit,omitempty"`

	// AllowList is a regex of account ids whose commands are honored.
	// Empty allows everyone.
	AllowList string `yaml:"allow_list,omitempty"`

	// LogRoom receives warning+ log lines when set.
	LogRoom string `yaml:"log_room,omitempty"`
}

type ServerConfig struct {
	URL  string `yaml:"url"`
	Port int    `yaml:"port,omitempty"`
}

type DaemonConfig struct {
	// Addr to bind on. Defaults to 0.0.0.0.
	Addr string `yaml:"addr,omitempty"`
	// Port to bind on. Defaults to 80.
	Port int `yaml:"port,omitempty"`
	// RatePerSec limits pokes per client IP. 0 disables limiting.
	RatePerSec int `yaml:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level,omitempty"`
	Console bool        `yaml:"console,omitempty"`
	File    LoggingFile `yaml:"file,omitempty"`
	// MinRoomLevel / RoomRatePerSec control the log_room sink.
	MinRoomLevel   string `yaml:"min_room_level,omitempty"`
	RoomRatePerSec int    `yaml:"room_rate_per_sec,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// StorageConfig selects the delivery audit backend.
//
// Driver values: "file" (JSON lines), "sqlite" (requires the sqlite build
// tag), "" or "none" to disable.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"`
	Path   string `yaml:"path,omitempty"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `yaml:"busy_timeout,omitempty"`
}

// ScheduleConfig is one recurring poke.
type ScheduleConfig struct {
	Name     string `yaml:"name"`
	Cron     string `yaml:"cron"`
	Room     string `yaml:"room"`
	Message  string `yaml:"message"`
	Priority int    `yaml:"priority,omitempty"`
}

// CommandPrefix returns the configured chat command prefix or the default.
func (c *Config) CommandPrefix() string {
	if c != nil && c.Matrix != nil && c.Matrix.CommandPrefix != "" {
		return c.Matrix.CommandPrefix
	}
	return "!pokem"
}
