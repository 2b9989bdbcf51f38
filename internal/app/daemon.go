// Package app wires configuration, transport, pipeline and the outer
// surfaces into the two run modes: the relay daemon and the one-shot client.
package app

import (
	"context"
	"fmt"
	"regexp"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/arcuru/pokem/internal/commands"
	"github.com/arcuru/pokem/internal/config"
	"github.com/arcuru/pokem/internal/httpd"
	"github.com/arcuru/pokem/internal/poke"
	"github.com/arcuru/pokem/internal/roomcfg"
	"github.com/arcuru/pokem/internal/runtime/supervisor"
	"github.com/arcuru/pokem/internal/schedule"
	"github.com/arcuru/pokem/internal/storage"
	"github.com/arcuru/pokem/internal/transport/matrix"
	logx "github.com/arcuru/pokem/pkg/logx"
)

// RunDaemon runs the relay daemon until ctx is cancelled or a component
// fails fatally. mgr must already hold a loaded config.
func RunDaemon(ctx context.Context, mgr *config.Manager) error {
	cfg := mgr.Get()
	if cfg == nil {
		return fmt.Errorf("daemon: no configuration loaded")
	}
	if cfg.Matrix == nil {
		return fmt.Errorf("daemon: matrix section is required in daemon mode")
	}

	logSvc, log := logx.New(loggingConfig(cfg))
	defer logSvc.Close()
	mgr.SetLogger(log)

	audit, err := storage.Open(storageConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("daemon: open storage: %w", err)
	}
	if audit != nil {
		defer audit.Close()
	}

	client, err := matrix.Connect(ctx, matrix.Config{
		Homeserver: cfg.Matrix.Homeserver,
		Username:   cfg.Matrix.Username,
		Password:   cfg.Matrix.Password,
		StateDir:   cfg.Matrix.StateDir,
	}, log)
	if err != nil {
		return err
	}
	logSvc.SetRoomSender(client)

	store := roomcfg.NewStore(log)
	pipeline := &poke.Pipeline{
		Client:        client,
		Store:         store,
		DefaultFormat: cfg.Matrix.Format,
		RoomSizeLimit: cfg.Matrix.RoomSizeLimit,
		Audit:         audit,
		Log:           log,
	}

	nicknames := func() map[string]string {
		if c := mgr.Get(); c != nil {
			return c.Rooms
		}
		return nil
	}

	allow, err := compileAllowList(cfg.Matrix.AllowList)
	if err != nil {
		return err
	}
	env := &commands.Env{
		Client:    client,
		Store:     store,
		Pipeline:  pipeline,
		Nicknames: cfg.Rooms,
		Prefix:    cfg.CommandPrefix(),
		Allow:     allow,
		Log:       log,
	}
	client.OnMessage(env.Dispatch)
	client.OnJoin(env.Welcome)

	sched := schedule.New(pipeline, nicknames, log)
	sched.Apply(cfg.Schedules)
	defer sched.Stop()

	sup := supervisor.New(ctx,
		supervisor.WithLogger(log),
		supervisor.WithCancelOnError(true))

	sup.Go("sync", func(ctx context.Context) error {
		return runSync(ctx, client, log)
	})

	// The front door runs even without a daemon section; defaults apply.
	var hc httpd.Config
	if cfg.Daemon != nil {
		hc = httpd.Config{
			Addr:       cfg.Daemon.Addr,
			Port:       cfg.Daemon.Port,
			RatePerSec: cfg.Daemon.RatePerSec,
		}
	}
	srv := httpd.New(hc, pipeline, nicknames, log)
	if err := srv.Start(); err != nil {
		sup.Cancel()
		return err
	}
	sup.Go("httpd-stop", func(ctx context.Context) error {
		<-ctx.Done()
		srv.Stop(nil)
		return nil
	})

	sup.Go("config-watch", mgr.Watch)
	sup.Go("config-reload", func(ctx context.Context) error {
		updates := mgr.Subscribe(1)
		defer mgr.Unsubscribe(updates)
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-updates:
				if next == nil {
					continue
				}
				logSvc.Apply(loggingConfig(next))
				sched.Apply(next.Schedules)
				log.Info("configuration reloaded")
			}
		}
	})

	_, _ = sd.SdNotify(false, sd.SdNotifyReady)
	log.Info("daemon ready", logx.String("user", string(client.UserID())))

	<-sup.Context().Done()
	_, _ = sd.SdNotify(false, sd.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = client.Close(stopCtx)
	if err := sup.Wait(stopCtx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runSync keeps the sync loop alive across transient failures with a
// doubling backoff, reset after a healthy stretch.
func runSync(ctx context.Context, client *matrix.Client, log logx.Logger) error {
	backoff := time.Second
	for {
		started := time.Now()
		err := client.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > time.Minute {
			backoff = time.Second
		}
		log.Warn("sync loop exited, restarting",
			logx.Duration("backoff", backoff), logx.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}

func compileAllowList(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("matrix.allow_list: %w", err)
	}
	return re, nil
}

func loggingConfig(cfg *config.Config) logx.Config {
	// Console stays on regardless; the yaml knob exists for symmetry but a
	// daemon with no sink at all helps nobody.
	lc := logx.Config{
		Level:   cfg.Logging.Level,
		Console: true,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
	if cfg.Matrix != nil && cfg.Matrix.LogRoom != "" {
		lc.Room = logx.RoomConfig{
			Enabled:    true,
			RoomID:     cfg.Matrix.LogRoom,
			MinLevel:   cfg.Logging.MinRoomLevel,
			RatePerSec: cfg.Logging.RoomRatePerSec,
		}
	}
	return lc
}

func storageConfig(cfg *config.Config) storage.Config {
	if cfg.Storage == nil {
		return storage.Config{}
	}
	sc := storage.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
	}
	if cfg.Storage.BusyTimeout != "" {
		if d, err := time.ParseDuration(cfg.Storage.BusyTimeout); err == nil {
			sc.BusyTimeout = d
		}
	}
	return sc
}
