package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arcuru/pokem/internal/app"
	"github.com/arcuru/pokem/internal/config"
	logx "github.com/arcuru/pokem/pkg/logx"
)

func main() {
	var (
		cfgPath string
		room    string
		daemon  bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to config yaml (default: user config dir)")
	flag.StringVar(&room, "room", "", "room to send the message to")
	flag.BoolVar(&daemon, "daemon", false, "run as the relay daemon")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}

	if daemon {
		mgr := config.NewManager(cfgPath)
		if _, err := mgr.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		if err := app.RunDaemon(ctx, mgr); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		return
	}

	// One-shot mode tolerates a missing config file: the public instance
	// needs none at all.
	cfg, err := config.Parse(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		cfg = &config.Config{}
	}

	err = app.RunOneShot(ctx, cfg, app.OneShot{
		Room:  room,
		Words: flag.Args(),
		Stdin: app.StdinIfPiped(),
		Log:   logx.NewConsole("warn"),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
