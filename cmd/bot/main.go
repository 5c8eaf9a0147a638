package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"postbot/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	// Local development keeps the token in .env; a missing file is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "postbot:", err)
		os.Exit(1)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	err = a.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if err != nil {
		fmt.Fprintln(os.Stderr, "postbot:", err)
		os.Exit(1)
	}
}
