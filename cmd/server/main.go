package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gridcrop/internal/config"
	"gridcrop/internal/logging"
	"gridcrop/internal/web"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.LogFile != "" {
		if err := logging.InitializeFile(cfg.LogFile, cfg.Level()); err != nil {
			log.Fatal(err)
		}
		defer logging.Close()
	} else {
		logging.Initialize(os.Stderr, cfg.Level())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := web.ListenAndServe(ctx, cfg); err != nil {
		logging.WithError(err, "server")
		log.Fatal(err)
	}
}
