package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gridcrop/internal/config"
	"gridcrop/internal/logging"
	"gridcrop/internal/session"
)

const (
	pruneInterval  = 5 * time.Minute
	sessionMaxIdle = 2 * time.Hour
	shutdownGrace  = 5 * time.Second
)

// ListenAndServe runs the editor on cfg.Addr until ctx is done, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, cfg *config.Config) error {
	srv, err := NewServer(cfg, session.NewMemoryStore[*session.Session]())
	if err != nil {
		return err
	}
	go srv.PruneLoop(ctx, pruneInterval, sessionMaxIdle)

	hs := &http.Server{
		Addr:              srv.Config.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info("listening on %s", hs.Addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
