package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// sessionCloser ends the sessions still open at shutdown.
// *service.Sessions satisfies it.
type sessionCloser interface {
	Len() int
	CloseAll(ctx context.Context) error
}

// shutdown stops srv and ends every open session unconfirmed.
//
// Sessions are closed as soon as the listeners stop, not after Shutdown
// returns: an open events stream only ends when its session closes, so
// Shutdown would otherwise wait on it until timeout. Closing runs on its own
// deadline so a slow drain never starves the draft discards. Sessions that
// requests still in flight opened are closed once the server is idle.
func shutdown(srv *http.Server, sessions sessionCloser, timeout time.Duration, log *slog.Logger) error {
	closed := make(chan error, 1)
	srv.RegisterOnShutdown(func() {
		closed <- closeSessions(sessions, timeout, log)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	errs = append(errs, <-closed)

	if sessions.Len() > 0 {
		errs = append(errs, closeSessions(sessions, timeout, log))
	}
	return errors.Join(errs...)
}

func closeSessions(sessions sessionCloser, timeout time.Duration, log *slog.Logger) error {
	n := sessions.Len()
	if n == 0 {
		return nil
	}
	log.Info("discarding open sessions", "count", n)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := sessions.CloseAll(ctx); err != nil {
		return fmt.Errorf("closing sessions: %w", err)
	}
	return nil
}
