package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/envios/internal/server"
)

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "serve")
	addr := fs.String("addr", a.cfg.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Auth:           a.auth,
		Inventory:      a.inventory,
		Reports:        a.client,
		OriginPatterns: a.cfg.OriginPatterns,
		Logger:         a.logger,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("envios listening", "addr", *addr, "api", a.client.BaseURL())
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
