package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-autoquote/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quote wizard over HTTP",
	Long: `Serve the quote wizard at /quote, the vehicle lookup endpoints at
/api/vehicles and the page assets at /assets.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	submitter, err := a.submitter()
	if err != nil {
		return err
	}
	srv, err := server.New(a.cache,
		server.WithDecoder(a.client),
		server.WithSubmitter(submitter),
		server.WithMinYear(a.cfg.MinYear),
		server.WithIdle(a.cfg.Session.Idle),
		server.WithSelectWait(a.cfg.VPIC.Timeout),
		server.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go srv.Run(ctx)

	httpServer := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "grace", a.cfg.ShutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
