package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-autoquote/internal/config"
	"github.com/goliatone/go-autoquote/internal/logging"
	"github.com/goliatone/go-autoquote/pkg/lookup"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/vpic"
)

// app holds what every subcommand shares, built from the loaded config.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *vpic.Client
	cache  *lookup.Cache

	closers []func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(rootFlags.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	a.client = vpic.New(
		vpic.WithBaseURL(cfg.VPIC.BaseURL),
		vpic.WithVehicleType(cfg.VPIC.VehicleType),
		vpic.WithHTTPClient(vpic.NewHTTPClient(cfg.VPIC.Timeout)),
		vpic.WithRate(cfg.VPIC.Rate, cfg.VPIC.Burst),
		vpic.WithLogger(logger),
	)

	store, err := a.store(cmd.Context())
	if err != nil {
		a.close()
		return nil, err
	}
	a.cache = lookup.New(a.client,
		lookup.WithVehicleType(a.client.VehicleType()),
		lookup.WithStore(store),
		lookup.WithLogger(logger),
	)
	return a, nil
}

func (a *app) store(ctx context.Context) (lookup.Store, error) {
	if a.cfg.Cache.Backend != config.CacheRedis {
		return lookup.NewMemoryStore(), nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Cache.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", a.cfg.Cache.RedisAddr, err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.logger.Info("lookup cache on redis", "addr", a.cfg.Cache.RedisAddr)
	return lookup.NewRedisStore(rdb, a.cfg.Cache.RedisPrefix), nil
}

// submitter posts to backend.action and publishes quote events when NATS
// is configured.
func (a *app) submitter() (*submit.Submitter, error) {
	options := []submit.Option{submit.WithLogger(a.logger)}

	var conn *nats.Conn
	switch {
	case a.cfg.NATS.Embedded:
		embedded, err := submit.StartEmbedded(5 * time.Second)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, embedded.Close)
		conn = embedded.Conn

		// Nothing else can reach an embedded server, so log what lands on it.
		sub, err := conn.Subscribe(a.cfg.NATS.Subject, func(msg *nats.Msg) {
			a.logger.Info("quote event received", "subject", msg.Subject, "bytes", len(msg.Data))
		})
		if err != nil {
			return nil, fmt.Errorf("nats subscribe: %w", err)
		}
		a.closers = append(a.closers, func() { _ = sub.Unsubscribe() })
	case a.cfg.NATS.URL != "":
		nc, err := nats.Connect(a.cfg.NATS.URL, nats.Name("autoquote"))
		if err != nil {
			return nil, fmt.Errorf("nats %s: %w", a.cfg.NATS.URL, err)
		}
		a.closers = append(a.closers, func() { _ = nc.Drain() })
		conn = nc
	}

	if conn != nil {
		options = append(options, submit.WithPublisher(submit.NewNATSPublisher(conn, a.cfg.NATS.Subject, submit.DefaultSource)))
	} else {
		options = append(options, submit.WithPublisher(submit.LogPublisher{Logger: a.logger}))
	}
	return submit.NewSubmitter(a.cfg.Backend.Form("autoquote-submit"), options...), nil
}

// close runs closers in reverse order of registration.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
