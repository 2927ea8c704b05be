package bot

import (
	"context"
	"fmt"
	"time"

	"storagebot/core/config"
	coredatabase "storagebot/core/database"
	"storagebot/core/telegram"
	"storagebot/core/telegram/middleware"
	"storagebot/internal/engine"
	"storagebot/internal/session"
	"storagebot/internal/storage"
)

// Run wires the application together and serves Telegram updates until the
// context is cancelled: migrations, the Postgres gateway, the session store,
// the engine, and the bot transport.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := coredatabase.RunMigrations(cfg.Database); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	db, err := coredatabase.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	gw := storage.NewPostgresGateway(db)
	sessions := session.NewStore(cfg.Storage.MaxSessions)
	eng := engine.New(gw, sessions, cfg.Storage)
	b := New(eng)

	mws := []telegram.Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logging", Use: middleware.LoggerMiddleware},
	}
	if cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = struct{}{}
		}
		mws = append(mws, telegram.Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:  exclude,
			}),
		})
	}

	return telegram.RunTelegram(ctx, telegram.RunOptions{
		Config:      cfg,
		Middlewares: mws,
		Routes:      b.Routes(),
	})
}
