package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
	"github.com/Seeyko/tomandrieu.com-sub000/internal/config"
)

// App wires the persistence layer, the slot engine and the HTTP handlers.
// It implements the engine's four collaborator interfaces itself (db.go,
// calendar.go), so the engine reads rules, bookings, blocked dates and
// settings straight from the live store on every call.
type App struct {
	DB     *pgxpool.Pool
	Log    zerolog.Logger
	Cfg    *config.Config
	Owner  *time.Location
	Engine *availability.Engine
}

func New(pool *pgxpool.Pool, cfg *config.Config, owner *time.Location, log zerolog.Logger) *App {
	a := &App{DB: pool, Cfg: cfg, Owner: owner, Log: log}
	a.Engine = availability.NewEngine(a, a, a, a, owner)
	return a
}

// OpenPool connects to Postgres with a bounded pool and verifies the
// connection before returning.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
