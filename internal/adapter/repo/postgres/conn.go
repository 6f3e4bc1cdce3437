package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a pgx connection pool from the provided DSN and returns it.
// The pool is configured with sane defaults for this application and traces every query.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.parse_config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.new_pool: %w", err)
	}
	return pool, nil
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady pings until the database answers or maxElapsed passes, backing off exponentially.
// A non-positive maxElapsed pings once.
func WaitReady(ctx context.Context, p Pinger, maxElapsed time.Duration) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxInterval = 5 * time.Second
	expo.MaxElapsedTime = maxElapsed
	var bo backoff.BackOff = expo
	if maxElapsed <= 0 {
		bo = &backoff.StopBackOff{}
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			slog.Warn("database not ready", slog.Int("attempt", attempt), slog.Any("error", err))
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("op=postgres.wait_ready: %w", err)
	}
	return nil
}

// Connect builds the pool, waits for the database and ensures the schema exists.
func Connect(ctx context.Context, dsn string, maxElapsed time.Duration) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := WaitReady(ctx, pool, maxElapsed); err != nil {
		pool.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to postgres", slog.Int("max_conns", int(pool.Config().MaxConns)))
	return pool, nil
}
