// Package postgres wraps a lib/pq connection pool used to bulk-load document
// metadata at startup.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
)

type Client struct {
	DB     *sql.DB
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// New opens the pool and waits until the server answers a ping, retrying
// with backoff while the database is still starting.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := &Client{
		DB:     db,
		cfg:    cfg,
		logger: slog.Default().With("component", "postgres"),
	}
	err = resilience.Retry(ctx, "postgres-ping", resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
	}, func() error {
		return c.Ping(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	c.logger.Info("connected", "host", cfg.Host, "database", cfg.Database)
	return c, nil
}

// Ping checks the connection with a short deadline.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// Each runs query and calls scan once per row, in result order. It stops at
// the first scan error.
func (c *Client) Each(ctx context.Context, query string, scan func(rows *sql.Rows) error, args ...any) (int, error) {
	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return n, fmt.Errorf("scanning row %d: %w", n, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterating rows: %w", err)
	}
	return n, nil
}
