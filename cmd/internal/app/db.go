package app

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munni1406/Blog-Template/cmd/internal/migrations"
)

// NewDBPool builds a pgxpool with sane defaults, validates connectivity and,
// when cfg.Migrate is set, applies the embedded schema migrations.
func NewDBPool(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}
	if cfg.DBSchema != "" {
		pcfg.ConnConfig.RuntimeParams["search_path"] = cfg.DBSchema
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.Migrate {
		if stmt := createSchemaSQL(cfg.DBSchema); stmt != "" {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				pool.Close()
				return nil, err
			}
		}
		if err := migrations.Up(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

// createSchemaSQL returns the statement that makes schema exist before
// migrations run, or "" when the default schema is in use.
func createSchemaSQL(schema string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" || schema == "public" {
		return ""
	}
	return `CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{schema}.Sanitize()
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
