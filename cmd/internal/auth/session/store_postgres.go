package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the sessions table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

var pgSchemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgresStore creates a Postgres-backed session store in schema
// (empty means "public").
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	if !pgSchemaRe.MatchString(schema) {
		return nil, fmt.Errorf("session: invalid schema identifier")
	}
	return &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{schema, "sessions"}.Sanitize(),
	}, nil
}

func (s *PostgresStore) Create(ctx context.Context, key string, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table+` (id_hash, user_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, key, rec.UserID, rec.Username, rec.CreatedAt, rec.ExpiresAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string, now time.Time) (Record, error) {
	var rec Record

	err := s.pool.QueryRow(ctx, `
		SELECT user_id, username, created_at, expires_at
		FROM `+s.table+`
		WHERE id_hash = $1 AND expires_at > $2
	`, key, now).Scan(&rec.UserID, &rec.Username, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE id_hash = $1`, key)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE user_id = $1`, userID)
	return err
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
