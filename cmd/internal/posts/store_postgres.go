package posts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the posts table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

var pgSchemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgresStore binds to schema.posts (empty schema means "public").
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("posts: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	if !pgSchemaRe.MatchString(schema) {
		return nil, fmt.Errorf("posts: invalid schema identifier")
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{schema, "posts"}.Sanitize()}, nil
}

const postColumns = `slug, title, author, excerpt, tags, date, hero, content, created_at, updated_at`

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.Slug, &p.Title, &p.Author, &p.Excerpt, &p.Tags, &p.Date, &p.Hero, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PostgresStore) Create(ctx context.Context, p Post) (Post, error) {
	out, err := scanPost(s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table+` (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+postColumns,
		p.Slug, p.Title, p.Author, p.Excerpt, p.Tags, p.Date, p.Hero, p.Content, p.CreatedAt, p.UpdatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return Post{}, ErrConflict
		}
		return Post{}, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, slug string) (Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM `+s.table+` WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slug, title, author, excerpt, tags, date, hero, created_at, updated_at
		FROM `+s.table+`
		ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var p Summary
		err := row.Scan(&p.Slug, &p.Title, &p.Author, &p.Excerpt, &p.Tags, &p.Date, &p.Hero, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, slug string, p Post) (Post, error) {
	out, err := scanPost(s.pool.QueryRow(ctx, `
		UPDATE `+s.table+`
		   SET title = $2, author = $3, excerpt = $4, tags = $5, date = $6, hero = $7,
		       content = $8, updated_at = $9
		 WHERE slug = $1
		RETURNING `+postColumns,
		slug, p.Title, p.Author, p.Excerpt, p.Tags, p.Date, p.Hero, p.Content, p.UpdatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}
	return out, nil
}
