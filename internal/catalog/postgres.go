package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore serves the catalog from Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) List(ctx context.Context, q Query) ([]Product, error) {
	pattern := ""
	if q.Search != "" {
		pattern = "%" + escapeLike(q.Search) + "%"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM product
		WHERE ($1 = '' OR name ILIKE $1 OR tags ILIKE $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY id
		LIMIT $3 OFFSET $4`,
		pattern, q.Category, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Product])
}

func (s *PGStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT category FROM product WHERE category IS NOT NULL AND category <> ''`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product`).Scan(&n)
	return n, err
}

func (s *PGStore) Image(ctx context.Context, id int64) ([]byte, string, error) {
	var blob []byte
	var url string
	err := s.pool.QueryRow(ctx,
		`SELECT image_blob, image_url FROM product WHERE id = $1`, id).Scan(&blob, &url)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get image %d: %w", id, err)
	}
	return blob, url, nil
}

func (s *PGStore) Insert(ctx context.Context, p Product, blob []byte) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO product (name, category, image_url, image_blob, color, tags)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, nullIfEmpty(p.Category), p.ImageURL, blob, nullIfEmpty(p.Color), nullIfEmpty(p.Tags),
	).Scan(&id)
	return id, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
