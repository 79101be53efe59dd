package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

const productColumns = `id, name, COALESCE(category, ''), image_url, COALESCE(color, ''), COALESCE(tags, '')`

// SQLiteStore serves the catalog from a SQLite database. SQLite's LIKE only
// folds ASCII, so searches are matched in Go with Unicode case folding.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) List(ctx context.Context, q Query) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM product`
	var args []any
	if q.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, q.Category)
	}
	query += ` ORDER BY id`
	if q.Search == "" {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	match := matcher(q.Search)
	skip := q.Offset
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.ImageURL, &p.Color, &p.Tags); err != nil {
			return nil, err
		}
		if q.Search != "" {
			if !match(p) {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
		}
		products = append(products, p)
		if len(products) == q.Limit {
			break
		}
	}
	return products, rows.Err()
}

func (s *SQLiteStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM product WHERE category IS NOT NULL AND category <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Image(ctx context.Context, id int64) ([]byte, string, error) {
	var blob []byte
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT image_blob, image_url FROM product WHERE id = ?`, id).Scan(&blob, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get image %d: %w", id, err)
	}
	return blob, url, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, p Product, blob []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO product (name, category, image_url, image_blob, color, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, nullIfEmpty(p.Category), p.ImageURL, blob, nullIfEmpty(p.Color), nullIfEmpty(p.Tags))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// matcher returns a predicate reporting whether a product's name or tags
// contain search under Unicode case folding.
func matcher(search string) func(Product) bool {
	fold := cases.Fold()
	needle := fold.String(search)
	return func(p Product) bool {
		return strings.Contains(fold.String(p.Name), needle) ||
			strings.Contains(fold.String(p.Tags), needle)
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
