package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		driver Driver
		target string
	}{
		{"sqlite:///./products.db", SQLite, "./products.db"},
		{"sqlite://./products.db", SQLite, "./products.db"},
		{"sqlite:///products.db", SQLite, "products.db"},
		{"sqlite:////var/lib/catalog.db", SQLite, "/var/lib/catalog.db"},
		{"sqlite:catalog.db", SQLite, "catalog.db"},
		{"./products.db", SQLite, "./products.db"},
		{"postgres://u:p@localhost:5432/catalog", Postgres, "postgres://u:p@localhost:5432/catalog"},
		{"postgresql://localhost/catalog", Postgres, "postgresql://localhost/catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, target, err := Parse(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if d != tt.driver || target != tt.target {
				t.Fatalf("Parse = %s %q, want %s %q", d, target, tt.driver, tt.target)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "  ", "sqlite:", "mysql://root@localhost/db"} {
		if _, _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded", in)
		}
	}
}

func TestRedact(t *testing.T) {
	got := Redact("postgres://shop:s3cret@db:5432/catalog?sslmode=disable")
	if got != "postgres://shop:xxxxx@db:5432/catalog?sslmode=disable" {
		t.Fatalf("Redact = %q", got)
	}
	if got := Redact("sqlite:///./products.db"); got != "sqlite:///./products.db" {
		t.Fatalf("Redact(sqlite) = %q", got)
	}
}

func TestOpenSQLiteAppliesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.db")
	ctx := context.Background()

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO product (name, category, image_url) VALUES (?, ?, ?)`,
		"Sofa", "seating", "https://img.test/sofa.jpg"); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count = %d", n)
	}

	// Reopening keeps existing rows.
	db.Close()
	db2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	if err := db2.QueryRowContext(ctx, `SELECT COUNT(*) FROM product`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count after reopen = %d", n)
	}
}
