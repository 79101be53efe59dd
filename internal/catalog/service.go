package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/interiorcollage/collage/internal/db"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrInvalidQuery = errors.New("invalid query")
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Product is a catalog entry as listed to the editor. The image bytes are
// never part of a listing.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
	Color    string `json:"color"`
	Tags     string `json:"tags"`
}

// Query filters a product listing. Search matches name or tags, case
// insensitively.
type Query struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// Info summarises the backing database for diagnostics.
type Info struct {
	DatabaseURL     string    `json:"database_url"`
	TotalProducts   int       `json:"total_products"`
	Categories      []string  `json:"categories"`
	CategoriesCount int       `json:"categories_count"`
	SampleProducts  []Product `json:"sample_products"`
	Error           string    `json:"error,omitempty"`
}

// Store is the product persistence used by Service.
type Store interface {
	List(ctx context.Context, q Query) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	// Image returns the stored image bytes of a product and its image URL.
	Image(ctx context.Context, id int64) ([]byte, string, error)
	Insert(ctx context.Context, p Product, blob []byte) (int64, error)
}

type Service struct {
	store       Store
	databaseURL string
	log         *slog.Logger
}

// NewService wraps store. databaseURL is reported, redacted, by Info.
func NewService(store Store, databaseURL string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, databaseURL: databaseURL, log: log}
}

func (s *Service) List(ctx context.Context, q Query) ([]Product, error) {
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidQuery)
	}
	switch {
	case q.Limit < 0:
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	case q.Limit == 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	products, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	s.log.Debug("listed products", "search", q.Search, "category", q.Category, "count", len(products))
	return products, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []string{}
	}
	slices.Sort(cats)
	return cats, nil
}

// Image returns the stored bytes and the image URL of a product.
func (s *Service) Image(ctx context.Context, id int64) ([]byte, string, error) {
	return s.store.Image(ctx, id)
}

func (s *Service) Add(ctx context.Context, p Product, blob []byte) (*Product, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidQuery)
	}
	id, err := s.store.Insert(ctx, p, blob)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	p.ID = id
	return &p, nil
}

// Info reports the product count, categories and a few sample products.
// Database failures are reported inside the result.
func (s *Service) Info(ctx context.Context) Info {
	info := Info{DatabaseURL: db.Redact(s.databaseURL)}
	fail := func(err error) Info {
		s.log.Warn("db info failed", "error", err)
		info.Error = err.Error()
		return info
	}

	n, err := s.store.Count(ctx)
	if err != nil {
		return fail(err)
	}
	cats, err := s.Categories(ctx)
	if err != nil {
		return fail(err)
	}
	sample, err := s.store.List(ctx, Query{Limit: 5})
	if err != nil {
		return fail(err)
	}
	info.TotalProducts = n
	info.Categories = cats
	info.CategoriesCount = len(cats)
	info.SampleProducts = sample
	return info
}
