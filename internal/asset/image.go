package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

const maxImageSize = 25 << 20

var (
	ErrBadURL   = errors.New("url must be absolute http or https")
	ErrUpstream = errors.New("upstream fetch failed")
	ErrNoImage  = errors.New("image not found")
)

// SniffType returns the image content type from the leading magic bytes,
// defaulting to image/jpeg.
func SniffType(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte{0xff, 0xd8, 0xff}):
		return "image/jpeg"
	case bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(b, []byte("GIF87a")), bytes.HasPrefix(b, []byte("GIF89a")):
		return "image/gif"
	case len(b) >= 12 && bytes.HasPrefix(b, []byte("RIFF")) && bytes.Contains(b[:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Decode decodes JPEG, PNG, GIF or WEBP bytes.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Fetcher downloads remote images with a bounded timeout. Redirects are
// followed.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the body and content type of rawURL. A missing content
// type is reported as image/jpeg.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", ErrBadURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return body, ct, nil
}

// Source looks up the stored bytes and image URL of a catalog product.
type Source interface {
	Image(ctx context.Context, id int64) ([]byte, string, error)
}

// Loader resolves product images: stored bytes first, then the product's
// image URL.
type Loader struct {
	source  Source
	fetcher *Fetcher
}

func NewLoader(source Source, fetcher *Fetcher) *Loader {
	return &Loader{source: source, fetcher: fetcher}
}

// Bytes returns the raw image of a product and its content type.
func (l *Loader) Bytes(ctx context.Context, id int64) ([]byte, string, error) {
	blob, imageURL, err := l.source.Image(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if len(blob) > 0 {
		return blob, SniffType(blob), nil
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, "", ErrNoImage
	}
	return l.fetcher.Fetch(ctx, imageURL)
}

// Product decodes the image of a product.
func (l *Loader) Product(ctx context.Context, id int64) (image.Image, error) {
	data, _, err := l.Bytes(ctx, id)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return img, nil
}

// URL downloads and decodes an image from rawURL.
func (l *Loader) URL(ctx context.Context, rawURL string) (image.Image, error) {
	data, _, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	return img, err
}
