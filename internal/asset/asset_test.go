package asset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/interiorcollage/collage/internal/catalog"
)

type fakeSource map[int64]struct {
	blob []byte
	url  string
}

func (f fakeSource) Image(_ context.Context, id int64) ([]byte, string, error) {
	p, ok := f[id]
	if !ok {
		return nil, "", catalog.ErrNotFound
	}
	return p.blob, p.url, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSniffType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		{"png", []byte("\x89PNG\r\n\x1a\n...."), "image/png"},
		{"gif87", []byte("GIF87a..."), "image/gif"},
		{"gif89", []byte("GIF89a..."), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"riff not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "image/jpeg"},
		{"unknown", []byte("hello"), "image/jpeg"},
		{"empty", nil, "image/jpeg"},
	}
	for _, tt := range tests {
		if got := SniffType(tt.data); got != tt.want {
			t.Errorf("%s: SniffType = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	img, format, err := Decode(pngBytes(t, 7, 3))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || img.Bounds().Dx() != 7 || img.Bounds().Dy() != 3 {
		t.Fatalf("decoded %s %v", format, img.Bounds())
	}
	if _, _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("garbage decoded")
	}
}

func TestLoaderPrefersStoredBytes(t *testing.T) {
	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes(t, 4, 4))
	}))
	defer upstream.Close()

	src := fakeSource{
		1: {blob: pngBytes(t, 2, 2), url: upstream.URL},
		2: {url: upstream.URL + "/chair.png"},
		3: {},
	}
	l := NewLoader(src, NewFetcher(time.Second))
	ctx := context.Background()

	img, err := l.Product(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 2 || hits != 0 {
		t.Fatalf("stored bytes not used: %v, %d fetches", img.Bounds(), hits)
	}

	img, err = l.Product(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 4 || hits != 1 {
		t.Fatalf("url fallback not used: %v, %d fetches", img.Bounds(), hits)
	}

	if _, err := l.Product(ctx, 3); !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
	if _, err := l.Product(ctx, 4); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestImageHandler(t *testing.T) {
	src := fakeSource{
		1: {blob: []byte("GIF89a-data")},
		2: {},
	}
	fetcher := NewFetcher(time.Second)
	r := mux.NewRouter()
	r.HandleFunc("/api/image/{id}", NewHandler(NewLoader(src, fetcher), fetcher).Image)

	tests := []struct {
		path   string
		status int
		ct     string
	}{
		{"/api/image/1", http.StatusOK, "image/gif"},
		{"/api/image/2", http.StatusNotFound, "application/json"},
		{"/api/image/9", http.StatusNotFound, "application/json"},
		{"/api/image/abc", http.StatusBadRequest, "application/json"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.status || rec.Header().Get("Content-Type") != tt.ct {
			t.Errorf("%s: %d %q, want %d %q", tt.path, rec.Code, rec.Header().Get("Content-Type"), tt.status, tt.ct)
		}
	}
}

func TestProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/new", http.StatusFound)
		case "/new":
			w.Header().Set("Content-Type", "image/webp")
			w.Write([]byte("RIFF0000WEBP"))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			w.Write([]byte{0xff, 0xd8, 0xff})
		}
	}))
	defer upstream.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	fetcher := NewFetcher(time.Second)
	h := NewHandler(NewLoader(fakeSource{}, fetcher), fetcher)

	tests := []struct {
		name   string
		target string
		status int
		ct     string
	}{
		{"follows redirects", upstream.URL + "/old", http.StatusOK, "image/webp"},
		{"default type", upstream.URL + "/untyped", http.StatusOK, "image/jpeg"},
		{"missing url", "", http.StatusBadRequest, "application/json"},
		{"bad scheme", "file:///etc/passwd", http.StatusBadRequest, "application/json"},
		{"unreachable", deadURL + "/x", http.StatusBadGateway, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/proxy", nil)
			q := req.URL.Query()
			q.Set("url", tt.target)
			req.URL.RawQuery = q.Encode()

			rec := httptest.NewRecorder()
			h.Proxy(rec, req)
			if rec.Code != tt.status || rec.Header().Get("Content-Type") != tt.ct {
				t.Fatalf("%d %q, want %d %q", rec.Code, rec.Header().Get("Content-Type"), tt.status, tt.ct)
			}
		})
	}
}
