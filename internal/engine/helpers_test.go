package engine

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"testing"
)

var opaque = color.NRGBA{R: 200, G: 120, B: 40, A: 255}

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	return NewEditor(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// addSolid adds a w×h opaque image and returns its layer.
func addSolid(t *testing.T, ed *Editor, w, h int, name string) *Layer {
	t.Helper()
	l, err := ed.AddImage(Solid(w, h, opaque), name)
	if err != nil {
		t.Fatalf("AddImage(%s): %v", name, err)
	}
	return l
}

// center returns the canvas point at the middle of l.
func center(l *Layer) Point {
	return l.Transform().Apply(Point{l.Width / 2, l.Height / 2})
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.NRGBAAt(x, y).A
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func nearPoint(a, b Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }
