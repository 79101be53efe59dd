package engine

import (
	"image"
	"image/color"
	"testing"
)

func TestToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 12))
	src.Set(10, 10, color.RGBA{R: 255, A: 255})

	got := ToNRGBA(src)
	if got.Rect != image.Rect(0, 0, 4, 2) {
		t.Fatalf("bounds = %v", got.Rect)
	}
	if c := got.NRGBAAt(0, 0); c.R != 255 || c.A != 255 {
		t.Fatalf("pixel = %v", c)
	}

	n := Solid(3, 3, opaque)
	if ToNRGBA(n) != n {
		t.Fatal("origin-based NRGBA should be returned as is")
	}
}

func TestCropNRGBA(t *testing.T) {
	src := Solid(10, 10, opaque)
	src.SetNRGBA(4, 5, color.NRGBA{A: 10})

	got := CropNRGBA(src, image.Rect(3, 3, 20, 7))
	if got.Rect != image.Rect(0, 0, 7, 4) {
		t.Fatalf("bounds = %v", got.Rect)
	}
	if a := alphaAt(got, 1, 2); a != 10 {
		t.Fatalf("alpha = %d, want 10", a)
	}
}

func TestDestinationOutAndIn(t *testing.T) {
	mask := image.NewAlpha(image.Rect(2, 2, 4, 4))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	mask.SetAlpha(3, 3, color.Alpha{A: 0})

	out := Solid(6, 6, opaque)
	DestinationOut(out, mask)
	if a := alphaAt(out, 2, 2); a != 0 {
		t.Fatalf("out: masked alpha = %d", a)
	}
	if a := alphaAt(out, 3, 3); a != 255 {
		t.Fatalf("out: transparent mask pixel alpha = %d", a)
	}
	if a := alphaAt(out, 0, 0); a != 255 {
		t.Fatalf("out: outside mask alpha = %d", a)
	}

	in := Solid(6, 6, opaque)
	DestinationIn(in, mask)
	if a := alphaAt(in, 2, 2); a != 255 {
		t.Fatalf("in: masked alpha = %d", a)
	}
	if a := alphaAt(in, 3, 3); a != 0 {
		t.Fatalf("in: transparent mask pixel alpha = %d", a)
	}
	if a := alphaAt(in, 0, 0); a != 0 {
		t.Fatalf("in: outside mask alpha = %d", a)
	}
}

func TestAlphaBounds(t *testing.T) {
	mask := image.NewAlpha(image.Rect(0, 0, 20, 20))
	if b := AlphaBounds(mask); !b.Empty() {
		t.Fatalf("empty mask bounds = %v", b)
	}
	mask.SetAlpha(4, 7, color.Alpha{A: 1})
	mask.SetAlpha(11, 9, color.Alpha{A: 255})
	if b := AlphaBounds(mask); b != image.Rect(4, 7, 12, 10) {
		t.Fatalf("bounds = %v", b)
	}
}

func TestPolygonMask(t *testing.T) {
	bounds := image.Rect(0, 0, 40, 40)
	m := RectMask(bounds, Point{10, 10}, Point{30, 20})
	if b := AlphaBounds(m); b != image.Rect(10, 10, 30, 20) {
		t.Fatalf("rect mask bounds = %v", b)
	}
	if a := m.AlphaAt(20, 15).A; a != 255 {
		t.Fatalf("inside alpha = %d", a)
	}

	tri := PolygonMask(bounds, []Point{{0, 0}, {40, 0}, {0, 40}})
	if tri.AlphaAt(5, 5).A != 255 || tri.AlphaAt(35, 35).A != 0 {
		t.Fatal("triangle mask covers the wrong half")
	}

	if b := AlphaBounds(PolygonMask(bounds, []Point{{0, 0}, {10, 10}})); !b.Empty() {
		t.Fatal("two-point polygon produced coverage")
	}
}

func TestCircleMask(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	m := CircleMask(bounds, Point{50, 50}, 10)
	if !m.Rect.In(image.Rect(38, 38, 62, 62)) {
		t.Fatalf("mask area = %v", m.Rect)
	}
	if a := m.AlphaAt(50, 50).A; a != 255 {
		t.Fatalf("centre alpha = %d", a)
	}
	if a := m.AlphaAt(50, 41).A; a != 255 {
		t.Fatalf("inner edge alpha = %d", a)
	}
	if a := m.AlphaAt(58, 58).A; a != 0 {
		t.Fatalf("outside corner alpha = %d", a)
	}

	clipped := CircleMask(bounds, Point{0, 0}, 10)
	if clipped.Rect.Min != (image.Point{}) {
		t.Fatalf("clipped area = %v", clipped.Rect)
	}
	if m := CircleMask(bounds, Point{500, 500}, 10); !m.Rect.Empty() {
		t.Fatal("circle outside bounds produced a mask")
	}
}

func TestThumbnailLetterboxes(t *testing.T) {
	th := Thumbnail(Solid(100, 100, opaque), 200, 60)
	if th.Rect.Dx() != 200 || th.Rect.Dy() != 60 {
		t.Fatalf("size = %v", th.Rect.Size())
	}
	if a := alphaAt(th, 100, 30); a < 250 {
		t.Fatalf("centre alpha = %d", a)
	}
	if a := alphaAt(th, 10, 30); a != 0 {
		t.Fatalf("letterbox alpha = %d", a)
	}
}
