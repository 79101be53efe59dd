package engine

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// kappa is the control-point distance for approximating a quarter circle
// with a cubic Bézier.
const kappa = 0.5522847498

// ToNRGBA returns img as an *image.NRGBA whose bounds start at the origin.
// An NRGBA that already satisfies this is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// CloneNRGBA returns a deep copy of src.
func CloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}

// CropNRGBA copies the r region of src into a new origin-based image.
func CropNRGBA(src *image.NRGBA, r image.Rectangle) *image.NRGBA {
	r = r.Intersect(src.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		so := src.PixOffset(r.Min.X, r.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()*4], src.Pix[so:so+r.Dx()*4])
	}
	return dst
}

// DestinationOut scales the alpha of dst by (1 - mask), keeping dst where
// the mask is transparent and clearing it where the mask is opaque.
// Mask pixels are addressed in dst coordinates.
func DestinationOut(dst *image.NRGBA, mask *image.Alpha) {
	r := dst.Bounds().Intersect(mask.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m := uint32(mask.Pix[mask.PixOffset(x, y)])
			if m == 0 {
				continue
			}
			i := dst.PixOffset(x, y) + 3
			dst.Pix[i] = uint8(uint32(dst.Pix[i]) * (255 - m) / 255)
		}
	}
}

// DestinationIn scales the alpha of dst by mask, keeping dst only where the
// mask is opaque. Pixels outside the mask bounds are cleared.
func DestinationIn(dst *image.NRGBA, mask *image.Alpha) {
	b := dst.Bounds()
	mb := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := dst.PixOffset(x, y) + 3
			if !(image.Point{x, y}).In(mb) {
				dst.Pix[i] = 0
				continue
			}
			m := uint32(mask.Pix[mask.PixOffset(x, y)])
			dst.Pix[i] = uint8(uint32(dst.Pix[i]) * m / 255)
		}
	}
}

// AlphaBounds returns the tight bounding box of the non-transparent pixels
// of mask, or an empty rectangle.
func AlphaBounds(mask *image.Alpha) image.Rectangle {
	b := mask.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):mask.PixOffset(b.Min.X, y)+b.Dx()]
		for i, a := range row {
			if a == 0 {
				continue
			}
			x := b.Min.X + i
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// PolygonMask rasterizes the closed polygon pts into an anti-aliased alpha
// mask covering bounds. Points are in the same coordinate space as bounds.
func PolygonMask(bounds image.Rectangle, pts []Point) *image.Alpha {
	mask := image.NewAlpha(bounds)
	if bounds.Empty() || len(pts) < 3 {
		return mask
	}
	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)
	z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
	z.Draw(mask, bounds, image.Opaque, image.Point{})
	return mask
}

// RectMask rasterizes the rectangle spanned by a and b.
func RectMask(bounds image.Rectangle, a, b Point) *image.Alpha {
	return PolygonMask(bounds, []Point{
		{a.X, a.Y}, {b.X, a.Y}, {b.X, b.Y}, {a.X, b.Y},
	})
}

// CircleMask rasterizes a filled circle. The mask only covers the part of
// bounds the circle can touch.
func CircleMask(bounds image.Rectangle, c Point, r float64) *image.Alpha {
	area := image.Rect(
		int(math.Floor(c.X-r))-1,
		int(math.Floor(c.Y-r))-1,
		int(math.Ceil(c.X+r))+1,
		int(math.Ceil(c.Y+r))+1,
	).Intersect(bounds)
	mask := image.NewAlpha(area)
	if area.Empty() || r <= 0 {
		return mask
	}

	z := vector.NewRasterizer(area.Dx(), area.Dy())
	cx := float32(c.X - float64(area.Min.X))
	cy := float32(c.Y - float64(area.Min.Y))
	rr := float32(r)
	k := float32(kappa) * rr

	z.MoveTo(cx+rr, cy)
	z.CubeTo(cx+rr, cy+k, cx+k, cy+rr, cx, cy+rr)
	z.CubeTo(cx-k, cy+rr, cx-rr, cy+k, cx-rr, cy)
	z.CubeTo(cx-rr, cy-k, cx-k, cy-rr, cx, cy-rr)
	z.CubeTo(cx+k, cy-rr, cx+rr, cy-k, cx+rr, cy)
	z.ClosePath()
	z.Draw(mask, area, image.Opaque, image.Point{})
	return mask
}

// Thumbnail scales src to fit inside w×h, centred on a transparent canvas.
func Thumbnail(src image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	if sb.Empty() {
		return dst
	}
	s := math.Min(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	tw := max(1, int(math.Round(float64(sb.Dx())*s)))
	th := max(1, int(math.Round(float64(sb.Dy())*s)))
	ox := (w - tw) / 2
	oy := (h - th) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(ox, oy, ox+tw, oy+th), src, sb, xdraw.Over, nil)
	return dst
}

// Solid returns a w×h bitmap filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}
