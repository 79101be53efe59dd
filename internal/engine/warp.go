package engine

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// Corner indexes WarpState.Corners.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

var cornerNames = [...]string{"top-left", "top-right", "bottom-left", "bottom-right"}

func (c Corner) String() string {
	if c < TopLeft || c > BottomRight {
		return "unknown"
	}
	return cornerNames[c]
}

// Angles are rotations in degrees about the X, Y and Z axes.
type Angles struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// WarpState is the perspective representation of a layer: four destination
// corners in layer-local display units. Angles is set when the corners were
// derived from a 3D rotation and cleared by any manual corner edit.
type WarpState struct {
	Corners [4]Point
	Angles  *Angles

	onAnchorDrag func(c Corner, local Point)

	cache        *image.NRGBA
	cacheOrigin  Point
	cacheDensity float64
	cacheSource  *image.NRGBA
	cacheValid   bool
}

// NewWarpState returns a warp whose corners match the w×h rectangle.
func NewWarpState(w, h float64) *WarpState {
	return &WarpState{Corners: RectCorners(w, h)}
}

// RectCorners returns the corners of the w×h rectangle in TL, TR, BL, BR order.
func RectCorners(w, h float64) [4]Point {
	return [4]Point{{0, 0}, {w, 0}, {0, h}, {w, h}}
}

// SetCorner moves one corner and drops any angle-derived state.
func (w *WarpState) SetCorner(c Corner, p Point) {
	w.Corners[c] = p
	w.Angles = nil
	w.Invalidate()
}

// SetAngles replaces all corners with ones projected from a.
func (w *WarpState) SetAngles(width, height float64, a Angles) {
	w.Corners = ProjectCorners(width, height, a)
	w.Angles = &a
	w.Invalidate()
}

// Invalidate drops the rendered cache.
func (w *WarpState) Invalidate() {
	w.cacheValid = false
	w.cache = nil
	w.cacheSource = nil
}

// IsRectangle reports whether the corners still match the w×h rectangle.
func (w *WarpState) IsRectangle(width, height float64) bool {
	const eps = 1e-6
	rc := RectCorners(width, height)
	for i := range rc {
		if w.Corners[i].Dist(rc[i]) > eps {
			return false
		}
	}
	return true
}

// Clone returns a copy without bindings or cache.
func (w *WarpState) Clone() *WarpState {
	out := &WarpState{Corners: w.Corners}
	if w.Angles != nil {
		a := *w.Angles
		out.Angles = &a
	}
	return out
}

// Bound reports whether anchor handlers are wired.
func (w *WarpState) Bound() bool { return w.onAnchorDrag != nil }

// cellSize returns the grid cell size used for rendering. Angle-derived
// warps always render as a single cell split into two triangles.
func (w *WarpState) cellSize(grid float64) float64 {
	if w.Angles != nil {
		return 0
	}
	return grid
}

// Render returns the warped bitmap rasterized at density device pixels per
// display unit, along with the local-space position of its top-left pixel.
// The result is cached until the corners or source change.
func (w *WarpState) Render(src *image.NRGBA, density, grid float64) (*image.NRGBA, Point) {
	if w.cacheValid && w.cacheSource == src && w.cacheDensity == density {
		return w.cache, w.cacheOrigin
	}

	bounds := BoundsOf(w.Corners[:]...)
	dev := Rect{
		X:      bounds.X * density,
		Y:      bounds.Y * density,
		Width:  bounds.Width * density,
		Height: bounds.Height * density,
	}.Pixels()
	dst := image.NewNRGBA(image.Rect(0, 0, max(1, dev.Dx()), max(1, dev.Dy())))

	toDst := Translate(-float64(dev.Min.X), -float64(dev.Min.Y)).Multiply(Scale(density, density))
	PaintQuad(dst, src, w.Corners, toDst, w.cellSize(grid))

	w.cache = dst
	w.cacheOrigin = Point{float64(dev.Min.X) / density, float64(dev.Min.Y) / density}
	w.cacheDensity = density
	w.cacheSource = src
	w.cacheValid = true
	return dst, w.cacheOrigin
}

// RotationMatrix returns Rx·Ry·Rz for the given angles. Applied to a column
// vector, the Z rotation happens first.
func RotationMatrix(a Angles) *mat.Dense {
	rx, ry, rz := a.X*math.Pi/180, a.Y*math.Pi/180, a.Z*math.Pi/180

	mx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(rx), -math.Sin(rx),
		0, math.Sin(rx), math.Cos(rx),
	})
	my := mat.NewDense(3, 3, []float64{
		math.Cos(ry), 0, math.Sin(ry),
		0, 1, 0,
		-math.Sin(ry), 0, math.Cos(ry),
	})
	mz := mat.NewDense(3, 3, []float64{
		math.Cos(rz), -math.Sin(rz), 0,
		math.Sin(rz), math.Cos(rz), 0,
		0, 0, 1,
	})

	var xy, xyz mat.Dense
	xy.Mul(mx, my)
	xyz.Mul(&xy, mz)
	return &xyz
}

// ProjectCorners rotates the corners of a w×h rectangle about its centre
// and projects them back onto the plane with focal length max(w,h) and
// camera distance 2·max(w,h). Corners are returned in TL, TR, BL, BR order.
func ProjectCorners(w, h float64, a Angles) [4]Point {
	rot := RotationMatrix(a)
	cx, cy := w/2, h/2
	f := math.Max(w, h)
	d := 2 * f

	var out [4]Point
	for i, c := range RectCorners(w, h) {
		v := mat.NewVecDense(3, []float64{c.X - cx, c.Y - cy, 0})
		var r mat.VecDense
		r.MulVec(rot, v)

		factor := 1.0
		if den := r.AtVec(2) + d; den > 0 {
			factor = f / den
		}
		out[i] = Point{r.AtVec(0)*factor + cx, r.AtVec(1)*factor + cy}
	}
	return out
}

// PaintQuad draws src over dst so that the source rectangle lands on quad
// (TL, TR, BL, BR, in layer-local units) mapped through toDst. The source is
// split into cells of cell×cell pixels; cell <= 0 uses a single cell. Each
// cell is drawn as two affine triangles split along its TL–BR diagonal.
// It returns the number of triangles skipped as degenerate.
func PaintQuad(dst xdraw.Image, src image.Image, quad [4]Point, toDst Matrix2D, cell float64) int {
	sb := src.Bounds()
	bw, bh := float64(sb.Dx()), float64(sb.Dy())
	if bw == 0 || bh == 0 {
		return 0
	}

	nx, ny := 1, 1
	if cell > 0 {
		nx = int(math.Ceil(bw / cell))
		ny = int(math.Ceil(bh / cell))
	}

	at := func(u, v float64) Point {
		top := Lerp(quad[TopLeft], quad[TopRight], u)
		bottom := Lerp(quad[BottomLeft], quad[BottomRight], u)
		return toDst.Apply(Lerp(top, bottom, v))
	}
	edge := func(i, n int, size float64) float64 {
		if cell <= 0 || i >= n {
			return float64(i) / float64(n) * size
		}
		return math.Min(float64(i)*cell, size)
	}

	skipped := 0
	for j := 0; j < ny; j++ {
		y0, y1 := edge(j, ny, bh), edge(j+1, ny, bh)
		for i := 0; i < nx; i++ {
			x0, x1 := edge(i, nx, bw), edge(i+1, nx, bw)

			s00 := Point{x0 + float64(sb.Min.X), y0 + float64(sb.Min.Y)}
			s10 := Point{x1 + float64(sb.Min.X), y0 + float64(sb.Min.Y)}
			s01 := Point{x0 + float64(sb.Min.X), y1 + float64(sb.Min.Y)}
			s11 := Point{x1 + float64(sb.Min.X), y1 + float64(sb.Min.Y)}

			d00 := at(x0/bw, y0/bh)
			d10 := at(x1/bw, y0/bh)
			d01 := at(x0/bw, y1/bh)
			d11 := at(x1/bw, y1/bh)

			if !paintTriangle(dst, src, [3]Point{s00, s10, s11}, [3]Point{d00, d10, d11}) {
				skipped++
			}
			if !paintTriangle(dst, src, [3]Point{s00, s11, s01}, [3]Point{d00, d11, d01}) {
				skipped++
			}
		}
	}
	return skipped
}

// seamDilation is how far, in device pixels, a triangle's clip is pushed out
// from its centroid so that neighbouring triangles overlap.
const seamDilation = 1.0

// paintTriangle maps the s triangle of src onto the d triangle of dst. It
// returns false when the mapping is singular.
func paintTriangle(dst xdraw.Image, src image.Image, s, d [3]Point) bool {
	m, err := TriangleAffine(s, d)
	if err != nil || math.Abs(m.Determinant()) < 1e-9 {
		return false
	}

	c := d[0].Add(d[1]).Add(d[2]).Mul(1.0 / 3)
	clip := make([]Point, 3)
	for i, p := range d {
		v := p.Sub(c)
		if l := math.Hypot(v.X, v.Y); l > 0 {
			p = p.Add(v.Mul(seamDilation / l))
		}
		clip[i] = p
	}

	area := BoundsOf(clip...).Pixels().Intersect(dst.Bounds())
	if area.Empty() {
		return true
	}
	mask := PolygonMask(area, clip)

	// Only the source pixels around the triangle can land inside the clip.
	sr := BoundsOf(s[:]...).Pixels().Inset(-2).Intersect(src.Bounds())
	xdraw.BiLinear.Transform(dst, m.Aff3(), src, sr, xdraw.Over, &xdraw.Options{
		DstMask: mask,
	})
	return true
}
