package engine

import (
	"math"
)

// Eraser removes circular regions from layer bitmaps under the pointer.
type Eraser struct {
	ed *Editor

	// Radius is the brush radius in display units.
	Radius float64
	// MinRadius is the smallest radius, in bitmap pixels, ever applied.
	MinRadius float64

	drawing  bool
	recorded bool
	cursor   *Point
}

// Drawing reports whether a stroke is in progress.
func (e *Eraser) Drawing() bool { return e.drawing }

// SetRadius changes the brush radius. Non-positive values are ignored.
func (e *Eraser) SetRadius(r float64) {
	if r <= 0 {
		return
	}
	e.Radius = r
	e.ed.scene.Redraw()
}

// StartStroke begins a stroke and erases at p. History is snapshotted once
// per stroke, right before the first pixel changes, so a stroke that never
// touches a layer leaves no undo entry.
func (e *Eraser) StartStroke(p Point) {
	if e.drawing {
		e.eraseAt(p)
		return
	}
	e.drawing = true
	e.recorded = false
	e.eraseAt(p)
}

// ContinueStroke erases at p while a stroke is in progress.
func (e *Eraser) ContinueStroke(p Point) {
	if !e.drawing {
		return
	}
	e.eraseAt(p)
}

// EndStroke finishes the current stroke.
func (e *Eraser) EndStroke() { e.drawing = false }

// Hover moves the brush cursor overlay.
func (e *Eraser) Hover(p Point) {
	e.cursor = &p
	e.ed.scene.Redraw()
}

func (e *Eraser) eraseAt(p Point) {
	for _, l := range e.ed.scene.LayersAt(p) {
		e.Erase(l, p, e.Radius)
	}
}

// Erase clears a circle of radius display units centred on the canvas
// point p from l's bitmap. It is a no-op returning false when the layer is
// not loaded, p falls outside the bitmap, or rasterization fails.
func (e *Eraser) Erase(l *Layer, p Point, radius float64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.ed.log.Warn("erase failed", "layer", l.ID, "panic", r)
			ok = false
		}
	}()

	if !l.Loaded() {
		e.ed.log.Debug("erase skipped, bitmap not loaded", "layer", l.ID)
		return false
	}
	local, ok := l.ToLocal(p)
	if !ok {
		return false
	}
	if !(Rect{Width: l.Width, Height: l.Height}).Contains(local) {
		return false
	}

	src := l.Bitmap()
	sx, sy := l.PixelScale()
	px := Point{local.X * sx, local.Y * sy}
	b := src.Bounds()
	if px.X < 0 || px.Y < 0 || px.X >= float64(b.Dx()) || px.Y >= float64(b.Dy()) {
		return false
	}

	r := math.Max(e.MinRadius, radius*(sx+sy)/2)
	dst := CloneNRGBA(src)
	DestinationOut(dst, CircleMask(dst.Bounds(), px, r))
	if e.drawing && !e.recorded {
		e.ed.history.Snapshot()
		e.recorded = true
	}
	e.ed.commitBitmap(l, dst)
	return true
}
