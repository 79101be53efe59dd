package engine

import (
	"image"
)

// SelectionKind is the shape of a region selection.
type SelectionKind int

const (
	SelectRect SelectionKind = iota
	SelectLasso
)

type regionSelection struct {
	kind   SelectionKind
	target *Layer
	// points are in the target's local display units.
	points []Point
	// mask is in the target's bitmap pixel space, nil until finalized.
	mask *image.Alpha
}

// RegionSelector builds rectangle and lasso selections on a single layer
// and manages the clipboard bitmap.
type RegionSelector struct {
	ed        *Editor
	current   *regionSelection
	selecting bool
	clipboard *image.NRGBA
}

// Start begins a selection on the topmost layer under p. Starting on empty
// space clears any selection.
func (s *RegionSelector) Start(p Point, kind SelectionKind) {
	target := s.ed.scene.TopmostAt(p)
	if target == nil {
		s.Clear()
		return
	}
	local, ok := target.ToLocal(p)
	if !ok {
		s.Clear()
		return
	}
	s.current = &regionSelection{kind: kind, target: target, points: []Point{local}}
	s.selecting = true
	s.ed.scene.Redraw()
}

// Continue extends the selection in progress.
func (s *RegionSelector) Continue(p Point) {
	if !s.selecting || s.current == nil {
		return
	}
	if !s.current.target.Attached() {
		s.Clear()
		return
	}
	local, ok := s.current.target.ToLocal(p)
	if !ok {
		return
	}
	switch s.current.kind {
	case SelectRect:
		if len(s.current.points) == 1 {
			s.current.points = append(s.current.points, local)
		} else {
			s.current.points[1] = local
		}
	case SelectLasso:
		s.current.points = append(s.current.points, local)
	}
	s.ed.scene.Redraw()
}

// Stop ends the gesture and builds the mask. A gesture that never moved
// clears the selection.
func (s *RegionSelector) Stop() {
	if !s.selecting {
		return
	}
	s.selecting = false
	if s.current == nil || len(s.current.points) < 2 {
		s.Clear()
		return
	}
	s.finalize()
}

func (s *RegionSelector) finalize() {
	sel := s.current
	if !sel.target.Loaded() {
		s.ed.log.Warn("selection target not loaded", "layer", sel.target.ID)
		return
	}

	px := make([]Point, len(sel.points))
	for i, p := range sel.points {
		px[i] = sel.target.LocalToPixel(p)
	}
	bounds := sel.target.Bitmap().Bounds()

	switch sel.kind {
	case SelectRect:
		sel.mask = RectMask(bounds, px[0], px[1])
	case SelectLasso:
		if len(px) < 3 {
			s.Clear()
			return
		}
		sel.mask = PolygonMask(bounds, px)
	}
	s.ed.scene.Redraw()
}

// Clear discards the in-progress or finished selection. The clipboard is
// kept.
func (s *RegionSelector) Clear() {
	if s.current == nil && !s.selecting {
		return
	}
	s.current = nil
	s.selecting = false
	s.ed.scene.Redraw()
}

// Active reports whether a selection exists or is being drawn.
func (s *RegionSelector) Active() bool { return s.current != nil }

// HasMask reports whether a finished selection is ready for copy or delete.
func (s *RegionSelector) HasMask() bool {
	return s.current != nil && s.current.mask != nil
}

// Clipboard returns the copied bitmap, or nil.
func (s *RegionSelector) Clipboard() *image.NRGBA { return s.clipboard }

// Copy places the selected pixels, cropped to their alpha bounding box, on
// the clipboard. An empty selection leaves the clipboard unchanged.
func (s *RegionSelector) Copy() bool {
	if !s.HasMask() {
		s.ed.log.Debug("copy ignored, no selection")
		return false
	}
	sel := s.current
	if !sel.target.Attached() {
		s.Clear()
		return false
	}

	bbox := AlphaBounds(sel.mask)
	if bbox.Empty() {
		s.ed.log.Debug("copy ignored, selection is empty")
		return false
	}
	src := sel.target.Bitmap()
	out := CropNRGBA(src, bbox)
	DestinationIn(out, shiftAlpha(sel.mask, bbox))
	s.clipboard = out
	s.ed.log.Debug("selection copied", "width", bbox.Dx(), "height", bbox.Dy())
	return true
}

// Delete erases the selected pixels from the target layer and clears the
// selection.
func (s *RegionSelector) Delete() bool {
	if !s.HasMask() {
		s.ed.log.Debug("delete ignored, no selection")
		return false
	}
	sel := s.current
	if !sel.target.Attached() {
		s.Clear()
		return false
	}

	s.ed.history.Snapshot()
	dst := CloneNRGBA(sel.target.Bitmap())
	DestinationOut(dst, sel.mask)
	s.ed.commitBitmap(sel.target, dst)
	s.Clear()
	return true
}

// Paste adds the clipboard as a new layer centred on the canvas, scaled
// down to fit the paste budget.
func (s *RegionSelector) Paste() *Layer {
	if s.clipboard == nil {
		s.ed.log.Debug("paste ignored, clipboard empty")
		return nil
	}
	ed := s.ed
	ed.history.Snapshot()

	b := s.clipboard.Bounds()
	budget := ed.opts.PasteBudget
	w, h := fitSize(float64(b.Dx()), float64(b.Dy()), budget, budget, 1)
	l := ed.factory.CreateLayer(s.clipboard,
		ed.scene.Width/2-w/2, ed.scene.Height/2-h/2, w, h, "Selection (copy)")
	ed.addLayer(l)
	ed.scene.SelectOnly(l)
	return l
}

// outline returns the selection outline in canvas coordinates.
func (s *RegionSelector) outline() (pts []Point, closed bool) {
	sel := s.current
	if sel == nil || !sel.target.Attached() {
		return nil, false
	}
	local := sel.points
	if sel.kind == SelectRect && len(local) == 2 {
		a, b := local[0], local[1]
		local = []Point{a, {b.X, a.Y}, b, {a.X, b.Y}}
		closed = true
	} else {
		closed = !s.selecting
	}
	m := sel.target.Transform()
	pts = make([]Point, len(local))
	for i, p := range local {
		pts[i] = m.Apply(p)
	}
	return pts, closed
}

// shiftAlpha returns the r region of mask re-based at the origin.
func shiftAlpha(mask *image.Alpha, r image.Rectangle) *image.Alpha {
	sub := mask.SubImage(r).(*image.Alpha)
	return &image.Alpha{
		Pix:    sub.Pix,
		Stride: sub.Stride,
		Rect:   image.Rect(0, 0, r.Dx(), r.Dy()),
	}
}
