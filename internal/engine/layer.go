package engine

import (
	"fmt"
	"image"
	"math"

	"github.com/interiorcollage/collage/internal/typeid"
)

// Layer is one image on the canvas. Its display transform places the
// Width×Height image rectangle (origin top-left) at X,Y with Rotation and
// scale applied. The bitmap may have a different pixel size than the
// display rectangle.
type Layer struct {
	ID        string
	Name      string
	X, Y      float64
	Width     float64
	Height    float64
	Rotation  float64
	ScaleX    float64
	ScaleY    float64
	Draggable bool

	// Warp is the perspective representation, created on first use.
	Warp *WarpState

	bitmap       *image.NRGBA
	encoded      []byte
	pending      *image.NRGBA
	editGen      uint64
	committedGen uint64

	scene         *Scene
	dragSuspended bool
	handlers      *layerHandlers
}

type layerHandlers struct {
	click     func(l *Layer, p Point)
	dragStart func(l *Layer)
	dragMove  func(l *Layer, delta Point)
	dragEnd   func(l *Layer)
}

// DisplayName returns the layer name, or a positional default.
func (l *Layer) DisplayName(index int) string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("Layer %d", index+1)
}

// Transform returns the local-to-canvas matrix.
func (l *Layer) Transform() Matrix2D {
	return FromTransform(l.X, l.Y, l.ScaleX, l.ScaleY, l.Rotation)
}

// ToLocal maps a canvas point into local display units.
func (l *Layer) ToLocal(p Point) (Point, bool) {
	inv, ok := l.Transform().Inverse()
	if !ok {
		return Point{}, false
	}
	return inv.Apply(p), true
}

// Contains reports whether p lies on the layer's display rectangle.
func (l *Layer) Contains(p Point) bool {
	local, ok := l.ToLocal(p)
	if !ok {
		return false
	}
	return Rect{Width: l.Width, Height: l.Height}.Contains(local)
}

// Bounds returns the canvas-space bounding box of the display rectangle.
func (l *Layer) Bounds() Rect {
	return l.Transform().TransformRect(Rect{Width: l.Width, Height: l.Height})
}

// Loaded reports whether the layer has a bitmap to edit.
func (l *Layer) Loaded() bool { return l.bitmap != nil || l.pending != nil }

// Bitmap returns the most recently issued bitmap, which may not have been
// committed to the display yet.
func (l *Layer) Bitmap() *image.NRGBA {
	if l.pending != nil {
		return l.pending
	}
	return l.bitmap
}

// Displayed returns the committed bitmap the layer currently shows.
func (l *Layer) Displayed() *image.NRGBA { return l.bitmap }

// PixelScale returns bitmap pixels per display unit on each axis.
func (l *Layer) PixelScale() (sx, sy float64) {
	bmp := l.Bitmap()
	if bmp == nil || l.Width == 0 || l.Height == 0 {
		return 1, 1
	}
	return float64(bmp.Rect.Dx()) / l.Width, float64(bmp.Rect.Dy()) / l.Height
}

// LocalToPixel converts local display units to bitmap pixels.
func (l *Layer) LocalToPixel(p Point) Point {
	sx, sy := l.PixelScale()
	return Point{p.X * sx, p.Y * sy}
}

// CanDrag reports whether the layer currently follows pointer drags.
func (l *Layer) CanDrag() bool { return l.Draggable && !l.dragSuspended }

// Attached reports whether the layer belongs to a scene.
func (l *Layer) Attached() bool { return l.scene != nil }

// Bound reports whether interaction handlers are wired.
func (l *Layer) Bound() bool { return l.handlers != nil }

// ShowsWarp reports whether the warp representation is visible: the layer
// has been warped, or it is the active warp target.
func (l *Layer) ShowsWarp(state EditorState) bool {
	if l.Warp == nil {
		return false
	}
	return state.WarpTargetID == l.ID || !l.Warp.IsRectangle(l.Width, l.Height)
}

// Encoded returns the codec bytes of the committed bitmap, encoding on
// demand when no pipeline result is cached.
func (l *Layer) Encoded(codec BitmapCodec) ([]byte, error) {
	if l.encoded != nil {
		return l.encoded, nil
	}
	if l.bitmap == nil {
		return nil, fmt.Errorf("layer %s: bitmap not loaded", l.ID)
	}
	data, err := codec.Encode(l.bitmap)
	if err != nil {
		return nil, fmt.Errorf("encode layer %s: %w", l.ID, err)
	}
	l.encoded = data
	return data, nil
}

// Factory builds layers and wires their interaction handlers.
type Factory struct {
	ed *Editor
}

// CreateLayer builds a bound layer displaying bmp in the w×h rectangle at
// x,y. A nil bitmap yields a layer that is not loaded.
func (f *Factory) CreateLayer(bmp *image.NRGBA, x, y, w, h float64, name string) *Layer {
	l := &Layer{
		ID:        typeid.NewLayerID(),
		Name:      name,
		X:         x,
		Y:         y,
		Width:     w,
		Height:    h,
		ScaleX:    1,
		ScaleY:    1,
		Draggable: true,
		bitmap:    bmp,
	}
	f.Bind(l)
	return l
}

// Bind wires click and drag routing for l, and its warp anchors if any.
func (f *Factory) Bind(l *Layer) {
	ed := f.ed
	l.handlers = &layerHandlers{
		click: func(l *Layer, p Point) {
			switch ed.scene.State.Mode {
			case ModeEraser:
				ed.eraser.StartStroke(p)
			case ModeWarp:
				ed.showAnchors(l)
			default:
				ed.scene.SelectOnly(l)
			}
		},
		dragStart: func(l *Layer) {
			ed.drag.wasSelected = ed.scene.handles.Target == l.ID
			if ed.drag.wasSelected {
				ed.scene.handles.Target = ""
			}
		},
		dragMove: func(l *Layer, delta Point) {
			l.X += delta.X
			l.Y += delta.Y
			ed.scene.Redraw()
		},
		dragEnd: func(l *Layer) {
			if ed.drag.wasSelected && l.Attached() && ed.scene.State.SelectedID == l.ID &&
				ed.scene.State.Mode == ModeNormal {
				ed.scene.handles.Target = l.ID
			}
			ed.drag.wasSelected = false
			ed.scene.changed()
		},
	}
	if l.Warp != nil {
		f.bindAnchors(l)
	}
}

// bindAnchors wires corner-handle drags of l's warp.
func (f *Factory) bindAnchors(l *Layer) {
	ed := f.ed
	l.Warp.onAnchorDrag = func(c Corner, local Point) {
		l.Warp.SetCorner(c, local)
		ed.scene.Redraw()
	}
}

// ensureWarp creates the warp representation of l if it does not exist.
func (f *Factory) ensureWarp(l *Layer) *WarpState {
	if l.Warp == nil {
		l.Warp = NewWarpState(l.Width, l.Height)
		f.bindAnchors(l)
	}
	return l.Warp
}

// fitSize returns w×h scaled by the largest factor no greater than limit
// that fits inside maxW×maxH.
func fitSize(w, h, maxW, maxH, limit float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	s := math.Min(limit, math.Min(maxW/w, maxH/h))
	return w * s, h * s
}
