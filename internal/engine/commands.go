package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op        string    `json:"op"`                  // "image", "warp", "handles", "anchors", "selection", "eraser"
	LayerID   string    `json:"layerId,omitempty"`   // For hit correlation
	Transform []float64 `json:"transform,omitempty"` // [a, b, c, d, e, f] affine matrix
	Bitmap    string    `json:"bitmap,omitempty"`    // Bitmap reference, fetched separately
	Width     float64   `json:"width,omitempty"`     // Draw size in transform units
	Height    float64   `json:"height,omitempty"`
	Points    []Point   `json:"points,omitempty"` // Overlay geometry in canvas coordinates
	Closed    bool      `json:"closed,omitempty"`
	Radius    float64   `json:"radius,omitempty"`
}

// DrawCommands compiles the scene into painter's order (back to front),
// followed by the overlays.
func (ed *Editor) DrawCommands() []DrawCommand {
	s := ed.scene
	frame := make(map[string]*image.NRGBA, len(s.layers))
	var commands []DrawCommand

	for _, l := range s.layers {
		bmp := l.Displayed()
		if bmp == nil {
			continue
		}
		if l.ShowsWarp(s.State) {
			img, origin := l.Warp.Render(bmp, 1, ed.opts.WarpCellSize)
			ref := ed.store.Ref(img)
			frame[ref] = img
			commands = append(commands, DrawCommand{
				Op:        "warp",
				LayerID:   l.ID,
				Transform: l.Transform().Multiply(Translate(origin.X, origin.Y)).ToSlice(),
				Bitmap:    ref,
				Width:     float64(img.Rect.Dx()),
				Height:    float64(img.Rect.Dy()),
			})
			continue
		}
		ref := ed.store.Ref(bmp)
		frame[ref] = bmp
		commands = append(commands, DrawCommand{
			Op:        "image",
			LayerID:   l.ID,
			Transform: l.Transform().ToSlice(),
			Bitmap:    ref,
			Width:     l.Width,
			Height:    l.Height,
		})
	}

	if t := s.Layer(s.handles.Target); t != nil {
		m := t.Transform()
		commands = append(commands, DrawCommand{
			Op:      "handles",
			LayerID: t.ID,
			Points: []Point{
				m.Apply(Point{0, 0}),
				m.Apply(Point{t.Width, 0}),
				m.Apply(Point{t.Width, t.Height}),
				m.Apply(Point{0, t.Height}),
			},
			Closed: true,
		})
	}

	if t := s.Layer(s.State.WarpTargetID); t != nil && t.Warp != nil {
		m := t.Transform()
		pts := make([]Point, 4)
		for i, c := range t.Warp.Corners {
			pts[i] = m.Apply(c)
		}
		commands = append(commands, DrawCommand{
			Op:      "anchors",
			LayerID: t.ID,
			Points:  pts,
			Radius:  ed.opts.AnchorRadius,
		})
	}

	if pts, closed := ed.selection.outline(); len(pts) > 0 {
		commands = append(commands, DrawCommand{
			Op:      "selection",
			LayerID: ed.selection.current.target.ID,
			Points:  pts,
			Closed:  closed,
		})
	}

	if s.State.Mode == ModeEraser && ed.eraser.cursor != nil {
		commands = append(commands, DrawCommand{
			Op:     "eraser",
			Points: []Point{*ed.eraser.cursor},
			Radius: ed.eraser.Radius,
		})
	}

	ed.frame = frame
	ed.store.Forget(frame, ed.panel.byRef)
	return commands
}

// Render returns the draw commands as JSON.
func (ed *Editor) Render() string {
	result, _ := DrawCommandsToJSON(ed.DrawCommands())
	return result
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the ID of the topmost layer containing the point, or an
// empty string.
func HitTest(s *Scene, x, y float64) string {
	if s == nil {
		return ""
	}
	if l := s.TopmostAt(Point{x, y}); l != nil {
		return l.ID
	}
	return ""
}

// HitTest performs a hit test at the given canvas coordinates.
func (ed *Editor) HitTest(x, y float64) string { return HitTest(ed.scene, x, y) }

// Flatten composites every layer onto a transparent raster at ratio device
// pixels per canvas unit. Overlays are never drawn.
func (ed *Editor) Flatten(ratio float64) *image.NRGBA {
	s := ed.scene
	w := int(math.Ceil(s.Width * ratio))
	h := int(math.Ceil(s.Height * ratio))
	dst := image.NewNRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	toDev := Scale(ratio, ratio)

	for _, l := range s.layers {
		bmp := l.Displayed()
		if bmp == nil || l.Width <= 0 || l.Height <= 0 {
			continue
		}
		m := toDev.Multiply(l.Transform())
		if l.ShowsWarp(s.State) {
			if n := PaintQuad(dst, bmp, l.Warp.Corners, m, l.Warp.cellSize(ed.opts.WarpCellSize)); n > 0 {
				ed.log.Debug("skipped degenerate warp triangles", "layer", l.ID, "count", n)
			}
			continue
		}
		b := bmp.Bounds()
		m = m.Multiply(Scale(l.Width/float64(b.Dx()), l.Height/float64(b.Dy())))
		xdraw.BiLinear.Transform(dst, m.Aff3(), bmp, b, xdraw.Over, nil)
	}
	return dst
}

// StripOverlays detaches the transform handles and hides warp corners.
func (ed *Editor) StripOverlays() {
	ed.scene.handles.Target = ""
	ed.scene.State.WarpTargetID = ""
	ed.scene.changed()
}

// Export strips overlays, waits for pending bitmap edits and flattens the
// scene at the export pixel ratio.
func (ed *Editor) Export() *image.NRGBA {
	ed.StripOverlays()
	ed.Flush()
	return ed.Flatten(ed.opts.ExportPixelRatio)
}

// ExportPNG encodes Export as PNG.
func (ed *Editor) ExportPNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, ed.Export()); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return buf.Bytes(), nil
}
