package engine

import (
	"github.com/interiorcollage/collage/internal/document"
)

// buildScene rebuilds a live scene from a snapshot. Layers are created
// through the factory so their handlers are wired exactly as for new
// layers; warp anchors are rebound for layers that carry a warp.
func buildScene(ed *Editor, snap *document.Snapshot) *Scene {
	scene := NewScene(snap.Canvas.Width, snap.Canvas.Height, ed.log)

	for _, dl := range snap.Layers {
		l := buildLayer(ed, dl)
		l.scene = scene
		scene.layers = append(scene.layers, l)
	}
	if sel := scene.Layer(snap.Selected); sel != nil {
		scene.State.SelectedID = sel.ID
	}
	return scene
}

func buildLayer(ed *Editor, dl document.Layer) *Layer {
	bmp, ok := ed.store.Get(dl.Bitmap)
	if !ok && dl.Bitmap != "" {
		ed.log.Warn("snapshot bitmap missing", "layer", dl.ID, "bitmap", dl.Bitmap)
	}

	t := dl.Transform
	l := ed.factory.CreateLayer(bmp, t.X, t.Y, dl.Width, dl.Height, dl.Name)
	l.ID = dl.ID
	l.Rotation = t.R
	l.ScaleX = t.SX
	l.ScaleY = t.SY
	l.Draggable = dl.Draggable

	if dl.Warp != nil {
		w := &WarpState{}
		for i, c := range dl.Warp.Corners {
			w.Corners[i] = Point{X: c.X, Y: c.Y}
		}
		if a := dl.Warp.Angles; a != nil {
			w.Angles = &Angles{X: a.X, Y: a.Y, Z: a.Z}
		}
		l.Warp = w
		ed.factory.bindAnchors(l)
	}
	return l
}
