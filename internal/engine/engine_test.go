package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"testing"
)

func TestAddImageFitsAndCentres(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantX float64
		wantY float64
		wantW float64
		wantH float64
	}{
		{"small keeps size", 100, 100, 550, 350, 100, 100},
		{"large is fitted", 1000, 800, 300, 160, 600, 480},
		{"wide is fitted", 1440, 100, 240, 375, 720, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := newTestEditor(t)
			l := addSolid(t, ed, tt.w, tt.h, "img")
			if !near(l.X, tt.wantX) || !near(l.Y, tt.wantY) {
				t.Errorf("position = %v,%v, want %v,%v", l.X, l.Y, tt.wantX, tt.wantY)
			}
			if !near(l.Width, tt.wantW) || !near(l.Height, tt.wantH) {
				t.Errorf("size = %vx%v, want %vx%v", l.Width, l.Height, tt.wantW, tt.wantH)
			}
			if ed.State().SelectedID != l.ID || ed.Scene().Handles().Target != l.ID {
				t.Error("added layer not selected with handles")
			}
		})
	}
}

func TestAddImageRefusedWhileErasing(t *testing.T) {
	ed := newTestEditor(t)
	ed.ToggleEraser()
	_, err := ed.AddImage(Solid(10, 10, opaque), "x")
	if !errors.Is(err, ErrEraserActive) {
		t.Fatalf("err = %v, want ErrEraserActive", err)
	}
	if ed.Scene().Len() != 0 {
		t.Fatal("layer added in eraser mode")
	}
}

func TestStageClickClearsSelection(t *testing.T) {
	ed := newTestEditor(t)
	addSolid(t, ed, 100, 100, "chair")

	ed.PointerDown(5, 5)
	ed.PointerUp(5, 5)
	if ed.State().SelectedID != "" || ed.Scene().Handles().Target != "" {
		t.Fatal("selection survived a click on the empty stage")
	}
}

func TestDragMovesLayerAndReattachesHandles(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "chair")
	c := center(l)

	ed.PointerDown(c.X, c.Y)
	ed.PointerMove(c.X+10, c.Y)
	if ed.Scene().Handles().Target != "" {
		t.Fatal("handles stay attached during drag")
	}
	ed.PointerMove(c.X+30, c.Y+10)
	ed.PointerUp(c.X+30, c.Y+10)

	if !near(l.X, 580) || !near(l.Y, 360) {
		t.Fatalf("position = %v,%v, want 580,360", l.X, l.Y)
	}
	if ed.Scene().Handles().Target != l.ID {
		t.Fatal("handles not reattached after drag")
	}
}

func TestDeleteDuringDrag(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "chair")
	c := center(l)

	ed.PointerDown(c.X, c.Y)
	if !ed.KeyDown(Key{Key: "Backspace"}) {
		t.Fatal("backspace not handled")
	}
	ed.PointerMove(c.X+10, c.Y)
	ed.PointerUp(c.X+10, c.Y)

	if ed.Scene().Len() != 0 {
		t.Fatal("layer not deleted")
	}
	if ed.Scene().Handles().Target != "" || ed.State().SelectedID != "" {
		t.Fatal("handles reattached to a deleted layer")
	}
}

func TestDeleteIgnoredWithTextFocus(t *testing.T) {
	ed := newTestEditor(t)
	addSolid(t, ed, 100, 100, "chair")
	if ed.KeyDown(Key{Key: "Delete", TextFocus: true}) {
		t.Fatal("delete consumed while a text field has focus")
	}
	if ed.Scene().Len() != 1 {
		t.Fatal("layer deleted while typing")
	}
}

func TestDeleteWithoutSelection(t *testing.T) {
	ed := newTestEditor(t)
	addSolid(t, ed, 100, 100, "chair")
	ed.PointerDown(5, 5)
	ed.PointerUp(5, 5)
	before := ed.History().Len()

	if ed.DeleteSelected() {
		t.Fatal("delete with no selection reported success")
	}
	if ed.History().Len() != before {
		t.Fatal("no-op delete took a snapshot")
	}
}

func TestClearIsUndoable(t *testing.T) {
	ed := newTestEditor(t)
	addSolid(t, ed, 50, 50, "a")
	addSolid(t, ed, 50, 50, "b")

	ed.Clear()
	if ed.Scene().Len() != 0 || ed.State().SelectedID != "" {
		t.Fatal("clear left layers or a selection")
	}
	if !ed.Undo() || ed.Scene().Len() != 2 {
		t.Fatal("undo did not restore the cleared layers")
	}
}

func TestMoveAtBoundaryIsNoop(t *testing.T) {
	ed := newTestEditor(t)
	a := addSolid(t, ed, 50, 50, "a")
	b := addSolid(t, ed, 50, 50, "b")
	before := ed.History().Len()

	if err := ed.MoveUp(b.ID); err != nil {
		t.Fatal(err)
	}
	if err := ed.MoveDown(a.ID); err != nil {
		t.Fatal(err)
	}
	if ed.History().Len() != before {
		t.Fatal("boundary move took a snapshot")
	}
	if ed.Scene().Index(a) != 0 || ed.Scene().Index(b) != 1 {
		t.Fatal("boundary move changed the order")
	}
	if err := ed.MoveUp("layer_missing"); !errors.Is(err, ErrLayerNotFound) {
		t.Fatalf("err = %v, want ErrLayerNotFound", err)
	}
}

func TestExportPNG(t *testing.T) {
	ed := newTestEditor(t)
	addSolid(t, ed, 100, 100, "rug")
	ed.ToggleWarp()

	data, err := ed.ExportPNG()
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 2400 || b.Dy() != 1600 {
		t.Fatalf("export size = %v, want 2400x1600", b.Size())
	}
	if _, _, _, a := img.At(1200, 800).RGBA(); a < 0xf000 {
		t.Fatalf("layer pixel alpha = %#x", a)
	}
	if _, _, _, a := img.At(10, 10).RGBA(); a != 0 {
		t.Fatalf("background alpha = %#x", a)
	}
	if ed.State().WarpTargetID != "" || ed.Scene().Handles().Target != "" {
		t.Fatal("overlays still shown after export")
	}
}

func TestExportPaintsWarpedLayer(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 200, 200, "rug")
	ed.ToggleWarp()

	tl := l.Transform().Apply(l.Warp.Corners[TopLeft])
	ed.PointerDown(tl.X, tl.Y)
	ed.PointerMove(tl.X-20, tl.Y+10)
	ed.PointerUp(tl.X-20, tl.Y+10)
	if got := l.Warp.Corners[TopLeft]; !nearPoint(got, Point{-20, 10}) {
		t.Fatalf("top-left = %v, want (-20,10)", got)
	}

	img := ed.Export()
	ratio := ed.opts.ExportPixelRatio
	m := Scale(ratio, ratio).Multiply(l.Transform())
	device := func(p Point) image.Point {
		d := m.Apply(p)
		return image.Pt(int(d.X), int(d.Y))
	}

	// Diagonal from the moved top-left corner to the bottom-right corner.
	from, to := l.Warp.Corners[TopLeft], l.Warp.Corners[BottomRight]
	for i := 5; i <= 95; i++ {
		p := device(Lerp(from, to, float64(i)/100))
		if a := alphaAt(img, p.X, p.Y); a <= 128 {
			t.Fatalf("diagonal pixel %v alpha = %d", p, a)
		}
	}

	tests := []struct {
		name   string
		local  Point
		opaque bool
	}{
		{"moved top-left corner", Point{-15, 15}, true},
		{"left of the original rectangle", Point{-8, 100}, true},
		{"original top-left corner", Point{2, 2}, false},
		{"centre", Point{100, 100}, true},
	}
	for _, tt := range tests {
		p := device(tt.local)
		a := alphaAt(img, p.X, p.Y)
		if tt.opaque && a <= 128 {
			t.Errorf("%s: pixel %v alpha = %d, want painted", tt.name, p, a)
		}
		if !tt.opaque && a != 0 {
			t.Errorf("%s: pixel %v alpha = %d, want transparent", tt.name, p, a)
		}
	}
}

func TestDrawCommands(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "lamp")

	cmds := ed.DrawCommands()
	if len(cmds) != 2 || cmds[0].Op != "image" || cmds[1].Op != "handles" {
		t.Fatalf("commands = %+v", cmds)
	}
	if cmds[0].LayerID != l.ID {
		t.Fatal("image command not tied to the layer")
	}
	if _, ok := ed.Bitmap(cmds[0].Bitmap); !ok {
		t.Fatal("frame bitmap not resolvable")
	}
	if want := []float64{1, 0, 0, 1, 550, 350}; !equalFloats(cmds[0].Transform, want) {
		t.Fatalf("transform = %v, want %v", cmds[0].Transform, want)
	}

	if err := ed.ApplyAngles(Angles{X: 10, Y: 20}); err != nil {
		t.Fatal(err)
	}
	cmds = ed.DrawCommands()
	if cmds[0].Op != "warp" {
		t.Fatalf("first op = %q after warp", cmds[0].Op)
	}

	var decoded []DrawCommand
	if err := json.Unmarshal([]byte(ed.Render()), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(cmds) {
		t.Fatalf("rendered %d commands, want %d", len(decoded), len(cmds))
	}
}

func TestRenderEmpty(t *testing.T) {
	ed := newTestEditor(t)
	if got := ed.Render(); got != "[]" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestHitTest(t *testing.T) {
	ed := newTestEditor(t)
	a := addSolid(t, ed, 100, 100, "a")
	b := addSolid(t, ed, 100, 100, "b")

	if got := ed.HitTest(600, 400); got != b.ID {
		t.Fatalf("HitTest = %q, want top layer", got)
	}
	b.X += 500
	if got := ed.HitTest(600, 400); got != a.ID {
		t.Fatalf("HitTest = %q, want lower layer", got)
	}
	if got := ed.HitTest(1, 1); got != "" {
		t.Fatalf("HitTest on stage = %q", got)
	}
}

func TestApply(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "a")

	if err := ed.Apply(Command{Op: "mode.toggle", Mode: ModeEraser}); err != nil {
		t.Fatal(err)
	}
	if ed.Mode() != ModeEraser {
		t.Fatalf("mode = %s", ed.Mode())
	}
	if err := ed.Apply(Command{Op: "key", Key: &Key{Key: "Escape"}}); err != nil {
		t.Fatal(err)
	}
	if err := ed.Apply(Command{Op: "layer.duplicate", LayerID: l.ID}); err != nil {
		t.Fatal(err)
	}
	if ed.Scene().Len() != 2 {
		t.Fatal("duplicate command ignored")
	}
	if err := ed.Apply(Command{Op: "undo"}); err != nil {
		t.Fatal(err)
	}
	if ed.Scene().Len() != 1 {
		t.Fatal("undo command ignored")
	}
	if err := NewEditor(Options{}).Apply(Command{Op: "undo"}); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("undo on a fresh editor: %v", err)
	}

	if err := ed.Apply(Command{Op: "layer.select", LayerID: "layer_missing"}); !errors.Is(err, ErrLayerNotFound) {
		t.Fatalf("err = %v, want ErrLayerNotFound", err)
	}
	if err := ed.Apply(Command{Op: "explode"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
	if err := ed.Apply(Command{Op: "mode.toggle", Mode: ModeNormal}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestRedrawHook(t *testing.T) {
	ed := newTestEditor(t)
	calls := 0
	ed.OnRedraw(func() { calls++ })
	addSolid(t, ed, 10, 10, "a")
	if calls == 0 {
		t.Fatal("redraw hook not called")
	}
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}
