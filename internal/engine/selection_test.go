package engine

import "testing"

// drag performs a full pointer gesture through the given canvas points.
func drag(ed *Editor, pts ...Point) {
	ed.PointerDown(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		ed.PointerMove(p.X, p.Y)
	}
	last := pts[len(pts)-1]
	ed.PointerUp(last.X, last.Y)
}

func TestRectSelectionCopy(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectRect)

	drag(ed, Point{l.X + 10, l.Y + 10}, Point{l.X + 30, l.Y + 40})
	if !ed.Selection().HasMask() {
		t.Fatal("expected finished selection")
	}
	if !ed.CopySelection() {
		t.Fatal("copy failed")
	}
	clip := ed.Selection().Clipboard()
	if clip.Rect.Dx() != 20 || clip.Rect.Dy() != 30 {
		t.Fatalf("clipboard size = %v, want 20x30", clip.Rect.Size())
	}
	if a := alphaAt(clip, 10, 15); a != 255 {
		t.Fatalf("clipboard alpha = %d", a)
	}
}

func TestClickWithoutMoveClearsSelection(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectRect)

	drag(ed, Point{l.X + 10, l.Y + 10})
	if ed.Selection().Active() {
		t.Fatal("click without movement should clear the selection")
	}
}

func TestSelectionOnEmptyCanvasClears(t *testing.T) {
	ed := newTestEditor(t)
	addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectLasso)

	drag(ed, Point{5, 5}, Point{20, 5}, Point{20, 20})
	if ed.Selection().Active() {
		t.Fatal("selection started outside every layer")
	}
}

func TestLassoNeedsThreePoints(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectLasso)

	drag(ed, Point{l.X + 10, l.Y + 10}, Point{l.X + 60, l.Y + 60})
	if ed.Selection().Active() {
		t.Fatal("two-point lasso should be discarded")
	}

	drag(ed, Point{l.X + 10, l.Y + 10}, Point{l.X + 60, l.Y + 10}, Point{l.X + 60, l.Y + 60})
	if !ed.Selection().HasMask() {
		t.Fatal("three-point lasso should produce a mask")
	}
}

func TestEmptySelectionLeavesClipboard(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectRect)

	drag(ed, Point{l.X + 10, l.Y + 10}, Point{l.X + 30, l.Y + 30})
	ed.CopySelection()
	clip := ed.Selection().Clipboard()

	// Zero width rectangle.
	drag(ed, Point{l.X + 50, l.Y + 10}, Point{l.X + 50, l.Y + 60})
	if ed.CopySelection() {
		t.Fatal("copy of a zero-area selection reported success")
	}
	if ed.Selection().Clipboard() != clip {
		t.Fatal("clipboard replaced by an empty selection")
	}
}

func TestDeleteSelection(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectRect)

	drag(ed, Point{l.X + 10, l.Y + 10}, Point{l.X + 30, l.Y + 30})
	before := ed.History().Len()
	if !ed.KeyDown(Key{Key: "Delete"}) {
		t.Fatal("delete not handled")
	}
	ed.Flush()

	if ed.History().Len() != before+1 {
		t.Fatal("delete selection did not snapshot")
	}
	if ed.Scene().Len() != 1 {
		t.Fatal("layer removed instead of the selected region")
	}
	if a := alphaAt(l.Displayed(), 20, 20); a != 0 {
		t.Fatalf("selected pixel alpha = %d, want 0", a)
	}
	if a := alphaAt(l.Displayed(), 60, 60); a != 255 {
		t.Fatalf("unselected pixel alpha = %d, want 255", a)
	}
	if ed.Selection().Active() {
		t.Fatal("selection not cleared after delete")
	}
}

func TestPasteFitsBudget(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 1000, 800, "wall")
	ed.ToggleSelect(SelectRect)

	drag(ed, Point{l.X, l.Y}, Point{l.X + l.Width, l.Y + l.Height})
	if !ed.KeyDown(Key{Key: "c", Ctrl: true}) {
		t.Fatal("ctrl+c not handled")
	}
	if !ed.KeyDown(Key{Key: "v", Meta: true}) {
		t.Fatal("cmd+v not handled")
	}

	pasted := ed.Scene().Layers()[1]
	if pasted.Name != "Selection (copy)" {
		t.Fatalf("name = %q", pasted.Name)
	}
	if !near(pasted.Width, 400) || !near(pasted.Height, 320) {
		t.Fatalf("size = %vx%v, want 400x320", pasted.Width, pasted.Height)
	}
	if !near(pasted.X, 400) || !near(pasted.Y, 240) {
		t.Fatalf("position = %v,%v, want 400,240", pasted.X, pasted.Y)
	}
	if ed.State().SelectedID != pasted.ID {
		t.Fatal("pasted layer not selected")
	}
}

func TestModeSwitchKeepsClipboard(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")
	ed.ToggleSelect(SelectRect)
	drag(ed, Point{l.X + 10, l.Y + 10}, Point{l.X + 30, l.Y + 30})
	ed.CopySelection()

	ed.SetMode(ModeNormal)
	if ed.Selection().Active() {
		t.Fatal("selection survived a mode switch")
	}
	if ed.Selection().Clipboard() == nil {
		t.Fatal("clipboard lost on mode switch")
	}
	if ed.PasteSelection() == nil {
		t.Fatal("paste after mode switch failed")
	}
}

func TestSelectModeSuspendsDragging(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 100, 100, "art")

	ed.ToggleSelect(SelectLasso)
	if l.CanDrag() {
		t.Fatal("layer draggable in select mode")
	}
	ed.ToggleSelect(SelectLasso)
	if !l.CanDrag() {
		t.Fatal("draggable flag not restored")
	}
	if !l.Draggable {
		t.Fatal("intrinsic draggable flag changed")
	}
}
