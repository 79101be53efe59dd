package engine

// gesture receives pointer events on the canvas surface while its mode is
// active. Exactly one gesture is bound at a time.
type gesture interface {
	Down(p Point)
	Move(p Point)
	Up(p Point)
}

var indicators = map[Mode]string{
	ModeNormal:      "Mode: normal",
	ModeWarp:        "Mode: perspective (drag corners)",
	ModeEraser:      "Mode: eraser",
	ModeSelectRect:  "Mode: rectangle selection",
	ModeSelectLasso: "Mode: lasso selection",
}

// ModeController owns mode transitions. Leaving a mode tears down its
// overlays, restores any layer state it suspended and unbinds its gesture
// before the next mode is entered.
type ModeController struct {
	ed    *Editor
	bound gesture
}

// Mode returns the active mode.
func (m *ModeController) Mode() Mode { return m.ed.scene.State.Mode }

// Indicator returns the status text for the active mode.
func (m *ModeController) Indicator() string { return indicators[m.Mode()] }

// Set switches to next. Re-entering the active mode is a no-op.
func (m *ModeController) Set(next Mode) {
	if _, ok := indicators[next]; !ok {
		m.ed.log.Warn("unknown mode", "mode", next)
		return
	}
	cur := m.Mode()
	if cur == next && m.bound != nil {
		return
	}
	m.exit(cur)
	m.ed.scene.State.Mode = next
	m.enter(next)
	m.ed.log.Debug("mode changed", "from", cur, "to", next)
	m.ed.scene.changed()
}

// Toggle enters mode, or returns to Normal if mode is already active.
func (m *ModeController) Toggle(mode Mode) {
	if m.Mode() == mode {
		m.Set(ModeNormal)
		return
	}
	m.Set(mode)
}

// rebind re-enters the active mode on a freshly built scene.
func (m *ModeController) rebind() {
	m.bound = nil
	m.enter(m.Mode())
}

// prepare applies mode-specific state to a layer joining the scene.
func (m *ModeController) prepare(l *Layer) {
	l.dragSuspended = isSelectMode(m.Mode())
}

func (m *ModeController) exit(mode Mode) {
	ed := m.ed
	switch mode {
	case ModeNormal:
		ed.endDrag()
	case ModeWarp:
		ed.endDrag()
		ed.scene.State.WarpTargetID = ""
	case ModeEraser:
		ed.eraser.EndStroke()
		ed.eraser.cursor = nil
	case ModeSelectRect, ModeSelectLasso:
		ed.selection.Clear()
		for _, l := range ed.scene.layers {
			l.dragSuspended = false
		}
	}
	m.bound = nil
}

func (m *ModeController) enter(mode Mode) {
	ed := m.ed
	switch mode {
	case ModeNormal:
		m.bound = normalGesture{ed: ed}
	case ModeWarp:
		if t := ed.scene.Layer(ed.scene.handles.Target); t != nil {
			ed.showAnchors(t)
		}
		ed.scene.handles.Target = ""
		m.bound = &warpGesture{ed: ed}
	case ModeEraser:
		ed.scene.handles.Target = ""
		m.bound = eraserGesture{ed: ed}
	case ModeSelectRect, ModeSelectLasso:
		ed.scene.handles.Target = ""
		for _, l := range ed.scene.layers {
			l.dragSuspended = true
		}
		kind := SelectRect
		if mode == ModeSelectLasso {
			kind = SelectLasso
		}
		m.bound = selectGesture{ed: ed, kind: kind}
	}
}

func isSelectMode(mode Mode) bool {
	return mode == ModeSelectRect || mode == ModeSelectLasso
}

type normalGesture struct{ ed *Editor }

func (g normalGesture) Down(p Point) {
	l := g.ed.scene.TopmostAt(p)
	if l == nil {
		g.ed.scene.SelectOnly(nil)
		return
	}
	l.handlers.click(l, p)
	g.ed.beginDrag(l, p)
}

func (g normalGesture) Move(p Point) { g.ed.continueDrag(p) }
func (g normalGesture) Up(Point)     { g.ed.endDrag() }

type warpGesture struct {
	ed     *Editor
	anchor *Layer
	corner Corner
}

func (g *warpGesture) Down(p Point) {
	if l, c, ok := g.ed.anchorAt(p); ok {
		g.ed.history.Snapshot()
		g.anchor = l
		g.corner = c
		return
	}
	l := g.ed.scene.TopmostAt(p)
	if l == nil {
		return
	}
	l.handlers.click(l, p)
	g.ed.beginDrag(l, p)
}

func (g *warpGesture) Move(p Point) {
	if g.anchor == nil {
		g.ed.continueDrag(p)
		return
	}
	if !g.anchor.Attached() || g.anchor.Warp == nil {
		g.anchor = nil
		return
	}
	local, ok := g.anchor.ToLocal(p)
	if !ok {
		return
	}
	g.anchor.Warp.onAnchorDrag(g.corner, local)
}

func (g *warpGesture) Up(Point) {
	g.anchor = nil
	g.ed.endDrag()
}

type eraserGesture struct{ ed *Editor }

func (g eraserGesture) Down(p Point) {
	if l := g.ed.scene.TopmostAt(p); l != nil {
		l.handlers.click(l, p)
		return
	}
	g.ed.eraser.StartStroke(p)
}

func (g eraserGesture) Move(p Point) {
	g.ed.eraser.Hover(p)
	g.ed.eraser.ContinueStroke(p)
}

func (g eraserGesture) Up(Point) { g.ed.eraser.EndStroke() }

type selectGesture struct {
	ed   *Editor
	kind SelectionKind
}

func (g selectGesture) Down(p Point) { g.ed.selection.Start(p, g.kind) }
func (g selectGesture) Move(p Point) { g.ed.selection.Continue(p) }
func (g selectGesture) Up(Point)     { g.ed.selection.Stop() }
