package engine

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/interiorcollage/collage/internal/document"
)

var (
	ErrSelectOne     = errors.New("select exactly one layer")
	ErrLayerNotFound = errors.New("layer not found")
	ErrEraserActive  = errors.New("eraser mode is active")
	ErrNoBitmap      = errors.New("bitmap not found")
)

// Options tunes the editor. Zero fields take the defaults.
type Options struct {
	CanvasWidth      float64
	CanvasHeight     float64
	HistoryLimit     int
	WarpCellSize     float64
	EraserRadius     float64
	EraserMinRadius  float64
	PasteBudget      float64
	FitRatio         float64
	DuplicateOffset  float64
	ExportPixelRatio float64
	AnchorRadius     float64
	ThumbWidth       int
	ThumbHeight      int
	Codec            BitmapCodec
	Logger           *slog.Logger
}

// DefaultOptions returns the standard editor tuning.
func DefaultOptions() Options {
	return Options{
		CanvasWidth:      1200,
		CanvasHeight:     800,
		HistoryLimit:     50,
		WarpCellSize:     20,
		EraserRadius:     30,
		EraserMinRadius:  5,
		PasteBudget:      400,
		FitRatio:         0.6,
		DuplicateOffset:  20,
		ExportPixelRatio: 2,
		AnchorRadius:     10,
		ThumbWidth:       200,
		ThumbHeight:      60,
		Codec:            PNGCodec{},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CanvasWidth <= 0 {
		o.CanvasWidth = d.CanvasWidth
	}
	if o.CanvasHeight <= 0 {
		o.CanvasHeight = d.CanvasHeight
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.WarpCellSize <= 0 {
		o.WarpCellSize = d.WarpCellSize
	}
	if o.EraserRadius <= 0 {
		o.EraserRadius = d.EraserRadius
	}
	if o.EraserMinRadius <= 0 {
		o.EraserMinRadius = d.EraserMinRadius
	}
	if o.PasteBudget <= 0 {
		o.PasteBudget = d.PasteBudget
	}
	if o.FitRatio <= 0 {
		o.FitRatio = d.FitRatio
	}
	if o.DuplicateOffset == 0 {
		o.DuplicateOffset = d.DuplicateOffset
	}
	if o.ExportPixelRatio <= 0 {
		o.ExportPixelRatio = d.ExportPixelRatio
	}
	if o.AnchorRadius <= 0 {
		o.AnchorRadius = d.AnchorRadius
	}
	if o.ThumbWidth <= 0 {
		o.ThumbWidth = d.ThumbWidth
	}
	if o.ThumbHeight <= 0 {
		o.ThumbHeight = d.ThumbHeight
	}
	if o.Codec == nil {
		o.Codec = d.Codec
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type dragState struct {
	layer       *Layer
	last        Point
	wasSelected bool
}

// Editor is the collage editing engine. It owns the scene and every
// editing component. An Editor is not safe for concurrent use; callers
// serialize access to it.
type Editor struct {
	opts Options
	log  *slog.Logger

	scene     *Scene
	factory   *Factory
	modes     *ModeController
	eraser    *Eraser
	selection *RegionSelector
	history   *History
	panel     *Panel
	pipeline  *Pipeline
	store     *BitmapStore

	drag     dragState
	frame    map[string]*image.NRGBA
	onRedraw func()
}

// NewEditor creates an editor with an empty canvas in Normal mode.
func NewEditor(opts Options) *Editor {
	opts = opts.withDefaults()
	ed := &Editor{
		opts:     opts,
		log:      opts.Logger,
		pipeline: NewPipeline(opts.Codec),
		store:    NewBitmapStore(),
		frame:    make(map[string]*image.NRGBA),
	}
	ed.factory = &Factory{ed: ed}
	ed.modes = &ModeController{ed: ed}
	ed.eraser = &Eraser{ed: ed, Radius: opts.EraserRadius, MinRadius: opts.EraserMinRadius}
	ed.selection = &RegionSelector{ed: ed}
	ed.history = newHistory(ed, opts.HistoryLimit)
	ed.panel = newPanel(ed, opts.ThumbWidth, opts.ThumbHeight)

	ed.scene = NewScene(opts.CanvasWidth, opts.CanvasHeight, ed.log)
	ed.hook(ed.scene)
	ed.modes.rebind()
	return ed
}

func (ed *Editor) hook(s *Scene) {
	s.onChange = ed.panel.invalidate
	s.onRedraw = func() {
		if ed.onRedraw != nil {
			ed.onRedraw()
		}
	}
}

// OnRedraw registers fn to be called whenever the scene needs repainting.
func (ed *Editor) OnRedraw(fn func()) { ed.onRedraw = fn }

// Scene returns the live scene.
func (ed *Editor) Scene() *Scene { return ed.scene }

// State returns the interaction state.
func (ed *Editor) State() EditorState { return ed.scene.State }

// Mode returns the active mode.
func (ed *Editor) Mode() Mode { return ed.modes.Mode() }

// Indicator returns the mode status text.
func (ed *Editor) Indicator() string { return ed.modes.Indicator() }

// Options returns the effective options.
func (ed *Editor) Options() Options { return ed.opts }

// Factory returns the layer factory.
func (ed *Editor) Factory() *Factory { return ed.factory }

// Eraser returns the eraser component.
func (ed *Editor) Eraser() *Eraser { return ed.eraser }

// Selection returns the region selection component.
func (ed *Editor) Selection() *RegionSelector { return ed.selection }

// History returns the history manager.
func (ed *Editor) History() *History { return ed.history }

// --- Pointer input ---

// PointerDown routes a press on the canvas to the bound gesture.
func (ed *Editor) PointerDown(x, y float64) {
	if g := ed.modes.bound; g != nil {
		g.Down(Point{x, y})
	}
}

// PointerMove routes pointer motion to the bound gesture.
func (ed *Editor) PointerMove(x, y float64) {
	if g := ed.modes.bound; g != nil {
		g.Move(Point{x, y})
	}
}

// PointerUp routes a release to the bound gesture.
func (ed *Editor) PointerUp(x, y float64) {
	if g := ed.modes.bound; g != nil {
		g.Up(Point{x, y})
	}
}

func (ed *Editor) beginDrag(l *Layer, p Point) {
	if !l.CanDrag() || l.handlers == nil {
		return
	}
	ed.drag = dragState{layer: l, last: p}
	l.handlers.dragStart(l)
}

func (ed *Editor) continueDrag(p Point) {
	l := ed.drag.layer
	if l == nil {
		return
	}
	if !l.Attached() {
		ed.drag = dragState{}
		return
	}
	delta := p.Sub(ed.drag.last)
	ed.drag.last = p
	l.handlers.dragMove(l, delta)
}

func (ed *Editor) endDrag() {
	l := ed.drag.layer
	if l == nil {
		return
	}
	l.handlers.dragEnd(l)
	ed.drag = dragState{}
}

// --- Modes ---

// SetMode switches the interaction mode.
func (ed *Editor) SetMode(m Mode) { ed.modes.Set(m) }

// ToggleWarp enters or leaves perspective mode.
func (ed *Editor) ToggleWarp() { ed.modes.Toggle(ModeWarp) }

// ToggleEraser enters or leaves eraser mode.
func (ed *Editor) ToggleEraser() { ed.modes.Toggle(ModeEraser) }

// ToggleSelect enters or leaves a region selection mode.
func (ed *Editor) ToggleSelect(kind SelectionKind) {
	if kind == SelectLasso {
		ed.modes.Toggle(ModeSelectLasso)
		return
	}
	ed.modes.Toggle(ModeSelectRect)
}

// SetEraserRadius changes the eraser brush size.
func (ed *Editor) SetEraserRadius(r float64) { ed.eraser.SetRadius(r) }

// --- Layers ---

// AddImage adds img as a new layer fitted into the canvas, centred and
// selected. Adding is refused while erasing.
func (ed *Editor) AddImage(img image.Image, name string) (*Layer, error) {
	if ed.Mode() == ModeEraser {
		return nil, ErrEraserActive
	}
	bmp := ToNRGBA(img)
	b := bmp.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("add image %q: empty bitmap", name)
	}

	ed.history.Snapshot()
	r := ed.opts.FitRatio
	w, h := fitSize(float64(b.Dx()), float64(b.Dy()),
		ed.scene.Width*r, ed.scene.Height*r, 1)
	l := ed.factory.CreateLayer(bmp, (ed.scene.Width-w)/2, (ed.scene.Height-h)/2, w, h, name)
	ed.addLayer(l)
	ed.selectLayer(l)
	ed.log.Debug("image added", "layer", l.ID, "name", name, "width", w, "height", h)
	return l, nil
}

func (ed *Editor) addLayer(l *Layer) {
	ed.modes.prepare(l)
	ed.scene.AddLayer(l)
}

// selectLayer selects l the way the active mode does it.
func (ed *Editor) selectLayer(l *Layer) {
	if ed.Mode() == ModeWarp {
		ed.showAnchors(l)
		return
	}
	ed.scene.SelectOnly(l)
}

// SelectLayer selects a layer by id.
func (ed *Editor) SelectLayer(id string) error {
	l := ed.scene.Layer(id)
	if l == nil {
		return ErrLayerNotFound
	}
	ed.selectLayer(l)
	return nil
}

// DeleteLayer removes a layer by id.
func (ed *Editor) DeleteLayer(id string) error {
	l := ed.scene.Layer(id)
	if l == nil {
		return ErrLayerNotFound
	}
	ed.history.Snapshot()
	ed.scene.RemoveLayer(l)
	return nil
}

// DeleteSelected removes the selected layer. It returns false when nothing
// is selected.
func (ed *Editor) DeleteSelected() bool {
	l := ed.scene.Selected()
	if l == nil {
		ed.log.Info("no selected layers")
		return false
	}
	ed.history.Snapshot()
	ed.scene.RemoveLayer(l)
	return true
}

// Duplicate copies a layer, offset from the original, on top of the scene.
func (ed *Editor) Duplicate(id string) (*Layer, error) {
	src := ed.scene.Layer(id)
	if src == nil {
		return nil, ErrLayerNotFound
	}
	ed.history.Snapshot()

	name := src.Name
	if name == "" {
		name = "Layer"
	}
	off := ed.opts.DuplicateOffset
	l := ed.factory.CreateLayer(src.Bitmap(), src.X+off, src.Y+off, src.Width, src.Height, name+" (copy)")
	l.Rotation = src.Rotation
	l.ScaleX = src.ScaleX
	l.ScaleY = src.ScaleY
	l.Draggable = src.Draggable
	if src.Warp != nil {
		l.Warp = src.Warp.Clone()
		ed.factory.bindAnchors(l)
	}
	ed.addLayer(l)
	ed.selectLayer(l)
	return l, nil
}

// MoveUp raises a layer one step in paint order.
func (ed *Editor) MoveUp(id string) error {
	l := ed.scene.Layer(id)
	if l == nil {
		return ErrLayerNotFound
	}
	if i := ed.scene.Index(l); i >= ed.scene.Len()-1 {
		return nil
	}
	ed.history.Snapshot()
	ed.scene.MoveUp(l)
	return nil
}

// MoveDown lowers a layer one step in paint order.
func (ed *Editor) MoveDown(id string) error {
	l := ed.scene.Layer(id)
	if l == nil {
		return ErrLayerNotFound
	}
	if ed.scene.Index(l) <= 0 {
		return nil
	}
	ed.history.Snapshot()
	ed.scene.MoveDown(l)
	return nil
}

// Clear removes every layer and overlay.
func (ed *Editor) Clear() {
	ed.history.Snapshot()
	ed.drag = dragState{}
	ed.selection.Clear()
	ed.eraser.EndStroke()
	ed.scene.Clear()
}

// --- Selection ---

// CopySelection copies the selected region to the clipboard.
func (ed *Editor) CopySelection() bool { return ed.selection.Copy() }

// DeleteSelection erases the selected region.
func (ed *Editor) DeleteSelection() bool { return ed.selection.Delete() }

// PasteSelection adds the clipboard as a new layer.
func (ed *Editor) PasteSelection() *Layer { return ed.selection.Paste() }

// --- Warp ---

func (ed *Editor) showAnchors(l *Layer) {
	ed.factory.ensureWarp(l)
	ed.scene.State.WarpTargetID = l.ID
	ed.scene.Mark(l)
}

// anchorAt finds the warp corner handle under p.
func (ed *Editor) anchorAt(p Point) (*Layer, Corner, bool) {
	t := ed.scene.Layer(ed.scene.State.WarpTargetID)
	if t == nil || t.Warp == nil {
		return nil, 0, false
	}
	m := t.Transform()
	for c := TopLeft; c <= BottomRight; c++ {
		if m.Apply(t.Warp.Corners[c]).Dist(p) <= ed.opts.AnchorRadius {
			return t, c, true
		}
	}
	return nil, 0, false
}

// ApplyAngles warps the selected layer by a 3D rotation.
func (ed *Editor) ApplyAngles(a Angles) error {
	l := ed.scene.Selected()
	if l == nil {
		return ErrSelectOne
	}
	ed.history.Snapshot()
	ed.factory.ensureWarp(l).SetAngles(l.Width, l.Height, a)
	ed.scene.Redraw()
	return nil
}

// ResetWarp removes the perspective warp of the selected layer.
func (ed *Editor) ResetWarp() error {
	l := ed.scene.Selected()
	if l == nil {
		return ErrSelectOne
	}
	if l.Warp == nil {
		return nil
	}
	ed.history.Snapshot()
	l.Warp = nil
	if ed.scene.State.WarpTargetID == l.ID {
		if ed.Mode() == ModeWarp {
			ed.factory.ensureWarp(l)
		} else {
			ed.scene.State.WarpTargetID = ""
		}
	}
	ed.scene.Redraw()
	return nil
}

// --- History ---

// Undo restores the previous state.
func (ed *Editor) Undo() bool { return ed.history.Undo() }

// Redo re-applies the most recently undone state.
func (ed *Editor) Redo() bool { return ed.history.Redo() }

// Rehydrate builds a live scene from a snapshot, rebinding every layer.
func (ed *Editor) Rehydrate(snap *document.Snapshot) *Scene {
	return buildScene(ed, snap)
}

// replaceScene swaps in a rebuilt scene, carrying over the mode and
// rebinding the active mode's gesture. In warp mode the anchors return to
// the previous target, or to the selected layer when the target is gone.
func (ed *Editor) replaceScene(s *Scene) {
	old := ed.scene
	warpTarget := old.State.WarpTargetID
	old.detach()

	s.State.Mode = old.State.Mode
	s.revision = old.revision
	ed.hook(s)
	ed.scene = s

	ed.drag = dragState{}
	ed.selection.current = nil
	ed.selection.selecting = false
	ed.eraser.EndStroke()
	ed.modes.rebind()
	switch s.State.Mode {
	case ModeNormal:
		if s.State.SelectedID != "" {
			s.handles.Target = s.State.SelectedID
		}
	case ModeWarp:
		t := s.Layer(warpTarget)
		if t == nil {
			t = s.Selected()
		}
		if t != nil {
			ed.showAnchors(t)
		}
	}
	s.changed()
}

// --- Bitmap pipeline ---

// commitBitmap issues img as the newest edit of l.
func (ed *Editor) commitBitmap(l *Layer, img *image.NRGBA) {
	l.editGen++
	l.pending = img
	ed.pipeline.Submit(l, l.editGen, img)
}

func (ed *Editor) applyCompletion(c completion) {
	l := c.layer
	if !l.Attached() || l.scene != ed.scene {
		ed.log.Debug("dropping bitmap for detached layer", "layer", l.ID)
		return
	}
	if c.gen <= l.committedGen {
		ed.log.Debug("dropping stale bitmap", "layer", l.ID, "gen", c.gen, "committed", l.committedGen)
		return
	}
	if c.err != nil {
		ed.log.Warn("bitmap encode failed", "layer", l.ID, "error", c.err)
	}
	l.bitmap = c.img
	l.encoded = c.data
	l.committedGen = c.gen
	if c.gen == l.editGen {
		l.pending = nil
	}
	if l.Warp != nil {
		l.Warp.Invalidate()
	}
	ed.scene.changed()
}

// Pump applies finished bitmap edits without blocking.
func (ed *Editor) Pump() int { return ed.pipeline.Pump(ed.applyCompletion) }

// Flush waits for every issued bitmap edit and applies it.
func (ed *Editor) Flush() int { return ed.pipeline.Flush(ed.applyCompletion) }

// --- Panel ---

// Panel returns the layer panel rows, topmost first.
func (ed *Editor) Panel() []PanelItem { return ed.panel.Items() }

// Bitmap resolves a bitmap reference from the latest frame, the panel or
// the store.
func (ed *Editor) Bitmap(ref string) (*image.NRGBA, bool) {
	if img, ok := ed.frame[ref]; ok {
		return img, true
	}
	if img, ok := ed.panel.Thumbnail(ref); ok {
		return img, true
	}
	return ed.store.Get(ref)
}

// EncodedBitmap returns the codec bytes and content type of the bitmap
// named by ref. A layer's committed bitmap is served from the bytes the
// pipeline already produced for it.
func (ed *Editor) EncodedBitmap(ref string) ([]byte, string, error) {
	img, ok := ed.Bitmap(ref)
	if !ok {
		return nil, "", ErrNoBitmap
	}
	codec := ed.pipeline.codec
	for _, l := range ed.scene.layers {
		if l.bitmap == img {
			data, err := l.Encoded(codec)
			return data, codec.ContentType(), err
		}
	}
	data, err := codec.Encode(img)
	if err != nil {
		return nil, "", fmt.Errorf("encode bitmap %s: %w", ref, err)
	}
	return data, codec.ContentType(), nil
}
