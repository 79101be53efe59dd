package engine

import "log/slog"

// Mode is the active interaction mode of the editor.
type Mode string

const (
	ModeNormal      Mode = "normal"
	ModeWarp        Mode = "warp"
	ModeEraser      Mode = "eraser"
	ModeSelectRect  Mode = "select-rect"
	ModeSelectLasso Mode = "select-lasso"
)

// EditorState is the explicit interaction state shared by the components.
type EditorState struct {
	Mode         Mode   `json:"mode"`
	SelectedID   string `json:"selectedId,omitempty"`
	WarpTargetID string `json:"warpTargetId,omitempty"`
}

// TransformHandles is the single resize/rotate overlay. Target is empty
// while detached.
type TransformHandles struct {
	Target string
}

// Scene is the retained scene graph host: the ordered layer list plus the
// overlays drawn above it. Layers are kept in paint order, bottom first.
type Scene struct {
	Width  float64
	Height float64
	State  EditorState

	layers  []*Layer
	handles TransformHandles

	revision uint64
	onChange func()
	onRedraw func()
	log      *slog.Logger
}

// NewScene creates an empty scene of the given canvas size.
func NewScene(width, height float64, log *slog.Logger) *Scene {
	if log == nil {
		log = slog.Default()
	}
	return &Scene{
		Width:  width,
		Height: height,
		State:  EditorState{Mode: ModeNormal},
		log:    log,
	}
}

// Layers returns the layers in paint order. The slice must not be modified.
func (s *Scene) Layers() []*Layer { return s.layers }

// Len returns the number of layers.
func (s *Scene) Len() int { return len(s.layers) }

// Revision increments on every redraw request.
func (s *Scene) Revision() uint64 { return s.revision }

// Handles returns the transform-handle overlay state.
func (s *Scene) Handles() TransformHandles { return s.handles }

// AddLayer appends l on top of the scene.
func (s *Scene) AddLayer(l *Layer) {
	l.scene = s
	s.layers = append(s.layers, l)
	s.changed()
}

// RemoveLayer detaches l. It returns false if l is not in the scene.
func (s *Scene) RemoveLayer(l *Layer) bool {
	i := s.Index(l)
	if i < 0 {
		return false
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	l.scene = nil
	if s.handles.Target == l.ID {
		s.handles.Target = ""
	}
	if s.State.SelectedID == l.ID {
		s.State.SelectedID = ""
	}
	if s.State.WarpTargetID == l.ID {
		s.State.WarpTargetID = ""
	}
	s.changed()
	return true
}

// Index returns the paint-order position of l, or -1.
func (s *Scene) Index(l *Layer) int {
	for i, o := range s.layers {
		if o == l {
			return i
		}
	}
	return -1
}

// Layer looks up a layer by id.
func (s *Scene) Layer(id string) *Layer {
	if id == "" {
		return nil
	}
	for _, l := range s.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Selected returns the layer carrying the selection marker.
func (s *Scene) Selected() *Layer { return s.Layer(s.State.SelectedID) }

// SelectOnly makes l the only selected layer and attaches the transform
// handles to it. A nil layer clears the selection.
func (s *Scene) SelectOnly(l *Layer) {
	if l == nil {
		s.State.SelectedID = ""
		s.handles.Target = ""
	} else {
		s.State.SelectedID = l.ID
		s.handles.Target = l.ID
	}
	s.changed()
}

// Mark sets the selection marker without attaching the transform handles.
func (s *Scene) Mark(l *Layer) {
	s.State.SelectedID = ""
	if l != nil {
		s.State.SelectedID = l.ID
	}
	s.handles.Target = ""
	s.changed()
}

// TopmostAt returns the highest layer containing p, or nil.
func (s *Scene) TopmostAt(p Point) *Layer {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if s.layers[i].Contains(p) {
			return s.layers[i]
		}
	}
	return nil
}

// LayersAt returns every layer containing p, bottom first.
func (s *Scene) LayersAt(p Point) []*Layer {
	var out []*Layer
	for _, l := range s.layers {
		if l.Contains(p) {
			out = append(out, l)
		}
	}
	return out
}

// MoveUp swaps l with the layer above it.
func (s *Scene) MoveUp(l *Layer) bool {
	i := s.Index(l)
	if i < 0 || i >= len(s.layers)-1 {
		return false
	}
	s.layers[i], s.layers[i+1] = s.layers[i+1], s.layers[i]
	s.changed()
	return true
}

// MoveDown swaps l with the layer below it.
func (s *Scene) MoveDown(l *Layer) bool {
	i := s.Index(l)
	if i <= 0 {
		return false
	}
	s.layers[i], s.layers[i-1] = s.layers[i-1], s.layers[i]
	s.changed()
	return true
}

// Clear detaches every layer and hides all overlays.
func (s *Scene) Clear() {
	for _, l := range s.layers {
		l.scene = nil
	}
	s.layers = nil
	s.handles.Target = ""
	s.State.SelectedID = ""
	s.State.WarpTargetID = ""
	s.changed()
}

// Redraw requests a repaint.
func (s *Scene) Redraw() {
	s.revision++
	if s.onRedraw != nil {
		s.onRedraw()
	}
}

// changed is called after every structural mutation.
func (s *Scene) changed() {
	s.Redraw()
	if s.onChange != nil {
		s.onChange()
	}
}

// detach releases every layer without notifying listeners. Used when the
// scene is replaced wholesale.
func (s *Scene) detach() {
	for _, l := range s.layers {
		l.scene = nil
	}
}
