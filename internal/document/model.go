package document

// Version is the snapshot schema version written by Encode.
const Version = 1

// Snapshot is the serialized state of an editor scene. Bitmaps are stored
// out of band and referenced by content hash.
type Snapshot struct {
	Version  int     `json:"version"`
	ID       string  `json:"id"`
	Canvas   Size    `json:"canvas"`
	Selected string  `json:"selected,omitempty"`
	Layers   []Layer `json:"layers"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Transform struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	SX float64 `json:"sx"`
	SY float64 `json:"sy"`
	R  float64 `json:"r"`
}

// Layer is one image layer in paint order (bottom first).
type Layer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Transform Transform `json:"transform"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Draggable bool      `json:"draggable"`
	Bitmap    string    `json:"bitmap,omitempty"`
	Warp      *Warp     `json:"warp,omitempty"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Angles struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Warp holds perspective corners in TL, TR, BL, BR order, in layer-local
// display units.
type Warp struct {
	Corners [4]Point `json:"corners"`
	Angles  *Angles  `json:"angles,omitempty"`
}

// NewEmptySnapshot creates a snapshot of an empty canvas.
func NewEmptySnapshot(id string, width, height float64) *Snapshot {
	return &Snapshot{
		Version: Version,
		ID:      id,
		Canvas:  Size{Width: width, Height: height},
		Layers:  []Layer{},
	}
}

// Refs returns the bitmap references used by the snapshot.
func (s *Snapshot) Refs() []string {
	refs := make([]string, 0, len(s.Layers))
	for _, l := range s.Layers {
		if l.Bitmap != "" {
			refs = append(refs, l.Bitmap)
		}
	}
	return refs
}
