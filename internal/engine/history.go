package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/interiorcollage/collage/internal/document"
	"github.com/interiorcollage/collage/internal/typeid"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

type historyEntry struct {
	data []byte
	refs []string
}

// History is a bounded list of serialized scene snapshots with a cursor.
// The entry at the cursor is the state the scene was last restored to or
// captured from. When tipIsLive is false, the newest entry is the state
// before the most recent action and the live scene has not been captured.
type History struct {
	ed        *Editor
	limit     int
	entries   []historyEntry
	cursor    int
	tipIsLive bool
	log       *slog.Logger
}

func newHistory(ed *Editor, limit int) *History {
	return &History{ed: ed, limit: limit, cursor: -1, log: ed.log}
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// CanUndo reports whether Undo would change the scene.
func (h *History) CanUndo() bool {
	if len(h.entries) == 0 {
		return false
	}
	if h.cursor == len(h.entries)-1 && !h.tipIsLive {
		return true
	}
	return h.cursor > 0
}

// CanRedo reports whether Redo would change the scene.
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

// Snapshot records the current scene before a mutating action. Entries
// after the cursor are discarded. Only Snapshot evicts, so the captured
// live tip may take the list to limit+1 entries and every stored state
// stays reachable by Undo.
func (h *History) Snapshot() {
	e, err := h.ed.capture()
	if err != nil {
		h.log.Error("history snapshot failed", "error", err)
		return
	}
	keep := h.cursor + 1
	if h.tipIsLive {
		// The cursor entry already mirrors the live scene.
		keep = h.cursor
	}
	h.entries = append(h.entries[:keep], e)
	h.cursor = len(h.entries) - 1
	h.tipIsLive = false
	h.evict()
	h.collect()
}

// Undo restores the previous state. On the first undo after an action the
// live scene is captured so that Redo can return to it.
func (h *History) Undo() bool {
	if len(h.entries) == 0 {
		h.log.Info("nothing to undo")
		return false
	}
	if h.cursor == len(h.entries)-1 && !h.tipIsLive {
		live, err := h.ed.capture()
		if err != nil {
			h.log.Error("capture live state failed", "error", err)
			return false
		}
		h.entries = append(h.entries, live)
		h.cursor = len(h.entries) - 1
		h.tipIsLive = true
	}
	if h.cursor <= 0 {
		h.log.Info("nothing to undo")
		return false
	}
	if err := h.restore(h.cursor - 1); err != nil {
		h.log.Error("undo failed", "error", err)
		return false
	}
	h.cursor--
	h.collect()
	return true
}

// Redo moves forward to the state undone most recently.
func (h *History) Redo() bool {
	if h.cursor >= len(h.entries)-1 {
		h.log.Info("nothing to redo")
		return false
	}
	if err := h.restore(h.cursor + 1); err != nil {
		h.log.Error("redo failed", "error", err)
		return false
	}
	h.cursor++
	return true
}

func (h *History) restore(i int) error {
	snap, err := document.Decode(h.entries[i].data)
	if err != nil {
		return fmt.Errorf("decode entry %d: %w", i, err)
	}
	h.ed.replaceScene(h.ed.Rehydrate(snap))
	return nil
}

func (h *History) evict() {
	for len(h.entries) > h.limit {
		h.entries = h.entries[1:]
		h.cursor--
	}
}

// collect drops bitmaps that are no longer reachable.
func (h *History) collect() {
	keep := make(map[string]struct{})
	for _, e := range h.entries {
		for _, ref := range e.refs {
			keep[ref] = struct{}{}
		}
	}
	for _, l := range h.ed.scene.layers {
		if bmp := l.Bitmap(); bmp != nil {
			keep[h.ed.store.Ref(bmp)] = struct{}{}
		}
	}
	h.ed.store.Retain(keep)
}

// capture serializes the live scene.
func (ed *Editor) capture() (historyEntry, error) {
	s := ed.scene
	snap := document.NewEmptySnapshot(typeid.NewSnapshotID(), s.Width, s.Height)
	snap.Selected = s.State.SelectedID

	for _, l := range s.layers {
		dl := document.Layer{
			ID:   l.ID,
			Name: l.Name,
			Transform: document.Transform{
				X: l.X, Y: l.Y, SX: l.ScaleX, SY: l.ScaleY, R: l.Rotation,
			},
			Width:     l.Width,
			Height:    l.Height,
			Draggable: l.Draggable,
			Bitmap:    ed.store.Put(l.Bitmap()),
		}
		if l.Warp != nil {
			w := &document.Warp{}
			for i, c := range l.Warp.Corners {
				w.Corners[i] = document.Point{X: c.X, Y: c.Y}
			}
			if a := l.Warp.Angles; a != nil {
				w.Angles = &document.Angles{X: a.X, Y: a.Y, Z: a.Z}
			}
			dl.Warp = w
		}
		snap.Layers = append(snap.Layers, dl)
	}

	data, err := document.Encode(snap)
	if err != nil {
		return historyEntry{}, err
	}
	return historyEntry{data: data, refs: snap.Refs()}, nil
}
