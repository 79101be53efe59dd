package engine

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")

// Key is a keyboard event. TextFocus is set when a text field owns the
// keyboard.
type Key struct {
	Key       string `json:"key"`
	Ctrl      bool   `json:"ctrl,omitempty"`
	Meta      bool   `json:"meta,omitempty"`
	Shift     bool   `json:"shift,omitempty"`
	TextFocus bool   `json:"textFocus,omitempty"`
}

// KeyDown handles editor shortcuts and reports whether the key was
// consumed.
func (ed *Editor) KeyDown(k Key) bool {
	if k.Key == "Escape" {
		if ed.Mode() == ModeEraser {
			ed.SetMode(ModeNormal)
			return true
		}
		return false
	}
	if k.TextFocus {
		return false
	}

	mod := k.Ctrl || k.Meta
	switch key := strings.ToLower(k.Key); {
	case key == "delete" || key == "backspace":
		if isSelectMode(ed.Mode()) && ed.selection.HasMask() {
			return ed.DeleteSelection()
		}
		return ed.DeleteSelected()
	case mod && key == "z" && k.Shift, mod && key == "y":
		ed.Redo()
		return true
	case mod && key == "z":
		ed.Undo()
		return true
	case mod && key == "c":
		if isSelectMode(ed.Mode()) && ed.selection.HasMask() {
			return ed.CopySelection()
		}
		return false
	case mod && key == "v":
		if ed.selection.Clipboard() == nil {
			return false
		}
		return ed.PasteSelection() != nil
	case mod && key == "t":
		ed.ToggleWarp()
		return true
	}
	return false
}

// Command is a serialized editor operation received from a front end.
type Command struct {
	Op      string  `json:"op"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Key     *Key    `json:"key,omitempty"`
	Mode    Mode    `json:"mode,omitempty"`
	LayerID string  `json:"layerId,omitempty"`
	Radius  float64 `json:"radius,omitempty"`
	Angles  *Angles `json:"angles,omitempty"`
}

// Apply executes cmd against the editor and applies any finished bitmap
// edits.
func (ed *Editor) Apply(cmd Command) error {
	defer ed.Pump()

	switch cmd.Op {
	case "pointer.down":
		ed.PointerDown(cmd.X, cmd.Y)
	case "pointer.move":
		ed.PointerMove(cmd.X, cmd.Y)
	case "pointer.up":
		ed.PointerUp(cmd.X, cmd.Y)
	case "key":
		if cmd.Key == nil {
			return fmt.Errorf("%w: key event without key", ErrUnknownCommand)
		}
		ed.KeyDown(*cmd.Key)
	case "mode.set":
		ed.SetMode(cmd.Mode)
	case "mode.toggle":
		switch cmd.Mode {
		case ModeWarp:
			ed.ToggleWarp()
		case ModeEraser:
			ed.ToggleEraser()
		case ModeSelectRect:
			ed.ToggleSelect(SelectRect)
		case ModeSelectLasso:
			ed.ToggleSelect(SelectLasso)
		default:
			return fmt.Errorf("%w: toggle %q", ErrUnknownCommand, cmd.Mode)
		}
	case "eraser.radius":
		ed.SetEraserRadius(cmd.Radius)
	case "layer.select":
		return ed.SelectLayer(cmd.LayerID)
	case "layer.duplicate":
		_, err := ed.Duplicate(cmd.LayerID)
		return err
	case "layer.up":
		return ed.MoveUp(cmd.LayerID)
	case "layer.down":
		return ed.MoveDown(cmd.LayerID)
	case "layer.delete":
		return ed.DeleteLayer(cmd.LayerID)
	case "delete":
		ed.DeleteSelected()
	case "clear":
		ed.Clear()
	case "undo":
		if !ed.Undo() {
			return ErrNothingToUndo
		}
	case "redo":
		if !ed.Redo() {
			return ErrNothingToRedo
		}
	case "selection.copy":
		ed.CopySelection()
	case "selection.delete":
		ed.DeleteSelection()
	case "selection.paste":
		ed.PasteSelection()
	case "warp.angles":
		if cmd.Angles == nil {
			return fmt.Errorf("%w: warp.angles without angles", ErrUnknownCommand)
		}
		return ed.ApplyAngles(*cmd.Angles)
	case "warp.reset":
		return ed.ResetWarp()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}
	return nil
}
