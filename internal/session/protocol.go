package session

import (
	"encoding/json"

	"github.com/interiorcollage/collage/internal/engine"
)

// Message is the envelope for every WebSocket frame in both directions.
// Seq is chosen by the browser and echoed on the reply.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Browser -> server
	TypeCommand  = "command"
	TypeImageAdd = "image.add"
	TypeSync     = "sync"

	// Server -> browser
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeError   = "error"
)

// WelcomePayload is sent once after the socket is accepted. Token resumes
// the session from a later connection.
type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	Token     string `json:"token"`
	Resumed   bool   `json:"resumed"`
	Frame     Frame  `json:"frame"`
}

// ImageAddPayload places a catalog product or a remote image on the
// canvas. ProductID wins when both are set.
type ImageAddPayload struct {
	ProductID int64  `json:"productId,omitempty"`
	URL       string `json:"url,omitempty"`
	Name      string `json:"name,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Frame is everything the browser needs to repaint the editor.
type Frame struct {
	Revision  uint64               `json:"revision"`
	Width     float64              `json:"width"`
	Height    float64              `json:"height"`
	Mode      engine.Mode          `json:"mode"`
	Indicator string               `json:"indicator"`
	Commands  []engine.DrawCommand `json:"commands"`
	Panel     []engine.PanelItem   `json:"panel"`
	CanUndo   bool                 `json:"canUndo"`
	CanRedo   bool                 `json:"canRedo"`
}

func frameOf(ed *engine.Editor) Frame {
	s := ed.Scene()
	cmds := ed.DrawCommands()
	if cmds == nil {
		cmds = []engine.DrawCommand{}
	}
	panel := ed.Panel()
	if panel == nil {
		panel = []engine.PanelItem{}
	}
	return Frame{
		Revision:  s.Revision(),
		Width:     s.Width,
		Height:    s.Height,
		Mode:      ed.Mode(),
		Indicator: ed.Indicator(),
		Commands:  cmds,
		Panel:     panel,
		CanUndo:   ed.History().CanUndo(),
		CanRedo:   ed.History().CanRedo(),
	}
}

func newMessage(typ string, seq int64, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Seq: seq, Payload: data}, nil
}
