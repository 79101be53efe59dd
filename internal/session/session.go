package session

import (
	"image"
	"sync"
	"time"

	"github.com/interiorcollage/collage/internal/engine"
)

// Session is one server-hosted editor. All access to the editor goes
// through the session lock.
type Session struct {
	ID string

	mu         sync.Mutex
	editor     *engine.Editor
	client     *Client
	lastActive time.Time
	now        func() time.Time
}

func newSession(id string, ed *engine.Editor, now func() time.Time) *Session {
	return &Session{ID: id, editor: ed, lastActive: now(), now: now}
}

// Run executes fn on the editor, waits for pending bitmap edits and
// returns the resulting frame. The frame is returned even when fn fails.
func (s *Session) Run(fn func(ed *engine.Editor) error) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.editor)
	s.editor.Flush()
	s.lastActive = s.now()
	return frameOf(s.editor), err
}

// Update is Run for changes that do not originate from the session's
// socket. The attached client receives the new frame.
func (s *Session) Update(fn func(ed *engine.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.editor)
	s.editor.Flush()
	s.lastActive = s.now()
	if s.client != nil {
		if msg, merr := newMessage(TypeFrame, 0, frameOf(s.editor)); merr == nil {
			s.client.Send(msg)
		}
	}
	return err
}

// Frame returns the current frame without touching the editor.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frameOf(s.editor)
}

// Bitmap resolves a bitmap reference from the session's last frame.
func (s *Session) Bitmap(ref string) (*image.NRGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Bitmap(ref)
}

// EncodedBitmap returns the served bytes and content type of a bitmap.
func (s *Session) EncodedBitmap(ref string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.EncodedBitmap(ref)
}

// attach makes c the session's only connection and returns the client it
// replaced, if any.
func (s *Session) attach(c *Client) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.client
	s.client = c
	s.lastActive = s.now()
	return prev
}

func (s *Session) detach(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == c {
		s.client = nil
	}
	s.lastActive = s.now()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.client == nil
}
