package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/interiorcollage/collage/internal/engine"
	"github.com/interiorcollage/collage/internal/typeid"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live sessions. Sessions without a connection are
// reaped once they have been idle for longer than the idle timeout.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	newEditor func() *engine.Editor
	tokens    *Tokens
	idle      time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewManager(newEditor func() *engine.Editor, tokens *Tokens, idle time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		newEditor: newEditor,
		tokens:    tokens,
		idle:      idle,
		now:       time.Now,
		log:       log,
	}
}

// Create starts a session with an empty canvas and returns it with its
// resume token.
func (m *Manager) Create() (*Session, string, error) {
	sess := newSession(typeid.NewSessionID(), m.newEditor(), m.now)
	token, err := m.tokens.Issue(sess.ID)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	n := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("session created", "session", sess.ID, "sessions", n)
	return sess, token, nil
}

// Resume looks up the session named by token and issues a fresh token
// for it.
func (m *Manager) Resume(token string) (*Session, string, error) {
	id, err := m.tokens.Validate(token)
	if err != nil {
		return nil, "", err
	}
	sess, err := m.Get(id)
	if err != nil {
		return nil, "", err
	}
	next, err := m.tokens.Issue(id)
	if err != nil {
		return nil, "", err
	}
	return sess, next, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Authorize returns the session named id if token was issued for it.
func (m *Manager) Authorize(id, token string) (*Session, error) {
	sub, err := m.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if sub != id {
		return nil, fmt.Errorf("%w: token is for another session", ErrInvalidToken)
	}
	return m.Get(id)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) attach(sess *Session, c *Client) {
	if prev := sess.attach(c); prev != nil {
		m.log.Info("session taken over by a new connection", "session", sess.ID, "client", prev.ClientID)
		prev.kick()
	}
	m.log.Info("client attached", "session", sess.ID, "client", c.ClientID)
}

func (m *Manager) detach(sess *Session, c *Client) {
	sess.detach(c)
	c.close()
	m.log.Info("client detached", "session", sess.ID, "client", c.ClientID)
}

// Reap drops disconnected sessions idle for longer than the idle timeout
// and reports how many were removed.
func (m *Manager) Reap() int {
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for id, sess := range m.sessions {
		last, free := sess.idleSince()
		if free && last.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.log.Info("reaped idle sessions", "count", n, "remaining", len(m.sessions))
	}
	return n
}

// Run reaps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	period := max(m.idle/4, time.Second)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Reap()
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown closes every live connection.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	var clients []*Client
	for _, sess := range m.sessions {
		sess.mu.Lock()
		if sess.client != nil {
			clients = append(clients, sess.client)
		}
		sess.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
