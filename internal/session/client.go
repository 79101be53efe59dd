package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/interiorcollage/collage/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

var errNoImageSource = errors.New("image.add needs a productId or url")

// ImageLoader resolves images for image.add messages.
type ImageLoader interface {
	Product(ctx context.Context, id int64) (image.Image, error)
	URL(ctx context.Context, rawURL string) (image.Image, error)
}

type Client struct {
	manager *Manager
	session *Session
	loader  ImageLoader
	conn    *websocket.Conn
	log     *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	ClientID string
}

func NewClient(manager *Manager, sess *Session, loader ImageLoader, conn *websocket.Conn, clientID string) *Client {
	return &Client{
		manager:  manager,
		session:  sess,
		loader:   loader,
		conn:     conn,
		log:      manager.log.With("session", sess.ID, "client", clientID),
		send:     make(chan []byte, 256),
		ClientID: clientID,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.manager.detach(c.session, c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			c.log.Debug("read error", "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("invalid message", "error", err)
			c.sendError(0, "invalid message")
			continue
		}
		c.handleMessage(ctx, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.log.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg for the write pump. Messages sent after the client has
// gone away are dropped.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("client send buffer full, dropping message", "type", msg.Type)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// kick ends a connection that another tab has taken over.
func (c *Client) kick() {
	go c.conn.Close(websocket.StatusPolicyViolation, "session opened elsewhere")
}

func (c *Client) handleMessage(ctx context.Context, msg *Message) {
	switch msg.Type {
	case TypeCommand:
		var cmd engine.Command
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			c.sendError(msg.Seq, "invalid command payload")
			return
		}
		c.run(msg.Seq, func(ed *engine.Editor) error { return ed.Apply(cmd) })

	case TypeImageAdd:
		var p ImageAddPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(msg.Seq, "invalid image.add payload")
			return
		}
		img, err := c.loadImage(ctx, p)
		if err != nil {
			c.log.Warn("image load failed", "product", p.ProductID, "url", p.URL, "error", err)
			c.sendError(msg.Seq, fmt.Sprintf("image load failed: %v", err))
			return
		}
		c.run(msg.Seq, func(ed *engine.Editor) error {
			_, err := ed.AddImage(img, p.Name)
			return err
		})

	case TypeSync:
		c.sendFrame(msg.Seq, c.session.Frame())

	default:
		c.log.Warn("unknown message type", "type", msg.Type)
		c.sendError(msg.Seq, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// run applies fn and replies with an error, if any, followed by the frame.
func (c *Client) run(seq int64, fn func(ed *engine.Editor) error) {
	frame, err := c.session.Run(fn)
	if err != nil {
		c.log.Debug("command rejected", "error", err)
		c.sendError(seq, err.Error())
	}
	c.sendFrame(seq, frame)
}

func (c *Client) loadImage(ctx context.Context, p ImageAddPayload) (image.Image, error) {
	switch {
	case p.ProductID > 0:
		return c.loader.Product(ctx, p.ProductID)
	case p.URL != "":
		return c.loader.URL(ctx, p.URL)
	default:
		return nil, errNoImageSource
	}
}

func (c *Client) sendWelcome(token string, resumed bool) {
	msg, err := newMessage(TypeWelcome, 0, WelcomePayload{
		SessionID: c.session.ID,
		ClientID:  c.ClientID,
		Token:     token,
		Resumed:   resumed,
		Frame:     c.session.Frame(),
	})
	if err != nil {
		c.log.Error("marshal welcome", "error", err)
		return
	}
	msg.SessionID = c.session.ID
	msg.ClientID = c.ClientID
	c.Send(msg)
}

func (c *Client) sendFrame(seq int64, frame Frame) {
	msg, err := newMessage(TypeFrame, seq, frame)
	if err != nil {
		c.log.Error("marshal frame", "error", err)
		return
	}
	c.Send(msg)
}

func (c *Client) sendError(seq int64, text string) {
	msg, err := newMessage(TypeError, seq, ErrorPayload{Message: text})
	if err != nil {
		return
	}
	c.Send(msg)
}
