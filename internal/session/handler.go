package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/interiorcollage/collage/internal/engine"
)

type Handler struct {
	manager *Manager
	loader  ImageLoader
	origins []string
}

// NewHandler serves session sockets. origins lists the allowed browser
// origins as full URLs or bare hosts.
func NewHandler(manager *Manager, loader ImageLoader, origins []string) *Handler {
	return &Handler{manager: manager, loader: loader, origins: originPatterns(origins)}
}

// ServeWS handles /ws/session. A valid ?token= resumes its session; a
// token for a session that no longer exists starts a new one.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sess, token, resumed, err := h.open(r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	case err != nil:
		slog.Error("open session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.manager, sess, h.loader, conn, uuid.New().String())
	h.manager.attach(sess, client)
	client.sendWelcome(token, resumed)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func (h *Handler) open(token string) (*Session, string, bool, error) {
	if token != "" {
		sess, next, err := h.manager.Resume(token)
		if err == nil {
			return sess, next, true, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, "", false, err
		}
	}
	sess, next, err := h.manager.Create()
	return sess, next, false, err
}

// Bitmap serves GET /api/sessions/{id}/bitmaps/{ref}?token= in the
// editor's bitmap codec.
func (h *Handler) Bitmap(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.manager.Authorize(vars["id"], r.URL.Query().Get("token"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data, contentType, err := sess.EncodedBitmap(vars["ref"])
	if errors.Is(err, engine.ErrNoBitmap) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bitmap not found"})
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleServiceError maps session errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	default:
		slog.Error("session error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// WriteError writes err the way session handlers do.
func WriteError(w http.ResponseWriter, err error) { handleServiceError(w, err) }

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// originPatterns turns origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
