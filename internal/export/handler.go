package export

import (
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/interiorcollage/collage/internal/engine"
	"github.com/interiorcollage/collage/internal/session"
)

// Sessions resolves the session an export request is for.
type Sessions interface {
	Authorize(id, token string) (*session.Session, error)
}

type Handler struct {
	sessions Sessions
}

func NewHandler(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

// Export serves GET /api/sessions/{id}/export?format=png|pdf&token=&name=.
// Overlays are stripped from the live session, which receives the new
// frame, before the scene is flattened.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "pdf" {
		http.Error(w, "invalid format: must be png or pdf", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Authorize(mux.Vars(r)["id"], q.Get("token"))
	if err != nil {
		session.WriteError(w, err)
		return
	}

	var (
		img   *image.NRGBA
		ratio float64
	)
	sess.Update(func(ed *engine.Editor) error {
		img = ed.Export()
		ratio = ed.Options().ExportPixelRatio
		return nil
	})

	name := sanitize(q.Get("name"))
	var (
		data        []byte
		contentType string
	)
	switch format {
	case "pdf":
		data, err = PDF(img, ratio, name)
		contentType = "application/pdf"
	default:
		data, err = PNG(img)
		contentType = "image/png"
	}
	if err != nil {
		slog.Error("export failed", "session", sess.ID, "format", format, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	slog.Info("collage exported", "session", sess.ID, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy(), "bytes", len(data))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// sanitize keeps name safe for a Content-Disposition filename.
func sanitize(name string) string {
	if name == "" {
		return "collage"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
