package asset

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/interiorcollage/collage/internal/catalog"
)

// Handler serves product images and the image proxy.
type Handler struct {
	loader  *Loader
	fetcher *Fetcher
}

func NewHandler(loader *Loader, fetcher *Fetcher) *Handler {
	return &Handler{loader: loader, fetcher: fetcher}
}

// Image handles GET /api/image/{id}.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	data, ct, err := h.loader.Bytes(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		slog.Warn("product image unavailable", "product", id, "error", err)
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	writeImage(w, ct, data)
}

// Proxy handles GET /api/proxy?url=, relaying remote images so the
// browser can read their pixels.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	data, ct, err := h.fetcher.Fetch(r.Context(), r.URL.Query().Get("url"))
	switch {
	case errors.Is(err, ErrBadURL):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Warn("proxy fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	writeImage(w, ct, data)
}

func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
