package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Products serves GET /api/products?search=&category=&limit=&offset=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := Query{Search: v.Get("search"), Category: v.Get("category")}

	var err error
	if q.Limit, err = intParam(v.Get("limit")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
		return
	}
	if q.Offset, err = intParam(v.Get("offset")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be an integer"})
		return
	}

	products, err := h.service.List(r.Context(), q)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Categories serves GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// DBInfo serves GET /api/debug/db-info.
func (h *Handler) DBInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Info(r.Context()))
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("catalog error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
