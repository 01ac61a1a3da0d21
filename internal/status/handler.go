// Package status exposes the read-only reporting surface: service health
// and a queue/creator snapshot for external dashboards.
package status

import (
	"encoding/json"
	"log"
	"net/http"

	"creatorsync/internal/pipeline"
)

// Handler serves /health and /status.
type Handler struct {
	svc     *pipeline.Service
	version string
}

// NewHandler returns a configured Handler.
func NewHandler(svc *pipeline.Service, version string) *Handler {
	return &Handler{svc: svc, version: version}
}

// RegisterRoutes mounts the routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "creatorsync",
		"version": h.version,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.svc.Report(r.Context())
	if err != nil {
		log.Printf("[status] report error: %v", err)
		jsonError(w, "report unavailable", http.StatusInternalServerError)
		return
	}
	jsonOK(w, report)
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
