package handler

import (
	"log/slog"
	"net/http"

	"github.com/kestrelhouse/chorekeep/internal/dashboard"
)

// DashboardHandler serves the dashboard layout template.
type DashboardHandler struct {
	fetcher *dashboard.Fetcher
	logger  *slog.Logger
}

func NewDashboardHandler(f *dashboard.Fetcher, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{fetcher: f, logger: logger}
}

func (h *DashboardHandler) Template(w http.ResponseWriter, r *http.Request) {
	tpl := h.fetcher.Current()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Template-Version", tpl.Version)
	w.Header().Set("X-Template-Source", tpl.Source)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(tpl.Body); err != nil {
		h.logger.Debug("write template", "error", err)
	}
}

func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.fetcher.Refresh(r.Context()); err != nil {
		h.logger.Warn("template refresh", "error", err)
		errorJSON(w, http.StatusBadGateway, "template refresh failed")
		return
	}
	tpl := h.fetcher.Current()
	writeJSON(w, http.StatusOK, map[string]string{
		"version": tpl.Version,
		"source":  tpl.Source,
	})
}
