package handler

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/config"
	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// DiagnosticsHandler serves a support export and admin operations.
type DiagnosticsHandler struct {
	coord   *coordinator.Coordinator
	cfg     *config.Config
	started time.Time
	version string
	logger  *slog.Logger
}

func NewDiagnosticsHandler(coord *coordinator.Coordinator, cfg *config.Config, version string, logger *slog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		coord:   coord,
		cfg:     cfg,
		started: time.Now().UTC(),
		version: version,
		logger:  logger,
	}
}

// Export bundles the full document with the effective (secret-free) settings
// so one download is enough to reproduce a reported problem.
func (h *DiagnosticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	raw, err := h.coord.Store().Snapshot()
	if err != nil {
		h.logger.Error("diagnostics snapshot", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to snapshot document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": time.Now().UTC(),
		"version":      h.version,
		"go_version":   runtime.Version(),
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"settings":     h.settings(),
		"document":     raw,
	})
}

func (h *DiagnosticsHandler) settings() map[string]any {
	return map[string]any{
		"port":            h.cfg.Port,
		"data_dir":        h.cfg.DataDir,
		"log_level":       h.cfg.LogLevel,
		"log_json":        h.cfg.LogJSON,
		"sweep_interval":  h.cfg.SweepInterval.String(),
		"push_configured": h.cfg.VAPIDPublicKey != "" && h.cfg.VAPIDPrivateKey != "",
		"backup_enabled":  h.cfg.Backup.Enabled,
		"backup_interval": h.cfg.Backup.Interval.String(),
		"backup_offsite":  h.cfg.Backup.S3Bucket != "",
	}
}

const notificationLogLimit = 50

// Notifications returns the most recent entries of the in-document
// notification log, newest first.
func (h *DiagnosticsHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	out := []model.Notification{}
	h.coord.Store().View(func(doc *model.Document) {
		n := len(doc.Notifications)
		start := n - notificationLogLimit
		if start < 0 {
			start = 0
		}
		for i := n - 1; i >= start; i-- {
			out = append(out, doc.Notifications[i])
		}
	})
	writeJSON(w, http.StatusOK, out)
}

// Reset wipes all data after taking a safety backup.
func (h *DiagnosticsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.ResetAllData(); err != nil {
		h.logger.Error("reset", "error", err)
		errorJSON(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
