package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kestrelhouse/chorekeep/internal/backup"
	"github.com/kestrelhouse/chorekeep/internal/store"
)

// BackupHandler serves backup listing, manual creation and restore.
type BackupHandler struct {
	store   *store.Store
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(st *store.Store, manager *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{store: st, manager: manager, logger: logger}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.store.ListBackups()
	if err != nil {
		h.logger.Error("list backups", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	name, err := h.manager.Run(r.Context(), store.TagManual)
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		errorJSON(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

type restoreRequest struct {
	Name string `json:"name" validate:"required"`
}

// Restore replaces the live document with the named backup and exits the
// process so the supervisor restarts it against the restored file. The
// response is written before Restore is called because Restore does not
// return on success.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !decodeValid(w, r, &req) {
		return
	}
	// Backup names are constructed server-side; reject anything path-like.
	if strings.ContainsAny(req.Name, "/\\") || strings.Contains(req.Name, "..") {
		errorJSON(w, http.StatusBadRequest, "invalid backup name")
		return
	}
	h.logger.Info("restoring backup", "name", req.Name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarting"})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if err := h.manager.Restore(req.Name); err != nil {
		h.logger.Error("restore failed", "name", req.Name, "error", err)
	}
}
