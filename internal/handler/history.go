package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/history"
)

const defaultHistoryLimit = 100

// HistoryHandler serves the activity ledger.
type HistoryHandler struct {
	history *history.Store
	logger  *slog.Logger
}

func NewHistoryHandler(hs *history.Store, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: hs, logger: logger}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := history.Filter{
		KidID:   q.Get("kid_id"),
		ChoreID: q.Get("chore_id"),
		Type:    q.Get("type"),
		Limit:   defaultHistoryLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			errorJSON(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		f.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		f.Until = t
	}

	events, err := h.history.List(f)
	if err != nil {
		h.logger.Error("list history", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *HistoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().AddDate(0, 0, -7)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = t
	}
	counts, err := h.history.CountByType(since)
	if err != nil {
		h.logger.Error("history summary", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":  since,
		"counts": counts,
	})
}
