package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/period"
)

// KidHandler serves kid CRUD and per-kid stats.
type KidHandler struct {
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

func NewKidHandler(coord *coordinator.Coordinator, logger *slog.Logger) *KidHandler {
	return &KidHandler{coord: coord, logger: logger}
}

type kidRequest struct {
	Name                string `json:"name" validate:"required,max=100"`
	EnableNotifications *bool  `json:"enable_notifications"`
}

// kidView is the API shape of a kid; tracking internals stay server-side.
type kidView struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Points              float64  `json:"points"`
	BadgeCount          int      `json:"badge_count"`
	OverdueChores       []string `json:"overdue_chores"`
	EnableNotifications bool     `json:"enable_notifications"`
	PointsToday         float64  `json:"points_today"`
	PointsThisWeek      float64  `json:"points_this_week"`
	ApprovedAllTime     int      `json:"approved_all_time"`
}

func (h *KidHandler) view(kid *model.Kid, now time.Time) kidView {
	v := kidView{
		ID:                  kid.ID,
		Name:                kid.Name,
		Points:              kid.Points,
		BadgeCount:          len(kid.BadgesEarned),
		OverdueChores:       kid.OverdueChores,
		EnableNotifications: kid.EnableNotifications,
		ApprovedAllTime:     kid.PointData.Total().Approved,
	}
	if day := kid.PointData.Current(period.Daily, now); day != nil {
		v.PointsToday = day.Points
	}
	if week := kid.PointData.Current(period.Weekly, now); week != nil {
		v.PointsThisWeek = week.Points
	}
	if v.OverdueChores == nil {
		v.OverdueChores = []string{}
	}
	return v
}

func (h *KidHandler) List(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	out := []kidView{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, kid := range doc.Kids {
			out = append(out, h.view(kid, now))
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *KidHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var (
		found bool
		v     kidView
	)
	now := time.Now().UTC()
	h.coord.Store().View(func(doc *model.Document) {
		if kid, ok := doc.Kids[id]; ok {
			found = true
			v = h.view(kid, now)
		}
	})
	if !found {
		errorJSON(w, http.StatusNotFound, "kid not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Stats returns the kid's full period aggregates.
func (h *KidHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var (
		found bool
		out   any
	)
	h.coord.Store().View(func(doc *model.Document) {
		kid, ok := doc.Kids[id]
		if !ok {
			return
		}
		found = true
		out = map[string]any{
			"point_data": kid.PointData,
			"chore_data": kid.ChoreData,
			"badges":     kid.BadgesEarned,
		}
	})
	if !found {
		errorJSON(w, http.StatusNotFound, "kid not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *KidHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req kidRequest
	if !decodeValid(w, r, &req) {
		return
	}

	id, err := h.coord.AddKid(req.Name)
	if err != nil {
		h.logger.Error("create kid", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to create kid")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *KidHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req kidRequest
	if !decodeValid(w, r, &req) {
		return
	}

	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		kid, ok := doc.Kids[id]
		if !ok {
			return nil
		}
		found = true
		kid.Name = req.Name
		if req.EnableNotifications != nil {
			kid.EnableNotifications = *req.EnableNotifications
		}
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update kid")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "kid not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *KidHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.coord.RemoveKid(id); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
