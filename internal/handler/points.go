package handler

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// PointsHandler serves penalty and bonus definitions and their application.
type PointsHandler struct {
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

func NewPointsHandler(coord *coordinator.Coordinator, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{coord: coord, logger: logger}
}

type adjustmentRequest struct {
	Name   string  `json:"name" validate:"required,max=200"`
	Icon   string  `json:"icon"`
	Points float64 `json:"points" validate:"gt=0"`
}

func (h *PointsHandler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	out := []*model.Penalty{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, p := range doc.Penalties {
			out = append(out, p)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *PointsHandler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	// Penalties are stored negative regardless of how the client sends them.
	p := &model.Penalty{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Icon:      req.Icon,
		Points:    -model.RoundPoints(math.Abs(req.Points)),
		CreatedAt: time.Now().UTC(),
	}
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Penalties[p.ID] = p
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create penalty")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PointsHandler) UpdatePenalty(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req adjustmentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var updated *model.Penalty
	err := h.coord.Store().Update(func(doc *model.Document) error {
		p, ok := doc.Penalties[id]
		if !ok {
			return nil
		}
		p.Name = req.Name
		p.Icon = req.Icon
		p.Points = -model.RoundPoints(math.Abs(req.Points))
		updated = p
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update penalty")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "penalty not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PointsHandler) DeletePenalty(w http.ResponseWriter, r *http.Request) {
	h.deleteDefinition(w, r, func(doc *model.Document, id string) bool {
		if _, ok := doc.Penalties[id]; !ok {
			return false
		}
		delete(doc.Penalties, id)
		return true
	}, "penalty not found")
}

func (h *PointsHandler) ApplyPenalty(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.ApplyPenalty(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (h *PointsHandler) ListBonuses(w http.ResponseWriter, r *http.Request) {
	out := []*model.Bonus{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, b := range doc.Bonuses {
			out = append(out, b)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *PointsHandler) CreateBonus(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	b := &model.Bonus{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Icon:      req.Icon,
		Points:    model.RoundPoints(req.Points),
		CreatedAt: time.Now().UTC(),
	}
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Bonuses[b.ID] = b
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create bonus")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *PointsHandler) UpdateBonus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req adjustmentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var updated *model.Bonus
	err := h.coord.Store().Update(func(doc *model.Document) error {
		b, ok := doc.Bonuses[id]
		if !ok {
			return nil
		}
		b.Name = req.Name
		b.Icon = req.Icon
		b.Points = model.RoundPoints(req.Points)
		updated = b
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update bonus")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "bonus not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PointsHandler) DeleteBonus(w http.ResponseWriter, r *http.Request) {
	h.deleteDefinition(w, r, func(doc *model.Document, id string) bool {
		if _, ok := doc.Bonuses[id]; !ok {
			return false
		}
		delete(doc.Bonuses, id)
		return true
	}, "bonus not found")
}

func (h *PointsHandler) ApplyBonus(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.ApplyBonus(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (h *PointsHandler) deleteDefinition(w http.ResponseWriter, r *http.Request, del func(*model.Document, string) bool, notFound string) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		found = del(doc, id)
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, notFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
