package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// RewardHandler serves the reward catalog and the redeem/approve lifecycle.
type RewardHandler struct {
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

func NewRewardHandler(coord *coordinator.Coordinator, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{coord: coord, logger: logger}
}

type rewardRequest struct {
	Name             string  `json:"name" validate:"required,max=200"`
	Description      string  `json:"description"`
	Icon             string  `json:"icon"`
	Cost             float64 `json:"cost" validate:"gt=0"`
	ApprovalRequired bool    `json:"approval_required"`
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	out := []*model.Reward{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, rw := range doc.Rewards {
			out = append(out, rw)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decodeValid(w, r, &req) {
		return
	}
	rw := &model.Reward{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Description:      req.Description,
		Icon:             req.Icon,
		Cost:             model.RoundPoints(req.Cost),
		ApprovalRequired: req.ApprovalRequired,
		CreatedAt:        time.Now().UTC(),
	}
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Rewards[rw.ID] = rw
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create reward")
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req rewardRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var updated *model.Reward
	err := h.coord.Store().Update(func(doc *model.Document) error {
		rw, ok := doc.Rewards[id]
		if !ok {
			return nil
		}
		rw.Name = req.Name
		rw.Description = req.Description
		rw.Icon = req.Icon
		rw.Cost = model.RoundPoints(req.Cost)
		rw.ApprovalRequired = req.ApprovalRequired
		updated = rw
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update reward")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "reward not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		if _, ok := doc.Rewards[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Rewards, id)
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "reward not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.RedeemReward(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "redeemed"})
}

func (h *RewardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.ApproveReward(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *RewardHandler) Disapprove(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.DisapproveReward(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disapproved"})
}
