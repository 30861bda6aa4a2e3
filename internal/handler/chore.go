package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/recurrence"
)

// ChoreHandler serves chore definitions and the claim/approve lifecycle.
type ChoreHandler struct {
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

func NewChoreHandler(coord *coordinator.Coordinator, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{coord: coord, logger: logger}
}

type choreRequest struct {
	Name               string     `json:"name" validate:"required,max=200"`
	Description        string     `json:"description"`
	Icon               string     `json:"icon"`
	Points             float64    `json:"points" validate:"gte=0"`
	AssignedKids       []string   `json:"assigned_kids" validate:"required,min=1"`
	CompletionCriteria string     `json:"completion_criteria" validate:"oneof=independent shared shared_first alternating"`
	Frequency          string     `json:"frequency" validate:"omitempty,oneof=none daily weekly monthly yearly custom"`
	CustomInterval     int        `json:"custom_interval" validate:"gte=0"`
	CustomIntervalUnit string     `json:"custom_interval_unit" validate:"omitempty,oneof=days weeks months"`
	ApplicableDays     []int      `json:"applicable_days" validate:"dive,gte=0,lte=6"`
	DueDate            *time.Time `json:"due_date"`
	ApprovalResetType  string     `json:"approval_reset_type" validate:"omitempty,oneof=at_midnight at_due_date upon_completion"`
	AutoApprove        bool       `json:"auto_approve"`
}

func (req *choreRequest) apply(ch *model.Chore, now time.Time) {
	ch.Name = req.Name
	ch.Description = req.Description
	ch.Icon = req.Icon
	ch.Points = model.RoundPoints(req.Points)
	ch.AssignedKids = req.AssignedKids
	ch.CompletionCriteria = model.CompletionCriteria(req.CompletionCriteria)
	ch.Frequency = model.Frequency(req.Frequency)
	if ch.Frequency == "" {
		ch.Frequency = model.FreqNone
	}
	ch.CustomInterval = req.CustomInterval
	ch.CustomIntervalUnit = model.IntervalUnit(req.CustomIntervalUnit)
	ch.ApplicableDays = nil
	for _, d := range req.ApplicableDays {
		ch.ApplicableDays = append(ch.ApplicableDays, time.Weekday(d))
	}
	ch.ApprovalResetType = model.ApprovalResetType(req.ApprovalResetType)
	if ch.ApprovalResetType == "" {
		ch.ApprovalResetType = model.ResetAtMidnight
	}
	ch.AutoApprove = req.AutoApprove
	ch.UpdatedAt = now

	// INDEPENDENT chores fan the due date out per kid; the others share one.
	if ch.UsesPerKidDueDates() {
		ch.DueDate = nil
		if ch.PerKidDueDates == nil {
			ch.PerKidDueDates = make(map[string]*time.Time)
		}
		for _, kidID := range ch.AssignedKids {
			if _, ok := ch.PerKidDueDates[kidID]; !ok {
				ch.PerKidDueDates[kidID] = copyTime(req.DueDate)
			}
		}
		for kidID := range ch.PerKidDueDates {
			if !ch.IsAssigned(kidID) {
				delete(ch.PerKidDueDates, kidID)
			}
		}
	} else {
		ch.PerKidDueDates = nil
		ch.DueDate = copyTime(req.DueDate)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (h *ChoreHandler) validateSchedule(w http.ResponseWriter, ch *model.Chore) bool {
	if err := recurrence.FromChore(ch).Validate(); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	out := []*model.Chore{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, ch := range doc.Chores {
			out = append(out, ch)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var found *model.Chore
	h.coord.Store().View(func(doc *model.Document) {
		found = doc.Chores[id]
	})
	if found == nil {
		errorJSON(w, http.StatusNotFound, "chore not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if !decodeValid(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	ch := &model.Chore{
		ID:        uuid.NewString(),
		State:     model.StatePending,
		CreatedAt: now,
	}
	req.apply(ch, now)
	if !h.validateSchedule(w, ch) {
		return
	}

	var unknownKid string
	err := h.coord.Store().Update(func(doc *model.Document) error {
		for _, kidID := range ch.AssignedKids {
			if _, ok := doc.Kids[kidID]; !ok {
				unknownKid = kidID
				return nil
			}
		}
		doc.Chores[ch.ID] = ch
		return nil
	})
	if err != nil {
		h.logger.Error("create chore", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to create chore")
		return
	}
	if unknownKid != "" {
		errorJSON(w, http.StatusBadRequest, "unknown kid "+unknownKid)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req choreRequest
	if !decodeValid(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	var (
		found      bool
		unknownKid string
		badRequest string
		updated    *model.Chore
	)
	err := h.coord.Store().Update(func(doc *model.Document) error {
		ch, ok := doc.Chores[id]
		if !ok {
			return nil
		}
		found = true
		for _, kidID := range req.AssignedKids {
			if _, ok := doc.Kids[kidID]; !ok {
				unknownKid = kidID
				return nil
			}
		}
		req.apply(ch, now)
		if err := recurrence.FromChore(ch).Validate(); err != nil {
			badRequest = err.Error()
			return nil
		}
		updated = ch
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update chore")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "chore not found")
		return
	}
	if unknownKid != "" {
		errorJSON(w, http.StatusBadRequest, "unknown kid "+unknownKid)
		return
	}
	if badRequest != "" {
		errorJSON(w, http.StatusBadRequest, badRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		if _, ok := doc.Chores[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Chores, id)
		for _, kid := range doc.Kids {
			delete(kid.ChoreData, id)
			kid.ClearOverdue(id)
		}
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "chore not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type kidActionRequest struct {
	KidID string `json:"kid_id" validate:"required"`
}

func (h *ChoreHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.ClaimChore(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

func (h *ChoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.ApproveChore(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *ChoreHandler) Disapprove(w http.ResponseWriter, r *http.Request) {
	var req kidActionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.coord.DisapproveChore(req.KidID, r.PathValue("id")); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disapproved"})
}
