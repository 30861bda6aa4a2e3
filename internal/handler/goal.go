package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// GoalHandler serves badge, achievement and challenge definitions. Editing a
// badge queues it for re-evaluation at the next rollover so kids who already
// meet a lowered threshold get it without waiting for their next approval.
type GoalHandler struct {
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

func NewGoalHandler(coord *coordinator.Coordinator, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{coord: coord, logger: logger}
}

type badgeRequest struct {
	Name                  string   `json:"name" validate:"required,max=200"`
	Description           string   `json:"description"`
	Icon                  string   `json:"icon"`
	Type                  string   `json:"type" validate:"oneof=milestone cumulative"`
	TargetType            string   `json:"target_type" validate:"oneof=points chore_count streak"`
	TargetValue           float64  `json:"target_value" validate:"gt=0"`
	PointsEquivalent      float64  `json:"points_equivalent" validate:"gte=0"`
	AssignedKids          []string `json:"assigned_kids"`
	AwardPoints           float64  `json:"award_points" validate:"gte=0"`
	MaintenanceWindowDays int      `json:"maintenance_window_days" validate:"gte=0"`
}

func (req *badgeRequest) apply(b *model.Badge) {
	b.Name = req.Name
	b.Description = req.Description
	b.Icon = req.Icon
	b.Type = model.BadgeType(req.Type)
	b.Target = model.BadgeTarget{
		Type:             model.BadgeTargetType(req.TargetType),
		Value:            req.TargetValue,
		PointsEquivalent: req.PointsEquivalent,
	}
	if b.Target.PointsEquivalent == 0 && b.Target.Type == model.TargetPoints {
		b.Target.PointsEquivalent = req.TargetValue
	}
	b.AssignedKids = req.AssignedKids
	b.AwardPoints = model.RoundPoints(req.AwardPoints)
	b.MaintenanceWindowDays = req.MaintenanceWindowDays
}

func (h *GoalHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	out := []*model.Badge{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, b := range doc.Badges {
			out = append(out, b)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *GoalHandler) CreateBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	b := &model.Badge{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	req.apply(b)
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Badges[b.ID] = b
		doc.Meta.PendingEvaluations = append(doc.Meta.PendingEvaluations, b.ID)
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create badge")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *GoalHandler) UpdateBadge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req badgeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var updated *model.Badge
	err := h.coord.Store().Update(func(doc *model.Document) error {
		b, ok := doc.Badges[id]
		if !ok {
			return nil
		}
		req.apply(b)
		doc.Meta.PendingEvaluations = append(doc.Meta.PendingEvaluations, b.ID)
		updated = b
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update badge")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "badge not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *GoalHandler) DeleteBadge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		if _, ok := doc.Badges[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Badges, id)
		for _, kid := range doc.Kids {
			delete(kid.BadgesEarned, id)
			delete(kid.CumulativeBadgeProgress, id)
		}
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete badge")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "badge not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type achievementRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Description     string   `json:"description"`
	Icon            string   `json:"icon"`
	Type            string   `json:"type" validate:"oneof=streak total"`
	TargetValue     float64  `json:"target_value" validate:"gt=0"`
	RewardPoints    float64  `json:"reward_points" validate:"gte=0"`
	AssignedKids    []string `json:"assigned_kids"`
	SelectedChoreID string   `json:"selected_chore_id"`
}

func (h *GoalHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	out := []*model.Achievement{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, a := range doc.Achievements {
			out = append(out, a)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *GoalHandler) CreateAchievement(w http.ResponseWriter, r *http.Request) {
	var req achievementRequest
	if !decodeValid(w, r, &req) {
		return
	}
	a := &model.Achievement{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		Icon:            req.Icon,
		Type:            model.AchievementType(req.Type),
		TargetValue:     req.TargetValue,
		RewardPoints:    model.RoundPoints(req.RewardPoints),
		AssignedKids:    req.AssignedKids,
		SelectedChoreID: req.SelectedChoreID,
		Progress:        make(map[string]*model.GoalProgress),
		CreatedAt:       time.Now().UTC(),
	}
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Achievements[a.ID] = a
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create achievement")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *GoalHandler) UpdateAchievement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req achievementRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var updated *model.Achievement
	err := h.coord.Store().Update(func(doc *model.Document) error {
		a, ok := doc.Achievements[id]
		if !ok {
			return nil
		}
		a.Name = req.Name
		a.Description = req.Description
		a.Icon = req.Icon
		a.Type = model.AchievementType(req.Type)
		a.TargetValue = req.TargetValue
		a.RewardPoints = model.RoundPoints(req.RewardPoints)
		a.AssignedKids = req.AssignedKids
		a.SelectedChoreID = req.SelectedChoreID
		updated = a
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update achievement")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "achievement not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *GoalHandler) DeleteAchievement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		if _, ok := doc.Achievements[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Achievements, id)
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete achievement")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "achievement not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type challengeRequest struct {
	Name            string    `json:"name" validate:"required,max=200"`
	Description     string    `json:"description"`
	Icon            string    `json:"icon"`
	TargetValue     float64   `json:"target_value" validate:"gt=0"`
	RewardPoints    float64   `json:"reward_points" validate:"gte=0"`
	AssignedKids    []string  `json:"assigned_kids"`
	SelectedChoreID string    `json:"selected_chore_id"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (h *GoalHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	out := []*model.Challenge{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, c := range doc.Challenges {
			out = append(out, c)
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *GoalHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	c := &model.Challenge{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		Icon:            req.Icon,
		TargetValue:     req.TargetValue,
		RewardPoints:    model.RoundPoints(req.RewardPoints),
		AssignedKids:    req.AssignedKids,
		SelectedChoreID: req.SelectedChoreID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Progress:        make(map[string]*model.GoalProgress),
		CreatedAt:       time.Now().UTC(),
	}
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Challenges[c.ID] = c
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create challenge")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *GoalHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req challengeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var updated *model.Challenge
	err := h.coord.Store().Update(func(doc *model.Document) error {
		c, ok := doc.Challenges[id]
		if !ok {
			return nil
		}
		c.Name = req.Name
		c.Description = req.Description
		c.Icon = req.Icon
		c.TargetValue = req.TargetValue
		c.RewardPoints = model.RoundPoints(req.RewardPoints)
		c.AssignedKids = req.AssignedKids
		c.SelectedChoreID = req.SelectedChoreID
		c.StartDate = req.StartDate
		c.EndDate = req.EndDate
		updated = c
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update challenge")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "challenge not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *GoalHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		if _, ok := doc.Challenges[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Challenges, id)
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete challenge")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "challenge not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
