package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhouse/chorekeep/internal/auth"
	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// ParentHandler serves parent accounts and PIN login.
type ParentHandler struct {
	coord  *coordinator.Coordinator
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewParentHandler(coord *coordinator.Coordinator, tokens *auth.Tokens, logger *slog.Logger) *ParentHandler {
	return &ParentHandler{coord: coord, tokens: tokens, logger: logger}
}

type parentRequest struct {
	Name                string `json:"name" validate:"required,max=100"`
	PIN                 string `json:"pin" validate:"omitempty,min=4,max=12,numeric"`
	NotifyOnClaim       *bool  `json:"notify_on_claim"`
	EnableNotifications *bool  `json:"enable_notifications"`
}

// parentView never exposes the PIN hash.
type parentView struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	HasPIN              bool      `json:"has_pin"`
	NotifyOnClaim       bool      `json:"notify_on_claim"`
	EnableNotifications bool      `json:"enable_notifications"`
	CreatedAt           time.Time `json:"created_at"`
}

func viewParent(p *model.Parent) parentView {
	return parentView{
		ID:                  p.ID,
		Name:                p.Name,
		HasPIN:              p.PINHash != "",
		NotifyOnClaim:       p.NotifyOnClaim,
		EnableNotifications: p.EnableNotifications,
		CreatedAt:           p.CreatedAt,
	}
}

func (h *ParentHandler) List(w http.ResponseWriter, r *http.Request) {
	out := []parentView{}
	h.coord.Store().View(func(doc *model.Document) {
		for _, p := range doc.Parents {
			out = append(out, viewParent(p))
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *ParentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req parentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	p := &model.Parent{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if req.PIN != "" {
		hash, err := auth.HashPIN(req.PIN)
		if err != nil {
			h.logger.Error("hash pin", "error", err)
			errorJSON(w, http.StatusInternalServerError, "failed to create parent")
			return
		}
		p.PINHash = hash
	}
	if req.NotifyOnClaim != nil {
		p.NotifyOnClaim = *req.NotifyOnClaim
	}
	if req.EnableNotifications != nil {
		p.EnableNotifications = *req.EnableNotifications
	}
	err := h.coord.Store().Update(func(doc *model.Document) error {
		doc.Parents[p.ID] = p
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to create parent")
		return
	}
	writeJSON(w, http.StatusCreated, viewParent(p))
}

func (h *ParentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req parentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var pinHash string
	if req.PIN != "" {
		hash, err := auth.HashPIN(req.PIN)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "failed to update parent")
			return
		}
		pinHash = hash
	}
	var updated *model.Parent
	err := h.coord.Store().Update(func(doc *model.Document) error {
		p, ok := doc.Parents[id]
		if !ok {
			return nil
		}
		p.Name = req.Name
		if pinHash != "" {
			p.PINHash = pinHash
		}
		if req.NotifyOnClaim != nil {
			p.NotifyOnClaim = *req.NotifyOnClaim
		}
		if req.EnableNotifications != nil {
			p.EnableNotifications = *req.EnableNotifications
		}
		updated = p
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to update parent")
		return
	}
	if updated == nil {
		errorJSON(w, http.StatusNotFound, "parent not found")
		return
	}
	writeJSON(w, http.StatusOK, viewParent(updated))
}

func (h *ParentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found := false
	err := h.coord.Store().Update(func(doc *model.Document) error {
		if _, ok := doc.Parents[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Parents, id)
		for endpoint, sub := range doc.PushSubscriptions {
			if sub.ParentID == id {
				delete(doc.PushSubscriptions, endpoint)
			}
		}
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to delete parent")
		return
	}
	if !found {
		errorJSON(w, http.StatusNotFound, "parent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	ParentID string `json:"parent_id" validate:"required"`
	PIN      string `json:"pin" validate:"required"`
}

func (h *ParentHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var parent *model.Parent
	h.coord.Store().View(func(doc *model.Document) {
		if p, ok := doc.Parents[req.ParentID]; ok {
			cp := *p
			parent = &cp
		}
	})
	// Same error for unknown parent and wrong PIN.
	if parent == nil || parent.PINHash == "" {
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPIN(parent.PINHash, req.PIN); err != nil {
		h.logger.Warn("failed login", "parent_id", req.ParentID)
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.tokens.Issue(parent.ID, parent.Name, time.Now().UTC())
	if err != nil {
		h.logger.Error("issue token", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":       token,
		"parent_id":   parent.ID,
		"parent_name": parent.Name,
	})
}
