package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/notify"
	"github.com/kestrelhouse/chorekeep/internal/store"
)

// PushHandler manages web push subscriptions. A subscription belongs to
// either a parent or a kid device, never both.
type PushHandler struct {
	store  *store.Store
	svc    *notify.Service
	logger *slog.Logger
}

func NewPushHandler(st *store.Store, svc *notify.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{store: st, svc: svc, logger: logger}
}

func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Enabled() {
		errorJSON(w, http.StatusNotFound, "push notifications not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.svc.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint  string `json:"endpoint" validate:"required,url"`
	P256dhKey string `json:"p256dh_key" validate:"required"`
	AuthKey   string `json:"auth_key" validate:"required"`
	ParentID  string `json:"parent_id"`
	KidID     string `json:"kid_id"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if (req.ParentID == "") == (req.KidID == "") {
		errorJSON(w, http.StatusBadRequest, "exactly one of parent_id or kid_id is required")
		return
	}

	var unknown bool
	err := h.store.Update(func(doc *model.Document) error {
		if req.ParentID != "" {
			if _, ok := doc.Parents[req.ParentID]; !ok {
				unknown = true
				return nil
			}
		} else if _, ok := doc.Kids[req.KidID]; !ok {
			unknown = true
			return nil
		}
		if doc.PushSubscriptions == nil {
			doc.PushSubscriptions = make(map[string]*model.PushSubscription)
		}
		doc.PushSubscriptions[req.Endpoint] = &model.PushSubscription{
			Endpoint:  req.Endpoint,
			P256dhKey: req.P256dhKey,
			AuthKey:   req.AuthKey,
			ParentID:  req.ParentID,
			KidID:     req.KidID,
			CreatedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	if unknown {
		errorJSON(w, http.StatusBadRequest, "unknown parent or kid")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	err := h.store.Update(func(doc *model.Document) error {
		delete(doc.PushSubscriptions, req.Endpoint)
		return nil
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to remove subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
