package handler

import (
	"net/http"

	"github.com/tiffin-tracker/internal/application/correlation"
)

// RespondRequest is posted by the service worker when the user taps a
// reminder action.
type RespondRequest struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// NotificationHandler handles replies to reminders. The token is the only
// credential, so these routes are public.
type NotificationHandler struct {
	svc correlation.Service
}

func NewNotificationHandler(svc correlation.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "missing token or status")
		return
	}
	if _, err := h.svc.Resolve(r.Context(), req.Token, req.Status, req.Reason); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Tiffin updated successfully."})
}
