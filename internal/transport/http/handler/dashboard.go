package handler

import (
	"net/http"

	"github.com/tiffin-tracker/internal/application/history"
	"github.com/tiffin-tracker/internal/application/settings"
	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/pkg/validate"
	"github.com/tiffin-tracker/internal/transport/http/middleware"
)

// UpdateTiffinRequest records a status without a reminder token.
type UpdateTiffinRequest struct {
	Date   string `json:"date" validate:"required,date"`
	Time   string `json:"time" validate:"required,hhmm"`
	Status string `json:"status" validate:"required,oneof=taken skipped"`
	Reason string `json:"reason" validate:"max=500"`
}

// DashboardHandler serves the authenticated user's own data.
type DashboardHandler struct {
	history  history.Service
	settings settings.Service
}

func NewDashboardHandler(h history.Service, s settings.Service) *DashboardHandler {
	return &DashboardHandler{history: h, settings: s}
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.UserID, true
}

func (h *DashboardHandler) Data(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	d, err := h.history.Dashboard(r.Context(), uid)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DashboardHandler) UpdateTiffin(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req UpdateTiffinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.history.UpdateStatus(r.Context(), uid, req.Date, req.Time, domain.Status(req.Status), req.Reason); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Tiffin status updated successfully."})
}

func (h *DashboardHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	st, err := h.settings.Get(r.Context(), uid)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DashboardHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.settings.Update(r.Context(), uid, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DashboardHandler) SaveSubscription(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var sub domain.PushSubscription
	if !decodeJSON(w, r, &sub) {
		return
	}
	if err := h.settings.SaveSubscription(r.Context(), uid, sub); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Subscription saved."})
}
