package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/http/response"
	"github.com/gatewise/checkin/internal/payload"
	"github.com/gatewise/checkin/internal/service"
)

type overrideRequiredResponse struct {
	RequiresOverride bool   `json:"requires_override"`
	CurrentCount     int    `json:"current_count"`
	MaxCount         int    `json:"max_count"`
	Message          string `json:"message"`
}

type passwordErrorResponse struct {
	PasswordError bool   `json:"password_error"`
	Message       string `json:"message"`
}

// PostCheckin is the unified kiosk check-in endpoint: single guest, guest
// batch, or a scanned legacy token.
func (h *Handlers) PostCheckin(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.checkin.Process(r.Context(), &req, getActor(r))
	if err != nil {
		h.writeCheckinError(w, err)
		return
	}

	// A lone capacity refusal surfaces as a 409 so the kiosk can open the
	// override dialog; batches always report per guest.
	if len(resp.Results) == 1 && resp.Results[0].RequiresOverride {
		res := resp.Results[0]
		writeJSON(w, http.StatusConflict, overrideRequiredResponse{
			RequiresOverride: true,
			CurrentCount:     res.CurrentCount,
			MaxCount:         res.MaxCount,
			Message:          res.Reason,
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeCheckinError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payload.ErrMalformed):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrHostNotFound):
		response.NotFound(w, "Host not found")
	case errors.Is(err, domain.ErrLocationNotFound):
		response.NotFound(w, "Location not found")
	case errors.Is(err, service.ErrOverridePassword):
		writeJSON(w, http.StatusUnauthorized, passwordErrorResponse{
			PasswordError: true,
			Message:       "Override password incorrect, try again",
		})
	case errors.Is(err, service.ErrOverrideForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrOverrideInvalid):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "Failed to process check-in")
	}
}
