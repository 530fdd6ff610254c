package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatewise/checkin/internal/http/response"
)

// GetVisit returns a single visit record for reporting.
func (h *Handlers) GetVisit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid visit ID")
		return
	}

	visit, err := h.visits.GetByID(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to retrieve visit")
		return
	}
	if visit == nil {
		response.NotFound(w, "Visit not found")
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// ListGuestVisits returns a guest's visit history, newest first.
func (h *Handlers) ListGuestVisits(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "Missing email parameter")
		return
	}

	guest, err := h.guests.FindByEmail(r.Context(), email)
	if err != nil {
		response.InternalError(w, "Failed to retrieve guest")
		return
	}
	if guest == nil {
		response.NotFound(w, "Guest not found")
		return
	}

	limit, offset := parsePagination(r)
	visits, err := h.visits.ListForGuest(r.Context(), guest.ID, limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to retrieve visits")
		return
	}

	writeJSON(w, http.StatusOK, visits)
}
