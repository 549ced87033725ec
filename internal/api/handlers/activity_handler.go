package handlers

import (
	"net/http"
	"strconv"

	"github.com/markdave123-py/Auditra/internal/models"
	"github.com/markdave123-py/Auditra/internal/services"
)

type ActivityHandler struct {
	activities *services.ActivityService
}

func NewActivityHandler(activities *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List serves the caller's feed, newest first. ?limit is clamped by the service.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	acts, err := h.activities.List(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if acts == nil {
		acts = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}
