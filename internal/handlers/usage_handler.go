// File: internal/handlers/usage_handler.go
package handlers

import (
	"net/http"

	usagerepo "github.com/iyusef/go-chatstream/internal/repository/usage"
)

type UsageHandler struct {
	Usage usagerepo.UsageRepository
}

func NewUsageHandler(usage usagerepo.UsageRepository) *UsageHandler {
	return &UsageHandler{Usage: usage}
}

// GetUserUsage handles GET /api/usage, returning the caller's accounting rows.
func (h *UsageHandler) GetUserUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, total, err := h.Usage.FindByUserID(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, "Could not retrieve usage", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
