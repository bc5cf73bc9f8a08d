package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/status"
)

// StatusHandlers provides the REST side of presence lookups.
type StatusHandlers struct {
	store status.Store
	log   *zerolog.Logger
}

// NewStatusHandlers creates a new status handlers instance.
func NewStatusHandlers(store status.Store, logger *zerolog.Logger) *StatusHandlers {
	return &StatusHandlers{store: store, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Search resolves a comma-separated list of user uids to their statuses.
// GET /api/status?uids=a,b,c
func (h *StatusHandlers) Search(c *gin.Context) {
	raw := c.Query("uids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing uids parameter"})
		return
	}

	uids := strings.Split(raw, ",")
	info, err := h.store.Statuses(c.Request.Context(), uids)
	if err != nil {
		h.log.Error().Err(err).Msg("status lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, info)
}
