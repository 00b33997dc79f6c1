package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/messages"
)

func (h *Handler) listMessages(c *gin.Context) {
	limit := intQuery(c, "limit", 0)
	if limit > messages.MaxLimit {
		limit = messages.MaxLimit
	}
	rows, err := h.Messages.List(c.Request.Context(), messages.Filter{
		Search:      c.Query("search"),
		Status:      c.Query("status"),
		FailureType: c.Query("failureType"),
		Limit:       limit,
	})
	if err != nil {
		if errors.Is(err, messages.ErrInvalidStatus) {
			fail(c, http.StatusBadRequest, "Status must be a number")
			return
		}
		logger.Error.Printf("list messages: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": rows})
}
