package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/auth"
)

func (h *Handler) login(c *gin.Context) {
	if !h.AuthEnabled || h.Signer == nil {
		fail(c, http.StatusNotFound, "Authentication is disabled")
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	tokens, err := h.Admin.Login(h.Signer, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			logger.Info.Printf("failed login for %q from %s", req.Username, c.ClientIP())
			fail(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		logger.Error.Printf("login: %v", err)
		fail(c, http.StatusInternalServerError, "token issue failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tokens": tokens})
}

func (h *Handler) refresh(c *gin.Context) {
	if !h.AuthEnabled || h.Signer == nil {
		fail(c, http.StatusNotFound, "Authentication is disabled")
		return
	}
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "refreshToken is required")
		return
	}
	tokens, err := h.Signer.Refresh(req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tokens": tokens})
}
