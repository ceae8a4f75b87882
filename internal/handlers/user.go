package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shards-game-backend/internal/services"
)

type UserHandler struct {
	engine *services.PayoutEngine
}

func NewUserHandler(engine *services.PayoutEngine) *UserHandler {
	return &UserHandler{engine: engine}
}

// GetCurrentUser renders the start-menu view: balances, wallet address
// and the current jackpot preview.
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64("user_id")

	profile, err := h.engine.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrPlayerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": profile,
	})
}

// ImportWallet replaces the player's wallet address with one they bring
// themselves.
func (h *UserHandler) ImportWallet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.engine.ImportWallet(c.Request.Context(), userID, req.Address); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import wallet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Wallet imported",
	})
}
