package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shards-game-backend/internal/models"
	"shards-game-backend/internal/services"
)

type GameHandler struct {
	engine    *services.PayoutEngine
	referrals *services.ReferralLedger
}

func NewGameHandler(engine *services.PayoutEngine, referrals *services.ReferralLedger) *GameHandler {
	return &GameHandler{
		engine:    engine,
		referrals: referrals,
	}
}

// Reveal breaks one shard: charges the entry fee, resolves the hidden
// cell and reports the outcome.
func (h *GameHandler) Reveal(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.engine.Reveal(c.Request.Context(), userID, req.Row, req.Col)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCell):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cell is out of range"})
		case errors.Is(err, services.ErrPlayerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not registered"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Reveal failed"})
		}
		return
	}

	switch outcome.Code {
	case models.OutcomeInsufficientFunds:
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"code":    outcome.Code,
			"message": "Insufficient balance to break a shard.",
		})
	case models.OutcomePaymentFailed:
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"code":    outcome.Code,
			"message": "Payment failed. Try again.",
		})
	default:
		response := gin.H{
			"success": true,
			"code":    outcome.Code,
			"outcome": outcome,
		}
		if outcome.Code == models.OutcomeDisbursementFailed {
			response["message"] = "You won, but the prize transfer failed. Contact support with your game id."
		}
		c.JSON(http.StatusOK, response)
	}
}

// Result renders the persisted entry for a game id, regardless of how
// prize delivery went.
func (h *GameHandler) Result(c *gin.Context) {
	gameID, err := strconv.ParseInt(c.Param("game_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return
	}

	entry, err := h.engine.Result(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up result"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No entry found for that game id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entry":   entry,
	})
}

// Redeem converts the player's credit balance into tokens.
func (h *GameHandler) Redeem(c *gin.Context) {
	userID := c.GetInt64("user_id")

	result, err := h.engine.RedeemCredits(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPlayerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not registered"})
		case errors.Is(err, services.ErrNotEnoughCredits):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Minimum 1000 credits required to redeem"})
		case errors.Is(err, services.ErrTokenInactive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "The token is not active yet"})
		case errors.Is(err, services.ErrNoTokenAccount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "You need at least 1 token in your wallet to redeem"})
		case errors.Is(err, services.ErrRedeemFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Redemption failed. Please contact support."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// ReferralInfo returns the caller's referral stats.
func (h *GameHandler) ReferralInfo(c *gin.Context) {
	userID := c.GetInt64("user_id")

	record, err := h.referrals.Info(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"referrals": gin.H{
			"referral_count": record.ReferralCount,
			"shard_rewards":  record.ShardRewards,
			"start_param":    strconv.FormatInt(userID, 10),
		},
	})
}
