package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"shards-game-backend/internal/services"
)

type AuthHandler struct {
	engine     *services.PayoutEngine
	jwtService *services.JWTService
	botToken   string
}

func NewAuthHandler(engine *services.PayoutEngine, jwtService *services.JWTService, botToken string) *AuthHandler {
	return &AuthHandler{
		engine:     engine,
		jwtService: jwtService,
		botToken:   botToken,
	}
}

// Authenticate exchanges Telegram login data for a JWT. First contact
// registers the player and, when start_param carries a referral link
// payload, attributes the referral.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	idStr := c.Query("id")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if !h.verifyLoginHash(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login signature"})
		return
	}

	var referrerID int64
	if startParam := c.Query("start_param"); startParam != "" {
		referrerID, _ = strconv.ParseInt(startParam, 10, 64)
	}

	player, err := h.engine.Register(c.Request.Context(), userID, referrerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	token, err := h.jwtService.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"player": gin.H{
			"user_id":        player.UserID,
			"wallet_address": player.WalletAddress,
		},
	})
}

// verifyLoginHash checks the Telegram login-widget HMAC: every query
// parameter except hash, sorted, joined with newlines, signed with
// SHA256(botToken).
func (h *AuthHandler) verifyLoginHash(c *gin.Context) bool {
	providedHash := c.Query("hash")
	if providedHash == "" || h.botToken == "" {
		return false
	}

	var pairs []string
	for key, values := range c.Request.URL.Query() {
		if key == "hash" || len(values) == 0 {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, values[0]))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(h.botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(dataCheckString))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(providedHash))
}
