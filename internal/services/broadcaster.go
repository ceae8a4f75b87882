package services

import "shards-game-backend/internal/models"

// Broadcaster pushes win announcements out to whoever is watching the
// feed. Implemented by the websocket hub.
type Broadcaster interface {
	BroadcastWin(userID int64, outcome *models.RevealOutcome)
}

// Notifier delivers a direct message to one player.
type Notifier interface {
	NotifyReferralBonus(referrerID int64, amount float64, count int64, tokenLive bool)
}
