package services

import (
	"context"
	"log/slog"

	"shards-game-backend/internal/config"
	"shards-game-backend/internal/models"
)

// ReferralLedger tracks referral counts and pays the periodic bonus. The
// count increment is atomic in Redis, so each threshold value is observed
// by exactly one caller and a bonus can never be paid twice.
type ReferralLedger struct {
	store    *Store
	notifier Notifier
	logger   *slog.Logger
	bonus    float64
	interval int64
}

func NewReferralLedger(store *Store, notifier Notifier, cfg *config.Config, logger *slog.Logger) *ReferralLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferralLedger{
		store:    store,
		notifier: notifier,
		logger:   logger,
		bonus:    cfg.ReferralBonus,
		interval: cfg.ReferralInterval,
	}
}

// RecordReferral bumps the referrer's count, creating the record at 1 if
// absent. Crossing a bonus threshold credits the bonus to the on-chain
// shard balance when the token is live, else to the off-chain credit
// ledger.
func (l *ReferralLedger) RecordReferral(ctx context.Context, referrerID int64) error {
	count, err := l.store.IncrementReferralCount(ctx, referrerID)
	if err != nil {
		return err
	}

	if count%l.interval != 0 {
		return nil
	}

	tokenLive, err := l.store.TokenActive(ctx)
	if err != nil {
		l.logger.Warn("token flag read failed during bonus payout, crediting off-chain", "referrer_id", referrerID, "error", err)
		tokenLive = false
	}

	if tokenLive {
		err = l.store.AddShardRewards(ctx, referrerID, l.bonus)
	} else {
		err = l.store.AddCredits(ctx, referrerID, l.bonus)
	}
	if err != nil {
		l.logger.Error("referral bonus credit failed", "referrer_id", referrerID, "count", count, "bonus", l.bonus, "error", err)
		return err
	}

	l.logger.Info("referral bonus paid", "referrer_id", referrerID, "count", count, "bonus", l.bonus, "token_live", tokenLive)
	if l.notifier != nil {
		l.notifier.NotifyReferralBonus(referrerID, l.bonus, count, tokenLive)
	}
	return nil
}

// Info returns the referral record for one referrer, zero-valued when
// nobody has used their link yet.
func (l *ReferralLedger) Info(ctx context.Context, referrerID int64) (*models.ReferralRecord, error) {
	return l.store.GetReferral(ctx, referrerID)
}
