package models

import "time"

// Player is the persisted per-user row. ReferrerID is set once at first
// interaction and never changed afterwards; zero means no referrer.
type Player struct {
	UserID        int64   `json:"user_id" redis:"user_id"`
	WalletAddress string  `json:"wallet_address" redis:"wallet_address"`
	Earned        float64 `json:"earned" redis:"earned"`
	ReferrerID    int64   `json:"referrer_id,omitempty" redis:"referrer_id"`

	// CreditBalance is the off-chain token-credit ledger used while the
	// token economy is not live, redeemable 1:1 later.
	CreditBalance float64 `json:"credit_balance" redis:"credit_balance"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}

// ReferralRecord tracks how many players a referrer brought in and the
// shard bonuses accrued for doing so.
type ReferralRecord struct {
	ReferrerID    int64   `json:"referrer_id"`
	ReferralCount int64   `json:"referral_count"`
	ShardRewards  float64 `json:"shard_rewards"`
}
