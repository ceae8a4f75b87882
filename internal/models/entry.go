package models

import "time"

type PrizeKind string

const (
	PrizeNone   PrizeKind = "none"
	PrizeNative PrizeKind = "native"
	PrizeToken  PrizeKind = "token"
)

// Delivery records how a prize actually reached the player, which is
// what reconciliation cares about when an on-chain transfer fell back
// to an off-chain credit.
type Delivery string

const (
	DeliveryNone     Delivery = ""
	DeliveryTransfer Delivery = "transfer"
	DeliveryCredit   Delivery = "credit"
)

// Entry is the append-only record of one resolved reveal. It is written
// exactly once, after the disbursement attempt, so RewardSent=false with
// a nonzero PrizeAmount marks a prize still owed to the player.
type Entry struct {
	GameID        int64     `json:"game_id" redis:"game_id"`
	UserID        int64     `json:"user_id" redis:"user_id"`
	WalletAddress string    `json:"wallet_address" redis:"wallet_address"`
	Choice        string    `json:"choice" redis:"choice"`
	Grid          Grid      `json:"grid" redis:"grid"`
	RewardSent    bool      `json:"reward_sent" redis:"reward_sent"`
	PrizeAmount   float64   `json:"prize_amount" redis:"prize_amount"`
	PrizeKind     PrizeKind `json:"prize_kind" redis:"prize_kind"`
	Delivery      Delivery  `json:"delivery,omitempty" redis:"delivery"`
	TxRef         string    `json:"tx_ref,omitempty" redis:"tx_ref"`
	Timestamp     time.Time `json:"timestamp" redis:"timestamp"`
}
