package models

// OutcomeCode classifies how a reveal request resolved. Ledger and
// transport failures are folded into these codes at the engine boundary;
// nothing lower-level leaks out to handlers.
type OutcomeCode string

const (
	// OutcomeOK: fee collected, cell revealed, entry recorded. The prize
	// fields say whether anything was won.
	OutcomeOK OutcomeCode = "ok"

	// OutcomeInsufficientFunds: balance pre-check failed. No fee charged,
	// no session created, no entry written.
	OutcomeInsufficientFunds OutcomeCode = "insufficient_funds"

	// OutcomePaymentFailed: the entry-fee transfer did not confirm. No
	// session created, no entry written.
	OutcomePaymentFailed OutcomeCode = "payment_failed"

	// OutcomeDisbursementFailed: the player won but the prize transfer
	// did not confirm. The entry is still recorded with RewardSent=false
	// so the obligation survives for manual reconciliation.
	OutcomeDisbursementFailed OutcomeCode = "disbursement_failed"
)

// RevealOutcome is what the presentation layer gets back for one reveal.
type RevealOutcome struct {
	Code        OutcomeCode `json:"code"`
	GameID      int64       `json:"game_id,omitempty"`
	Choice      string      `json:"choice,omitempty"`
	Cell        Cell        `json:"cell,omitempty"`
	PrizeKind   PrizeKind   `json:"prize_kind,omitempty"`
	PrizeAmount float64     `json:"prize_amount"`
	RewardSent  bool        `json:"reward_sent"`
	Delivery    Delivery    `json:"delivery,omitempty"`
	TxRef       string      `json:"tx_ref,omitempty"`
	Grid        Grid        `json:"grid,omitempty"`
}

// Won reports whether this outcome carries a prize, delivered or owed.
func (o *RevealOutcome) Won() bool {
	return o.PrizeKind == PrizeNative || o.PrizeKind == PrizeToken
}

type RevealRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// RedeemResult reports a confirmed credit redemption.
type RedeemResult struct {
	Amount float64 `json:"amount"`
	TxRef  string  `json:"tx_ref"`
}

// Profile is the start-menu view of a player.
type Profile struct {
	UserID         int64   `json:"user_id"`
	WalletAddress  string  `json:"wallet_address"`
	NativeBalance  float64 `json:"native_balance"`
	TokenBalance   float64 `json:"token_balance"`
	TokenBalanceOK bool    `json:"token_balance_known"`
	CreditBalance  float64 `json:"credit_balance"`
	JackpotPreview float64 `json:"jackpot_preview"`
}
