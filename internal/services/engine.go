package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shards-game-backend/internal/config"
	"shards-game-backend/internal/ledger"
	"shards-game-backend/internal/models"
)

var (
	ErrPlayerNotFound   = errors.New("player not registered")
	ErrInvalidCell      = errors.New("cell out of range")
	ErrNotEnoughCredits = errors.New("not enough credits to redeem")
	ErrTokenInactive    = errors.New("token economy is not active")
	ErrNoTokenAccount   = errors.New("wallet holds no token to receive into")
	ErrRedeemFailed     = errors.New("redemption transfer failed")
)

// PayoutEngine drives a reveal end to end: collect the entry fee, commit
// the hidden grid, compute the prize, disburse it and record the entry.
// Every ledger failure is converted to an outcome code here; nothing
// below this layer reaches the presentation side.
type PayoutEngine struct {
	store       *Store
	sessions    *SessionStore
	ids         *GameIDAllocator
	ledger      ledger.Client
	grids       *GridGenerator
	referrals   *ReferralLedger
	wallets     WalletProvider
	broadcaster Broadcaster
	cfg         *config.Config
	logger      *slog.Logger
}

func NewPayoutEngine(
	store *Store,
	sessions *SessionStore,
	ids *GameIDAllocator,
	ledgerClient ledger.Client,
	grids *GridGenerator,
	referrals *ReferralLedger,
	wallets WalletProvider,
	broadcaster Broadcaster,
	cfg *config.Config,
	logger *slog.Logger,
) *PayoutEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayoutEngine{
		store:       store,
		sessions:    sessions,
		ids:         ids,
		ledger:      ledgerClient,
		grids:       grids,
		referrals:   referrals,
		wallets:     wallets,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
	}
}

// Register ensures a player row exists for userID, provisioning a wallet
// on first contact. The referrer attribution only sticks on that first
// contact; later calls ignore it.
func (e *PayoutEngine) Register(ctx context.Context, userID, referrerID int64) (*models.Player, error) {
	player, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if player != nil {
		return player, nil
	}

	if referrerID == userID {
		referrerID = 0
	}

	address, err := e.wallets.NewWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %v", err)
	}

	player = &models.Player{
		UserID:        userID,
		WalletAddress: address,
		ReferrerID:    referrerID,
		CreatedAt:     time.Now(),
	}

	created, err := e.store.CreatePlayer(ctx, player)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a registration race; the winner's row stands.
		return e.store.GetPlayer(ctx, userID)
	}

	e.logger.Info("player registered", "user_id", userID, "referrer_id", referrerID)

	if referrerID != 0 {
		if err := e.referrals.RecordReferral(ctx, referrerID); err != nil {
			e.logger.Error("referral attribution failed", "referrer_id", referrerID, "new_user_id", userID, "error", err)
		}
	}
	return player, nil
}

// Reveal resolves one cell pick for one paid round.
func (e *PayoutEngine) Reveal(ctx context.Context, userID int64, row, col int) (*models.RevealOutcome, error) {
	if row < 0 || row >= e.cfg.GridSize || col < 0 || col >= e.cfg.GridSize {
		return nil, ErrInvalidCell
	}

	player, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	choice := models.CellLabel(row, col)
	log := e.logger.With("user_id", userID, "choice", choice)

	// Balance pre-check: no fee, no session, no entry below this line.
	balance := e.ledger.NativeBalance(ctx, player.WalletAddress)
	if balance < e.cfg.EntryFee {
		log.Debug("reveal rejected, insufficient funds", "balance", balance, "entry_fee", e.cfg.EntryFee)
		return &models.RevealOutcome{Code: models.OutcomeInsufficientFunds, Choice: choice}, nil
	}

	houseWallet, err := e.store.HouseWallet(ctx, e.cfg.HousePool)
	if err != nil {
		return nil, err
	}

	feeResult := e.collectEntryFee(ctx, player, houseWallet)
	if !feeResult.Confirmed() {
		log.Warn("entry fee collection failed", "status", feeResult.Status, "error", feeResult.Err)
		return &models.RevealOutcome{Code: models.OutcomePaymentFailed, Choice: choice}, nil
	}
	log.Debug("entry fee collected", "tx_ref", feeResult.TxRef)

	// The grid is committed here, exactly once per paid round. A
	// duplicate click racing this one gets the same session back.
	session := e.sessions.GetOrCreate(userID, func() *models.Session {
		grid, jackpot, tokens := e.grids.Generate(e.cfg.GridSize, e.cfg.JackpotSlots, e.cfg.TokenCellCount)
		return &models.Session{
			UserID:      userID,
			Grid:        grid,
			JackpotCell: jackpot,
			TokenCells:  tokens,
			CreatedAt:   time.Now(),
		}
	})

	cell := session.Grid.At(row, col)
	outcome := &models.RevealOutcome{
		Code:      models.OutcomeOK,
		Choice:    choice,
		Cell:      cell,
		PrizeKind: models.PrizeNone,
	}

	switch cell {
	case models.CellJackpot:
		e.disburseJackpot(ctx, player, houseWallet, outcome, log)
	case models.CellToken:
		e.disburseTokenPrize(ctx, player, houseWallet, outcome, log)
	default:
		session.Grid.Set(row, col, models.CellBroken)
		log.Debug("no prize", "cell", choice)
	}

	outcome.GameID = e.ids.Next()
	snapshot := session.Grid.Clone()

	entry := &models.Entry{
		GameID:        outcome.GameID,
		UserID:        userID,
		WalletAddress: player.WalletAddress,
		Choice:        choice,
		Grid:          snapshot,
		RewardSent:    outcome.RewardSent,
		PrizeAmount:   outcome.PrizeAmount,
		PrizeKind:     outcome.PrizeKind,
		Delivery:      outcome.Delivery,
		TxRef:         outcome.TxRef,
		Timestamp:     time.Now(),
	}
	if err := e.store.SaveEntry(ctx, entry); err != nil {
		// Funds have already moved; losing the record is an audit gap,
		// not a reason to fail the round back to the player.
		log.Error("entry persistence failed", "game_id", outcome.GameID, "error", err)
	}

	e.sessions.Clear(userID)
	outcome.Grid = snapshot

	if outcome.Won() && e.broadcaster != nil {
		e.broadcaster.BroadcastWin(userID, outcome)
	}
	return outcome, nil
}

// collectEntryFee charges the fixed fee. With a referrer on file the fee
// goes out as one split transaction (house share + referrer cut); without
// one it is a single transfer of the house share. Either way the rest of
// the fee never leaves the payer's wallet.
func (e *PayoutEngine) collectEntryFee(ctx context.Context, player *models.Player, houseWallet string) ledger.TransferResult {
	fee := e.cfg.EntryFee

	if player.ReferrerID != 0 {
		referrer, err := e.store.GetPlayer(ctx, player.ReferrerID)
		if err == nil && referrer != nil && referrer.WalletAddress != "" {
			result := e.ledger.TransferNativeSplit(ctx, player.WalletAddress, houseWallet, referrer.WalletAddress,
				fee, e.cfg.HouseShareRef, e.cfg.ReferrerShare)
			if result.Confirmed() {
				cut := fee * e.cfg.ReferrerShare
				if err := e.store.AddEarned(ctx, player.ReferrerID, cut); err != nil {
					e.logger.Error("referrer earnings accrual failed", "referrer_id", player.ReferrerID, "amount", cut, "error", err)
				}
			}
			return result
		}
		if err != nil {
			e.logger.Warn("referrer lookup failed, collecting without split", "referrer_id", player.ReferrerID, "error", err)
		}
	}

	return e.ledger.TransferNative(ctx, player.WalletAddress, houseWallet, fee*e.cfg.HouseShareNoRef)
}

// disburseJackpot pays half of whatever the house wallet holds at this
// moment. The pot is read fresh here on purpose: it grows with every fee
// collected since the grid was generated.
func (e *PayoutEngine) disburseJackpot(ctx context.Context, player *models.Player, houseWallet string, outcome *models.RevealOutcome, log *slog.Logger) {
	pot := e.ledger.NativeBalance(ctx, houseWallet)
	prize := pot * e.cfg.JackpotShare

	outcome.PrizeKind = models.PrizeNative
	outcome.PrizeAmount = prize

	result := e.ledger.TransferNative(ctx, houseWallet, player.WalletAddress, prize)
	outcome.TxRef = result.TxRef
	if result.Confirmed() {
		outcome.RewardSent = true
		outcome.Delivery = models.DeliveryTransfer
		log.Info("jackpot paid", "prize", prize, "tx_ref", result.TxRef)
		return
	}

	outcome.Code = models.OutcomeDisbursementFailed
	log.Error("jackpot disbursement failed, prize owed", "user_id", player.UserID, "prize", prize, "status", result.Status, "error", result.Err)
}

// disburseTokenPrize draws a tier and delivers it on-chain when the token
// is live and the player can receive it, falling back to the off-chain
// credit ledger otherwise.
func (e *PayoutEngine) disburseTokenPrize(ctx context.Context, player *models.Player, houseWallet string, outcome *models.RevealOutcome, log *slog.Logger) {
	prize := e.cfg.PrizeTiers[e.grids.Intn(len(e.cfg.PrizeTiers))]
	outcome.PrizeKind = models.PrizeToken
	outcome.PrizeAmount = prize

	tokenLive, err := e.store.TokenActive(ctx)
	if err != nil {
		log.Warn("token flag read failed, delivering as credit", "error", err)
		tokenLive = false
	}

	if tokenLive {
		held, ok := e.ledger.TokenBalance(ctx, player.WalletAddress)
		if ok && held >= 1 {
			result := e.ledger.TransferToken(ctx, houseWallet, player.WalletAddress, prize)
			if result.Confirmed() {
				outcome.RewardSent = true
				outcome.Delivery = models.DeliveryTransfer
				outcome.TxRef = result.TxRef
				log.Info("token prize sent", "prize", prize, "tx_ref", result.TxRef)
				return
			}
			log.Warn("token transfer failed, falling back to credit", "prize", prize, "status", result.Status, "error", result.Err)
		}
	}

	if err := e.store.AddCredits(ctx, player.UserID, prize); err != nil {
		outcome.Code = models.OutcomeDisbursementFailed
		log.Error("credit delivery failed, prize owed", "user_id", player.UserID, "prize", prize, "error", err)
		return
	}
	outcome.RewardSent = true
	outcome.Delivery = models.DeliveryCredit
	log.Info("token prize credited", "prize", prize)
}

// Profile assembles the start-menu view: balances, wallet and what a
// jackpot win would pay right now.
func (e *PayoutEngine) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	player, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	profile := &models.Profile{
		UserID:        userID,
		WalletAddress: player.WalletAddress,
		CreditBalance: player.CreditBalance,
	}
	profile.NativeBalance = e.ledger.NativeBalance(ctx, player.WalletAddress)
	profile.TokenBalance, profile.TokenBalanceOK = e.ledger.TokenBalance(ctx, player.WalletAddress)

	if houseWallet, err := e.store.HouseWallet(ctx, e.cfg.HousePool); err == nil {
		profile.JackpotPreview = e.ledger.NativeBalance(ctx, houseWallet) * e.cfg.JackpotShare
	}
	return profile, nil
}

// RedeemCredits converts the player's whole credit balance into an
// on-chain token transfer, 1:1. Credits are only deducted after the
// transfer confirms.
func (e *PayoutEngine) RedeemCredits(ctx context.Context, userID int64) (*models.RedeemResult, error) {
	player, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	credits := player.CreditBalance
	if credits < e.cfg.RedeemMinimum {
		return nil, ErrNotEnoughCredits
	}

	tokenLive, err := e.store.TokenActive(ctx)
	if err != nil {
		return nil, err
	}
	if !tokenLive {
		return nil, ErrTokenInactive
	}

	held, ok := e.ledger.TokenBalance(ctx, player.WalletAddress)
	if !ok || held < 1 {
		return nil, ErrNoTokenAccount
	}

	houseWallet, err := e.store.HouseWallet(ctx, e.cfg.HousePool)
	if err != nil {
		return nil, err
	}

	result := e.ledger.TransferToken(ctx, houseWallet, player.WalletAddress, credits)
	if !result.Confirmed() {
		e.logger.Warn("credit redemption transfer failed", "user_id", userID, "amount", credits, "status", result.Status, "error", result.Err)
		return nil, ErrRedeemFailed
	}

	if err := e.store.SpendCredits(ctx, userID, credits); err != nil {
		// The tokens are already out; flag loudly for reconciliation.
		e.logger.Error("credit deduction failed after confirmed redemption", "user_id", userID, "amount", credits, "tx_ref", result.TxRef, "error", err)
	}

	e.logger.Info("credits redeemed", "user_id", userID, "amount", credits, "tx_ref", result.TxRef)
	return &models.RedeemResult{Amount: credits, TxRef: result.TxRef}, nil
}

// ImportWallet points the player row at a different wallet address.
// Address validation is the wallet service's concern.
func (e *PayoutEngine) ImportWallet(ctx context.Context, userID int64, address string) error {
	if address == "" {
		return fmt.Errorf("wallet address is required")
	}
	if err := e.store.SetWalletAddress(ctx, userID, address); err != nil {
		return err
	}
	e.logger.Info("wallet imported", "user_id", userID)
	return nil
}

// Result returns the persisted entry for a finished game, nil if the id
// is unknown.
func (e *PayoutEngine) Result(ctx context.Context, gameID int64) (*models.Entry, error) {
	return e.store.GetEntry(ctx, gameID)
}
