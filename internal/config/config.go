package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	BotToken  string
	JWTSecret string

	// Ledger (chain RPC) settings
	RPCURL          string
	SignerURL       string
	WalletURL       string
	TokenMint       string
	ConfirmRetries  int
	ConfirmDelay    time.Duration
	SubmitSettle    time.Duration

	// Game settings
	HousePool        string
	HouseWallet      string
	EntryFee         float64
	GridSize         int
	JackpotSlots     int
	TokenCellCount   int
	JackpotChance    float64
	JackpotShare     float64
	HouseShareRef    float64 // share of the fee sent to the house when a referrer exists
	ReferrerShare    float64
	HouseShareNoRef  float64 // share sent to the house when there is no referrer
	PrizeTiers       []float64
	ReferralBonus    float64
	ReferralInterval int64
	RedeemMinimum    float64
	GameIDFloor      int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),

		BotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		RPCURL:    os.Getenv("LEDGER_RPC_URL"),
		SignerURL: os.Getenv("LEDGER_SIGNER_URL"),
		WalletURL: os.Getenv("WALLET_SERVICE_URL"),
		TokenMint: os.Getenv("TOKEN_MINT_ADDRESS"),

		HousePool:   getEnv("HOUSE_POOL", "game_grid"),
		HouseWallet: os.Getenv("HOUSE_WALLET_ADDRESS"),

		PrizeTiers: []float64{50000, 25000, 12500, 5000, 5000},
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ConfirmRetries, err = getEnvInt("LEDGER_CONFIRM_RETRIES", 4); err != nil {
		return nil, err
	}
	confirmDelaySec, err := getEnvInt("LEDGER_CONFIRM_DELAY_SECONDS", 1)
	if err != nil {
		return nil, err
	}
	cfg.ConfirmDelay = time.Duration(confirmDelaySec) * time.Second
	settleSec, err := getEnvInt("LEDGER_SUBMIT_SETTLE_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.SubmitSettle = time.Duration(settleSec) * time.Second

	if cfg.EntryFee, err = getEnvFloat("ENTRY_FEE", 0.03); err != nil {
		return nil, err
	}
	if cfg.GridSize, err = getEnvInt("GRID_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.JackpotSlots, err = getEnvInt("JACKPOT_SLOTS", 1); err != nil {
		return nil, err
	}
	if cfg.TokenCellCount, err = getEnvInt("TOKEN_CELL_COUNT", 5); err != nil {
		return nil, err
	}
	if cfg.JackpotChance, err = getEnvFloat("JACKPOT_CHANCE", 0.2); err != nil {
		return nil, err
	}
	if cfg.JackpotShare, err = getEnvFloat("JACKPOT_PAYOUT_SHARE", 0.5); err != nil {
		return nil, err
	}
	if cfg.HouseShareRef, err = getEnvFloat("FEE_HOUSE_SHARE_REFERRED", 0.8); err != nil {
		return nil, err
	}
	if cfg.ReferrerShare, err = getEnvFloat("FEE_REFERRER_SHARE", 0.1); err != nil {
		return nil, err
	}
	if cfg.HouseShareNoRef, err = getEnvFloat("FEE_HOUSE_SHARE", 0.9); err != nil {
		return nil, err
	}
	if cfg.ReferralBonus, err = getEnvFloat("REFERRAL_BONUS", 10000); err != nil {
		return nil, err
	}
	if cfg.ReferralInterval, err = getEnvInt64("REFERRAL_BONUS_EVERY", 10); err != nil {
		return nil, err
	}
	if cfg.RedeemMinimum, err = getEnvFloat("REDEEM_MINIMUM_CREDITS", 1000); err != nil {
		return nil, err
	}
	if cfg.GameIDFloor, err = getEnvInt64("GAME_ID_FLOOR", 1000); err != nil {
		return nil, err
	}

	if tiers := os.Getenv("PRIZE_TIERS"); tiers != "" {
		parsed, err := parseTiers(tiers)
		if err != nil {
			return nil, err
		}
		cfg.PrizeTiers = parsed
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("LEDGER_RPC_URL is required")
	}
	if cfg.HouseWallet == "" {
		return nil, fmt.Errorf("HOUSE_WALLET_ADDRESS is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %v", key, v, err)
	}
	return parsed, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %v", key, v, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %v", key, v, err)
	}
	return parsed, nil
}

func parseTiers(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	tiers := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PRIZE_TIERS entry %q: %v", p, err)
		}
		tiers = append(tiers, v)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("PRIZE_TIERS must not be empty")
	}
	return tiers, nil
}
