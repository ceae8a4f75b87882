package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shards-game-backend/internal/config"
	"shards-game-backend/internal/models"
)

// Store is the persistence collaborator: player rows, append-only game
// entries, referral records, house wallet directory and the token-economy
// flag, all in Redis.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

func NewStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{client: client, logger: logger}, nil
}

// NewStoreWithClient wraps an existing client, used by tests.
func NewStoreWithClient(client *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// --- players / wallet directory ---

func (s *Store) GetPlayer(ctx context.Context, userID int64) (*models.Player, error) {
	key := fmt.Sprintf(KeyPlayer, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %v", err)
	}

	var player models.Player
	if err := json.Unmarshal([]byte(data), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %v", err)
	}
	return &player, nil
}

// CreatePlayer stores a new player row. Returns false without touching
// anything if the row already exists, so the referrer attribution set at
// first interaction can never be overwritten.
func (s *Store) CreatePlayer(ctx context.Context, player *models.Player) (bool, error) {
	key := fmt.Sprintf(KeyPlayer, player.UserID)

	data, err := json.Marshal(player)
	if err != nil {
		return false, fmt.Errorf("failed to marshal player: %v", err)
	}

	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create player: %v", err)
	}
	return created, nil
}

var setWalletScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return redis.error_reply("player not found")
	end

	local player = cjson.decode(data)
	player.wallet_address = ARGV[1]
	redis.call("SET", KEYS[1], cjson.encode(player))
	return "OK"
`)

func (s *Store) SetWalletAddress(ctx context.Context, userID int64, address string) error {
	key := fmt.Sprintf(KeyPlayer, userID)
	return setWalletScript.Run(ctx, s.client, []string{key}, address).Err()
}

var addFieldScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return redis.error_reply("player not found")
	end

	local player = cjson.decode(data)
	local field = ARGV[1]
	player[field] = (player[field] or 0) + tonumber(ARGV[2])
	redis.call("SET", KEYS[1], cjson.encode(player))
	return "OK"
`)

// AddCredits atomically moves the off-chain credit ledger.
func (s *Store) AddCredits(ctx context.Context, userID int64, amount float64) error {
	key := fmt.Sprintf(KeyPlayer, userID)
	return addFieldScript.Run(ctx, s.client, []string{key}, "credit_balance", amount).Err()
}

// AddEarned accrues referral earnings on the referrer's row.
func (s *Store) AddEarned(ctx context.Context, userID int64, amount float64) error {
	key := fmt.Sprintf(KeyPlayer, userID)
	return addFieldScript.Run(ctx, s.client, []string{key}, "earned", amount).Err()
}

var spendCreditsScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return redis.error_reply("player not found")
	end

	local player = cjson.decode(data)
	local amount = tonumber(ARGV[1])
	local balance = player.credit_balance or 0

	if balance < amount then
		return redis.error_reply("insufficient credits")
	end

	player.credit_balance = balance - amount
	redis.call("SET", KEYS[1], cjson.encode(player))
	return "OK"
`)

// SpendCredits atomically deducts redeemed credits, failing if the
// balance no longer covers the amount.
func (s *Store) SpendCredits(ctx context.Context, userID int64, amount float64) error {
	key := fmt.Sprintf(KeyPlayer, userID)
	return spendCreditsScript.Run(ctx, s.client, []string{key}, amount).Err()
}

// --- entries ---

// SaveEntry appends one resolved game. Entries are write-once: a second
// write for the same game id is an error, never an overwrite.
func (s *Store) SaveEntry(ctx context.Context, entry *models.Entry) error {
	key := fmt.Sprintf(KeyEntry, entry.GameID)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %v", err)
	}

	stored, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save entry: %v", err)
	}
	if !stored {
		return fmt.Errorf("entry %d already recorded", entry.GameID)
	}

	if err := s.client.ZAdd(ctx, KeyEntryIndex, redis.Z{
		Score:  float64(entry.GameID),
		Member: entry.GameID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index entry: %v", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, gameID int64) (*models.Entry, error) {
	key := fmt.Sprintf(KeyEntry, gameID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %v", err)
	}

	var entry models.Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %v", err)
	}
	return &entry, nil
}

// MaxGameID returns the highest recorded game id, ok=false when no
// entries exist yet.
func (s *Store) MaxGameID(ctx context.Context) (int64, bool, error) {
	top, err := s.client.ZRevRangeWithScores(ctx, KeyEntryIndex, 0, 0).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to query max game id: %v", err)
	}
	if len(top) == 0 {
		return 0, false, nil
	}
	return int64(top[0].Score), true, nil
}

// --- referrals ---

func (s *Store) IncrementReferralCount(ctx context.Context, referrerID int64) (int64, error) {
	key := fmt.Sprintf(KeyReferral, referrerID)

	count, err := s.client.HIncrBy(ctx, key, ReferralFieldCount, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment referral count: %v", err)
	}
	return count, nil
}

func (s *Store) AddShardRewards(ctx context.Context, referrerID int64, amount float64) error {
	key := fmt.Sprintf(KeyReferral, referrerID)
	return s.client.HIncrByFloat(ctx, key, ReferralFieldRewards, amount).Err()
}

func (s *Store) GetReferral(ctx context.Context, referrerID int64) (*models.ReferralRecord, error) {
	key := fmt.Sprintf(KeyReferral, referrerID)

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get referral record: %v", err)
	}

	record := &models.ReferralRecord{ReferrerID: referrerID}
	if raw, ok := fields[ReferralFieldCount]; ok {
		record.ReferralCount, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw, ok := fields[ReferralFieldRewards]; ok {
		record.ShardRewards, _ = strconv.ParseFloat(raw, 64)
	}
	return record, nil
}

// --- token-economy flag ---

// EnsureTokenFlag durably creates the flag as inactive if it is absent.
func (s *Store) EnsureTokenFlag(ctx context.Context) error {
	return s.client.SetNX(ctx, KeyTokenActive, "0", 0).Err()
}

func (s *Store) TokenActive(ctx context.Context) (bool, error) {
	value, err := s.client.Get(ctx, KeyTokenActive).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read token flag: %v", err)
	}
	return value == "1", nil
}

func (s *Store) SetTokenActive(ctx context.Context, active bool) error {
	value := "0"
	if active {
		value = "1"
	}
	return s.client.Set(ctx, KeyTokenActive, value, 0).Err()
}

// --- house wallets ---

func (s *Store) EnsureHouseWallet(ctx context.Context, pool, address string) error {
	key := fmt.Sprintf(KeyHouseWallet, pool)
	return s.client.SetNX(ctx, key, address, 0).Err()
}

func (s *Store) HouseWallet(ctx context.Context, pool string) (string, error) {
	key := fmt.Sprintf(KeyHouseWallet, pool)

	address, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("no house wallet registered for pool %q", pool)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get house wallet: %v", err)
	}
	return address, nil
}

// --- rate limiting ---

func (s *Store) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}
