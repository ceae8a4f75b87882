package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"shards-game-backend/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStoreWithClient(client, logger), mr
}

func TestPlayerLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	player := &models.Player{
		UserID:        100,
		WalletAddress: "wallet-100",
		ReferrerID:    7,
		CreatedAt:     time.Now(),
	}

	created, err := store.CreatePlayer(ctx, player)
	if err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	if !created {
		t.Fatal("expected first create to succeed")
	}

	// A second create must not overwrite the attribution.
	dup := &models.Player{UserID: 100, WalletAddress: "other", ReferrerID: 999}
	created, err = store.CreatePlayer(ctx, dup)
	if err != nil {
		t.Fatalf("CreatePlayer duplicate: %v", err)
	}
	if created {
		t.Fatal("duplicate create reported success")
	}

	got, err := store.GetPlayer(ctx, 100)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got == nil {
		t.Fatal("player missing after create")
	}
	if got.WalletAddress != "wallet-100" || got.ReferrerID != 7 {
		t.Errorf("player row changed: wallet=%q referrer=%d", got.WalletAddress, got.ReferrerID)
	}
}

func TestGetPlayerUnknown(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetPlayer(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown player, got %+v", got)
	}
}

func TestSetWalletAddress(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SetWalletAddress(ctx, 100, "imported"); err == nil {
		t.Fatal("expected error for missing player")
	}

	store.CreatePlayer(ctx, &models.Player{UserID: 100, WalletAddress: "generated"})
	if err := store.SetWalletAddress(ctx, 100, "imported"); err != nil {
		t.Fatalf("SetWalletAddress: %v", err)
	}

	got, _ := store.GetPlayer(ctx, 100)
	if got.WalletAddress != "imported" {
		t.Errorf("wallet = %q, want %q", got.WalletAddress, "imported")
	}
}

func TestCreditLedger(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.CreatePlayer(ctx, &models.Player{UserID: 100, WalletAddress: "w"})

	if err := store.AddCredits(ctx, 100, 5000); err != nil {
		t.Fatalf("AddCredits: %v", err)
	}
	if err := store.AddCredits(ctx, 100, 2500); err != nil {
		t.Fatalf("AddCredits: %v", err)
	}

	got, _ := store.GetPlayer(ctx, 100)
	if got.CreditBalance != 7500 {
		t.Fatalf("credit balance = %v, want 7500", got.CreditBalance)
	}

	if err := store.SpendCredits(ctx, 100, 7500); err != nil {
		t.Fatalf("SpendCredits: %v", err)
	}
	got, _ = store.GetPlayer(ctx, 100)
	if got.CreditBalance != 0 {
		t.Fatalf("credit balance after spend = %v, want 0", got.CreditBalance)
	}

	// Overdrafts fail and leave the balance alone.
	if err := store.SpendCredits(ctx, 100, 1); err == nil {
		t.Fatal("expected overdraft to fail")
	}
}

func TestAddEarned(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.CreatePlayer(ctx, &models.Player{UserID: 7, WalletAddress: "ref"})

	if err := store.AddEarned(ctx, 7, 0.003); err != nil {
		t.Fatalf("AddEarned: %v", err)
	}
	if err := store.AddEarned(ctx, 7, 0.003); err != nil {
		t.Fatalf("AddEarned: %v", err)
	}

	got, _ := store.GetPlayer(ctx, 7)
	if got.Earned < 0.0059 || got.Earned > 0.0061 {
		t.Errorf("earned = %v, want 0.006", got.Earned)
	}
}

func TestEntriesAreWriteOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry := &models.Entry{
		GameID:      1001,
		UserID:      100,
		Choice:      "C3",
		Grid:        models.NewGrid(5),
		RewardSent:  true,
		PrizeAmount: 5000,
		PrizeKind:   models.PrizeToken,
		Delivery:    models.DeliveryCredit,
		Timestamp:   time.Now(),
	}
	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	got, err := store.GetEntry(ctx, 1001)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got == nil {
		t.Fatal("entry missing after save")
	}
	if got.Choice != "C3" || got.PrizeAmount != 5000 || !got.RewardSent {
		t.Errorf("entry round-trip mismatch: %+v", got)
	}

	if err := store.SaveEntry(ctx, entry); err == nil {
		t.Fatal("second write for the same game id must fail")
	}
}

func TestGetEntryUnknown(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetEntry(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown entry, got %+v", got)
	}
}

func TestMaxGameID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.MaxGameID(ctx)
	if err != nil {
		t.Fatalf("MaxGameID: %v", err)
	}
	if ok {
		t.Fatal("empty index reported history")
	}

	for _, id := range []int64{1001, 1005, 1003} {
		store.SaveEntry(ctx, &models.Entry{GameID: id, UserID: 100, Grid: models.NewGrid(5), Timestamp: time.Now()})
	}

	max, ok, err := store.MaxGameID(ctx)
	if err != nil {
		t.Fatalf("MaxGameID: %v", err)
	}
	if !ok || max != 1005 {
		t.Fatalf("max = %d ok = %v, want 1005 true", max, ok)
	}
}

func TestReferralRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// An untouched record reads as zeros, not an error.
	record, err := store.GetReferral(ctx, 7)
	if err != nil {
		t.Fatalf("GetReferral: %v", err)
	}
	if record.ReferralCount != 0 || record.ShardRewards != 0 {
		t.Fatalf("fresh record not zero: %+v", record)
	}

	for want := int64(1); want <= 3; want++ {
		count, err := store.IncrementReferralCount(ctx, 7)
		if err != nil {
			t.Fatalf("IncrementReferralCount: %v", err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
	}

	if err := store.AddShardRewards(ctx, 7, 10000); err != nil {
		t.Fatalf("AddShardRewards: %v", err)
	}

	record, err = store.GetReferral(ctx, 7)
	if err != nil {
		t.Fatalf("GetReferral: %v", err)
	}
	if record.ReferralCount != 3 || record.ShardRewards != 10000 {
		t.Errorf("record = %+v, want count 3 rewards 10000", record)
	}
}

func TestTokenFlag(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	active, err := store.TokenActive(ctx)
	if err != nil {
		t.Fatalf("TokenActive: %v", err)
	}
	if active {
		t.Fatal("missing flag read as active")
	}

	if err := store.EnsureTokenFlag(ctx); err != nil {
		t.Fatalf("EnsureTokenFlag: %v", err)
	}
	if active, _ = store.TokenActive(ctx); active {
		t.Fatal("flag initialized active")
	}

	if err := store.SetTokenActive(ctx, true); err != nil {
		t.Fatalf("SetTokenActive: %v", err)
	}
	if active, _ = store.TokenActive(ctx); !active {
		t.Fatal("flag not active after set")
	}

	// Ensure must never reset an activated flag.
	if err := store.EnsureTokenFlag(ctx); err != nil {
		t.Fatalf("EnsureTokenFlag: %v", err)
	}
	if active, _ = store.TokenActive(ctx); !active {
		t.Fatal("EnsureTokenFlag deactivated the token")
	}
}

func TestHouseWalletDirectory(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.HouseWallet(ctx, "game_grid"); err == nil {
		t.Fatal("expected error for unregistered pool")
	}

	if err := store.EnsureHouseWallet(ctx, "game_grid", "house-1"); err != nil {
		t.Fatalf("EnsureHouseWallet: %v", err)
	}
	// Re-registering must not replace the existing address.
	if err := store.EnsureHouseWallet(ctx, "game_grid", "house-2"); err != nil {
		t.Fatalf("EnsureHouseWallet: %v", err)
	}

	address, err := store.HouseWallet(ctx, "game_grid")
	if err != nil {
		t.Fatalf("HouseWallet: %v", err)
	}
	if address != "house-1" {
		t.Errorf("address = %q, want house-1", address)
	}
}

func TestCheckRateLimit(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := store.CheckRateLimit(ctx, 100, "reveal", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d blocked under the limit", i+1)
		}
	}

	allowed, err := store.CheckRateLimit(ctx, 100, "reveal", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if allowed {
		t.Fatal("request over the limit allowed")
	}

	// A different user keeps an independent window.
	if allowed, _ := store.CheckRateLimit(ctx, 200, "reveal", 3, time.Minute); !allowed {
		t.Fatal("other user blocked by someone else's window")
	}

	mr.FastForward(time.Minute + time.Second)
	if allowed, _ := store.CheckRateLimit(ctx, 100, "reveal", 3, time.Minute); !allowed {
		t.Fatal("window did not reset after expiry")
	}
}
