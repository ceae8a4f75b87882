package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"shards-game-backend/internal/config"
	"shards-game-backend/internal/services"
)

const testBotToken = "12345:test-bot-token"

type stubWallets struct{}

func (stubWallets) NewWallet(ctx context.Context, userID int64) (string, error) {
	return fmt.Sprintf("wallet-%d", userID), nil
}

type authRig struct {
	router     *gin.Engine
	store      *services.Store
	jwtService *services.JWTService
}

func newAuthRig(t *testing.T) *authRig {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := services.NewStoreWithClient(client, logger)

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		ReferralBonus:    10000,
		ReferralInterval: 10,
		GameIDFloor:      1000,
	}

	referrals := services.NewReferralLedger(store, nil, cfg, logger)
	engine := services.NewPayoutEngine(
		store,
		services.NewSessionStore(),
		services.NewGameIDAllocator(0, false, cfg.GameIDFloor),
		nil,
		services.NewGridGenerator(nil, 0),
		referrals,
		stubWallets{},
		nil,
		cfg,
		logger,
	)

	jwtService := services.NewJWTService(cfg)
	handler := NewAuthHandler(engine, jwtService, testBotToken)

	router := gin.New()
	router.GET("/auth/telegram", handler.Authenticate)
	return &authRig{router: router, store: store, jwtService: jwtService}
}

// loginHash computes the Telegram login-widget signature over the given
// query parameters.
func loginHash(botToken string, params url.Values) string {
	var pairs []string
	for key := range params {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+params.Get(key))
	}
	sort.Strings(pairs)

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (r *authRig) get(t *testing.T, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/telegram?"+params.Encode(), nil)
	rec := httptest.NewRecorder()
	r.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateRejectsInvalidID(t *testing.T) {
	rig := newAuthRig(t)

	for _, id := range []string{"", "abc", "0", "-5"} {
		params := url.Values{"id": {id}, "hash": {"irrelevant"}}
		if rec := rig.get(t, params); rec.Code != http.StatusBadRequest {
			t.Errorf("id=%q status = %d, want 400", id, rec.Code)
		}
	}
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	rig := newAuthRig(t)

	params := url.Values{"id": {"100"}, "hash": {"deadbeef"}}
	if rec := rig.get(t, params); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	// A hash signed with somebody else's bot token must not pass either.
	params = url.Values{"id": {"100"}}
	params.Set("hash", loginHash("999:other-token", params))
	if rec := rig.get(t, params); rec.Code != http.StatusUnauthorized {
		t.Errorf("foreign signature status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateIssuesToken(t *testing.T) {
	rig := newAuthRig(t)

	params := url.Values{"id": {"100"}, "first_name": {"Ada"}}
	params.Set("hash", loginHash(testBotToken, params))

	rec := rig.get(t, params)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token  string `json:"token"`
		Player struct {
			UserID        int64  `json:"user_id"`
			WalletAddress string `json:"wallet_address"`
		} `json:"player"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}

	claims, err := rig.jwtService.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.UserID != 100 {
		t.Errorf("token user id = %d, want 100", claims.UserID)
	}
	if resp.Player.WalletAddress != "wallet-100" {
		t.Errorf("wallet = %q, want the provisioned one", resp.Player.WalletAddress)
	}

	player, err := rig.store.GetPlayer(context.Background(), 100)
	if err != nil || player == nil {
		t.Fatalf("player not registered: %v", err)
	}
}

func TestAuthenticateAttributesReferral(t *testing.T) {
	rig := newAuthRig(t)

	params := url.Values{"id": {"100"}, "start_param": {"7"}}
	params.Set("hash", loginHash(testBotToken, params))

	if rec := rig.get(t, params); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	record, err := rig.store.GetReferral(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetReferral: %v", err)
	}
	if record.ReferralCount != 1 {
		t.Errorf("referral count = %d, want 1", record.ReferralCount)
	}

	// Logging in again must not double-count the referral.
	if rec := rig.get(t, params); rec.Code != http.StatusOK {
		t.Fatalf("second login status = %d", rec.Code)
	}
	record, _ = rig.store.GetReferral(context.Background(), 7)
	if record.ReferralCount != 1 {
		t.Errorf("referral count = %d after re-login, want 1", record.ReferralCount)
	}
}
