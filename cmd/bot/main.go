package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"shards-game-backend/internal/config"
	"shards-game-backend/internal/handlers"
	"shards-game-backend/internal/ledger"
	"shards-game-backend/internal/middleware"
	"shards-game-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := services.NewStore(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.EnsureTokenFlag(ctx); err != nil {
		logger.Error("failed to initialize token flag", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureHouseWallet(ctx, cfg.HousePool, cfg.HouseWallet); err != nil {
		logger.Error("failed to register house wallet", "error", err)
		os.Exit(1)
	}

	maxGameID, haveHistory, err := store.MaxGameID(ctx)
	if err != nil {
		logger.Error("failed to load game id history", "error", err)
		os.Exit(1)
	}
	ids := services.NewGameIDAllocator(maxGameID, haveHistory, cfg.GameIDFloor)

	signer := ledger.NewRemoteSigner(cfg.SignerURL, nil)
	ledgerClient := ledger.NewRPCClient(ledger.Options{
		URL:            cfg.RPCURL,
		Mint:           cfg.TokenMint,
		Signer:         signer,
		ConfirmRetries: cfg.ConfirmRetries,
		ConfirmDelay:   cfg.ConfirmDelay,
		SubmitSettle:   cfg.SubmitSettle,
		Logger:         logger,
	})

	wsHandler := handlers.NewWebSocketHandler(logger)

	wallets := services.NewRemoteWalletProvider(cfg.WalletURL, nil)
	grids := services.NewGridGenerator(nil, cfg.JackpotChance)
	sessions := services.NewSessionStore()
	referrals := services.NewReferralLedger(store, wsHandler, cfg, logger)
	engine := services.NewPayoutEngine(store, sessions, ids, ledgerClient, grids, referrals, wallets, wsHandler, cfg, logger)

	jwtService := services.NewJWTService(cfg)
	authHandler := handlers.NewAuthHandler(engine, jwtService, cfg.BotToken)
	userHandler := handlers.NewUserHandler(engine)
	gameHandler := handlers.NewGameHandler(engine, referrals)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/auth/telegram", authHandler.Authenticate)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(store))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/wallet/import", userHandler.ImportWallet)
		protected.GET("/referrals/me", gameHandler.ReferralInfo)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("/reveal", gameHandler.Reveal)
			games.GET("/result/:game_id", gameHandler.Result)
			games.POST("/redeem", gameHandler.Redeem)
		}
	}

	logger.Info("server starting", "port", cfg.Port, "house_pool", cfg.HousePool)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
