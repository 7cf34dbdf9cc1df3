package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"casinocore/internal/config"
	cronrunner "casinocore/internal/cron"
	"casinocore/internal/entropy"
	"casinocore/internal/handler"
	"casinocore/internal/history"
	"casinocore/internal/ledger"
	"casinocore/internal/logger"
	"casinocore/internal/service"
	"casinocore/internal/settlement"
)

func main() {
	cfgPath := os.Getenv("CC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ledgerHTTP := &http.Client{Timeout: cfg.Ledger.Timeout}
	ledgerClient := ledger.NewClient(ledgerHTTP, cfg.Ledger.RPCURL, logger)
	settlementClient := &settlement.Client{
		Ledger: ledgerClient,
		Logger: logger,
		Config: settlement.Config{
			RetryAttempts:  cfg.Ledger.RetryAttempts,
			RetryBaseDelay: cfg.Ledger.RetryBaseDelay,
			ConfirmPoll:    cfg.Ledger.ConfirmPoll,
			ConfirmTimeout: cfg.Ledger.ConfirmTimeout,
		},
	}
	store := history.NewStore(cfg.History.MaxRecords)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	baseCtx := ctx

	playService := &service.PlayService{
		Settlement: settlementClient,
		Store:      store,
		Logger:     logger,
		BaseCtx:    baseCtx,
	}
	refreshService := &service.HistoryRefreshService{
		Settlement: settlementClient,
		Wallet:     ledgerClient,
		Store:      store,
		Logger:     logger,
		Config:     cfg.History,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Wallet: ledgerClient}
	healthHandler.Register(engine)
	outcomeHandler := &handler.OutcomeHandler{Mines: cfg.Mines, Chain: cfg.Chain}
	outcomeHandler.Register(engine)
	settlementHandler := &handler.SettlementHandler{
		Play:            playService,
		Store:           store,
		Ledger:          ledgerClient,
		Chain:           cfg.Chain,
		Mines:           cfg.Mines,
		ExplorerBaseURL: cfg.Ledger.ExplorerBaseURL,
		Logger:          logger,
	}
	settlementHandler.Register(engine)

	latestDraw := &entropy.Latest{}
	entropyHandler := &handler.EntropyHandler{Latest: latestDraw}
	entropyHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, baseCtx)
	_, err = cronRunner.Add(cfg.History.RefreshSchedule, func(ctx context.Context) {
		if err := refreshService.RunOnce(ctx); err != nil {
			logger.Warn("cron history refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("cron register history refresh failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.Entropy.URL != "" {
		stream := entropy.NewStream(entropy.StreamOptions{
			URL:        cfg.Entropy.URL,
			BackoffMin: cfg.Entropy.BackoffMin,
			BackoffMax: cfg.Entropy.BackoffMax,
			Logger:     logger,
		})
		go func() {
			err := stream.Run(baseCtx, func(d entropy.Draw) {
				latestDraw.Set(d)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("entropy stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
