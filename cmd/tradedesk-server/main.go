package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradedesk/internal/broker"
	"tradedesk/internal/cache"
	"tradedesk/internal/config"
	"tradedesk/internal/domain"
	"tradedesk/internal/engine"
	"tradedesk/internal/httpapi"
	"tradedesk/internal/journal"
	"tradedesk/internal/risk"
	"tradedesk/internal/session"
	"tradedesk/internal/util"
)

func main() {
	cfgPath := "config/tradedesk.yaml"
	if p := os.Getenv("TRADEDESK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	var brk broker.Broker
	switch cfg.Broker.Backend {
	case "alpaca":
		brk = broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, "", "")
	default:
		brk = broker.NewRESTBroker(cfg.Broker.BaseURL, cfg.Broker.Token)
	}

	var jnl *journal.Journal
	if cfg.Storage.SQLitePath != "" {
		jnl, err = journal.Open(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer jnl.Close()
	}

	sess := session.NewController(
		func(ctx context.Context, mode domain.Mode) (*domain.AccountInfo, error) {
			return brk.GetAccount(ctx, mode)
		},
		cfg.Session.OrdersPerMinute,
		logger.With("component", "session"),
	)
	if mode := domain.Mode(cfg.Session.DefaultMode); mode != domain.ModePaper {
		if err := sess.SwitchMode(mode); err != nil {
			log.Fatalf("failed to set default mode: %v", err)
		}
	}

	eng := engine.New(brk, cache.New(logger.With("component", "cache")), sess, jnl, logger.With("component", "engine"))

	var assessor httpapi.Assessor
	if cfg.Risk.BaseURL != "" {
		assessor = risk.NewClient(cfg.Risk.BaseURL, cfg.Risk.Token,
			logger.With("component", "risk"),
			risk.WithTimeout(time.Duration(cfg.Risk.TimeoutSeconds)*time.Second),
			risk.WithMemoTTL(time.Duration(cfg.Risk.MemoTTLSeconds)*time.Second),
		)
	}

	api := httpapi.NewServer(eng, sess, assessor, logger.With("component", "httpapi"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go sess.Poll(ctx, time.Duration(cfg.Session.PollIntervalSeconds)*time.Second)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		logger.Info("tradedesk-server listening", "addr", addr, "broker", brk.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
