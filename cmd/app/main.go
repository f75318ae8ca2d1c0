package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-payment-engine/internal/config"
	"quiz-payment-engine/internal/domain/ports/adapter"
	gwAdapters "quiz-payment-engine/internal/infra/adapters/gateway"
	"quiz-payment-engine/internal/infra/adapters/notify"
	pg "quiz-payment-engine/internal/infra/db/postgres"
	"quiz-payment-engine/internal/infra/logging"
	"quiz-payment-engine/internal/infra/metrics"
	red "quiz-payment-engine/internal/infra/redis"
	"quiz-payment-engine/internal/infra/sched"
	"quiz-payment-engine/internal/infra/signing"
	"quiz-payment-engine/internal/infra/web"
	"quiz-payment-engine/internal/infra/worker"
	"quiz-payment-engine/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (simulation endpoint, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	txnRepo := pg.NewTransactionRepo(pool)
	acctRepo := pg.NewAccountRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Signers: key1 authenticates outbound orders, key2 inbound
	// callbacks. Separate instances so the secrets cannot be interchanged.
	orderSigner := signing.New(cfg.Payment.ZaloPay.Key1)
	callbackSigner := signing.New(cfg.Payment.ZaloPay.Key2)

	// ---- Gateway ----
	gw, err := gwAdapters.NewZaloPayGateway(
		cfg.Payment.ZaloPay.AppID,
		orderSigner,
		cfg.Payment.ZaloPay.Endpoint,
		cfg.Payment.ZaloPay.CallbackURL,
		cfg.Payment.ZaloPay.RedirectURL,
		cfg.Payment.ZaloPay.Timeout,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("zalopay gateway")
	}

	// ---- Notification ----
	notifyPool := worker.NewPool(4, logger)
	notifyPool.Start(ctx)
	defer notifyPool.Stop()
	var delivery adapter.Notifier
	if cfg.Notify.WebhookURL != "" {
		delivery = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	} else {
		delivery = notify.NewLogNotifier(logger)
	}
	notifier := notify.NewAsync(notifyPool, delivery, logger)

	// ---- Use cases ----
	grantUC := usecase.NewGrantUseCase(txnRepo, acctRepo, statusCache, notifier, tm, logger)
	orderUC := usecase.NewOrderUseCase(txnRepo, acctRepo, statusCache, gw, logger)
	callbackUC := usecase.NewCallbackUseCase(callbackSigner, txnRepo, grantUC, gw.Name(), cfg.Payment.AllowSimulation, logger)
	statusUC := usecase.NewStatusUseCase(txnRepo, statusCache, logger)
	statsUC := usecase.NewStatsUseCase(txnRepo, logger)

	// ---- Reconciliation sweep ----
	reconciler := sched.NewPaymentReconciler(grantUC, txnRepo, gw, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	srv := web.NewServer(orderUC, callbackUC, statusUC, statsUC, cfg.Admin.APIKey, cfg.Runtime.Dev && cfg.Payment.AllowSimulation, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
