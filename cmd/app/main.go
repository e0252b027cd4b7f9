// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"handyai-billing/internal/application"
	"handyai-billing/internal/config"
	billingAdapters "handyai-billing/internal/infra/adapters/billing"
	"handyai-billing/internal/infra/adapters/netcheck"
	verifyAdapters "handyai-billing/internal/infra/adapters/verify"
	"handyai-billing/internal/infra/logging"
	"handyai-billing/internal/infra/metrics"
	red "handyai-billing/internal/infra/redis"
	"handyai-billing/internal/infra/sched"
	"handyai-billing/internal/infra/security"
	"handyai-billing/internal/infra/web"
	"handyai-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (permissive signature checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	prefs := red.NewPrefsRepo(redisClient)
	queue := red.NewVerifyQueue(redisClient)
	if n, err := queue.Recover(ctx); err != nil {
		logger.Fatal().Err(err).Msg("verify queue recovery")
	} else if n > 0 {
		logger.Info().Int("jobs", n).Msg("recovered in-flight verification jobs")
	}
	locker := red.NewLocker(redisClient)

	// ---- Signature verification ----
	verifier, err := security.NewSignatureVerifier(cfg.Billing.Base64PublicKey, cfg.Billing.AllowUnsigned, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("signature verifier")
	}

	// ---- Billing client ----
	// The in-memory adapter stands in for the platform billing service; a
	// deployment targeting a real provider swaps this one constructor.
	billingClient := billingAdapters.NewFakeBillingClient()

	// ---- State + events ----
	table := usecase.NewEntitlementTable(cfg.Billing.TrackedProducts, logger)
	events := usecase.NewPurchaseEvents()

	// ---- Use cases ----
	catalogUC := usecase.NewCatalogUseCase(billingClient, table, cfg.Billing.CatalogFreshness, logger)
	reconcileUC := usecase.NewReconcileUseCase(table, verifier, queue, events, logger)

	verifyClient, err := verifyAdapters.NewHTTPClient(cfg.Verify.URL, cfg.Verify.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify client")
	}
	verifyUC := usecase.NewVerifyUseCase(verifyClient, prefs, table, events, logger)

	// First subscriber on a product cell re-queries the catalog when stale.
	table.SetActivationHook(func(string) { catalogUC.EnsureFresh(ctx) })

	// ---- Facade ----
	facade := application.NewBillingFacade(
		billingClient, catalogUC, reconcileUC, table, events, locker,
		cfg.Billing.ReconnectFloor, cfg.Billing.ReconnectCap, logger,
	)
	facade.Start(ctx)

	// ---- Verification worker ----
	probe, err := netcheck.NewDialProbe(cfg.Verify.URL, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("connectivity probe")
	}
	worker := sched.NewVerifyWorker(queue, verifyUC, probe, cfg.Worker.MaxAttempts, cfg.Worker.PollWait, cfg.Worker.OfflineWait, cfg.Worker.RetryWait, logger)
	go worker.Start(ctx)

	// ---- Ops HTTP server ----
	auth := web.NewAuthManager(cfg.Ops.JWTSecret, 0)
	srv := web.NewServer(facade, table, catalogUC, auth, logger)
	go func() {
		if err := srv.Start(cfg.Ops.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	_ = srv.Shutdown(context.Background())
}
