// Demo: drives a purchase through the in-memory billing adapter end to end.
// Needs a reachable redis (redis.url in config); the verification backend is
// stubbed in-process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"handyai-billing/internal/application"
	"handyai-billing/internal/config"
	"handyai-billing/internal/domain/model"
	billingAdapters "handyai-billing/internal/infra/adapters/billing"
	verifyAdapters "handyai-billing/internal/infra/adapters/verify"
	"handyai-billing/internal/infra/logging"
	red "handyai-billing/internal/infra/redis"
	"handyai-billing/internal/infra/sched"
	"handyai-billing/internal/infra/security"
	"handyai-billing/internal/usecase"
)

const demoProduct = "premium_subscription"

// alwaysOnline satisfies the worker's connectivity precondition in-process.
type alwaysOnline struct{}

func (alwaysOnline) Online(context.Context) bool { return true }

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load config (dev mode: signatures are permissive here)
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	// 2. Connect to redis and seed the signed-in user
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connect error: %v", err)
	}
	defer redisClient.Close()
	prefs := red.NewPrefsRepo(redisClient)
	if err := prefs.SetUserID(ctx, "demo-user-1"); err != nil {
		log.Fatalf("seed user: %v", err)
	}

	// 3. Stub verification backend: every purchase verifies as monthly premium
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			Success bool              `json:"success"`
			Data    model.Entitlement `json:"data"`
		}{
			Success: true,
			Data:    model.Entitlement{UID: "demo-user-1", Plan: model.PlanMonthly, ID: "ent-1"},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer backend.Close()

	// 4. Wire the billing stack against the in-memory adapter
	billingClient := billingAdapters.NewFakeBillingClient()
	billingClient.SetProducts(model.Product{
		ID:   demoProduct,
		Type: model.ProductTypeSubscription,
		Offers: []model.OfferVariant{
			{BasePlanID: string(model.PlanMonthly), OfferToken: "offer-monthly", FormattedPrice: "$4.99"},
		},
	})

	verifier, err := security.NewSignatureVerifier("", true, logger)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}
	table := usecase.NewEntitlementTable([]string{demoProduct}, logger)
	events := usecase.NewPurchaseEvents()
	queue := red.NewVerifyQueue(redisClient)
	locker := red.NewLocker(redisClient)

	catalogUC := usecase.NewCatalogUseCase(billingClient, table, cfg.Billing.CatalogFreshness, logger)
	reconcileUC := usecase.NewReconcileUseCase(table, verifier, queue, events, logger)
	verifyClient, err := verifyAdapters.NewHTTPClient(backend.URL, cfg.Verify.Timeout)
	if err != nil {
		log.Fatalf("verify client: %v", err)
	}
	verifyUC := usecase.NewVerifyUseCase(verifyClient, prefs, table, events, logger)

	facade := application.NewBillingFacade(
		billingClient, catalogUC, reconcileUC, table, events, locker,
		cfg.Billing.ReconnectFloor, cfg.Billing.ReconnectCap, logger,
	)
	worker := sched.NewVerifyWorker(queue, verifyUC, alwaysOnline{}, cfg.Worker.MaxAttempts, cfg.Worker.PollWait, cfg.Worker.OfflineWait, 10*time.Millisecond, logger)
	go worker.Start(ctx)

	// 5. Connect and watch the SKU state move through the lifecycle
	states, unsub := table.SubscribeState(demoProduct)
	defer unsub()

	facade.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	log.Printf("initial state: %s", table.State(demoProduct))

	if err := facade.MakePurchase(ctx, demoProduct, model.PlanMonthly); err != nil {
		log.Fatalf("make purchase: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case s := <-states:
			log.Printf("state change: %s", s)
			if s == model.SkuStatePurchasedAndAcknowledged {
				log.Printf("purchase verified; premium active")
				return
			}
		case <-deadline:
			log.Fatalf("timed out waiting for acknowledgement; last state: %s", table.State(demoProduct))
		}
	}
}
