// File: internal/application/billing_facade.go
package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"handyai-billing/internal/domain"
	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"
	"handyai-billing/internal/domain/ports/repository"
	"handyai-billing/internal/infra/metrics"
	"handyai-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// Compile-time checks: the facade is the billing service's listener.
var (
	_ adapter.ConnectionListener = (*BillingFacade)(nil)
	_ adapter.PurchasesListener  = (*BillingFacade)(nil)
)

const (
	reconnectFloorDefault = time.Second
	reconnectCapDefault   = 15 * time.Minute
	consumeLockTTL        = 2 * time.Minute
)

// BillingFacade supervises the billing service session and composes the
// purchase use cases behind it. It owns reconnection backoff, purchase-flow
// launches, resume-time refreshes, and the debug consumption path.
//
// Connection failures are never fatal: every failed setup or unexpected drop
// schedules another attempt, with only the inter-attempt delay bounded.
type BillingFacade struct {
	client     adapter.BillingClient
	catalog    usecase.CatalogUseCase
	reconciler usecase.ReconcileUseCase
	table      *usecase.EntitlementTable
	events     *usecase.PurchaseEvents
	locks      repository.Locker
	log        *zerolog.Logger

	mu             sync.Mutex
	reconnectDelay time.Duration
	floor, ceiling time.Duration

	// after schedules fn to run after d; replaced in tests.
	after func(d time.Duration, fn func())

	ctx context.Context
}

func NewBillingFacade(
	client adapter.BillingClient,
	catalog usecase.CatalogUseCase,
	reconciler usecase.ReconcileUseCase,
	table *usecase.EntitlementTable,
	events *usecase.PurchaseEvents,
	locks repository.Locker,
	floor, ceiling time.Duration,
	logger *zerolog.Logger,
) *BillingFacade {
	if floor <= 0 {
		floor = reconnectFloorDefault
	}
	if ceiling <= 0 {
		ceiling = reconnectCapDefault
	}
	return &BillingFacade{
		client:         client,
		catalog:        catalog,
		reconciler:     reconciler,
		table:          table,
		events:         events,
		locks:          locks,
		log:            logger,
		reconnectDelay: floor,
		floor:          floor,
		ceiling:        ceiling,
		after:          func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		ctx:            context.Background(),
	}
}

// Start registers the facade as the billing listeners and begins session
// establishment. ctx bounds all background work the facade spawns.
func (f *BillingFacade) Start(ctx context.Context) {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()
	f.client.SetPurchasesListener(f)
	metrics.IncConnectionAttempt()
	f.client.StartConnection(f)
}

// OnBillingSetupFinished resets backoff and kicks off the initial catalog
// query and purchase refresh on OK; any other code schedules a reconnect.
func (f *BillingFacade) OnBillingSetupFinished(code adapter.ResponseCode) {
	f.log.Debug().Stringer("code", code).Msg("billing setup finished")
	if code != adapter.ResponseOK {
		f.scheduleReconnect()
		return
	}
	f.mu.Lock()
	f.reconnectDelay = f.floor
	ctx := f.ctx
	f.mu.Unlock()

	go func() {
		if err := f.catalog.Query(ctx); err != nil {
			metrics.IncCatalogQuery("error")
			f.log.Warn().Err(err).Msg("initial catalog query failed")
		} else {
			metrics.IncCatalogQuery("ok")
		}
		f.refreshPurchases(ctx)
	}()
}

// OnBillingServiceDisconnected handles unexpected drops; same backoff path,
// starting from wherever the delay currently stands.
func (f *BillingFacade) OnBillingServiceDisconnected() {
	f.log.Warn().Msg("billing service disconnected")
	metrics.IncDisconnect()
	f.scheduleReconnect()
}

func (f *BillingFacade) scheduleReconnect() {
	f.mu.Lock()
	d := f.reconnectDelay
	f.reconnectDelay = f.reconnectDelay * 2
	if f.reconnectDelay > f.ceiling {
		f.reconnectDelay = f.ceiling
	}
	f.mu.Unlock()

	f.log.Info().Dur("delay", d).Msg("scheduling billing reconnect")
	metrics.ObserveReconnectDelay(d)
	f.after(d, func() {
		metrics.IncConnectionAttempt()
		f.client.StartConnection(f)
	})
}

// OnPurchasesUpdated is the billing service's callback after a purchase flow
// or an out-of-band change. A nil list with OK is logged, not an error.
func (f *BillingFacade) OnPurchasesUpdated(code adapter.ResponseCode, purchases []model.PurchaseRecord) {
	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()

	switch code {
	case adapter.ResponseOK:
		if purchases != nil {
			f.reconciler.Process(ctx, purchases, nil)
			f.events.SetFlowInProgress(false)
			return
		}
		f.log.Warn().Msg("purchases updated: null purchase list on OK response")
	case adapter.ResponseUserCanceled:
		f.log.Info().Msg("purchases updated: USER_CANCELED")
	case adapter.ResponseItemAlreadyOwned:
		f.log.Info().Msg("purchases updated: ITEM_ALREADY_OWNED")
	case adapter.ResponseDeveloperError:
		f.log.Error().Msg("purchases updated: DEVELOPER_ERROR")
	default:
		f.log.Warn().Stringer("code", code).Msg("purchases updated: unhandled response")
	}

	f.events.EmitNewPurchase(code, nil)
	f.events.SetFlowInProgress(false)
}

// Resume re-queries purchases when the app returns to the foreground:
// purchases can change out-of-band (refunds, promo grants). Skipped while a
// purchase flow is mid-flight to avoid a redundant refresh.
func (f *BillingFacade) Resume() {
	if f.events.FlowInProgress() || !f.client.Ready() {
		return
	}
	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()
	go f.refreshPurchases(ctx)
}

func (f *BillingFacade) refreshPurchases(ctx context.Context) {
	purchases, code, err := f.client.QueryActivePurchases(ctx, model.ProductTypeSubscription)
	if err != nil || code != adapter.ResponseOK {
		f.log.Warn().Err(err).Stringer("code", code).Msg("purchase refresh failed")
		return
	}
	f.reconciler.Process(ctx, purchases, f.table.Tracked())
}

// MakePurchase launches the billing flow for the given product and plan. A
// request that fails locally (unknown sku, no matching offer) short-circuits
// without side effects.
func (f *BillingFacade) MakePurchase(ctx context.Context, productID string, plan model.Plan) error {
	product, ok := f.table.Product(productID)
	if !ok {
		f.log.Warn().Str("product_id", productID).Msg("make purchase: unknown SKU or no details yet")
		return domain.ErrUnknownProduct
	}
	offer, ok := product.Offer(string(plan))
	if !ok {
		f.log.Error().Str("product_id", productID).Str("plan", string(plan)).Msg("make purchase: offer token not found")
		return domain.ErrNoMatchingOffer
	}

	code, err := f.client.LaunchPurchaseFlow(ctx, *product, offer.OfferToken)
	if err != nil {
		return fmt.Errorf("launch purchase flow: %w", err)
	}
	if code != adapter.ResponseOK {
		f.log.Warn().Stringer("code", code).Msg("make purchase: launch refused")
		return fmt.Errorf("launch purchase flow: %s", code)
	}
	f.events.SetFlowInProgress(true)
	return nil
}

// ConsumePurchase consumes the purchase covering productID so it can be
// bought again. Debug tooling only; concurrent attempts on the same purchase
// token are no-ops via the consumption lock.
func (f *BillingFacade) ConsumePurchase(ctx context.Context, productID string) error {
	purchases, code, err := f.client.QueryActivePurchases(ctx, model.ProductTypeSubscription)
	if err != nil || code != adapter.ResponseOK {
		return fmt.Errorf("query purchases: %s: %w", code, err)
	}
	for i := range purchases {
		p := &purchases[i]
		if !p.Covers(productID) {
			continue
		}
		return f.consume(ctx, p)
	}
	f.log.Warn().Str("product_id", productID).Msg("consume: no active purchase covers SKU")
	return domain.ErrNotFound
}

func (f *BillingFacade) consume(ctx context.Context, p *model.PurchaseRecord) error {
	token, err := f.locks.TryLock(ctx, "consume:"+p.Token, consumeLockTTL)
	if err != nil {
		f.log.Debug().Msg("consume: already in progress")
		return domain.ErrConsumptionInFlight
	}
	defer func() {
		if err := f.locks.Unlock(ctx, "consume:"+p.Token, token); err != nil {
			f.log.Warn().Err(err).Msg("consume: unlock failed")
		}
	}()

	code, err := f.client.ConsumePurchase(ctx, p.Token)
	if err != nil {
		return fmt.Errorf("consume purchase: %w", err)
	}
	switch code {
	case adapter.ResponseOK, adapter.ResponseItemNotOwned:
		for _, sku := range p.Products {
			f.table.SetState(sku, model.SkuStateNotPurchased)
		}
		// Consumption resets the local view entirely.
		f.table.SetLocalState(model.SkuStateUnknown)
		f.log.Info().Strs("products", p.Products).Stringer("code", code).Msg("purchase consumed")
		return nil
	default:
		f.log.Warn().Stringer("code", code).Msg("consume: refused")
		return fmt.Errorf("consume purchase: %s", code)
	}
}

// ReconnectDelay exposes the current backoff delay, for introspection.
func (f *BillingFacade) ReconnectDelay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnectDelay
}
