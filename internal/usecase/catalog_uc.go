// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// CatalogUseCase owns queried product metadata and its freshness. Entries are
// replaced wholesale on re-query; a failed query leaves the cache untouched.
type CatalogUseCase interface {
	// Query fetches details for every tracked product and stores them in the
	// entitlement table's product cells.
	Query(ctx context.Context) error
	// EnsureFresh re-queries only when the cache is older than the freshness
	// window. Wired to the 0->1 active-subscriber transition of product
	// cells, which bounds the query rate regardless of subscriber count.
	EnsureFresh(ctx context.Context)
	// Price returns the localized price for a plan token of the given
	// product, or "" while unpopulated.
	Price(productID string, plan model.Plan) string
	Fresh() bool
}

type catalogUC struct {
	client adapter.BillingClient
	table  *EntitlementTable
	window time.Duration
	log    *zerolog.Logger

	mu          sync.Mutex
	lastSuccess time.Time
	now         func() time.Time
}

func NewCatalogUseCase(client adapter.BillingClient, table *EntitlementTable, window time.Duration, logger *zerolog.Logger) *catalogUC {
	if window <= 0 {
		window = time.Minute
	}
	return &catalogUC{client: client, table: table, window: window, log: logger, now: time.Now}
}

func (u *catalogUC) Query(ctx context.Context) error {
	products, code, err := u.client.QueryProducts(ctx, u.table.Tracked(), model.ProductTypeSubscription)
	if err == nil && code != adapter.ResponseOK {
		err = fmt.Errorf("catalog query: %s", code)
	}
	if err != nil {
		// Leave cached entries untouched; mark stale so the next active
		// subscriber triggers a re-query.
		u.mu.Lock()
		u.lastSuccess = time.Time{}
		u.mu.Unlock()
		u.log.Warn().Err(err).Stringer("code", code).Msg("catalog query failed")
		return err
	}
	if len(products) == 0 {
		u.log.Warn().Msg("catalog query returned no products")
	}
	for _, p := range products {
		u.table.SetProduct(p)
	}
	u.mu.Lock()
	u.lastSuccess = u.now()
	u.mu.Unlock()
	return nil
}

func (u *catalogUC) EnsureFresh(ctx context.Context) {
	u.mu.Lock()
	stale := u.lastSuccess.IsZero() || u.now().Sub(u.lastSuccess) > u.window
	if stale {
		// Stamp before querying so concurrent activations cause one query.
		u.lastSuccess = u.now()
	}
	u.mu.Unlock()
	if !stale {
		return
	}
	u.log.Debug().Msg("stale catalog; re-querying")
	if err := u.Query(ctx); err != nil {
		u.log.Warn().Err(err).Msg("catalog refresh failed")
	}
}

func (u *catalogUC) Price(productID string, plan model.Plan) string {
	p, ok := u.table.Product(productID)
	if !ok {
		return ""
	}
	return p.Price(string(plan))
}

func (u *catalogUC) Fresh() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return !u.lastSuccess.IsZero() && u.now().Sub(u.lastSuccess) <= u.window
}
