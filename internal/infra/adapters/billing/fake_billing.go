// File: internal/infra/adapters/billing/fake_billing.go
package billing

import (
	"context"
	"sync"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"
)

var _ adapter.BillingClient = (*FakeBillingClient)(nil)

// FakeBillingClient is a scriptable in-memory billing service for the demo
// binary and tests. Connection outcomes, catalog contents, and purchase lists
// are all settable; purchase flows resolve through the registered listener
// the way the real service would.
type FakeBillingClient struct {
	mu sync.Mutex

	SetupCode    adapter.ResponseCode
	ProductsCode adapter.ResponseCode
	PurchaseCode adapter.ResponseCode
	LaunchCode   adapter.ResponseCode
	ConsumeCode  adapter.ResponseCode

	products  map[string]model.Product
	purchases []model.PurchaseRecord

	ready        bool
	connListener adapter.ConnectionListener
	purListener  adapter.PurchasesListener
}

func NewFakeBillingClient() *FakeBillingClient {
	return &FakeBillingClient{
		SetupCode:    adapter.ResponseOK,
		ProductsCode: adapter.ResponseOK,
		PurchaseCode: adapter.ResponseOK,
		LaunchCode:   adapter.ResponseOK,
		ConsumeCode:  adapter.ResponseOK,
		products:     make(map[string]model.Product),
	}
}

// SetProducts replaces the scripted catalog.
func (c *FakeBillingClient) SetProducts(products ...model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make(map[string]model.Product, len(products))
	for _, p := range products {
		c.products[p.ID] = p
	}
}

// SetPurchases replaces the scripted active-purchase list.
func (c *FakeBillingClient) SetPurchases(purchases ...model.PurchaseRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purchases = append([]model.PurchaseRecord(nil), purchases...)
}

func (c *FakeBillingClient) StartConnection(l adapter.ConnectionListener) {
	c.mu.Lock()
	c.connListener = l
	code := c.SetupCode
	c.ready = code == adapter.ResponseOK
	c.mu.Unlock()
	l.OnBillingSetupFinished(code)
}

// Drop simulates an unexpected disconnect.
func (c *FakeBillingClient) Drop() {
	c.mu.Lock()
	c.ready = false
	l := c.connListener
	c.mu.Unlock()
	if l != nil {
		l.OnBillingServiceDisconnected()
	}
}

func (c *FakeBillingClient) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *FakeBillingClient) SetPurchasesListener(l adapter.PurchasesListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purListener = l
}

func (c *FakeBillingClient) QueryProducts(ctx context.Context, ids []string, typ model.ProductType) ([]model.Product, adapter.ResponseCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ProductsCode != adapter.ResponseOK {
		return nil, c.ProductsCode, nil
	}
	var out []model.Product
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, adapter.ResponseOK, nil
}

func (c *FakeBillingClient) QueryActivePurchases(ctx context.Context, typ model.ProductType) ([]model.PurchaseRecord, adapter.ResponseCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PurchaseCode != adapter.ResponseOK {
		return nil, c.PurchaseCode, nil
	}
	return append([]model.PurchaseRecord(nil), c.purchases...), adapter.ResponseOK, nil
}

// LaunchPurchaseFlow records a purchased-but-unacknowledged record for the
// product and resolves it through the purchases listener.
func (c *FakeBillingClient) LaunchPurchaseFlow(ctx context.Context, product model.Product, offerToken string) (adapter.ResponseCode, error) {
	c.mu.Lock()
	code := c.LaunchCode
	l := c.purListener
	var resolved []model.PurchaseRecord
	if code == adapter.ResponseOK {
		rec := model.PurchaseRecord{
			Products: []string{product.ID},
			Token:    "fake-" + product.ID + "-" + offerToken,
			OrderID:  "order-" + product.ID,
			State:    model.PurchaseStatePurchased,
		}
		c.purchases = append(c.purchases, rec)
		resolved = []model.PurchaseRecord{rec}
	}
	c.mu.Unlock()

	if code == adapter.ResponseOK && l != nil {
		go l.OnPurchasesUpdated(adapter.ResponseOK, resolved)
	}
	return code, nil
}

func (c *FakeBillingClient) ConsumePurchase(ctx context.Context, purchaseToken string) (adapter.ResponseCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConsumeCode != adapter.ResponseOK {
		return c.ConsumeCode, nil
	}
	kept := c.purchases[:0]
	found := false
	for _, p := range c.purchases {
		if p.Token == purchaseToken {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	c.purchases = kept
	if !found {
		return adapter.ResponseItemNotOwned, nil
	}
	return adapter.ResponseOK, nil
}
