// File: internal/usecase/entitlement_table.go
package usecase

import (
	"sync"

	"handyai-billing/internal/domain/model"

	"github.com/rs/zerolog"
)

// skuCell is a single-writer observable holder for one product id's state.
// All read-modify-write on the cell happens under its own mutex, so state
// mutations for a given sku are serialized regardless of which callback
// context triggers them.
type skuCell struct {
	mu    sync.Mutex
	state model.SkuState
	subs  map[int]chan model.SkuState
	next  int
}

func newSkuCell() *skuCell {
	return &skuCell{state: model.SkuStateUnknown, subs: make(map[int]chan model.SkuState)}
}

// set stores newState and notifies subscribers. Re-setting the current state
// is a silent no-op: subscribers see each distinct state exactly once.
func (c *skuCell) set(newState model.SkuState) (prev model.SkuState, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev = c.state
	if newState == prev {
		return prev, false
	}
	c.state = newState
	for _, ch := range c.subs {
		select {
		case ch <- newState:
		default:
			// Slow subscriber: drop the stale value and keep the latest.
			select {
			case <-ch:
			default:
			}
			ch <- newState
		}
	}
	return prev, true
}

func (c *skuCell) value() model.SkuState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *skuCell) subscribe() (<-chan model.SkuState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	ch := make(chan model.SkuState, 1)
	ch <- c.state
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// productCell holds the latest-known Product for one id and tracks its active
// subscriber count; the 0->1 transition fires the activation hook, which the
// catalog uses to re-query stale details.
type productCell struct {
	mu       sync.Mutex
	details  *model.Product
	subs     map[int]chan *model.Product
	next     int
	onActive func()
}

func newProductCell() *productCell {
	return &productCell{subs: make(map[int]chan *model.Product)}
}

func (c *productCell) set(p model.Product) {
	cp := p
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details = &cp
	for _, ch := range c.subs {
		select {
		case ch <- &cp:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- &cp
		}
	}
}

func (c *productCell) value() *model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.details
}

func (c *productCell) subscribe() (<-chan *model.Product, func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	ch := make(chan *model.Product, 1)
	ch <- c.details
	c.subs[id] = ch
	becameActive := len(c.subs) == 1
	hook := c.onActive
	c.mu.Unlock()

	if becameActive && hook != nil {
		hook()
	}
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// EntitlementTable owns one observable state cell and one product cell per
// tracked product id. The tracked set is fixed at construction; unknown ids
// passed to any accessor are logged and ignored, never inserted.
type EntitlementTable struct {
	cells    map[string]*skuCell
	products map[string]*productCell
	local    *skuCell
	log      *zerolog.Logger
}

func NewEntitlementTable(trackedIDs []string, logger *zerolog.Logger) *EntitlementTable {
	t := &EntitlementTable{
		cells:    make(map[string]*skuCell, len(trackedIDs)),
		products: make(map[string]*productCell, len(trackedIDs)),
		local:    newSkuCell(),
		log:      logger,
	}
	for _, id := range trackedIDs {
		t.cells[id] = newSkuCell()
		t.products[id] = newProductCell()
	}
	return t
}

// Tracked returns the tracked product ids.
func (t *EntitlementTable) Tracked() []string {
	ids := make([]string, 0, len(t.cells))
	for id := range t.cells {
		ids = append(ids, id)
	}
	return ids
}

func (t *EntitlementTable) IsTracked(productID string) bool {
	_, ok := t.cells[productID]
	return ok
}

// SetState is the only state mutator. Returns the previous value and whether
// the cell actually changed; unknown ids report (unknown, false).
func (t *EntitlementTable) SetState(productID string, newState model.SkuState) (model.SkuState, bool) {
	cell, ok := t.cells[productID]
	if !ok {
		t.log.Warn().Str("product_id", productID).Msg("setState: unknown SKU")
		return model.SkuStateUnknown, false
	}
	return cell.set(newState)
}

func (t *EntitlementTable) State(productID string) model.SkuState {
	cell, ok := t.cells[productID]
	if !ok {
		t.log.Warn().Str("product_id", productID).Msg("state: unknown SKU")
		return model.SkuStateUnknown
	}
	return cell.value()
}

// SubscribeState returns a channel carrying the current state followed by
// every distinct transition, and a cancel func. Unknown ids return a closed
// channel.
func (t *EntitlementTable) SubscribeState(productID string) (<-chan model.SkuState, func()) {
	cell, ok := t.cells[productID]
	if !ok {
		t.log.Warn().Str("product_id", productID).Msg("subscribeState: unknown SKU")
		ch := make(chan model.SkuState)
		close(ch)
		return ch, func() {}
	}
	return cell.subscribe()
}

// SetProduct stores fetched product metadata, replacing any previous value.
func (t *EntitlementTable) SetProduct(p model.Product) bool {
	cell, ok := t.products[p.ID]
	if !ok {
		t.log.Warn().Str("product_id", p.ID).Msg("setProduct: unknown SKU")
		return false
	}
	cell.set(p)
	return true
}

// Product returns the latest-known metadata, or (nil, false) when the id is
// unknown or not yet populated.
func (t *EntitlementTable) Product(productID string) (*model.Product, bool) {
	cell, ok := t.products[productID]
	if !ok {
		t.log.Warn().Str("product_id", productID).Msg("product: unknown SKU")
		return nil, false
	}
	p := cell.value()
	return p, p != nil
}

func (t *EntitlementTable) SubscribeProduct(productID string) (<-chan *model.Product, func()) {
	cell, ok := t.products[productID]
	if !ok {
		t.log.Warn().Str("product_id", productID).Msg("subscribeProduct: unknown SKU")
		ch := make(chan *model.Product)
		close(ch)
		return ch, func() {}
	}
	return cell.subscribe()
}

// SetActivationHook installs fn to run whenever any product cell's subscriber
// count transitions 0->1. Install before exposing the table to observers.
func (t *EntitlementTable) SetActivationHook(fn func(productID string)) {
	for id, cell := range t.products {
		id := id
		cell.mu.Lock()
		cell.onActive = func() { fn(id) }
		cell.mu.Unlock()
	}
}

// Snapshot returns a copy of all current states, for introspection.
func (t *EntitlementTable) Snapshot() map[string]model.SkuState {
	out := make(map[string]model.SkuState, len(t.cells))
	for id, cell := range t.cells {
		out[id] = cell.value()
	}
	return out
}

// LocalState is a process-local cell mirroring the billing state the UI last
// committed to, independent of any single sku.
func (t *EntitlementTable) LocalState() model.SkuState { return t.local.value() }

func (t *EntitlementTable) SetLocalState(s model.SkuState) { t.local.set(s) }
