// File: internal/usecase/events.go
package usecase

import (
	"sync"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"
)

// PurchaseResult is the payload of the one-shot "new purchase resolved"
// event: the billing response code and the purchase, when one exists.
type PurchaseResult struct {
	Code     adapter.ResponseCode
	Purchase *model.PurchaseRecord
}

// purchaseStream is a broadcast stream of purchase events that suppresses
// consecutive duplicates, keyed by the caller-supplied dedup key.
type purchaseStream struct {
	mu      sync.Mutex
	lastKey string
	hasLast bool
	subs    map[int]chan PurchaseResult
	next    int
}

func newPurchaseStream() *purchaseStream {
	return &purchaseStream{subs: make(map[int]chan PurchaseResult)}
}

func (s *purchaseStream) emit(key string, ev PurchaseResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasLast && key == s.lastKey {
		return false
	}
	s.lastKey = key
	s.hasLast = true
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// One-shot events: a full subscriber loses the older event.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return true
}

func (s *purchaseStream) subscribe() (<-chan PurchaseResult, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan PurchaseResult, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// PurchaseEvents bundles the reactive streams the presentation layer
// consumes. Each stream de-duplicates independently.
type PurchaseEvents struct {
	newPurchase *purchaseStream
	pending     *purchaseStream
	stateChange *purchaseStream

	mu     sync.Mutex
	inFlow bool
	flowCh map[int]chan bool
	nextID int
}

func NewPurchaseEvents() *PurchaseEvents {
	return &PurchaseEvents{
		newPurchase: newPurchaseStream(),
		pending:     newPurchaseStream(),
		stateChange: newPurchaseStream(),
		flowCh:      make(map[int]chan bool),
	}
}

// EmitNewPurchase signals the "new purchase resolved" event carrying the
// billing response code and the purchase it settles, when any.
func (e *PurchaseEvents) EmitNewPurchase(code adapter.ResponseCode, p *model.PurchaseRecord) {
	key := code.String()
	ev := PurchaseResult{Code: code}
	if p != nil {
		cp := *p
		ev.Purchase = &cp
		key += "|" + p.Token + "|" + string(p.State)
	}
	e.newPurchase.emit(key, ev)
}

// EmitPending reports a purchase sitting in the pending state.
func (e *PurchaseEvents) EmitPending(p model.PurchaseRecord) {
	e.pending.emit(p.Token+"|"+string(p.State), PurchaseResult{Code: adapter.ResponseOK, Purchase: &p})
}

// EmitStateChange reports a purchase whose derived state literally differed
// from the previous cell value.
func (e *PurchaseEvents) EmitStateChange(p model.PurchaseRecord) {
	e.stateChange.emit(p.Token+"|"+string(p.State), PurchaseResult{Code: adapter.ResponseOK, Purchase: &p})
}

func (e *PurchaseEvents) SubscribeNewPurchase() (<-chan PurchaseResult, func()) {
	return e.newPurchase.subscribe()
}

func (e *PurchaseEvents) SubscribePending() (<-chan PurchaseResult, func()) {
	return e.pending.subscribe()
}

func (e *PurchaseEvents) SubscribeStateChange() (<-chan PurchaseResult, func()) {
	return e.stateChange.subscribe()
}

// SetFlowInProgress flips the "purchase flow in progress" flag.
func (e *PurchaseEvents) SetFlowInProgress(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlow == v {
		return
	}
	e.inFlow = v
	for _, ch := range e.flowCh {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (e *PurchaseEvents) FlowInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlow
}

func (e *PurchaseEvents) SubscribeFlow() (<-chan bool, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	ch := make(chan bool, 1)
	ch <- e.inFlow
	e.flowCh[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.flowCh, id)
	}
}
