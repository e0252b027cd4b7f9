// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"time"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/repository"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// SignatureChecker gates purchase records before any trusted transition.
type SignatureChecker interface {
	Verify(signedData, signature string) bool
}

// ReconcileUseCase ingests raw purchase records and drives the entitlement
// table, deciding which purchases need server verification.
type ReconcileUseCase interface {
	// Process updates entitlement state for each record and enqueues
	// verification jobs for unacknowledged purchases. When trackedIDs is
	// non-nil (refresh mode), tracked ids absent from the batch are demoted
	// so stale purchased state cannot survive a revoked subscription.
	// The table is fully updated before any job is enqueued.
	Process(ctx context.Context, purchases []model.PurchaseRecord, trackedIDs []string)
}

type reconcileUC struct {
	table   *EntitlementTable
	sigs    SignatureChecker
	queue   repository.VerificationQueue
	events  *PurchaseEvents
	log     *zerolog.Logger
	entropy func() string
}

func NewReconcileUseCase(table *EntitlementTable, sigs SignatureChecker, queue repository.VerificationQueue, events *PurchaseEvents, logger *zerolog.Logger) *reconcileUC {
	return &reconcileUC{
		table:   table,
		sigs:    sigs,
		queue:   queue,
		events:  events,
		log:     logger,
		entropy: func() string { return ulid.Make().String() },
	}
}

func (u *reconcileUC) Process(ctx context.Context, purchases []model.PurchaseRecord, trackedIDs []string) {
	seen := make(map[string]bool)
	var toVerify []model.PurchaseRecord

	for i := range purchases {
		p := &purchases[i]
		for _, sku := range p.Products {
			if u.table.IsTracked(sku) {
				seen[sku] = true
			} else {
				u.log.Warn().Str("product_id", sku).Msg("reconcile: unknown SKU in purchase")
			}
		}

		if !u.applyPurchase(p) {
			continue
		}

		if p.State != model.PurchaseStatePurchased {
			u.log.Debug().Str("state", string(p.State)).Msg("reconcile: purchase not in purchased state")
			continue
		}
		// Promotional grants arrive pre-acknowledged but still need the
		// server to learn about them; regular purchases need verification
		// until acknowledged.
		if !p.Acknowledged || p.Promotional() {
			toVerify = append(toVerify, *p)
		}
	}

	// Refresh mode: demote anything the batch did not cover.
	for _, sku := range trackedIDs {
		if seen[sku] {
			continue
		}
		if _, ok := u.table.Product(sku); !ok {
			u.table.SetState(sku, model.SkuStateUnknown)
		} else {
			u.table.SetState(sku, model.SkuStateNotPurchased)
		}
	}

	// Enqueue only after the table is fully updated; verification must never
	// race ahead of state derivation.
	for i := range toVerify {
		u.enqueue(ctx, &toVerify[i])
	}
}

// applyPurchase derives and sets the target state for each covered sku.
// Returns false when the record is untrusted: a pending or purchased record
// that fails signature verification is dropped entirely, neither applied nor
// verified.
func (u *reconcileUC) applyPurchase(p *model.PurchaseRecord) bool {
	newState, ok := model.DeriveSkuState(p)
	if !ok {
		u.log.Warn().Str("state", string(p.State)).Msg("reconcile: unknown purchase state")
		return false
	}

	if p.State == model.PurchaseStatePurchased || p.State == model.PurchaseStatePending {
		if !u.sigs.Verify(p.OriginalJSON, p.Signature) {
			u.log.Warn().Str("order_id", p.OrderID).Msg("reconcile: invalid signature; dropping record")
			return false
		}
	}

	for _, sku := range p.Products {
		if !u.table.IsTracked(sku) {
			continue
		}
		_, changed := u.table.SetState(sku, newState)
		if newState == model.SkuStatePending {
			u.events.EmitPending(*p)
		} else if changed {
			u.events.EmitStateChange(*p)
		}
	}
	return true
}

func (u *reconcileUC) enqueue(ctx context.Context, p *model.PurchaseRecord) {
	job := &model.VerificationJob{
		ID:         u.entropy(),
		Purchase:   *p,
		Attempt:    0,
		EnqueuedAt: time.Now(),
	}
	added, err := u.queue.Enqueue(ctx, job)
	if err != nil {
		u.log.Error().Err(err).Msg("reconcile: enqueue verification failed")
		return
	}
	if !added {
		u.log.Debug().Msg("reconcile: verification already outstanding; kept existing job")
		return
	}
	u.log.Info().Str("job_id", job.ID).Strs("products", p.Products).Msg("reconcile: verification enqueued")
}
