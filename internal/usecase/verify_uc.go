// File: internal/usecase/verify_uc.go
package usecase

import (
	"context"
	"errors"

	"handyai-billing/internal/domain"
	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"
	"handyai-billing/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// VerifyOutcome classifies one verification attempt.
type VerifyOutcome int

const (
	// OutcomeSuccess: the server accepted the purchase; entitlement is
	// acknowledged and the plan persisted.
	OutcomeSuccess VerifyOutcome = iota
	// OutcomeRetry: transport/parse error or missing precondition; the job
	// should run again.
	OutcomeRetry
	// OutcomeFailure: terminal rejection; never retried.
	OutcomeFailure
)

func (o VerifyOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Compile-time check
var _ VerifyUseCase = (*verifyUC)(nil)

// VerifyUseCase performs one idempotent server-side verification attempt and
// applies its outcome to entitlement state and the persisted plan.
type VerifyUseCase interface {
	Attempt(ctx context.Context, job *model.VerificationJob) VerifyOutcome
	// Reject applies the terminal-rejection treatment without calling the
	// endpoint; used when the retry cap is exhausted.
	Reject(ctx context.Context, job *model.VerificationJob)
}

type verifyUC struct {
	client adapter.VerifyClient
	prefs  repository.PreferenceStore
	table  *EntitlementTable
	events *PurchaseEvents
	log    *zerolog.Logger
}

func NewVerifyUseCase(client adapter.VerifyClient, prefs repository.PreferenceStore, table *EntitlementTable, events *PurchaseEvents, logger *zerolog.Logger) *verifyUC {
	return &verifyUC{client: client, prefs: prefs, table: table, events: events, log: logger}
}

func (u *verifyUC) Attempt(ctx context.Context, job *model.VerificationJob) VerifyOutcome {
	p := &job.Purchase
	if len(p.Products) == 0 {
		u.log.Error().Str("job_id", job.ID).Msg("verify: job covers no products")
		return OutcomeFailure
	}

	userID, err := u.prefs.GetUserID(ctx)
	if err != nil || userID == "" {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Err(err).Msg("verify: user id lookup failed")
		} else {
			u.log.Debug().Msg("verify: user id not resolved yet")
		}
		return OutcomeRetry
	}

	resp, err := u.client.VerifyPurchase(ctx, adapter.VerifyRequest{
		PurchaseToken: p.Token,
		UserID:        userID,
		ProductID:     p.Products[0],
	})
	if err != nil {
		u.log.Warn().Err(err).Str("job_id", job.ID).Msg("verify: transport error")
		return OutcomeRetry
	}

	if !resp.Success {
		u.log.Info().Str("job_id", job.ID).Str("message", resp.Message).Msg("verify: server rejected purchase")
		u.reject(p)
		return OutcomeFailure
	}
	if resp.Data == nil {
		u.log.Warn().Str("job_id", job.ID).Msg("verify: success response missing entitlement data")
		return OutcomeRetry
	}

	plan := resp.Data.Plan
	if err := u.prefs.SetPremiumStatus(ctx, plan.Premium(), plan); err != nil {
		// Persist before finalizing state; the whole attempt is idempotent,
		// so retrying is safe.
		u.log.Warn().Err(err).Msg("verify: persisting plan failed")
		return OutcomeRetry
	}
	for _, sku := range p.Products {
		u.table.SetState(sku, model.SkuStatePurchasedAndAcknowledged)
	}
	u.events.EmitNewPurchase(adapter.ResponseOK, p)
	u.log.Info().Str("job_id", job.ID).Str("plan", string(plan)).Strs("products", p.Products).Msg("verify: purchase acknowledged")
	return OutcomeSuccess
}

func (u *verifyUC) Reject(ctx context.Context, job *model.VerificationJob) {
	u.log.Warn().Str("job_id", job.ID).Int("attempts", job.Attempt).Msg("verify: retries exhausted; rejecting")
	u.reject(&job.Purchase)
}

func (u *verifyUC) reject(p *model.PurchaseRecord) {
	for _, sku := range p.Products {
		u.table.SetState(sku, model.SkuStateNotPurchased)
	}
	u.events.EmitNewPurchase(adapter.ResponseError, p)
}
