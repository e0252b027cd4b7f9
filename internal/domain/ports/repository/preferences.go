package repository

import (
	"context"

	"handyai-billing/internal/domain/model"
)

// PreferenceStore is the durable key-value collaborator owning the persisted
// plan. The core only writes premium status; it reads nothing back except the
// acting user id.
type PreferenceStore interface {
	SetPremiumStatus(ctx context.Context, premium bool, plan model.Plan) error
	// GetUserID returns the signed-in user id, or domain.ErrNotFound when no
	// user has been resolved yet.
	GetUserID(ctx context.Context) (string, error)
}
