// File: internal/infra/redis/prefs_repo.go
package redis

import (
	"context"
	"encoding/json"
	"errors"

	"handyai-billing/internal/domain"
	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/repository"
)

var _ repository.PreferenceStore = (*PrefsRepo)(nil)

const (
	keyPremium = "prefs:premium"
	keyUserID  = "prefs:user_id"
)

type premiumRecord struct {
	Premium bool       `json:"premium"`
	Plan    model.Plan `json:"plan"`
}

// PrefsRepo is the preference-store collaborator: it owns the persisted plan
// and the acting user id. No TTL; the records live until overwritten.
type PrefsRepo struct {
	client *redClient
}

func NewPrefsRepo(client *redClient) *PrefsRepo {
	return &PrefsRepo{client: client}
}

func (r *PrefsRepo) SetPremiumStatus(ctx context.Context, premium bool, plan model.Plan) error {
	data, err := json.Marshal(premiumRecord{Premium: premium, Plan: plan})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPremium, data, 0)
}

func (r *PrefsRepo) GetUserID(ctx context.Context) (string, error) {
	id, err := r.client.Get(ctx, keyUserID)
	if err != nil {
		if errors.Is(err, ErrNil) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

// SetUserID is written by the sign-in collaborator; exposed here so the demo
// and tests can seed it.
func (r *PrefsRepo) SetUserID(ctx context.Context, id string) error {
	return r.client.Set(ctx, keyUserID, id, 0)
}
