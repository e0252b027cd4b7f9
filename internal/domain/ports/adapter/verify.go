package adapter

import (
	"context"

	"handyai-billing/internal/domain/model"
)

// VerifyRequest is the wire body POSTed to the verification endpoint.
type VerifyRequest struct {
	PurchaseToken string `json:"purchase_token"`
	UserID        string `json:"userId"`
	ProductID     string `json:"productId"`
}

// VerifyResponse is the endpoint's reply. Data is only present on success.
type VerifyResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Data    *model.Entitlement `json:"data,omitempty"`
}

// VerifyClient is the hex port for the external purchase-verification
// endpoint. A returned error means transport or parse failure; a well-formed
// rejection comes back as Success=false with a nil error.
type VerifyClient interface {
	VerifyPurchase(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

// Connectivity gates network-bound background work.
type Connectivity interface {
	Online(ctx context.Context) bool
}
