package adapter

import (
	"context"

	"handyai-billing/internal/domain/model"
)

// ResponseCode mirrors the billing service's response codes.
type ResponseCode int

const (
	ResponseServiceDisconnected ResponseCode = -1
	ResponseOK                  ResponseCode = 0
	ResponseUserCanceled        ResponseCode = 1
	ResponseServiceUnavailable  ResponseCode = 2
	ResponseBillingUnavailable  ResponseCode = 3
	ResponseItemUnavailable     ResponseCode = 4
	ResponseDeveloperError      ResponseCode = 5
	ResponseError               ResponseCode = 6
	ResponseItemAlreadyOwned    ResponseCode = 7
	ResponseItemNotOwned        ResponseCode = 8
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseServiceDisconnected:
		return "SERVICE_DISCONNECTED"
	case ResponseOK:
		return "OK"
	case ResponseUserCanceled:
		return "USER_CANCELED"
	case ResponseServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case ResponseBillingUnavailable:
		return "BILLING_UNAVAILABLE"
	case ResponseItemUnavailable:
		return "ITEM_UNAVAILABLE"
	case ResponseDeveloperError:
		return "DEVELOPER_ERROR"
	case ResponseError:
		return "ERROR"
	case ResponseItemAlreadyOwned:
		return "ITEM_ALREADY_OWNED"
	case ResponseItemNotOwned:
		return "ITEM_NOT_OWNED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionListener receives billing session lifecycle callbacks.
type ConnectionListener interface {
	OnBillingSetupFinished(code ResponseCode)
	OnBillingServiceDisconnected()
}

// PurchasesListener receives out-of-band purchase updates, typically after a
// purchase flow finishes.
type PurchasesListener interface {
	OnPurchasesUpdated(code ResponseCode, purchases []model.PurchaseRecord)
}

// BillingClient is the hex port for the platform billing service. The service
// owns session lifetime and calls back on the registered listeners; all query
// calls require an established session.
type BillingClient interface {
	// StartConnection begins session establishment; the listener is called
	// back with the outcome. Safe to call again after a disconnect.
	StartConnection(l ConnectionListener)
	// Ready reports whether a session is currently established.
	Ready() bool
	SetPurchasesListener(l PurchasesListener)

	QueryProducts(ctx context.Context, ids []string, typ model.ProductType) ([]model.Product, ResponseCode, error)
	QueryActivePurchases(ctx context.Context, typ model.ProductType) ([]model.PurchaseRecord, ResponseCode, error)
	// LaunchPurchaseFlow hands the purchase UI off to the platform; the result
	// arrives via OnPurchasesUpdated.
	LaunchPurchaseFlow(ctx context.Context, product model.Product, offerToken string) (ResponseCode, error)
	ConsumePurchase(ctx context.Context, purchaseToken string) (ResponseCode, error)
}
