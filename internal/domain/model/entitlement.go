package model

// SkuState is the client's belief about whether a product is owned and
// acknowledged. One cell per tracked product id.
type SkuState string

const (
	SkuStateUnknown                  SkuState = "unknown"
	SkuStateNotPurchased             SkuState = "not_purchased"
	SkuStatePending                  SkuState = "pending"
	SkuStatePurchased                SkuState = "purchased"
	SkuStatePurchasedAndAcknowledged SkuState = "purchased_and_acknowledged"
)

// DeriveSkuState maps a purchase record's state to the target entitlement
// state. Returns false for states the client does not understand.
func DeriveSkuState(p *PurchaseRecord) (SkuState, bool) {
	switch p.State {
	case PurchaseStatePending:
		return SkuStatePending, true
	case PurchaseStateUnspecified:
		return SkuStateNotPurchased, true
	case PurchaseStatePurchased:
		if p.Acknowledged {
			return SkuStatePurchasedAndAcknowledged, true
		}
		return SkuStatePurchased, true
	default:
		return SkuStateUnknown, false
	}
}
