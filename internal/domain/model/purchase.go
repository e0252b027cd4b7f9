package model

type PurchaseState string

const (
	PurchaseStateUnspecified PurchaseState = "unspecified"
	PurchaseStatePending     PurchaseState = "pending"
	PurchaseStatePurchased   PurchaseState = "purchased"
)

// PurchaseRecord is a raw purchase as reported by the billing service. The
// client never mutates it; entitlement state is derived from it.
type PurchaseRecord struct {
	// Products covered by this purchase; one record may cover a bundle.
	Products []string `json:"products"`
	// Token is the opaque purchase token used for server verification and consumption.
	Token string `json:"purchaseToken"`
	// OriginalJSON is the signed payload exactly as the provider emitted it.
	OriginalJSON string `json:"originalJson"`
	// Signature over OriginalJSON, base64.
	Signature    string        `json:"signature"`
	Acknowledged bool          `json:"acknowledged"`
	OrderID      string        `json:"orderId"`
	State        PurchaseState `json:"purchaseState"`
}

// Promotional grants carry no storefront order id.
func (p *PurchaseRecord) Promotional() bool { return p.OrderID == "" }

// Covers reports whether the purchase covers the given product id.
func (p *PurchaseRecord) Covers(productID string) bool {
	for _, id := range p.Products {
		if id == productID {
			return true
		}
	}
	return false
}
