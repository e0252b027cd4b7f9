package model

type ProductType string

const (
	ProductTypeSubscription ProductType = "subs"
	ProductTypeOneTime      ProductType = "inapp"
)

// OfferVariant is one purchasable pricing variant of a product. BasePlanID is
// the plan token ("monthly", "10_k_tokens", ...) and OfferToken is the opaque
// identifier the billing service requires to launch a purchase flow for it.
type OfferVariant struct {
	BasePlanID     string
	OfferToken     string
	FormattedPrice string
}

// Product is the metadata the billing service returns for one product id.
// Immutable once fetched; a re-query replaces the whole value.
type Product struct {
	ID     string
	Type   ProductType
	Offers []OfferVariant
}

// Offer returns the variant matching the given plan token.
func (p *Product) Offer(basePlanID string) (OfferVariant, bool) {
	for _, o := range p.Offers {
		if o.BasePlanID == basePlanID {
			return o, true
		}
	}
	return OfferVariant{}, false
}

// Price returns the localized price string for a plan token, or "" when the
// product carries no such variant.
func (p *Product) Price(basePlanID string) string {
	o, ok := p.Offer(basePlanID)
	if !ok {
		return ""
	}
	return o.FormattedPrice
}
