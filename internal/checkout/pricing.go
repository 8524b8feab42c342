package checkout

import "github.com/tiendashop/storefront-go/internal/domain"

// Amounts are integer cents.
const (
	// ShippingFee is the flat shipping cost.
	ShippingFee int64 = 599
	// FreeShippingThreshold waives the fee once the promotional-category
	// subtotal reaches it. The comparison is inclusive.
	FreeShippingThreshold int64 = 3000

	DefaultPromoCategory = "1"
)

// PromoSubtotal sums line totals for products in the promotional category.
func PromoSubtotal(lines []domain.CartLine, promoCategory string) int64 {
	var subtotal int64
	for _, line := range lines {
		if line.Product.CategoryID == promoCategory {
			subtotal += line.LineTotal()
		}
	}
	return subtotal
}

// ShippingCost returns zero when the promotional subtotal meets the
// threshold, the flat fee otherwise.
func ShippingCost(lines []domain.CartLine, promoCategory string) int64 {
	if PromoSubtotal(lines, promoCategory) >= FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}
