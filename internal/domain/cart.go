package domain

// CartLine is one product plus quantity entry within the cart.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal uses the sale price when the product carries one.
func (l CartLine) LineTotal() int64 {
	return l.Product.EffectivePrice() * int64(l.Quantity)
}
