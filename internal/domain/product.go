package domain

// Prices are integer cents.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	SalePrice   *int64 `json:"sale_price,omitempty"`
	CategoryID  string `json:"category_id"`
	Stock       int    `json:"stock"`
}

// EffectivePrice returns the sale price when one is set.
func (p Product) EffectivePrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
