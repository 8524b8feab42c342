package checkout

import (
	"testing"

	"github.com/tiendashop/storefront-go/internal/domain"
)

func line(price int64, quantity int, category string) domain.CartLine {
	return domain.CartLine{
		Product:  domain.Product{ID: "p-" + category, Price: price, CategoryID: category},
		Quantity: quantity,
	}
}

func saleLine(price, salePrice int64, quantity int, category string) domain.CartLine {
	l := line(price, quantity, category)
	l.Product.SalePrice = &salePrice
	return l
}

func TestPromoSubtotal(t *testing.T) {
	lines := []domain.CartLine{
		line(1299, 3, "1"),
		line(1000, 2, "2"),
	}

	if got := PromoSubtotal(lines, "1"); got != 3897 {
		t.Errorf("expected 3897, got %d", got)
	}
	if got := PromoSubtotal(lines, "2"); got != 2000 {
		t.Errorf("expected 2000, got %d", got)
	}
	if got := PromoSubtotal(lines, "9"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestPromoSubtotal_UsesSalePrice(t *testing.T) {
	lines := []domain.CartLine{saleLine(2500, 1999, 2, "1")}

	if got := PromoSubtotal(lines, "1"); got != 3998 {
		t.Errorf("expected 3998, got %d", got)
	}
}

func TestShippingCost(t *testing.T) {
	tests := []struct {
		name  string
		lines []domain.CartLine
		want  int64
	}{
		{
			name:  "three promo items over the threshold ship free",
			lines: []domain.CartLine{line(1299, 3, "1")},
			want:  0,
		},
		{
			name:  "non-promo order pays the flat fee",
			lines: []domain.CartLine{line(1000, 1, "2")},
			want:  ShippingFee,
		},
		{
			name:  "threshold is inclusive",
			lines: []domain.CartLine{line(3000, 1, "1")},
			want:  0,
		},
		{
			name:  "one cent under the threshold pays",
			lines: []domain.CartLine{line(2999, 1, "1")},
			want:  ShippingFee,
		},
		{
			name: "non-promo items do not count toward the threshold",
			lines: []domain.CartLine{
				line(1000, 1, "1"),
				line(5000, 1, "2"),
			},
			want: ShippingFee,
		},
		{
			name:  "empty cart pays the fee",
			lines: nil,
			want:  ShippingFee,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShippingCost(tt.lines, DefaultPromoCategory); got != tt.want {
				t.Errorf("expected shipping %d, got %d", tt.want, got)
			}
		})
	}
}

func TestOrderTotals(t *testing.T) {
	t.Run("promo order", func(t *testing.T) {
		lines := []domain.CartLine{line(1299, 3, "1")}
		subtotal := int64(0)
		for _, l := range lines {
			subtotal += l.LineTotal()
		}
		shipping := ShippingCost(lines, DefaultPromoCategory)

		if subtotal != 3897 || shipping != 0 || subtotal+shipping != 3897 {
			t.Errorf("expected 3897/0/3897, got %d/%d/%d", subtotal, shipping, subtotal+shipping)
		}
	})

	t.Run("non-promo order", func(t *testing.T) {
		lines := []domain.CartLine{line(1000, 1, "2")}
		subtotal := int64(0)
		for _, l := range lines {
			subtotal += l.LineTotal()
		}
		shipping := ShippingCost(lines, DefaultPromoCategory)

		if subtotal != 1000 || shipping != 599 || subtotal+shipping != 1599 {
			t.Errorf("expected 1000/599/1599, got %d/%d/%d", subtotal, shipping, subtotal+shipping)
		}
	})
}
