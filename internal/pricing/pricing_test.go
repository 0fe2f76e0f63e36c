package pricing

import (
	"testing"

	"github.com/tconnectmw/store-system/internal/model"
)

var testRates = FixedRates{GiftCard: 1900, Crypto: 1947, Wallet: 1800}

func giftcardItem(id string, unitUSD float64, qty int) model.CartLineItem {
	return model.CartLineItem{
		ID:           id,
		Name:         "Amazon Gift Card",
		Type:         model.ProductTypeGiftCard,
		UnitPriceUSD: unitUSD,
		Quantity:     qty,
	}
}

func TestLineItemLocal(t *testing.T) {
	tests := []struct {
		name string
		item model.CartLineItem
		want int64
	}{
		{
			name: "giftcard single unit",
			item: giftcardItem("g1", 10, 1),
			want: 19000,
		},
		{
			name: "giftcard multiple units",
			item: giftcardItem("g1", 25, 3),
			want: 142500,
		},
		{
			name: "virtual card priced at wallet rate",
			item: model.CartLineItem{ID: "v1", Type: model.ProductTypeVirtualCard, UnitPriceUSD: 7, Quantity: 1},
			want: 12600,
		},
		{
			name: "fractional result rounds to whole kwacha",
			item: model.CartLineItem{ID: "c1", Type: model.ProductTypeCrypto, UnitPriceUSD: 0.99, Quantity: 1},
			want: 1928, // 0.99 * 1947 = 1927.53
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineItemLocal(testRates, tt.item); got != tt.want {
				t.Fatalf("LineItemLocal = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCartLocalMatchesPerItemSum(t *testing.T) {
	items := []model.CartLineItem{
		giftcardItem("g1", 10, 2),
		{ID: "c1", Type: model.ProductTypeCrypto, UnitPriceUSD: 15, Quantity: 1},
		{ID: "w1", Type: model.ProductTypeWallet, UnitPriceUSD: 5, Quantity: 4},
	}

	var want int64
	for _, item := range items {
		want += LineItemLocal(testRates, item)
	}

	if got := CartLocal(testRates, items); got != want {
		t.Fatalf("CartLocal = %d, want per-item sum %d", got, want)
	}
}

func TestCartLocalIdempotent(t *testing.T) {
	items := []model.CartLineItem{
		giftcardItem("g1", 12.5, 1),
		{ID: "c1", Type: model.ProductTypeCrypto, UnitPriceUSD: 33.33, Quantity: 2},
	}

	first := CartLocal(testRates, items)
	second := CartLocal(testRates, items)
	if first != second {
		t.Fatalf("CartLocal not idempotent: %d then %d", first, second)
	}
}

func TestApplyPointsDiscountSingleItem(t *testing.T) {
	// $10 giftcard, $5 package: discounted unit = 10 - 10*(5/10) = 5.
	items := []model.CartLineItem{giftcardItem("g1", 10, 1)}
	pkg, ok := model.PointsPackageFor(650)
	if !ok {
		t.Fatalf("650-point package missing")
	}

	b := ApplyPointsDiscount(testRates, items, pkg)

	if b.FinalTotalUSD != 5 {
		t.Fatalf("FinalTotalUSD = %v, want 5", b.FinalTotalUSD)
	}
	if b.FinalTotalLocal != 9500 {
		t.Fatalf("FinalTotalLocal = %d, want round(5*1900) = 9500", b.FinalTotalLocal)
	}
	if b.FullyCovered() {
		t.Fatalf("remainder of $5 must not read as fully covered")
	}
}

func TestApplyPointsDiscountExactBoundary(t *testing.T) {
	// $10 package against a $10 cart: fully covered, no bank fields needed.
	items := []model.CartLineItem{giftcardItem("g1", 10, 1)}
	pkg, _ := model.PointsPackageFor(1300)

	b := ApplyPointsDiscount(testRates, items, pkg)

	if b.FinalTotalUSD != 0 {
		t.Fatalf("FinalTotalUSD = %v, want 0", b.FinalTotalUSD)
	}
	if b.FinalTotalLocal != 0 {
		t.Fatalf("FinalTotalLocal = %d, want 0", b.FinalTotalLocal)
	}
	if !b.FullyCovered() {
		t.Fatalf("exact boundary must be fully covered")
	}
}

func TestApplyPointsDiscountClampsOversizedPackage(t *testing.T) {
	// $10 package against a $7 cart: ratio clamps at 1, never negative.
	items := []model.CartLineItem{giftcardItem("g1", 7, 1)}
	pkg, _ := model.PointsPackageFor(1300)

	b := ApplyPointsDiscount(testRates, items, pkg)

	if b.DiscountRatio != 1 {
		t.Fatalf("DiscountRatio = %v, want clamped 1", b.DiscountRatio)
	}
	if b.FinalTotalUSD != 0 || b.FinalTotalLocal != 0 {
		t.Fatalf("oversized package must fully cover: usd=%v local=%d", b.FinalTotalUSD, b.FinalTotalLocal)
	}
}

func TestApplyPointsDiscountProportionalAcrossCategories(t *testing.T) {
	// $5 against $20 split across categories with different rates. The local
	// total must equal the sum of proportionally discounted per-item amounts,
	// not CartLocal minus 5 times any single rate.
	items := []model.CartLineItem{
		giftcardItem("g1", 10, 1),                                                              // rate 1900
		{ID: "w1", Type: model.ProductTypeWallet, UnitPriceUSD: 10, Quantity: 1, Name: "Skrill"}, // rate 1800
	}
	pkg, _ := model.PointsPackageFor(650)

	b := ApplyPointsDiscount(testRates, items, pkg)

	if b.FinalTotalUSD != 15 {
		t.Fatalf("FinalTotalUSD = %v, want 15", b.FinalTotalUSD)
	}

	// ratio 0.25: giftcard nets $7.50 -> 14250, wallet nets $7.50 -> 13500.
	want := int64(14250 + 13500)
	if b.FinalTotalLocal != want {
		t.Fatalf("FinalTotalLocal = %d, want %d", b.FinalTotalLocal, want)
	}

	flatGiftcard := CartLocal(testRates, items) - roundLocal(5*1900)
	if b.FinalTotalLocal == flatGiftcard {
		t.Fatalf("blended discount must differ from a flat single-rate subtraction")
	}
}

func TestApplyPointsDiscountEmptyCart(t *testing.T) {
	pkg, _ := model.PointsPackageFor(650)

	b := ApplyPointsDiscount(testRates, nil, pkg)

	if b.DiscountRatio != 0 || b.FinalTotalUSD != 0 || b.FinalTotalLocal != 0 {
		t.Fatalf("empty cart breakdown not zeroed: %+v", b)
	}
}
