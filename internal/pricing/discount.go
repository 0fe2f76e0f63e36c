package pricing

import "github.com/tconnectmw/store-system/internal/model"

// ItemBreakdown is the priced result of one line item after a points
// discount.
type ItemBreakdown struct {
	ItemID      string
	GrossUSD    float64
	NetUSD      float64
	LocalAmount int64
}

// Breakdown aggregates the result of redeeming a points package against a
// cart. Because categories carry different rates, there is no single local
// discount amount: the USD discount is spread proportionally across items
// before each item is converted at its own rate.
type Breakdown struct {
	TotalUSD        float64
	DiscountRatio   float64
	FinalTotalUSD   float64
	FinalTotalLocal int64
	Items           []ItemBreakdown
}

// FullyCovered reports whether the package covers the whole cart, leaving no
// remainder to settle by bank transfer.
func (b Breakdown) FullyCovered() bool {
	return b.FinalTotalUSD == 0
}

// ApplyPointsDiscount computes the payable amounts when pkg is redeemed
// against the cart. The discount ratio pkg.ValueUSD/totalUSD is applied to
// every item's USD price before rate conversion and is clamped at 1, so a
// package worth more than the cart yields a fully covered order rather than
// a negative remainder.
func ApplyPointsDiscount(rates RateProvider, items []model.CartLineItem, pkg model.PointsPackage) Breakdown {
	totalUSD := CartUSD(items)

	var ratio float64
	if totalUSD > 0 {
		ratio = pkg.ValueUSD / totalUSD
		if ratio > 1 {
			ratio = 1
		}
	}

	b := Breakdown{
		TotalUSD:      totalUSD,
		DiscountRatio: ratio,
		Items:         make([]ItemBreakdown, 0, len(items)),
	}

	for _, item := range items {
		grossUSD := item.UnitPriceUSD * float64(item.Quantity)

		netUnit := item.UnitPriceUSD - item.UnitPriceUSD*ratio
		if netUnit < 0 {
			netUnit = 0
		}

		discounted := item
		discounted.UnitPriceUSD = netUnit
		local := LineItemLocal(rates, discounted)

		b.Items = append(b.Items, ItemBreakdown{
			ItemID:      item.ID,
			GrossUSD:    grossUSD,
			NetUSD:      netUnit * float64(item.Quantity),
			LocalAmount: local,
		})
		b.FinalTotalLocal += local
	}

	b.FinalTotalUSD = totalUSD - pkg.ValueUSD
	if b.FinalTotalUSD < 0 {
		b.FinalTotalUSD = 0
	}

	return b
}
