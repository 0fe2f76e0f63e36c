// Package pricing converts USD-priced carts into local-currency totals.
//
// All functions are pure: given a fixed rate provider they return identical
// results for identical inputs and touch no shared state.
package pricing

import (
	"math"

	"github.com/tconnectmw/store-system/internal/model"
)

// RateProvider supplies the local-currency-per-USD multiplier for a product
// type. The rates cache implements it; tests use fixed tables.
type RateProvider interface {
	Rate(t model.ProductType) float64
}

// FixedRates adapts a static rate table into a RateProvider.
type FixedRates model.RateTable

// Rate implements RateProvider.
func (f FixedRates) Rate(t model.ProductType) float64 {
	return model.RateTable(f).For(t.RateCategory())
}

// roundLocal rounds to the nearest whole local-currency unit, half away from
// zero. There is no fractional local currency.
func roundLocal(v float64) int64 {
	return int64(math.Round(v))
}

// LineItemLocal prices one line item in local currency:
// round(unitPriceUsd * quantity * rate(type)).
func LineItemLocal(rates RateProvider, item model.CartLineItem) int64 {
	return roundLocal(item.UnitPriceUSD * float64(item.Quantity) * rates.Rate(item.Type))
}

// CartUSD sums the cart in USD.
func CartUSD(items []model.CartLineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.UnitPriceUSD * float64(item.Quantity)
	}
	return total
}

// CartLocal sums the per-item local amounts. Because each item is rounded
// individually, this is the authoritative undiscounted total; summing in USD
// first and converting once only coincides when a single category is present.
func CartLocal(rates RateProvider, items []model.CartLineItem) int64 {
	var total int64
	for _, item := range items {
		total += LineItemLocal(rates, item)
	}
	return total
}
