// Package model contains the domain entities of the storefront service.
package model

import "time"

// ProductType identifies the kind of product a line item or catalog entry refers to.
type ProductType string

const (
	ProductTypeGiftCard    ProductType = "giftcard"
	ProductTypeCrypto      ProductType = "crypto"
	ProductTypeWallet      ProductType = "wallet"
	ProductTypeVirtualCard ProductType = "virtual-card"
)

// Valid reports whether t is one of the known product types.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeGiftCard, ProductTypeCrypto, ProductTypeWallet, ProductTypeVirtualCard:
		return true
	}
	return false
}

// RateCategory identifies a USD-to-local-currency rate bucket.
// Virtual cards settle at the wallet rate, so there is no fourth category.
type RateCategory string

const (
	RateCategoryGiftCard RateCategory = "giftcard"
	RateCategoryCrypto   RateCategory = "crypto"
	RateCategoryWallet   RateCategory = "wallet"
)

// Valid reports whether c is one of the known rate categories.
func (c RateCategory) Valid() bool {
	switch c {
	case RateCategoryGiftCard, RateCategoryCrypto, RateCategoryWallet:
		return true
	}
	return false
}

// RateCategory maps a product type to the rate category used to price it.
func (t ProductType) RateCategory() RateCategory {
	switch t {
	case ProductTypeGiftCard:
		return RateCategoryGiftCard
	case ProductTypeCrypto:
		return RateCategoryCrypto
	default:
		// Wallet top-ups and virtual cards share the wallet rate.
		return RateCategoryWallet
	}
}

// RateTable holds the local-currency-per-USD multiplier for each category.
type RateTable struct {
	GiftCard float64 `json:"giftcard"`
	Crypto   float64 `json:"crypto"`
	Wallet   float64 `json:"wallet"`
}

// For returns the multiplier for the given category.
func (rt RateTable) For(c RateCategory) float64 {
	switch c {
	case RateCategoryGiftCard:
		return rt.GiftCard
	case RateCategoryCrypto:
		return rt.Crypto
	default:
		return rt.Wallet
	}
}

// RateRecord is one entry of the append-only rate history.
type RateRecord struct {
	Category  RateCategory `json:"type"`
	Value     float64      `json:"value"`
	CreatedAt time.Time    `json:"createdAt"`
}

// CartLineItem is one product entry in a customer's cart.
// Metadata carries category-specific fields such as a wallet email or a
// crypto wallet address.
type CartLineItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Type         ProductType       `json:"type"`
	UnitPriceUSD float64           `json:"unitPriceUsd"`
	Quantity     int               `json:"quantity"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PointsPackage is a fixed bundle of loyalty points redeemable for a fixed
// USD discount.
type PointsPackage struct {
	Points   int     `json:"points"`
	ValueUSD float64 `json:"valueUsd"`
}

// PointsPackages lists the redeemable bundles offered by the store.
var PointsPackages = []PointsPackage{
	{Points: 650, ValueUSD: 5},
	{Points: 1300, ValueUSD: 10},
}

// PointsPackageFor returns the package with the given point cost.
func PointsPackageFor(points int) (PointsPackage, bool) {
	for _, p := range PointsPackages {
		if p.Points == points {
			return p, true
		}
	}
	return PointsPackage{}, false
}

// OrderStatus describes the back-office processing state of an order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderItem is a snapshot of a cart line item at submission time, later
// enriched with a fulfillment code once the order is approved.
type OrderItem struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Type            ProductType       `json:"type"`
	UnitPriceUSD    float64           `json:"unitPriceUsd"`
	Quantity        int               `json:"quantity"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	FulfillmentCode string            `json:"fulfillmentCode,omitempty"`
}

// Order is a persisted customer order.
type Order struct {
	ID                string        `json:"id"`
	Email             string        `json:"email"`
	Items             []OrderItem   `json:"items"`
	TotalUSD          float64       `json:"totalUsd"`
	TotalLocal        int64         `json:"totalLocal"`
	PaymentMethod     PaymentMethod `json:"paymentMethod"`
	SenderName        string        `json:"senderName,omitempty"`
	TransactionID     string        `json:"transactionId,omitempty"`
	ProofOfPaymentURL string        `json:"proofOfPaymentUrl,omitempty"`
	PointsUsed        int           `json:"pointsUsed,omitempty"`
	ReceiptURL        string        `json:"receiptUrl,omitempty"`
	ReceiptID         string        `json:"receiptId,omitempty"`
	Status            OrderStatus   `json:"status"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// User is a storefront customer synced from the external auth provider.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Product is a catalog entry.
type Product struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	Type      ProductType `json:"type"`
	PriceUSD  float64     `json:"priceUsd"`
	InStock   bool        `json:"inStock"`
	ImageURL  string      `json:"imageUrl,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Notification is a back-office or customer alert row.
type Notification struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
