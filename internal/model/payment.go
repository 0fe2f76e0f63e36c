package model

// PaymentMethod tags the settlement path of an order.
type PaymentMethod string

const (
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodPoints PaymentMethod = "points"
	PaymentMethodCard   PaymentMethod = "card"
)

// Payment is the tagged union of the supported settlement paths. Exactly one
// concrete type exists per PaymentMethod; the serialization boundary switches
// exhaustively over them instead of merging loose fields into one blob.
type Payment interface {
	Method() PaymentMethod
}

// BankPayment settles the full total via a manual bank transfer.
type BankPayment struct {
	SenderName        string
	TransactionID     string
	ProofOfPaymentURL string
}

// Method implements Payment.
func (BankPayment) Method() PaymentMethod { return PaymentMethodBank }

// PointsPayment redeems a points package against the total. When the package
// does not cover the whole cart, the remainder is settled by bank transfer
// under RemainderSenderName.
type PointsPayment struct {
	Package             PointsPackage
	ReceiptURL          string
	ReceiptID           string
	RemainderSenderName string
}

// Method implements Payment.
func (PointsPayment) Method() PaymentMethod { return PaymentMethodPoints }

// CardPayment is the planned card settlement path. It is declared so the
// union is closed, but submissions carrying it are rejected.
type CardPayment struct{}

// Method implements Payment.
func (CardPayment) Method() PaymentMethod { return PaymentMethodCard }

// OrderSubmission is the wire shape posted to the order-creation endpoint:
// a cart snapshot, the computed totals and flattened payment metadata.
type OrderSubmission struct {
	ClientRef         string         `json:"clientRef"`
	Email             string         `json:"email"`
	Items             []CartLineItem `json:"items"`
	TotalUSD          float64        `json:"totalUsd"`
	TotalLocal        int64          `json:"totalLocal"`
	PaymentMethod     PaymentMethod  `json:"paymentMethod"`
	SenderName        string         `json:"senderName,omitempty"`
	TransactionID     string         `json:"transactionId,omitempty"`
	ProofOfPaymentURL string         `json:"proofOfPaymentUrl,omitempty"`
	PointsUsed        int            `json:"pointsUsed,omitempty"`
	ReceiptURL        string         `json:"receiptUrl,omitempty"`
	ReceiptID         string         `json:"receiptId,omitempty"`
}

// NewOrderSubmission flattens a Payment into the wire shape. The switch is
// exhaustive over the union; an unknown payment type yields a submission the
// server rejects at validation.
func NewOrderSubmission(clientRef, email string, items []CartLineItem, totalUSD float64, totalLocal int64, p Payment) OrderSubmission {
	sub := OrderSubmission{
		ClientRef:  clientRef,
		Email:      email,
		Items:      items,
		TotalUSD:   totalUSD,
		TotalLocal: totalLocal,
	}
	if p == nil {
		return sub
	}

	sub.PaymentMethod = p.Method()

	switch v := p.(type) {
	case BankPayment:
		sub.SenderName = v.SenderName
		sub.TransactionID = v.TransactionID
		sub.ProofOfPaymentURL = v.ProofOfPaymentURL
	case PointsPayment:
		sub.PointsUsed = v.Package.Points
		sub.ReceiptURL = v.ReceiptURL
		sub.ReceiptID = v.ReceiptID
		sub.SenderName = v.RemainderSenderName
	case CardPayment:
		// Declared but not yet accepted; validation rejects it.
	}

	return sub
}
