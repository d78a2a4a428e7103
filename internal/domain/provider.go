package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Activation is a phone number rented from the number provider.
type Activation struct {
	ID          string
	PhoneNumber string
}

type ActivationStatus struct {
	State OrderState
	Code  string
}

// PaymentIntent is a PIX charge created at the payment gateway.
type PaymentIntent struct {
	ID           string
	Status       string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
}

type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentApproved PaymentState = "approved"
	PaymentRejected PaymentState = "rejected"
)

type PaymentStatus struct {
	ID     string
	State  PaymentState
	Detail string
	Amount decimal.Decimal
}

var refundNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e3f-9a10-2c4d6e8f0a1b")

// RefundTransactionID derives the refund transaction id from the purchase
// transaction it reverses, so repeated refund attempts share one id.
func RefundTransactionID(purchaseTxnID string) string {
	return uuid.NewSHA1(refundNamespace, []byte("refund:"+purchaseTxnID)).String()
}

// Money rounds d to minor units.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
