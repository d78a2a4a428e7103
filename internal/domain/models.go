package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit      TransactionKind = "deposit"
	KindPurchase     TransactionKind = "purchase"
	KindRefund       TransactionKind = "refund"
	KindCouponRedeem TransactionKind = "coupon_redeem"
	KindManualAdjust TransactionKind = "manual_adjust"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

type Wallet struct {
	UserID    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Transaction is one ledger row. Booked reports whether Amount has already
// been applied to the owner's wallet balance.
type Transaction struct {
	ID          string            `db:"id"`
	UserID      string            `db:"user_id"`
	Kind        TransactionKind   `db:"kind"`
	Amount      decimal.Decimal   `db:"amount"`
	Status      TransactionStatus `db:"status"`
	Booked      bool              `db:"booked"`
	ExternalRef string            `db:"external_ref"`
	Description string            `db:"description"`
	CreatedAt   time.Time         `db:"created_at"`
	CompletedAt *time.Time        `db:"completed_at"`
}

type OrderState string

const (
	OrderWaiting   OrderState = "WAITING"
	OrderReceived  OrderState = "RECEIVED"
	OrderCancelled OrderState = "CANCELLED"
	OrderExpired   OrderState = "EXPIRED"
)

type OrderStage string

const (
	StageInitiated       OrderStage = "INITIATED"
	StageReserved        OrderStage = "RESERVED"
	StageProviderPending OrderStage = "PROVIDER_PENDING"
	StageFulfilled       OrderStage = "FULFILLED"
	StageCancelled       OrderStage = "CANCELLED"
	StageRefunded        OrderStage = "REFUNDED"
)

type Order struct {
	ID               string          `db:"id"`
	UserID           string          `db:"user_id"`
	TransactionID    string          `db:"transaction_id"`
	ProductID        string          `db:"product_id"`
	Price            decimal.Decimal `db:"price"`
	ExternalNumberID string          `db:"external_number_id"`
	PhoneNumber      string          `db:"phone_number"`
	SMSCode          string          `db:"sms_code"`
	State            OrderState      `db:"state"`
	Stage            OrderStage      `db:"stage"`
	ExpiresAt        time.Time       `db:"expires_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (o *Order) IsTerminal() bool {
	switch o.Stage {
	case StageFulfilled, StageCancelled, StageRefunded:
		return true
	}
	return false
}

type DepositState string

const (
	DepositPending  DepositState = "PENDING"
	DepositApproved DepositState = "APPROVED"
	DepositRejected DepositState = "REJECTED"
)

type Deposit struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	TransactionID     string          `db:"transaction_id"`
	ExternalPaymentID string          `db:"external_payment_id"`
	Amount            decimal.Decimal `db:"amount"`
	QRCode            string          `db:"qr_code"`
	QRCodeBase64      string          `db:"qr_code_base64"`
	TicketURL         string          `db:"ticket_url"`
	State             DepositState    `db:"state"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type Coupon struct {
	Code      string          `db:"code"`
	Value     decimal.Decimal `db:"value"`
	MaxUses   int             `db:"max_uses"`
	UsesUsed  int             `db:"uses_used"`
	Active    bool            `db:"active"`
	ExpiresAt *time.Time      `db:"expires_at"`
	CreatedAt time.Time       `db:"created_at"`
}

type BlacklistEntry struct {
	UserID    string     `db:"user_id"`
	Reason    string     `db:"reason"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt *time.Time `db:"expires_at"`
}

// ActiveAt reports whether the entry still blocks the user at t.
// Entries without an expiry are permanent.
func (e *BlacklistEntry) ActiveAt(t time.Time) bool {
	return e.ExpiresAt == nil || t.Before(*e.ExpiresAt)
}

type Product struct {
	ID      string          `db:"id"`
	Name    string          `db:"name"`
	Service string          `db:"service"`
	Country int             `db:"country"`
	Price   decimal.Decimal `db:"price"`
	Active  bool            `db:"active"`
}

type Reconciliation struct {
	UserID     string
	Balance    decimal.Decimal
	LedgerSum  decimal.Decimal
	Consistent bool
}

// Cursor points at the last transaction of a history page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type HistoryQuery struct {
	Limit  int
	Cursor string
}

type HistoryPage struct {
	Items      []Transaction
	NextCursor string
}
