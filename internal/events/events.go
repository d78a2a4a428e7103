package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	BalanceChanged    = "wallet.balance_changed"
	OrderFulfilled    = "order.fulfilled"
	OrderRefunded     = "order.refunded"
	DepositCreated    = "deposit.created"
	DepositApproved   = "deposit.approved"
	DepositRejected   = "deposit.rejected"
	CouponRedeemed    = "coupon.redeemed"
	UserBlacklisted   = "blacklist.added"
	UserUnblacklisted = "blacklist.removed"
)

type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	Reference     string          `json:"reference,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emit publishes event after the state change it describes has been
// committed. Delivery failures are logged and never reach the caller.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := p.Publish(context.WithoutCancel(ctx), event); err != nil {
		zap.L().Warn("failed to publish event",
			zap.String("type", event.Type), zap.String("userID", event.UserID), zap.Error(err))
	}
}

// Fanout delivers every event to all publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
