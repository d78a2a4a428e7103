package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrAlreadyTerminal     = errors.New("transaction already terminal")
	ErrAlreadyReceived     = errors.New("sms already received")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserBlacklisted     = errors.New("user is blacklisted")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionConflict = errors.New("transaction id reused with different parameters")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderInProgress     = errors.New("order reservation in progress")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrCouponExists        = errors.New("coupon already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")

	ErrInvalidCoupon   = errors.New("invalid coupon")
	ErrCouponNotFound  = fmt.Errorf("%w: not found", ErrInvalidCoupon)
	ErrCouponInactive  = fmt.Errorf("%w: inactive", ErrInvalidCoupon)
	ErrCouponExhausted = fmt.Errorf("%w: exhausted", ErrInvalidCoupon)
	ErrCouponExpired   = fmt.Errorf("%w: expired", ErrInvalidCoupon)

	// ErrActivationGone is a rejection for an activation the provider no
	// longer knows about.
	ErrActivationGone = fmt.Errorf("%w: activation not found", ErrProviderRejected)
)
