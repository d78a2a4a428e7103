package couponservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/internal/pg"
	"github.com/GlebRadaev/smswallet/pkg/validate"
)

const generatedCodeLength = 12

type Repo interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	IncrementUses(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	SetActive(ctx context.Context, code string, active bool) (bool, error)
}

type Wallet interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error)
}

type Locker interface {
	Lock(ctx context.Context, key string) (context.Context, func(), error)
}

type Blacklist interface {
	CheckAllowed(ctx context.Context, userID string) error
}

type Service struct {
	repo      Repo
	wallet    Wallet
	locker    Locker
	blacklist Blacklist
	txManager pg.TXManager
	publisher events.Publisher
	now       func() time.Time
}

func New(repo Repo, wallet Wallet, locker Locker, blacklist Blacklist, txManager pg.TXManager, publisher events.Publisher) *Service {
	return &Service{
		repo:      repo,
		wallet:    wallet,
		locker:    locker,
		blacklist: blacklist,
		txManager: txManager,
		publisher: publisher,
		now:       time.Now,
	}
}

func couponKey(code string) string {
	return "coupon:" + code
}

// Redeem credits the coupon value to userID and consumes one use. Checks run
// in order: not found, inactive, exhausted, expired.
func (s *Service) Redeem(ctx context.Context, code, userID string) (*domain.Transaction, error) {
	code = strings.TrimSpace(code)
	if code == "" || (validate.IsNumeric(code) && !validate.IsLuhn(code)) {
		metrics.RecordCouponRedemption("not_found")
		return nil, domain.ErrCouponNotFound
	}
	if err := s.blacklist.CheckAllowed(ctx, userID); err != nil {
		return nil, err
	}

	ctx, unlock, err := s.locker.Lock(ctx, couponKey(code))
	if err != nil {
		return nil, fmt.Errorf("lock coupon %s: %w", code, err)
	}
	defer unlock()

	var credited *domain.Transaction
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		coupon, err := s.repo.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if err := s.check(coupon); err != nil {
			return err
		}
		ok, err := s.repo.IncrementUses(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCouponExhausted
		}
		credited, err = s.wallet.Credit(ctx, userID, coupon.Value, domain.Transaction{
			Kind:        domain.KindCouponRedeem,
			Status:      domain.StatusCompleted,
			ExternalRef: code,
			Description: "coupon " + code,
		})
		return err
	})
	if err != nil {
		metrics.RecordCouponRedemption(redemptionResult(err))
		if !errors.Is(err, domain.ErrInvalidCoupon) {
			zap.L().Error("failed to redeem coupon", zap.String("code", code), zap.String("userID", userID), zap.Error(err))
		}
		return nil, err
	}

	metrics.RecordCouponRedemption("ok")
	zap.L().Info("coupon redeemed", zap.String("code", code), zap.String("userID", userID))
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.CouponRedeemed,
		UserID:        userID,
		TransactionID: credited.ID,
		Amount:        credited.Amount,
		Reference:     code,
	})
	return credited, nil
}

func (s *Service) check(coupon *domain.Coupon) error {
	switch {
	case coupon == nil:
		return domain.ErrCouponNotFound
	case !coupon.Active:
		return domain.ErrCouponInactive
	case coupon.UsesUsed >= coupon.MaxUses:
		return domain.ErrCouponExhausted
	case coupon.ExpiresAt != nil && !s.now().Before(*coupon.ExpiresAt):
		return domain.ErrCouponExpired
	}
	return nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrCouponNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCouponInactive):
		return "inactive"
	case errors.Is(err, domain.ErrCouponExhausted):
		return "exhausted"
	case errors.Is(err, domain.ErrCouponExpired):
		return "expired"
	}
	return "error"
}

// Create registers a coupon. An empty code is replaced by a generated
// Luhn-valid numeric code.
func (s *Service) Create(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	coupon.Code = strings.TrimSpace(coupon.Code)
	coupon.Value = domain.Money(coupon.Value)
	if !coupon.Value.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if coupon.MaxUses < 1 {
		return nil, fmt.Errorf("%w: max uses must be positive", domain.ErrInvalidInput)
	}
	if coupon.Code == "" {
		coupon.Code = validate.GenerateLuhn(generatedCodeLength)
	} else if validate.IsNumeric(coupon.Code) && !validate.IsLuhn(coupon.Code) {
		return nil, fmt.Errorf("%w: numeric codes must pass the Luhn check", domain.ErrInvalidInput)
	}
	coupon.UsesUsed = 0
	coupon.Active = true
	coupon.CreatedAt = s.now()

	if err := s.repo.Create(ctx, &coupon); err != nil {
		if !errors.Is(err, domain.ErrCouponExists) {
			zap.L().Error("failed to create coupon", zap.String("code", coupon.Code), zap.Error(err))
		}
		return nil, err
	}
	zap.L().Info("coupon created", zap.String("code", coupon.Code), zap.Int("maxUses", coupon.MaxUses))
	return &coupon, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		zap.L().Error("failed to list coupons", zap.Error(err))
		return nil, err
	}
	return coupons, nil
}

func (s *Service) Deactivate(ctx context.Context, code string) error {
	ok, err := s.repo.SetActive(ctx, code, false)
	if err != nil {
		zap.L().Error("failed to deactivate coupon", zap.String("code", code), zap.Error(err))
		return err
	}
	if !ok {
		return domain.ErrCouponNotFound
	}
	return nil
}
