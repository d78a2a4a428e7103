package depositservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const DefaultProviderTimeout = 15 * time.Second

var (
	DefaultMinDeposit = decimal.NewFromInt(1)
	DefaultMaxDeposit = decimal.NewFromInt(10000)
)

type Repo interface {
	Create(ctx context.Context, deposit *domain.Deposit) error
	FindByID(ctx context.Context, id string) (*domain.Deposit, error)
	FindByExternalID(ctx context.Context, paymentID string) (*domain.Deposit, error)
	Update(ctx context.Context, deposit *domain.Deposit) error
	FindByUserID(ctx context.Context, userID string) ([]domain.Deposit, error)
	FindForProcessing(ctx context.Context, limit uint32) ([]domain.Deposit, error)
}

type Wallet interface {
	Lock(ctx context.Context, userID string) (context.Context, func(), error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error)
}

type Ledger interface {
	Record(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
	Commit(ctx context.Context, id string, status domain.TransactionStatus) error
}

// Gateway creates PIX charges and reports their settlement.
type Gateway interface {
	CreatePixIntent(ctx context.Context, amount decimal.Decimal, description, idempotencyKey string) (*domain.PaymentIntent, error)
	Status(ctx context.Context, paymentID string) (*domain.PaymentStatus, error)
}

type Blacklist interface {
	CheckAllowed(ctx context.Context, userID string) error
}

type Config struct {
	MinDeposit      decimal.Decimal
	MaxDeposit      decimal.Decimal
	ProviderTimeout time.Duration
}

type Deps struct {
	Repo      Repo
	Wallet    Wallet
	Ledger    Ledger
	Gateway   Gateway
	Blacklist Blacklist
	TxManager pg.TXManager
	Publisher events.Publisher
}

type Service struct {
	repo      Repo
	wallet    Wallet
	ledger    Ledger
	gateway   Gateway
	blacklist Blacklist
	txManager pg.TXManager
	publisher events.Publisher
	cfg       Config
	now       func() time.Time
}

func New(deps Deps, cfg Config) *Service {
	if !cfg.MinDeposit.IsPositive() {
		cfg.MinDeposit = DefaultMinDeposit
	}
	if !cfg.MaxDeposit.IsPositive() {
		cfg.MaxDeposit = DefaultMaxDeposit
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	return &Service{
		repo:      deps.Repo,
		wallet:    deps.Wallet,
		ledger:    deps.Ledger,
		gateway:   deps.Gateway,
		blacklist: deps.Blacklist,
		txManager: deps.TxManager,
		publisher: deps.Publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateDeposit opens a PIX charge and records it as a pending deposit.
// The balance is untouched until the charge is approved.
func (s *Service) CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Deposit, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	amount = domain.Money(amount)
	if amount.LessThan(s.cfg.MinDeposit) || amount.GreaterThan(s.cfg.MaxDeposit) {
		return nil, fmt.Errorf("%w: deposit must be between %s and %s",
			domain.ErrInvalidAmount, s.cfg.MinDeposit.StringFixed(2), s.cfg.MaxDeposit.StringFixed(2))
	}
	if err := s.blacklist.CheckAllowed(ctx, userID); err != nil {
		return nil, err
	}

	deposit := &domain.Deposit{
		ID:            uuid.NewString(),
		UserID:        userID,
		TransactionID: uuid.NewString(),
		Amount:        amount,
		State:         domain.DepositPending,
	}
	description := "Deposit " + deposit.ID

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	intent, err := s.gateway.CreatePixIntent(callCtx, amount, description, deposit.ID)
	cancel()
	if err != nil {
		err = providerError(err)
		metrics.RecordDeposit("intent_failed")
		zap.L().Warn("failed to create pix intent", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	deposit.ExternalPaymentID = intent.ID
	deposit.QRCode = intent.QRCode
	deposit.QRCodeBase64 = intent.QRCodeBase64
	deposit.TicketURL = intent.TicketURL
	deposit.CreatedAt = now
	deposit.UpdatedAt = now

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if _, err := s.ledger.Record(ctx, &domain.Transaction{
			ID:          deposit.TransactionID,
			UserID:      userID,
			Kind:        domain.KindDeposit,
			Amount:      amount,
			ExternalRef: intent.ID,
			Description: description,
		}); err != nil {
			return err
		}
		return s.repo.Create(ctx, deposit)
	})
	if err != nil {
		zap.L().Error("failed to persist deposit",
			zap.String("depositID", deposit.ID), zap.String("paymentID", intent.ID), zap.Error(err))
		return nil, err
	}

	metrics.RecordDeposit("created")
	zap.L().Info("deposit created",
		zap.String("depositID", deposit.ID), zap.String("userID", userID), zap.String("amount", amount.StringFixed(2)))
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.DepositCreated,
		UserID:        userID,
		TransactionID: deposit.TransactionID,
		Amount:        amount,
		Reference:     deposit.ID,
	})
	return deposit, nil
}

// CheckDeposit settles a pending deposit from the gateway's view of its
// charge. It is safe to call any number of times: the credit is booked once.
func (s *Service) CheckDeposit(ctx context.Context, depositID string) (*domain.Deposit, error) {
	deposit, err := s.repo.FindByID(ctx, depositID)
	if err != nil {
		zap.L().Error("failed to find deposit", zap.String("depositID", depositID), zap.Error(err))
		return nil, err
	}
	if deposit == nil {
		return nil, domain.ErrDepositNotFound
	}
	return s.check(ctx, deposit)
}

// CheckByExternalID runs CheckDeposit for the deposit behind a gateway
// payment id.
func (s *Service) CheckByExternalID(ctx context.Context, paymentID string) (*domain.Deposit, error) {
	deposit, err := s.repo.FindByExternalID(ctx, paymentID)
	if err != nil {
		zap.L().Error("failed to find deposit", zap.String("paymentID", paymentID), zap.Error(err))
		return nil, err
	}
	if deposit == nil {
		return nil, domain.ErrDepositNotFound
	}
	return s.check(ctx, deposit)
}

func (s *Service) check(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error) {
	if deposit.State != domain.DepositPending {
		return deposit, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	status, err := s.gateway.Status(callCtx, deposit.ExternalPaymentID)
	cancel()
	if err != nil {
		return nil, providerError(err)
	}

	switch status.State {
	case domain.PaymentApproved:
		if !status.Amount.IsZero() && !status.Amount.Equal(deposit.Amount) {
			zap.L().Warn("gateway amount differs from deposit",
				zap.String("depositID", deposit.ID),
				zap.String("expected", deposit.Amount.StringFixed(2)),
				zap.String("paid", status.Amount.StringFixed(2)))
		}
		return s.approve(ctx, deposit)
	case domain.PaymentRejected:
		return s.reject(ctx, deposit, status.Detail)
	}
	return deposit, nil
}

func (s *Service) approve(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error) {
	ctx, unlock, err := s.wallet.Lock(ctx, deposit.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", deposit.UserID, err)
	}
	defer unlock()

	var (
		result   *domain.Deposit
		approved bool
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, deposit.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrDepositNotFound
		}
		if current.State != domain.DepositPending {
			result = current
			return nil
		}
		if _, err := s.wallet.Credit(ctx, current.UserID, current.Amount, domain.Transaction{
			ID:     current.TransactionID,
			Kind:   domain.KindDeposit,
			Status: domain.StatusCompleted,
		}); err != nil {
			return err
		}
		current.State = domain.DepositApproved
		current.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		result, approved = current, true
		return nil
	})
	if err != nil {
		zap.L().Error("failed to approve deposit", zap.String("depositID", deposit.ID), zap.Error(err))
		return nil, err
	}
	if !approved {
		return result, nil
	}

	metrics.RecordDeposit("approved")
	zap.L().Info("deposit approved",
		zap.String("depositID", result.ID), zap.String("userID", result.UserID), zap.String("amount", result.Amount.StringFixed(2)))
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.DepositApproved,
		UserID:        result.UserID,
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
		Reference:     result.ID,
	})
	return result, nil
}

func (s *Service) reject(ctx context.Context, deposit *domain.Deposit, detail string) (*domain.Deposit, error) {
	ctx, unlock, err := s.wallet.Lock(ctx, deposit.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", deposit.UserID, err)
	}
	defer unlock()

	var (
		result   *domain.Deposit
		rejected bool
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, deposit.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrDepositNotFound
		}
		if current.State != domain.DepositPending {
			result = current
			return nil
		}
		if err := s.ledger.Commit(ctx, current.TransactionID, domain.StatusFailed); err != nil &&
			!errors.Is(err, domain.ErrAlreadyTerminal) {
			return err
		}
		current.State = domain.DepositRejected
		current.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		result, rejected = current, true
		return nil
	})
	if err != nil {
		zap.L().Error("failed to reject deposit", zap.String("depositID", deposit.ID), zap.Error(err))
		return nil, err
	}
	if !rejected {
		return result, nil
	}

	metrics.RecordDeposit("rejected")
	zap.L().Info("deposit rejected", zap.String("depositID", result.ID), zap.String("detail", detail))
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.DepositRejected,
		UserID:        result.UserID,
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
		Reference:     result.ID,
	})
	return result, nil
}

// Get returns the deposit when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, depositID string) (*domain.Deposit, error) {
	deposit, err := s.repo.FindByID(ctx, depositID)
	if err != nil {
		zap.L().Error("failed to get deposit", zap.String("depositID", depositID), zap.Error(err))
		return nil, err
	}
	if deposit == nil || deposit.UserID != userID {
		return nil, domain.ErrDepositNotFound
	}
	return deposit, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error) {
	deposits, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to list deposits", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return deposits, nil
}

// PendingDeposits returns up to limit deposits still awaiting settlement,
// oldest first.
func (s *Service) PendingDeposits(ctx context.Context, limit uint32) ([]domain.Deposit, error) {
	return s.repo.FindForProcessing(ctx, limit)
}

func providerError(err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrProviderRejected) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}
