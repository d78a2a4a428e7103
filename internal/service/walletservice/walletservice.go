package walletservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const defaultRankingSize = 50

type Repo interface {
	Get(ctx context.Context, userID string) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)
	Create(ctx context.Context, userID string) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, userID string, balance decimal.Decimal) (*domain.Wallet, error)
	Top(ctx context.Context, limit int) ([]domain.Wallet, error)
}

type Ledger interface {
	Find(ctx context.Context, id string) (*domain.Transaction, error)
	Append(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
	Book(ctx context.Context, id string, status domain.TransactionStatus) (*domain.Transaction, error)
	ReconcileBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Locker interface {
	Lock(ctx context.Context, key string) (context.Context, func(), error)
}

type Service struct {
	repo      Repo
	ledger    Ledger
	locker    Locker
	txManager pg.TXManager
	publisher events.Publisher
}

func New(repo Repo, ledger Ledger, locker Locker, txManager pg.TXManager, publisher events.Publisher) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		locker:    locker,
		txManager: txManager,
		publisher: publisher,
	}
}

func UserKey(userID string) string {
	return "user:" + userID
}

// Lock enters the per-user critical section that guards every balance change.
func (s *Service) Lock(ctx context.Context, userID string) (context.Context, func(), error) {
	return s.locker.Lock(ctx, UserKey(userID))
}

// GetBalance returns the user's wallet, opening an empty one on first use.
func (s *Service) GetBalance(ctx context.Context, userID string) (*domain.Wallet, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	wallet, err := s.repo.Get(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get wallet", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}
	wallet, err = s.repo.Create(ctx, userID)
	if err != nil {
		zap.L().Error("failed to create wallet", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error) {
	amount = domain.Money(amount)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	return s.apply(ctx, userID, amount, txn)
}

func (s *Service) Debit(ctx context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error) {
	amount = domain.Money(amount)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	return s.apply(ctx, userID, amount.Neg(), txn)
}

// Adjust applies a signed manual correction on behalf of an operator.
func (s *Service) Adjust(ctx context.Context, userID string, amount decimal.Decimal, reason string) (*domain.Transaction, error) {
	txn := domain.Transaction{
		Kind:        domain.KindManualAdjust,
		Status:      domain.StatusCompleted,
		Description: reason,
	}
	if amount.IsNegative() {
		return s.Debit(ctx, userID, amount.Neg(), txn)
	}
	return s.Credit(ctx, userID, amount, txn)
}

// apply books delta against the wallet exactly once per transaction id:
// a replayed id returns the stored transaction, a recorded but unbooked id
// is booked, anything else is appended as a new ledger row.
func (s *Service) apply(ctx context.Context, userID string, delta decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}

	ctx, unlock, err := s.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", userID, err)
	}
	defer unlock()

	var (
		result   *domain.Transaction
		replayed bool
		balance  decimal.Decimal
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		var existing *domain.Transaction
		if txn.ID != "" {
			found, err := s.ledger.Find(ctx, txn.ID)
			if err != nil {
				return err
			}
			existing = found
		}
		if existing != nil {
			if existing.UserID != userID || !existing.Amount.Equal(delta) {
				return domain.ErrTransactionConflict
			}
			if existing.Booked {
				result, replayed = existing, true
				return nil
			}
			if existing.Status.IsTerminal() {
				return domain.ErrAlreadyTerminal
			}
		}

		wallet, err := s.lockWallet(ctx, userID)
		if err != nil {
			return err
		}
		balance = wallet.Balance.Add(delta)
		if balance.IsNegative() {
			return domain.ErrInsufficientFunds
		}
		if _, err := s.repo.UpdateBalance(ctx, userID, balance); err != nil {
			return err
		}

		if existing != nil {
			status := txn.Status
			if status == "" {
				status = existing.Status
			}
			result, err = s.ledger.Book(ctx, existing.ID, status)
			return err
		}

		txn.UserID = userID
		txn.Amount = delta
		result, err = s.ledger.Append(ctx, &txn)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			zap.L().Error("failed to apply wallet delta",
				zap.String("userID", userID), zap.String("delta", delta.String()), zap.Error(err))
		}
		return nil, err
	}
	if replayed {
		zap.L().Info("wallet delta already booked", zap.String("txnID", result.ID))
		return result, nil
	}

	metrics.RecordWalletMutation(string(result.Kind), delta)
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.BalanceChanged,
		UserID:        userID,
		TransactionID: result.ID,
		Amount:        delta,
		Balance:       balance,
		Reference:     result.ExternalRef,
		OccurredAt:    time.Now(),
	})
	return result, nil
}

func (s *Service) lockWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := s.repo.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}
	if _, err := s.repo.Create(ctx, userID); err != nil {
		return nil, err
	}
	wallet, err = s.repo.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, domain.ErrUserNotFound
	}
	return wallet, nil
}

// Reconcile compares the stored balance with the sum of booked transactions.
func (s *Service) Reconcile(ctx context.Context, userID string) (*domain.Reconciliation, error) {
	wallet, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.ledger.ReconcileBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec := &domain.Reconciliation{
		UserID:     userID,
		Balance:    wallet.Balance,
		LedgerSum:  sum,
		Consistent: wallet.Balance.Equal(sum),
	}
	if !rec.Consistent {
		zap.L().Error("wallet balance diverged from ledger",
			zap.String("userID", userID),
			zap.String("balance", wallet.Balance.String()),
			zap.String("ledger", sum.String()))
	}
	return rec, nil
}

// Ranking lists the largest positive balances, largest first.
func (s *Service) Ranking(ctx context.Context, limit int) ([]domain.Wallet, error) {
	if limit <= 0 || limit > defaultRankingSize {
		limit = defaultRankingSize
	}
	wallets, err := s.repo.Top(ctx, limit)
	if err != nil {
		zap.L().Error("failed to load ranking", zap.Error(err))
		return nil, err
	}
	return wallets, nil
}
