package ledgerservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Repo interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, completedAt time.Time) (*domain.Transaction, error)
	Book(ctx context.Context, id string, status domain.TransactionStatus, completedAt *time.Time) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]domain.Transaction, error)
	SumBooked(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Service struct {
	repo Repo
	now  func() time.Time
}

func New(repo Repo) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record stores txn as a pending, unbooked transaction.
func (s *Service) Record(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.Amount = domain.Money(txn.Amount)
	txn.Status = domain.StatusPending
	txn.Booked = false
	txn.CreatedAt = s.now()
	txn.CompletedAt = nil

	if err := s.repo.Create(ctx, txn); err != nil {
		zap.L().Error("failed to record transaction", zap.String("id", txn.ID), zap.Error(err))
		return nil, err
	}
	return txn, nil
}

// Append stores txn with its amount already applied to the wallet.
// Callers must hold the wallet row in the same database transaction.
func (s *Service) Append(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Status == "" {
		txn.Status = domain.StatusPending
	}
	txn.Amount = domain.Money(txn.Amount)
	txn.Booked = true
	txn.CreatedAt = s.now()
	if txn.Status.IsTerminal() {
		at := txn.CreatedAt
		txn.CompletedAt = &at
	}

	if err := s.repo.Create(ctx, txn); err != nil {
		zap.L().Error("failed to append transaction", zap.String("id", txn.ID), zap.Error(err))
		return nil, err
	}
	return txn, nil
}

// Book marks a recorded, still pending transaction as applied to the wallet
// and moves it to status.
func (s *Service) Book(ctx context.Context, id string, status domain.TransactionStatus) (*domain.Transaction, error) {
	var completedAt *time.Time
	if status.IsTerminal() {
		now := s.now()
		completedAt = &now
	}
	txn, err := s.repo.Book(ctx, id, status, completedAt)
	if err != nil {
		zap.L().Error("failed to book transaction", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if txn == nil {
		return nil, s.missOrTerminal(ctx, id)
	}
	return txn, nil
}

// Commit moves a pending transaction to a terminal status. A second commit of
// the same id fails with ErrAlreadyTerminal and changes nothing.
func (s *Service) Commit(ctx context.Context, id string, status domain.TransactionStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: status %q is not terminal", domain.ErrInvalidInput, status)
	}
	txn, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		zap.L().Error("failed to commit transaction", zap.String("id", id), zap.Error(err))
		return err
	}
	if txn == nil {
		return s.missOrTerminal(ctx, id)
	}
	zap.L().Debug("transaction committed", zap.String("id", id), zap.String("status", string(status)))
	return nil
}

func (s *Service) missOrTerminal(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrTransactionNotFound
	}
	return domain.ErrAlreadyTerminal
}

func (s *Service) Find(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		zap.L().Error("failed to find transaction", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return txn, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

// History returns one page of the user's transactions, newest first.
// Pass the returned NextCursor to fetch the following page; an empty
// NextCursor means the history is exhausted.
func (s *Service) History(ctx context.Context, userID string, q domain.HistoryQuery) (*domain.HistoryPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var after *domain.Cursor
	if q.Cursor != "" {
		c, err := DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		after = c
	}

	items, err := s.repo.ListByUser(ctx, userID, after, limit+1)
	if err != nil {
		zap.L().Error("failed to list transactions", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}

	page := &domain.HistoryPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = EncodeCursor(domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// ReconcileBalance recomputes the balance from booked transactions.
func (s *Service) ReconcileBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	sum, err := s.repo.SumBooked(ctx, userID)
	if err != nil {
		zap.L().Error("failed to sum ledger", zap.String("userID", userID), zap.Error(err))
		return decimal.Zero, err
	}
	return sum, nil
}

type cursorJSON struct {
	T time.Time `json:"t"`
	I string    `json:"i"`
}

func EncodeCursor(c domain.Cursor) string {
	b, _ := json.Marshal(cursorJSON{T: c.CreatedAt, I: c.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(s string) (*domain.Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", domain.ErrInvalidInput)
	}
	var c cursorJSON
	if err := json.Unmarshal(b, &c); err != nil || c.I == "" {
		return nil, fmt.Errorf("%w: malformed cursor", domain.ErrInvalidInput)
	}
	return &domain.Cursor{CreatedAt: c.T, ID: c.I}, nil
}
