package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[txn.ID]; ok {
		return fmt.Errorf("transaction %s: %w", txn.ID, errDuplicateKey)
	}
	put(ctx, r.s.transactions, txn.ID, *txn)
	return nil
}

func (r *TransactionRepo) FindByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[id]
	if !ok {
		return nil, nil
	}
	return &txn, nil
}

func (r *TransactionRepo) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, completedAt time.Time) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[id]
	if !ok || txn.Status != domain.StatusPending {
		return nil, nil
	}
	txn.Status = status
	txn.CompletedAt = &completedAt
	put(ctx, r.s.transactions, id, txn)
	return &txn, nil
}

func (r *TransactionRepo) Book(ctx context.Context, id string, status domain.TransactionStatus, completedAt *time.Time) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[id]
	if !ok || txn.Status != domain.StatusPending || txn.Booked {
		return nil, nil
	}
	txn.Booked = true
	txn.Status = status
	txn.CompletedAt = completedAt
	put(ctx, r.s.transactions, id, txn)
	return &txn, nil
}

func newerFirst(a, b domain.Transaction) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *TransactionRepo) ListByUser(_ context.Context, userID string, after *domain.Cursor, limit int) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	var txns []domain.Transaction
	for _, txn := range r.s.transactions {
		if txn.UserID != userID {
			continue
		}
		if after != nil && !newerFirst(domain.Transaction{CreatedAt: after.CreatedAt, ID: after.ID}, txn) {
			continue
		}
		txns = append(txns, txn)
	}
	r.s.mu.Unlock()

	sort.Slice(txns, func(i, j int) bool { return newerFirst(txns[i], txns[j]) })
	if len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (r *TransactionRepo) SumBooked(_ context.Context, userID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, txn := range r.s.transactions {
		if txn.UserID == userID && txn.Booked {
			sum = sum.Add(txn.Amount)
		}
	}
	return sum, nil
}
