package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type WalletRepo struct {
	s *Store
}

func (r *WalletRepo) Get(_ context.Context, userID string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// GetForUpdate is Get: the caller already holds the user lock.
func (r *WalletRepo) GetForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.Get(ctx, userID)
}

func (r *WalletRepo) Create(ctx context.Context, userID string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w, ok := r.s.wallets[userID]; ok {
		return &w, nil
	}
	now := time.Now()
	w := domain.Wallet{UserID: userID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	put(ctx, r.s.wallets, userID, w)
	return &w, nil
}

func (r *WalletRepo) UpdateBalance(ctx context.Context, userID string, balance decimal.Decimal) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if balance.IsNegative() {
		return nil, domain.ErrInsufficientFunds
	}
	w.Balance = balance
	w.UpdatedAt = time.Now()
	put(ctx, r.s.wallets, userID, w)
	return &w, nil
}

func (r *WalletRepo) Top(_ context.Context, limit int) ([]domain.Wallet, error) {
	r.s.mu.Lock()
	var wallets []domain.Wallet
	for _, w := range r.s.wallets {
		if w.Balance.IsPositive() {
			wallets = append(wallets, w)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(wallets, func(i, j int) bool {
		if c := wallets[i].Balance.Cmp(wallets[j].Balance); c != 0 {
			return c > 0
		}
		return wallets[i].UserID < wallets[j].UserID
	})
	if len(wallets) > limit {
		wallets = wallets[:limit]
	}
	return wallets, nil
}
