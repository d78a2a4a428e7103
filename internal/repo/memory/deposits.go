package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type DepositRepo struct {
	s *Store
}

func (r *DepositRepo) Create(ctx context.Context, deposit *domain.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.deposits[deposit.ID]; ok {
		return fmt.Errorf("deposit %s: %w", deposit.ID, errDuplicateKey)
	}
	put(ctx, r.s.deposits, deposit.ID, *deposit)
	return nil
}

func (r *DepositRepo) FindByID(_ context.Context, id string) (*domain.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deposit, ok := r.s.deposits[id]
	if !ok {
		return nil, nil
	}
	return &deposit, nil
}

func (r *DepositRepo) FindByExternalID(_ context.Context, paymentID string) (*domain.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deposits {
		if d.ExternalPaymentID == paymentID {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *DepositRepo) Update(ctx context.Context, deposit *domain.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.deposits[deposit.ID]
	if !ok {
		return domain.ErrDepositNotFound
	}
	stored.State = deposit.State
	stored.UpdatedAt = deposit.UpdatedAt
	put(ctx, r.s.deposits, deposit.ID, stored)
	return nil
}

func (r *DepositRepo) FindByUserID(_ context.Context, userID string) ([]domain.Deposit, error) {
	deposits := r.filter(func(d domain.Deposit) bool { return d.UserID == userID })
	sort.Slice(deposits, func(i, j int) bool { return deposits[i].CreatedAt.After(deposits[j].CreatedAt) })
	return deposits, nil
}

func (r *DepositRepo) FindForProcessing(_ context.Context, limit uint32) ([]domain.Deposit, error) {
	deposits := r.filter(func(d domain.Deposit) bool { return d.State == domain.DepositPending })
	sort.Slice(deposits, func(i, j int) bool { return deposits[i].CreatedAt.Before(deposits[j].CreatedAt) })
	if len(deposits) > int(limit) {
		deposits = deposits[:limit]
	}
	return deposits, nil
}

func (r *DepositRepo) filter(keep func(domain.Deposit) bool) []domain.Deposit {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deposits []domain.Deposit
	for _, d := range r.s.deposits {
		if keep(d) {
			deposits = append(deposits, d)
		}
	}
	return deposits
}
