package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type OrderRepo struct {
	s *Store
}

func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; ok {
		return fmt.Errorf("order %s: %w", order.ID, errDuplicateKey)
	}
	put(ctx, r.s.orders, order.ID, *order)
	return nil
}

func (r *OrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (r *OrderRepo) Update(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	put(ctx, r.s.orders, order.ID, *order)
	return nil
}

func (r *OrderRepo) FindByUserID(_ context.Context, userID string) ([]domain.Order, error) {
	orders := r.filter(func(o domain.Order) bool { return o.UserID == userID })
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (r *OrderRepo) FindForProcessing(_ context.Context, limit uint32) ([]domain.Order, error) {
	orders := r.filter(func(o domain.Order) bool {
		return o.Stage == domain.StageReserved || o.Stage == domain.StageProviderPending
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	if len(orders) > int(limit) {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *OrderRepo) filter(keep func(domain.Order) bool) []domain.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var orders []domain.Order
	for _, o := range r.s.orders {
		if keep(o) {
			orders = append(orders, o)
		}
	}
	return orders
}
