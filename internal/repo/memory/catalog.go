package memory

import (
	"context"
	"sort"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type BlacklistRepo struct {
	s *Store
}

func (r *BlacklistRepo) Upsert(ctx context.Context, entry *domain.BlacklistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(ctx, r.s.blacklist, entry.UserID, *entry)
	return nil
}

func (r *BlacklistRepo) Delete(ctx context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return remove(ctx, r.s.blacklist, userID), nil
}

func (r *BlacklistRepo) FindByUserID(_ context.Context, userID string) (*domain.BlacklistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry, ok := r.s.blacklist[userID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *BlacklistRepo) List(_ context.Context) ([]domain.BlacklistEntry, error) {
	r.s.mu.Lock()
	entries := make([]domain.BlacklistEntry, 0, len(r.s.blacklist))
	for _, e := range r.s.blacklist {
		entries = append(entries, e)
	}
	r.s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

type ProductRepo struct {
	s *Store
}

func (r *ProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

func (r *ProductRepo) List(_ context.Context, activeOnly bool) ([]domain.Product, error) {
	r.s.mu.Lock()
	var products []domain.Product
	for _, p := range r.s.products {
		if p.Active || !activeOnly {
			products = append(products, p)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *ProductRepo) Upsert(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(ctx, r.s.products, product.ID, *product)
	return nil
}
