package memory

import (
	"context"
	"sort"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type CouponRepo struct {
	s *Store
}

func (r *CouponRepo) Create(ctx context.Context, coupon *domain.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[coupon.Code]; ok {
		return domain.ErrCouponExists
	}
	put(ctx, r.s.coupons, coupon.Code, *coupon)
	return nil
}

func (r *CouponRepo) FindByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	coupon, ok := r.s.coupons[code]
	if !ok {
		return nil, nil
	}
	return &coupon, nil
}

func (r *CouponRepo) IncrementUses(ctx context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	coupon, ok := r.s.coupons[code]
	if !ok || !coupon.Active || coupon.UsesUsed >= coupon.MaxUses {
		return false, nil
	}
	coupon.UsesUsed++
	put(ctx, r.s.coupons, code, coupon)
	return true, nil
}

func (r *CouponRepo) List(_ context.Context) ([]domain.Coupon, error) {
	r.s.mu.Lock()
	coupons := make([]domain.Coupon, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		coupons = append(coupons, c)
	}
	r.s.mu.Unlock()

	sort.Slice(coupons, func(i, j int) bool { return coupons[i].CreatedAt.After(coupons[j].CreatedAt) })
	return coupons, nil
}

func (r *CouponRepo) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	coupon, ok := r.s.coupons[code]
	if !ok {
		return false, nil
	}
	coupon.Active = active
	put(ctx, r.s.coupons, code, coupon)
	return true, nil
}
