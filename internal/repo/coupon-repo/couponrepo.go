package couponrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const (
	columns = `code, value, max_uses, uses_used, active, expires_at, created_at`

	uniqueViolation = "23505"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.Code, &c.Value, &c.MaxUses, &c.UsesUsed, &c.Active, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, coupon *domain.Coupon) error {
	query := `
        INSERT INTO coupons (code, value, max_uses, uses_used, active, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.Exec(ctx, query, coupon.Code, coupon.Value, coupon.MaxUses, coupon.UsesUsed,
		coupon.Active, coupon.ExpiresAt, coupon.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrCouponExists
	}
	if err != nil {
		zap.L().Error("can't create coupon", zap.String("code", coupon.Code), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
        SELECT ` + columns + `
        FROM coupons
        WHERE code = $1
    `
	coupon, err := scan(r.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find coupon", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	return coupon, nil
}

// IncrementUses consumes one use. It reports false when the coupon is
// inactive or has no uses left.
func (r *Repository) IncrementUses(ctx context.Context, code string) (bool, error) {
	query := `
        UPDATE coupons
        SET uses_used = uses_used + 1
        WHERE code = $1 AND active AND uses_used < max_uses
    `
	tag, err := r.db.Exec(ctx, query, code)
	if err != nil {
		zap.L().Error("can't increment coupon uses", zap.String("code", code), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Coupon, error) {
	query := `
        SELECT ` + columns + `
        FROM coupons
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		zap.L().Error("can't list coupons", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		coupon, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan coupon row", zap.Error(err))
			return nil, err
		}
		coupons = append(coupons, *coupon)
	}
	return coupons, rows.Err()
}

func (r *Repository) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	query := `
        UPDATE coupons
        SET active = $2
        WHERE code = $1
    `
	tag, err := r.db.Exec(ctx, query, code, active)
	if err != nil {
		zap.L().Error("can't update coupon", zap.String("code", code), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
