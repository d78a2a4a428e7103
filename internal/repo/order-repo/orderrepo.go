package orderrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const columns = `id, user_id, transaction_id, product_id, price, COALESCE(external_number_id, ''),
        COALESCE(phone_number, ''), COALESCE(sms_code, ''), state, stage, expires_at, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.TransactionID, &o.ProductID, &o.Price, &o.ExternalNumberID,
		&o.PhoneNumber, &o.SMSCode, &o.State, &o.Stage, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("rows iteration error", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (id, user_id, transaction_id, product_id, price, external_number_id,
            phone_number, sms_code, state, stage, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13)
    `
	_, err := r.db.Exec(ctx, query, order.ID, order.UserID, order.TransactionID, order.ProductID, order.Price,
		order.ExternalNumberID, order.PhoneNumber, order.SMSCode, order.State, order.Stage,
		order.ExpiresAt, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		zap.L().Error("can't save order", zap.String("orderID", order.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
        SELECT ` + columns + `
        FROM orders
        WHERE id = $1
    `
	order, err := scan(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order", zap.String("orderID", id), zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `
        SELECT ` + columns + `
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, userID)
}

// FindForProcessing returns the oldest orders still waiting on the provider.
func (r *Repository) FindForProcessing(ctx context.Context, limit uint32) ([]domain.Order, error) {
	query := `
        SELECT ` + columns + `
        FROM orders
        WHERE stage IN ('RESERVED', 'PROVIDER_PENDING')
        ORDER BY created_at
        LIMIT $1
    `
	return r.list(ctx, query, limit)
}

func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	query := `
        UPDATE orders
        SET external_number_id = NULLIF($2, ''), phone_number = NULLIF($3, ''), sms_code = NULLIF($4, ''),
            state = $5, stage = $6, expires_at = $7, updated_at = $8
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, order.ID, order.ExternalNumberID, order.PhoneNumber, order.SMSCode,
		order.State, order.Stage, order.ExpiresAt, order.UpdatedAt)
	if err != nil {
		zap.L().Error("can't update order", zap.String("orderID", order.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
