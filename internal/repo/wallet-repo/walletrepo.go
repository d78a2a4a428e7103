package walletrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const columns = `user_id, balance, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) find(ctx context.Context, query, userID string) (*domain.Wallet, error) {
	wallet, err := scan(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find wallet", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (r *Repository) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `
        SELECT ` + columns + `
        FROM wallets
        WHERE user_id = $1
    `
	return r.find(ctx, query, userID)
}

// GetForUpdate locks the wallet row until the surrounding transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `
        SELECT ` + columns + `
        FROM wallets
        WHERE user_id = $1
        FOR UPDATE
    `
	return r.find(ctx, query, userID)
}

// Create opens an empty wallet. An existing wallet is returned unchanged.
func (r *Repository) Create(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `
        INSERT INTO wallets (user_id, balance)
        VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		zap.L().Error("can't create wallet", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return r.Get(ctx, userID)
}

func (r *Repository) UpdateBalance(ctx context.Context, userID string, balance decimal.Decimal) (*domain.Wallet, error) {
	query := `
        UPDATE wallets
        SET balance = $2, updated_at = now()
        WHERE user_id = $1
        RETURNING ` + columns
	wallet, err := scan(r.db.QueryRow(ctx, query, userID, balance))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		zap.L().Error("can't update wallet balance", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (r *Repository) Top(ctx context.Context, limit int) ([]domain.Wallet, error) {
	query := `
        SELECT ` + columns + `
        FROM wallets
        WHERE balance > 0
        ORDER BY balance DESC, user_id
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		zap.L().Error("can't get wallet ranking", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		wallet, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan wallet row", zap.Error(err))
			return nil, err
		}
		wallets = append(wallets, *wallet)
	}
	return wallets, rows.Err()
}
