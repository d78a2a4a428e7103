package transactionrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const columns = `id, user_id, kind, amount, status, booked, COALESCE(external_ref, ''), description, created_at, completed_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Status, &t.Booked,
		&t.ExternalRef, &t.Description, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanOne returns nil, nil when the row does not exist.
func scanOne(row pgx.Row) (*domain.Transaction, error) {
	txn, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return txn, err
}

func (r *Repository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
        INSERT INTO transactions (id, user_id, kind, amount, status, booked, external_ref, description, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
    `
	_, err := r.db.Exec(ctx, query, txn.ID, txn.UserID, txn.Kind, txn.Amount, txn.Status, txn.Booked,
		txn.ExternalRef, txn.Description, txn.CreatedAt, txn.CompletedAt)
	if err != nil {
		zap.L().Error("can't create transaction", zap.String("id", txn.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
        SELECT ` + columns + `
        FROM transactions
        WHERE id = $1
    `
	txn, err := scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		zap.L().Error("can't find transaction", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return txn, nil
}

// UpdateStatus moves a pending transaction to status. It returns nil, nil
// when the transaction is missing or no longer pending.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, completedAt time.Time) (*domain.Transaction, error) {
	query := `
        UPDATE transactions
        SET status = $2, completed_at = $3
        WHERE id = $1 AND status = 'pending'
        RETURNING ` + columns
	txn, err := scanOne(r.db.QueryRow(ctx, query, id, status, completedAt))
	if err != nil {
		zap.L().Error("can't update transaction status", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return txn, nil
}

// Book marks a pending, unbooked transaction as applied to the wallet.
func (r *Repository) Book(ctx context.Context, id string, status domain.TransactionStatus, completedAt *time.Time) (*domain.Transaction, error) {
	query := `
        UPDATE transactions
        SET booked = TRUE, status = $2, completed_at = $3
        WHERE id = $1 AND status = 'pending' AND NOT booked
        RETURNING ` + columns
	txn, err := scanOne(r.db.QueryRow(ctx, query, id, status, completedAt))
	if err != nil {
		zap.L().Error("can't book transaction", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return txn, nil
}

// ListByUser returns up to limit transactions of userID, newest first,
// strictly after the after cursor when it is set.
func (r *Repository) ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]domain.Transaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		query := `
            SELECT ` + columns + `
            FROM transactions
            WHERE user_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        `
		rows, err = r.db.Query(ctx, query, userID, limit)
	} else {
		query := `
            SELECT ` + columns + `
            FROM transactions
            WHERE user_id = $1 AND (created_at, id) < ($2, $3)
            ORDER BY created_at DESC, id DESC
            LIMIT $4
        `
		rows, err = r.db.Query(ctx, query, userID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		zap.L().Error("can't list transactions", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan transaction row", zap.Error(err))
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// SumBooked adds up every transaction already applied to the user's balance.
func (r *Repository) SumBooked(ctx context.Context, userID string) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM transactions
        WHERE user_id = $1 AND booked
    `
	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		zap.L().Error("can't sum transactions", zap.String("userID", userID), zap.Error(err))
		return decimal.Zero, err
	}
	return sum, nil
}
