package depositrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const columns = `id, user_id, transaction_id, external_payment_id, amount, qr_code, qr_code_base64,
        ticket_url, state, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.Deposit, error) {
	var d domain.Deposit
	err := row.Scan(&d.ID, &d.UserID, &d.TransactionID, &d.ExternalPaymentID, &d.Amount, &d.QRCode,
		&d.QRCodeBase64, &d.TicketURL, &d.State, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) findOne(ctx context.Context, query, arg string) (*domain.Deposit, error) {
	deposit, err := scan(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find deposit", zap.String("key", arg), zap.Error(err))
		return nil, err
	}
	return deposit, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Deposit, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't get deposits", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		deposit, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan deposit row", zap.Error(err))
			return nil, err
		}
		deposits = append(deposits, *deposit)
	}
	return deposits, rows.Err()
}

func (r *Repository) Create(ctx context.Context, deposit *domain.Deposit) error {
	query := `
        INSERT INTO deposits (id, user_id, transaction_id, external_payment_id, amount, qr_code,
            qr_code_base64, ticket_url, state, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.db.Exec(ctx, query, deposit.ID, deposit.UserID, deposit.TransactionID, deposit.ExternalPaymentID,
		deposit.Amount, deposit.QRCode, deposit.QRCodeBase64, deposit.TicketURL, deposit.State,
		deposit.CreatedAt, deposit.UpdatedAt)
	if err != nil {
		zap.L().Error("can't save deposit", zap.String("depositID", deposit.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Deposit, error) {
	query := `
        SELECT ` + columns + `
        FROM deposits
        WHERE id = $1
    `
	return r.findOne(ctx, query, id)
}

func (r *Repository) FindByExternalID(ctx context.Context, paymentID string) (*domain.Deposit, error) {
	query := `
        SELECT ` + columns + `
        FROM deposits
        WHERE external_payment_id = $1
    `
	return r.findOne(ctx, query, paymentID)
}

func (r *Repository) FindByUserID(ctx context.Context, userID string) ([]domain.Deposit, error) {
	query := `
        SELECT ` + columns + `
        FROM deposits
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, userID)
}

func (r *Repository) FindForProcessing(ctx context.Context, limit uint32) ([]domain.Deposit, error) {
	query := `
        SELECT ` + columns + `
        FROM deposits
        WHERE state = 'PENDING'
        ORDER BY created_at
        LIMIT $1
    `
	return r.list(ctx, query, limit)
}

func (r *Repository) Update(ctx context.Context, deposit *domain.Deposit) error {
	query := `
        UPDATE deposits
        SET state = $2, updated_at = $3
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, deposit.ID, deposit.State, deposit.UpdatedAt)
	if err != nil {
		zap.L().Error("can't update deposit", zap.String("depositID", deposit.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDepositNotFound
	}
	return nil
}
