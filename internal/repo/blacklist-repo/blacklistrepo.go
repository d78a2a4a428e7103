package blacklistrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const columns = `user_id, reason, created_at, expires_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.BlacklistEntry, error) {
	var e domain.BlacklistEntry
	if err := row.Scan(&e.UserID, &e.Reason, &e.CreatedAt, &e.ExpiresAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert adds the user or replaces the existing entry.
func (r *Repository) Upsert(ctx context.Context, entry *domain.BlacklistEntry) error {
	query := `
        INSERT INTO blacklist (user_id, reason, created_at, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET reason = EXCLUDED.reason, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
    `
	_, err := r.db.Exec(ctx, query, entry.UserID, entry.Reason, entry.CreatedAt, entry.ExpiresAt)
	if err != nil {
		zap.L().Error("can't save blacklist entry", zap.String("userID", entry.UserID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID string) (bool, error) {
	query := `
        DELETE FROM blacklist
        WHERE user_id = $1
    `
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't delete blacklist entry", zap.String("userID", userID), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID string) (*domain.BlacklistEntry, error) {
	query := `
        SELECT ` + columns + `
        FROM blacklist
        WHERE user_id = $1
    `
	entry, err := scan(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find blacklist entry", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	query := `
        SELECT ` + columns + `
        FROM blacklist
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		zap.L().Error("can't list blacklist", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []domain.BlacklistEntry
	for rows.Next() {
		entry, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan blacklist row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
