package productrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const columns = `id, name, service, country, price, active`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Service, &p.Country, &p.Price, &p.Active); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
        SELECT ` + columns + `
        FROM products
        WHERE id = $1
    `
	product, err := scan(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find product", zap.String("productID", id), zap.Error(err))
		return nil, err
	}
	return product, nil
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	query := `
        SELECT ` + columns + `
        FROM products
        WHERE active OR NOT $1
        ORDER BY name
    `
	rows, err := r.db.Query(ctx, query, activeOnly)
	if err != nil {
		zap.L().Error("can't list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan product row", zap.Error(err))
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (r *Repository) Upsert(ctx context.Context, product *domain.Product) error {
	query := `
        INSERT INTO products (id, name, service, country, price, active)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE
        SET name = EXCLUDED.name, service = EXCLUDED.service, country = EXCLUDED.country,
            price = EXCLUDED.price, active = EXCLUDED.active
    `
	_, err := r.db.Exec(ctx, query, product.ID, product.Name, product.Service, product.Country,
		product.Price, product.Active)
	if err != nil {
		zap.L().Error("can't save product", zap.String("productID", product.ID), zap.Error(err))
		return err
	}
	return nil
}
