package productrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

var productColumns = []string{"id", "name", "service", "country", "price", "active"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("whatsapp").
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow("whatsapp", "WhatsApp", "wa", 73, "4.60", true))
	product, err := repo.FindByID(context.Background(), "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, "wa", product.Service)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("4.6")))

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("telegram").
		WillReturnError(pgx.ErrNoRows)
	product, err = repo.FindByID(context.Background(), "telegram")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestRepository_List(t *testing.T) {
	repo, mock := NewMock(t)

	for _, activeOnly := range []bool{true, false} {
		mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE active OR NOT $1 ORDER BY name")).
			WithArgs(activeOnly).
			WillReturnRows(pgxmock.NewRows(productColumns).AddRow("whatsapp", "WhatsApp", "wa", 73, "4.60", true))
		products, err := repo.List(context.Background(), activeOnly)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
		WithArgs(true).
		WillReturnError(errors.New("database error"))
	_, err := repo.List(context.Background(), true)
	assert.Error(t, err)
}

func TestRepository_Upsert(t *testing.T) {
	repo, mock := NewMock(t)
	product := &domain.Product{ID: "whatsapp", Name: "WhatsApp", Service: "wa", Country: 73, Price: decimal.NewFromInt(5), Active: true}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("whatsapp", "WhatsApp", "wa", 73, pgxmock.AnyArg(), true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	assert.NoError(t, repo.Upsert(context.Background(), product))
	assert.NoError(t, mock.ExpectationsWereMet())
}
