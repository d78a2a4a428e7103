package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

func TestTxManager_RollbackRestoresWrites(t *testing.T) {
	store := NewStore()
	txManager := NewTXManager(store)
	wallets := store.Wallets()
	coupons := store.Coupons()
	ctx := context.Background()

	_, err := wallets.Create(ctx, "42")
	require.NoError(t, err)
	require.NoError(t, coupons.Create(ctx, &domain.Coupon{Code: "A", Value: decimal.NewFromInt(1), MaxUses: 1, Active: true}))

	boom := errors.New("boom")
	err = txManager.Begin(ctx, func(ctx context.Context) error {
		if _, err := wallets.UpdateBalance(ctx, "42", decimal.NewFromInt(10)); err != nil {
			return err
		}
		if _, err := wallets.Create(ctx, "43"); err != nil {
			return err
		}
		if ok, err := coupons.IncrementUses(ctx, "A"); err != nil || !ok {
			return errors.New("increment failed")
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	w, err := wallets.Get(ctx, "42")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	w, err = wallets.Get(ctx, "43")
	require.NoError(t, err)
	assert.Nil(t, w)

	c, err := coupons.FindByCode(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsesUsed)
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	store := NewStore()
	txManager := NewTXManager(store)
	blacklist := store.Blacklist()
	ctx := context.Background()

	err := txManager.Begin(ctx, func(ctx context.Context) error {
		err := txManager.Begin(ctx, func(ctx context.Context) error {
			return blacklist.Upsert(ctx, &domain.BlacklistEntry{UserID: "42"})
		})
		require.NoError(t, err)
		return errors.New("outer failed")
	})
	require.Error(t, err)

	entry, err := blacklist.FindByUserID(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestTxManager_CommitKeepsWrites(t *testing.T) {
	store := NewStore()
	txManager := NewTXManager(store)
	blacklist := store.Blacklist()
	ctx := context.Background()
	require.NoError(t, blacklist.Upsert(ctx, &domain.BlacklistEntry{UserID: "42"}))

	err := txManager.Begin(ctx, func(ctx context.Context) error {
		ok, err := blacklist.Delete(ctx, "42")
		assert.True(t, ok)
		return err
	})
	require.NoError(t, err)

	entries, err := blacklist.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransactionRepo_Transitions(t *testing.T) {
	repo := NewStore().Transactions()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &domain.Transaction{ID: "t-1", UserID: "42", Amount: decimal.NewFromInt(50), Status: domain.StatusPending, CreatedAt: now}))
	assert.Error(t, repo.Create(ctx, &domain.Transaction{ID: "t-1"}))

	booked, err := repo.Book(ctx, "t-1", domain.StatusCompleted, &now)
	require.NoError(t, err)
	require.NotNil(t, booked)
	assert.True(t, booked.Booked)

	again, err := repo.Book(ctx, "t-1", domain.StatusCompleted, &now)
	require.NoError(t, err)
	assert.Nil(t, again)

	updated, err := repo.UpdateStatus(ctx, "t-1", domain.StatusCancelled, now)
	require.NoError(t, err)
	assert.Nil(t, updated)

	sum, err := repo.SumBooked(ctx, "42")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(50)))
}

func TestTransactionRepo_ListByUserPages(t *testing.T) {
	repo := NewStore().Transactions()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Create(ctx, &domain.Transaction{ID: id, UserID: "42", CreatedAt: base.Add(time.Duration(i%2) * time.Minute)}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Transaction{ID: "x", UserID: "7", CreatedAt: base}))

	first, err := repo.ListByUser(ctx, "42", nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, []string{"d", "b"}, []string{first[0].ID, first[1].ID})

	last := first[1]
	rest, err := repo.ListByUser(ctx, "42", &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, []string{"c", "a"}, []string{rest[0].ID, rest[1].ID})
}

func TestWalletRepo_Top(t *testing.T) {
	store := NewStore()
	wallets := store.Wallets()
	ctx := context.Background()

	for id, balance := range map[string]int64{"a": 5, "b": 0, "c": 9, "d": 5} {
		_, err := wallets.Create(ctx, id)
		require.NoError(t, err)
		_, err = wallets.UpdateBalance(ctx, id, decimal.NewFromInt(balance))
		require.NoError(t, err)
	}

	top, err := wallets.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].UserID)
	assert.Equal(t, "a", top[1].UserID)

	_, err = wallets.UpdateBalance(ctx, "a", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestOrderAndDepositRepos_Processing(t *testing.T) {
	store := NewStore()
	orders := store.Orders()
	deposits := store.Deposits()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, orders.Create(ctx, &domain.Order{ID: "o-1", UserID: "42", Stage: domain.StageReserved, CreatedAt: now}))
	require.NoError(t, orders.Create(ctx, &domain.Order{ID: "o-2", UserID: "42", Stage: domain.StageFulfilled, CreatedAt: now}))
	assert.ErrorIs(t, orders.Update(ctx, &domain.Order{ID: "o-9"}), domain.ErrOrderNotFound)

	pending, err := orders.FindForProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "o-1", pending[0].ID)

	require.NoError(t, deposits.Create(ctx, &domain.Deposit{ID: "d-1", ExternalPaymentID: "pay-1", State: domain.DepositPending}))
	found, err := deposits.FindByExternalID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1", found.ID)

	require.NoError(t, deposits.Update(ctx, &domain.Deposit{ID: "d-1", State: domain.DepositApproved}))
	open, err := deposits.FindForProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}
