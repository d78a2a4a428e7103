package walletservice

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/keylock"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

type decimalMatcher struct{ d decimal.Decimal }

func (m decimalMatcher) Matches(x any) bool {
	v, ok := x.(decimal.Decimal)
	return ok && v.Equal(m.d)
}

func (m decimalMatcher) String() string { return "is decimal " + m.d.String() }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decEq(s string) gomock.Matcher { return decimalMatcher{dec(s)} }

func NewMock(t *testing.T) (*Service, *MockRepo, *MockLedger) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	ledger := NewMockLedger(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	publisher := events.NewMockPublisher(ctrl)

	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	}).AnyTimes()
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	service := New(repo, ledger, keylock.New(), txManager, publisher)
	return service, repo, ledger
}

func TestCredit(t *testing.T) {
	service, repo, ledger := NewMock(t)

	tests := []struct {
		name        string
		amount      string
		txn         domain.Transaction
		prepareMock func()
		expectedErr error
		expectedID  string
	}{
		{
			name:   "appends a new transaction",
			amount: "15",
			txn:    domain.Transaction{ID: "t-1", Kind: domain.KindRefund, Status: domain.StatusCompleted},
			prepareMock: func() {
				ledger.EXPECT().Find(gomock.Any(), "t-1").Return(nil, nil)
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("10")}, nil)
				repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("25")).Return(&domain.Wallet{UserID: "42", Balance: dec("25")}, nil)
				ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
					assert.Equal(t, "42", txn.UserID)
					assert.True(t, txn.Amount.Equal(dec("15")))
					return txn, nil
				})
			},
			expectedID: "t-1",
		},
		{
			name:   "replayed id returns the booked transaction",
			amount: "15",
			txn:    domain.Transaction{ID: "t-1", Kind: domain.KindRefund, Status: domain.StatusCompleted},
			prepareMock: func() {
				ledger.EXPECT().Find(gomock.Any(), "t-1").Return(&domain.Transaction{
					ID: "t-1", UserID: "42", Amount: dec("15"), Booked: true, Status: domain.StatusCompleted,
				}, nil)
			},
			expectedID: "t-1",
		},
		{
			name:   "books a recorded deposit",
			amount: "50",
			txn:    domain.Transaction{ID: "d-1", Kind: domain.KindDeposit, Status: domain.StatusCompleted},
			prepareMock: func() {
				ledger.EXPECT().Find(gomock.Any(), "d-1").Return(&domain.Transaction{
					ID: "d-1", UserID: "42", Amount: dec("50"), Status: domain.StatusPending,
				}, nil)
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("0")}, nil)
				repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("50")).Return(&domain.Wallet{}, nil)
				ledger.EXPECT().Book(gomock.Any(), "d-1", domain.StatusCompleted).Return(&domain.Transaction{
					ID: "d-1", UserID: "42", Amount: dec("50"), Booked: true, Status: domain.StatusCompleted,
				}, nil)
			},
			expectedID: "d-1",
		},
		{
			name:   "recorded transaction already failed",
			amount: "50",
			txn:    domain.Transaction{ID: "d-2", Kind: domain.KindDeposit, Status: domain.StatusCompleted},
			prepareMock: func() {
				ledger.EXPECT().Find(gomock.Any(), "d-2").Return(&domain.Transaction{
					ID: "d-2", UserID: "42", Amount: dec("50"), Status: domain.StatusFailed,
				}, nil)
			},
			expectedErr: domain.ErrAlreadyTerminal,
		},
		{
			name:   "id reused with another amount",
			amount: "10",
			txn:    domain.Transaction{ID: "t-1"},
			prepareMock: func() {
				ledger.EXPECT().Find(gomock.Any(), "t-1").Return(&domain.Transaction{
					ID: "t-1", UserID: "42", Amount: dec("15"), Booked: true,
				}, nil)
			},
			expectedErr: domain.ErrTransactionConflict,
		},
		{
			name:        "zero amount",
			amount:      "0",
			prepareMock: func() {},
			expectedErr: domain.ErrInvalidAmount,
		},
		{
			name:   "opens a wallet on first credit",
			amount: "5",
			txn:    domain.Transaction{Kind: domain.KindCouponRedeem, Status: domain.StatusCompleted},
			prepareMock: func() {
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(nil, nil)
				repo.EXPECT().Create(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42"}, nil)
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("0")}, nil)
				repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("5")).Return(&domain.Wallet{}, nil)
				ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
					txn.ID = "generated"
					return txn, nil
				})
			},
			expectedID: "generated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			txn, err := service.Credit(context.Background(), "42", dec(tt.amount), tt.txn)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, txn)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, txn.ID)
		})
	}
}

func TestDebit(t *testing.T) {
	service, repo, ledger := NewMock(t)

	tests := []struct {
		name        string
		amount      string
		prepareMock func()
		expectedErr error
	}{
		{
			name:   "debits within balance",
			amount: "15",
			prepareMock: func() {
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("20")}, nil)
				repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("5")).Return(&domain.Wallet{}, nil)
				ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
					assert.True(t, txn.Amount.Equal(dec("-15")))
					return txn, nil
				})
			},
		},
		{
			name:   "insufficient funds leaves balance untouched",
			amount: "15",
			prepareMock: func() {
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("10")}, nil)
			},
			expectedErr: domain.ErrInsufficientFunds,
		},
		{
			name:   "exact balance",
			amount: "10",
			prepareMock: func() {
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("10")}, nil)
				repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("0")).Return(&domain.Wallet{}, nil)
				ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
					return txn, nil
				})
			},
		},
		{
			name:   "update failure",
			amount: "1",
			prepareMock: func() {
				repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("10")}, nil)
				repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("9")).Return(nil, errors.New("db error"))
			},
			expectedErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			_, err := service.Debit(context.Background(), "42", dec(tt.amount), domain.Transaction{Kind: domain.KindPurchase})
			if tt.expectedErr != nil {
				assert.EqualError(t, err, tt.expectedErr.Error())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAdjust(t *testing.T) {
	service, repo, ledger := NewMock(t)

	repo.EXPECT().GetForUpdate(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec("10")}, nil)
	repo.EXPECT().UpdateBalance(gomock.Any(), "42", decEq("7.5")).Return(&domain.Wallet{}, nil)
	ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
		assert.Equal(t, domain.KindManualAdjust, txn.Kind)
		assert.Equal(t, "chargeback", txn.Description)
		return txn, nil
	})

	txn, err := service.Adjust(context.Background(), "42", dec("-2.5"), "chargeback")
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(dec("-2.5")))
}

func TestGetBalance(t *testing.T) {
	service, repo, _ := NewMock(t)

	repo.EXPECT().Get(gomock.Any(), "42").Return(nil, nil)
	repo.EXPECT().Create(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: decimal.Zero}, nil)

	wallet, err := service.GetBalance(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())

	_, err = service.GetBalance(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestReconcile(t *testing.T) {
	service, repo, ledger := NewMock(t)

	tests := []struct {
		name       string
		balance    string
		ledgerSum  string
		consistent bool
	}{
		{name: "consistent", balance: "12.50", ledgerSum: "12.5", consistent: true},
		{name: "diverged", balance: "12.50", ledgerSum: "2.5", consistent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.EXPECT().Get(gomock.Any(), "42").Return(&domain.Wallet{UserID: "42", Balance: dec(tt.balance)}, nil)
			ledger.EXPECT().ReconcileBalance(gomock.Any(), "42").Return(dec(tt.ledgerSum), nil)

			rec, err := service.Reconcile(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.consistent, rec.Consistent)
		})
	}
}

func TestRanking(t *testing.T) {
	service, repo, _ := NewMock(t)

	repo.EXPECT().Top(gomock.Any(), 50).Return([]domain.Wallet{{UserID: "1", Balance: dec("99")}}, nil)
	wallets, err := service.Ranking(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)

	repo.EXPECT().Top(gomock.Any(), 10).Return(nil, errors.New("db error"))
	_, err = service.Ranking(context.Background(), 10)
	assert.Error(t, err)
}
