package purchaseservice

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type mocks struct {
	repo      *MockRepo
	products  *MockProductRepo
	wallet    *MockWallet
	ledger    *MockLedger
	provider  *MockProvider
	blacklist *MockBlacklist
}

func NewMock(t *testing.T) (*Service, mocks) {
	ctrl := gomock.NewController(t)
	m := mocks{
		repo:      NewMockRepo(ctrl),
		products:  NewMockProductRepo(ctrl),
		wallet:    NewMockWallet(ctrl),
		ledger:    NewMockLedger(ctrl),
		provider:  NewMockProvider(ctrl),
		blacklist: NewMockBlacklist(ctrl),
	}
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	}).AnyTimes()
	publisher := events.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.wallet.EXPECT().Lock(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) (context.Context, func(), error) {
		return ctx, func() {}, nil
	}).AnyTimes()

	service := New(Deps{
		Repo:      m.repo,
		Products:  m.products,
		Wallet:    m.wallet,
		Ledger:    m.ledger,
		Provider:  m.provider,
		Blacklist: m.blacklist,
		TxManager: txManager,
		Publisher: publisher,
	}, Config{ProviderTimeout: 50 * time.Millisecond})
	service.now = func() time.Time { return testNow }
	return service, m
}

func product() *domain.Product {
	return &domain.Product{ID: "wa", Name: "WhatsApp", Service: "wa", Country: 73, Price: dec("5"), Active: true}
}

func waitingOrder() *domain.Order {
	return &domain.Order{
		ID:               "o-1",
		UserID:           "42",
		TransactionID:    "t-1",
		ProductID:        "wa",
		Price:            dec("5"),
		ExternalNumberID: "act-1",
		PhoneNumber:      "5511999999999",
		State:            domain.OrderWaiting,
		Stage:            domain.StageProviderPending,
		ExpiresAt:        testNow.Add(5 * time.Minute),
		CreatedAt:        testNow.Add(-5 * time.Minute),
	}
}

// expectRefund wires the calls made by a refund of order that ends in state and stage.
func expectRefund(t *testing.T, m mocks, order *domain.Order, state domain.OrderState, stage domain.OrderStage) {
	m.repo.EXPECT().FindByID(gomock.Any(), order.ID).Return(order, nil)
	m.ledger.EXPECT().Commit(gomock.Any(), order.TransactionID, domain.StatusCancelled).Return(nil)
	m.wallet.EXPECT().Credit(gomock.Any(), order.UserID, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error) {
			assert.True(t, amount.Equal(order.Price))
			assert.Equal(t, domain.RefundTransactionID(order.TransactionID), txn.ID)
			assert.Equal(t, domain.KindRefund, txn.Kind)
			return &domain.Transaction{ID: txn.ID, UserID: userID, Amount: amount, Kind: txn.Kind}, nil
		})
	m.repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
		assert.Equal(t, state, o.State)
		assert.Equal(t, stage, o.Stage)
		return nil
	})
}

func TestPurchase(t *testing.T) {
	tests := []struct {
		name        string
		prepareMock func(t *testing.T, m mocks)
		expectedErr error
		check       func(t *testing.T, o *domain.Order)
	}{
		{
			name: "reserves number",
			prepareMock: func(t *testing.T, m mocks) {
				var created *domain.Order
				m.blacklist.EXPECT().CheckAllowed(gomock.Any(), "42").Return(nil)
				m.products.EXPECT().FindByID(gomock.Any(), "wa").Return(product(), nil)
				m.wallet.EXPECT().Debit(gomock.Any(), "42", gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, _ string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error) {
						assert.True(t, amount.Equal(dec("5")))
						assert.Equal(t, domain.KindPurchase, txn.Kind)
						assert.Equal(t, domain.StatusPending, txn.Status)
						return &txn, nil
					})
				m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
					assert.Equal(t, domain.StageReserved, o.Stage)
					c := *o
					created = &c
					return nil
				})
				m.provider.EXPECT().ReserveNumber(gomock.Any(), "wa", 73).Return(&domain.Activation{ID: "act-1", PhoneNumber: "5511999999999"}, nil)
				m.repo.EXPECT().FindByID(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, _ string) (*domain.Order, error) {
					return created, nil
				})
				m.repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, o *domain.Order) {
				assert.Equal(t, domain.StageProviderPending, o.Stage)
				assert.Equal(t, domain.OrderWaiting, o.State)
				assert.Equal(t, "act-1", o.ExternalNumberID)
				assert.Equal(t, testNow.Add(DefaultOrderTTL), o.ExpiresAt)
			},
		},
		{
			name: "blacklisted",
			prepareMock: func(t *testing.T, m mocks) {
				m.blacklist.EXPECT().CheckAllowed(gomock.Any(), "42").Return(domain.ErrUserBlacklisted)
			},
			expectedErr: domain.ErrUserBlacklisted,
		},
		{
			name: "inactive product",
			prepareMock: func(t *testing.T, m mocks) {
				p := product()
				p.Active = false
				m.blacklist.EXPECT().CheckAllowed(gomock.Any(), "42").Return(nil)
				m.products.EXPECT().FindByID(gomock.Any(), "wa").Return(p, nil)
			},
			expectedErr: domain.ErrProductNotFound,
		},
		{
			name: "insufficient funds never reaches provider",
			prepareMock: func(t *testing.T, m mocks) {
				m.blacklist.EXPECT().CheckAllowed(gomock.Any(), "42").Return(nil)
				m.products.EXPECT().FindByID(gomock.Any(), "wa").Return(product(), nil)
				m.wallet.EXPECT().Debit(gomock.Any(), "42", gomock.Any(), gomock.Any()).Return(nil, domain.ErrInsufficientFunds)
			},
			expectedErr: domain.ErrInsufficientFunds,
		},
		{
			name: "provider rejection refunds",
			prepareMock: func(t *testing.T, m mocks) {
				var created *domain.Order
				m.blacklist.EXPECT().CheckAllowed(gomock.Any(), "42").Return(nil)
				m.products.EXPECT().FindByID(gomock.Any(), "wa").Return(product(), nil)
				m.wallet.EXPECT().Debit(gomock.Any(), "42", gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)
				m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
					c := *o
					created = &c
					return nil
				})
				m.provider.EXPECT().ReserveNumber(gomock.Any(), "wa", 73).Return(nil, domain.ErrProviderRejected)
				m.repo.EXPECT().FindByID(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, _ string) (*domain.Order, error) {
					return created, nil
				})
				m.ledger.EXPECT().Commit(gomock.Any(), gomock.Any(), domain.StatusCancelled).Return(nil)
				m.wallet.EXPECT().Credit(gomock.Any(), "42", gomock.Any(), gomock.Any()).Return(&domain.Transaction{ID: "r-1", Amount: dec("5")}, nil)
				m.repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
					assert.Equal(t, domain.StageRefunded, o.Stage)
					assert.Equal(t, domain.OrderCancelled, o.State)
					return nil
				})
			},
			expectedErr: domain.ErrProviderRejected,
		},
		{
			name: "provider timeout refunds",
			prepareMock: func(t *testing.T, m mocks) {
				var created *domain.Order
				m.blacklist.EXPECT().CheckAllowed(gomock.Any(), "42").Return(nil)
				m.products.EXPECT().FindByID(gomock.Any(), "wa").Return(product(), nil)
				m.wallet.EXPECT().Debit(gomock.Any(), "42", gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)
				m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
					c := *o
					created = &c
					return nil
				})
				m.provider.EXPECT().ReserveNumber(gomock.Any(), "wa", 73).DoAndReturn(
					func(ctx context.Context, _ string, _ int) (*domain.Activation, error) {
						<-ctx.Done()
						return nil, ctx.Err()
					})
				m.repo.EXPECT().FindByID(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, _ string) (*domain.Order, error) {
					return created, nil
				})
				m.ledger.EXPECT().Commit(gomock.Any(), gomock.Any(), domain.StatusCancelled).Return(nil)
				m.wallet.EXPECT().Credit(gomock.Any(), "42", gomock.Any(), gomock.Any()).Return(&domain.Transaction{ID: "r-1", Amount: dec("5")}, nil)
				m.repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedErr: domain.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(t, m)
			order, err := service.Purchase(context.Background(), "42", "wa")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			tt.check(t, order)
		})
	}
}

func TestPollStatus(t *testing.T) {
	tests := []struct {
		name        string
		prepareMock func(t *testing.T, m mocks)
		expectedErr error
		state       domain.OrderState
		stage       domain.OrderStage
	}{
		{
			name: "terminal order is untouched",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.State, o.Stage = domain.OrderReceived, domain.StageFulfilled
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
			},
			state: domain.OrderReceived,
			stage: domain.StageFulfilled,
		},
		{
			name: "still waiting",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderWaiting}, nil)
			},
			state: domain.OrderWaiting,
			stage: domain.StageProviderPending,
		},
		{
			name: "code received",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil).Times(2)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderReceived, Code: "123456"}, nil)
				m.ledger.EXPECT().Commit(gomock.Any(), "t-1", domain.StatusCompleted).Return(nil)
				m.repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *domain.Order) error {
					assert.Equal(t, "123456", o.SMSCode)
					return nil
				})
				m.provider.EXPECT().ConfirmActivation(gomock.Any(), "act-1").Return(domain.ErrProviderUnavailable)
			},
			state: domain.OrderReceived,
			stage: domain.StageFulfilled,
		},
		{
			name: "provider cancelled",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderCancelled}, nil)
				expectRefund(t, m, waitingOrder(), domain.OrderCancelled, domain.StageCancelled)
			},
			state: domain.OrderCancelled,
			stage: domain.StageCancelled,
		},
		{
			name: "expired while waiting",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.ExpiresAt = testNow.Add(-time.Second)
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderWaiting}, nil)
				m.provider.EXPECT().CancelActivation(gomock.Any(), "act-1").Return(nil)
				expectRefund(t, m, o, domain.OrderExpired, domain.StageCancelled)
			},
			state: domain.OrderExpired,
			stage: domain.StageCancelled,
		},
		{
			name: "activation unknown at provider is refunded",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(nil, domain.ErrActivationGone)
				expectRefund(t, m, waitingOrder(), domain.OrderCancelled, domain.StageCancelled)
			},
			state: domain.OrderCancelled,
			stage: domain.StageCancelled,
		},
		{
			name: "rejected status check is refunded",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(nil, domain.ErrProviderRejected)
				expectRefund(t, m, waitingOrder(), domain.OrderCancelled, domain.StageCancelled)
			},
			state: domain.OrderCancelled,
			stage: domain.StageCancelled,
		},
		{
			name: "expired activation already gone at provider",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.ExpiresAt = testNow.Add(-time.Second)
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderWaiting}, nil)
				m.provider.EXPECT().CancelActivation(gomock.Any(), "act-1").Return(domain.ErrActivationGone)
				expectRefund(t, m, o, domain.OrderExpired, domain.StageCancelled)
			},
			state: domain.OrderExpired,
			stage: domain.StageCancelled,
		},
		{
			name: "expiry cancel refused is retried later",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.ExpiresAt = testNow.Add(-time.Second)
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderWaiting}, nil)
				m.provider.EXPECT().CancelActivation(gomock.Any(), "act-1").Return(domain.ErrProviderRejected)
			},
			expectedErr: domain.ErrProviderRejected,
		},
		{
			name: "provider timeout leaves order alone",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").DoAndReturn(
					func(ctx context.Context, _ string) (*domain.ActivationStatus, error) {
						<-ctx.Done()
						return nil, ctx.Err()
					})
			},
			expectedErr: domain.ErrProviderUnavailable,
		},
		{
			name: "stalled reservation is refunded",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.ExternalNumberID = ""
				o.Stage = domain.StageReserved
				o.CreatedAt = testNow.Add(-2 * DefaultReserveGrace)
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
				expectRefund(t, m, o, domain.OrderCancelled, domain.StageRefunded)
			},
			state: domain.OrderCancelled,
			stage: domain.StageRefunded,
		},
		{
			name: "fresh reservation is left to the purchase",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.ExternalNumberID = ""
				o.Stage = domain.StageReserved
				o.CreatedAt = testNow
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
			},
			state: domain.OrderWaiting,
			stage: domain.StageReserved,
		},
		{
			name: "cancel loses to committed receipt",
			prepareMock: func(t *testing.T, m mocks) {
				received := waitingOrder()
				received.State, received.Stage = domain.OrderReceived, domain.StageProviderPending
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().Status(gomock.Any(), "act-1").Return(&domain.ActivationStatus{State: domain.OrderCancelled}, nil)
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(received, nil)
			},
			expectedErr: domain.ErrAlreadyReceived,
		},
		{
			name: "unknown order",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(nil, nil)
			},
			expectedErr: domain.ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(t, m)
			order, err := service.PollStatus(context.Background(), "o-1")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.state, order.State)
			assert.Equal(t, tt.stage, order.Stage)
		})
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		prepareMock func(t *testing.T, m mocks)
		expectedErr error
		state       domain.OrderState
	}{
		{
			name:   "cancels and refunds",
			userID: "42",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().CancelActivation(gomock.Any(), "act-1").Return(nil)
				expectRefund(t, m, waitingOrder(), domain.OrderCancelled, domain.StageCancelled)
			},
			state: domain.OrderCancelled,
		},
		{
			name:   "foreign order",
			userID: "7",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
			},
			expectedErr: domain.ErrOrderNotFound,
		},
		{
			name:   "already received",
			userID: "42",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.State, o.Stage = domain.OrderReceived, domain.StageFulfilled
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
			},
			expectedErr: domain.ErrAlreadyReceived,
		},
		{
			name:   "already cancelled is a no-op",
			userID: "42",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.State, o.Stage = domain.OrderCancelled, domain.StageCancelled
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
			},
			state: domain.OrderCancelled,
		},
		{
			name:   "reservation in flight",
			userID: "42",
			prepareMock: func(t *testing.T, m mocks) {
				o := waitingOrder()
				o.ExternalNumberID = ""
				o.Stage = domain.StageReserved
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
			},
			expectedErr: domain.ErrOrderInProgress,
		},
		{
			name:   "activation gone at provider refunds",
			userID: "42",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().CancelActivation(gomock.Any(), "act-1").Return(domain.ErrActivationGone)
				expectRefund(t, m, waitingOrder(), domain.OrderCancelled, domain.StageCancelled)
			},
			state: domain.OrderCancelled,
		},
		{
			name:   "provider refuses",
			userID: "42",
			prepareMock: func(t *testing.T, m mocks) {
				m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
				m.provider.EXPECT().CancelActivation(gomock.Any(), "act-1").Return(domain.ErrProviderRejected)
			},
			expectedErr: domain.ErrProviderRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(t, m)
			order, err := service.Cancel(context.Background(), tt.userID, "o-1")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.state, order.State)
		})
	}
}

func TestRefundAfterCommittedCancel(t *testing.T) {
	service, m := NewMock(t)
	o := waitingOrder()
	m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(o, nil)
	m.ledger.EXPECT().Commit(gomock.Any(), "t-1", domain.StatusCancelled).Return(domain.ErrAlreadyTerminal)
	m.ledger.EXPECT().Find(gomock.Any(), "t-1").Return(&domain.Transaction{ID: "t-1", Status: domain.StatusCancelled}, nil)
	m.wallet.EXPECT().Credit(gomock.Any(), "42", gomock.Any(), gomock.Any()).Return(&domain.Transaction{ID: "r-1", Amount: dec("5")}, nil)
	m.repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	order, err := service.refund(context.Background(), o, domain.OrderCancelled, domain.StageCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCancelled, order.Stage)

	service, m = NewMock(t)
	m.repo.EXPECT().FindByID(gomock.Any(), "o-1").Return(waitingOrder(), nil)
	m.ledger.EXPECT().Commit(gomock.Any(), "t-1", domain.StatusCancelled).Return(domain.ErrAlreadyTerminal)
	m.ledger.EXPECT().Find(gomock.Any(), "t-1").Return(&domain.Transaction{ID: "t-1", Status: domain.StatusCompleted}, nil)

	_, err = service.refund(context.Background(), waitingOrder(), domain.OrderCancelled, domain.StageCancelled)
	assert.ErrorIs(t, err, domain.ErrAlreadyReceived)
}

func TestSaveProduct(t *testing.T) {
	service, m := NewMock(t)

	m.products.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)
	p, err := service.SaveProduct(context.Background(), domain.Product{ID: "tg", Service: "tg", Price: dec("3.333"), Active: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultCountry, p.Country)
	assert.Equal(t, "tg", p.Name)
	assert.True(t, p.Price.Equal(dec("3.33")))

	_, err = service.SaveProduct(context.Background(), domain.Product{ID: "tg", Service: "tg"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = service.SaveProduct(context.Background(), domain.Product{Service: "tg", Price: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
