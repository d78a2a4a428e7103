package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/repo"
)

type fakeNumbers struct {
	mu         sync.Mutex
	seq        int
	reserveErr error
	states     map[string]domain.ActivationStatus
	cancelled  map[string]bool
	gone       map[string]bool
}

func newFakeNumbers() *fakeNumbers {
	return &fakeNumbers{
		states:    map[string]domain.ActivationStatus{},
		cancelled: map[string]bool{},
		gone:      map[string]bool{},
	}
}

func (f *fakeNumbers) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone[id] = true
}

func (f *fakeNumbers) ReserveNumber(_ context.Context, _ string, _ int) (*domain.Activation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.seq++
	id := strconv.Itoa(f.seq)
	f.states[id] = domain.ActivationStatus{State: domain.OrderWaiting}
	return &domain.Activation{ID: id, PhoneNumber: "55119" + id}, nil
}

func (f *fakeNumbers) Status(_ context.Context, id string) (*domain.ActivationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[id] {
		return nil, fmt.Errorf("%w: NO_ACTIVATION", domain.ErrActivationGone)
	}
	st := f.states[id]
	return &st, nil
}

func (f *fakeNumbers) set(id string, st domain.ActivationStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = st
}

func (f *fakeNumbers) CancelActivation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[id] {
		return fmt.Errorf("%w: NO_ACTIVATION", domain.ErrActivationGone)
	}
	f.cancelled[id] = true
	f.states[id] = domain.ActivationStatus{State: domain.OrderCancelled}
	return nil
}

func (f *fakeNumbers) ConfirmActivation(context.Context, string) error { return nil }

func (f *fakeNumbers) Balance(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

type fakePayments struct {
	mu       sync.Mutex
	seq      int
	payments map[string]domain.PaymentStatus
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: map[string]domain.PaymentStatus{}}
}

func (f *fakePayments) CreatePixIntent(_ context.Context, amount decimal.Decimal, _, _ string) (*domain.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("pay-%d", f.seq)
	f.payments[id] = domain.PaymentStatus{ID: id, State: domain.PaymentPending, Amount: amount}
	return &domain.PaymentIntent{ID: id, Status: "pending", QRCode: "000201"}, nil
}

func (f *fakePayments) Status(_ context.Context, id string) (*domain.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.payments[id]
	return &st, nil
}

func (f *fakePayments) set(id string, state domain.PaymentState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.payments[id]
	st.State = state
	f.payments[id] = st
}

type env struct {
	*Services
	numbers  *fakeNumbers
	payments *fakePayments
}

func newEnv(t *testing.T) *env {
	t.Helper()
	numbers := newFakeNumbers()
	payments := newFakePayments()
	services := New(repo.NewInMemory(), Providers{Numbers: numbers, Payments: payments}, nil, Config{JWTSecret: "secret"})

	_, err := services.PurchaseService.SaveProduct(context.Background(), domain.Product{
		ID: "whatsapp", Name: "WhatsApp", Service: "wa", Price: decimal.RequireFromString("15.00"), Active: true,
	})
	require.NoError(t, err)
	return &env{Services: services, numbers: numbers, payments: payments}
}

func (e *env) seed(t *testing.T, userID, amount string) {
	t.Helper()
	_, err := e.WalletService.Adjust(context.Background(), userID, decimal.RequireFromString(amount), "seed")
	require.NoError(t, err)
}

func (e *env) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := e.WalletService.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (e *env) assertConsistent(t *testing.T, userID string) {
	t.Helper()
	rec, err := e.WalletService.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "balance %s ledger %s", rec.Balance, rec.LedgerSum)
}

func TestNew(t *testing.T) {
	services := New(repo.NewInMemory(), Providers{Numbers: newFakeNumbers(), Payments: newFakePayments()}, nil, Config{})

	assert.NotNil(t, services.AuthService)
	assert.NotNil(t, services.WalletService)
	assert.NotNil(t, services.LedgerService)
	assert.NotNil(t, services.PurchaseService)
	assert.NotNil(t, services.DepositService)
	assert.NotNil(t, services.CouponService)
	assert.NotNil(t, services.BlacklistService)
	assert.NotNil(t, services.Tokens)
}

func TestDebitOverBalanceLeavesBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "10.00")

	_, err := e.WalletService.Debit(ctx, "u1", decimal.RequireFromString("10.01"), domain.Transaction{Kind: domain.KindPurchase})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "10", e.balance(t, "u1").String())
	e.assertConsistent(t, "u1")
}

func TestPurchaseOverBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "10.00")

	_, err := e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "10", e.balance(t, "u1").String())

	page, err := e.LedgerService.History(ctx, "u1", domain.HistoryQuery{Limit: 50})
	require.NoError(t, err)
	for _, txn := range page.Items {
		assert.NotEqual(t, domain.KindPurchase, txn.Kind)
	}
	orders, err := e.PurchaseService.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	e.assertConsistent(t, "u1")
}

func TestDoubleCommitEqualsSingle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	txn, err := e.LedgerService.Record(ctx, &domain.Transaction{UserID: "u1", Kind: domain.KindDeposit, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	require.NoError(t, e.LedgerService.Commit(ctx, txn.ID, domain.StatusCompleted))
	first, err := e.LedgerService.Get(ctx, txn.ID)
	require.NoError(t, err)

	require.ErrorIs(t, e.LedgerService.Commit(ctx, txn.ID, domain.StatusCompleted), domain.ErrAlreadyTerminal)
	second, err := e.LedgerService.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	e.assertConsistent(t, "u1")
}

func TestConcurrentRedeemOfLastUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.CouponService.Create(ctx, domain.Coupon{Code: "LAST", Value: decimal.NewFromInt(3), MaxUses: 1})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.CouponService.Redeem(ctx, "LAST", fmt.Sprintf("u%d", i))
		}(i)
	}
	wg.Wait()

	var ok, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrCouponExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exhausted)
	total := e.balance(t, "u0").Add(e.balance(t, "u1"))
	assert.Equal(t, "3", total.String())
	e.assertConsistent(t, "u0")
	e.assertConsistent(t, "u1")
}

func TestPurchaseThenProviderCancelRestoresBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "20.00")

	order, err := e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, "5", e.balance(t, "u1").String())
	e.assertConsistent(t, "u1")

	e.numbers.set(order.ExternalNumberID, domain.ActivationStatus{State: domain.OrderCancelled})
	order, err = e.PurchaseService.PollStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, order.State)
	assert.Equal(t, "20", e.balance(t, "u1").String())

	_, err = e.PurchaseService.PollStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "20", e.balance(t, "u1").String())
	e.assertConsistent(t, "u1")
}

func TestPurchaseProviderFailureRefunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "15.00")
	e.numbers.reserveErr = domain.ErrProviderRejected

	_, err := e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
	require.ErrorIs(t, err, domain.ErrProviderRejected)
	assert.Equal(t, "15", e.balance(t, "u1").String())
	e.assertConsistent(t, "u1")
}

func TestVanishedActivationRefunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "30.00")

	polled, err := e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
	require.NoError(t, err)
	cancelled, err := e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
	require.NoError(t, err)
	assert.True(t, e.balance(t, "u1").IsZero())

	e.numbers.forget(polled.ExternalNumberID)
	e.numbers.forget(cancelled.ExternalNumberID)

	polled, err = e.PurchaseService.PollStatus(ctx, polled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCancelled, polled.Stage)
	assert.Equal(t, "15", e.balance(t, "u1").String())

	cancelled, err = e.PurchaseService.Cancel(ctx, "u1", cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.State)
	assert.Equal(t, "30", e.balance(t, "u1").String())

	_, err = e.PurchaseService.PollStatus(ctx, polled.ID)
	require.NoError(t, err)
	assert.Equal(t, "30", e.balance(t, "u1").String())
	e.assertConsistent(t, "u1")
}

func TestConcurrentPurchasesNeverOverdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "100.00")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 10)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFunds):
			insufficient++
		}
	}
	assert.Equal(t, 6, ok)
	assert.Equal(t, 4, insufficient)
	assert.Equal(t, "10", e.balance(t, "u1").String())

	orders, err := e.PurchaseService.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 6)
	e.assertConsistent(t, "u1")
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "10.00")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.WalletService.Debit(ctx, "u1", decimal.RequireFromString("0.75"),
				domain.Transaction{Kind: domain.KindPurchase, Status: domain.StatusCompleted})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 13, ok)
	assert.Equal(t, "0.25", e.balance(t, "u1").String())
	e.assertConsistent(t, "u1")
}

func TestReceivedOrderCannotBeCancelled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "u1", "15.00")

	order, err := e.PurchaseService.Purchase(ctx, "u1", "whatsapp")
	require.NoError(t, err)
	e.numbers.set(order.ExternalNumberID, domain.ActivationStatus{State: domain.OrderReceived, Code: "123456"})

	order, err = e.PurchaseService.PollStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "123456", order.SMSCode)

	_, err = e.PurchaseService.Cancel(ctx, "u1", order.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyReceived)
	assert.True(t, e.balance(t, "u1").IsZero())
	e.assertConsistent(t, "u1")
}

func TestDepositApprovedOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	deposit, err := e.DepositService.CreateDeposit(ctx, "u1", decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.True(t, e.balance(t, "u1").IsZero())

	e.payments.set(deposit.ExternalPaymentID, domain.PaymentApproved)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.DepositService.CheckDeposit(ctx, deposit.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = e.DepositService.CheckByExternalID(ctx, deposit.ExternalPaymentID)
		}()
	}
	wg.Wait()

	assert.Equal(t, "50", e.balance(t, "u1").String())
	got, err := e.DepositService.Get(ctx, "u1", deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositApproved, got.State)
	e.assertConsistent(t, "u1")
}

func TestRandomOperationsKeepBalanceReconciled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(7))
	users := []string{"a", "b", "c"}

	for i := 0; i < 5; i++ {
		_, err := e.CouponService.Create(ctx, domain.Coupon{Code: fmt.Sprintf("C%d", i), Value: decimal.NewFromInt(7), MaxUses: 2})
		require.NoError(t, err)
	}

	var orders, deposits []string
	for step := 0; step < 300; step++ {
		user := users[rnd.Intn(len(users))]
		switch rnd.Intn(8) {
		case 0:
			_, _ = e.WalletService.Adjust(ctx, user, decimal.NewFromInt(int64(rnd.Intn(40)-10)), "op")
		case 1:
			if o, err := e.PurchaseService.Purchase(ctx, user, "whatsapp"); err == nil {
				orders = append(orders, o.ID)
			}
		case 2:
			if len(orders) > 0 {
				id := orders[rnd.Intn(len(orders))]
				o, err := e.PurchaseService.PollStatus(ctx, id)
				if err == nil && o.ExternalNumberID != "" {
					states := []domain.OrderState{domain.OrderWaiting, domain.OrderReceived, domain.OrderCancelled}
					e.numbers.set(o.ExternalNumberID, domain.ActivationStatus{State: states[rnd.Intn(len(states))], Code: "1"})
				}
			}
		case 3:
			if len(orders) > 0 {
				id := orders[rnd.Intn(len(orders))]
				o, err := e.PurchaseService.PollStatus(ctx, id)
				if err == nil {
					_, _ = e.PurchaseService.Cancel(ctx, o.UserID, id)
				}
			}
		case 4:
			_, _ = e.CouponService.Redeem(ctx, fmt.Sprintf("C%d", rnd.Intn(5)), user)
		case 5:
			if d, err := e.DepositService.CreateDeposit(ctx, user, decimal.NewFromInt(int64(1+rnd.Intn(30)))); err == nil {
				deposits = append(deposits, d.ID)
			}
		case 6:
			if len(deposits) > 0 {
				id := deposits[rnd.Intn(len(deposits))]
				if d, err := e.DepositService.CheckDeposit(ctx, id); err == nil {
					states := []domain.PaymentState{domain.PaymentPending, domain.PaymentApproved, domain.PaymentRejected}
					e.payments.set(d.ExternalPaymentID, states[rnd.Intn(len(states))])
				}
			}
		case 7:
			_, _ = e.WalletService.Debit(ctx, user, decimal.NewFromInt(int64(1+rnd.Intn(20))), domain.Transaction{Kind: domain.KindPurchase, Status: domain.StatusCompleted})
		}

		for _, u := range users {
			assert.False(t, e.balance(t, u).IsNegative())
			e.assertConsistent(t, u)
		}
	}
}
