// Package memory keeps every repository in process memory. Writes made
// inside TxManager.Begin are journaled and undone when the callback fails.
// The journal does not isolate concurrent writers: callers serialize
// conflicting writes with the wallet and coupon key locks.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

var errDuplicateKey = errors.New("duplicate key")

type Store struct {
	mu sync.Mutex

	wallets      map[string]domain.Wallet
	transactions map[string]domain.Transaction
	orders       map[string]domain.Order
	deposits     map[string]domain.Deposit
	coupons      map[string]domain.Coupon
	blacklist    map[string]domain.BlacklistEntry
	products     map[string]domain.Product
}

func NewStore() *Store {
	return &Store{
		wallets:      make(map[string]domain.Wallet),
		transactions: make(map[string]domain.Transaction),
		orders:       make(map[string]domain.Order),
		deposits:     make(map[string]domain.Deposit),
		coupons:      make(map[string]domain.Coupon),
		blacklist:    make(map[string]domain.BlacklistEntry),
		products:     make(map[string]domain.Product),
	}
}

type journalKey struct{}

type journal struct {
	undo []func()
}

func record(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, fn)
	}
}

// put stores v under key. Callers hold s.mu.
func put[T any](ctx context.Context, m map[string]T, key string, v T) {
	prev, existed := m[key]
	m[key] = v
	record(ctx, func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

// remove deletes key. Callers hold s.mu.
func remove[T any](ctx context.Context, m map[string]T, key string) bool {
	prev, existed := m[key]
	if !existed {
		return false
	}
	delete(m, key)
	record(ctx, func() { m[key] = prev })
	return true
}

type TxManager struct {
	store *Store
}

func NewTXManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin runs fn and reverts every write it made if fn fails or panics.
// Nested calls join the outer journal.
func (m *TxManager) Begin(ctx context.Context, fn pg.TransactionalFn) (err error) {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	defer func() {
		if p := recover(); p != nil {
			m.rollback(j)
			panic(p)
		}
		if err != nil {
			m.rollback(j)
		}
	}()
	return fn(context.WithValue(ctx, journalKey{}, j))
}

func (m *TxManager) rollback(j *journal) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
}

func (s *Store) Wallets() *WalletRepo           { return &WalletRepo{s: s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }
func (s *Store) Orders() *OrderRepo             { return &OrderRepo{s: s} }
func (s *Store) Deposits() *DepositRepo         { return &DepositRepo{s: s} }
func (s *Store) Coupons() *CouponRepo           { return &CouponRepo{s: s} }
func (s *Store) Blacklist() *BlacklistRepo      { return &BlacklistRepo{s: s} }
func (s *Store) Products() *ProductRepo         { return &ProductRepo{s: s} }
