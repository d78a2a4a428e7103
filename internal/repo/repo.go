package repo

import (
	"github.com/GlebRadaev/smswallet/internal/pg"
	blacklistrepo "github.com/GlebRadaev/smswallet/internal/repo/blacklist-repo"
	couponrepo "github.com/GlebRadaev/smswallet/internal/repo/coupon-repo"
	depositrepo "github.com/GlebRadaev/smswallet/internal/repo/deposit-repo"
	"github.com/GlebRadaev/smswallet/internal/repo/memory"
	orderrepo "github.com/GlebRadaev/smswallet/internal/repo/order-repo"
	productrepo "github.com/GlebRadaev/smswallet/internal/repo/product-repo"
	transactionrepo "github.com/GlebRadaev/smswallet/internal/repo/transaction-repo"
	walletrepo "github.com/GlebRadaev/smswallet/internal/repo/wallet-repo"
	"github.com/GlebRadaev/smswallet/internal/service/blacklistservice"
	"github.com/GlebRadaev/smswallet/internal/service/couponservice"
	"github.com/GlebRadaev/smswallet/internal/service/depositservice"
	"github.com/GlebRadaev/smswallet/internal/service/ledgerservice"
	"github.com/GlebRadaev/smswallet/internal/service/purchaseservice"
	"github.com/GlebRadaev/smswallet/internal/service/walletservice"
)

type Repositories struct {
	WalletRepo      walletservice.Repo
	TransactionRepo ledgerservice.Repo
	OrderRepo       purchaseservice.Repo
	ProductRepo     purchaseservice.ProductRepo
	DepositRepo     depositservice.Repo
	CouponRepo      couponservice.Repo
	BlacklistRepo   blacklistservice.Repo
	TxManager       pg.TXManager
}

// New builds the Postgres repositories. conn must route queries to the
// transaction opened by txManager.
func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		WalletRepo:      walletrepo.New(conn),
		TransactionRepo: transactionrepo.New(conn),
		OrderRepo:       orderrepo.New(conn),
		ProductRepo:     productrepo.New(conn),
		DepositRepo:     depositrepo.New(conn),
		CouponRepo:      couponrepo.New(conn),
		BlacklistRepo:   blacklistrepo.New(conn),
		TxManager:       txManager,
	}
}

func NewInMemory() *Repositories {
	store := memory.NewStore()
	return &Repositories{
		WalletRepo:      store.Wallets(),
		TransactionRepo: store.Transactions(),
		OrderRepo:       store.Orders(),
		ProductRepo:     store.Products(),
		DepositRepo:     store.Deposits(),
		CouponRepo:      store.Coupons(),
		BlacklistRepo:   store.Blacklist(),
		TxManager:       memory.NewTXManager(store),
	}
}
