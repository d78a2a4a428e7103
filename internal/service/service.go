package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/keylock"
	"github.com/GlebRadaev/smswallet/internal/repo"
	"github.com/GlebRadaev/smswallet/internal/service/authservice"
	"github.com/GlebRadaev/smswallet/internal/service/blacklistservice"
	"github.com/GlebRadaev/smswallet/internal/service/couponservice"
	"github.com/GlebRadaev/smswallet/internal/service/depositservice"
	"github.com/GlebRadaev/smswallet/internal/service/ledgerservice"
	"github.com/GlebRadaev/smswallet/internal/service/purchaseservice"
	"github.com/GlebRadaev/smswallet/internal/service/walletservice"
	pkgauth "github.com/GlebRadaev/smswallet/pkg/auth"
)

// NumberProvider is the number-rental adapter as seen by operators.
type NumberProvider interface {
	purchaseservice.Provider
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type Providers struct {
	Numbers  NumberProvider
	Payments depositservice.Gateway
}

type Config struct {
	JWTSecret string
	Auth      authservice.Config
	Purchase  purchaseservice.Config
	Deposit   depositservice.Config
}

type Services struct {
	AuthService      *authservice.Service
	WalletService    *walletservice.Service
	LedgerService    *ledgerservice.Service
	PurchaseService  *purchaseservice.Service
	DepositService   *depositservice.Service
	CouponService    *couponservice.Service
	BlacklistService *blacklistservice.Service
	Numbers          NumberProvider
	Tokens           *pkgauth.JWTService
}

func New(repos *repo.Repositories, providers Providers, publisher events.Publisher, cfg Config) *Services {
	locker := keylock.New()
	jwtService := pkgauth.NewJWTService(cfg.JWTSecret)

	ledgerService := ledgerservice.New(repos.TransactionRepo)
	walletService := walletservice.New(repos.WalletRepo, ledgerService, locker, repos.TxManager, publisher)
	blacklistService := blacklistservice.New(repos.BlacklistRepo, publisher)
	couponService := couponservice.New(repos.CouponRepo, walletService, locker, blacklistService, repos.TxManager, publisher)
	purchaseService := purchaseservice.New(purchaseservice.Deps{
		Repo:      repos.OrderRepo,
		Products:  repos.ProductRepo,
		Wallet:    walletService,
		Ledger:    ledgerService,
		Provider:  providers.Numbers,
		Blacklist: blacklistService,
		TxManager: repos.TxManager,
		Publisher: publisher,
	}, cfg.Purchase)
	depositService := depositservice.New(depositservice.Deps{
		Repo:      repos.DepositRepo,
		Wallet:    walletService,
		Ledger:    ledgerService,
		Gateway:   providers.Payments,
		Blacklist: blacklistService,
		TxManager: repos.TxManager,
		Publisher: publisher,
	}, cfg.Deposit)
	authService := authservice.New(cfg.Auth, &pkgauth.HashService{}, jwtService)

	return &Services{
		AuthService:      authService,
		WalletService:    walletService,
		LedgerService:    ledgerService,
		PurchaseService:  purchaseService,
		DepositService:   depositService,
		CouponService:    couponService,
		BlacklistService: blacklistService,
		Numbers:          providers.Numbers,
		Tokens:           jwtService,
	}
}
