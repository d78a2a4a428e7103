package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/smswallet/docs"
	adminhandlers "github.com/GlebRadaev/smswallet/internal/handlers/admin"
	couponshandlers "github.com/GlebRadaev/smswallet/internal/handlers/coupons"
	depositshandlers "github.com/GlebRadaev/smswallet/internal/handlers/deposits"
	ordershandlers "github.com/GlebRadaev/smswallet/internal/handlers/orders"
	wallethandlers "github.com/GlebRadaev/smswallet/internal/handlers/wallet"
	"github.com/GlebRadaev/smswallet/internal/idempotency"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/internal/service"
	"github.com/GlebRadaev/smswallet/pkg/auth"
)

type WalletHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	CreateOrder(w http.ResponseWriter, r *http.Request)
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	PollOrder(w http.ResponseWriter, r *http.Request)
	CancelOrder(w http.ResponseWriter, r *http.Request)
	GetProducts(w http.ResponseWriter, r *http.Request)
	GetAllProducts(w http.ResponseWriter, r *http.Request)
	SaveProduct(w http.ResponseWriter, r *http.Request)
}

type DepositHandler interface {
	CreateDeposit(w http.ResponseWriter, r *http.Request)
	GetDeposits(w http.ResponseWriter, r *http.Request)
	GetDeposit(w http.ResponseWriter, r *http.Request)
	CheckDeposit(w http.ResponseWriter, r *http.Request)
	Webhook(w http.ResponseWriter, r *http.Request)
}

type CouponHandler interface {
	Redeem(w http.ResponseWriter, r *http.Request)
	CreateCoupon(w http.ResponseWriter, r *http.Request)
	GetCoupons(w http.ResponseWriter, r *http.Request)
	DeactivateCoupon(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	IssueToken(w http.ResponseWriter, r *http.Request)
	AdjustBalance(w http.ResponseWriter, r *http.Request)
	Reconcile(w http.ResponseWriter, r *http.Request)
	Ranking(w http.ResponseWriter, r *http.Request)
	GetBlacklist(w http.ResponseWriter, r *http.Request)
	AddBlacklist(w http.ResponseWriter, r *http.Request)
	RemoveBlacklist(w http.ResponseWriter, r *http.Request)
	ProviderBalance(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	WalletHandler  WalletHandler
	OrderHandler   OrderHandler
	DepositHandler DepositHandler
	CouponHandler  CouponHandler
	AdminHandler   AdminHandler

	tokens      auth.TokenValidator
	idempotency idempotency.Store
}

// New wires HTTP handlers over s. A nil store disables Idempotency-Key replay.
func New(s *service.Services, store idempotency.Store) *Handlers {
	return &Handlers{
		WalletHandler:  wallethandlers.New(s.WalletService, s.LedgerService),
		OrderHandler:   ordershandlers.New(s.PurchaseService),
		DepositHandler: depositshandlers.New(s.DepositService),
		CouponHandler:  couponshandlers.New(s.CouponService),
		AdminHandler:   adminhandlers.New(s.AuthService, s.WalletService, s.BlacklistService, s.Numbers),
		tokens:         s.Tokens,
		idempotency:    store,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		metrics.Middleware,
	)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	r.Post("/api/webhooks/mercadopago", h.DepositHandler.Webhook)

	r.Route("/api/user", func(r chi.Router) {
		r.Use(auth.Middleware(h.tokens, auth.RoleUser))

		r.Get("/balance", h.WalletHandler.GetBalance)
		r.Get("/transactions", h.WalletHandler.GetTransactions)
		r.Get("/products", h.OrderHandler.GetProducts)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.OrderHandler.GetOrders)
			r.Get("/{id}", h.OrderHandler.GetOrder)
			r.Post("/{id}/poll", h.OrderHandler.PollOrder)
			r.Group(func(r chi.Router) {
				r.Use(h.idempotent)
				r.Post("/", h.OrderHandler.CreateOrder)
				r.Post("/{id}/cancel", h.OrderHandler.CancelOrder)
			})
		})
		r.Route("/deposits", func(r chi.Router) {
			r.Get("/", h.DepositHandler.GetDeposits)
			r.Get("/{id}", h.DepositHandler.GetDeposit)
			r.Post("/{id}/check", h.DepositHandler.CheckDeposit)
			r.With(h.idempotent).Post("/", h.DepositHandler.CreateDeposit)
		})
		r.With(h.idempotent).Post("/coupons/redeem", h.CouponHandler.Redeem)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.AdminHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.tokens, auth.RoleAdmin))

			r.Post("/tokens", h.AdminHandler.IssueToken)
			r.Post("/balance/adjust", h.AdminHandler.AdjustBalance)
			r.Get("/users/{id}/reconcile", h.AdminHandler.Reconcile)
			r.Get("/ranking", h.AdminHandler.Ranking)
			r.Get("/provider/balance", h.AdminHandler.ProviderBalance)

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", h.CouponHandler.GetCoupons)
				r.Post("/", h.CouponHandler.CreateCoupon)
				r.Post("/{code}/deactivate", h.CouponHandler.DeactivateCoupon)
			})
			r.Route("/blacklist", func(r chi.Router) {
				r.Get("/", h.AdminHandler.GetBlacklist)
				r.Post("/", h.AdminHandler.AddBlacklist)
				r.Delete("/{userID}", h.AdminHandler.RemoveBlacklist)
			})
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.OrderHandler.GetAllProducts)
				r.Put("/{id}", h.OrderHandler.SaveProduct)
			})
		})
	})

	return r
}

func (h *Handlers) idempotent(next http.Handler) http.Handler {
	if h.idempotency == nil {
		return next
	}
	return idempotency.Middleware(h.idempotency)(next)
}
