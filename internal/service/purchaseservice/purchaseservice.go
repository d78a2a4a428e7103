package purchaseservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/internal/pg"
)

const (
	DefaultProviderTimeout = 15 * time.Second
	DefaultOrderTTL        = 10 * time.Minute
	DefaultReserveGrace    = time.Minute
	DefaultCountry         = 73
)

type Repo interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	FindByUserID(ctx context.Context, userID string) ([]domain.Order, error)
	FindForProcessing(ctx context.Context, limit uint32) ([]domain.Order, error)
}

type ProductRepo interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	Upsert(ctx context.Context, product *domain.Product) error
}

type Wallet interface {
	Lock(ctx context.Context, userID string) (context.Context, func(), error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, txn domain.Transaction) (*domain.Transaction, error)
}

type Ledger interface {
	Commit(ctx context.Context, id string, status domain.TransactionStatus) error
	Find(ctx context.Context, id string) (*domain.Transaction, error)
}

// Provider rents phone numbers and reports the SMS received on them.
type Provider interface {
	ReserveNumber(ctx context.Context, service string, country int) (*domain.Activation, error)
	Status(ctx context.Context, activationID string) (*domain.ActivationStatus, error)
	CancelActivation(ctx context.Context, activationID string) error
	ConfirmActivation(ctx context.Context, activationID string) error
}

type Blacklist interface {
	CheckAllowed(ctx context.Context, userID string) error
}

type Config struct {
	ProviderTimeout time.Duration
	OrderTTL        time.Duration
	ReserveGrace    time.Duration
	Country         int
}

type Deps struct {
	Repo      Repo
	Products  ProductRepo
	Wallet    Wallet
	Ledger    Ledger
	Provider  Provider
	Blacklist Blacklist
	TxManager pg.TXManager
	Publisher events.Publisher
}

type Service struct {
	repo      Repo
	products  ProductRepo
	wallet    Wallet
	ledger    Ledger
	provider  Provider
	blacklist Blacklist
	txManager pg.TXManager
	publisher events.Publisher
	cfg       Config
	now       func() time.Time
}

func New(deps Deps, cfg Config) *Service {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = DefaultOrderTTL
	}
	if cfg.ReserveGrace <= 0 {
		cfg.ReserveGrace = DefaultReserveGrace
	}
	if cfg.Country <= 0 {
		cfg.Country = DefaultCountry
	}
	return &Service{
		repo:      deps.Repo,
		products:  deps.Products,
		wallet:    deps.Wallet,
		ledger:    deps.Ledger,
		provider:  deps.Provider,
		blacklist: deps.Blacklist,
		txManager: deps.TxManager,
		publisher: deps.Publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Purchase debits the product price and rents a number for it. When the
// provider fails the debit is refunded before the error is returned.
func (s *Service) Purchase(ctx context.Context, userID, productID string) (*domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	if err := s.blacklist.CheckAllowed(ctx, userID); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		zap.L().Error("failed to find product", zap.String("productID", productID), zap.Error(err))
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, domain.ErrProductNotFound
	}

	now := s.now()
	order := &domain.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		TransactionID: uuid.NewString(),
		ProductID:     product.ID,
		Price:         domain.Money(product.Price),
		State:         domain.OrderWaiting,
		Stage:         domain.StageReserved,
		ExpiresAt:     now.Add(s.cfg.OrderTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.reserve(ctx, order, product); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	activation, err := s.provider.ReserveNumber(callCtx, product.Service, product.Country)
	cancel()
	if err != nil {
		err = providerError(err)
		metrics.RecordOrder("reserve_failed")
		zap.L().Warn("number reservation failed, refunding",
			zap.String("orderID", order.ID), zap.String("userID", userID), zap.Error(err))
		if _, rerr := s.refund(context.WithoutCancel(ctx), order, domain.OrderCancelled, domain.StageRefunded); rerr != nil {
			zap.L().Error("failed to refund order", zap.String("orderID", order.ID), zap.Error(rerr))
		}
		return nil, err
	}

	order, err = s.attach(ctx, order, activation)
	if err != nil {
		return nil, err
	}
	metrics.RecordOrder("created")
	zap.L().Info("order created",
		zap.String("orderID", order.ID), zap.String("userID", userID), zap.String("activationID", activation.ID))
	return order, nil
}

func (s *Service) reserve(ctx context.Context, order *domain.Order, product *domain.Product) error {
	ctx, unlock, err := s.wallet.Lock(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("lock wallet %s: %w", order.UserID, err)
	}
	defer unlock()

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if _, err := s.wallet.Debit(ctx, order.UserID, order.Price, domain.Transaction{
			ID:          order.TransactionID,
			Kind:        domain.KindPurchase,
			Status:      domain.StatusPending,
			ExternalRef: order.ID,
			Description: product.Name,
		}); err != nil {
			return err
		}
		return s.repo.Create(ctx, order)
	})
	if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
		zap.L().Error("failed to reserve order", zap.String("orderID", order.ID), zap.Error(err))
	}
	return err
}

func (s *Service) attach(ctx context.Context, order *domain.Order, activation *domain.Activation) (*domain.Order, error) {
	ctx, unlock, err := s.wallet.Lock(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", order.UserID, err)
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrOrderNotFound
	}
	if current.IsTerminal() {
		zap.L().Warn("order settled before reservation returned, releasing number",
			zap.String("orderID", order.ID), zap.String("activationID", activation.ID))
		s.cancelQuietly(ctx, activation.ID)
		return current, nil
	}

	now := s.now()
	current.ExternalNumberID = activation.ID
	current.PhoneNumber = activation.PhoneNumber
	current.Stage = domain.StageProviderPending
	current.State = domain.OrderWaiting
	current.ExpiresAt = now.Add(s.cfg.OrderTTL)
	current.UpdatedAt = now
	if err := s.repo.Update(ctx, current); err != nil {
		zap.L().Error("failed to attach activation", zap.String("orderID", order.ID), zap.Error(err))
		return nil, err
	}
	return current, nil
}

// PollStatus advances a non-terminal order from the provider's view of its
// activation. Terminal orders are returned unchanged.
func (s *Service) PollStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.IsTerminal() {
		return order, nil
	}

	if order.ExternalNumberID == "" {
		if s.now().Sub(order.CreatedAt) < s.cfg.ReserveGrace {
			return order, nil
		}
		zap.L().Warn("reservation stalled, refunding", zap.String("orderID", order.ID))
		return s.refund(ctx, order, domain.OrderCancelled, domain.StageRefunded)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	status, err := s.provider.Status(callCtx, order.ExternalNumberID)
	cancel()
	if errors.Is(err, domain.ErrProviderRejected) {
		zap.L().Warn("provider rejected status check, refunding",
			zap.String("orderID", order.ID), zap.Error(err))
		return s.refund(ctx, order, domain.OrderCancelled, domain.StageCancelled)
	}
	if err != nil {
		return nil, providerError(err)
	}

	switch status.State {
	case domain.OrderReceived:
		return s.fulfil(ctx, order, status.Code)
	case domain.OrderCancelled:
		return s.refund(ctx, order, domain.OrderCancelled, domain.StageCancelled)
	}
	if !s.now().Before(order.ExpiresAt) {
		return s.expire(ctx, order)
	}
	return order, nil
}

func (s *Service) fulfil(ctx context.Context, order *domain.Order, code string) (*domain.Order, error) {
	ctx, unlock, err := s.wallet.Lock(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", order.UserID, err)
	}
	defer unlock()

	var (
		result    *domain.Order
		fulfilled bool
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrOrderNotFound
		}
		if current.IsTerminal() {
			result = current
			return nil
		}
		if err := s.ledger.Commit(ctx, current.TransactionID, domain.StatusCompleted); err != nil {
			return err
		}
		current.State = domain.OrderReceived
		current.Stage = domain.StageFulfilled
		current.SMSCode = code
		current.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		result, fulfilled = current, true
		return nil
	})
	if err != nil {
		zap.L().Error("failed to fulfil order", zap.String("orderID", order.ID), zap.Error(err))
		return nil, err
	}
	if !fulfilled {
		return result, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	if err := s.provider.ConfirmActivation(callCtx, result.ExternalNumberID); err != nil {
		zap.L().Warn("failed to confirm activation", zap.String("orderID", result.ID), zap.Error(err))
	}
	cancel()

	metrics.RecordOrder("fulfilled")
	zap.L().Info("order fulfilled", zap.String("orderID", result.ID), zap.String("userID", result.UserID))
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.OrderFulfilled,
		UserID:        result.UserID,
		TransactionID: result.TransactionID,
		Amount:        result.Price.Neg(),
		Reference:     result.ID,
	})
	return result, nil
}

func (s *Service) expire(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	err := s.provider.CancelActivation(callCtx, order.ExternalNumberID)
	cancel()
	if err != nil && !errors.Is(err, domain.ErrActivationGone) {
		zap.L().Warn("failed to cancel expired activation", zap.String("orderID", order.ID), zap.Error(err))
		return nil, providerError(err)
	}
	return s.refund(ctx, order, domain.OrderExpired, domain.StageCancelled)
}

// Cancel releases the user's number and refunds the price. Orders already
// cancelled or expired are returned unchanged. An activation the provider no
// longer knows is refunded without a confirmed cancel.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.State == domain.OrderReceived {
		return nil, domain.ErrAlreadyReceived
	}
	if order.IsTerminal() {
		return order, nil
	}
	if order.ExternalNumberID == "" {
		return nil, domain.ErrOrderInProgress
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	err = s.provider.CancelActivation(callCtx, order.ExternalNumberID)
	cancel()
	if errors.Is(err, domain.ErrActivationGone) {
		zap.L().Warn("activation gone at provider, refunding", zap.String("orderID", order.ID), zap.Error(err))
		err = nil
	}
	if err != nil {
		err = providerError(err)
		zap.L().Warn("provider refused cancellation", zap.String("orderID", order.ID), zap.Error(err))
		return nil, err
	}
	return s.refund(ctx, order, domain.OrderCancelled, domain.StageCancelled)
}

// refund cancels the purchase transaction and credits the price back under a
// refund id derived from it. An order that already reached RECEIVED is never
// refunded.
func (s *Service) refund(ctx context.Context, order *domain.Order, state domain.OrderState, stage domain.OrderStage) (*domain.Order, error) {
	ctx, unlock, err := s.wallet.Lock(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", order.UserID, err)
	}
	defer unlock()

	var (
		result   *domain.Order
		refunded *domain.Transaction
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrOrderNotFound
		}
		if current.State == domain.OrderReceived {
			return domain.ErrAlreadyReceived
		}
		if current.IsTerminal() {
			result = current
			return nil
		}

		err = s.ledger.Commit(ctx, current.TransactionID, domain.StatusCancelled)
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			txn, ferr := s.ledger.Find(ctx, current.TransactionID)
			if ferr != nil {
				return ferr
			}
			if txn != nil && txn.Status == domain.StatusCompleted {
				return domain.ErrAlreadyReceived
			}
		} else if err != nil {
			return err
		}

		refunded, err = s.wallet.Credit(ctx, current.UserID, current.Price, domain.Transaction{
			ID:          domain.RefundTransactionID(current.TransactionID),
			Kind:        domain.KindRefund,
			Status:      domain.StatusCompleted,
			ExternalRef: current.ID,
			Description: "refund " + current.ID,
		})
		if err != nil {
			return err
		}

		current.State = state
		current.Stage = stage
		current.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyReceived) {
			zap.L().Error("failed to refund order", zap.String("orderID", order.ID), zap.Error(err))
		}
		return nil, err
	}
	if refunded == nil {
		return result, nil
	}

	metrics.RecordOrder("refunded")
	zap.L().Info("order refunded",
		zap.String("orderID", result.ID), zap.String("state", string(result.State)), zap.String("stage", string(result.Stage)))
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.OrderRefunded,
		UserID:        result.UserID,
		TransactionID: refunded.ID,
		Amount:        refunded.Amount,
		Reference:     result.ID,
	})
	return result, nil
}

func (s *Service) cancelQuietly(ctx context.Context, activationID string) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ProviderTimeout)
	defer cancel()
	if err := s.provider.CancelActivation(callCtx, activationID); err != nil {
		zap.L().Warn("failed to release activation", zap.String("activationID", activationID), zap.Error(err))
	}
}

// Get returns the order when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		zap.L().Error("failed to get order", zap.String("orderID", orderID), zap.Error(err))
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to list orders", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return orders, nil
}

// PendingOrders returns up to limit non-terminal orders, oldest first.
func (s *Service) PendingOrders(ctx context.Context, limit uint32) ([]domain.Order, error) {
	return s.repo.FindForProcessing(ctx, limit)
}

func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.List(ctx, true)
	if err != nil {
		zap.L().Error("failed to list products", zap.Error(err))
		return nil, err
	}
	return products, nil
}

func (s *Service) AllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx, false)
}

func (s *Service) SaveProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.ID = strings.TrimSpace(product.ID)
	product.Service = strings.TrimSpace(product.Service)
	if product.ID == "" || product.Service == "" {
		return nil, fmt.Errorf("%w: product id and service are required", domain.ErrInvalidInput)
	}
	product.Price = domain.Money(product.Price)
	if !product.Price.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if product.Country == 0 {
		product.Country = s.cfg.Country
	}
	if product.Name == "" {
		product.Name = product.Service
	}
	if err := s.products.Upsert(ctx, &product); err != nil {
		zap.L().Error("failed to save product", zap.String("productID", product.ID), zap.Error(err))
		return nil, err
	}
	return &product, nil
}

func providerError(err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrProviderRejected) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}
