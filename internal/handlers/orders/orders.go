package orders

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/dto"
	"github.com/GlebRadaev/smswallet/internal/handlers/httperr"
	"github.com/GlebRadaev/smswallet/pkg/auth"
	"github.com/GlebRadaev/smswallet/pkg/utils"
	"github.com/GlebRadaev/smswallet/pkg/validate"
)

type Service interface {
	Purchase(ctx context.Context, userID, productID string) (*domain.Order, error)
	PollStatus(ctx context.Context, orderID string) (*domain.Order, error)
	Cancel(ctx context.Context, userID, orderID string) (*domain.Order, error)
	Get(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	Products(ctx context.Context) ([]domain.Product, error)
	AllProducts(ctx context.Context) ([]domain.Product, error)
	SaveProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateOrder godoc
//
//	@Summary		Buy a number
//	@Description	Debit the product price and rent a number from the provider. Failed rentals are refunded.
//	@Tags			Orders
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					false	"Replay protection key"
//	@Param			request			body		dto.PurchaseRequestDTO	true	"Product to buy"
//	@Success		201				{object}	dto.OrderDTO
//	@Failure		400				{object}	utils.Response	"Invalid request body"
//	@Failure		401				{object}	utils.Response	"User not authorized"
//	@Failure		402				{object}	utils.Response	"Insufficient funds"
//	@Failure		403				{object}	utils.Response	"User is blacklisted"
//	@Failure		404				{object}	utils.Response	"Product not found"
//	@Failure		422				{object}	utils.Response	"Validation failed"
//	@Failure		502				{object}	utils.Response	"Provider rejected the request"
//	@Failure		503				{object}	utils.Response	"Provider unavailable"
//	@Router			/api/user/orders [post]
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.PurchaseRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}

	order, err := h.orderService.Purchase(r.Context(), userID, req.ProductID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewOrderDTO(order))
}

// GetOrders godoc
//
//	@Summary		List orders
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.OrderDTO
//	@Success		204	{object}	utils.Response	"No orders"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/user/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	orders, err := h.orderService.ListByUser(r.Context(), userID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if len(orders) == 0 {
		utils.RespondWithJSON(w, http.StatusNoContent, nil)
		return
	}

	response := make([]dto.OrderDTO, len(orders))
	for i := range orders {
		response[i] = dto.NewOrderDTO(&orders[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetOrder godoc
//
//	@Summary		Get an order
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Order id"
//	@Success		200	{object}	dto.OrderDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Router			/api/user/orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	order, err := h.orderService.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderDTO(order))
}

// PollOrder godoc
//
//	@Summary		Refresh an order from the provider
//	@Description	Ask the provider for the activation status now instead of waiting for the background poller.
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Order id"
//	@Success		200	{object}	dto.OrderDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		503	{object}	utils.Response	"Provider unavailable"
//	@Router			/api/user/orders/{id}/poll [post]
func (h *OrderHandler) PollOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	order, err := h.orderService.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if !order.IsTerminal() {
		order, err = h.orderService.PollStatus(r.Context(), order.ID)
		if err != nil {
			httperr.Respond(w, err)
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderDTO(order))
}

// CancelOrder godoc
//
//	@Summary		Cancel an order
//	@Description	Release the number and refund the price. Orders that already received an SMS cannot be cancelled.
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Param			Idempotency-Key	header		string	false	"Replay protection key"
//	@Param			id				path		string	true	"Order id"
//	@Success		200				{object}	dto.OrderDTO
//	@Failure		401				{object}	utils.Response	"User not authorized"
//	@Failure		404				{object}	utils.Response	"Order not found"
//	@Failure		409				{object}	utils.Response	"SMS already received"
//	@Failure		503				{object}	utils.Response	"Provider unavailable"
//	@Router			/api/user/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	order, err := h.orderService.Cancel(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderDTO(order))
}

// GetProducts godoc
//
//	@Summary		List products on sale
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.ProductDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Router			/api/user/products [get]
func (h *OrderHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	h.respondProducts(w, r, h.orderService.Products)
}

// GetAllProducts godoc
//
//	@Summary		List all products
//	@Description	Includes inactive products.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.ProductDTO
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Router			/api/admin/products [get]
func (h *OrderHandler) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	h.respondProducts(w, r, h.orderService.AllProducts)
}

func (h *OrderHandler) respondProducts(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]domain.Product, error)) {
	products, err := list(r.Context())
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	response := make([]dto.ProductDTO, len(products))
	for i := range products {
		response[i] = dto.NewProductDTO(&products[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// SaveProduct godoc
//
//	@Summary		Create or update a product
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Product id"
//	@Param			request	body		dto.SaveProductRequestDTO	true	"Product"
//	@Success		200		{object}	dto.ProductDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		422		{object}	utils.Response	"Validation failed"
//	@Router			/api/admin/products/{id} [put]
func (h *OrderHandler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid price")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	product, err := h.orderService.SaveProduct(r.Context(), domain.Product{
		ID:      chi.URLParam(r, "id"),
		Name:    req.Name,
		Service: req.Service,
		Country: req.Country,
		Price:   price,
		Active:  active,
	})
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewProductDTO(product))
}
