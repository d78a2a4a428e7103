package coupons

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
	Redeem(ctx context.Context, code, userID string) (*domain.Transaction, error)
	Create(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Deactivate(ctx context.Context, code string) error
}

type CouponHandler struct {
	couponService Service
}

func New(couponService Service) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
	}
}

// Redeem godoc
//
//	@Summary		Redeem a coupon
//	@Description	Credit the coupon value to the wallet. Each user may redeem a coupon once.
//	@Tags			Coupons
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					false	"Replay protection key"
//	@Param			request			body		dto.RedeemRequestDTO	true	"Coupon code"
//	@Success		200				{object}	dto.TransactionDTO
//	@Failure		400				{object}	utils.Response	"Invalid request body"
//	@Failure		401				{object}	utils.Response	"User not authorized"
//	@Failure		403				{object}	utils.Response	"User is blacklisted"
//	@Failure		404				{object}	utils.Response	"Coupon not found"
//	@Failure		409				{object}	utils.Response	"Coupon inactive or exhausted"
//	@Failure		410				{object}	utils.Response	"Coupon expired"
//	@Router			/api/user/coupons/redeem [post]
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.RedeemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}

	txn, err := h.couponService.Redeem(r.Context(), req.Code, userID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTransactionDTO(txn))
}

// CreateCoupon godoc
//
//	@Summary		Create a coupon
//	@Description	An empty code is replaced by a generated Luhn-valid numeric code.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateCouponRequestDTO	true	"Coupon"
//	@Success		201		{object}	dto.CouponDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		409		{object}	utils.Response	"Coupon already exists"
//	@Failure		422		{object}	utils.Response	"Validation failed"
//	@Router			/api/admin/coupons [post]
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid value")
		return
	}

	coupon, err := h.couponService.Create(r.Context(), domain.Coupon{
		Code:      req.Code,
		Value:     value,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewCouponDTO(coupon))
}

// GetCoupons godoc
//
//	@Summary		List coupons
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.CouponDTO
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Router			/api/admin/coupons [get]
func (h *CouponHandler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponService.List(r.Context())
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	response := make([]dto.CouponDTO, len(coupons))
	for i := range coupons {
		response[i] = dto.NewCouponDTO(&coupons[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// DeactivateCoupon godoc
//
//	@Summary		Deactivate a coupon
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			code	path	string	true	"Coupon code"
//	@Success		204
//	@Failure		404	{object}	utils.Response	"Coupon not found"
//	@Router			/api/admin/coupons/{code}/deactivate [post]
func (h *CouponHandler) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.couponService.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusNoContent, nil)
}
