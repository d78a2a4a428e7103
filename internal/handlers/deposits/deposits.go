package deposits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/dto"
	"github.com/GlebRadaev/smswallet/internal/handlers/httperr"
	"github.com/GlebRadaev/smswallet/pkg/auth"
	"github.com/GlebRadaev/smswallet/pkg/utils"
	"github.com/GlebRadaev/smswallet/pkg/validate"
)

const paymentNotification = "payment"

type Service interface {
	CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Deposit, error)
	CheckDeposit(ctx context.Context, depositID string) (*domain.Deposit, error)
	CheckByExternalID(ctx context.Context, paymentID string) (*domain.Deposit, error)
	Get(ctx context.Context, userID, depositID string) (*domain.Deposit, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error)
}

type DepositHandler struct {
	depositService Service
}

func New(depositService Service) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
	}
}

// CreateDeposit godoc
//
//	@Summary		Start a PIX deposit
//	@Description	Create a PIX charge. The wallet is credited once the charge is approved.
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string						false	"Replay protection key"
//	@Param			request			body		dto.CreateDepositRequestDTO	true	"Deposit amount"
//	@Success		201				{object}	dto.DepositDTO
//	@Failure		400				{object}	utils.Response	"Invalid request body"
//	@Failure		401				{object}	utils.Response	"User not authorized"
//	@Failure		403				{object}	utils.Response	"User is blacklisted"
//	@Failure		422				{object}	utils.Response	"Amount out of range"
//	@Failure		503				{object}	utils.Response	"Payment gateway unavailable"
//	@Router			/api/user/deposits [post]
func (h *DepositHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.CreateDepositRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	deposit, err := h.depositService.CreateDeposit(r.Context(), userID, amount)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewDepositDTO(deposit))
}

// GetDeposits godoc
//
//	@Summary		List deposits
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.DepositDTO
//	@Success		204	{object}	utils.Response	"No deposits"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Router			/api/user/deposits [get]
func (h *DepositHandler) GetDeposits(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	deposits, err := h.depositService.ListByUser(r.Context(), userID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if len(deposits) == 0 {
		utils.RespondWithJSON(w, http.StatusNoContent, nil)
		return
	}

	response := make([]dto.DepositDTO, len(deposits))
	for i := range deposits {
		response[i] = dto.NewDepositDTO(&deposits[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetDeposit godoc
//
//	@Summary		Get a deposit
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Deposit id"
//	@Success		200	{object}	dto.DepositDTO
//	@Failure		404	{object}	utils.Response	"Deposit not found"
//	@Router			/api/user/deposits/{id} [get]
func (h *DepositHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	deposit, err := h.depositService.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewDepositDTO(deposit))
}

// CheckDeposit godoc
//
//	@Summary		Check a deposit now
//	@Description	Ask the gateway for the charge status. Safe to repeat; an approved charge is credited once.
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Deposit id"
//	@Success		200	{object}	dto.DepositDTO
//	@Failure		404	{object}	utils.Response	"Deposit not found"
//	@Failure		503	{object}	utils.Response	"Payment gateway unavailable"
//	@Router			/api/user/deposits/{id}/check [post]
func (h *DepositHandler) CheckDeposit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	deposit, err := h.depositService.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if deposit.State == domain.DepositPending {
		deposit, err = h.depositService.CheckDeposit(r.Context(), deposit.ID)
		if err != nil {
			httperr.Respond(w, err)
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewDepositDTO(deposit))
}

// Webhook godoc
//
//	@Summary		Payment gateway notification
//	@Description	Triggers a status check of the referenced payment. The body is only a hint; the state is always read back from the gateway.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WebhookRequestDTO	true	"Notification"
//	@Success		200		{object}	dto.StatusResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		503		{object}	utils.Response	"Payment gateway unavailable"
//	@Router			/api/webhooks/mercadopago [post]
func (h *DepositHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req dto.WebhookRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != paymentNotification || req.Data.ID == "" {
		utils.RespondWithJSON(w, http.StatusOK, dto.StatusResponseDTO{Status: "ignored"})
		return
	}

	_, err := h.depositService.CheckByExternalID(r.Context(), req.Data.ID)
	switch {
	case errors.Is(err, domain.ErrDepositNotFound):
		zap.L().Warn("webhook for unknown payment", zap.String("paymentID", req.Data.ID))
	case err != nil:
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.StatusResponseDTO{Status: "ok"})
}
