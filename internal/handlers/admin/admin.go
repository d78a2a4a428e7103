package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/dto"
	"github.com/GlebRadaev/smswallet/internal/handlers/httperr"
	"github.com/GlebRadaev/smswallet/pkg/utils"
	"github.com/GlebRadaev/smswallet/pkg/validate"
)

type AuthService interface {
	Login(ctx context.Context, login, password string) (string, error)
	IssueUserToken(ctx context.Context, userID string) (string, error)
}

type WalletService interface {
	Adjust(ctx context.Context, userID string, amount decimal.Decimal, reason string) (*domain.Transaction, error)
	Reconcile(ctx context.Context, userID string) (*domain.Reconciliation, error)
	Ranking(ctx context.Context, limit int) ([]domain.Wallet, error)
}

type BlacklistService interface {
	Add(ctx context.Context, userID, reason string, duration time.Duration) (*domain.BlacklistEntry, error)
	Remove(ctx context.Context, userID string) error
	List(ctx context.Context) ([]domain.BlacklistEntry, error)
}

type NumberProvider interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type AdminHandler struct {
	authService      AuthService
	walletService    WalletService
	blacklistService BlacklistService
	numbers          NumberProvider
}

func New(authService AuthService, walletService WalletService, blacklistService BlacklistService, numbers NumberProvider) *AdminHandler {
	return &AdminHandler{
		authService:      authService,
		walletService:    walletService,
		blacklistService: blacklistService,
		numbers:          numbers,
	}
}

// Login godoc
//
//	@Summary		Operator login
//	@Description	Exchange operator credentials for an admin token.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.LoginRequestDTO	true	"Credentials"
//	@Success		200		{object}	dto.TokenResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Invalid credentials"
//	@Router			/api/admin/login [post]
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
	utils.RespondWithJSON(w, http.StatusOK, dto.TokenResponseDTO{Token: token})
}

// IssueToken godoc
//
//	@Summary		Issue a user token
//	@Description	Mint a user token that the bot presents on behalf of a chat user.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.IssueTokenRequestDTO	true	"User"
//	@Success		200		{object}	dto.TokenResponseDTO
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		422		{object}	utils.Response	"Validation failed"
//	@Router			/api/admin/tokens [post]
func (h *AdminHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req dto.IssueTokenRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}

	token, err := h.authService.IssueUserToken(r.Context(), req.UserID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.TokenResponseDTO{Token: token})
}

// AdjustBalance godoc
//
//	@Summary		Adjust a balance
//	@Description	Apply a signed manual correction. A negative amount cannot take the balance below zero.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.AdjustRequestDTO	true	"Adjustment"
//	@Success		200		{object}	dto.TransactionDTO
//	@Failure		402		{object}	utils.Response	"Insufficient funds"
//	@Failure		422		{object}	utils.Response	"Validation failed"
//	@Router			/api/admin/balance/adjust [post]
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustRequestDTO
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

	txn, err := h.walletService.Adjust(r.Context(), req.UserID, amount, req.Reason)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTransactionDTO(txn))
}

// Reconcile godoc
//
//	@Summary		Reconcile a wallet
//	@Description	Compare the stored balance with the sum of booked transactions.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	dto.ReconcileResponseDTO
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Router			/api/admin/users/{id}/reconcile [get]
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.walletService.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ReconcileResponseDTO{
		UserID:     rec.UserID,
		Balance:    rec.Balance.StringFixed(2),
		LedgerSum:  rec.LedgerSum.StringFixed(2),
		Consistent: rec.Consistent,
	})
}

// Ranking godoc
//
//	@Summary		Balance ranking
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Number of entries"
//	@Success		200		{array}		dto.RankingEntryDTO
//	@Failure		400		{object}	utils.Response	"Invalid limit"
//	@Router			/api/admin/ranking [get]
func (h *AdminHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	wallets, err := h.walletService.Ranking(r.Context(), limit)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	response := make([]dto.RankingEntryDTO, len(wallets))
	for i, wallet := range wallets {
		response[i] = dto.RankingEntryDTO{UserID: wallet.UserID, Balance: wallet.Balance.StringFixed(2)}
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetBlacklist godoc
//
//	@Summary		List blacklisted users
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.BlacklistEntryDTO
//	@Router			/api/admin/blacklist [get]
func (h *AdminHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blacklistService.List(r.Context())
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	response := make([]dto.BlacklistEntryDTO, len(entries))
	for i := range entries {
		response[i] = dto.NewBlacklistEntryDTO(&entries[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// AddBlacklist godoc
//
//	@Summary		Blacklist a user
//	@Description	Omit duration for a permanent block.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.BlacklistRequestDTO	true	"Entry"
//	@Success		201		{object}	dto.BlacklistEntryDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		422		{object}	utils.Response	"Validation failed"
//	@Router			/api/admin/blacklist [post]
func (h *AdminHandler) AddBlacklist(w http.ResponseWriter, r *http.Request) {
	var req dto.BlacklistRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}
	var duration time.Duration
	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid duration")
			return
		}
		duration = d
	}

	entry, err := h.blacklistService.Add(r.Context(), req.UserID, req.Reason, duration)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewBlacklistEntryDTO(entry))
}

// RemoveBlacklist godoc
//
//	@Summary		Remove a user from the blacklist
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			userID	path	string	true	"User id"
//	@Success		204
//	@Failure		404	{object}	utils.Response	"User not blacklisted"
//	@Router			/api/admin/blacklist/{userID} [delete]
func (h *AdminHandler) RemoveBlacklist(w http.ResponseWriter, r *http.Request) {
	if err := h.blacklistService.Remove(r.Context(), chi.URLParam(r, "userID")); err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusNoContent, nil)
}

// ProviderBalance godoc
//
//	@Summary		Number provider balance
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.ProviderBalanceResponseDTO
//	@Failure		503	{object}	utils.Response	"Provider unavailable"
//	@Router			/api/admin/provider/balance [get]
func (h *AdminHandler) ProviderBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.numbers.Balance(r.Context())
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ProviderBalanceResponseDTO{Balance: balance.StringFixed(2)})
}
