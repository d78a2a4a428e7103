package wallet

import (
	"context"
	"net/http"
	"strconv"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/dto"
	"github.com/GlebRadaev/smswallet/internal/handlers/httperr"
	"github.com/GlebRadaev/smswallet/pkg/auth"
	"github.com/GlebRadaev/smswallet/pkg/utils"
	"github.com/GlebRadaev/smswallet/pkg/validate"
)

type WalletService interface {
	GetBalance(ctx context.Context, userID string) (*domain.Wallet, error)
}

type LedgerService interface {
	History(ctx context.Context, userID string, q domain.HistoryQuery) (*domain.HistoryPage, error)
}

type WalletHandler struct {
	walletService WalletService
	ledgerService LedgerService
}

func New(walletService WalletService, ledgerService LedgerService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		ledgerService: ledgerService,
	}
}

// GetBalance godoc
//
//	@Summary		Get wallet balance
//	@Description	Return the current wallet balance of the authenticated user. The wallet is opened on first access.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/user/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	wallet, err := h.walletService.GetBalance(r.Context(), userID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewBalanceDTO(wallet))
}

// GetTransactions godoc
//
//	@Summary		List transactions
//	@Description	Page through the user's transactions, newest first. Pass next_cursor back as cursor to continue.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int		false	"Page size (max 100)"
//	@Param			cursor	query		string	false	"Cursor from the previous page"
//	@Success		200		{object}	dto.HistoryResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid query"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		422		{object}	utils.Response	"Invalid cursor"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/user/transactions [get]
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	query := dto.HistoryQueryDTO{Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = limit
	}
	if errs := validate.Struct(query); errs != nil {
		utils.RespondWithValidation(w, errs)
		return
	}

	page, err := h.ledgerService.History(r.Context(), userID, domain.HistoryQuery{
		Limit:  query.Limit,
		Cursor: query.Cursor,
	})
	if err != nil {
		httperr.Respond(w, err)
		return
	}

	response := dto.HistoryResponseDTO{
		Items:      make([]dto.TransactionDTO, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		response.Items[i] = dto.NewTransactionDTO(&page.Items[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}
