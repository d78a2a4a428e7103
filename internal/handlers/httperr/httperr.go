// Package httperr maps domain errors to HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/pkg/utils"
)

var statuses = []struct {
	err    error
	status int
}{
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
	{domain.ErrCouponNotFound, http.StatusNotFound},
	{domain.ErrCouponInactive, http.StatusConflict},
	{domain.ErrCouponExhausted, http.StatusConflict},
	{domain.ErrCouponExpired, http.StatusGone},
	{domain.ErrProviderUnavailable, http.StatusServiceUnavailable},
	{domain.ErrProviderRejected, http.StatusBadGateway},
	{domain.ErrAlreadyReceived, http.StatusConflict},
	{domain.ErrAlreadyTerminal, http.StatusConflict},
	{domain.ErrOrderInProgress, http.StatusConflict},
	{domain.ErrCouponExists, http.StatusConflict},
	{domain.ErrTransactionConflict, http.StatusConflict},
	{domain.ErrUserBlacklisted, http.StatusForbidden},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrOrderNotFound, http.StatusNotFound},
	{domain.ErrDepositNotFound, http.StatusNotFound},
	{domain.ErrProductNotFound, http.StatusNotFound},
	{domain.ErrTransactionNotFound, http.StatusNotFound},
	{domain.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
}

// Status returns the HTTP status for err; unknown errors are 500.
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error body. Internal errors are not echoed.
func Respond(w http.ResponseWriter, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		utils.RespondWithError(w, status, "Internal server error")
		return
	}
	utils.RespondWithError(w, status, err.Error())
}
