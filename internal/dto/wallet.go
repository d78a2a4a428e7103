package dto

import (
	"time"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type BalanceResponseDTO struct {
	UserID  string `json:"user_id" example:"123456789"`
	Balance string `json:"balance" example:"42.50"`
}

type TransactionDTO struct {
	ID          string     `json:"id" example:"7d0f3c0e-2b8e-4a55-9d8e-2a6c1d3f4b5a"`
	Kind        string     `json:"kind" example:"purchase"`
	Amount      string     `json:"amount" example:"-15.00"`
	Status      string     `json:"status" example:"completed"`
	Description string     `json:"description,omitempty" example:"whatsapp number"`
	CreatedAt   time.Time  `json:"created_at" example:"2024-05-01T12:00:00Z"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type HistoryResponseDTO struct {
	Items      []TransactionDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type HistoryQueryDTO struct {
	Limit  int    `validate:"gte=0,lte=100"`
	Cursor string `validate:"max=256"`
}

type AdjustRequestDTO struct {
	UserID string `json:"user_id" validate:"required,max=64" example:"123456789"`
	Amount string `json:"amount" validate:"required,numeric" example:"-5.00"`
	Reason string `json:"reason" validate:"required,max=255" example:"chargeback"`
}

type ReconcileResponseDTO struct {
	UserID     string `json:"user_id" example:"123456789"`
	Balance    string `json:"balance" example:"42.50"`
	LedgerSum  string `json:"ledger_sum" example:"42.50"`
	Consistent bool   `json:"consistent" example:"true"`
}

func NewTransactionDTO(txn *domain.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          txn.ID,
		Kind:        string(txn.Kind),
		Amount:      txn.Amount.StringFixed(2),
		Status:      string(txn.Status),
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
		CompletedAt: txn.CompletedAt,
	}
}

func NewBalanceDTO(wallet *domain.Wallet) BalanceResponseDTO {
	return BalanceResponseDTO{UserID: wallet.UserID, Balance: wallet.Balance.StringFixed(2)}
}
