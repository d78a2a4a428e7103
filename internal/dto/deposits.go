package dto

import (
	"time"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type CreateDepositRequestDTO struct {
	Amount string `json:"amount" validate:"required,numeric" example:"50.00"`
}

type DepositDTO struct {
	ID           string    `json:"id" example:"c1d7a4b2-6e0f-4f0b-9a3c-1b2d3e4f5a6b"`
	Amount       string    `json:"amount" example:"50.00"`
	State        string    `json:"state" example:"PENDING"`
	QRCode       string    `json:"qr_code,omitempty" example:"00020126580014br.gov.bcb.pix..."`
	QRCodeBase64 string    `json:"qr_code_base64,omitempty"`
	TicketURL    string    `json:"ticket_url,omitempty" example:"https://www.mercadopago.com.br/payments/123/ticket"`
	CreatedAt    time.Time `json:"created_at" example:"2024-05-01T12:00:00Z"`
}

// WebhookRequestDTO is the notification body posted by the payment gateway.
type WebhookRequestDTO struct {
	Type   string `json:"type" example:"payment"`
	Action string `json:"action" example:"payment.updated"`
	Data   struct {
		ID string `json:"id" example:"1234567890"`
	} `json:"data"`
}

func NewDepositDTO(deposit *domain.Deposit) DepositDTO {
	return DepositDTO{
		ID:           deposit.ID,
		Amount:       deposit.Amount.StringFixed(2),
		State:        string(deposit.State),
		QRCode:       deposit.QRCode,
		QRCodeBase64: deposit.QRCodeBase64,
		TicketURL:    deposit.TicketURL,
		CreatedAt:    deposit.CreatedAt,
	}
}

type StatusResponseDTO struct {
	Status string `json:"status" example:"ok"`
}
