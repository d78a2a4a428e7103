// Package mercadopago creates PIX charges through the Mercado Pago payments
// API and reads back their status.
package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/pkg/clients"
)

const (
	DefaultBaseURL    = "https://api.mercadopago.com"
	DefaultPayerEmail = "cliente@smswallet.app"
	providerName      = "mercadopago"
)

type Config struct {
	BaseURL     string
	AccessToken string
	PayerEmail  string
	Timeout     time.Duration
	RPS         float64
}

type Client struct {
	http       *clients.HTTPClient
	payerEmail string
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PayerEmail == "" {
		cfg.PayerEmail = DefaultPayerEmail
	}
	return &Client{
		http:       clients.NewHTTPClient(cfg.BaseURL, cfg.Timeout, cfg.RPS).SetAuthToken(cfg.AccessToken),
		payerEmail: cfg.PayerEmail,
	}
}

type payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type paymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Payer             payer   `json:"payer"`
}

type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	TransactionAmount  float64     `json:"transaction_amount"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreatePixIntent opens a PIX charge. Retries with the same idempotencyKey
// return the charge created by the first attempt.
func (c *Client) CreatePixIntent(ctx context.Context, amount decimal.Decimal, description, idempotencyKey string) (*domain.PaymentIntent, error) {
	resp, err := c.http.Do(ctx, http.MethodPost, "/v1/payments", func(r *resty.Request) {
		r.SetHeader("X-Idempotency-Key", idempotencyKey).
			SetBody(paymentRequest{
				TransactionAmount: domain.Money(amount).InexactFloat64(),
				Description:       description,
				PaymentMethodID:   "pix",
				Payer: payer{
					Email:     c.payerEmail,
					FirstName: "Cliente",
					LastName:  "SMS",
				},
			})
	})
	if err != nil {
		metrics.RecordProviderRequest(providerName, "error")
		return nil, mapError("create payment", err)
	}
	out, err := decode(resp)
	if err != nil || out.ID == "" {
		metrics.RecordProviderRequest(providerName, "error")
		return nil, fmt.Errorf("%w: mercadopago create payment: no payment id in reply", domain.ErrProviderUnavailable)
	}
	metrics.RecordProviderRequest(providerName, "ok")

	data := out.PointOfInteraction.TransactionData
	return &domain.PaymentIntent{
		ID:           out.ID.String(),
		Status:       out.Status,
		QRCode:       data.QRCode,
		QRCodeBase64: data.QRCodeBase64,
		TicketURL:    data.TicketURL,
	}, nil
}

// Status reads the charge and folds the gateway status into pending,
// approved or rejected.
func (c *Client) Status(ctx context.Context, paymentID string) (*domain.PaymentStatus, error) {
	resp, err := c.http.Do(ctx, http.MethodGet, "/v1/payments/{id}", func(r *resty.Request) {
		r.SetPathParam("id", paymentID)
	})
	if err != nil {
		metrics.RecordProviderRequest(providerName, "error")
		return nil, mapError("get payment", err)
	}
	out, err := decode(resp)
	if err != nil {
		metrics.RecordProviderRequest(providerName, "error")
		return nil, err
	}
	metrics.RecordProviderRequest(providerName, "ok")

	return &domain.PaymentStatus{
		ID:     paymentID,
		State:  State(out.Status),
		Detail: out.StatusDetail,
		Amount: domain.Money(decimal.NewFromFloat(out.TransactionAmount)),
	}, nil
}

func decode(resp *resty.Response) (*paymentResponse, error) {
	var out paymentResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: mercadopago: decode reply: %v", domain.ErrProviderUnavailable, err)
	}
	return &out, nil
}

func State(status string) domain.PaymentState {
	switch status {
	case "approved":
		return domain.PaymentApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return domain.PaymentRejected
	}
	return domain.PaymentPending
}

func mapError(action string, err error) error {
	if errors.Is(err, clients.ErrRejected) {
		return fmt.Errorf("%w: mercadopago %s: %v", domain.ErrProviderRejected, action, err)
	}
	return fmt.Errorf("%w: mercadopago %s: %v", domain.ErrProviderUnavailable, action, err)
}
