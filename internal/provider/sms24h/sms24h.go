// Package sms24h talks to the SMS24H number rental handler API. Replies are
// plain text tokens such as ACCESS_NUMBER:<id>:<phone> or STATUS_OK:<code>.
package sms24h

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/metrics"
	"github.com/GlebRadaev/smswallet/pkg/clients"
)

const (
	DefaultBaseURL = "https://api.sms24h.org"
	handlerPath    = "/stubs/handler_api"
	providerName   = "sms24h"
)

// SetStatus codes.
const (
	StatusReady   = 1
	StatusRetry   = 3
	StatusConfirm = 6
	StatusCancel  = 8
)

// Replies that mean the activation id is unknown to the provider.
var gone = map[string]struct{}{
	"NO_ACTIVATION":       {},
	"WRONG_ACTIVATION_ID": {},
}

// Replies that mean the request itself was refused rather than lost.
var rejections = map[string]struct{}{
	"NO_NUMBERS":          {},
	"NO_BALANCE":          {},
	"BAD_KEY":             {},
	"BAD_ACTION":          {},
	"BAD_SERVICE":         {},
	"BAD_STATUS":          {},
	"EARLY_CANCEL_DENIED": {},
	"BANNED":              {},
}

type Config struct {
	BaseURL  string
	APIKey   string
	Operator string
	Timeout  time.Duration
	RPS      float64
}

type Client struct {
	http     *clients.HTTPClient
	apiKey   string
	operator string
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Operator == "" {
		cfg.Operator = "any"
	}
	return &Client{
		http:     clients.NewHTTPClient(cfg.BaseURL, cfg.Timeout, cfg.RPS),
		apiKey:   cfg.APIKey,
		operator: cfg.Operator,
	}
}

func (c *Client) call(ctx context.Context, action string, params map[string]string) (string, error) {
	resp, err := c.http.Do(ctx, http.MethodGet, handlerPath, func(r *resty.Request) {
		r.SetQueryParam("api_key", c.apiKey).
			SetQueryParam("action", action).
			SetQueryParams(params)
	})
	if err != nil {
		metrics.RecordProviderRequest(providerName, "error")
		return "", mapError(action, err)
	}
	reply := strings.TrimSpace(resp.String())
	token, _, _ := strings.Cut(reply, ":")
	if _, ok := gone[token]; ok {
		metrics.RecordProviderRequest(providerName, "rejected")
		return "", fmt.Errorf("%w: sms24h %s: %s", domain.ErrActivationGone, action, reply)
	}
	if _, ok := rejections[token]; ok {
		metrics.RecordProviderRequest(providerName, "rejected")
		return "", fmt.Errorf("%w: sms24h %s: %s", domain.ErrProviderRejected, action, reply)
	}
	metrics.RecordProviderRequest(providerName, "ok")
	return reply, nil
}

// ReserveNumber rents a number for service in country.
func (c *Client) ReserveNumber(ctx context.Context, service string, country int) (*domain.Activation, error) {
	reply, err := c.call(ctx, "getNumber", map[string]string{
		"service":  service,
		"country":  strconv.Itoa(country),
		"operator": c.operator,
		"forward":  "0",
	})
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(reply, ":", 3)
	if len(parts) != 3 || parts[0] != "ACCESS_NUMBER" || parts[1] == "" {
		return nil, unexpected("getNumber", reply)
	}
	zap.L().Debug("sms24h number reserved", zap.String("activationID", parts[1]))
	return &domain.Activation{ID: parts[1], PhoneNumber: parts[2]}, nil
}

// Status maps the activation state to an order state. Unknown replies are
// reported as ErrProviderUnavailable so the caller retries later.
func (c *Client) Status(ctx context.Context, activationID string) (*domain.ActivationStatus, error) {
	reply, err := c.call(ctx, "getStatus", map[string]string{"id": activationID})
	if err != nil {
		return nil, err
	}
	return ParseStatus(reply)
}

func ParseStatus(reply string) (*domain.ActivationStatus, error) {
	if code, ok := strings.CutPrefix(reply, "STATUS_OK:"); ok {
		return &domain.ActivationStatus{State: domain.OrderReceived, Code: code}, nil
	}
	switch {
	case reply == "STATUS_WAIT_CODE", reply == "STATUS_WAIT_RESEND", strings.HasPrefix(reply, "STATUS_WAIT_RETRY"):
		return &domain.ActivationStatus{State: domain.OrderWaiting}, nil
	case reply == "STATUS_CANCEL":
		return &domain.ActivationStatus{State: domain.OrderCancelled}, nil
	}
	return nil, unexpected("getStatus", reply)
}

// SetStatus reports an activation transition and returns the raw reply.
func (c *Client) SetStatus(ctx context.Context, activationID string, status int) (string, error) {
	return c.call(ctx, "setStatus", map[string]string{
		"id":     activationID,
		"status": strconv.Itoa(status),
	})
}

func (c *Client) CancelActivation(ctx context.Context, activationID string) error {
	reply, err := c.SetStatus(ctx, activationID, StatusCancel)
	if err != nil {
		return err
	}
	if reply != "ACCESS_CANCEL" {
		return fmt.Errorf("%w: sms24h cancel: %s", domain.ErrProviderRejected, reply)
	}
	return nil
}

func (c *Client) ConfirmActivation(ctx context.Context, activationID string) error {
	reply, err := c.SetStatus(ctx, activationID, StatusConfirm)
	if err != nil {
		return err
	}
	if reply != "ACCESS_ACTIVATION" {
		return fmt.Errorf("%w: sms24h confirm: %s", domain.ErrProviderRejected, reply)
	}
	return nil
}

// Balance returns the operator account balance at the provider.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	reply, err := c.call(ctx, "getBalance", nil)
	if err != nil {
		return decimal.Zero, err
	}
	raw, ok := strings.CutPrefix(reply, "ACCESS_BALANCE:")
	if !ok {
		return decimal.Zero, unexpected("getBalance", reply)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, unexpected("getBalance", reply)
	}
	return balance, nil
}

func mapError(action string, err error) error {
	if errors.Is(err, clients.ErrRejected) {
		return fmt.Errorf("%w: sms24h %s: %v", domain.ErrProviderRejected, action, err)
	}
	return fmt.Errorf("%w: sms24h %s: %v", domain.ErrProviderUnavailable, action, err)
}

func unexpected(action, reply string) error {
	return fmt.Errorf("%w: sms24h %s: unexpected reply %q", domain.ErrProviderUnavailable, action, reply)
}
