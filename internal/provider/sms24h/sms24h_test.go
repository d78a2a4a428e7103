package sms24h

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

func newServer(t *testing.T, handle func(t *testing.T, r *http.Request) (int, string)) *Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, handlerPath, r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		status, body := handle(t, r)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second, RPS: 100})
}

func TestReserveNumber(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		reply       string
		expected    *domain.Activation
		expectedErr error
	}{
		{
			name:     "number assigned",
			status:   http.StatusOK,
			reply:    "ACCESS_NUMBER:98765:5511987654321",
			expected: &domain.Activation{ID: "98765", PhoneNumber: "5511987654321"},
		},
		{name: "no numbers", status: http.StatusOK, reply: "NO_NUMBERS", expectedErr: domain.ErrProviderRejected},
		{name: "no balance", status: http.StatusOK, reply: "NO_BALANCE", expectedErr: domain.ErrProviderRejected},
		{name: "garbage", status: http.StatusOK, reply: "ERROR_SQL", expectedErr: domain.ErrProviderUnavailable},
		{name: "server error", status: http.StatusBadGateway, reply: "", expectedErr: domain.ErrProviderUnavailable},
		{name: "client error", status: http.StatusForbidden, reply: "", expectedErr: domain.ErrProviderRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(t *testing.T, r *http.Request) (int, string) {
				q := r.URL.Query()
				assert.Equal(t, "getNumber", q.Get("action"))
				assert.Equal(t, "wa", q.Get("service"))
				assert.Equal(t, "73", q.Get("country"))
				assert.Equal(t, "any", q.Get("operator"))
				assert.Equal(t, "0", q.Get("forward"))
				return tt.status, tt.reply
			})
			activation, err := client.ReserveNumber(context.Background(), "wa", 73)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, activation)
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		reply       string
		state       domain.OrderState
		code        string
		expectedErr error
	}{
		{reply: "STATUS_WAIT_CODE", state: domain.OrderWaiting},
		{reply: "STATUS_WAIT_RETRY:123", state: domain.OrderWaiting},
		{reply: "STATUS_WAIT_RESEND", state: domain.OrderWaiting},
		{reply: "STATUS_OK:4821", state: domain.OrderReceived, code: "4821"},
		{reply: "STATUS_CANCEL", state: domain.OrderCancelled},
		{reply: "WHAT", expectedErr: domain.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			status, err := ParseStatus(tt.reply)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.state, status.State)
			assert.Equal(t, tt.code, status.Code)
		})
	}
}

func TestStatus(t *testing.T) {
	client := newServer(t, func(t *testing.T, r *http.Request) (int, string) {
		assert.Equal(t, "getStatus", r.URL.Query().Get("action"))
		assert.Equal(t, "98765", r.URL.Query().Get("id"))
		return http.StatusOK, "STATUS_OK:1234"
	})
	status, err := client.Status(context.Background(), "98765")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderReceived, status.State)
	assert.Equal(t, "1234", status.Code)
}

func TestStatusUnknownActivation(t *testing.T) {
	for _, reply := range []string{"NO_ACTIVATION", "WRONG_ACTIVATION_ID"} {
		t.Run(reply, func(t *testing.T) {
			client := newServer(t, func(t *testing.T, r *http.Request) (int, string) {
				return http.StatusOK, reply
			})
			_, err := client.Status(context.Background(), "98765")
			assert.ErrorIs(t, err, domain.ErrActivationGone)
			assert.ErrorIs(t, err, domain.ErrProviderRejected)
		})
	}
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		name        string
		call        func(c *Client) error
		status      string
		reply       string
		expectedErr error
	}{
		{
			name:   "cancel confirmed",
			call:   func(c *Client) error { return c.CancelActivation(context.Background(), "1") },
			status: "8",
			reply:  "ACCESS_CANCEL",
		},
		{
			name:        "cancel refused",
			call:        func(c *Client) error { return c.CancelActivation(context.Background(), "1") },
			status:      "8",
			reply:       "EARLY_CANCEL_DENIED",
			expectedErr: domain.ErrProviderRejected,
		},
		{
			name:        "cancel of unknown activation",
			call:        func(c *Client) error { return c.CancelActivation(context.Background(), "1") },
			status:      "8",
			reply:       "NO_ACTIVATION",
			expectedErr: domain.ErrActivationGone,
		},
		{
			name:        "cancel with unexpected reply",
			call:        func(c *Client) error { return c.CancelActivation(context.Background(), "1") },
			status:      "8",
			reply:       "ACCESS_READY",
			expectedErr: domain.ErrProviderRejected,
		},
		{
			name:   "confirm",
			call:   func(c *Client) error { return c.ConfirmActivation(context.Background(), "1") },
			status: "6",
			reply:  "ACCESS_ACTIVATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(t *testing.T, r *http.Request) (int, string) {
				q := r.URL.Query()
				assert.Equal(t, "setStatus", q.Get("action"))
				assert.Equal(t, "1", q.Get("id"))
				assert.Equal(t, tt.status, q.Get("status"))
				return http.StatusOK, tt.reply
			})
			err := tt.call(client)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBalance(t *testing.T) {
	client := newServer(t, func(t *testing.T, r *http.Request) (int, string) {
		assert.Equal(t, "getBalance", r.URL.Query().Get("action"))
		return http.StatusOK, "ACCESS_BALANCE:152.37"
	})
	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("152.37")))
}
