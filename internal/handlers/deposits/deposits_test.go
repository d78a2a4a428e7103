package deposits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/dto"
	"github.com/GlebRadaev/smswallet/pkg/auth"
)

const userID = "42"

func NewMock(t *testing.T) (*DepositHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func router(h *DepositHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/deposits", h.CreateDeposit)
	r.Get("/deposits", h.GetDeposits)
	r.Get("/deposits/{id}", h.GetDeposit)
	r.Post("/deposits/{id}/check", h.CheckDeposit)
	r.Post("/webhook", h.Webhook)
	return r
}

func do(r chi.Router, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pendingDeposit() *domain.Deposit {
	return &domain.Deposit{
		ID:                "d1",
		UserID:            userID,
		ExternalPaymentID: "mp-1",
		Amount:            decimal.NewFromInt(50),
		QRCode:            "000201",
		State:             domain.DepositPending,
	}
}

func TestCreateDepositHandler(t *testing.T) {
	handler, service := NewMock(t)
	r := router(handler)

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Deposit created",
			body: `{"amount":"50.00"}`,
			prepareMock: func() {
				service.EXPECT().
					CreateDeposit(gomock.Any(), userID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, amount decimal.Decimal) (*domain.Deposit, error) {
						assert.True(t, decimal.NewFromInt(50).Equal(amount))
						return pendingDeposit(), nil
					})
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Invalid body",
			body:         `{"amount":50`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Missing amount",
			body:         `{}`,
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Out of range",
			body: `{"amount":"0.10"}`,
			prepareMock: func() {
				service.EXPECT().CreateDeposit(gomock.Any(), userID, gomock.Any()).Return(nil, domain.ErrInvalidAmount)
			},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Gateway unavailable",
			body: `{"amount":"50"}`,
			prepareMock: func() {
				service.EXPECT().CreateDeposit(gomock.Any(), userID, gomock.Any()).Return(nil, domain.ErrProviderUnavailable)
			},
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			w := do(r, http.MethodPost, "/deposits", tt.body)
			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusCreated {
				var body dto.DepositDTO
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, "50.00", body.Amount)
				assert.Equal(t, "000201", body.QRCode)
			}
		})
	}
}

func TestGetDepositsHandler(t *testing.T) {
	handler, service := NewMock(t)
	r := router(handler)

	service.EXPECT().ListByUser(gomock.Any(), userID).Return([]domain.Deposit{*pendingDeposit()}, nil)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/deposits", "").Code)

	service.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/deposits", "").Code)

	service.EXPECT().Get(gomock.Any(), userID, "d1").Return(pendingDeposit(), nil)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/deposits/d1", "").Code)

	service.EXPECT().Get(gomock.Any(), userID, "d9").Return(nil, domain.ErrDepositNotFound)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/deposits/d9", "").Code)
}

func TestCheckDepositHandler(t *testing.T) {
	handler, service := NewMock(t)
	r := router(handler)

	t.Run("Pending deposit is checked", func(t *testing.T) {
		approved := pendingDeposit()
		approved.State = domain.DepositApproved
		service.EXPECT().Get(gomock.Any(), userID, "d1").Return(pendingDeposit(), nil)
		service.EXPECT().CheckDeposit(gomock.Any(), "d1").Return(approved, nil)

		w := do(r, http.MethodPost, "/deposits/d1/check", "")
		assert.Equal(t, http.StatusOK, w.Code)
		var body dto.DepositDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "APPROVED", body.State)
	})
	t.Run("Settled deposit is returned as is", func(t *testing.T) {
		approved := pendingDeposit()
		approved.State = domain.DepositApproved
		service.EXPECT().Get(gomock.Any(), userID, "d1").Return(approved, nil)

		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/deposits/d1/check", "").Code)
	})
	t.Run("Foreign deposit", func(t *testing.T) {
		service.EXPECT().Get(gomock.Any(), userID, "d2").Return(nil, domain.ErrDepositNotFound)

		assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/deposits/d2/check", "").Code)
	})
}

func TestWebhookHandler(t *testing.T) {
	handler, service := NewMock(t)
	r := router(handler)

	tests := []struct {
		name           string
		body           string
		prepareMock    func()
		expectedCode   int
		expectedStatus string
	}{
		{
			name: "Payment notification",
			body: `{"type":"payment","action":"payment.updated","data":{"id":"mp-1"}}`,
			prepareMock: func() {
				service.EXPECT().CheckByExternalID(gomock.Any(), "mp-1").Return(pendingDeposit(), nil)
			},
			expectedCode:   http.StatusOK,
			expectedStatus: "ok",
		},
		{
			name: "Unknown payment",
			body: `{"type":"payment","data":{"id":"mp-9"}}`,
			prepareMock: func() {
				service.EXPECT().CheckByExternalID(gomock.Any(), "mp-9").Return(nil, domain.ErrDepositNotFound)
			},
			expectedCode:   http.StatusOK,
			expectedStatus: "ok",
		},
		{
			name:           "Other topic",
			body:           `{"type":"merchant_order","data":{"id":"1"}}`,
			prepareMock:    func() {},
			expectedCode:   http.StatusOK,
			expectedStatus: "ignored",
		},
		{
			name: "Gateway unavailable",
			body: `{"type":"payment","data":{"id":"mp-1"}}`,
			prepareMock: func() {
				service.EXPECT().CheckByExternalID(gomock.Any(), "mp-1").Return(nil, domain.ErrProviderUnavailable)
			},
			expectedCode: http.StatusServiceUnavailable,
		},
		{
			name:         "Invalid body",
			body:         `not json`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			w := do(r, http.MethodPost, "/webhook", tt.body)
			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedStatus != "" {
				var body dto.StatusResponseDTO
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, tt.expectedStatus, body.Status)
			}
		})
	}
}
