package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/dto"
	"github.com/GlebRadaev/smswallet/pkg/auth"
)

const userID = "42"

func NewMock(t *testing.T) (*WalletHandler, *MockWalletService, *MockLedgerService) {
	ctrl := gomock.NewController(t)
	wallets := NewMockWalletService(ctrl)
	ledger := NewMockLedgerService(ctrl)
	return New(wallets, ledger), wallets, ledger
}

func userCtx() context.Context {
	return context.WithValue(context.Background(), auth.UserIDKey, userID)
}

func TestGetBalanceHandler(t *testing.T) {
	handler, wallets, _ := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
		expectedBody dto.BalanceResponseDTO
	}{
		{
			name: "Successful retrieval",
			prepareMock: func() {
				wallets.EXPECT().
					GetBalance(userCtx(), userID).
					Return(&domain.Wallet{UserID: userID, Balance: decimal.RequireFromString("10.5")}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: dto.BalanceResponseDTO{UserID: userID, Balance: "10.50"},
		},
		{
			name: "Internal server error",
			prepareMock: func() {
				wallets.EXPECT().GetBalance(userCtx(), userID).Return(nil, errors.New("error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := httptest.NewRequest(http.MethodGet, "/balance", nil).WithContext(userCtx())
			w := httptest.NewRecorder()
			handler.GetBalance(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				var body dto.BalanceResponseDTO
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, tt.expectedBody, body)
			}
		})
	}
}

func TestGetTransactionsHandler(t *testing.T) {
	handler, _, ledger := NewMock(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		query        string
		prepareMock  func()
		expectedCode int
		expectedBody *dto.HistoryResponseDTO
	}{
		{
			name:  "First page",
			query: "?limit=1",
			prepareMock: func() {
				ledger.EXPECT().
					History(userCtx(), userID, domain.HistoryQuery{Limit: 1}).
					Return(&domain.HistoryPage{
						Items: []domain.Transaction{{
							ID:        "t1",
							Kind:      domain.KindPurchase,
							Amount:    decimal.NewFromInt(-15),
							Status:    domain.StatusCompleted,
							CreatedAt: created,
						}},
						NextCursor: "next",
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &dto.HistoryResponseDTO{
				Items: []dto.TransactionDTO{{
					ID:        "t1",
					Kind:      "purchase",
					Amount:    "-15.00",
					Status:    "completed",
					CreatedAt: created,
				}},
				NextCursor: "next",
			},
		},
		{
			name:  "Cursor is passed through",
			query: "?cursor=abc",
			prepareMock: func() {
				ledger.EXPECT().
					History(userCtx(), userID, domain.HistoryQuery{Cursor: "abc"}).
					Return(&domain.HistoryPage{}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &dto.HistoryResponseDTO{Items: []dto.TransactionDTO{}},
		},
		{
			name:         "Non numeric limit",
			query:        "?limit=ten",
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Limit above maximum",
			query:        "?limit=1000",
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:  "Malformed cursor",
			query: "?cursor=%25%25",
			prepareMock: func() {
				ledger.EXPECT().
					History(userCtx(), userID, domain.HistoryQuery{Cursor: "%%"}).
					Return(nil, domain.ErrInvalidInput)
			},
			expectedCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := httptest.NewRequest(http.MethodGet, "/transactions"+tt.query, nil).WithContext(userCtx())
			w := httptest.NewRecorder()
			handler.GetTransactions(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != nil {
				var body dto.HistoryResponseDTO
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, *tt.expectedBody, body)
			}
		})
	}
}
