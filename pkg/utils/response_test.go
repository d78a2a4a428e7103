package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/smswallet/pkg/validate"
)

func TestRespondWithJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		payload      any
		expectedBody string
	}{
		{name: "object", status: http.StatusOK, payload: map[string]string{"balance": "10.00"}, expectedBody: `{"balance":"10.00"}` + "\n"},
		{name: "no content", status: http.StatusNoContent, payload: map[string]string{"x": "y"}, expectedBody: ""},
		{name: "nil payload", status: http.StatusAccepted, payload: nil, expectedBody: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithJSON(w, tt.status, tt.payload)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusPaymentRequired, "insufficient funds")

	var body Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "insufficient funds", body.Error)
	assert.Empty(t, body.Details)
}

func TestRespondWithValidation(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidation(w, []validate.FieldError{{Field: "Amount", Tag: "required", Message: "Amount is required"}})

	var body Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "Amount", body.Details[0].Field)
}
