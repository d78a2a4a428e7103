package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		delay       time.Duration
		expectedErr error
	}{
		{name: "ok", status: http.StatusOK},
		{name: "client error", status: http.StatusBadRequest, expectedErr: ErrRejected},
		{name: "throttled", status: http.StatusTooManyRequests, expectedErr: ErrUnavailable},
		{name: "server error", status: http.StatusBadGateway, expectedErr: ErrUnavailable},
		{name: "timeout", status: http.StatusOK, delay: 200 * time.Millisecond, expectedErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
				assert.Equal(t, "v", r.URL.Query().Get("k"))
				time.Sleep(tt.delay)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"ok":true}`))
			}))
			defer srv.Close()

			client := NewHTTPClient(srv.URL, 50*time.Millisecond, 100).SetAuthToken("token")
			resp, err := client.Do(context.Background(), http.MethodGet, "/path", func(r *resty.Request) {
				r.SetQueryParam("k", "v")
			})
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, `{"ok":true}`, resp.String())
		})
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", time.Second, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Do(ctx, http.MethodGet, "/", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Kind: ErrRejected, Status: 404, Body: "no"}
	assert.Equal(t, "upstream rejected request: status 404: no", err.Error())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected int
	}{
		{name: "short", in: "NO_NUMBERS", expected: len("NO_NUMBERS")},
		{name: "ascii over limit", in: strings.Repeat("a", 300), expected: truncateLimit},
		{name: "rune across limit", in: strings.Repeat("a", truncateLimit-1) + "ção", expected: truncateLimit - 1},
		{name: "rune ending at limit", in: strings.Repeat("a", truncateLimit-2) + "çx", expected: truncateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in)
			assert.Len(t, got, tt.expected)
			assert.True(t, utf8.ValidString(got))
			assert.True(t, strings.HasPrefix(tt.in, got))
		})
	}
}
