package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultRPS     = 5

	truncateLimit = 256
)

var (
	// ErrUnavailable covers transport failures, timeouts, throttling and 5xx replies.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrRejected covers 4xx replies.
	ErrRejected = errors.New("upstream rejected request")
)

// StatusError carries the upstream reply that produced ErrUnavailable or ErrRejected.
type StatusError struct {
	Kind   error
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// HTTPClient is a rate limited resty client bound to one upstream.
type HTTPClient struct {
	client  *resty.Client
	limiter *rate.Limiter
}

func NewHTTPClient(baseURL string, timeout time.Duration, rps float64) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rps <= 0 {
		rps = DefaultRPS
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &HTTPClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SetAuthToken sends token as a bearer credential on every request.
func (h *HTTPClient) SetAuthToken(token string) *HTTPClient {
	h.client.SetAuthToken(token)
	return h
}

// Do waits for a rate limiter slot, runs the request built by prepare and
// classifies the outcome. Successful replies are returned as-is.
func (h *HTTPClient) Do(ctx context.Context, method, path string, prepare func(*resty.Request)) (*resty.Response, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	req := h.client.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}

	switch status := resp.StatusCode(); {
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests:
		return resp, &StatusError{Kind: ErrUnavailable, Status: status, Body: truncate(resp.String())}
	case status >= http.StatusBadRequest:
		return resp, &StatusError{Kind: ErrRejected, Status: status, Body: truncate(resp.String())}
	}
	return resp, nil
}

// truncate cuts s to at most truncateLimit bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= truncateLimit {
		return s
	}
	cut := truncateLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
