package idempotency

import (
	"bytes"
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/pkg/auth"
	"github.com/GlebRadaev/smswallet/pkg/utils"
)

const (
	HeaderKey = "Idempotency-Key"
	HeaderHit = "X-Idempotency-Hit"
)

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware caches responses below 500 per user and Idempotency-Key.
// Requests without the header pass through. Store failures fail open.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(HeaderKey)
			if header == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := auth.UserIDFromContext(ctx) + ":" + r.Method + ":" + r.URL.Path + ":" + header

			cached, err := store.Get(ctx, key)
			if err != nil {
				zap.L().Error("can't read idempotency key", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				replay(w, cached)
				return
			}

			acquired, err := store.Acquire(ctx, key)
			if err != nil {
				zap.L().Error("can't lock idempotency key", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				utils.RespondWithError(w, http.StatusConflict, "request with this idempotency key is in progress")
				return
			}
			defer func() {
				if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
					zap.L().Warn("can't release idempotency key", zap.Error(err))
				}
			}()

			// A request holding the key may have saved its response between the
			// first read and Acquire.
			cached, err = store.Get(ctx, key)
			if err != nil {
				zap.L().Error("can't read idempotency key", zap.Error(err))
			}
			if cached != nil {
				replay(w, cached)
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode >= http.StatusInternalServerError {
				return
			}
			err = store.Save(context.WithoutCancel(ctx), key, CachedResponse{
				StatusCode:  recorder.statusCode,
				ContentType: recorder.Header().Get("Content-Type"),
				Body:        recorder.body.Bytes(),
			})
			if err != nil {
				zap.L().Error("can't save idempotency key", zap.Error(err))
			}
		})
	}
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set(HeaderHit, "true")
	w.WriteHeader(cached.StatusCode)
	if _, err := w.Write(cached.Body); err != nil {
		zap.L().Error("can't write cached response", zap.Error(err))
	}
}
