package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"crowdfundr/sdk"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	loggerKey    ctxKey = "logger"

	HeaderRequestID = "X-Request-ID"
	HeaderCaller    = "X-Caller"
)

// requestID tags every request with an id that doubles as the record txId.
func requestID(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				if u, err := uuid.NewV4(); err == nil {
					id = u.String()
				} else {
					id = "req-" + time.Now().UTC().Format("20060102150405.000000000")
				}
			}
			w.Header().Set(HeaderRequestID, id)
			reqLog := log.With(
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			ctx = context.WithValue(ctx, loggerKey, reqLog)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessLog writes one line per request once the handler returns.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		loggerFrom(r.Context(), zap.NewNop()).Info("request",
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func loggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// callContext carries the caller and the request id into the contract call.
func callContext(r *http.Request) (context.Context, sdk.Address) {
	caller := sdk.Address(r.Header.Get(HeaderCaller))
	ctx := sdk.WithEnv(r.Context(), sdk.Env{Sender: caller, TxID: requestIDFrom(r.Context())})
	return ctx, caller
}
