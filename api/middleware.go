package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"time"

	"notegate/core/logger"

	"github.com/google/uuid"
	"log/slog"
)

const (
	secretHeader = "X-Admin-Secret"
	secretQuery  = "admin_secret"

	requestIDHeader = "X-Request-Id"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requireSecret guards admin endpoints with a constant-time shared secret
// check. An empty configured secret disables the whole admin surface.
func (s *Server) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminSecret == "" {
			writeError(w, http.StatusForbidden, "forbidden", "admin API disabled")
			return
		}

		got := r.Header.Get(secretHeader)
		if got == "" {
			got = r.URL.Query().Get(secretQuery)
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminSecret)) != 1 {
			logger.Warn(r.Context(), "api", "admin.unauthorized",
				slog.String("path", r.URL.Path),
				slog.String("request_id", requestIDFrom(r.Context())),
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid admin secret")
			return
		}
		next(w, r)
	}
}

// requestID tags every request with a correlation id, honoring an inbound one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info(r.Context(), "api", "request.handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", rec.status),
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
	})
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.API.Error("panic recovered",
					slog.String("event", "api.panic"),
					slog.Any("err", rec),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
