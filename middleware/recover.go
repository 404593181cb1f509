package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/MrEthical07/identity"
)

// Recover turns a handler panic into a 500 response and an error log.
func Recover(logger *slog.Logger, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic in handler",
					"panic", rec,
					"path", r.URL.Path,
					"correlation_id", identity.CorrelationIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				onError(w, r, errPanic)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type panicError struct{}

func (panicError) Error() string { return "handler panic" }

var errPanic error = panicError{}
