package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/internal/logging"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code          string    `json:"code"`
	Message       string    `json:"message"`
	Field         string    `json:"field,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("write response", slog.String("error", err.Error()))
	}
}

// writeError maps err to its kind's status and safe message. Server-side
// failures are logged with their full cause; clients never see it.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := identity.KindOf(err)
	status := kind.Status()
	if status >= http.StatusInternalServerError {
		logging.Error(r.Context(), a.logger, "request failed", err,
			slog.String("path", r.URL.Path),
			slog.String("kind", string(kind)),
			slog.String("correlation_id", identity.CorrelationIDFromContext(r.Context())),
		)
	}

	var rl *identity.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.RetryAfter)))
	}

	detail := a.detail(r, string(kind), kind.Message())
	var ve *identity.ValidationError
	if errors.As(err, &ve) {
		detail.Field = ve.Field
		detail.Reason = ve.Reason
	}
	a.writeJSON(w, status, errorBody{Error: detail})
}

func (a *API) writeStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	a.writeJSON(w, status, errorBody{Error: a.detail(r, code, message)})
}

func (a *API) detail(r *http.Request, code, message string) errorDetail {
	return errorDetail{
		Code:          code,
		Message:       message,
		CorrelationID: identity.CorrelationIDFromContext(r.Context()),
		Timestamp:     a.now().UTC(),
	}
}

// retryAfterSeconds rounds up; a client must never retry early.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &identity.ValidationError{Field: "body", Reason: fmt.Sprintf("exceeds %d bytes", maxErr.Limit)}
		}
		return &identity.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}
