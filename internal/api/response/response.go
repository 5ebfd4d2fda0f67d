// Package response writes JSON bodies and RFC 7807 problems.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prevairwatch/prevairwatch/internal/api/middleware"
	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/provider/resilience"
)

// circuitRetryAfter matches the breaker's open period.
var circuitRetryAfter = strconv.Itoa(int(resilience.DefaultCircuitBreakerConfig("").Timeout.Seconds()))

// JSON writes data with the given status. The body is encoded before the
// header is sent, so an unencodable value still yields a clean 500.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	setRequestID(w, r)

	var body []byte
	if data != nil {
		var err error
		if body, err = json.Marshal(data); err != nil {
			InternalError(w, r, "failed to encode response")
			return
		}
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes a problem for the current request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// BadGateway writes a 502 problem.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewBadGateway(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}

// Upstream reports a failed PREV'AIR call: 503 with Retry-After while the
// circuit breaker is open, 502 otherwise.
func Upstream(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		w.Header().Set("Retry-After", circuitRetryAfter)
		ServiceUnavailable(w, r, "PREV'AIR is failing, requests are paused")
		return
	}
	BadGateway(w, r, "PREV'AIR request failed")
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}
