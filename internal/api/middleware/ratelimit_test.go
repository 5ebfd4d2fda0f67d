package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitByIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/stations/nearest", http.NoBody)
		req.RemoteAddr = ip + ":4242"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "limits are per client")
}

func TestRateLimitBySubject(t *testing.T) {
	handler := RateLimitBySubject(RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler)

	send := func(subject string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/refresh", http.NoBody)
		req.RemoteAddr = "10.0.0.9:4242"
		if subject != "" {
			req = req.WithContext(context.WithValue(req.Context(), subjectKey{}, subject))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("ops"))
	assert.Equal(t, http.StatusTooManyRequests, send("ops"))
	assert.Equal(t, http.StatusOK, send("oncall"), "same IP, different subject")
	assert.Equal(t, http.StatusOK, send(""), "anonymous falls back to the IP")
}
