package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestCORSAllowList(t *testing.T) {
	h := CORS("https://dash.example.com/")(ok)

	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("Origin", "https://dash.example.com")
	rec := serve(h, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/data", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = serve(h, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// same-origin requests carry no Origin and pass untouched
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"dash.local", "*.example.com"}, logger.Nop())(ok)

	tests := map[string]int{
		"dash.local":      http.StatusOK,
		"DASH.local:8080": http.StatusOK,
		"a.example.com":   http.StatusOK,
		"example.org":     http.StatusForbidden,
		"dash.local.evil": http.StatusForbidden,
	}
	for host, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Host = host
		assert.Equal(t, want, serve(h, r).Code, host)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, logger.Nop())(ok)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "10.1.2.3, 127.0.0.1")
	assert.Equal(t, http.StatusOK, serve(h, r).Code)

	r.Header.Set("X-Forwarded-For", "192.168.1.1")
	assert.Equal(t, http.StatusForbidden, serve(h, r).Code)
}

func TestRateLimitRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60, Now: func() time.Time { return now }})(ok)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/data", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		return serve(h, r)
	}

	first := req()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, req().Code)
	rec := req()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, req().Code)
}
