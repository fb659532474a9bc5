package utils

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.7 ", "::1", "garbage", ""})
	assert.False(t, m.IsEmpty())

	cases := map[string]bool{
		"10.20.30.40":     true,
		"192.168.1.7":     true,
		"192.168.1.8":     false,
		"::1":             true,
		"::ffff:10.0.0.1": true,
		"172.16.0.1":      false,
		"not-an-ip":       false,
		"":                false,
	}
	for ip, want := range cases {
		assert.Equal(t, want, m.Allow(ip), ip)
	}

	assert.True(t, NewIPMatcher([]string{"nope"}).IsEmpty())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "10.1.2.3, 127.0.0.1")

	assert.Equal(t, "127.0.0.1", ClientIP(r, false))
	assert.Equal(t, "10.1.2.3", ClientIP(r, true))

	r.Header.Set("CF-Connecting-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientIP(r, true))

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[::1]:80"
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r, true))
	assert.Equal(t, "::1", ClientIP(r, false))
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestMustCloseToleratesFailures(t *testing.T) {
	MustClose(logger.Nop(), "ok", closer{})
	MustClose(logger.Nop(), "broken", closer{err: errors.New("boom")})
	MustClose(logger.Nop(), "nil", nil)
}
