package redis

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

func validOptions() ConnectOptions {
	return ConnectOptions{
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validOptions().Validate())

	broken := []func(*ConnectOptions){
		func(o *ConnectOptions) { o.ConnectTimeout = 0 },
		func(o *ConnectOptions) { o.RetryInterval = -time.Second },
		func(o *ConnectOptions) { o.MaxWait = 0 },
		func(o *ConnectOptions) { o.PingTimeout = 0 },
		func(o *ConnectOptions) { o.WarnThreshold = -1 },
	}
	for _, mutate := range broken {
		o := validOptions()
		mutate(&o)
		assert.Error(t, o.Validate())
	}
}

func TestApplyKeepsURLValuesWhenUnset(t *testing.T) {
	base := &redis.Options{Addr: "cache:6379", DialTimeout: 7 * time.Second, PoolSize: 3}

	o := ConnectOptions{ReadTimeout: time.Second}
	got := o.apply(base)

	assert.Equal(t, 7*time.Second, got.DialTimeout)
	assert.Equal(t, time.Second, got.ReadTimeout)
	assert.Equal(t, 3, got.PoolSize)
	assert.Zero(t, base.ReadTimeout, "base options must not be mutated")
}

func TestConnectGivesUpOnUnreachableServer(t *testing.T) {
	start := time.Now()
	_, err := Connect(&redis.Options{Addr: "127.0.0.1:1"}, validOptions(), logger.New("error", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable at 127.0.0.1:1")
	assert.Less(t, time.Since(start), 2*time.Second)
}
