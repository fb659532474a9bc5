package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

// ConnectOptions tunes the client and its startup retry policy.
// Zero client timeouts keep the values parsed from the redis URL.
type ConnectOptions struct {
	DialTimeout    time.Duration // redis dial timeout
	ReadTimeout    time.Duration // redis read timeout
	WriteTimeout   time.Duration // redis write timeout
	PoolSize       int           // connection pool size
	ConnectTimeout time.Duration // total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // initial wait between retries, doubles up to MaxWait
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt
	WarnThreshold  int           // warn for this many attempts, then log errors
}

type connectionLogger struct {
	logger logger.Logger
}

func (cl *connectionLogger) logSuccess(addr string, attempts int, elapsed time.Duration) {
	if attempts > 1 {
		cl.logger.Warn("redis reachable after retry",
			logger.String("addr", addr),
			logger.Int("attempts", attempts),
			logger.Duration("elapsed", elapsed))
		return
	}
	cl.logger.Info("redis reachable", logger.String("addr", addr))
}

func (cl *connectionLogger) logRetry(addr string, attempt, warnThreshold int, nextRetry time.Duration, err error) {
	fields := []any{addr, attempt, nextRetry, err}
	if attempt <= warnThreshold {
		cl.logger.Warnf("redis ping failed (addr=%s attempt=%d next_retry_in=%s): %v", fields...)
		return
	}
	cl.logger.Errorf("redis still unavailable (addr=%s attempt=%d next_retry_in=%s): %v", fields...)
}

// Validate rejects retry settings that would spin or never retry.
func (o ConnectOptions) Validate() error {
	switch {
	case o.ConnectTimeout <= 0:
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", o.ConnectTimeout)
	case o.RetryInterval <= 0:
		return fmt.Errorf("RetryInterval must be > 0, got %v", o.RetryInterval)
	case o.MaxWait <= 0:
		return fmt.Errorf("MaxWait must be > 0, got %v", o.MaxWait)
	case o.PingTimeout <= 0:
		return fmt.Errorf("PingTimeout must be > 0, got %v", o.PingTimeout)
	case o.WarnThreshold < 0:
		return fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold)
	}
	return nil
}

func (o ConnectOptions) apply(base *redis.Options) *redis.Options {
	out := *base
	if o.DialTimeout > 0 {
		out.DialTimeout = o.DialTimeout
	}
	if o.ReadTimeout > 0 {
		out.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout > 0 {
		out.WriteTimeout = o.WriteTimeout
	}
	if o.PoolSize > 0 {
		out.PoolSize = o.PoolSize
	}
	return &out
}

// Connect creates a client and pings it with exponential backoff until
// ConnectTimeout elapses.
func Connect(base *redis.Options, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(opts.apply(base))

	if err := pingWithRetry(client, base.Addr, opts, &connectionLogger{logger: log}); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Dialer adapts Connect to the signature expected by kv.Open.
func Dialer(opts ConnectOptions, log logger.Logger) func(*redis.Options) (*redis.Client, error) {
	return func(base *redis.Options) (*redis.Client, error) {
		return Connect(base, opts, log)
	}
}

func pingWithRetry(client *redis.Client, addr string, opts ConnectOptions, log *connectionLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	log.logger.Info("connecting to redis",
		logger.String("addr", addr),
		logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			log.logSuccess(addr, attempt, time.Since(start))
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.logger.Error("redis unavailable, giving up",
				logger.String("addr", addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				addr, attempt, opts.ConnectTimeout, err)
		case <-timer.C:
			log.logRetry(addr, attempt, opts.WarnThreshold, wait, err)
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}
