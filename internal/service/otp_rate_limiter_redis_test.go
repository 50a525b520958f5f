package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type scriptRunnerStub struct {
	calls    int
	lastKeys []string
	lastArgs []interface{}
	hits     int64
	err      error
}

func (s *scriptRunnerStub) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	s.calls++
	s.lastKeys = keys
	s.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	cmd.SetVal(s.hits)
	return cmd
}

func TestNewRedisOTPRateLimiterNilClient(t *testing.T) {
	if l := NewRedisOTPRateLimiter(nil, time.Minute, 3); l != nil {
		t.Fatalf("expected nil limiter without redis client")
	}
}

func TestRedisOTPRateLimiterBucketsByNormalizedEmail(t *testing.T) {
	stub := &scriptRunnerStub{hits: 1}
	l := &redisOTPRateLimiter{runner: stub, window: 90 * time.Second, max: 3}

	if !l.Allow("  Alice@Example.COM ") {
		t.Fatalf("expected first request allowed")
	}
	if len(stub.lastKeys) != 1 || stub.lastKeys[0] != otpLimiterPrefix+"alice@example.com" {
		t.Fatalf("expected normalized bucket key, got %v", stub.lastKeys)
	}
	if len(stub.lastArgs) != 1 || stub.lastArgs[0] != int64(90000) {
		t.Fatalf("expected window in milliseconds, got %v", stub.lastArgs)
	}
}

func TestRedisOTPRateLimiterBlankEmailDeniedWithoutRedis(t *testing.T) {
	stub := &scriptRunnerStub{hits: 1}
	l := &redisOTPRateLimiter{runner: stub, window: time.Minute, max: 3}

	if l.Allow("   ") {
		t.Fatalf("expected blank email denied")
	}
	if stub.calls != 0 {
		t.Fatalf("expected no redis call for blank email, got %d", stub.calls)
	}
}

func TestRedisOTPRateLimiterEnforcesMax(t *testing.T) {
	l := &redisOTPRateLimiter{runner: &scriptRunnerStub{hits: 3}, window: time.Minute, max: 3}
	if !l.Allow("alice@example.com") {
		t.Fatalf("expected hit at max still allowed")
	}

	l = &redisOTPRateLimiter{runner: &scriptRunnerStub{hits: 4}, window: time.Minute, max: 3}
	if l.Allow("alice@example.com") {
		t.Fatalf("expected hit above max denied")
	}
}

func TestRedisOTPRateLimiterFailsOpen(t *testing.T) {
	var l *redisOTPRateLimiter
	if !l.Allow("alice@example.com") {
		t.Fatalf("expected nil limiter to allow")
	}

	l = &redisOTPRateLimiter{runner: &scriptRunnerStub{err: errors.New("redis down")}, window: time.Minute, max: 3}
	if !l.Allow("alice@example.com") {
		t.Fatalf("expected allow when redis is unavailable")
	}
}
