package dnssync

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"ngrokdns/internal/dynu"
)

var quietLogger = log.New(io.Discard, "", 0)

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 100 * time.Millisecond,
	}

	tests := []struct {
		name      string
		attempt   int
		expectMin time.Duration
		expectMax time.Duration
	}{
		{name: "first attempt", attempt: 0, expectMin: 10 * time.Millisecond, expectMax: 20 * time.Millisecond},
		{name: "second attempt", attempt: 1, expectMin: 20 * time.Millisecond, expectMax: 30 * time.Millisecond},
		{name: "third attempt", attempt: 2, expectMin: 40 * time.Millisecond, expectMax: 50 * time.Millisecond},
		{name: "capped at max", attempt: 5, expectMin: 100 * time.Millisecond, expectMax: 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backoff := calculateBackoff(tt.attempt, cfg)
			if backoff < tt.expectMin || backoff > tt.expectMax {
				t.Errorf("backoff %v not in [%v, %v]", backoff, tt.expectMin, tt.expectMax)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"service unavailable", &dynu.ProviderError{Op: "list zones", StatusCode: http.StatusServiceUnavailable}, true},
		{"too many requests", &dynu.AuthError{StatusCode: http.StatusTooManyRequests}, true},
		{"unauthorized", &dynu.AuthError{StatusCode: http.StatusUnauthorized}, false},
		{"not found", &dynu.ProviderError{Op: "list records", StatusCode: http.StatusNotFound}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond}

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		v, err := withRetry(context.Background(), cfg, quietLogger, "list zones", func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, &dynu.ProviderError{Op: "list zones", StatusCode: http.StatusBadGateway}
			}
			return 42, nil
		})
		if err != nil || v != 42 {
			t.Fatalf("got (%d, %v), want (42, nil)", v, err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), cfg, quietLogger, "token exchange", func(context.Context) (int, error) {
			calls++
			return 0, &dynu.AuthError{StatusCode: http.StatusUnauthorized}
		})
		var authErr *dynu.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want *dynu.AuthError", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), cfg, quietLogger, "list records", func(context.Context) (int, error) {
			calls++
			return 0, &dynu.ProviderError{Op: "list records", StatusCode: http.StatusServiceUnavailable}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != cfg.MaxAttempts {
			t.Errorf("calls = %d, want %d", calls, cfg.MaxAttempts)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryConfig{MaxAttempts: 5, BackoffMin: time.Second, BackoffMax: time.Second}
		calls := 0
		_, err := withRetry(ctx, slow, quietLogger, "list zones", func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, &dynu.ProviderError{Op: "list zones", StatusCode: http.StatusGatewayTimeout}
		})
		if err == nil || calls != 1 {
			t.Fatalf("got calls=%d err=%v, want one call and an error", calls, err)
		}
	})
}
