package dnssync

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"ngrokdns/internal/metrics"
)

// RetryConfig 只用于只读调用（令牌、区域、记录）的重试，更新请求从不重试。
type RetryConfig struct {
	MaxAttempts int           // 包含首次调用，默认 3
	BackoffMin  time.Duration // 默认 200ms
	BackoffMax  time.Duration // 默认 2s
}

const (
	defaultRetryMaxAttempts = 3
	defaultBackoffMin       = 200 * time.Millisecond
	defaultBackoffMax       = 2 * time.Second
)

// DefaultRetryConfig 返回默认重试策略。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: defaultRetryMaxAttempts,
		BackoffMin:  defaultBackoffMin,
		BackoffMax:  defaultBackoffMax,
	}
}

// calculateBackoff 计算退避时间: min(BackoffMin * 2^attempt + jitter, BackoffMax)。
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = defaultBackoffMin
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}

	base := float64(cfg.BackoffMin) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * float64(cfg.BackoffMin)

	backoff := time.Duration(base + jitter)
	if backoff > cfg.BackoffMax {
		return cfg.BackoffMax
	}
	return backoff
}

type temporary interface {
	Temporary() bool
}

func retryable(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

// withRetry 重复调用 fn，直到成功、遇到不可重试错误或次数用尽。
func withRetry[T any](ctx context.Context, cfg RetryConfig, logger Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultRetryMaxAttempts
	}

	var zero T
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) || attempt == attempts-1 {
			break
		}

		wait := calculateBackoff(attempt, cfg)
		metrics.ProviderRetries.WithLabelValues(op).Inc()
		logger.Printf("WARNING: %s failed (attempt %d/%d), retrying in %s: %v", op, attempt+1, attempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
	return zero, err
}
