package endpoint

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWaitTimeout  = 30 * time.Second
)

// ReadFunc 返回当前的描述符文本。隧道启动过程中可能出错或返回不完整内容。
type ReadFunc func(ctx context.Context) (string, error)

// TimeoutError 超时仍未读到有效描述符，Last 为最后一次尝试的错误。
type TimeoutError struct {
	Waited   time.Duration
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("tunnel descriptor not ready after %s (%d attempts)", e.Waited, e.Attempts)
	}
	return fmt.Sprintf("tunnel descriptor not ready after %s (%d attempts): %v", e.Waited, e.Attempts, e.Last)
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// Await 每隔 interval 调用 read，直到解析成功或超时。ctx 取消时返回 ctx.Err()。
func Await(ctx context.Context, read ReadFunc, interval, timeout time.Duration) (Endpoint, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	attempts := 0
	for {
		attempts++
		raw, err := read(waitCtx)
		if err == nil {
			ep, perr := Parse(raw)
			if perr == nil {
				return ep, nil
			}
			err = perr
		}
		last = err

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return Endpoint{}, ctx.Err()
			}
			return Endpoint{}, &TimeoutError{Waited: time.Since(start), Attempts: attempts, Last: last}
		case <-ticker.C:
		}
	}
}
