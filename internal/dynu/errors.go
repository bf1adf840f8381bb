package dynu

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AuthError 换取令牌失败。
type AuthError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *AuthError) Error() string {
	msg := "dynu: token exchange failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Temporary 重试是否可能成功。
func (e *AuthError) Temporary() bool { return isTransient(e.StatusCode, e.Err) }

// ProviderError 区域或记录调用失败，Op 为调用名。
type ProviderError struct {
	Op         string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := "dynu: " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Temporary 重试是否可能成功。
func (e *ProviderError) Temporary() bool { return isTransient(e.StatusCode, e.Err) }

// isTransient 网络错误以及限流、网关类状态码可重试。
// 解码失败带 2xx 状态码，不重试。
func isTransient(status int, err error) bool {
	switch status {
	case 0:
		var netErr net.Error
		return errors.As(err, &netErr)
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
