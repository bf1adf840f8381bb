package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Marker 描述符中公网地址的前缀。
const Marker = "tcp://"

// Endpoint 隧道会话的公网地址。
type Endpoint struct {
	Host string
	Port int
}

// String 返回 "host:port"，用于通知和日志。
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseError 描述符中没有可用地址。
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return "parse tunnel descriptor: " + e.Reason
}

// Parse 提取描述符中第一个 "tcp://host:port" 地址，忽略周围的日志字段、时间戳和引号。
func Parse(descriptor string) (Endpoint, error) {
	idx := strings.Index(descriptor, Marker)
	if idx < 0 {
		return Endpoint{}, &ParseError{Input: descriptor, Reason: fmt.Sprintf("no %q address found", Marker)}
	}
	rest := descriptor[idx+len(Marker):]
	if end := strings.IndexFunc(rest, isDelimiter); end >= 0 {
		rest = rest[:end]
	}
	addr := strings.TrimRight(rest, "/")

	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, &ParseError{Input: descriptor, Reason: fmt.Sprintf("address %q: %v", addr, err)}
	}
	if host == "" {
		return Endpoint{}, &ParseError{Input: descriptor, Reason: fmt.Sprintf("address %q has an empty host", addr)}
	}
	if !validHost(host) {
		return Endpoint{}, &ParseError{Input: descriptor, Reason: fmt.Sprintf("host %q contains invalid characters", host)}
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || !allDigits(rawPort) {
		return Endpoint{}, &ParseError{Input: descriptor, Reason: fmt.Sprintf("port %q is not a number", rawPort)}
	}
	if port < 1 || port > 65535 {
		return Endpoint{}, &ParseError{Input: descriptor, Reason: fmt.Sprintf("port %d out of range [1, 65535]", port)}
	}
	return Endpoint{Host: host, Port: port}, nil
}

// validHost 拒绝非 UTF-8 或含控制字符的主机。
func validHost(host string) bool {
	if !utf8.ValidString(host) {
		return false
	}
	return strings.IndexFunc(host, unicode.IsControl) < 0
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '"', '\'', ',', ';', '>', ')':
		return true
	}
	return false
}
