package dynu

import (
	"net"
	"strconv"
	"time"
)

const (
	RecordTypeA   = "A"
	RecordTypeSRV = "SRV"

	// DefaultTTL 更新记录时使用的 TTL。
	DefaultTTL = 120
)

// Credentials API 的 client id 和 secret。
type Credentials struct {
	ClientID string
	Secret   string
}

// Token 从令牌接口获得的 bearer 令牌，只在一次同步内使用，不缓存。
type Token struct {
	Value      string
	ObtainedAt time.Time
	ExpiresIn  time.Duration
}

// Zone DNS 域。
type Zone struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// Record DNS 记录。
type Record struct {
	ID          int64  `json:"id"`
	DomainID    int64  `json:"domainId"`
	DomainName  string `json:"domainName"`
	NodeName    string `json:"nodeName"`
	Hostname    string `json:"hostname"`
	RecordType  string `json:"recordType"`
	TTL         int    `json:"ttl"`
	State       bool   `json:"state"`
	Content     string `json:"content"`
	Group       string `json:"group"`
	IPv4Address string `json:"ipv4Address,omitempty"`
	Host        string `json:"host,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Weight      int    `json:"weight,omitempty"`
	Port        int    `json:"port,omitempty"`
}

// CurrentValue 返回 A 记录的地址，SRV 记录返回 host:port。
func (r Record) CurrentValue() string {
	switch r.RecordType {
	case RecordTypeA:
		return r.IPv4Address
	case RecordTypeSRV:
		if r.Host == "" && r.Port == 0 {
			return ""
		}
		return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
	default:
		return r.Content
	}
}

// RecordUpdate 更新请求的 JSON 请求体。
type RecordUpdate struct {
	NodeName    string `json:"nodeName"`
	RecordType  string `json:"recordType"`
	TTL         int    `json:"ttl"`
	State       bool   `json:"state"`
	Group       string `json:"group"`
	IPv4Address string `json:"ipv4Address,omitempty"`
	Host        string `json:"host,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
	Weight      *int   `json:"weight,omitempty"`
	Port        int    `json:"port,omitempty"`
}

// NewAddressUpdate 构造把 A 记录指向 ipv4 的请求体。
func NewAddressUpdate(nodeName, ipv4 string, ttl int) RecordUpdate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return RecordUpdate{
		NodeName:    nodeName,
		RecordType:  RecordTypeA,
		TTL:         ttl,
		State:       true,
		IPv4Address: ipv4,
	}
}

// NewServiceUpdate 构造把 SRV 记录指向 target:port 的请求体。
func NewServiceUpdate(nodeName, target string, port, priority, weight, ttl int) RecordUpdate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return RecordUpdate{
		NodeName:   nodeName,
		RecordType: RecordTypeSRV,
		TTL:        ttl,
		State:      true,
		Host:       target,
		Priority:   &priority,
		Weight:     &weight,
		Port:       port,
	}
}
