// Package resolve 把隧道主机名解析为 A 记录需要的 IPv4 地址。
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	resolvConf     = "/etc/resolv.conf"
	fallbackServer = "1.1.1.1:53"
	maxCNAMEHops   = 8
)

// ErrNoAddress 域名没有 A 记录。
var ErrNoAddress = errors.New("no IPv4 address")

// Resolver 通过普通 DNS 查询 A 记录。
type Resolver struct {
	Servers []string
	Timeout time.Duration
}

// New 使用 servers（"host:port"）创建 Resolver，未指定时读取 resolv.conf。
func New(servers ...string) *Resolver {
	if len(servers) == 0 {
		servers = systemServers()
	}
	return &Resolver{Servers: servers, Timeout: 3 * time.Second}
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil || cfg == nil || len(cfg.Servers) == 0 {
		return []string{fallbackServer}
	}
	out := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		out = append(out, net.JoinHostPort(s, cfg.Port))
	}
	return out
}

// LookupIPv4 host 本身是 IPv4 时直接返回，否则沿 CNAME 返回第一个 A 记录。
func (r *Resolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return "", errors.New("resolve: empty host")
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
		return "", fmt.Errorf("resolve %s: %w (IPv6 literal)", host, ErrNoAddress)
	}
	if len(r.Servers) == 0 {
		return "", errors.New("resolve: no nameservers configured")
	}

	name := dns.Fqdn(host)
	for hop := 0; hop < maxCNAMEHops; hop++ {
		answer, err := r.query(ctx, name)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", host, err)
		}
		var next string
		for _, rr := range answer {
			switch v := rr.(type) {
			case *dns.A:
				return v.A.String(), nil
			case *dns.CNAME:
				if strings.EqualFold(v.Hdr.Name, name) {
					next = v.Target
				}
			}
		}
		if next == "" {
			return "", fmt.Errorf("resolve %s: %w", host, ErrNoAddress)
		}
		name = next
	}
	return "", fmt.Errorf("resolve %s: CNAME chain longer than %d", host, maxCNAMEHops)
}

// query 依次询问各服务器，返回第一个成功的应答。
func (r *Resolver) query(ctx context.Context, name string) ([]dns.RR, error) {
	c := &dns.Client{Timeout: r.Timeout}
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeA)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.Servers {
		resp, _, err := c.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
			continue
		}
		return resp.Answer, nil
	}
	return nil, lastErr
}
