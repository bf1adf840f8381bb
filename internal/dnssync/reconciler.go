// Package dnssync 把 Dynu 区域中的 A 和 SRV 记录指向当前隧道地址。
package dnssync

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"

	"ngrokdns/internal/dynu"
	"ngrokdns/internal/endpoint"
	"ngrokdns/internal/metrics"
)

const (
	DefaultPriority    = 10
	DefaultWeight      = 5
	defaultCallTimeout = 10 * time.Second
)

// Provider 是同步器用到的 Dynu 客户端方法。
type Provider interface {
	Exchange(ctx context.Context, creds dynu.Credentials) (dynu.Token, error)
	ListZones(ctx context.Context, token dynu.Token) ([]dynu.Zone, error)
	ListRecords(ctx context.Context, token dynu.Token, zoneID int64) ([]dynu.Record, error)
	UpdateRecord(ctx context.Context, token dynu.Token, zoneID, recordID int64, payload dynu.RecordUpdate) error
}

// Resolver 把隧道主机名解析为 IPv4 地址。
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (string, error)
}

// Logger 与 *log.Logger 兼容。
type Logger interface {
	Printf(format string, v ...any)
}

// Options 控制记录选择和更新内容。
type Options struct {
	AddressNode   string // A 记录节点名，默认 "mcngrok"
	ServiceNode   string // SRV 记录节点名，默认 "_minecraft._tcp"
	ServiceTarget string // SRV 目标主机，默认 "<AddressNode>.<zone>"
	TTL           int
	Priority      int
	Weight        int
	CallTimeout   time.Duration
	Retry         RetryConfig
}

func (o Options) withDefaults() Options {
	if o.AddressNode == "" {
		o.AddressNode = DefaultAddressNode
	}
	if o.ServiceNode == "" {
		o.ServiceNode = DefaultServiceNode
	}
	if o.TTL <= 0 {
		o.TTL = dynu.DefaultTTL
	}
	if o.Priority <= 0 {
		o.Priority = DefaultPriority
	}
	if o.Weight <= 0 {
		o.Weight = DefaultWeight
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = DefaultRetryConfig()
	}
	return o
}

// UpdateRequest 一次同步中发出的更新请求。
type UpdateRequest struct {
	Role     Role
	ZoneID   int64
	RecordID int64
	Payload  dynu.RecordUpdate
}

// SyncResult 一次同步的结果。Errors 收集所有失败；
// 更新前（令牌、区域、记录）出错会结束本次同步。
type SyncResult struct {
	ZoneID         int64
	ZoneName       string
	AddressUpdated bool
	ServiceUpdated bool
	Requests       []UpdateRequest
	Warnings       []string
	Errors         []error
}

// Err 合并本次同步的全部错误，没有错误时返回 nil。
func (r SyncResult) Err() error {
	var merr *multierror.Error
	for _, err := range r.Errors {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// Updated 是否至少有一条记录已指向新地址。
func (r SyncResult) Updated() bool {
	return r.AddressUpdated || r.ServiceUpdated
}

// Outcome 返回 updated、partial、failed 或 noop。
func (r SyncResult) Outcome() string {
	switch {
	case r.Updated() && len(r.Errors) == 0:
		return "updated"
	case r.Updated():
		return "partial"
	case len(r.Errors) > 0:
		return "failed"
	default:
		return "noop"
	}
}

func (r *SyncResult) warnf(format string, v ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, v...))
}

// Reconciler 顺序执行换取令牌、查询区域和记录、匹配、更新。
// 两次同步之间不保留状态。
type Reconciler struct {
	provider Provider
	resolver Resolver
	logger   Logger
	opts     Options
	matcher  Matcher
}

// New 创建 Reconciler。resolver 为 nil 时只接受 IPv4 字面量主机；
// logger 为 nil 时使用 log.Default()。
func New(provider Provider, resolver Resolver, logger Logger, opts Options) *Reconciler {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		provider: provider,
		resolver: resolver,
		logger:   logger,
		opts:     opts,
		matcher:  Matcher{AddressNode: opts.AddressNode, ServiceNode: opts.ServiceNode},
	}
}

// Reconcile 在 zoneHint 指定的区域（为空时取第一个区域）中
// 把 A 记录指向 ep.Host，把 SRV 记录指向 ep.Port。
func (r *Reconciler) Reconcile(ctx context.Context, creds dynu.Credentials, zoneHint string, ep endpoint.Endpoint) SyncResult {
	res := r.reconcile(ctx, creds, zoneHint, ep)
	metrics.SyncTotal.WithLabelValues(res.Outcome()).Inc()
	return res
}

func (r *Reconciler) reconcile(ctx context.Context, creds dynu.Credentials, zoneHint string, ep endpoint.Endpoint) SyncResult {
	var res SyncResult

	token, err := withRetry(ctx, r.opts.Retry, r.logger, "token exchange", func(ctx context.Context) (dynu.Token, error) {
		cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
		return r.provider.Exchange(cctx, creds)
	})
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	zones, err := withRetry(ctx, r.opts.Retry, r.logger, "list zones", func(ctx context.Context) ([]dynu.Zone, error) {
		cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
		return r.provider.ListZones(cctx, token)
	})
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	zone, err := selectZone(zones, zoneHint, &res)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	res.ZoneID, res.ZoneName = zone.ID, zone.Name

	records, err := withRetry(ctx, r.opts.Retry, r.logger, "list records", func(ctx context.Context) ([]dynu.Record, error) {
		cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
		return r.provider.ListRecords(cctx, token, zone.ID)
	})
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	match := r.matcher.Match(records)
	for _, role := range []Role{RoleAddress, RoleService} {
		n := match.Duplicates[role]
		if n == 0 {
			continue
		}
		res.warnf("%d extra %s records match in zone %s; updating the one with the lowest id", n, role, zone.Name)
	}

	if match.Address == nil {
		res.warnf("no A record named %q in zone %s; create it to publish the tunnel address", r.opts.AddressNode, zone.Name)
	} else if payload, err := r.addressPayload(ctx, match.Address, ep); err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("address record %d: %w", match.Address.ID, err))
		metrics.RecordUpdates.WithLabelValues(string(RoleAddress), "error").Inc()
	} else {
		res.AddressUpdated = r.update(ctx, token, &res, UpdateRequest{Role: RoleAddress, ZoneID: zone.ID, RecordID: match.Address.ID, Payload: payload})
	}

	if match.Service == nil {
		res.warnf("no SRV record named %q in zone %s; clients must use the port explicitly", r.opts.ServiceNode, zone.Name)
	} else if payload, err := r.servicePayload(match.Service, zone, ep); err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("service record %d: %w", match.Service.ID, err))
		metrics.RecordUpdates.WithLabelValues(string(RoleService), "error").Inc()
	} else {
		res.ServiceUpdated = r.update(ctx, token, &res, UpdateRequest{Role: RoleService, ZoneID: zone.ID, RecordID: match.Service.ID, Payload: payload})
	}

	return res
}

func (r *Reconciler) update(ctx context.Context, token dynu.Token, res *SyncResult, req UpdateRequest) bool {
	res.Requests = append(res.Requests, req)

	cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()
	if err := r.provider.UpdateRecord(cctx, token, req.ZoneID, req.RecordID, req.Payload); err != nil {
		res.Errors = append(res.Errors, err)
		metrics.RecordUpdates.WithLabelValues(string(req.Role), "error").Inc()
		return false
	}
	metrics.RecordUpdates.WithLabelValues(string(req.Role), "ok").Inc()
	return true
}

func (r *Reconciler) addressPayload(ctx context.Context, rec *dynu.Record, ep endpoint.Endpoint) (dynu.RecordUpdate, error) {
	ip, err := r.lookupIPv4(ctx, ep.Host)
	if err != nil {
		return dynu.RecordUpdate{}, err
	}
	return dynu.NewAddressUpdate(rec.NodeName, ip, r.opts.TTL), nil
}

func (r *Reconciler) lookupIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		return ip.To4().String(), nil
	}
	if r.resolver == nil {
		return "", fmt.Errorf("host %q is not an IPv4 address and no resolver is configured", host)
	}
	cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()
	return r.resolver.LookupIPv4(cctx, host)
}

func (r *Reconciler) servicePayload(rec *dynu.Record, zone dynu.Zone, ep endpoint.Endpoint) (dynu.RecordUpdate, error) {
	target := r.opts.ServiceTarget
	if target == "" {
		target = joinName(r.opts.AddressNode, zone.Name)
	}
	target = strings.TrimSuffix(target, ".")
	if !validHostname(target) {
		return dynu.RecordUpdate{}, fmt.Errorf("invalid SRV target %q", target)
	}
	return dynu.NewServiceUpdate(rec.NodeName, target, ep.Port, r.opts.Priority, r.opts.Weight, r.opts.TTL), nil
}

// selectZone 返回名为 hint 的区域，hint 为空时返回第一个。
func selectZone(zones []dynu.Zone, hint string, res *SyncResult) (dynu.Zone, error) {
	if len(zones) == 0 {
		return dynu.Zone{}, &dynu.ProviderError{Op: "select zone", Reason: "account has no DNS zones"}
	}
	hint = strings.TrimSuffix(strings.TrimSpace(hint), ".")
	if hint == "" {
		if len(zones) > 1 {
			res.warnf("%d zones returned and none configured; using %s", len(zones), zones[0].Name)
		}
		return zones[0], nil
	}
	for _, z := range zones {
		if strings.EqualFold(strings.TrimSuffix(z.Name, "."), hint) {
			return z, nil
		}
	}
	return dynu.Zone{}, &dynu.ProviderError{Op: "select zone", Reason: fmt.Sprintf("zone %q not found among %d zones", hint, len(zones))}
}

// validHostname 只接受由字母、数字、连字符和下划线组成的标签。
func validHostname(name string) bool {
	if _, ok := dns.IsDomainName(name); !ok || name == "" {
		return false
	}
	for _, label := range dns.SplitDomainName(name) {
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}

func joinName(node, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if node == "" {
		return zone
	}
	return node + "." + zone
}
