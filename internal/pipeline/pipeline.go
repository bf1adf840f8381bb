// Package pipeline 执行一次完整流程：启动隧道、获取地址、同步 DNS、发送通知。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"ngrokdns/internal/config"
	"ngrokdns/internal/dnssync"
	"ngrokdns/internal/dynu"
	"ngrokdns/internal/endpoint"
	"ngrokdns/internal/metrics"
	"ngrokdns/internal/notify"
	"ngrokdns/internal/store"
)

// Tunnel 隧道进程。
type Tunnel interface {
	Start(ctx context.Context, localPort int) error
	Stop() error
	Source() endpoint.ReadFunc
}

// Syncer 把 DNS 记录同步到新地址。
type Syncer interface {
	Reconcile(ctx context.Context, creds dynu.Credentials, zoneHint string, ep endpoint.Endpoint) dnssync.SyncResult
}

// Notifier 发送地址通知。
type Notifier interface {
	Notify(ctx context.Context, ep endpoint.Endpoint) error
}

// StatusStore 保存流程结果和配置快照。
type StatusStore interface {
	SaveStatus(ctx context.Context, st store.SyncStatus) error
	SaveSettings(ctx context.Context, settings []store.Setting) error
}

// Result Run 返回的结果，返回后不再修改。
type Result struct {
	State    State
	Trace    []State
	Endpoint endpoint.Endpoint
	Sync     *dnssync.SyncResult
	Notified bool
	Warnings []string
	Err      error // State 为 StateAborted 时的致命错误
}

// HasEndpoint 是否获取到了公网地址。
func (r Result) HasEndpoint() bool {
	return r.Endpoint.Host != ""
}

// Pipeline 持有一次流程的各组件，每次运行构建一次。
type Pipeline struct {
	cfg             *config.Config
	tunnel          Tunnel
	syncer          Syncer
	notifier        Notifier
	store           StatusStore
	logger          *log.Logger
	interval        time.Duration
	timeout         time.Duration
	skipTunnelCheck bool
	started         bool
}

type pass struct {
	p   *Pipeline
	res Result
}

func (ps *pass) enter(s State) {
	if len(ps.res.Trace) > 0 && !canTransition(ps.res.State, s) {
		ps.p.logger.Printf("ERROR: invalid transition %s -> %s", ps.res.State, s)
	}
	ps.res.State = s
	ps.res.Trace = append(ps.res.Trace, s)
}

func (ps *pass) warn(format string, v ...any) {
	ps.p.logger.Printf("WARNING: "+format, v...)
	ps.res.Warnings = append(ps.res.Warnings, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (ps *pass) abort(err error) Result {
	ps.p.logger.Printf("ERROR: %v. Shutting down...", err)
	ps.res.Err = err
	ps.enter(StateAborted)
	return ps.finish()
}

// Run 执行一次流程。只有配置错误和隧道无法启动会中止，
// 其余失败只跳过对应步骤。
func (p *Pipeline) Run(ctx context.Context) Result {
	ps := &pass{p: p}
	ps.enter(StateIdle)

	if !p.skipTunnelCheck {
		if err := p.cfg.CheckTunnel(); err != nil {
			return ps.abort(err)
		}
	}
	if err := p.cfg.CheckNotify(); err != nil {
		return ps.abort(err)
	}

	if err := p.tunnel.Start(ctx, p.cfg.Server.Port); err != nil {
		return ps.abort(err)
	}
	p.started = true
	ps.enter(StateTunnelUp)

	ep, err := p.discover(ctx)
	if err != nil {
		ps.warn("no public endpoint: %v; skipping DNS sync and notification", err)
		ps.enter(StateDNSSkipped)
		ps.enter(StateNotifySkipped)
		ps.enter(StateReady)
		return ps.finish()
	}
	ps.res.Endpoint = ep

	if p.syncDNS(ctx, ps, ep) {
		ps.enter(StateDNSSynced)
	} else {
		ps.enter(StateDNSSkipped)
	}

	if p.notify(ctx, ps, ep) {
		ps.res.Notified = true
		ps.enter(StateNotified)
	} else {
		ps.enter(StateNotifySkipped)
	}

	ps.enter(StateReady)
	p.logger.Printf("Listening server on port %d, public address: %s", p.cfg.Server.Port, ep)
	return ps.finish()
}

func (p *Pipeline) discover(ctx context.Context) (endpoint.Endpoint, error) {
	if st, ok := p.tunnel.(staticTunnel); ok {
		return endpoint.Parse(string(st))
	}
	interval, timeout := readinessDefaults(p.interval, p.timeout)
	start := time.Now()
	ep, err := endpoint.Await(ctx, p.tunnel.Source(), interval, timeout)
	metrics.DescriptorWait.Observe(time.Since(start).Seconds())
	return ep, err
}

func (p *Pipeline) syncDNS(ctx context.Context, ps *pass, ep endpoint.Endpoint) bool {
	if !p.cfg.Dynu.Enabled || p.syncer == nil {
		return false
	}
	creds := dynu.Credentials{ClientID: p.cfg.Dynu.ClientID, Secret: p.cfg.Dynu.Secret}
	res := p.syncer.Reconcile(ctx, creds, p.cfg.Dynu.Zone, ep)
	ps.res.Sync = &res

	for _, w := range res.Warnings {
		ps.warn("%s", w)
	}
	if err := res.Err(); err != nil {
		ps.warn("dns sync: %v", err)
	}
	if res.Updated() {
		p.logger.Printf("dns records in %s now point at %s (address: %t, service: %t)", res.ZoneName, ep, res.AddressUpdated, res.ServiceUpdated)
	}
	return res.Updated()
}

func (p *Pipeline) notify(ctx context.Context, ps *pass, ep endpoint.Endpoint) bool {
	if !p.cfg.Discord.Enabled || p.notifier == nil {
		return false
	}
	if err := p.notifier.Notify(ctx, ep); err != nil {
		if errors.Is(err, notify.ErrEmptyTemplate) {
			ps.warn("IP update message is missing in the config. Update message not sent.")
		} else {
			ps.warn("send update message: %v", err)
		}
		return false
	}
	return true
}

func (ps *pass) finish() Result {
	p := ps.p
	metrics.PassTotal.WithLabelValues(string(ps.res.State)).Inc()
	if p.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.store.SaveStatus(ctx, statusOf(ps.res)); err != nil {
			p.logger.Printf("WARNING: save status: %v", err)
		}
	}
	return ps.res
}

func statusOf(res Result) store.SyncStatus {
	st := store.SyncStatus{
		State:    string(res.State),
		Notified: res.Notified,
		Warnings: res.Warnings,
	}
	if res.HasEndpoint() {
		st.Address = res.Endpoint.String()
	}
	var errs []string
	if res.Err != nil {
		errs = append(errs, res.Err.Error())
	}
	if res.Sync != nil {
		st.Zone = res.Sync.ZoneName
		st.AddressUpdated = res.Sync.AddressUpdated
		st.ServiceUpdated = res.Sync.ServiceUpdated
		for _, err := range res.Sync.Errors {
			errs = append(errs, err.Error())
		}
	}
	st.LastError = strings.Join(errs, "; ")
	return st
}

// Shutdown 停止隧道并保存配置快照，错误只记录日志。
func (p *Pipeline) Shutdown(ctx context.Context) {
	if p.started && p.tunnel != nil {
		if err := p.tunnel.Stop(); err != nil {
			p.logger.Printf("WARNING: stop tunnel: %v", err)
		}
		p.started = false
	}
	if p.store == nil {
		return
	}
	if err := p.store.SaveSettings(ctx, settingsOf(p.cfg)); err != nil {
		p.logger.Printf("WARNING: save settings: %v", err)
	}
}

// Done 在隧道进程退出时关闭；不报告退出的隧道返回 nil。
func (p *Pipeline) Done() <-chan struct{} {
	if t, ok := p.tunnel.(interface{ Exited() <-chan struct{} }); ok {
		return t.Exited()
	}
	return nil
}

func settingsOf(cfg *config.Config) []store.Setting {
	return []store.Setting{
		{Key: "ngrok.region", Value: cfg.Ngrok.Region},
		{Key: "ngrok.descriptor_source", Value: cfg.Ngrok.DescriptorSource},
		{Key: "ngrok.auth_token", Value: cfg.Ngrok.AuthToken, Secret: true},
		{Key: "dynu.enabled", Value: strconv.FormatBool(cfg.Dynu.Enabled)},
		{Key: "dynu.zone", Value: cfg.Dynu.Zone},
		{Key: "dynu.node_name", Value: cfg.Dynu.NodeName},
		{Key: "dynu.service_name", Value: cfg.Dynu.ServiceName},
		{Key: "dynu.client_id", Value: cfg.Dynu.ClientID, Secret: true},
		{Key: "discord.enabled", Value: strconv.FormatBool(cfg.Discord.Enabled)},
		{Key: "discord.update_channel_id", Value: cfg.Discord.UpdateChannelID},
		{Key: "server.port", Value: strconv.Itoa(cfg.Server.Port)},
	}
}
