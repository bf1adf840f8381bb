package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ngrokdns/internal/config"
	"ngrokdns/internal/dnssync"
	"ngrokdns/internal/dynu"
	"ngrokdns/internal/endpoint"
	"ngrokdns/internal/notify"
	"ngrokdns/internal/resolve"
	"ngrokdns/internal/store"
	"ngrokdns/internal/tunnel"
)

// ErrConfigMissing 表示未传入配置。
var ErrConfigMissing = errors.New("pipeline: config required")

// Builder 使用流式接口构建 Pipeline 实例。
type Builder struct {
	cfg        *config.Config
	tunnel     Tunnel
	syncer     Syncer
	notifier   Notifier
	store      StatusStore
	logger     *log.Logger
	descriptor *string
}

// NewBuilder 基于配置创建 Builder。
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, logger: log.Default()}
}

// WithTunnel 注入隧道实现；默认根据 NGROK_SETTINGS 创建 ngrok 进程管理器。
func (b *Builder) WithTunnel(t Tunnel) *Builder {
	b.tunnel = t
	return b
}

// WithDescriptor 跳过 ngrok，直接使用给定的描述符（一次性同步）。
func (b *Builder) WithDescriptor(descriptor string) *Builder {
	b.descriptor = &descriptor
	return b
}

// WithSyncer 注入 DNS 同步实现；默认使用 Dynu。
func (b *Builder) WithSyncer(s Syncer) *Builder {
	b.syncer = s
	return b
}

// WithNotifier 注入通知实现；默认根据 DISCORD_UPDATES 创建。
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithStore 设置持久化存储（可选）。
func (b *Builder) WithStore(s StatusStore) *Builder {
	b.store = s
	return b
}

// WithLogger 设置日志器；默认 log.Default()。
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// Build 生成 Pipeline。缺少关键配置时不报错，由 Run 进入 Aborted。
func (b *Builder) Build() (*Pipeline, error) {
	if b.cfg == nil {
		return nil, ErrConfigMissing
	}
	cfg := b.cfg
	p := &Pipeline{
		cfg:      cfg,
		tunnel:   b.tunnel,
		syncer:   b.syncer,
		notifier: b.notifier,
		store:    b.store,
		logger:   b.logger,
		interval: cfg.Readiness.PollInterval,
		timeout:  cfg.Readiness.Timeout,
	}

	if b.descriptor != nil {
		p.tunnel = staticTunnel(*b.descriptor)
		p.skipTunnelCheck = true
	}
	if p.tunnel == nil && cfg.CheckTunnel() == nil {
		m, err := tunnel.NewManager(tunnel.Config{
			AuthToken: cfg.Ngrok.AuthToken,
			Region:    cfg.Ngrok.Region,
			Bin:       cfg.Ngrok.Bin,
			LogFile:   cfg.Ngrok.LogFile,
			APIAddr:   cfg.Ngrok.APIAddr,
			Source:    cfg.Ngrok.DescriptorSource,
		}, b.logger)
		if err != nil {
			return nil, fmt.Errorf("create tunnel manager: %w", err)
		}
		p.tunnel = m
	}

	if p.syncer == nil && cfg.Dynu.Enabled {
		client := dynu.NewClient()
		if cfg.Dynu.BaseURL != "" {
			if err := client.SetBaseURL(cfg.Dynu.BaseURL); err != nil {
				return nil, fmt.Errorf("dynu base url: %w", err)
			}
		}
		p.syncer = dnssync.New(client, resolve.New(), b.logger, dnssync.Options{
			AddressNode:   cfg.Dynu.NodeName,
			ServiceNode:   cfg.Dynu.ServiceName,
			ServiceTarget: cfg.Dynu.ServiceTarget,
			TTL:           cfg.Dynu.TTL,
			Priority:      cfg.Dynu.Priority,
			Weight:        cfg.Dynu.Weight,
		})
	}

	if p.notifier == nil && cfg.Discord.Enabled && cfg.CheckNotify() == nil {
		ch, err := notify.BuildChannel(notify.ChannelConfig{
			BotToken:   cfg.Discord.BotToken,
			ChannelID:  cfg.Discord.UpdateChannelID,
			WebhookURL: cfg.Discord.WebhookURL,
		})
		if err != nil {
			return nil, fmt.Errorf("build notification channel: %w", err)
		}
		p.notifier = notify.NewNotifier(ch, cfg.Discord.UpdateMessage, notify.WithLogger(b.logger))
	}
	return p, nil
}

// staticTunnel 把固定描述符当作已启动的隧道。
type staticTunnel string

func (s staticTunnel) Start(ctx context.Context, localPort int) error { return nil }

func (s staticTunnel) Stop() error { return nil }

func (s staticTunnel) Source() endpoint.ReadFunc {
	return func(context.Context) (string, error) { return string(s), nil }
}

var _ StatusStore = (*store.Store)(nil)

// readinessDefaults 在配置为零值时使用。
func readinessDefaults(interval, timeout time.Duration) (time.Duration, time.Duration) {
	if interval <= 0 {
		interval = endpoint.DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = endpoint.DefaultWaitTimeout
	}
	return interval, timeout
}
