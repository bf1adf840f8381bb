package notify

import (
	"context"
	"log"
	"strings"
	"time"

	"ngrokdns/internal/endpoint"
)

const defaultSendTimeout = 8 * time.Second

// Render 把模板中的占位符替换为 host:port。
func Render(template string, ep endpoint.Endpoint) string {
	return strings.ReplaceAll(template, Placeholder, ep.String())
}

// Notifier 把新的公网地址发送到一个渠道。
type Notifier struct {
	channel     NotificationChannel
	template    string
	logger      Logger
	sendTimeout time.Duration
}

// Option 自定义 Notifier。
type Option func(*Notifier)

// WithLogger 设置自定义日志。
func WithLogger(l Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithSendTimeout 设置单次发送超时时间。
func WithSendTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.sendTimeout = d
		}
	}
}

// NewNotifier 创建 Notifier。
func NewNotifier(ch NotificationChannel, template string, opts ...Option) *Notifier {
	n := &Notifier{
		channel:     ch,
		template:    template,
		logger:      log.Default(),
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify 渲染模板并发送。模板为空时返回 ErrEmptyTemplate。
func (n *Notifier) Notify(ctx context.Context, ep endpoint.Endpoint) error {
	if strings.TrimSpace(n.template) == "" {
		return ErrEmptyTemplate
	}
	ctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()

	msg := Message{
		Content:    Render(n.template, ep),
		Address:    ep.String(),
		OccurredAt: time.Now(),
	}
	if err := n.channel.Send(ctx, msg); err != nil {
		return err
	}
	n.logger.Printf("update message sent for %s", msg.Address)
	return nil
}
