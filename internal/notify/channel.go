package notify

import (
	"context"
	"errors"
	"fmt"
)

// NotificationChannel 通知渠道需要实现的接口。
type NotificationChannel interface {
	Send(ctx context.Context, msg Message) error
}

// BuildChannel 根据配置创建具体渠道。Type 为空时，有 WebhookURL 选 webhook，否则选 bot。
func BuildChannel(cfg ChannelConfig) (NotificationChannel, error) {
	typ := cfg.Type
	if typ == "" {
		typ = ChannelDiscordBot
		if cfg.WebhookURL != "" {
			typ = ChannelDiscordWebhook
		}
	}
	switch typ {
	case ChannelDiscordBot:
		if cfg.BotToken == "" {
			return nil, errors.New("discord bot token required")
		}
		if cfg.ChannelID == "" {
			return nil, errors.New("discord channel id required")
		}
		return newDiscordBotChannel(cfg), nil
	case ChannelDiscordWebhook:
		if cfg.WebhookURL == "" {
			return nil, errors.New("discord webhook_url required")
		}
		return newDiscordWebhookChannel(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", typ)
	}
}
