package notify

import (
	"errors"
	"time"
)

// 渠道类型。
const (
	ChannelDiscordBot     = "discord_bot"
	ChannelDiscordWebhook = "discord_webhook"
)

// Placeholder 在消息模板中被替换为 host:port。
const Placeholder = "%server_ip%"

// DefaultDiscordAPI 是 Discord REST API 的基础地址。
const DefaultDiscordAPI = "https://discord.com/api/v10"

// Discord 单条消息的最大长度。
const maxContentLength = 2000

// ErrEmptyTemplate 表示未配置更新消息，本次不发送。
var ErrEmptyTemplate = errors.New("notify: update message is empty")

// Message 发送给渠道的消息。
type Message struct {
	Content    string
	Address    string // host:port
	OccurredAt time.Time
}

// ChannelConfig 描述一个通知渠道。
type ChannelConfig struct {
	Type       string
	BotToken   string // discord_bot 使用
	ChannelID  string // discord_bot 使用
	WebhookURL string // discord_webhook 使用
	BaseURL    string // 可选，默认 DefaultDiscordAPI
}

// Logger 抽象日志接口，兼容标准 log.Logger。
type Logger interface {
	Printf(format string, v ...interface{})
}
