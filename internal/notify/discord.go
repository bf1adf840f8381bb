package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type discordBotChannel struct {
	baseURL   string
	token     string
	channelID string
	client    *http.Client
}

func newDiscordBotChannel(cfg ChannelConfig) *discordBotChannel {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultDiscordAPI
	}
	return &discordBotChannel{
		baseURL:   strings.TrimSuffix(base, "/"),
		token:     cfg.BotToken,
		channelID: cfg.ChannelID,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Send 通过 bot 向频道发送消息：POST /channels/{id}/messages。
func (d *discordBotChannel) Send(ctx context.Context, msg Message) error {
	target := fmt.Sprintf("%s/channels/%s/messages", d.baseURL, url.PathEscape(d.channelID))
	return postContent(ctx, d.client, target, "Bot "+d.token, msg)
}

type discordWebhookChannel struct {
	webhookURL string
	client     *http.Client
}

func newDiscordWebhookChannel(cfg ChannelConfig) *discordWebhookChannel {
	return &discordWebhookChannel{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *discordWebhookChannel) Send(ctx context.Context, msg Message) error {
	return postContent(ctx, w.client, w.webhookURL, "", msg)
}

func postContent(ctx context.Context, client *http.Client, target, auth string, msg Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len([]rune(msg.Content)) > maxContentLength {
		return fmt.Errorf("discord message exceeds %d characters", maxContentLength)
	}
	data, err := json.Marshal(map[string]string{"content": msg.Content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var res struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(b, &res) == nil && res.Message != "" {
			return fmt.Errorf("discord status %d: %s (code %d)", resp.StatusCode, res.Message, res.Code)
		}
		return fmt.Errorf("discord status %d", resp.StatusCode)
	}
	return nil
}
