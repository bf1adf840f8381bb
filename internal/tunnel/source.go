package tunnel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ngrokdns/internal/endpoint"
)

// ErrNoDescriptor 表示来源中暂时还没有 tcp:// 地址。
var ErrNoDescriptor = errors.New("tunnel: no tcp descriptor published yet")

// LogFileSource 从 ngrok 日志文件读取描述符。
type LogFileSource struct {
	Path string
}

// Read 返回日志中最后一行包含 tcp:// 的内容。
func (s LogFileSource) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoDescriptor
		}
		return "", fmt.Errorf("open ngrok log: %w", err)
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); strings.Contains(line, endpoint.Marker) {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read ngrok log: %w", err)
	}
	if last == "" {
		return "", ErrNoDescriptor
	}
	return last, nil
}

// APISource 查询 ngrok 本地 API（GET /api/tunnels）。
type APISource struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPISource 创建本地 API 来源。
func NewAPISource(baseURL string) *APISource {
	if baseURL == "" {
		baseURL = DefaultAPIAddr
	}
	return &APISource{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Read 返回第一条 tcp 隧道的 public_url。
func (s *APISource) Read(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/api/tunnels", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		// ngrok 启动初期 API 尚未监听
		return "", fmt.Errorf("%w: %v", ErrNoDescriptor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ngrok api error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var list apiTunnelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("decode ngrok api response: %w", err)
	}
	for _, t := range list.Tunnels {
		if t.Proto == "tcp" || strings.HasPrefix(t.PublicURL, endpoint.Marker) {
			return t.PublicURL, nil
		}
	}
	return "", ErrNoDescriptor
}
