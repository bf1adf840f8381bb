package dynu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL Dynu REST API 根地址。
const DefaultBaseURL = "https://api.dynu.com/v2"

const maxErrorBody = 1024

// Client Dynu REST API 客户端。本身不保存凭据，每次调用都传入令牌。
type Client struct {
	baseURL    *url.URL
	HTTPClient *http.Client
}

// NewClient 创建指向 DefaultBaseURL 的客户端。
func NewClient() *Client {
	baseURL, _ := url.Parse(DefaultBaseURL)
	return &Client{
		baseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL 修改 API 根地址。
func (c *Client) SetBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q: scheme and host required", raw)
	}
	c.baseURL = u
	return nil
}

// Exchange 用 HTTP Basic 认证以 client id 和 secret 换取 bearer 令牌。
func (c *Client) Exchange(ctx context.Context, creds Credentials) (Token, error) {
	if creds.ClientID == "" || creds.Secret == "" {
		return Token{}, &AuthError{Reason: "client id and secret are required"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath("oauth2", "token").String(), nil)
	if err != nil {
		return Token{}, &AuthError{Err: err}
	}
	req.SetBasicAuth(creds.ClientID, creds.Secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Token{}, &AuthError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return Token{}, &AuthError{StatusCode: resp.StatusCode, Reason: errorReason(resp.Body)}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, &AuthError{StatusCode: resp.StatusCode, Reason: "malformed token response", Err: err}
	}
	if body.AccessToken == "" {
		return Token{}, &AuthError{StatusCode: resp.StatusCode, Reason: "response has no access_token"}
	}

	return Token{
		Value:      body.AccessToken,
		ObtainedAt: time.Now(),
		ExpiresIn:  time.Duration(body.ExpiresIn) * time.Second,
	}, nil
}

// ListZones 返回账户下的全部 DNS 域。
func (c *Client) ListZones(ctx context.Context, token Token) ([]Zone, error) {
	const op = "list zones"
	endpoint := c.baseURL.JoinPath("dns")

	raw, status, err := c.do(ctx, op, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	zones, err := decodeList[Zone](raw, "domains")
	if err != nil {
		return nil, &ProviderError{Op: op, StatusCode: status, Reason: "malformed response", Err: err}
	}
	return zones, nil
}

// ListRecords 返回一个区域的记录。
func (c *Client) ListRecords(ctx context.Context, token Token, zoneID int64) ([]Record, error) {
	const op = "list records"
	endpoint := c.baseURL.JoinPath("dns", strconv.FormatInt(zoneID, 10), "record")

	raw, status, err := c.do(ctx, op, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList[Record](raw, "dnsRecords")
	if err != nil {
		return nil, &ProviderError{Op: op, StatusCode: status, Reason: "malformed response", Err: err}
	}
	return records, nil
}

// UpdateRecord 用 payload 覆盖已有记录。
func (c *Client) UpdateRecord(ctx context.Context, token Token, zoneID, recordID int64, payload RecordUpdate) error {
	op := fmt.Sprintf("update %s record %d", payload.RecordType, recordID)
	endpoint := c.baseURL.JoinPath("dns", strconv.FormatInt(zoneID, 10), "record", strconv.FormatInt(recordID, 10))

	raw, status, err := c.do(ctx, op, http.MethodPost, endpoint, token, payload)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return &ProviderError{Op: op, StatusCode: status, Reason: "malformed response"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method string, endpoint *url.URL, token Token, payload any) ([]byte, int, error) {
	req, err := newJSONRequest(ctx, method, endpoint, token, payload)
	if err != nil {
		return nil, 0, &ProviderError{Op: op, Err: err}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, &ProviderError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, resp.StatusCode, &ProviderError{Op: op, StatusCode: resp.StatusCode, Reason: errorReason(resp.Body)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &ProviderError{Op: op, StatusCode: resp.StatusCode, Reason: "read response", Err: err}
	}
	return raw, resp.StatusCode, nil
}

func newJSONRequest(ctx context.Context, method string, endpoint *url.URL, token Token, payload any) (*http.Request, error) {
	if token.Value == "" {
		return nil, errors.New("missing bearer token")
	}

	var body io.Reader
	if payload != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("failed to create request JSON body: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Value)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decodeList 同时接受裸 JSON 数组和带外层的响应
// ({"statusCode":200,"<field>":[...]})。
func decodeList[T any](raw []byte, field string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	var out []T
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	items, ok := envelope[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", field)
	}
	if err := json.Unmarshal(items, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// errorReason 从错误响应中提取 message，取不到时返回原文。
func errorReason(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var apiErr struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Type != "" {
			return apiErr.Type + ": " + apiErr.Message
		}
		return apiErr.Message
	}
	return strings.TrimSpace(string(b))
}
