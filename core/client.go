package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.weixin.qq.com"
	DefaultTimeout = 30 * time.Second
)

// Response 单次 HTTP 调用的原始结果
type Response struct {
	StatusCode int
	Body       []byte
}

// ClientConfig HTTP 客户端配置
type ClientConfig struct {
	// BaseURL 接口域名（可选，默认 DefaultBaseURL）
	BaseURL string
	// HTTPClient 自定义 HTTP 客户端（可选）
	HTTPClient *http.Client
	// TokenProvider access_token 提供者（可选，不设置时仅能发送免 token 请求）
	TokenProvider AccessTokenProvider
	// Logger 日志记录器（可选，默认使用 slog.Default()）
	Logger *slog.Logger
}

// Client 微信 API HTTP 客户端
// 负责 URL 拼接、access_token 注入与请求/响应日志，不包含重试逻辑。
type Client struct {
	httpClient    *http.Client
	baseURL       *url.URL
	tokenProvider AccessTokenProvider
	logger        *slog.Logger
}

// NewClient 创建 HTTP 客户端
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       parsedBaseURL,
		tokenProvider: cfg.TokenProvider,
		logger:        logger,
	}, nil
}

// Logger 返回客户端使用的日志记录器
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// TokenProvider 返回客户端使用的 access_token 提供者
func (c *Client) TokenProvider() AccessTokenProvider {
	return c.tokenProvider
}

// Request 创建请求构建器
func (c *Client) Request() *RequestBuilder {
	return newRequestBuilder(c)
}

func (c *Client) buildURL(path string, query map[string]string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}

	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		values := u.Query()
		for key, value := range query {
			values.Set(key, value)
		}
		u.RawQuery = values.Encode()
	}

	return u.String(), nil
}

// buildParams 合并查询参数，按需注入 access_token
func (c *Client) buildParams(ctx context.Context, query map[string]string, withToken bool) (map[string]string, error) {
	params := make(map[string]string, len(query)+1)
	for k, v := range query {
		params[k] = v
	}
	if !withToken {
		return params, nil
	}

	if c.tokenProvider == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	params["access_token"] = token
	return params, nil
}

// doRequest 执行一次 HTTP 请求并读取完整响应体
func (c *Client) doRequest(ctx context.Context, method, path string, params map[string]string, body any) (*Response, error) {
	reqURL, err := c.buildURL(path, params)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var reqBody io.Reader
	var rawBody []byte
	if body != nil {
		switch v := body.(type) {
		case []byte:
			rawBody = v
		case json.RawMessage:
			rawBody = v
		default:
			rawBody, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request body: %w", err)
			}
		}
		reqBody = bytes.NewReader(rawBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if rawBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logRequest(ctx, method, reqURL, rawBody)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logResponse(ctx, resp.StatusCode, respBody)

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func (c *Client) logRequest(ctx context.Context, method, rawURL string, body []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("url", RedactURLQuery(rawURL)),
	}
	if len(body) > 0 {
		attrs = append(attrs, slog.Int("body_size", len(body)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "http request", attrs...)
}

func (c *Client) logResponse(ctx context.Context, statusCode int, body []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{slog.Int("status", statusCode)}
	if len(body) > 0 {
		attrs = append(attrs, slog.String("body", truncateBody(body, 1024)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "http response", attrs...)
}
