// Package shop 微信视频号小店客户端
// 在 core 之上封装小店商品、类目与图片接口，token 生命周期
// 由 core.TokenManager 统一管理。
package shop

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/calvinCq/product-upload/core"
)

const (
	accessTokenPath           = "/cgi-bin/token"
	accessTokenCacheKeyPrefix = "shop:access_token:"

	productAddPath  = "/channels/ec/product/add"
	productGetPath  = "/channels/ec/product/get"
	productListPath = "/channels/ec/product/list/get"
	categoryAllPath = "/channels/ec/category/all"
	imageUploadPath = "/channels/ec/img/upload"
)

// Config 小店客户端配置
type Config struct {
	// AppID 小店 AppID（必填）
	AppID string
	// AppSecret 小店 AppSecret（必填）
	AppSecret string
	// BaseURL 接口域名（可选，默认 core.DefaultBaseURL）
	BaseURL string
	// HTTPClient 自定义 HTTP 客户端（可选）
	HTTPClient *http.Client
	// Cache token 缓存实现（可选，默认使用内存缓存）
	Cache core.Cache
	// Logger 日志记录器（可选，默认使用 slog.Default()）
	Logger *slog.Logger
	// Retry 重试策略（可选，默认 core.DefaultRetryPolicy）
	Retry *core.RetryPolicy
	// History 操作历史缓冲（可选）
	History *core.History
}

// Client 小店客户端实例
type Client struct {
	cfg      Config
	tokens   *core.TokenManager
	executor *core.Executor
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// New 创建小店客户端
func New(cfg Config) (*Client, error) {
	cfg = normalizeConfig(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	// token 请求走独立的免认证客户端
	tokenClient, err := core.NewClient(core.ClientConfig{
		BaseURL:    cfg.BaseURL,
		HTTPClient: cfg.HTTPClient,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := core.NewTokenManager(core.TokenManagerConfig{
		Cache:    cfg.Cache,
		CacheKey: accessTokenCacheKeyPrefix + cfg.AppID,
		Logger:   cfg.Logger,
		Fetcher: func(ctx context.Context) (core.TokenFetchResult, error) {
			resp, err := tokenClient.Request().
				Path(accessTokenPath).
				Query("grant_type", "client_credential").
				Query("appid", cfg.AppID).
				Query("secret", cfg.AppSecret).
				WithoutToken().
				Get(ctx)
			if err != nil {
				return core.TokenFetchResult{}, fmt.Errorf("request access token: %w", err)
			}
			decoded, err := core.Decode[accessTokenResponse](resp)
			if err != nil {
				return core.TokenFetchResult{}, err
			}
			return core.TokenFetchResult{Token: decoded.AccessToken, ExpiresIn: decoded.ExpiresIn}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	apiClient, err := core.NewClient(core.ClientConfig{
		BaseURL:       cfg.BaseURL,
		HTTPClient:    cfg.HTTPClient,
		TokenProvider: tokens,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	executor, err := core.NewExecutor(core.ExecutorConfig{
		Client:  apiClient,
		Policy:  cfg.Retry,
		History: cfg.History,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{cfg: cfg, tokens: tokens, executor: executor}, nil
}

// AccessToken 获取当前可用凭证（可作为连通性测试）
func (c *Client) AccessToken(ctx context.Context) (core.Credential, error) {
	return c.tokens.Acquire(ctx)
}

// TokenManager 返回凭证管理器
func (c *Client) TokenManager() *core.TokenManager {
	return c.tokens
}

// Executor 返回请求执行器，供批量上传编排复用
func (c *Client) Executor() *core.Executor {
	return c.executor
}

func normalizeConfig(cfg Config) Config {
	if cfg.Cache == nil {
		cfg.Cache = core.NewMemoryCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.AppID) == "" {
		return fmt.Errorf("appid is required")
	}
	if strings.TrimSpace(cfg.AppSecret) == "" {
		return fmt.Errorf("appsecret is required")
	}
	return nil
}
