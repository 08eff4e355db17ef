package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultRefreshMargin 提前刷新窗口
	// 7200 秒的 token 在剩余 1200 秒时就开始换新，避免边界失效。
	DefaultRefreshMargin = 20 * time.Minute

	// defaultExpiresIn 微信侧未返回 expires_in 时的兜底有效期（秒）
	defaultExpiresIn = 7200
)

// Credential access_token 凭证
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Fresh 判断凭证在提前刷新窗口之外是否仍然可用
func (c Credential) Fresh(margin time.Duration, now time.Time) bool {
	return c.Token != "" && now.Add(margin).Before(c.ExpiresAt)
}

// Expired 判断凭证是否已经硬过期
func (c Credential) Expired(now time.Time) bool {
	return c.Token == "" || !c.ExpiresAt.After(now)
}

// TokenFetchResult 一次 token 获取的结果
type TokenFetchResult struct {
	Token     string
	ExpiresIn int
}

// TokenFetcher 向认证端点换取新 token 的回调
type TokenFetcher func(ctx context.Context) (TokenFetchResult, error)

// TokenManagerConfig TokenManager 配置
type TokenManagerConfig struct {
	// Fetcher token 获取回调（必填）
	Fetcher TokenFetcher
	// RefreshMargin 提前刷新窗口（可选，默认 DefaultRefreshMargin）
	RefreshMargin time.Duration
	// Cache 外部缓存镜像（可选）
	// 设置后新凭证会同步写入缓存，冷启动时也会先尝试从缓存恢复。
	Cache Cache
	// CacheKey 缓存键（设置 Cache 时必填）
	CacheKey string
	// Logger 日志记录器（可选，默认使用 slog.Default()）
	Logger *slog.Logger
	// Now 时间源（测试用，默认 time.Now）
	Now func() time.Time
}

type tokenCall struct {
	done chan struct{}
	cred Credential
	err  error
}

// TokenManager access_token 生命周期管理
// 凭证由内部互斥锁独占持有；过期触发的刷新做 single-flight 合并，
// 并发调用方共享同一次真正的远端刷新。
type TokenManager struct {
	fetcher  TokenFetcher
	margin   time.Duration
	cache    Cache
	cacheKey string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	cred     Credential
	inflight *tokenCall
	seeded   bool
}

// NewTokenManager 创建 TokenManager
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Cache != nil && cfg.CacheKey == "" {
		return nil, fmt.Errorf("cache key is required when cache is set")
	}

	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		fetcher:  cfg.Fetcher,
		margin:   margin,
		cache:    cfg.Cache,
		cacheKey: cfg.CacheKey,
		logger:   logger,
		now:      now,
	}, nil
}

// Acquire 返回一个未过期的凭证，必要时触发刷新
//
// 行为约定:
//   - 凭证在提前刷新窗口之外: 直接返回缓存凭证，无远端调用。
//   - 凭证进入刷新窗口或已过期: 触发 single-flight 刷新，并发调用
//     共享同一次 Fetcher 调用。
//   - 刷新失败: 旧凭证尚未硬过期时回退返回旧凭证；否则所有等待方
//     收到 *AuthError。
func (m *TokenManager) Acquire(ctx context.Context) (Credential, error) {
	now := m.now()

	m.mu.Lock()
	m.seedFromCacheLocked(ctx)
	if m.cred.Fresh(m.margin, now) {
		cred := m.cred
		m.mu.Unlock()
		return cred, nil
	}
	return m.refreshLocked(ctx, m.cred)
}

// ForceRefresh 无视缓存凭证强制刷新
// 刷新期间的并发调用同样合并到一次远端请求。
func (m *TokenManager) ForceRefresh(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	// 强制刷新不回退旧凭证
	return m.refreshLocked(ctx, Credential{})
}

// Current 返回当前持有的凭证快照（可能为零值）
func (m *TokenManager) Current() Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

// GetToken 实现 AccessTokenProvider
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	cred, err := m.Acquire(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// RefreshToken 实现 AccessTokenProvider
func (m *TokenManager) RefreshToken(ctx context.Context) (string, error) {
	cred, err := m.ForceRefresh(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// refreshLocked 进入时持有 m.mu，返回前释放
// stale 为允许在刷新失败时回退的旧凭证快照。
func (m *TokenManager) refreshLocked(ctx context.Context, stale Credential) (Credential, error) {
	if m.inflight != nil {
		call := m.inflight
		m.mu.Unlock()
		return m.waitCall(ctx, call, stale)
	}

	call := &tokenCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	cred, err := m.fetchAndStore(ctx)
	call.cred = cred
	call.err = err
	close(call.done)

	m.mu.Lock()
	if m.inflight == call {
		m.inflight = nil
	}
	m.mu.Unlock()

	return m.resolve(cred, err, stale)
}

func (m *TokenManager) waitCall(ctx context.Context, call *tokenCall, stale Credential) (Credential, error) {
	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case <-call.done:
		return m.resolve(call.cred, call.err, stale)
	}
}

// resolve 统一处理刷新结果的回退语义
func (m *TokenManager) resolve(cred Credential, err error, stale Credential) (Credential, error) {
	if err == nil {
		return cred, nil
	}
	if !stale.Expired(m.now()) {
		m.logger.Warn("token refresh failed, serving previous credential",
			slog.Time("expires_at", stale.ExpiresAt),
			slog.Any("error", err),
		)
		return stale, nil
	}
	return Credential{}, &AuthError{Err: err}
}

func (m *TokenManager) fetchAndStore(ctx context.Context) (Credential, error) {
	result, err := m.fetcher(ctx)
	if err != nil {
		return Credential{}, err
	}
	if result.Token == "" {
		return Credential{}, fmt.Errorf("empty token from fetcher")
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	cred := Credential{
		Token:     result.Token,
		ExpiresAt: m.now().Add(time.Duration(expiresIn) * time.Second),
	}

	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()

	m.storeToCache(ctx, cred)

	m.logger.Info("access_token refreshed",
		slog.Int("expires_in", expiresIn),
		slog.Time("expires_at", cred.ExpiresAt),
	)

	return cred, nil
}

// seedFromCacheLocked 冷启动时从外部缓存恢复凭证（仅尝试一次）
func (m *TokenManager) seedFromCacheLocked(ctx context.Context) {
	if m.seeded || m.cache == nil {
		return
	}
	m.seeded = true

	raw, ok := m.cache.Get(ctx, m.cacheKey)
	if !ok {
		return
	}

	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		m.logger.Warn("invalid cached credential, ignoring",
			slog.String("key", m.cacheKey),
			slog.Any("error", err),
		)
		return
	}
	if cred.Expired(m.now()) {
		return
	}

	m.cred = cred
	m.logger.Debug("credential restored from cache",
		slog.Time("expires_at", cred.ExpiresAt),
	)
}

func (m *TokenManager) storeToCache(ctx context.Context, cred Credential) {
	if m.cache == nil {
		return
	}

	raw, err := json.Marshal(cred)
	if err != nil {
		return
	}

	ttl := cred.ExpiresAt.Sub(m.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := m.cache.Set(ctx, m.cacheKey, string(raw), ttl); err != nil {
		m.logger.Warn("cache credential failed",
			slog.String("key", m.cacheKey),
			slog.Any("error", err),
		)
	}
}

var _ AccessTokenProvider = (*TokenManager)(nil)
