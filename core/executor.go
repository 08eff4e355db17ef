package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

const (
	// DefaultMaxRetries 首次请求之外的默认最大重试次数
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay 重试退避基础间隔
	DefaultRetryBaseDelay = 2 * time.Second
)

// Request 一次接口调用的描述
// 所有字段均可重放，重试时按原样重新构造 HTTP 请求。
type Request struct {
	// Kind 操作名，用于历史记录与日志（可选，默认取 Path）
	Kind string
	// Method HTTP 方法（可选，默认 POST）
	Method string
	// Path 接口路径
	Path string
	// Query 查询参数
	Query map[string]string
	// Body 请求体（json.RawMessage、[]byte 或可序列化对象）
	Body any
	// NoToken 不注入 access_token
	NoToken bool

	// 文件上传。为保证重试可重放，内容以字节而非 Reader 传入。
	FileField string
	FileName  string
	FileBytes []byte
	FileExtra map[string]string
}

func (r Request) kind() string {
	if r.Kind != "" {
		return r.Kind
	}
	return r.Path
}

// RetryPolicy 重试分类与退避策略
// 全局唯一配置点，不允许调用点各自维护可重试错误码清单。
type RetryPolicy struct {
	// MaxRetries 首次之外的最大重试次数
	MaxRetries int
	// BaseDelay 退避基础间隔，第 n 次重试等待 n*BaseDelay
	BaseDelay time.Duration
	// RetryableCodes 允许重试的微信错误码
	RetryableCodes []int
}

// DefaultRetryPolicy 默认重试策略
// 仅系统繁忙与限频可重试；40001/42001 对当前请求是终态，
// 执行器只负责提前换新凭证，其余业务错误码一律终止。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		BaseDelay:      DefaultRetryBaseDelay,
		RetryableCodes: []int{ErrCodeBusy, ErrCodeFreqLimit},
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryBaseDelay
	}
	return p
}

// Retryable 判断错误是否允许重试
func (p RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return slices.Contains(p.RetryableCodes, ae.ErrCode)
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var parseErr *ResponseParseError
	if errors.As(err, &parseErr) {
		return false
	}
	// 其余为传输层错误（连接重置、超时等）
	return true
}

// delay 第 attempt 次重试前的等待时间，attempt 从 1 开始
func (p RetryPolicy) delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

// ExecutorConfig 请求执行器配置
type ExecutorConfig struct {
	// Client HTTP 客户端（必填）
	Client *Client
	// Policy 重试策略（可选，默认 DefaultRetryPolicy）
	Policy *RetryPolicy
	// History 操作历史（可选，默认新建容量 1000 的缓冲）
	History *History
	// Logger 日志记录器（可选，默认取 Client 的 logger）
	Logger *slog.Logger
}

// Executor 请求执行器
// 在 Client 之上实现错误分类、有界重试与操作历史记录。
type Executor struct {
	client  *Client
	policy  RetryPolicy
	history *History
	logger  *slog.Logger
}

// NewExecutor 创建请求执行器
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}

	history := cfg.History
	if history == nil {
		history = NewHistory(0)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = cfg.Client.Logger()
	}

	policy := DefaultRetryPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	return &Executor{
		client:  cfg.Client,
		policy:  policy.normalize(),
		history: history,
		logger:  logger,
	}, nil
}

// History 返回执行器的操作历史
func (e *Executor) History() *History {
	return e.history
}

// Policy 返回执行器的重试策略
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// Execute 执行请求并应用重试策略
//
// 返回:
//   - *Response: 最后一次得到的响应（出错时可能为 nil）
//   - int: 实际发起的请求次数
//   - error: 最终错误，nil 表示成功
//
// 不可重试的错误立即返回，不消耗重试预算；
// token 失效错误在重放前强制刷新一次凭证。
func (e *Executor) Execute(ctx context.Context, req Request) (*Response, int, error) {
	kind := req.kind()
	attempts := 0

	for {
		attempts++
		resp, err := e.attempt(ctx, req)
		if err == nil {
			e.record(kind, OutcomeSuccess, "")
			return resp, attempts, nil
		}

		if ctx.Err() != nil {
			e.record(kind, OutcomeError, ctx.Err().Error())
			return resp, attempts, ctx.Err()
		}

		if !e.policy.Retryable(err) || attempts > e.policy.MaxRetries {
			// token 失效对当前请求是终态，但提前换新让后续请求恢复
			if IsTokenError(err) {
				e.refreshToken(ctx)
			}
			e.record(kind, OutcomeError, err.Error())
			return resp, attempts, err
		}

		e.record(kind, OutcomeRetry, err.Error())

		delay := e.policy.delay(attempts)
		e.logger.WarnContext(ctx, "request failed, retrying",
			slog.String("kind", kind),
			slog.Int("attempt", attempts),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return resp, attempts, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attempt 发起一次请求并做信封级错误检查
func (e *Executor) attempt(ctx context.Context, req Request) (*Response, error) {
	builder := e.client.Request().Path(req.Path).QueryMap(req.Query)
	if req.NoToken {
		builder.WithoutToken()
	}
	if req.Body != nil {
		builder.Body(req.Body)
	}
	if req.FileBytes != nil {
		builder.UploadFile(req.FileField, req.FileName, bytes.NewReader(req.FileBytes))
		if req.FileExtra != nil {
			builder.UploadExtraFields(req.FileExtra)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var resp *Response
	var err error
	if method == http.MethodGet {
		resp, err = builder.Get(ctx)
	} else {
		resp, err = builder.Post(ctx)
	}
	if err != nil {
		return nil, err
	}

	if apiErr := parseAPIError(resp.Body); apiErr != nil {
		return resp, apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, fmt.Errorf("http status %d: %s", resp.StatusCode, truncateBody(resp.Body, 256))
	}
	return resp, nil
}

// refreshToken token 失效时强制换新，失败只记日志，由下一次尝试兜底
func (e *Executor) refreshToken(ctx context.Context) {
	provider := e.client.TokenProvider()
	if provider == nil {
		return
	}
	if _, err := provider.RefreshToken(ctx); err != nil {
		e.logger.WarnContext(ctx, "forced token refresh failed", slog.Any("error", err))
	}
}

func (e *Executor) record(kind, outcome, detail string) {
	e.history.Append(OperationRecord{
		Timestamp: time.Now(),
		Kind:      kind,
		Outcome:   outcome,
		Detail:    detail,
	})
}

// ExecuteTyped 执行请求并把成功响应解码为 T
func ExecuteTyped[T any](ctx context.Context, e *Executor, req Request) (T, error) {
	resp, _, err := e.Execute(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](resp)
}
