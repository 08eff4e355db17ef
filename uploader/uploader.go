// Package uploader 批量商品上传编排
// 在请求执行器之上实现两种提交模式：限速串行与有界并发。
// 单个商品的失败不会中断批次，所有商品都会得到一条结果记录。
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/calvinCq/product-upload/core"
)

const (
	// DefaultInterval 串行模式下相邻商品之间的默认间隔
	DefaultInterval = time.Second
	// DefaultMaxConcurrency 并发模式默认并发上限
	DefaultMaxConcurrency = 5
	// DefaultRetryBackoff 编排级重试的退避基础间隔
	DefaultRetryBackoff = 2 * time.Second

	defaultProductAddPath = "/channels/ec/product/add"
	defaultRequestKind    = "product.add"
)

// Executor 请求执行器接口
// 由 core.Executor 实现，测试中可替换为桩。
type Executor interface {
	Execute(ctx context.Context, req core.Request) (*core.Response, int, error)
}

// Config 上传编排配置
type Config struct {
	// Executor 请求执行器（必填）
	Executor Executor
	// Path 商品提交接口路径（可选）
	Path string
	// Interval 串行模式的请求间隔（可选，默认 1s）
	Interval time.Duration
	// MaxAttempts 单个商品跨两层重试的总次数上限
	// （可选，默认 core.DefaultMaxRetries+1）
	MaxAttempts int
	// MaxConcurrency 并发模式的并发上限（可选，默认 5）
	MaxConcurrency int
	// RetryBackoff 编排级重试退避基础间隔（可选，默认 2s）
	RetryBackoff time.Duration
	// Logger 日志记录器（可选，默认使用 slog.Default()）
	Logger *slog.Logger
	// Metrics 指标采集（可选）
	Metrics *Metrics
}

// Uploader 批量上传编排器
// 每次 Submit 调用都是一个独立批次，不与历史批次去重。
type Uploader struct {
	executor       Executor
	path           string
	interval       time.Duration
	maxAttempts    int
	maxConcurrency int
	retryBackoff   time.Duration
	logger         *slog.Logger
	metrics        *Metrics
}

// New 创建上传编排器
func New(cfg Config) (*Uploader, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}

	path := cfg.Path
	if path == "" {
		path = defaultProductAddPath
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = core.DefaultMaxRetries + 1
	}

	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = DefaultRetryBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Uploader{
		executor:       cfg.Executor,
		path:           path,
		interval:       interval,
		maxAttempts:    maxAttempts,
		maxConcurrency: maxConcurrency,
		retryBackoff:   retryBackoff,
		logger:         logger,
		metrics:        cfg.Metrics,
	}, nil
}

// SubmitSequential 限速串行提交
// 逐个上传，相邻商品之间等待 Interval；最后一个商品之后不等待。
// 取消时未开始的商品记为 cancelled，结果数量恒等于输入数量。
func (u *Uploader) SubmitSequential(ctx context.Context, items []Item) ([]Result, Summary) {
	batchID := uuid.NewString()
	logger := u.logger.With(slog.String("batch_id", batchID), slog.String("mode", "sequential"))
	logger.Info("batch started", slog.Int("total", len(items)))

	start := time.Now()
	results := make([]Result, len(items))

	for i, item := range items {
		if ctx.Err() != nil {
			u.markCancelled(ctx, results, items, i)
			break
		}

		results[i] = u.uploadOne(ctx, logger, i, item)

		if i == len(items)-1 {
			break
		}
		select {
		case <-ctx.Done():
			u.markCancelled(ctx, results, items, i+1)
			return u.finish(logger, results, start)
		case <-time.After(u.interval):
		}
	}

	return u.finish(logger, results, start)
}

// SubmitConcurrent 有界并发提交
// 最多 MaxConcurrency 个商品同时在途，结果仍按输入顺序排列。
func (u *Uploader) SubmitConcurrent(ctx context.Context, items []Item) ([]Result, Summary) {
	batchID := uuid.NewString()
	logger := u.logger.With(slog.String("batch_id", batchID), slog.String("mode", "concurrent"))
	logger.Info("batch started",
		slog.Int("total", len(items)),
		slog.Int("max_concurrency", u.maxConcurrency),
	)

	start := time.Now()
	results := make([]Result, len(items))
	sem := semaphore.NewWeighted(int64(u.maxConcurrency))

	var wg sync.WaitGroup
	for i, item := range items {
		i, item := i, item
		if err := sem.Acquire(ctx, 1); err != nil {
			u.markCancelled(ctx, results, items, i)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = u.uploadOne(ctx, logger, i, item)
		}()
	}
	wg.Wait()

	return u.finish(logger, results, start)
}

// uploadOne 上传单个商品
// 执行器内部的重试之外，编排层只对"系统繁忙"类失败追加重试，
// 且跨两层的总尝试次数不超过 maxAttempts。
func (u *Uploader) uploadOne(ctx context.Context, logger *slog.Logger, index int, item Item) Result {
	result := Result{Index: index, ItemID: item.ID, Title: item.Title}

	if err := item.validate(); err != nil {
		logger.Error("item rejected",
			slog.Int("index", index),
			slog.String("title", item.Title),
			slog.Any("error", err),
		)
		result.Attempts = 1
		result.Error = classify(ctx, err)
		result.CompletedAt = time.Now()
		u.metrics.observeItem(result)
		return result
	}

	req := core.Request{
		Kind: defaultRequestKind,
		Path: u.path,
		Body: item.Payload,
	}

	total := 0
	for {
		resp, attempts, err := u.executor.Execute(ctx, req)
		total += attempts

		if err == nil {
			logger.Info("item uploaded",
				slog.Int("index", index),
				slog.String("title", item.Title),
				slog.Int("attempts", total),
			)
			result.Success = true
			result.Attempts = total
			result.Response = resp.Body
			result.CompletedAt = time.Now()
			u.metrics.observeItem(result)
			return result
		}

		if ctx.Err() == nil && isBusy(err) && total < u.maxAttempts {
			delay := time.Duration(total) * u.retryBackoff
			logger.Warn("server busy, scheduling extra retry",
				slog.Int("index", index),
				slog.Int("attempts", total),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
				continue
			}
		}

		logger.Error("item failed",
			slog.Int("index", index),
			slog.String("title", item.Title),
			slog.Int("attempts", total),
			slog.Any("error", err),
		)
		result.Attempts = total
		result.Error = classify(ctx, err)
		result.CompletedAt = time.Now()
		u.metrics.observeItem(result)
		return result
	}
}

// markCancelled 把尚未开始的商品记为取消
func (u *Uploader) markCancelled(ctx context.Context, results []Result, items []Item, from int) {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}

	for i := from; i < len(items); i++ {
		if !results[i].CompletedAt.IsZero() {
			continue
		}
		results[i] = Result{
			Index:       i,
			ItemID:      items[i].ID,
			Title:       items[i].Title,
			Error:       &ErrorInfo{Kind: KindCancelled, Message: cause.Error()},
			CompletedAt: time.Now(),
		}
		u.metrics.observeItem(results[i])
	}
}

func (u *Uploader) finish(logger *slog.Logger, results []Result, start time.Time) ([]Result, Summary) {
	summary := summarize(results, time.Since(start))
	u.metrics.observeBatch(summary)

	logger.Info("batch finished",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Float64("success_rate", summary.SuccessRatePercent),
		slog.Float64("duration_seconds", summary.DurationSeconds),
	)
	return results, summary
}

func isBusy(err error) bool {
	var ae *core.APIError
	if errors.As(err, &ae) {
		return ae.ErrCode == core.ErrCodeBusy
	}
	return false
}
