package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/calvinCq/product-upload/core"
)

// ErrorKind 错误类别
type ErrorKind string

const (
	// KindAuth 凭证获取失败
	KindAuth ErrorKind = "auth"
	// KindNetwork 传输层失败
	KindNetwork ErrorKind = "network"
	// KindRemoteAPI 微信侧返回非零错误码
	KindRemoteAPI ErrorKind = "remote_api"
	// KindValidation 商品数据校验失败
	KindValidation ErrorKind = "validation"
	// KindCancelled 批次被取消，商品未完成提交
	KindCancelled ErrorKind = "cancelled"
)

// ErrorInfo 归档后的失败信息
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Code    int       `json:"code,omitempty"`
	Message string    `json:"message"`
}

// Result 单个商品的上传结果
// Index 始终对应输入顺序，与并发完成顺序无关。
type Result struct {
	Index       int             `json:"index"`
	ItemID      string          `json:"item_id"`
	Title       string          `json:"title"`
	Success     bool            `json:"success"`
	Attempts    int             `json:"attempts"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       *ErrorInfo      `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Summary 一次批量上传的汇总统计
type Summary struct {
	Total              int     `json:"total"`
	Succeeded          int     `json:"succeeded"`
	Failed             int     `json:"failed"`
	DurationSeconds    float64 `json:"duration_seconds"`
	SuccessRatePercent float64 `json:"success_rate_percent"`
}

// classify 把最终错误映射到 ErrorKind
// ctx 用于区分编排取消与请求自身的超时。
func classify(ctx context.Context, err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &ErrorInfo{Kind: KindCancelled, Message: err.Error()}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ErrorInfo{Kind: KindValidation, Message: ve.Reason}
	}
	var authErr *core.AuthError
	if errors.As(err, &authErr) {
		return &ErrorInfo{Kind: KindAuth, Message: err.Error()}
	}
	var ae *core.APIError
	if errors.As(err, &ae) {
		return &ErrorInfo{Kind: KindRemoteAPI, Code: ae.ErrCode, Message: ae.ErrMsg}
	}
	var parseErr *core.ResponseParseError
	if errors.As(err, &parseErr) {
		return &ErrorInfo{Kind: KindRemoteAPI, Message: err.Error()}
	}
	return &ErrorInfo{Kind: KindNetwork, Message: err.Error()}
}

// summarize 汇总批次结果
func summarize(results []Result, elapsed time.Duration) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}

	s.DurationSeconds = round2(elapsed.Seconds())
	if s.Total > 0 {
		s.SuccessRatePercent = round2(float64(s.Succeeded) / float64(s.Total) * 100)
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
