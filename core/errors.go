package core

import (
	"errors"
	"fmt"
)

// APIError 微信接口业务错误
// 响应体中 errcode 非 0 时由编解码层统一构造。
type APIError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api error: [%d] %s", e.ErrCode, e.ErrMsg)
}

// NewAPIError 创建接口业务错误
func NewAPIError(code int, msg string) *APIError {
	return &APIError{
		ErrCode: code,
		ErrMsg:  msg,
	}
}

// 常见错误码定义
const (
	ErrCodeSuccess          = 0     // 成功
	ErrCodeBusy             = -1    // 系统繁忙
	ErrCodeInvalidToken     = 40001 // access_token 无效
	ErrCodeInvalidAppID     = 40013 // 无效的 AppID
	ErrCodeInvalidAppSecret = 40125 // 无效的 AppSecret
	ErrCodeExpiredToken     = 42001 // access_token 过期
	ErrCodeFreqLimit        = 45011 // 频率限制
	ErrCodeAPIUnauthorized  = 48001 // API 未授权
)

// IsTokenError 判断是否为 token 相关错误（需要强制刷新 token）
func IsTokenError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.ErrCode == ErrCodeInvalidToken || ae.ErrCode == ErrCodeExpiredToken
	}
	return false
}

// AuthError 凭证获取失败
// 包装 TokenManager 刷新过程中的底层错误，便于上层按错误类别归档。
type AuthError struct {
	Err error
}

// Error 实现 error 接口
func (e *AuthError) Error() string {
	return fmt.Sprintf("acquire access token: %v", e.Err)
}

// Unwrap 支持 errors.Is/As
func (e *AuthError) Unwrap() error {
	return e.Err
}

// ResponseParseError 响应解析错误
// 当响应体不是有效的 JSON 时返回此错误
type ResponseParseError struct {
	Body []byte // 原始响应体
	Err  error  // 底层解析错误
}

// Error 实现 error 接口
func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

// Unwrap 支持 errors.Is/As
func (e *ResponseParseError) Unwrap() error {
	return e.Err
}
