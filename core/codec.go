package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type errorEnvelope struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Decode 解析微信接口响应
// 先检查 errcode 信封，errcode 非 0 时返回 *APIError；
// 成功时把响应体反序列化为 T。解码只在传输边界发生一次。
func Decode[T any](resp *Response) (T, error) {
	var zero T

	if resp == nil {
		return zero, fmt.Errorf("nil response")
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return zero, nil
		}
		return zero, fmt.Errorf("http status %d", resp.StatusCode)
	}

	if apiErr := parseAPIError(resp.Body); apiErr != nil {
		return zero, apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, fmt.Errorf("http status %d: %s", resp.StatusCode, truncateBody(resp.Body, 256))
	}

	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return zero, &ResponseParseError{Body: resp.Body, Err: err}
	}
	return out, nil
}

func parseAPIError(body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.ErrCode != 0 {
		return NewAPIError(envelope.ErrCode, envelope.ErrMsg)
	}
	return nil
}

func truncateBody(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
