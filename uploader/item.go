package uploader

import (
	"encoding/json"
	"fmt"
)

// Item 一个待上传商品
// 提交后不再修改；Payload 为完整商品 JSON，业务字段不做建模。
type Item struct {
	// ID 外部商品编号（out_product_id），用于结果关联
	ID string `json:"id"`
	// Title 商品标题，仅用于日志与报告
	Title string `json:"title"`
	// Payload 商品数据
	Payload json.RawMessage `json:"payload"`
}

// ValidationError 商品数据校验失败
// 校验失败的商品直接落败，不发起任何网络请求。
type ValidationError struct {
	Reason string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid upload item: %s", e.Reason)
}

// validate 校验商品数据基本有效性
func (it Item) validate() error {
	if it.ID == "" {
		return &ValidationError{Reason: "id is required"}
	}
	if it.Title == "" {
		return &ValidationError{Reason: "title is required"}
	}
	if len(it.Payload) == 0 {
		return &ValidationError{Reason: "payload is required"}
	}
	if !json.Valid(it.Payload) {
		return &ValidationError{Reason: "payload is not valid JSON"}
	}
	return nil
}
