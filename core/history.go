package core

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity 操作历史默认容量
const DefaultHistoryCapacity = 1000

// OperationRecord 一次接口调用的诊断记录
type OperationRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// 操作结果取值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeRetry   = "retry"
)

// History 容量受限的操作历史
// 环形缓冲，写满后按写入顺序淘汰最旧记录（FIFO，不是 LRU）。
type History struct {
	mu    sync.Mutex
	buf   []OperationRecord
	head  int // 最旧记录下标
	count int
}

// NewHistory 创建操作历史
// capacity 小于等于 0 时使用 DefaultHistoryCapacity。
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]OperationRecord, capacity)}
}

// Append 追加一条记录，满时淘汰最旧的一条
func (h *History) Append(rec OperationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tail := (h.head + h.count) % len(h.buf)
	h.buf[tail] = rec
	if h.count < len(h.buf) {
		h.count++
		return
	}
	h.head = (h.head + 1) % len(h.buf)
}

// Len 当前记录数
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Records 按从旧到新的顺序返回全部记录的拷贝
func (h *History) Records() []OperationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]OperationRecord, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}
