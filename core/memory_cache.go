package core

import (
	"context"
	"sync"
	"time"
)

// memoryEntry 缓存项
type memoryEntry struct {
	value    string
	deadline time.Time
}

// expired 判断缓存项是否过期
func (e memoryEntry) expired(now time.Time) bool {
	if e.deadline.IsZero() {
		return false // 永不过期
	}
	return now.After(e.deadline)
}

// MemoryCache 内存缓存实现
// 进程内可用的默认 Cache 实现，读写并发安全。
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
	}
}

// Get 获取缓存值
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.expired(time.Now()) {
		return "", false
	}
	return entry.value, true
}

// Set 设置缓存值
func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, deadline: deadline}
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Cleanup 清理过期缓存项（可选，用于定期清理）
func (c *MemoryCache) Cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}

// 确保 MemoryCache 实现了 Cache 接口
var _ Cache = (*MemoryCache)(nil)
