// Package wordfilter 敏感词检测与过滤
// 商品标题和描述在提交前先经过过滤，避免触发平台的内容审核拦截。
package wordfilter

import (
	"regexp"
	"slices"
	"strings"
	"sync"
)

// DefaultWords 默认敏感词表，按微信小店教育培训类目规则整理
var DefaultWords = []string{
	"评估", "测评", "服务", "咨询", "1v1",
	"改善", "高效", "最", "方案", "独家",
	"第一", "报告", "深度分析", "检查",
	"合作洽谈", "挑选安心好物",
}

// Filter 敏感词过滤器
// 并发安全，词表可在运行中增删。
type Filter struct {
	mu      sync.RWMutex
	words   []string
	index   map[string]struct{}
	pattern *regexp.Regexp
}

// New 创建敏感词过滤器
// words 为空时使用 DefaultWords。
func New(words ...string) *Filter {
	if len(words) == 0 {
		words = DefaultWords
	}

	f := &Filter{index: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := f.index[w]; ok {
			continue
		}
		f.words = append(f.words, w)
		f.index[w] = struct{}{}
	}
	f.pattern = compile(f.words)
	return f
}

// compile 把词表编译为单个正则
// 长词在前，避免长词被其前缀短词截断。
func compile(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}

	sorted := slices.Clone(words)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return len(b) - len(a)
	})

	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
}

// Contains 判断文本是否包含敏感词
func (f *Filter) Contains(text string) bool {
	if text == "" {
		return false
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pattern != nil && f.pattern.MatchString(text)
}

// Replace 把文本中的敏感词替换为 replacement
func (f *Filter) Replace(text, replacement string) string {
	if text == "" {
		return text
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.pattern == nil {
		return text
	}
	return f.pattern.ReplaceAllLiteralString(text, replacement)
}

// Clean 把文本中的敏感词替换为星号
func (f *Filter) Clean(text string) string {
	return f.Replace(text, "*")
}

// Detect 返回文本中命中的敏感词
// 按首次出现顺序去重。
func (f *Filter) Detect(text string) []string {
	if text == "" {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.pattern == nil {
		return nil
	}

	var hits []string
	seen := make(map[string]struct{})
	for _, m := range f.pattern.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		hits = append(hits, m)
	}
	return hits
}

// Add 添加敏感词，已存在时不做任何事
func (f *Filter) Add(words ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := false
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := f.index[w]; ok {
			continue
		}
		f.words = append(f.words, w)
		f.index[w] = struct{}{}
		changed = true
	}
	if changed {
		f.pattern = compile(f.words)
	}
}

// Remove 移除敏感词
// 返回是否存在并被移除。
func (f *Filter) Remove(word string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.index[word]; !ok {
		return false
	}
	delete(f.index, word)
	f.words = slices.DeleteFunc(f.words, func(w string) bool { return w == word })
	f.pattern = compile(f.words)
	return true
}

// Clear 清空词表
func (f *Filter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = nil
	f.index = make(map[string]struct{})
	f.pattern = nil
}

// Words 返回当前词表的副本
func (f *Filter) Words() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.words)
}
