package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinCq/product-upload/core"
)

// fakeExecutor 按调用序号返回预设结果，并统计最大并发在途数
type fakeExecutor struct {
	mu      sync.Mutex
	calls   int
	latency time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	handler func(call int, req core.Request) (*core.Response, int, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, req core.Request) (*core.Response, int, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		top := f.maxInFlight.Load()
		if cur <= top || f.maxInFlight.CompareAndSwap(top, cur) {
			break
		}
	}

	if f.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(f.latency):
		}
	}

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.handler(call, req)
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okResponse() *core.Response {
	return &core.Response{
		StatusCode: 200,
		Body:       []byte(`{"errcode":0,"errmsg":"ok","data":{"product_id":10000123}}`),
	}
}

func alwaysOK(call int, req core.Request) (*core.Response, int, error) {
	return okResponse(), 1, nil
}

func testItems(n int) []Item {
	items := make([]Item, n)
	for i := 0; i < n; i++ {
		items[i] = Item{
			ID:      fmt.Sprintf("out-%03d", i),
			Title:   fmt.Sprintf("测试商品 %d", i),
			Payload: json.RawMessage(fmt.Sprintf(`{"title":"测试商品 %d"}`, i)),
		}
	}
	return items
}

func newTestUploader(t *testing.T, cfg Config) *Uploader {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = time.Millisecond
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	u, err := New(cfg)
	require.NoError(t, err)
	return u
}

func TestNewRequiresExecutor(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSubmitSequentialAllSucceed(t *testing.T) {
	exec := &fakeExecutor{handler: alwaysOK}
	u := newTestUploader(t, Config{Executor: exec})

	items := testItems(3)
	results, summary := u.SubmitSequential(context.Background(), items)

	require.Len(t, results, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.InDelta(t, 100.0, summary.SuccessRatePercent, 0.001)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i].ID, r.ItemID)
		assert.True(t, r.Success)
		assert.Equal(t, 1, r.Attempts)
		assert.NotEmpty(t, r.Response)
		assert.Nil(t, r.Error)
		assert.False(t, r.CompletedAt.IsZero())
	}
	assert.Equal(t, 3, exec.callCount())
}

func TestSubmitSequentialPacing(t *testing.T) {
	exec := &fakeExecutor{handler: alwaysOK}
	u := newTestUploader(t, Config{Executor: exec, Interval: 30 * time.Millisecond})

	start := time.Now()
	_, summary := u.SubmitSequential(context.Background(), testItems(3))
	elapsed := time.Since(start)

	// 三个商品之间有两次间隔，最后一个之后不等待
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Equal(t, 3, summary.Succeeded)
}

func TestValidationFailureSkipsNetwork(t *testing.T) {
	exec := &fakeExecutor{handler: alwaysOK}
	u := newTestUploader(t, Config{Executor: exec})

	items := []Item{
		{ID: "out-001", Title: "正常商品", Payload: json.RawMessage(`{"title":"x"}`)},
		{ID: "out-002", Title: "坏数据", Payload: json.RawMessage(`{not json`)},
		{ID: "", Title: "缺编号", Payload: json.RawMessage(`{}`)},
	}
	results, summary := u.SubmitSequential(context.Background(), items)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)

	require.NotNil(t, results[1].Error)
	assert.Equal(t, KindValidation, results[1].Error.Kind)
	assert.Equal(t, 1, results[1].Attempts)

	require.NotNil(t, results[2].Error)
	assert.Equal(t, KindValidation, results[2].Error.Kind)

	// 校验失败的商品不发起请求
	assert.Equal(t, 1, exec.callCount())
}

func TestRemoteErrorRecordedWithCode(t *testing.T) {
	exec := &fakeExecutor{handler: func(call int, req core.Request) (*core.Response, int, error) {
		return nil, 1, &core.APIError{ErrCode: core.ErrCodeInvalidToken, ErrMsg: "invalid credential"}
	}}
	u := newTestUploader(t, Config{Executor: exec})

	results, summary := u.SubmitSequential(context.Background(), testItems(1))

	assert.Equal(t, 1, summary.Failed)
	r := results[0]
	assert.False(t, r.Success)
	assert.Equal(t, 1, r.Attempts)
	require.NotNil(t, r.Error)
	assert.Equal(t, KindRemoteAPI, r.Error.Kind)
	assert.Equal(t, core.ErrCodeInvalidToken, r.Error.Code)
	assert.Equal(t, 1, exec.callCount())
}

func TestBusyTriggersOrchestratorRetry(t *testing.T) {
	busy := &core.APIError{ErrCode: core.ErrCodeBusy, ErrMsg: "system busy"}
	exec := &fakeExecutor{handler: func(call int, req core.Request) (*core.Response, int, error) {
		if call < 3 {
			return nil, 1, busy
		}
		return okResponse(), 1, nil
	}}
	u := newTestUploader(t, Config{Executor: exec, MaxAttempts: 4})

	results, summary := u.SubmitSequential(context.Background(), testItems(1))

	assert.Equal(t, 1, summary.Succeeded)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Equal(t, 3, exec.callCount())
}

func TestBusyRetryStopsAtMaxAttempts(t *testing.T) {
	busy := &core.APIError{ErrCode: core.ErrCodeBusy, ErrMsg: "system busy"}
	exec := &fakeExecutor{handler: func(call int, req core.Request) (*core.Response, int, error) {
		return nil, 1, busy
	}}
	u := newTestUploader(t, Config{Executor: exec, MaxAttempts: 3})

	results, _ := u.SubmitSequential(context.Background(), testItems(1))

	r := results[0]
	assert.False(t, r.Success)
	assert.Equal(t, 3, r.Attempts)
	require.NotNil(t, r.Error)
	assert.Equal(t, KindRemoteAPI, r.Error.Kind)
	assert.Equal(t, core.ErrCodeBusy, r.Error.Code)
	assert.Equal(t, 3, exec.callCount())
}

func TestSubmitSequentialCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{handler: func(call int, req core.Request) (*core.Response, int, error) {
		if call == 1 {
			cancel()
		}
		return okResponse(), 1, nil
	}}
	u := newTestUploader(t, Config{Executor: exec, Interval: 10 * time.Millisecond})

	items := testItems(4)
	results, summary := u.SubmitSequential(ctx, items)

	require.Len(t, results, 4)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.Failed)

	assert.True(t, results[0].Success)
	for _, r := range results[1:] {
		require.NotNil(t, r.Error)
		assert.Equal(t, KindCancelled, r.Error.Kind)
		assert.Equal(t, items[r.Index].ID, r.ItemID)
		assert.False(t, r.CompletedAt.IsZero())
	}
}

func TestSubmitConcurrentAllSucceed(t *testing.T) {
	exec := &fakeExecutor{handler: alwaysOK, latency: 5 * time.Millisecond}
	u := newTestUploader(t, Config{Executor: exec, MaxConcurrency: 4})

	items := testItems(10)
	results, summary := u.SubmitConcurrent(context.Background(), items)

	require.Len(t, results, 10)
	assert.Equal(t, 10, summary.Succeeded)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i].ID, r.ItemID)
		assert.True(t, r.Success)
	}
}

func TestSubmitConcurrentRespectsBound(t *testing.T) {
	exec := &fakeExecutor{handler: alwaysOK, latency: 20 * time.Millisecond}
	u := newTestUploader(t, Config{Executor: exec, MaxConcurrency: 3})

	_, summary := u.SubmitConcurrent(context.Background(), testItems(12))

	if summary.Succeeded != 12 {
		t.Fatalf("succeeded = %d, want 12", summary.Succeeded)
	}
	if max := exec.maxInFlight.Load(); max > 3 {
		t.Fatalf("max in-flight = %d, want <= 3", max)
	}
}

func TestSubmitConcurrentPreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExecutor{handler: alwaysOK}
	u := newTestUploader(t, Config{Executor: exec})

	items := testItems(5)
	results, summary := u.SubmitConcurrent(ctx, items)

	require.Len(t, results, 5)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 5, summary.Failed)
	for _, r := range results {
		require.NotNil(t, r.Error)
		assert.Equal(t, KindCancelled, r.Error.Kind)
	}
	assert.Equal(t, 0, exec.callCount())
}

func TestSummaryInvariants(t *testing.T) {
	exec := &fakeExecutor{handler: func(call int, req core.Request) (*core.Response, int, error) {
		if call%2 == 0 {
			return nil, 1, &core.APIError{ErrCode: core.ErrCodeAPIUnauthorized, ErrMsg: "api unauthorized"}
		}
		return okResponse(), 1, nil
	}}
	u := newTestUploader(t, Config{Executor: exec})

	results, summary := u.SubmitSequential(context.Background(), testItems(7))

	assert.Equal(t, len(results), summary.Total)
	assert.Equal(t, summary.Total, summary.Succeeded+summary.Failed)
	assert.InDelta(t, float64(summary.Succeeded)/float64(summary.Total)*100, summary.SuccessRatePercent, 0.01)
}
