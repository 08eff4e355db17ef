package uploader

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportAllSucceeded(t *testing.T) {
	results := []Result{
		{Index: 0, Title: "商品甲", Success: true},
		{Index: 1, Title: "商品乙", Success: true},
	}
	summary := Summary{Total: 2, Succeeded: 2, Failed: 0, SuccessRatePercent: 100, DurationSeconds: 3.21}

	report := Report(results, summary)

	assert.Contains(t, report, "微信小店商品上传报告")
	assert.Contains(t, report, "商品总数: 2")
	assert.Contains(t, report, "上传成功: 2")
	assert.Contains(t, report, "上传失败: 0")
	assert.Contains(t, report, "成功率: 100.00%")
	assert.Contains(t, report, "总耗时: 3.21秒")
	assert.Contains(t, report, "结果评级: 优秀")
	assert.Contains(t, report, "无失败商品")
	assert.NotContains(t, report, "失败明细")
}

func TestReportListsFailures(t *testing.T) {
	results := []Result{
		{Index: 0, Title: "商品甲", Success: true},
		{Index: 1, Title: "商品乙", Error: &ErrorInfo{Kind: KindRemoteAPI, Code: 48001, Message: "api unauthorized"}},
		{Index: 2, Title: "商品丙", Error: &ErrorInfo{Kind: KindValidation, Message: "title is required"}},
	}
	summary := Summary{Total: 3, Succeeded: 1, Failed: 2, SuccessRatePercent: 33.33, DurationSeconds: 1.5}

	report := Report(results, summary)

	assert.Contains(t, report, "结果评级: 较差")
	assert.Contains(t, report, "失败明细:")
	assert.Contains(t, report, "商品 2: 商品乙")
	assert.Contains(t, report, "错误类别: remote_api")
	assert.Contains(t, report, "错误码: 48001")
	assert.Contains(t, report, "错误信息: api unauthorized")
	assert.Contains(t, report, "商品 3: 商品丙")
	assert.Contains(t, report, "错误类别: validation")
	assert.NotContains(t, report, "无失败商品")

	// 校验失败没有错误码，不出现在错误码统计里
	assert.Contains(t, report, "错误码统计:")
	assert.Contains(t, report, "[48001] ×1")
}

func TestReportErrorCodeHistogramOrder(t *testing.T) {
	results := []Result{
		{Index: 0, Title: "a", Error: &ErrorInfo{Kind: KindRemoteAPI, Code: 45011, Message: "freq limit"}},
		{Index: 1, Title: "b", Error: &ErrorInfo{Kind: KindRemoteAPI, Code: 48001, Message: "api unauthorized"}},
		{Index: 2, Title: "c", Error: &ErrorInfo{Kind: KindRemoteAPI, Code: 45011, Message: "freq limit"}},
		{Index: 3, Title: "d", Error: &ErrorInfo{Kind: KindRemoteAPI, Code: 40001, Message: "invalid credential"}},
	}
	summary := summarize(results, 0)

	report := Report(results, summary)

	// 次数降序，同次数按错误码升序
	i45011 := strings.Index(report, "[45011] ×2")
	i40001 := strings.Index(report, "[40001] ×1")
	i48001 := strings.Index(report, "[48001] ×1")
	require.Positive(t, i45011)
	require.Positive(t, i40001)
	require.Positive(t, i48001)
	assert.Less(t, i45011, i40001)
	assert.Less(t, i40001, i48001)
}

func TestReportDeterministic(t *testing.T) {
	results := []Result{
		{Index: 0, Title: "a", Error: &ErrorInfo{Kind: KindNetwork, Message: "dial tcp: timeout"}},
		{Index: 1, Title: "b", Success: true},
	}
	summary := summarize(results, 1500*time.Millisecond)

	first := Report(results, summary)
	for n := 0; n < 5; n++ {
		assert.Equal(t, first, Report(results, summary))
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{100, "优秀"},
		{95, "优秀"},
		{94.99, "良好"},
		{80, "良好"},
		{79.5, "一般"},
		{60, "一般"},
		{59.99, "较差"},
		{0, "较差"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rating(tt.rate), "rate %.2f", tt.rate)
	}
}
