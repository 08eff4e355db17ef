package uploader

import (
	"fmt"
	"sort"
	"strings"
)

// Report 生成批次上传的文本报告
//
// 报告内容包括总量统计、成功率评级、逐条失败明细和错误码分布，
// 相同输入产生相同输出。
func Report(results []Result, summary Summary) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("微信小店商品上传报告\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "商品总数: %d\n", summary.Total)
	fmt.Fprintf(&b, "上传成功: %d\n", summary.Succeeded)
	fmt.Fprintf(&b, "上传失败: %d\n", summary.Failed)
	fmt.Fprintf(&b, "成功率: %.2f%%\n", summary.SuccessRatePercent)
	fmt.Fprintf(&b, "总耗时: %.2f秒\n", summary.DurationSeconds)
	fmt.Fprintf(&b, "结果评级: %s\n", rating(summary.SuccessRatePercent))

	b.WriteString(rule + "\n")
	if summary.Failed == 0 {
		b.WriteString("无失败商品\n")
	} else {
		b.WriteString("失败明细:\n")
		for _, r := range results {
			if r.Success {
				continue
			}
			fmt.Fprintf(&b, "商品 %d: %s\n", r.Index+1, r.Title)
			if r.Error != nil {
				fmt.Fprintf(&b, "  错误类别: %s\n", r.Error.Kind)
				if r.Error.Code != 0 {
					fmt.Fprintf(&b, "  错误码: %d\n", r.Error.Code)
				}
				fmt.Fprintf(&b, "  错误信息: %s\n", r.Error.Message)
			}
			b.WriteString(strings.Repeat("-", 60) + "\n")
		}

		if hist := errorCodeHistogram(results); len(hist) > 0 {
			b.WriteString("错误码统计:\n")
			for _, e := range hist {
				fmt.Fprintf(&b, "  [%d] ×%d\n", e.code, e.count)
			}
		}
	}
	b.WriteString(rule + "\n")

	return b.String()
}

func rating(successRate float64) string {
	switch {
	case successRate >= 95:
		return "优秀"
	case successRate >= 80:
		return "良好"
	case successRate >= 60:
		return "一般"
	default:
		return "较差"
	}
}

type codeCount struct {
	code  int
	count int
}

func errorCodeHistogram(results []Result) []codeCount {
	counts := make(map[int]int)
	for _, r := range results {
		if r.Success || r.Error == nil || r.Error.Code == 0 {
			continue
		}
		counts[r.Error.Code]++
	}
	if len(counts) == 0 {
		return nil
	}

	hist := make([]codeCount, 0, len(counts))
	for code, n := range counts {
		hist = append(hist, codeCount{code: code, count: n})
	}
	// 次数多的在前，次数相同按错误码升序
	sort.Slice(hist, func(i, j int) bool {
		if hist[i].count != hist[j].count {
			return hist[i].count > hist[j].count
		}
		return hist[i].code < hist[j].code
	})
	return hist
}
