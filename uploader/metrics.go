package uploader

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 上传指标
// 可选组件，未配置时编排器照常工作。
type Metrics struct {
	itemsTotal    *prometheus.CounterVec
	itemAttempts  prometheus.Histogram
	batchDuration prometheus.Histogram
	batchSize     prometheus.Histogram
}

// NewMetrics 创建并注册上传指标
// reg 为 nil 时只创建不注册（测试用）。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "product_upload",
			Subsystem: "uploader",
			Name:      "items_total",
			Help:      "Upload outcomes by error kind.",
		}, []string{"outcome"}),
		itemAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "product_upload",
			Subsystem: "uploader",
			Name:      "item_attempts",
			Help:      "Request attempts consumed per item.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "product_upload",
			Subsystem: "uploader",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of a batch.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "product_upload",
			Subsystem: "uploader",
			Name:      "batch_size",
			Help:      "Number of items per batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.itemsTotal, m.itemAttempts, m.batchDuration, m.batchSize)
	}
	return m
}

func (m *Metrics) observeItem(r Result) {
	if m == nil {
		return
	}

	outcome := "success"
	if !r.Success && r.Error != nil {
		outcome = string(r.Error.Kind)
	}
	m.itemsTotal.WithLabelValues(outcome).Inc()
	if r.Attempts > 0 {
		m.itemAttempts.Observe(float64(r.Attempts))
	}
}

func (m *Metrics) observeBatch(s Summary) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(s.DurationSeconds)
	m.batchSize.Observe(float64(s.Total))
}
