package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var renderDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "resumeforge",
		Subsystem: "pdf",
		Name:      "render_duration_seconds",
		Help:      "PDF 渲染耗时分布（秒）。",
		Buckets:   prometheus.DefBuckets,
	},
)

// ObserveRender 记录一次渲染的耗时。
func ObserveRender(start time.Time) {
	renderDuration.Observe(time.Since(start).Seconds())
}
