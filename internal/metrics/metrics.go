// Package metrics 同步流程的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ngrokdns"

// SyncTotal 按结果统计同步次数（updated、partial、failed、noop）。
var SyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dns",
	Name:      "sync_total",
	Help:      "Counter of DNS reconciliation passes by outcome.",
}, []string{"outcome"})

// RecordUpdates 按记录角色和结果统计更新请求。
var RecordUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dns",
	Name:      "record_update_total",
	Help:      "Counter of DNS record update calls.",
}, []string{"role", "result"})

// ProviderRetries 按操作统计重试次数。
var ProviderRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dns",
	Name:      "provider_retry_total",
	Help:      "Counter of retried DNS provider calls.",
}, []string{"op"})

// DescriptorWait 隧道描述符可读所需时间。
var DescriptorWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "tunnel",
	Name:      "descriptor_wait_seconds",
	Help:      "Time spent waiting for the tunnel descriptor.",
	Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
})

// PassTotal 按终止状态统计流程次数。
var PassTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "pass_total",
	Help:      "Counter of pipeline passes by terminal state.",
}, []string{"state"})

// Handler 暴露默认注册表。
func Handler() http.Handler {
	return promhttp.Handler()
}
