// Package metrics 排班服务的指标采集。
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder 指标采集接口；服务层只依赖此接口
type Recorder interface {
	// GenerationFinished 记录一次生成（result: succeeded | failed | cancelled）
	GenerationFinished(strategy, result string, elapsed time.Duration)
	// RequestConflicts 记录被丢弃的重复希望数
	RequestConflicts(n int)
	// AssignmentOverridden 记录一次人工调整
	AssignmentOverridden(shiftCode string)
	// CoverageShortfalls 记录某月未满足下限的天数
	CoverageShortfalls(month string, days int)
	// JobsInFlight 当前运行中的生成任务数
	JobsInFlight(n int)
	// HTTPRequest 记录一次 API 请求（route 为路由模板）
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// ── Nop ──

// NopRecorder 不做任何事
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

// NewNop 创建空采集器（测试与未开启指标时使用）
func NewNop() NopRecorder { return NopRecorder{} }

func (NopRecorder) GenerationFinished(string, string, time.Duration) {}
func (NopRecorder) RequestConflicts(int)                             {}
func (NopRecorder) AssignmentOverridden(string)                      {}
func (NopRecorder) CoverageShortfalls(string, int)                   {}
func (NopRecorder) JobsInFlight(int)                                 {}
func (NopRecorder) HTTPRequest(string, string, int, time.Duration)   {}

// ── Prometheus ──

// PrometheusRecorder 基于 Prometheus 的采集器，首次使用时注册
type PrometheusRecorder struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	generations       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	requestConflicts  prometheus.Counter
	overrides         *prometheus.CounterVec
	shortfallDays     *prometheus.GaugeVec
	jobsInFlight      prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheus reg 为 nil 时使用 prometheus.DefaultRegisterer；namespace 默认 "shiftcare"
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "shiftcare"
	}
	p := &PrometheusRecorder{reg: reg, namespace: namespace}
	p.ensureRegistered()
	return p
}

func (p *PrometheusRecorder) ensureRegistered() {
	p.once.Do(func() {
		p.generations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Monthly grid generations by strategy and result.",
		}, []string{"strategy", "result"})

		p.generationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "generation_seconds",
			Help:      "Wall time of monthly grid generation in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		}, []string{"strategy"})

		p.requestConflicts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "request_conflicts_total",
			Help:      "Duplicate shift requests dropped by latest-wins reconciliation.",
		})

		p.overrides = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "assignment_overrides_total",
			Help:      "Manual per-cell overrides by shift code.",
		}, []string{"shift_code"})

		p.shortfallDays = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "coverage_shortfall_days",
			Help:      "Days in the month with at least one unmet minimum headcount.",
		}, []string{"month"})

		p.jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "generation_jobs_in_flight",
			Help:      "Asynchronous generation jobs currently running.",
		})

		p.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method, route and status code.",
		}, []string{"method", "route", "status"})

		p.httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "API request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})

		p.reg.MustRegister(
			p.generations,
			p.generationLatency,
			p.requestConflicts,
			p.overrides,
			p.shortfallDays,
			p.jobsInFlight,
			p.httpRequests,
			p.httpLatency,
		)
	})
}

func (p *PrometheusRecorder) GenerationFinished(strategy, result string, elapsed time.Duration) {
	p.generations.WithLabelValues(strategy, result).Inc()
	p.generationLatency.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

func (p *PrometheusRecorder) RequestConflicts(n int) {
	if n > 0 {
		p.requestConflicts.Add(float64(n))
	}
}

func (p *PrometheusRecorder) AssignmentOverridden(shiftCode string) {
	p.overrides.WithLabelValues(shiftCode).Inc()
}

func (p *PrometheusRecorder) CoverageShortfalls(month string, days int) {
	p.shortfallDays.WithLabelValues(month).Set(float64(days))
}

func (p *PrometheusRecorder) JobsInFlight(n int) {
	p.jobsInFlight.Set(float64(n))
}

func (p *PrometheusRecorder) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
