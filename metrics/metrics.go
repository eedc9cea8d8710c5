// Package metrics はシミュレーションとHTTPリクエストのPrometheusメトリクスを提供します。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// シミュレーション結果の区分
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics は独自のレジストリに登録したコレクターをまとめたものです。
// nilのMetricsに対するメソッド呼び出しは何もしません。
type Metrics struct {
	registry *prometheus.Registry

	simulations  *prometheus.CounterVec
	duration     prometheus.Histogram
	riskScore    prometheus.Histogram
	httpRequests *prometheus.CounterVec
}

// New は新しいレジストリを作成し、すべてのコレクターを登録します。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dosesim_simulations_total",
			Help: "Number of simulation requests by substance and outcome.",
		}, []string{"substance", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dosesim_simulation_duration_seconds",
			Help:    "Time spent in the simulation engine.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		riskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dosesim_risk_score",
			Help:    "Risk score of completed simulations.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dosesim_http_requests_total",
			Help: "Number of HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.simulations,
		m.duration,
		m.riskScore,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSimulation はエンジン1回分の実行を記録します。
// riskScoreはoutcomeがOutcomeOKの場合のみ記録されます。
func (m *Metrics) ObserveSimulation(substance, outcome string, elapsed time.Duration, riskScore float64) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(substance, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.riskScore.Observe(riskScore)
}

// ObserveRequest はHTTPリクエスト1件を記録します。
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler はPrometheus形式でメトリクスを返すハンドラーです。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
