package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 简化链路的Prometheus指标
var (
	simplifyRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simplify_requests_total",
			Help: "Total number of simplification requests",
		},
		[]string{"kind", "status"}, // kind: fresh, follow_up; status: success, error
	)

	fallbackActivationsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simplify_fallback_activations_total",
			Help: "Number of requests served by the rule-based fallback",
		},
	)

	engineDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simplify_engine_duration_seconds",
			Help:    "Duration of simplification engine calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	vectorStoreErrorsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_vector_store_errors_total",
			Help: "Number of failed vector store operations",
		},
		[]string{"op"},
	)

	pdfUploadsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_uploads_total",
			Help: "Total number of PDF uploads",
		},
		[]string{"status"},
	)
)

// MetricsService 指标服务
type MetricsService struct{}

// NewMetricsService 创建指标服务
func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ServeHTTP 实现http.Handler接口
func (ms *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ms.Handler().ServeHTTP(w, r)
}

func recordSimplifyRequest(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	simplifyRequestsCounter.WithLabelValues(kind, status).Inc()
}

func recordEngineDuration(engine string, start time.Time) {
	engineDurationHistogram.WithLabelValues(engine).Observe(time.Since(start).Seconds())
}

func recordFallbackActivation() {
	fallbackActivationsCounter.Inc()
}

func recordVectorStoreError(op string) {
	vectorStoreErrorsCounter.WithLabelValues(op).Inc()
}

func recordPDFUpload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pdfUploadsCounter.WithLabelValues(status).Inc()
}
