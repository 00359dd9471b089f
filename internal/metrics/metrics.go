// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordView()
	RecordLogin(result string)
	RecordCatalogRequest(result string)
	RecordCatalogLatency(duration time.Duration)
	RecordCatalogSynced(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	viewsRecorded   prometheus.Counter
	authLogins      *prometheus.CounterVec
	catalogRequests *prometheus.CounterVec
	catalogLatency  prometheus.Histogram
	catalogSynced   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mangashelf_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		viewsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mangashelf_views_recorded_total",
			Help: "記録されたチャプター閲覧数の合計",
		}),
		authLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mangashelf_auth_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mangashelf_catalog_requests_total",
			Help: "結果別の外部カタログAPI呼び出し数",
		}, []string{"result"}),
		catalogLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mangashelf_catalog_latency_seconds",
			Help:    "外部カタログAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		catalogSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mangashelf_catalog_synced_total",
			Help: "カタログ同期でメタデータを更新したマンガの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.viewsRecorded,
		c.authLogins,
		c.catalogRequests,
		c.catalogLatency,
		c.catalogSynced,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordView はチャプター閲覧の記録を1件数える。
func (c *Collector) RecordView() {
	c.viewsRecorded.Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.authLogins.WithLabelValues(result).Inc()
}

// RecordCatalogRequest は外部カタログAPI呼び出しの結果を記録する。
func (c *Collector) RecordCatalogRequest(result string) {
	c.catalogRequests.WithLabelValues(result).Inc()
}

// RecordCatalogLatency は外部カタログAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordCatalogLatency(duration time.Duration) {
	c.catalogLatency.Observe(duration.Seconds())
}

// RecordCatalogSynced はカタログ同期で更新したマンガ数を記録する。
func (c *Collector) RecordCatalogSynced(count int) {
	c.catalogSynced.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
