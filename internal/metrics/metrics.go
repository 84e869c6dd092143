// Package metrics 为下载生命周期提供 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "model_downloader"

// Collector 记录下载相关指标
type Collector struct {
	started    prometheus.Counter
	finished   *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	bytes      prometheus.Counter
	inProgress prometheus.Gauge
	duration   *prometheus.HistogramVec
	broadcasts prometheus.Counter
	evicted    prometheus.Counter
}

// New 创建指标并注册到 reg
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_started_total",
			Help:      "Downloads accepted and dispatched.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_finished_total",
			Help:      "Downloads that reached a terminal status.",
		}, []string{"status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Download requests rejected by validation.",
		}, []string{"reason"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_downloaded_total",
			Help:      "Bytes written to disk by all transfers.",
		}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "downloads_in_progress",
			Help:      "Transfers currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Transfer duration until terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"status"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Progress notifications sent to the broadcast sink.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_evicted_total",
			Help:      "Terminal records removed after the retention window.",
		}),
	}

	reg.MustRegister(
		c.started,
		c.finished,
		c.rejected,
		c.bytes,
		c.inProgress,
		c.duration,
		c.broadcasts,
		c.evicted,
	)
	return c
}

func (c *Collector) DownloadStarted() {
	c.started.Inc()
	c.inProgress.Inc()
}

func (c *Collector) DownloadFinished(status string, elapsed time.Duration) {
	c.inProgress.Dec()
	c.finished.WithLabelValues(status).Inc()
	c.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (c *Collector) RequestRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}

func (c *Collector) BytesWritten(n int) {
	c.bytes.Add(float64(n))
}

func (c *Collector) BroadcastSent() {
	c.broadcasts.Inc()
}

func (c *Collector) RecordEvicted() {
	c.evicted.Inc()
}
