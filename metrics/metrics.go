// Package metrics exposes transfer counters and timings.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compose kinds used as the "kind" label.
const (
	ComposeIntermediate = "intermediate"
	ComposeFinal        = "final"
)

// Transfer statuses used as the "status" label.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics records transfer activity.
type Metrics interface {
	IncFragmentsUploaded()
	IncUploadRetries()
	IncComposes(kind string)
	AddBytesTransferred(n int)
	ObserveTransfer(status string, d time.Duration)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncFragmentsUploaded()                 {}
func (Noop) IncUploadRetries()                     {}
func (Noop) IncComposes(string)                    {}
func (Noop) AddBytesTransferred(int)               {}
func (Noop) ObserveTransfer(string, time.Duration) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	fragmentsUploaded prometheus.Counter
	uploadRetries     prometheus.Counter
	composes          *prometheus.CounterVec
	bytesTransferred  prometheus.Counter
	transfers         *prometheus.CounterVec
	duration          prometheus.Histogram
}

// NewProm creates the collectors under namespace and registers them with reg.
// A nil reg registers with the default registerer.
func NewProm(namespace string, reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		fragmentsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_uploaded_total",
			Help:      "Chunk fragments written to the destination",
		}),
		uploadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_retries_total",
			Help:      "Rate-limited store calls that were retried",
		}),
		composes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "composes_total",
			Help:      "Compose calls by kind",
		}, []string{"kind"}),
		bytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_transferred_total",
			Help:      "Bytes uploaded as fragments",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Finished transfers by status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Wall time of finished transfers",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}),
	}

	for _, c := range []prometheus.Collector{
		p.fragmentsUploaded, p.uploadRetries, p.composes, p.bytesTransferred, p.transfers, p.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prom) IncFragmentsUploaded() {
	p.fragmentsUploaded.Inc()
}

func (p *Prom) IncUploadRetries() {
	p.uploadRetries.Inc()
}

func (p *Prom) IncComposes(kind string) {
	p.composes.WithLabelValues(kind).Inc()
}

func (p *Prom) AddBytesTransferred(n int) {
	p.bytesTransferred.Add(float64(n))
}

func (p *Prom) ObserveTransfer(status string, d time.Duration) {
	p.transfers.WithLabelValues(status).Inc()
	p.duration.Observe(d.Seconds())
}

// Handler returns an HTTP handler for /metrics over the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler for /metrics over g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
