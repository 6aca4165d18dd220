package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shortlink"

// Metrics - счётчики реестра ссылок. Методы допускают nil-получатель,
// чтобы компоненты можно было создавать без метрик
type Metrics struct {
	LinksCreated    *prometheus.CounterVec
	Redirects       *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	Records         prometheus.Gauge
}

// New регистрирует метрики в переданном registerer
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LinksCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Short links created, by code kind (custom or generated).",
		}, []string{"kind"}),
		Redirects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Redirect resolutions, by terminal state.",
		}, []string{"state"}),
		PersistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_persist_failures_total",
			Help:      "Failed slot reads and writes, by operation.",
		}, []string{"op"}),
		Records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Records held by the store.",
		}),
	}
}

func (m *Metrics) LinkCreated(kind string) {
	if m == nil {
		return
	}
	m.LinksCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) Redirect(state string) {
	if m == nil {
		return
	}
	m.Redirects.WithLabelValues(state).Inc()
}

func (m *Metrics) PersistFailed(op string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.Records.Set(float64(n))
}
