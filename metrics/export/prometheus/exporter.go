package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcoord "github.com/veldtma/authcoord"
	"github.com/veldtma/authcoord/metrics/export/internaldefs"
)

// MetricsSource is the slice of the coordinator the exporter reads.
type MetricsSource interface {
	MetricsSnapshot() authcoord.MetricsSnapshot
	AuditDropped() uint64
}

// Collector adapts coordinator counters to a prometheus.Collector. Values
// are read at scrape time; nothing is cached between scrapes.
type Collector struct {
	source       MetricsSource
	counterDescs []counterDesc
	histDescs    []histDesc
	droppedDesc  *prometheus.Desc
}

type counterDesc struct {
	id   authcoord.MetricID
	desc *prometheus.Desc
}

type histDesc struct {
	id   authcoord.MetricID
	desc *prometheus.Desc
}

// NewCollector creates a Collector reading from the coordinator.
func NewCollector(coord *authcoord.Coordinator) *Collector {
	return NewCollectorFromSource(coord)
}

// NewCollectorFromSource creates a Collector from any MetricsSource.
func NewCollectorFromSource(source MetricsSource) *Collector {
	c := &Collector{
		source: source,
		droppedDesc: prometheus.NewDesc(
			"authcoord_audit_dropped_total",
			"Audit events dropped under dispatcher backpressure.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counterDescs = append(c.counterDescs, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histDescs = append(c.histDescs, histDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counterDescs {
		ch <- cd.desc
	}
	for _, hd := range c.histDescs {
		ch <- hd.desc
	}
	ch <- c.droppedDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.MetricsSnapshot()

	for _, cd := range c.counterDescs {
		ch <- prometheus.MustNewConstMetric(
			cd.desc, prometheus.CounterValue, float64(snapshot.Counters[cd.id]))
	}

	for _, hd := range c.histDescs {
		cumulative := internaldefs.CumulativeBuckets(
			internaldefs.NormalizeBuckets(snapshot.Histograms[hd.id]))

		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]
		// The core recorder keeps bucket counts only; the sum is not
		// tracked, so it is reported as zero.
		ch <- prometheus.MustNewConstHistogram(hd.desc, count, 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(
		c.droppedDesc, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Handler returns an http.Handler serving this collector from a private
// registry; the global default registry is never touched.
func (c *Collector) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(c)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
