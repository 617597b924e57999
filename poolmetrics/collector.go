// Package poolmetrics adapts a pool.Pool's Stats snapshot to a Prometheus
// Collector, in the style of the workflow engine's MetricsCollector: a
// handful of named gauge and counter metrics, built as const metrics from a
// fresh Stats snapshot on each scrape, registered against a dedicated
// registry and served through promhttp.
package poolmetrics

import (
	"net/http"

	"github.com/makise-co/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes a pool.Pool's Stats as Prometheus gauges and counters.
// It implements prometheus.Collector, so it can also be wired into an
// application's own registry with reg.MustRegister(c) instead of using the
// private registry + Handler this type also provides for standalone use.
type Collector struct {
	p        *pool.Pool
	name     string
	registry *prometheus.Registry

	maxActive    *prometheus.Desc
	totalCount   *prometheus.Desc
	idle         *prometheus.Desc
	inUse        *prometheus.Desc
	waitCount    *prometheus.Desc
	waitSeconds  *prometheus.Desc
	idleClosed   *prometheus.Desc
	lifeClosed   *prometheus.Desc
}

// NewCollector builds a Collector for p, labeling every metric with name
// (e.g. the logical pool's purpose: "redis", "orders-db").
func NewCollector(p *pool.Pool, name string) *Collector {
	labels := []string{"pool"}
	c := &Collector{
		p:    p,
		name: name,
		maxActive: prometheus.NewDesc(
			"pool_max_active", "Configured maximum number of active connections.", labels, nil),
		totalCount: prometheus.NewDesc(
			"pool_total_count", "Total connections currently owned by the pool.", labels, nil),
		idle: prometheus.NewDesc(
			"pool_idle", "Connections currently sitting idle.", labels, nil),
		inUse: prometheus.NewDesc(
			"pool_in_use", "Connections currently checked out.", labels, nil),
		waitCount: prometheus.NewDesc(
			"pool_wait_count_total", "Number of borrows that had to wait for a connection.", labels, nil),
		waitSeconds: prometheus.NewDesc(
			"pool_wait_seconds_total", "Cumulative time borrowers spent waiting.", labels, nil),
		idleClosed: prometheus.NewDesc(
			"pool_idle_closed_total", "Connections closed for exceeding max idle time.", labels, nil),
		lifeClosed: prometheus.NewDesc(
			"pool_life_closed_total", "Connections closed for exceeding max lifetime.", labels, nil),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	c.registry = reg
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxActive
	ch <- c.totalCount
	ch <- c.idle
	ch <- c.inUse
	ch <- c.waitCount
	ch <- c.waitSeconds
	ch <- c.idleClosed
	ch <- c.lifeClosed
}

// Collect implements prometheus.Collector, sampling a fresh Stats snapshot
// on every scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.p.Stats()

	ch <- prometheus.MustNewConstMetric(c.maxActive, prometheus.GaugeValue, float64(stats.MaxActive), c.name)
	ch <- prometheus.MustNewConstMetric(c.totalCount, prometheus.GaugeValue, float64(stats.TotalCount), c.name)
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.Idle), c.name)
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stats.InUse), c.name)
	ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, float64(stats.WaitCount), c.name)
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, stats.WaitDuration.Seconds(), c.name)
	ch <- prometheus.MustNewConstMetric(c.idleClosed, prometheus.CounterValue, float64(stats.IdleClosed), c.name)
	ch <- prometheus.MustNewConstMetric(c.lifeClosed, prometheus.CounterValue, float64(stats.LifeClosed), c.name)
}

// Handler serves this Collector's private registry, for applications that
// don't already run their own Prometheus registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
