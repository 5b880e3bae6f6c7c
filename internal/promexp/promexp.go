// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package promexp exports the counters of an expvar.Map as Prometheus
// metrics.
package promexp

import (
	"expvar"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// A Collector is a prometheus.Collector reporting the integer and float
// entries of an expvar.Map. Each entry is exported as a counter named
// namespace_key, unless it is listed as a gauge. Entries of other types are
// skipped.
type Collector struct {
	namespace string
	vars      *expvar.Map
	gauges    map[string]bool
}

// New constructs a Collector for the entries of m. The entries named in
// gauges are exported as gauges rather than counters.
func New(namespace string, m *expvar.Map, gauges ...string) *Collector {
	c := &Collector{namespace: namespace, vars: m, gauges: make(map[string]bool)}
	for _, g := range gauges {
		c.gauges[g] = true
	}
	return c
}

// Describe implements part of prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) { prometheus.DescribeByCollect(c, ch) }

// Collect implements part of prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.vars.Do(func(kv expvar.KeyValue) {
		var v float64
		switch t := kv.Value.(type) {
		case *expvar.Int:
			v = float64(t.Value())
		case *expvar.Float:
			v = t.Value()
		default:
			return
		}
		typ := prometheus.CounterValue
		if c.gauges[kv.Key] {
			typ = prometheus.GaugeValue
		}
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", kv.Key),
			"Exported from expvar "+kv.Key+".",
			nil, nil,
		)
		ch <- prometheus.MustNewConstMetric(desc, typ, v)
	})
}

// Handler returns an HTTP handler serving the metrics of the given
// collectors in the Prometheus exposition format.
func Handler(cs ...prometheus.Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
