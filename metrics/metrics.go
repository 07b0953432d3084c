// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports Prometheus metrics about plan executions.
//
// Create a Collector, register it, and install it into the handler group
// of every Client to observe:
//
//	c := metrics.New("myapp")
//	prometheus.MustRegister(c)
//	handlers := &httpipe.HandlerGroup{}
//	c.Install(handlers)
//	client := &httpipe.Client{Handlers: handlers}
package metrics

import (
	"strconv"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/request"
	"github.com/prometheus/client_golang/prometheus"
)

// A Collector records execution metrics from the events of the clients
// it is installed into. It implements prometheus.Collector.
type Collector struct {
	executions *prometheus.CounterVec
	hops       prometheus.Counter
	redirects  *prometheus.CounterVec
	timeouts   prometheus.Counter
	responses  *prometheus.CounterVec
	inFlight   prometheus.Gauge
	duration   prometheus.Histogram
}

// New returns a Collector whose metric names are prefixed with
// namespace. An empty namespace yields names prefixed "httpipe_".
func New(namespace string) *Collector {
	subsystem := "httpipe"
	if namespace == "" {
		namespace, subsystem = "httpipe", ""
	}
	return &Collector{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "executions_total",
			Help:      "Plan executions by outcome; outcome is the error kind, or \"none\" on success.",
		}, []string{"outcome"}),
		hops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hops_total",
			Help:      "HTTP requests sent, including every redirect hop.",
		}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "redirects_total",
			Help:      "Redirects followed, by redirect status code.",
		}, []string{"code"}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hop_timeouts_total",
			Help:      "Hops which failed because their deadline expired.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "responses_total",
			Help:      "Response headers received, by status code.",
		}, []string{"code"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "executions_in_flight",
			Help:      "Plan executions currently running.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "execution_duration_seconds",
			Help:      "Time from the first hop until the execution ends, excluding body reads.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.executions,
		c.hops,
		c.redirects,
		c.timeouts,
		c.responses,
		c.inFlight,
		c.duration,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

// Install adds the collector's handlers to g. The same collector may be
// installed into any number of groups.
func (c *Collector) Install(g *httpipe.HandlerGroup) {
	g.PushBack(httpipe.BeforeExecutionStart, httpipe.HandlerFunc(c.start))
	g.PushBack(httpipe.BeforeHop, httpipe.HandlerFunc(c.hop))
	g.PushBack(httpipe.AfterHopTimeout, httpipe.HandlerFunc(c.timeout))
	g.PushBack(httpipe.AfterHeaders, httpipe.HandlerFunc(c.headers))
	g.PushBack(httpipe.BeforeRedirect, httpipe.HandlerFunc(c.redirect))
	g.PushBack(httpipe.AfterExecutionEnd, httpipe.HandlerFunc(c.end))
}

func (c *Collector) start(_ httpipe.Event, _ *request.Execution) {
	c.inFlight.Inc()
}

func (c *Collector) hop(_ httpipe.Event, _ *request.Execution) {
	c.hops.Inc()
}

func (c *Collector) timeout(_ httpipe.Event, _ *request.Execution) {
	c.timeouts.Inc()
}

func (c *Collector) headers(_ httpipe.Event, e *request.Execution) {
	c.responses.WithLabelValues(strconv.Itoa(e.StatusCode())).Inc()
}

func (c *Collector) redirect(_ httpipe.Event, e *request.Execution) {
	if n := len(e.Chain); n > 0 {
		c.redirects.WithLabelValues(strconv.Itoa(e.Chain[n-1].StatusCode)).Inc()
	}
}

func (c *Collector) end(_ httpipe.Event, e *request.Execution) {
	c.inFlight.Dec()
	c.executions.WithLabelValues(request.Kind(e.Err)).Inc()
	c.duration.Observe(e.Duration().Seconds())
}
