// Prometheus-text metrics for the motion host
//
// Counter, Gauge and Histogram backed by a registry that renders the
// Prometheus exposition format. No client library dependency; the text
// format is simple enough to emit directly.
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Labels are the label key/value pairs attached to one metric series.
type Labels map[string]string

// key is the canonical series identity: sorted k=v pairs.
func (l Labels) key() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

func (l Labels) format() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		// %q escaping matches the exposition format for \, " and \n
		fmt.Fprintf(&sb, "%s=%q", k, l[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

func (l Labels) clone() Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Metric is anything the registry can render.
type Metric interface {
	Name() string
	Render(sb *strings.Builder)
}

type series struct {
	labels Labels
	value  float64
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name string
	help string

	mu     sync.Mutex
	series map[string]*series
}

// NewCounter creates a counter. Register it before use.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help, series: make(map[string]*series)}
}

func (c *Counter) Name() string { return c.name }

// Inc increments the series for labels by 1.
func (c *Counter) Inc(labels Labels) { c.Add(labels, 1) }

// Add increments the series for labels by delta; negative deltas are ignored.
func (c *Counter) Add(labels Labels, delta float64) {
	if delta < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := labels.key()
	s, ok := c.series[k]
	if !ok {
		s = &series{labels: labels.clone()}
		c.series[k] = s
	}
	s.value += delta
}

// Get returns the current value of the series for labels.
func (c *Counter) Get(labels Labels) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.series[labels.key()]; ok {
		return s.value
	}
	return 0
}

func (c *Counter) Render(sb *strings.Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	renderHeader(sb, c.name, c.help, "counter")
	renderSeries(sb, c.name, c.series)
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	name string
	help string

	mu     sync.Mutex
	series map[string]*series
}

// NewGauge creates a gauge. Register it before use.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help, series: make(map[string]*series)}
}

func (g *Gauge) Name() string { return g.name }

// Set replaces the series value for labels.
func (g *Gauge) Set(labels Labels, value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := labels.key()
	s, ok := g.series[k]
	if !ok {
		s = &series{labels: labels.clone()}
		g.series[k] = s
	}
	s.value = value
}

// Add adjusts the series value for labels by delta.
func (g *Gauge) Add(labels Labels, delta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := labels.key()
	s, ok := g.series[k]
	if !ok {
		s = &series{labels: labels.clone()}
		g.series[k] = s
	}
	s.value += delta
}

// Inc increments the series for labels by 1.
func (g *Gauge) Inc(labels Labels) { g.Add(labels, 1) }

// Dec decrements the series for labels by 1.
func (g *Gauge) Dec(labels Labels) { g.Add(labels, -1) }

// Get returns the current value of the series for labels.
func (g *Gauge) Get(labels Labels) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.series[labels.key()]; ok {
		return s.value
	}
	return 0
}

func (g *Gauge) Render(sb *strings.Builder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	renderHeader(sb, g.name, g.help, "gauge")
	renderSeries(sb, g.name, g.series)
}

// Histogram tracks the distribution of observations in cumulative buckets.
type Histogram struct {
	name    string
	help    string
	bounds  []float64

	mu     sync.Mutex
	series map[string]*histSeries
}

type histSeries struct {
	labels  Labels
	count   uint64
	sum     float64
	buckets []uint64
}

// NewHistogram creates a histogram with the given bucket upper bounds.
func NewHistogram(name, help string, bounds []float64) *Histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	return &Histogram{
		name:   name,
		help:   help,
		bounds: sorted,
		series: make(map[string]*histSeries),
	}
}

// DurationBuckets are bounds suited to per-move planning latencies.
func DurationBuckets() []float64 {
	return []float64{1e-4, 5e-4, 1e-3, 5e-3, 0.01, 0.05, 0.1, 0.5, 1, 5}
}

func (h *Histogram) Name() string { return h.name }

// Observe records one value.
func (h *Histogram) Observe(labels Labels, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := labels.key()
	s, ok := h.series[k]
	if !ok {
		s = &histSeries{labels: labels.clone(), buckets: make([]uint64, len(h.bounds))}
		h.series[k] = s
	}
	s.count++
	s.sum += value
	for i, bound := range h.bounds {
		if value <= bound {
			s.buckets[i]++
		}
	}
}

// Timer returns a func that observes the elapsed seconds when called.
func (h *Histogram) Timer(labels Labels) func() {
	start := time.Now()
	return func() { h.Observe(labels, time.Since(start).Seconds()) }
}

// Count returns the observation count of the series for labels.
func (h *Histogram) Count(labels Labels) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.series[labels.key()]; ok {
		return s.count
	}
	return 0
}

func (h *Histogram) Render(sb *strings.Builder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	renderHeader(sb, h.name, h.help, "histogram")
	for _, s := range sortedHist(h.series) {
		cumulative := uint64(0)
		for i, bound := range h.bounds {
			cumulative += s.buckets[i]
			ls := s.labels.clone()
			ls["le"] = fmt.Sprintf("%g", bound)
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, ls.format(), cumulative)
		}
		ls := s.labels.clone()
		ls["le"] = "+Inf"
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, ls.format(), s.count)
		fmt.Fprintf(sb, "%s_sum%s %g\n", h.name, s.labels.format(), s.sum)
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, s.labels.format(), s.count)
	}
}

func renderHeader(sb *strings.Builder, name, help, typ string) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, typ)
}

// renderSeries writes series sorted by label key so output is stable.
func renderSeries(sb *strings.Builder, name string, m map[string]*series) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := m[k]
		fmt.Fprintf(sb, "%s%s %g\n", name, s.labels.format(), s.value)
	}
}

func sortedHist(m map[string]*histSeries) []*histSeries {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*histSeries, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// Registry holds metrics in registration order and renders them all.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Metric
	ordered []Metric
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Metric)}
}

// Register adds a metric; duplicate names are an error.
func (r *Registry) Register(m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[m.Name()]; exists {
		return fmt.Errorf("metric %q already registered", m.Name())
	}
	r.byName[m.Name()] = m
	r.ordered = append(r.ordered, m)
	return nil
}

// MustRegister adds a metric and panics on a duplicate name.
func (r *Registry) MustRegister(metrics ...Metric) {
	for _, m := range metrics {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Gather renders every registered metric in Prometheus text format.
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sb strings.Builder
	for _, m := range r.ordered {
		m.Render(&sb)
	}
	return sb.String()
}
