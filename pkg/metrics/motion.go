// Motion pipeline metric bundle
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	goruntime "runtime"
	"time"
)

// MotionMetrics bundles every series the motion pipeline publishes.
type MotionMetrics struct {
	MovesQueued     *Counter
	MovesRejected   *Counter
	MovePlanTime    *Histogram
	SegmentQueueLen *Gauge
	ToolheadPos     *Gauge
	StepsEmitted    *Counter
	StepBufferFree  *Gauge
	ShaperActive    *Gauge
	EmergencyStops  *Counter
	ErrorsTotal     *Counter

	GoGoroutines *Gauge
	GoHeapBytes  *Gauge

	registry *Registry
}

// NewMotionMetrics creates the bundle and registers it with a fresh
// registry.
func NewMotionMetrics() *MotionMetrics {
	m := &MotionMetrics{
		MovesQueued:     NewCounter("motion_moves_queued_total", "Moves accepted into the segment queue"),
		MovesRejected:   NewCounter("motion_moves_rejected_total", "Moves rejected before queueing, by reason"),
		MovePlanTime:    NewHistogram("motion_move_plan_seconds", "Time spent planning one move", DurationBuckets()),
		SegmentQueueLen: NewGauge("motion_segment_queue_length", "Segments waiting for emission"),
		ToolheadPos:     NewGauge("motion_toolhead_position_mm", "Last commanded position, by axis"),
		StepsEmitted:    NewCounter("motion_steps_emitted_total", "Step pulses generated, by axis"),
		StepBufferFree:  NewGauge("motion_step_buffer_free", "Free slots in the step command buffer"),
		ShaperActive:    NewGauge("motion_shaper_active", "1 when an input shaper is installed on the axis"),
		EmergencyStops:  NewCounter("motion_emergency_stops_total", "Emergency stop invocations"),
		ErrorsTotal:     NewCounter("motion_errors_total", "Errors surfaced by the pipeline, by code"),
		GoGoroutines:    NewGauge("go_goroutines", "Live goroutines"),
		GoHeapBytes:     NewGauge("go_heap_alloc_bytes", "Heap bytes allocated and in use"),
		registry:        NewRegistry(),
	}
	m.registry.MustRegister(
		m.MovesQueued, m.MovesRejected, m.MovePlanTime,
		m.SegmentQueueLen, m.ToolheadPos, m.StepsEmitted,
		m.StepBufferFree, m.ShaperActive, m.EmergencyStops,
		m.ErrorsTotal, m.GoGoroutines, m.GoHeapBytes,
	)
	return m
}

// Registry exposes the bundle's registry for serving.
func (m *MotionMetrics) Registry() *Registry { return m.registry }

// Gather renders the bundle in Prometheus text format.
func (m *MotionMetrics) Gather() string { return m.registry.Gather() }

// CollectRuntime samples Go runtime stats into the gauges. Call it
// periodically; a 10s cadence is plenty.
func (m *MotionMetrics) CollectRuntime() {
	m.GoGoroutines.Set(nil, float64(goruntime.NumGoroutine()))
	var ms goruntime.MemStats
	goruntime.ReadMemStats(&ms)
	m.GoHeapBytes.Set(nil, float64(ms.HeapAlloc))
}

// RuntimeCollector samples runtime stats every interval until stop is
// closed.
func (m *MotionMetrics) RuntimeCollector(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CollectRuntime()
		case <-stop:
			return
		}
	}
}
