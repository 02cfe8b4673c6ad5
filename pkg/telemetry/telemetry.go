// Package telemetry streams motion queue status to monitoring clients
// over WebSocket and serves the same snapshot via a REST endpoint.
package telemetry

// Status is one point-in-time snapshot of the motion pipeline.
type Status struct {
	Position       [4]float64 `json:"position"`
	QueueLength    int        `json:"queue_length"`
	MaxQueueLength int        `json:"max_queue_length"`
	LastCommand    string     `json:"last_command"`
	Mode           string     `json:"mode"`
	BufferPending  int        `json:"buffer_pending"`
	BufferFree     int        `json:"buffer_free"`
	Stopped        bool       `json:"stopped"`
	Uptime         float64    `json:"uptime"`
}

// Source supplies snapshots for broadcasting. The motion controller
// implements it; tests use a stub.
type Source interface {
	Snapshot() Status
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() Status

func (f SourceFunc) Snapshot() Status { return f() }
