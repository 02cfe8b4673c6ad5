// Trapezoidal trajectory generation and the pending-segment queue
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package trajectory

import (
	"math"
	"sync"

	"motionhost/pkg/config"
	"motionhost/pkg/errors"
	"motionhost/pkg/kinematics"
	"motionhost/pkg/log"
)

// Generator builds trapezoidal velocity profiles and owns the pending
// segment queue shared between the planning path and the step-emission
// drain. All queue access is serialized internally; the generation
// counter lets an emergency stop win any race with an in-flight enqueue.
type Generator struct {
	mu          sync.Mutex
	constraints config.MotionConstraints
	cfg         config.TrajectoryConfig
	current     kinematics.Position
	queue       []*Segment
	generation  uint64
	logger      *log.Logger
}

// NewGenerator creates a trajectory generator. Constraints are validated
// and clamped once here so no zero limit can reach a division later.
func NewGenerator(constraints config.MotionConstraints, cfg config.TrajectoryConfig) (*Generator, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		constraints: constraints.Clamped(),
		cfg:         cfg,
		logger:      log.GetLogger("trajectory"),
	}, nil
}

// CurrentPosition returns the optimistic planner position
func (g *Generator) CurrentPosition() kinematics.Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// SetPosition teleports the planner position, e.g. after homing
func (g *Generator) SetPosition(p kinematics.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = p
}

// GenerateTrapezoidalMove plans a 3-phase move to target at the given
// feedrate and enqueues the resulting segment. Moves shorter than the
// configured minimum distance are a silent no-op success.
func (g *Generator) GenerateTrapezoidalMove(target kinematics.Position, feedrate float64, moveType MoveType) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateLocked(target, feedrate, moveType, g.constraints.MaxAccel)
}

// GenerateTrapezoidalMoveWithAccel plans like GenerateTrapezoidalMove but
// substitutes a per-axis acceleration override. Zero entries fall back to
// the configured limit for that axis; an override never raises an axis
// above its configured limit.
func (g *Generator) GenerateTrapezoidalMoveWithAccel(target kinematics.Position, feedrate float64, moveType MoveType, accel [config.NumAxes]float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	effective := g.constraints.MaxAccel
	for i, a := range accel {
		if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
			return errors.InvalidParametersError("accel_override", "value is not finite or negative")
		}
		if a > 0 && a < effective[i] {
			effective[i] = a
		}
	}
	for i := range effective {
		if effective[i] < config.Epsilon {
			effective[i] = config.Epsilon
		}
	}
	return g.generateLocked(target, feedrate, moveType, effective)
}

func (g *Generator) generateLocked(target kinematics.Position, feedrate float64, moveType MoveType, maxAccel [config.NumAxes]float64) error {
	if feedrate <= 0 {
		feedrate = g.cfg.DefaultFeedrate
	}
	if math.IsNaN(feedrate) || math.IsInf(feedrate, 0) {
		return errors.InvalidParametersError("feedrate", "value is not finite")
	}

	var delta [config.NumAxes]float64
	distSq := 0.0
	for i := 0; i < config.NumAxes; i++ {
		delta[i] = target[i] - g.current[i]
		distSq += delta[i] * delta[i]
	}
	distance := math.Sqrt(distSq)

	// Degenerate geometry: nothing to plan, not an error
	if distance < g.cfg.MinMoveDistance {
		return nil
	}

	var unit [config.NumAxes]float64
	for i := range unit {
		unit[i] = delta[i] / distance
	}

	// The limiting acceleration is set by the axis that saturates first
	limitAccel := math.Inf(1)
	for i := 0; i < config.NumAxes; i++ {
		if unit[i] == 0 {
			continue
		}
		ratio := maxAccel[i] / math.Abs(unit[i])
		if ratio < limitAccel {
			limitAccel = ratio
		}
	}
	if math.IsInf(limitAccel, 1) {
		return errors.InfeasibleError("no axis participates in move")
	}

	velocity := math.Min(feedrate, math.Sqrt(2*limitAccel*distance))
	if velocity < g.cfg.MinVelocity {
		velocity = g.cfg.MinVelocity
	}

	var axisAccel [config.NumAxes]float64
	avgAccel := 0.0
	for i := 0; i < config.NumAxes; i++ {
		axisAccel[i] = math.Abs(unit[i]) * maxAccel[i]
		avgAccel += axisAccel[i]
	}
	avgAccel /= config.NumAxes

	seg := &Segment{
		Target:         target,
		Acceleration:   axisAccel,
		MoveType:       moveType,
		CruiseVelocity: velocity,
		Distance:       distance,
	}

	if avgAccel <= 0 {
		// Constant-velocity fallback spans the whole distance
		seg.CruiseTime = distance / velocity
		seg.Duration = seg.CruiseTime
	} else {
		accelTime := velocity / avgAccel
		accelDist := 0.5 * avgAccel * accelTime * accelTime
		cruiseDist := distance - 2*accelDist
		cruiseTime := 0.0
		if cruiseDist > 0 {
			cruiseTime = cruiseDist / velocity
		}
		seg.AccelTime = accelTime
		seg.DecelTime = accelTime
		seg.CruiseTime = cruiseTime
		seg.Duration = 2*accelTime + cruiseTime
	}

	if math.IsNaN(seg.Duration) || seg.Duration < 0 {
		return errors.InvalidParametersError("trapezoid", "computed duration is not physical")
	}

	g.queue = append(g.queue, seg)
	g.current = target
	g.logger.Debug("queued %s", seg)
	return nil
}

// EnqueueSegment adds an externally planned segment (s-curve or
// snap-crackle modes). The position updates optimistically like the
// trapezoidal path.
func (g *Generator) EnqueueSegment(s *Segment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, s)
	g.current = s.Target
}

// Generation returns the queue generation; it advances on every clear
func (g *Generator) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

// EnqueueSegmentIfGeneration adds a segment only if the queue generation
// still matches gen. A segment planned before an emergency stop is
// discarded rather than enqueued after it. Reports whether the segment
// was accepted.
func (g *Generator) EnqueueSegmentIfGeneration(s *Segment, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.generation != gen {
		return false
	}
	g.queue = append(g.queue, s)
	g.current = s.Target
	return true
}

// NextSegment pops the oldest pending segment in FIFO order
func (g *Generator) NextSegment() (*Segment, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return nil, false
	}
	s := g.queue[0]
	g.queue[0] = nil
	g.queue = g.queue[1:]
	return s, true
}

// ClearQueue atomically replaces the queue with an empty one and advances
// the generation so racing enqueues are discarded
func (g *Generator) ClearQueue() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = nil
	g.generation++
}

// QueueLength returns the number of pending segments
func (g *Generator) QueueLength() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}
