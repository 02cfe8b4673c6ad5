// Package motion orchestrates the planning pipeline: kinematics bounds
// checking, profile generation per mode, input shaping and step
// emission into the bounded step buffer.
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

import (
	"context"
	"fmt"
	"math"
	"sync"

	"motionhost/pkg/blend"
	"motionhost/pkg/config"
	"motionhost/pkg/errors"
	"motionhost/pkg/kinematics"
	"motionhost/pkg/log"
	"motionhost/pkg/metrics"
	"motionhost/pkg/sched"
	"motionhost/pkg/scurve"
	"motionhost/pkg/shaper"
	"motionhost/pkg/snapcrackle"
	"motionhost/pkg/stepgen"
	"motionhost/pkg/trajectory"
)

// Mode selects the profile generator for queued moves.
type Mode int

const (
	// ModeBasic plans 3-phase trapezoidal profiles.
	ModeBasic Mode = iota

	// ModeAdaptive plans 7-phase jerk-limited s-curve profiles.
	ModeAdaptive

	// ModeSnapCrackle plans 31-phase profiles bounded through the 5th
	// derivative.
	ModeSnapCrackle
)

func (m Mode) String() string {
	switch m {
	case ModeBasic:
		return "basic"
	case ModeAdaptive:
		return "adaptive"
	case ModeSnapCrackle:
		return "snapcrackle"
	default:
		return "unknown"
	}
}

// MoveRequest is one linear move as handed over by the G-code layer.
type MoveRequest struct {
	Target kinematics.Position

	// Feedrate in mm/s; zero or negative selects the configured default.
	Feedrate float64

	// AccelOverride lowers per-axis acceleration for this move only.
	// Zero entries keep the configured limit.
	AccelOverride [config.NumAxes]float64

	MoveType trajectory.MoveType
}

// QueueStats is the monitoring snapshot of the pending queue.
type QueueStats struct {
	Length      int
	MaxLength   int
	LastCommand string
}

// Config assembles a Controller.
type Config struct {
	Mode        Mode
	Constraints config.MotionConstraints
	Trajectory  config.TrajectoryConfig
	SnapCrackle config.SnapCrackleConfig

	KinematicsType kinematics.Type
	AxisLimits     config.AxisLimits

	StepsPerMM [config.NumAxes]float64
	Invert     [config.NumAxes]bool

	// BufferCapacity bounds the step command buffer; zero means 256.
	BufferCapacity int

	// BlendDeviation enables XY corner blending when positive.
	BlendDeviation float64

	// Optimizer adjusts constraints per move in snap-crackle mode;
	// nil means identity.
	Optimizer snapcrackle.Optimizer

	// Canceller filters the planned waypoints in snap-crackle mode;
	// nil means identity.
	Canceller snapcrackle.VibrationCanceller

	// Metrics receives pipeline series; nil disables instrumentation.
	Metrics *metrics.MotionMetrics
}

// Controller owns the full move pipeline. Planning (QueueLinearMove)
// and emission (EmitNextSegment) may run concurrently; the pending
// queue and step buffer serialize internally.
type Controller struct {
	mode       Mode
	kin        *kinematics.Kinematics
	traj       *trajectory.Generator
	curve      *scurve.Generator
	shapers    *shaper.PerAxisShapers
	steps      *stepgen.Generator
	buffer     *stepgen.Buffer
	blender    *blend.Blender
	limits     config.MotionConstraints
	trajCfg    config.TrajectoryConfig
	snapCfg    config.SnapCrackleConfig
	stepsPerMM [config.NumAxes]float64
	opt        snapcrackle.Optimizer
	canc       snapcrackle.VibrationCanceller
	met        *metrics.MotionMetrics
	logger     *log.Logger

	// emitMu serializes the emission side: the active profiled segment
	// and the emission-side position.
	emitMu  sync.Mutex
	active  *activeEmission
	emitPos kinematics.Position

	mu           sync.Mutex
	maxQueueLen  int
	lastCommand  string
	stopped      bool
	backpressure bool
}

// activeEmission is a profiled segment partway through step emission.
// It survives buffer backpressure so no sample is dropped.
type activeEmission struct {
	seg   *trajectory.Segment
	start kinematics.Position
	index int
}

// NewController validates the configuration and wires the pipeline.
func NewController(cfg Config) (*Controller, error) {
	kin, err := kinematics.New(cfg.KinematicsType, cfg.AxisLimits.Min, cfg.AxisLimits.Max)
	if err != nil {
		return nil, err
	}
	traj, err := trajectory.NewGenerator(cfg.Constraints, cfg.Trajectory)
	if err != nil {
		return nil, err
	}
	if err := cfg.SnapCrackle.Validate(); err != nil {
		return nil, err
	}

	clamped := cfg.Constraints.Clamped()
	curve, err := scurve.NewGenerator(clamped.MaxAccel[0], clamped.MaxJerk[0], scurve.DefaultSampleInterval)
	if err != nil {
		return nil, err
	}

	capacity := cfg.BufferCapacity
	if capacity == 0 {
		capacity = 256
	}
	buffer, err := stepgen.NewBuffer(capacity)
	if err != nil {
		return nil, err
	}

	var blender *blend.Blender
	if cfg.BlendDeviation > 0 {
		blender, err = blend.NewBlender(cfg.BlendDeviation, blend.DefaultSamples)
		if err != nil {
			return nil, err
		}
	}

	opt := cfg.Optimizer
	if opt == nil {
		opt = snapcrackle.IdentityOptimizer{}
	}
	canc := cfg.Canceller
	if canc == nil {
		canc = snapcrackle.IdentityCanceller{}
	}

	return &Controller{
		mode:       cfg.Mode,
		kin:        kin,
		traj:       traj,
		curve:      curve,
		shapers:    shaper.NewPerAxis(),
		steps:      stepgen.NewGenerator(cfg.StepsPerMM, cfg.Invert),
		buffer:     buffer,
		blender:    blender,
		limits:     clamped,
		trajCfg:    cfg.Trajectory,
		snapCfg:    cfg.SnapCrackle,
		stepsPerMM: cfg.StepsPerMM,
		opt:        opt,
		canc:       canc,
		met:        cfg.Metrics,
		logger:     log.GetLogger("motion"),
	}, nil
}

// Mode returns the active profile mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetShaper installs an input shaper on one actuator axis.
func (c *Controller) SetShaper(axis int, s *shaper.Shaper) error {
	if err := c.shapers.Set(axis, s); err != nil {
		return err
	}
	if c.met != nil {
		active := 0.0
		if s != nil {
			active = 1
		}
		c.met.ShaperActive.Set(metrics.Labels{"axis": axisName(axis)}, active)
	}
	return nil
}

// CurrentPosition returns the planner's optimistic position.
func (c *Controller) CurrentPosition() kinematics.Position {
	return c.traj.CurrentPosition()
}

// SetPosition teleports the planner position, e.g. after homing, and
// re-bases the step counters.
func (c *Controller) SetPosition(p kinematics.Position) error {
	if err := c.kin.CheckPosition(p); err != nil {
		return err
	}
	c.traj.SetPosition(p)
	c.steps.ResetSteps()
	c.emitMu.Lock()
	c.emitPos = p
	c.emitMu.Unlock()
	return nil
}

// QueueLinearMove validates the target against the kinematic bounds
// and, if acceptable, plans a profile in the active mode and enqueues
// the segment. A rejected move never mutates the queue.
func (c *Controller) QueueLinearMove(ctx context.Context, req MoveRequest) error {
	if err := c.kin.CheckPosition(req.Target); err != nil {
		c.reject("bounds")
		return err
	}

	var stopTimer func()
	if c.met != nil {
		stopTimer = c.met.MovePlanTime.Timer(nil)
	}

	var queued bool
	var err error
	switch c.mode {
	case ModeBasic:
		queued, err = c.planTrapezoidal(req)
	case ModeAdaptive:
		queued, err = c.planSCurve(req)
	case ModeSnapCrackle:
		queued, err = c.planSnapCrackle(ctx, req)
	default:
		err = errors.Newf(errors.ErrInvalidParameters, "unknown mode %d", c.mode)
	}
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		c.reject("plan")
		return err
	}

	// Degenerate moves plan nothing; stats and metrics only move when a
	// segment was actually enqueued.
	if queued {
		c.recordQueued(req)
	}
	return nil
}

func (c *Controller) planTrapezoidal(req MoveRequest) (bool, error) {
	if positionDistance(c.traj.CurrentPosition(), req.Target) < c.trajCfg.MinMoveDistance {
		return false, nil
	}
	if req.AccelOverride != ([config.NumAxes]float64{}) {
		err := c.traj.GenerateTrapezoidalMoveWithAccel(req.Target, req.Feedrate, req.MoveType, req.AccelOverride)
		return err == nil, err
	}
	err := c.traj.GenerateTrapezoidalMove(req.Target, req.Feedrate, req.MoveType)
	return err == nil, err
}

// planSCurve plans the move's scalar profile with the 7-phase generator
// and enqueues a segment carrying the sampled path, so emission walks
// the profile instead of jumping to the endpoint.
func (c *Controller) planSCurve(req MoveRequest) (bool, error) {
	start := c.traj.CurrentPosition()
	distance := positionDistance(start, req.Target)
	if distance < c.trajCfg.MinMoveDistance {
		return false, nil
	}

	feedrate := req.Feedrate
	if feedrate <= 0 {
		feedrate = c.trajCfg.DefaultFeedrate
	}
	cruise := c.curve.FeasibleCruise(distance, feedrate)
	points, err := c.curve.Generate(distance, 0, 0, cruise)
	if err != nil {
		return false, err
	}

	path := make([]trajectory.PathPoint, len(points))
	for i, pt := range points {
		path[i] = trajectory.PathPoint{Time: pt.Time, Distance: pt.Position}
	}
	seg := &trajectory.Segment{
		Target:         req.Target,
		MoveType:       req.MoveType,
		Duration:       points[len(points)-1].Time,
		CruiseVelocity: cruise,
		Distance:       distance,
		Path:           path,
	}
	c.traj.EnqueueSegment(seg)
	c.logger.Debug("queued %s (%d profile points)", seg, len(points))
	return true, nil
}

// planSnapCrackle consults the optimizer, solves the 31-phase profile,
// runs its waypoints through the vibration canceller and enqueues the
// segment guarded by the queue generation, so a move planned before an
// emergency stop is discarded rather than queued after it.
func (c *Controller) planSnapCrackle(ctx context.Context, req MoveRequest) (bool, error) {
	start := c.traj.CurrentPosition()
	distance := positionDistance(start, req.Target)
	if distance < c.trajCfg.MinMoveDistance {
		return false, nil
	}

	gen := c.traj.Generation()

	// The optimizer and canceller may suspend arbitrarily; the generation
	// check below covers anything that happened meanwhile.
	startState := snapcrackle.MotionState{Position: 0}
	endState := snapcrackle.MotionState{Position: distance}
	adjusted, err := c.opt.Optimize(ctx, startState, endState, c.limits)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInvalidParameters, "constraint optimization failed")
	}

	profile, err := snapcrackle.Solve(0, 0, distance, c.scalarLimits(adjusted))
	if err != nil {
		return false, err
	}

	filtered, err := c.canc.Filter(ctx, profileWaypoints(profile))
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInvalidParameters, "vibration cancellation failed")
	}
	path := make([]trajectory.PathPoint, len(filtered))
	for i, wp := range filtered {
		path[i] = trajectory.PathPoint{Time: wp.Time, Distance: wp.Position}
	}

	seg := &trajectory.Segment{
		Target:         req.Target,
		MoveType:       req.MoveType,
		Duration:       profile.TotalTime,
		CruiseVelocity: profile.VLimit,
		Distance:       distance,
		Path:           path,
	}
	if !c.traj.EnqueueSegmentIfGeneration(seg, gen) {
		c.logger.Warn("segment discarded: queue cleared during planning")
		return false, errors.New(errors.ErrRuntimeQueue, "queue cleared during planning")
	}
	c.logger.Debug("queued %s", seg)
	return true, nil
}

// profileWaypoints samples the 31-phase profile at its phase boundaries,
// integrating the phase velocities into positions.
func profileWaypoints(p *snapcrackle.Profile) []snapcrackle.Waypoint {
	wps := make([]snapcrackle.Waypoint, 0, snapcrackle.NumPhases+1)
	wps = append(wps, snapcrackle.Waypoint{Velocity: p.StartVelocity})
	t, x := 0.0, 0.0
	for i := range p.Phases {
		ph := p.Phases[i]
		t += ph.Duration
		x += ph.Velocity * ph.Duration
		wps = append(wps, snapcrackle.Waypoint{Time: t, Position: x, Velocity: ph.Velocity})
	}
	return wps
}

// QueueBlendedPath queues a polyline whose interior XY corners are
// replaced with sampled bezier blends. Blend points carry the corner's
// Z and extruder values.
func (c *Controller) QueueBlendedPath(ctx context.Context, points []kinematics.Position, feedrate float64, moveType trajectory.MoveType) error {
	if c.blender == nil {
		return errors.New(errors.ErrBlend, "corner blending not configured")
	}
	if len(points) < 2 {
		return errors.InvalidParametersError("path", "needs at least two points")
	}

	prev := c.traj.CurrentPosition()
	for i, target := range points {
		if i == len(points)-1 {
			// Final leg goes straight to the endpoint.
			if err := c.QueueLinearMove(ctx, MoveRequest{Target: target, Feedrate: feedrate, MoveType: moveType}); err != nil {
				return err
			}
			break
		}

		next := points[i+1]
		curve, err := c.blender.BlendCorner(
			blend.Point2{X: prev[0], Y: prev[1]},
			blend.Point2{X: target[0], Y: target[1]},
			blend.Point2{X: next[0], Y: next[1]},
		)
		if err != nil {
			return err
		}
		for _, p := range curve {
			sub := target
			sub[0], sub[1] = p.X, p.Y
			if err := c.QueueLinearMove(ctx, MoveRequest{Target: sub, Feedrate: feedrate, MoveType: moveType}); err != nil {
				return err
			}
		}
		prev = target
	}
	return nil
}

// QueueStats reports pending-queue telemetry.
func (c *Controller) QueueStats() QueueStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return QueueStats{
		Length:      c.traj.QueueLength(),
		MaxLength:   c.maxQueueLen,
		LastCommand: c.lastCommand,
	}
}

// Stopped reports whether an emergency stop happened since the last
// accepted move.
func (c *Controller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// BufferPending returns unread step commands in the buffer.
func (c *Controller) BufferPending() int { return c.buffer.Pending() }

// BufferFree returns free buffer slots.
func (c *Controller) BufferFree() int { return c.buffer.Free() }

// NextStepCommand hands the oldest pending step command to the
// transport drain. The drain side also reclaims drained buffer slots
// and clears planner backpressure once room opens up.
func (c *Controller) NextStepCommand() (stepgen.StepCommand, bool) {
	cmd, ok := c.buffer.Next()
	if ok {
		c.mu.Lock()
		if c.backpressure && c.ensureRoom() {
			c.backpressure = false
		}
		c.mu.Unlock()
		if c.met != nil {
			c.met.StepBufferFree.Set(nil, float64(c.buffer.Free()))
		}
	}
	return cmd, ok
}

// ensureRoom reclaims drained buffer entries until a full axis fan-out
// fits. The replay window of already-read commands is given up only
// when the capacity is actually needed.
func (c *Controller) ensureRoom() bool {
	if c.buffer.Free() >= config.NumAxes {
		return true
	}
	c.buffer.Compact()
	return c.buffer.Free() >= config.NumAxes
}

// EmitNextSegment pops one pending segment, maps it through kinematics
// and the per-axis shapers, and pushes the resulting step commands into
// the buffer. Profiled segments emit one position per path sample;
// endpoint segments emit a single batch. It reports whether a segment
// finished emitting. While the buffer is saturated it refuses with a
// queue-full error; the segment (or its remaining samples) stays put
// and nothing is dropped.
func (c *Controller) EmitNextSegment() (bool, error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.backpressure && !c.ensureRoom() {
		c.mu.Unlock()
		return false, errors.QueueFullError("step buffer", c.buffer.Capacity())
	}
	c.backpressure = false
	c.mu.Unlock()

	if c.active == nil {
		// One position can produce at most one command per axis, so
		// demand that much room before consuming a segment.
		if !c.ensureRoom() {
			c.setBackpressure()
			return false, errors.QueueFullError("step buffer", c.buffer.Capacity())
		}

		seg, ok := c.traj.NextSegment()
		if !ok {
			return false, nil
		}
		if len(seg.Path) == 0 {
			if err := c.emitPosition(seg.Target); err != nil {
				return false, err
			}
			c.finishSegment(seg)
			return true, nil
		}
		c.active = &activeEmission{seg: seg, start: c.emitPos}
	}

	a := c.active
	for a.index < len(a.seg.Path) {
		if !c.ensureRoom() {
			c.setBackpressure()
			return false, errors.QueueFullError("step buffer", c.buffer.Capacity())
		}
		frac := 1.0
		if a.seg.Distance > 0 {
			frac = a.seg.Path[a.index].Distance / a.seg.Distance
			if frac < 0 {
				frac = 0
			} else if frac > 1 {
				frac = 1
			}
		}
		if err := c.emitPosition(lerpPosition(a.start, a.seg.Target, frac)); err != nil {
			return false, err
		}
		a.index++
	}

	// Land exactly on the target regardless of sample rounding.
	if !c.ensureRoom() {
		c.setBackpressure()
		return false, errors.QueueFullError("step buffer", c.buffer.Capacity())
	}
	if err := c.emitPosition(a.seg.Target); err != nil {
		return false, err
	}
	c.active = nil
	c.finishSegment(a.seg)
	return true, nil
}

// emitPosition shapes one tool-space position and pushes its step
// commands. The caller has ensured room; emission is serialized by
// emitMu, so Push cannot race another producer.
func (c *Controller) emitPosition(pos kinematics.Position) error {
	motors := c.kin.ToMotors(pos)
	var shaped kinematics.MotorVector
	for i := 0; i < config.NumAxes; i++ {
		shaped[i] = c.shapers.DoStep(i, motors[i])
	}

	for _, cmd := range c.steps.GenerateSteps(shaped) {
		if err := c.buffer.Push(cmd); err != nil {
			c.setBackpressure()
			return err
		}
		if c.met != nil {
			c.met.StepsEmitted.Add(metrics.Labels{"axis": axisName(cmd.Axis)}, float64(cmd.Steps))
		}
	}
	return nil
}

func (c *Controller) finishSegment(seg *trajectory.Segment) {
	c.emitPos = seg.Target
	if c.met != nil {
		c.met.SegmentQueueLen.Set(nil, float64(c.traj.QueueLength()))
		c.met.StepBufferFree.Set(nil, float64(c.buffer.Free()))
	}
}

// ScheduleAxisMove plans a single-actuator s-curve profile and pushes
// its step events directly onto the event queue at their profile times,
// bypassing the pending-segment queue and the step counters. Intended
// for homing-style moves whose start time is known up front; follow
// with SetPosition to re-base the planner. Returns the number of
// scheduled events.
func (c *Controller) ScheduleAxisMove(q *sched.Queue, axis int, distance, feedrate, startTime float64) (int, error) {
	if axis < 0 || axis >= config.NumAxes {
		return 0, errors.InvalidParametersError("axis", "out of range")
	}
	if distance == 0 {
		return 0, nil
	}
	if feedrate <= 0 {
		feedrate = c.trajCfg.DefaultFeedrate
	}

	length := math.Abs(distance)
	cruise := c.curve.FeasibleCruise(length, feedrate)
	points, err := c.curve.Generate(length, 0, 0, cruise)
	if err != nil {
		return 0, err
	}
	if distance < 0 {
		for i := range points {
			points[i].Position = -points[i].Position
		}
	}
	return scurve.ScheduleSteps(q, points, axis, c.stepsPerMM[axis], startTime)
}

// EmergencyStop atomically clears the pending queue and the step
// buffer. It is idempotent, callable from any state and never fails;
// the controller stays ready for new moves.
func (c *Controller) EmergencyStop() {
	c.traj.ClearQueue()

	c.emitMu.Lock()
	c.active = nil
	c.emitMu.Unlock()

	c.buffer.Clear()
	c.shapers.Reset()

	c.mu.Lock()
	c.stopped = true
	c.backpressure = false
	c.mu.Unlock()

	if c.met != nil {
		c.met.EmergencyStops.Inc(nil)
		c.met.SegmentQueueLen.Set(nil, 0)
		c.met.StepBufferFree.Set(nil, float64(c.buffer.Free()))
	}
	c.logger.Warn("emergency stop: queue and step buffer cleared")
}

// GetStatus returns a telemetry-friendly snapshot map.
func (c *Controller) GetStatus() map[string]any {
	stats := c.QueueStats()
	pos := c.traj.CurrentPosition()
	return map[string]any{
		"mode":             c.mode.String(),
		"position":         []float64{pos[0], pos[1], pos[2], pos[3]},
		"queue_length":     stats.Length,
		"queue_max_length": stats.MaxLength,
		"last_command":     stats.LastCommand,
		"buffer_pending":   c.buffer.Pending(),
		"buffer_free":      c.buffer.Free(),
		"stopped":          c.Stopped(),
	}
}

func (c *Controller) setBackpressure() {
	c.mu.Lock()
	c.backpressure = true
	c.mu.Unlock()
}

func (c *Controller) recordQueued(req MoveRequest) {
	length := c.traj.QueueLength()

	c.mu.Lock()
	c.stopped = false
	if length > c.maxQueueLen {
		c.maxQueueLen = length
	}
	c.lastCommand = fmt.Sprintf("%s to [%.3f %.3f %.3f %.3f] f=%.1f",
		req.MoveType, req.Target[0], req.Target[1], req.Target[2], req.Target[3], req.Feedrate)
	c.mu.Unlock()

	if c.met != nil {
		c.met.MovesQueued.Inc(nil)
		c.met.SegmentQueueLen.Set(nil, float64(length))
		for i := 0; i < config.NumAxes; i++ {
			c.met.ToolheadPos.Set(metrics.Labels{"axis": axisName(i)}, req.Target[i])
		}
	}
}

func (c *Controller) reject(reason string) {
	if c.met != nil {
		c.met.MovesRejected.Inc(metrics.Labels{"reason": reason})
	}
}

// scalarLimits caps the snap-crackle config with the tightest per-axis
// value of the (possibly optimizer-adjusted) constraints.
func (c *Controller) scalarLimits(adj config.MotionConstraints) config.SnapCrackleConfig {
	minAxis := func(v [config.NumAxes]float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x < m {
				m = x
			}
		}
		return m
	}
	out := c.snapCfg
	out.MaxVelocity = math.Min(out.MaxVelocity, minAxis(adj.MaxVelocity))
	out.MaxAccel = math.Min(out.MaxAccel, minAxis(adj.MaxAccel))
	out.MaxJerk = math.Min(out.MaxJerk, minAxis(adj.MaxJerk))
	out.MaxSnap = math.Min(out.MaxSnap, minAxis(adj.MaxSnap))
	out.MaxCrackle = math.Min(out.MaxCrackle, minAxis(adj.MaxCrackle))
	return out
}

// lerpPosition interpolates linearly between two positions
func lerpPosition(a, b kinematics.Position, f float64) kinematics.Position {
	var p kinematics.Position
	for i := 0; i < config.NumAxes; i++ {
		p[i] = a[i] + (b[i]-a[i])*f
	}
	return p
}

func positionDistance(a, b kinematics.Position) float64 {
	sum := 0.0
	for i := 0; i < config.NumAxes; i++ {
		d := b[i] - a[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func axisName(i int) string {
	switch i {
	case 0:
		return "x"
	case 1:
		return "y"
	case 2:
		return "z"
	case 3:
		return "e"
	default:
		return fmt.Sprintf("axis%d", i)
	}
}
