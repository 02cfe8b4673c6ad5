// 7-phase jerk-limited S-curve profile generation
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package scurve

import (
	"math"

	"motionhost/pkg/config"
	"motionhost/pkg/errors"
)

// ProfilePoint is one dense sample of the generated profile
type ProfilePoint struct {
	Time     float64
	Position float64
	Velocity float64
	Accel    float64
	Jerk     float64
}

// phase is one piece of the piecewise profile: constant jerk applied to
// the state at the phase start
type phase struct {
	duration float64
	jerk     float64
}

// Generator builds 7-phase jerk-limited profiles along a scalar move
// distance. All math is closed form and non-suspending.
type Generator struct {
	maxAccel       float64
	maxJerk        float64
	sampleInterval float64
}

// DefaultSampleInterval is the spacing of emitted profile points (s)
const DefaultSampleInterval = 1e-3

// NewGenerator creates an s-curve generator. Limits are floored to the
// config epsilon so they can never reach a division at zero.
func NewGenerator(maxAccel, maxJerk, sampleInterval float64) (*Generator, error) {
	if math.IsNaN(maxAccel) || math.IsNaN(maxJerk) || maxAccel < 0 || maxJerk < 0 {
		return nil, errors.InvalidParametersError("s-curve limits", "accel and jerk must be non-negative finite")
	}
	if sampleInterval <= 0 {
		sampleInterval = DefaultSampleInterval
	}
	return &Generator{
		maxAccel:       math.Max(maxAccel, config.Epsilon),
		maxJerk:        math.Max(maxJerk, config.Epsilon),
		sampleInterval: sampleInterval,
	}, nil
}

// Generate builds the 7-phase profile covering distance from startV to
// endV with the given cruise velocity: jerk-up, constant accel,
// jerk-down, cruise, jerk-up (decel), constant decel, jerk-down (decel).
// The cruise velocity must be reachable within the distance or the
// request is rejected as invalid parameters.
func (g *Generator) Generate(distance, startV, endV, cruiseV float64) ([]ProfilePoint, error) {
	if err := checkFinite("distance", distance); err != nil {
		return nil, err
	}
	if distance <= 0 {
		return nil, errors.InvalidParametersError("distance", "must be positive")
	}
	if startV < 0 || endV < 0 || cruiseV <= 0 {
		return nil, errors.InvalidParametersError("velocities", "must be non-negative with positive cruise")
	}
	if cruiseV < startV || cruiseV < endV {
		return nil, errors.InvalidParametersError("cruise velocity", "below start or end velocity")
	}

	accelPhases, accelDist, err := g.rampPhases(startV, cruiseV)
	if err != nil {
		return nil, err
	}
	decelPhases, decelDist, err := g.rampPhases(endV, cruiseV)
	if err != nil {
		return nil, err
	}
	// The decel ramp mirrors the accel ramp with negated jerk; its
	// durations are symmetric so the covered distance carries over.
	for i := range decelPhases {
		decelPhases[i].jerk = -decelPhases[i].jerk
	}

	cruiseDist := distance - accelDist - decelDist
	if cruiseDist < -1e-12 {
		return nil, errors.InvalidParametersError("cruise velocity",
			"unreachable within the given distance")
	}
	cruiseTime := 0.0
	if cruiseDist > 0 {
		cruiseTime = cruiseDist / cruiseV
	}

	phases := make([]phase, 0, 7)
	phases = append(phases, accelPhases...)
	phases = append(phases, phase{duration: cruiseTime})
	phases = append(phases, decelPhases...)

	return g.sample(phases, startV)
}

// FeasibleCruise returns the highest cruise velocity not above limit
// whose accel and decel ramps (from and to standstill) fit within
// distance, so Generate(distance, 0, 0, v) is accepted.
func (g *Generator) FeasibleCruise(distance, limit float64) float64 {
	if distance <= 0 || limit <= 0 || math.IsNaN(distance) || math.IsNaN(limit) {
		return 0
	}
	fits := func(v float64) bool {
		_, up, err := g.rampPhases(0, v)
		if err != nil {
			return false
		}
		return 2*up <= distance
	}
	if fits(limit) {
		return limit
	}
	lo, hi := 0.0, limit
	for i := 0; i < 48; i++ {
		mid := (lo + hi) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// rampPhases plans the 3-phase jerk-limited ramp from v0 up to v1 and
// returns its covered distance. Triangular acceleration is used when the
// velocity change is too small for full accel saturation.
func (g *Generator) rampPhases(v0, v1 float64) ([]phase, float64, error) {
	dv := v1 - v0
	if dv < 0 || math.IsNaN(dv) {
		return nil, 0, errors.InvalidParametersError("velocity ramp", "negative or NaN velocity delta")
	}
	if dv == 0 {
		return []phase{{0, g.maxJerk}, {0, 0}, {0, -g.maxJerk}}, 0, nil
	}

	jerkTime := g.maxAccel / g.maxJerk
	var t1, t2 float64
	if dv >= g.maxAccel*jerkTime {
		// Acceleration saturates at maxAccel
		t1 = jerkTime
		t2 = dv/g.maxAccel - jerkTime
	} else {
		// Triangular: peak acceleration below the limit
		t1 = math.Sqrt(dv / g.maxJerk)
		t2 = 0
	}
	if math.IsNaN(t1) || t1 < 0 || t2 < 0 {
		return nil, 0, errors.InvalidParametersError("velocity ramp", "phase solve produced non-physical time")
	}

	ramp := []phase{
		{duration: t1, jerk: g.maxJerk},
		{duration: t2, jerk: 0},
		{duration: t1, jerk: -g.maxJerk},
	}

	// Integrate the ramp to get its distance
	x, v, a := 0.0, v0, 0.0
	for _, ph := range ramp {
		x, v, a = advance(x, v, a, ph.jerk, ph.duration)
	}
	return ramp, x, nil
}

// advance applies constant jerk for dt to the kinematic state
func advance(x, v, a, j, dt float64) (float64, float64, float64) {
	x2 := x + v*dt + 0.5*a*dt*dt + j*dt*dt*dt/6
	v2 := v + a*dt + 0.5*j*dt*dt
	a2 := a + j*dt
	return x2, v2, a2
}

// sample walks the phase list emitting points at the configured interval
// plus every phase boundary, with strictly increasing times.
func (g *Generator) sample(phases []phase, startV float64) ([]ProfilePoint, error) {
	totalTime := 0.0
	for _, ph := range phases {
		totalTime += ph.duration
	}
	if math.IsNaN(totalTime) || totalTime <= 0 {
		return nil, errors.InvalidParametersError("s-curve", "profile has no duration")
	}

	var points []ProfilePoint
	x, v, a := 0.0, startV, 0.0
	elapsed := 0.0
	emit := func(t, px, pv, pa, pj float64) {
		if n := len(points); n > 0 && t <= points[n-1].Time {
			return
		}
		points = append(points, ProfilePoint{Time: t, Position: px, Velocity: pv, Accel: pa, Jerk: pj})
	}

	emit(0, x, v, a, phases[0].jerk)
	for _, ph := range phases {
		if ph.duration <= 0 {
			continue
		}
		for t := g.sampleInterval; t < ph.duration; t += g.sampleInterval {
			px, pv, pa := advance(x, v, a, ph.jerk, t)
			emit(elapsed+t, px, pv, pa, ph.jerk)
		}
		x, v, a = advance(x, v, a, ph.jerk, ph.duration)
		elapsed += ph.duration
		emit(elapsed, x, v, a, ph.jerk)
	}

	for _, p := range points {
		if math.IsNaN(p.Position) || math.IsNaN(p.Velocity) || math.IsNaN(p.Accel) {
			return nil, errors.InvalidParametersError("s-curve", "NaN in sampled profile")
		}
		if math.Abs(p.Accel) > g.maxAccel*(1+1e-9) {
			return nil, errors.InfeasibleError("sampled acceleration exceeds limit")
		}
		if math.Abs(p.Jerk) > g.maxJerk*(1+1e-9) {
			return nil, errors.InfeasibleError("sampled jerk exceeds limit")
		}
	}
	return points, nil
}

func checkFinite(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.InvalidParametersError(what, "value is not finite")
	}
	return nil
}
