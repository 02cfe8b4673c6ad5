// Extension points for profile optimization and vibration cancellation
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package snapcrackle

import (
	"context"

	"motionhost/pkg/config"
)

// MotionState is the 7-dimensional state at a profile boundary
type MotionState struct {
	Position float64
	Velocity float64
	Accel    float64
	Jerk     float64
	Snap     float64
	Crackle  float64
	Pop      float64
}

// Waypoint is one point of a generated trajectory handed to a canceller
type Waypoint struct {
	Time     float64
	Position float64
	Velocity float64
}

// Optimizer adjusts motion constraints for a move given its boundary
// states. Implementations may suspend arbitrarily; callers must pass a
// context and tolerate the latency.
type Optimizer interface {
	Optimize(ctx context.Context, start, end MotionState, c config.MotionConstraints) (config.MotionConstraints, error)
}

// VibrationCanceller filters a generated waypoint sequence. Same
// suspension contract as Optimizer.
type VibrationCanceller interface {
	Filter(ctx context.Context, waypoints []Waypoint) ([]Waypoint, error)
}

// IdentityOptimizer returns constraints unchanged
type IdentityOptimizer struct{}

// Optimize implements Optimizer
func (IdentityOptimizer) Optimize(ctx context.Context, start, end MotionState, c config.MotionConstraints) (config.MotionConstraints, error) {
	if err := ctx.Err(); err != nil {
		return c, err
	}
	return c, nil
}

// IdentityCanceller returns waypoints unchanged
type IdentityCanceller struct{}

// Filter implements VibrationCanceller
func (IdentityCanceller) Filter(ctx context.Context, waypoints []Waypoint) ([]Waypoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return waypoints, nil
}
