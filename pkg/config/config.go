// Motion configuration for the motion host
//
// Configuration files are parsed by an external layer; this package holds
// the typed configuration the planning core consumes and validates it for
// physical plausibility only (non-negative limits, usable axis boxes).
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"math"

	"motionhost/pkg/errors"
)

// NumAxes is the number of controlled axes (X, Y, Z, E)
const NumAxes = 4

// Epsilon is the floor applied to limits before they reach a division
const Epsilon = 1e-9

// MotionConstraints holds the per-axis derivative limits
type MotionConstraints struct {
	MaxVelocity [NumAxes]float64 // mm/s
	MaxAccel    [NumAxes]float64 // mm/s^2
	MaxJerk     [NumAxes]float64 // mm/s^3
	MaxSnap     [NumAxes]float64 // mm/s^4
	MaxCrackle  [NumAxes]float64 // mm/s^5
	MaxPop      [NumAxes]float64 // mm/s^6
	MaxLock     [NumAxes]float64 // mm/s^7
}

// DefaultMotionConstraints returns limits typical of a mid-size CoreXY printer
func DefaultMotionConstraints() MotionConstraints {
	uniform := func(v float64) [NumAxes]float64 {
		return [NumAxes]float64{v, v, v, v}
	}
	return MotionConstraints{
		MaxVelocity: [NumAxes]float64{300, 300, 20, 75},
		MaxAccel:    uniform(3000),
		MaxJerk:     uniform(100000),
		MaxSnap:     uniform(1e7),
		MaxCrackle:  uniform(1e9),
		MaxPop:      uniform(1e11),
		MaxLock:     uniform(1e13),
	}
}

// Validate rejects limits that are negative or not finite. Zero values are
// allowed here; Clamped floors them before use.
func (c MotionConstraints) Validate() error {
	groups := map[string][NumAxes]float64{
		"max_velocity": c.MaxVelocity,
		"max_accel":    c.MaxAccel,
		"max_jerk":     c.MaxJerk,
		"max_snap":     c.MaxSnap,
		"max_crackle":  c.MaxCrackle,
		"max_pop":      c.MaxPop,
		"max_lock":     c.MaxLock,
	}
	for name, vals := range groups {
		for axis, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.ConfigValidationError(name, "value is not finite").SetAxis(axis)
			}
			if v < 0 {
				return errors.ConfigValidationError(name, "value is negative").SetAxis(axis)
			}
		}
	}
	return nil
}

// Clamped returns a copy with every limit floored to Epsilon so that no
// zero value can reach a division in the profile generators
func (c MotionConstraints) Clamped() MotionConstraints {
	clamp := func(vals [NumAxes]float64) [NumAxes]float64 {
		for i, v := range vals {
			if v < Epsilon {
				vals[i] = Epsilon
			}
		}
		return vals
	}
	c.MaxVelocity = clamp(c.MaxVelocity)
	c.MaxAccel = clamp(c.MaxAccel)
	c.MaxJerk = clamp(c.MaxJerk)
	c.MaxSnap = clamp(c.MaxSnap)
	c.MaxCrackle = clamp(c.MaxCrackle)
	c.MaxPop = clamp(c.MaxPop)
	c.MaxLock = clamp(c.MaxLock)
	return c
}

// TrajectoryConfig holds settings for the trapezoidal generator
type TrajectoryConfig struct {
	// DefaultFeedrate is used when a move request carries no feedrate (mm/s)
	DefaultFeedrate float64

	// MinVelocity is the floor applied to the computed target velocity (mm/s)
	MinVelocity float64

	// MinMoveDistance is the no-op threshold (mm)
	MinMoveDistance float64
}

// DefaultTrajectoryConfig returns the stock trapezoidal settings
func DefaultTrajectoryConfig() TrajectoryConfig {
	return TrajectoryConfig{
		DefaultFeedrate: 50.0,
		MinVelocity:     0.1,
		MinMoveDistance: 1e-3,
	}
}

// Validate checks trajectory settings for physical plausibility
func (c TrajectoryConfig) Validate() error {
	if c.DefaultFeedrate <= 0 || math.IsNaN(c.DefaultFeedrate) {
		return errors.ConfigValidationError("default_feedrate", "must be positive")
	}
	if c.MinVelocity <= 0 {
		return errors.ConfigValidationError("min_velocity", "must be positive")
	}
	if c.MinMoveDistance < 0 {
		return errors.ConfigValidationError("min_move_distance", "must not be negative")
	}
	return nil
}

// SnapCrackleConfig holds the scalar limits for the 31-phase profile solver
type SnapCrackleConfig struct {
	MaxVelocity float64 // mm/s
	MaxAccel    float64 // mm/s^2
	MaxJerk     float64 // mm/s^3
	MaxSnap     float64 // mm/s^4
	MaxCrackle  float64 // mm/s^5
}

// DefaultSnapCrackleConfig returns the stock 31-phase limits
func DefaultSnapCrackleConfig() SnapCrackleConfig {
	return SnapCrackleConfig{
		MaxVelocity: 300,
		MaxAccel:    3000,
		MaxJerk:     100000,
		MaxSnap:     1e7,
		MaxCrackle:  1e9,
	}
}

// Validate rejects non-finite or negative limits
func (c SnapCrackleConfig) Validate() error {
	vals := map[string]float64{
		"max_velocity": c.MaxVelocity,
		"max_accel":    c.MaxAccel,
		"max_jerk":     c.MaxJerk,
		"max_snap":     c.MaxSnap,
		"max_crackle":  c.MaxCrackle,
	}
	for name, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.ConfigValidationError(name, "value is not finite")
		}
		if v < 0 {
			return errors.ConfigValidationError(name, "value is negative")
		}
	}
	return nil
}

// Clamped returns a copy with every limit floored to Epsilon
func (c SnapCrackleConfig) Clamped() SnapCrackleConfig {
	clamp := func(v float64) float64 {
		if v < Epsilon {
			return Epsilon
		}
		return v
	}
	c.MaxVelocity = clamp(c.MaxVelocity)
	c.MaxAccel = clamp(c.MaxAccel)
	c.MaxJerk = clamp(c.MaxJerk)
	c.MaxSnap = clamp(c.MaxSnap)
	c.MaxCrackle = clamp(c.MaxCrackle)
	return c
}

// BoardTiming holds MCU board timing the step path must respect
type BoardTiming struct {
	// MaxStepRate is the highest step frequency the board accepts (steps/s)
	MaxStepRate float64

	// MinPulseWidth is the narrowest step pulse the drivers accept (s)
	MinPulseWidth float64

	// Baud is the serial link rate (informational for the transport layer)
	Baud int
}

// DefaultBoardTiming returns timing for a typical 32-bit board
func DefaultBoardTiming() BoardTiming {
	return BoardTiming{
		MaxStepRate:   500000,
		MinPulseWidth: 2e-6,
		Baud:          250000,
	}
}

// Validate checks board timing for physical plausibility
func (b BoardTiming) Validate() error {
	if b.MaxStepRate <= 0 {
		return errors.ConfigValidationError("max_step_rate", "must be positive")
	}
	if b.MinPulseWidth < 0 {
		return errors.ConfigValidationError("min_pulse_width", "must not be negative")
	}
	if b.Baud <= 0 {
		return errors.ConfigValidationError("baud", "must be positive")
	}
	return nil
}

// AxisLimits is the configured Cartesian bounding box for X, Y, Z
type AxisLimits struct {
	Min [3]float64
	Max [3]float64
}

// DefaultAxisLimits returns a 220x220x250 mm build volume
func DefaultAxisLimits() AxisLimits {
	return AxisLimits{
		Min: [3]float64{0, 0, 0},
		Max: [3]float64{220, 220, 250},
	}
}

// Validate checks that each axis box is usable
func (a AxisLimits) Validate() error {
	axes := [3]string{"x", "y", "z"}
	for i := 0; i < 3; i++ {
		if math.IsNaN(a.Min[i]) || math.IsNaN(a.Max[i]) {
			return errors.ConfigValidationError("position_"+axes[i], "value is not finite")
		}
		if a.Min[i] > a.Max[i] {
			return errors.ConfigValidationError("position_"+axes[i], "min exceeds max")
		}
	}
	return nil
}
