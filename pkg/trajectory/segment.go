// Trajectory segment types
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package trajectory

import (
	"fmt"

	"motionhost/pkg/config"
	"motionhost/pkg/kinematics"
)

// MoveType tags the intent of a move
type MoveType int

const (
	// MovePrint is an extruding move
	MovePrint MoveType = iota

	// MoveTravel is a non-extruding reposition
	MoveTravel

	// MoveHome seeks an endstop
	MoveHome

	// MoveExtruder moves only the extruder axis
	MoveExtruder
)

// String returns the move type name
func (m MoveType) String() string {
	switch m {
	case MovePrint:
		return "print"
	case MoveTravel:
		return "travel"
	case MoveHome:
		return "home"
	case MoveExtruder:
		return "extruder"
	default:
		return "unknown"
	}
}

// PathPoint is one timestamped sample of distance travelled along a
// segment's path. Profiled moves carry these so step emission can
// produce intermediate commands instead of a single endpoint batch.
type PathPoint struct {
	Time     float64
	Distance float64
}

// Segment is one planned move. It is exclusively owned by the pending
// queue from enqueue until popped.
type Segment struct {
	// Target is the tool-space end position
	Target kinematics.Position

	// StartVelocity and EndVelocity are per-axis velocity vectors (mm/s)
	StartVelocity [config.NumAxes]float64
	EndVelocity   [config.NumAxes]float64

	// Acceleration is the per-axis acceleration vector (mm/s^2)
	Acceleration [config.NumAxes]float64

	// Duration is the total move time (s)
	Duration float64

	// MoveType tags the move intent
	MoveType MoveType

	// Phase timing of the trapezoid (s)
	AccelTime  float64
	CruiseTime float64
	DecelTime  float64

	// CruiseVelocity is the scalar cruise speed along the move (mm/s)
	CruiseVelocity float64

	// Distance is the Euclidean length across all axes (mm)
	Distance float64

	// Path holds the profile samples of distance travelled over time;
	// nil means endpoint-only emission (trapezoidal moves)
	Path []PathPoint
}

// String describes the segment for telemetry
func (s *Segment) String() string {
	return fmt.Sprintf("%s to [%.3f %.3f %.3f %.3f] d=%.3fmm v=%.1fmm/s t=%.4fs",
		s.MoveType, s.Target[0], s.Target[1], s.Target[2], s.Target[3],
		s.Distance, s.CruiseVelocity, s.Duration)
}
