// Step discretization for the motion host
//
// Converts continuous actuator-space targets into integer per-axis step
// commands for the transport layer.
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package stepgen

import (
	"fmt"
	"math"

	"motionhost/pkg/config"
	"motionhost/pkg/kinematics"
)

// StepTiming carries optional electrical timing for a command
type StepTiming struct {
	// PulseWidth is the step pulse high time (s)
	PulseWidth float64

	// StepInterval is the time between step pulses (s)
	StepInterval float64

	// DirSetup is the delay after a direction change before stepping (s)
	DirSetup float64

	// EnableDelay and DisableDelay bracket driver enable transitions (s)
	EnableDelay  float64
	DisableDelay float64
}

// StepCommand instructs the transport to emit steps on one axis
type StepCommand struct {
	// Axis is the actuator index
	Axis int

	// Steps is the unsigned step count
	Steps uint32

	// Dir is the direction flag after inversion is applied
	Dir bool

	// Timing optionally overrides board defaults
	Timing *StepTiming

	// OnDone, when set, is invoked by the consumer after transmission
	OnDone func()
}

// String describes the command for telemetry
func (c StepCommand) String() string {
	return fmt.Sprintf("axis=%d steps=%d dir=%t", c.Axis, c.Steps, c.Dir)
}

// Generator tracks the last emitted integer step position per axis and
// emits delta commands toward new targets.
type Generator struct {
	stepsPerMM [config.NumAxes]float64
	invert     [config.NumAxes]bool
	current    [config.NumAxes]int64
}

// NewGenerator creates a step generator. stepsPerMM entries must be
// positive for axes that are expected to move.
func NewGenerator(stepsPerMM [config.NumAxes]float64, invert [config.NumAxes]bool) *Generator {
	return &Generator{stepsPerMM: stepsPerMM, invert: invert}
}

// GenerateSteps emits one StepCommand per axis whose rounded target step
// count differs from the current count. The current count is updated for
// every axis, including zero-delta ones.
func (g *Generator) GenerateSteps(pos kinematics.MotorVector) []StepCommand {
	var cmds []StepCommand
	for axis := 0; axis < config.NumAxes; axis++ {
		target := int64(math.Round(pos[axis] * g.stepsPerMM[axis]))
		delta := target - g.current[axis]
		g.current[axis] = target
		if delta == 0 {
			continue
		}

		dir := delta > 0
		if g.invert[axis] {
			dir = !dir
		}
		steps := delta
		if steps < 0 {
			steps = -steps
		}
		cmds = append(cmds, StepCommand{
			Axis:  axis,
			Steps: uint32(steps),
			Dir:   dir,
		})
	}
	return cmds
}

// CurrentSteps returns the tracked step count for an axis
func (g *Generator) CurrentSteps(axis int) int64 {
	if axis < 0 || axis >= config.NumAxes {
		return 0
	}
	return g.current[axis]
}

// ResetSteps zeroes the tracked counters, e.g. after homing
func (g *Generator) ResetSteps() {
	g.current = [config.NumAxes]int64{}
}

// MinimumTransmitTime sums one direction-setup delay plus, per command,
// steps*(interval + pulse width). It is a lower bound on the real-time
// budget the transport needs for the batch.
func MinimumTransmitTime(cmds []StepCommand, timing StepTiming) float64 {
	if len(cmds) == 0 {
		return 0
	}
	total := timing.DirSetup
	for _, c := range cmds {
		t := timing
		if c.Timing != nil {
			t = *c.Timing
		}
		total += float64(c.Steps) * (t.StepInterval + t.PulseWidth)
	}
	return total
}
