// Conversion of sampled s-curve profiles into scheduled step events
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package scurve

import (
	"math"

	"motionhost/pkg/errors"
	"motionhost/pkg/sched"
	"motionhost/pkg/stepgen"
)

// ScheduleSteps converts each profile sample directly into a timestamped
// StepCommand on the shared time-ordered event queue. The move runs along
// a single axis; startTime offsets all event timestamps. Returns the
// number of step events scheduled.
func ScheduleSteps(q *sched.Queue, points []ProfilePoint, axis int, stepsPerMM, startTime float64) (int, error) {
	if q == nil {
		return 0, errors.InvalidParametersError("schedule", "event queue is nil")
	}
	if stepsPerMM <= 0 || math.IsNaN(stepsPerMM) {
		return 0, errors.InvalidParametersError("schedule", "steps per mm must be positive")
	}

	scheduled := 0
	last := int64(0)
	for _, pt := range points {
		target := int64(math.Round(pt.Position * stepsPerMM))
		delta := target - last
		last = target
		if delta == 0 {
			continue
		}

		steps := delta
		if steps < 0 {
			steps = -steps
		}
		q.Push(sched.Event{
			Timestamp: startTime + pt.Time,
			Kind:      sched.KindStep,
			Payload: stepgen.StepCommand{
				Axis:  axis,
				Steps: uint32(steps),
				Dir:   delta > 0,
			},
		})
		scheduled++
	}
	return scheduled, nil
}
