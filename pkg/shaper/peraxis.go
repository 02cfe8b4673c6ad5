// Per-axis shaper assignment
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package shaper

import (
	"motionhost/pkg/config"
	"motionhost/pkg/errors"
)

// PerAxisShapers assigns an independent optional shaper per axis index.
// An absent slot is a passthrough.
type PerAxisShapers struct {
	slots [config.NumAxes]*Shaper
}

// NewPerAxis returns an all-passthrough assignment
func NewPerAxis() *PerAxisShapers {
	return &PerAxisShapers{}
}

// Set installs (or clears, with nil) the shaper for an axis
func (p *PerAxisShapers) Set(axis int, s *Shaper) error {
	if axis < 0 || axis >= config.NumAxes {
		return errors.InvalidParametersError("per-axis shaper", "axis index out of range").SetAxis(axis)
	}
	p.slots[axis] = s
	return nil
}

// Get returns the shaper for an axis, or nil for passthrough
func (p *PerAxisShapers) Get(axis int) *Shaper {
	if axis < 0 || axis >= config.NumAxes {
		return nil
	}
	return p.slots[axis]
}

// DoStep shapes one sample for the given axis; passthrough when no
// shaper is assigned
func (p *PerAxisShapers) DoStep(axis int, input float64) float64 {
	if axis < 0 || axis >= config.NumAxes || p.slots[axis] == nil {
		return input
	}
	return p.slots[axis].DoStep(input)
}

// Reset clears the state of every assigned shaper
func (p *PerAxisShapers) Reset() {
	for _, s := range p.slots {
		if s != nil {
			s.Reset()
		}
	}
}
