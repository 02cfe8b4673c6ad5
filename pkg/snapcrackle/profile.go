// 31-phase extended motion profile bounding derivatives to 5th order
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package snapcrackle

import (
	"math"

	"motionhost/pkg/config"
	"motionhost/pkg/errors"
)

// NumPhases is the fixed phase count of the extended profile
const NumPhases = 31

// Phase is one constant-rate slice of the profile
type Phase struct {
	Duration float64
	Velocity float64
	Accel    float64
	Jerk     float64
	Snap     float64
	Crackle  float64
}

// Profile is a solved 31-phase move
type Profile struct {
	StartVelocity float64
	EndVelocity   float64
	Distance      float64

	// VLimit is the binding velocity after derivative-limit reduction
	VLimit float64

	// TotalTime is distance / VLimit
	TotalTime float64

	Phases [NumPhases]Phase
}

// cracklePattern is the canonical +/0/- sign sequence of the 31 phases,
// obtained by expanding the 3-phase acceleration trapezoid three times
// (each nonzero phase becomes ramp-up / hold / ramp-down of the next
// higher derivative).
var cracklePattern = buildPattern(3)

func buildPattern(expansions int) []float64 {
	pattern := []float64{1, 0, -1}
	for e := 0; e < expansions; e++ {
		next := make([]float64, 0, len(pattern)*3)
		for _, p := range pattern {
			if p == 0 {
				next = append(next, 0)
				continue
			}
			next = append(next, p, 0, -p)
		}
		pattern = next
	}
	return pattern
}

// Solve computes the 31-phase profile for a move of the given distance
// between startV and endV under the configured limits.
//
// Every derivative limit L_k is converted to an equivalent peak velocity
// v_k = L_k^(1/(k+1)); the binding velocity is the minimum of those and
// the configured maximum. All 31 phases get the equal duration
// TotalTime/31 — a first-order simplification of the true variable-length
// solve; an Optimizer implementation is the substitution point for a
// refined allocation.
func Solve(startV, endV, distance float64, cfg config.SnapCrackleConfig) (*Profile, error) {
	if math.IsNaN(distance) || distance <= 0 {
		return nil, errors.InvalidParametersError("distance", "must be positive and finite")
	}
	if startV < 0 || endV < 0 || math.IsNaN(startV) || math.IsNaN(endV) {
		return nil, errors.InvalidParametersError("velocities", "must be non-negative")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lim := cfg.Clamped()

	vLimit := lim.MaxVelocity
	for order, l := range []float64{lim.MaxAccel, lim.MaxJerk, lim.MaxSnap, lim.MaxCrackle} {
		vk := math.Pow(l, 1.0/float64(order+2))
		if vk < vLimit {
			vLimit = vk
		}
	}
	if math.IsNaN(vLimit) || vLimit <= 0 {
		return nil, errors.InfeasibleError("derivative limits admit no velocity")
	}

	totalTime := distance / vLimit
	if math.IsNaN(totalTime) || math.IsInf(totalTime, 0) {
		return nil, errors.InvalidParametersError("profile", "total time is not finite")
	}

	p := &Profile{
		StartVelocity: startV,
		EndVelocity:   endV,
		Distance:      distance,
		VLimit:        vLimit,
		TotalTime:     totalTime,
	}

	dt := totalTime / NumPhases
	for i := 0; i < NumPhases; i++ {
		p.Phases[i].Duration = dt
		p.Phases[i].Crackle = cracklePattern[i] * lim.MaxCrackle
	}

	// Integrate the crackle pattern upward at phase granularity, then
	// rescale each derivative so its peak magnitude matches its limit.
	integrate := func(get func(int) float64, set func(int, float64), limit float64) {
		acc := 0.0
		peak := 0.0
		vals := make([]float64, NumPhases)
		for i := 0; i < NumPhases; i++ {
			acc += get(i) * dt
			vals[i] = acc
			if a := math.Abs(acc); a > peak {
				peak = a
			}
		}
		scale := 1.0
		if peak > 0 {
			scale = limit / peak
		}
		for i := 0; i < NumPhases; i++ {
			set(i, vals[i]*scale)
		}
	}

	integrate(func(i int) float64 { return p.Phases[i].Crackle },
		func(i int, v float64) { p.Phases[i].Snap = v }, lim.MaxSnap)
	integrate(func(i int) float64 { return p.Phases[i].Snap },
		func(i int, v float64) { p.Phases[i].Jerk = v }, lim.MaxJerk)

	// Velocity ramps start -> vLimit -> end across the half profiles
	half := NumPhases / 2
	for i := 0; i < NumPhases; i++ {
		var v float64
		switch {
		case i < half:
			v = startV + (vLimit-startV)*float64(i)/float64(half)
		case i == half:
			v = vLimit
		default:
			v = vLimit + (endV-vLimit)*float64(i-half)/float64(NumPhases-1-half)
		}
		p.Phases[i].Velocity = v
	}

	// Acceleration is the phase-to-phase velocity slope
	for i := 0; i < NumPhases; i++ {
		prev := startV
		if i > 0 {
			prev = p.Phases[i-1].Velocity
		}
		p.Phases[i].Accel = (p.Phases[i].Velocity - prev) / dt
		if a := math.Abs(p.Phases[i].Accel); a > lim.MaxAccel {
			p.Phases[i].Accel = math.Copysign(lim.MaxAccel, p.Phases[i].Accel)
		}
	}

	return p, nil
}

// phaseAt locates the phase containing t, or reports past-the-end
func (p *Profile) phaseAt(t float64) (int, bool) {
	if t < 0 {
		return 0, true
	}
	elapsed := 0.0
	for i := 0; i < NumPhases; i++ {
		elapsed += p.Phases[i].Duration
		if t < elapsed {
			return i, true
		}
	}
	return 0, false
}

// VelocityAt returns the constant velocity of the phase containing t,
// or the configured end velocity past the last phase
func (p *Profile) VelocityAt(t float64) float64 {
	if i, ok := p.phaseAt(t); ok {
		return p.Phases[i].Velocity
	}
	return p.EndVelocity
}

// AccelerationAt returns the phase acceleration, or zero past the end
func (p *Profile) AccelerationAt(t float64) float64 {
	if i, ok := p.phaseAt(t); ok {
		return p.Phases[i].Accel
	}
	return 0
}

// JerkAt returns the phase jerk, or zero past the end
func (p *Profile) JerkAt(t float64) float64 {
	if i, ok := p.phaseAt(t); ok {
		return p.Phases[i].Jerk
	}
	return 0
}

// SnapAt returns the phase snap, or zero past the end
func (p *Profile) SnapAt(t float64) float64 {
	if i, ok := p.phaseAt(t); ok {
		return p.Phases[i].Snap
	}
	return 0
}

// CrackleAt returns the phase crackle, or zero past the end
func (p *Profile) CrackleAt(t float64) float64 {
	if i, ok := p.phaseAt(t); ok {
		return p.Phases[i].Crackle
	}
	return 0
}

// PhaseSum returns the summed phase durations (equals TotalTime within
// floating epsilon)
func (p *Profile) PhaseSum() float64 {
	sum := 0.0
	for i := range p.Phases {
		sum += p.Phases[i].Duration
	}
	return sum
}
