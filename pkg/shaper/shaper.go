// Input shaping for minimizing motion vibrations
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package shaper

import (
	"math"

	"motionhost/pkg/errors"
)

// Type identifies a shaper variant
type Type string

const (
	// TypeZVD is a two-tap FIR approximating zero-vibration-derivative shaping
	TypeZVD Type = "zvd"

	// TypeSinusoidal injects a sine disturbance; demo and test use only
	TypeSinusoidal Type = "sinusoidal"
)

// Shaper is a per-axis signal filter. Variants are a closed tagged set
// dispatched in DoStep; adding a shaper means adding a type tag and its
// switch arm.
type Shaper struct {
	typ Type

	// ZVD state
	ring   []float64
	coeffs [2]float64

	// Sinusoidal state
	magnitude  float64
	frequency  float64
	sampleTime float64
	phase      float64
}

// NewZVD creates a two-tap FIR shaper. The ring buffer holds delay+1
// samples; each step mixes the oldest and newest.
func NewZVD(coeff0, coeff1 float64, delay int) (*Shaper, error) {
	if delay < 1 {
		return nil, errors.InvalidParametersError("zvd shaper", "delay must be at least 1")
	}
	if math.IsNaN(coeff0) || math.IsNaN(coeff1) {
		return nil, errors.InvalidParametersError("zvd shaper", "coefficient is NaN")
	}
	return &Shaper{
		typ:    TypeZVD,
		ring:   make([]float64, delay+1),
		coeffs: [2]float64{coeff0, coeff1},
	}, nil
}

// NewSinusoidal creates the demo shaper adding magnitude*sin(phase) to the
// input, advancing phase by 2*pi*frequency*sampleTime per call.
func NewSinusoidal(magnitude, frequency, sampleTime float64) *Shaper {
	return &Shaper{
		typ:        TypeSinusoidal,
		magnitude:  magnitude,
		frequency:  frequency,
		sampleTime: sampleTime,
	}
}

// Type returns the shaper variant tag
func (s *Shaper) Type() Type {
	return s.typ
}

// DoStep feeds one input sample and returns the shaped output
func (s *Shaper) DoStep(input float64) float64 {
	switch s.typ {
	case TypeSinusoidal:
		out := input + s.magnitude*math.Sin(s.phase)
		s.phase += 2 * math.Pi * s.frequency * s.sampleTime
		return out
	default: // zvd
		copy(s.ring, s.ring[1:])
		s.ring[len(s.ring)-1] = input
		return s.coeffs[0]*s.ring[0] + s.coeffs[1]*s.ring[len(s.ring)-1]
	}
}

// Reset clears filter state (ring buffer contents, oscillator phase)
func (s *Shaper) Reset() {
	for i := range s.ring {
		s.ring[i] = 0
	}
	s.phase = 0
}

// Delay returns the ZVD delay in samples (0 for other variants)
func (s *Shaper) Delay() int {
	if s.typ == TypeZVD {
		return len(s.ring) - 1
	}
	return 0
}

// DeriveZVDTaps computes normalized two-tap coefficients from a resonance
// frequency and damping ratio using the damped vibration factor
// K = exp(-zeta*pi/sqrt(1-zeta^2)), and the matching delay in samples for
// the given sample time (half the damped period).
func DeriveZVDTaps(shaperFreq, dampingRatio, sampleTime float64) (coeff0, coeff1 float64, delay int, err error) {
	if shaperFreq <= 0 {
		return 0, 0, 0, errors.InvalidParametersError("zvd taps", "shaper frequency must be positive")
	}
	if dampingRatio < 0 || dampingRatio >= 1 {
		return 0, 0, 0, errors.InvalidParametersError("zvd taps", "damping ratio must be in [0, 1)")
	}
	if sampleTime <= 0 {
		return 0, 0, 0, errors.InvalidParametersError("zvd taps", "sample time must be positive")
	}

	k := math.Exp(-dampingRatio * math.Pi / math.Sqrt(1-dampingRatio*dampingRatio))
	coeff0 = 1 / (1 + k)
	coeff1 = k / (1 + k)

	dampedFreq := shaperFreq * math.Sqrt(1-dampingRatio*dampingRatio)
	halfPeriod := 0.5 / dampedFreq
	delay = int(math.Round(halfPeriod / sampleTime))
	if delay < 1 {
		delay = 1
	}
	return coeff0, coeff1, delay, nil
}
