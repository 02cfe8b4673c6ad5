// Package kinematics maps between tool-space and actuator-space positions.
//
// Variants are a closed tagged set selected by Type; adding a geometry
// means adding a type tag and its arms in the transform switches.
package kinematics

import (
	"motionhost/pkg/errors"
)

// Type identifies a kinematics variant
type Type string

const (
	// TypeCartesian is a direct one-motor-per-axis mapping
	TypeCartesian Type = "cartesian"

	// TypeCoreXY drives X and Y with two coupled motors (A = X+Y, B = X-Y)
	TypeCoreXY Type = "corexy"
)

// Position is a tool-space position in millimeters: X, Y, Z, E
type Position [4]float64

// MotorVector is an actuator-space position in millimeters
type MotorVector [4]float64

// Kinematics performs tool-space / actuator-space transforms for one
// configured geometry and validates positions against the axis box.
type Kinematics struct {
	typ     Type
	axesMin [3]float64
	axesMax [3]float64
}

// New creates a Kinematics for the given variant and Cartesian axis box.
// An unknown type tag is a typed error.
func New(typ Type, axesMin, axesMax [3]float64) (*Kinematics, error) {
	switch typ {
	case TypeCartesian, TypeCoreXY:
	default:
		return nil, errors.KinematicsTypeError(string(typ))
	}
	return &Kinematics{typ: typ, axesMin: axesMin, axesMax: axesMax}, nil
}

// Type returns the kinematics variant tag
func (k *Kinematics) Type() Type {
	return k.typ
}

// ToMotors transforms a tool-space position to actuator space. The
// extruder axis has no coupled geometry on any variant and passes
// through unchanged so its steps reach the step generator.
func (k *Kinematics) ToMotors(p Position) MotorVector {
	switch k.typ {
	case TypeCoreXY:
		return MotorVector{
			p[0] + p[1], // motor A
			p[0] - p[1], // motor B
			p[2],        // motor C
			p[3],
		}
	default: // cartesian
		return MotorVector{p[0], p[1], p[2], p[3]}
	}
}

// ToCartesian transforms an actuator-space position back to tool space
func (k *Kinematics) ToCartesian(m MotorVector) Position {
	switch k.typ {
	case TypeCoreXY:
		return Position{
			0.5 * (m[0] + m[1]),
			0.5 * (m[0] - m[1]),
			m[2],
			m[3],
		}
	default: // cartesian
		return Position{m[0], m[1], m[2], m[3]}
	}
}

// IsValidPosition reports whether each Cartesian axis lies within the
// configured [min, max] box. The extruder axis is unbounded.
func (k *Kinematics) IsValidPosition(p Position) bool {
	for i := 0; i < 3; i++ {
		if p[i] < k.axesMin[i] || p[i] > k.axesMax[i] {
			return false
		}
	}
	return true
}

// CheckPosition is IsValidPosition with a typed per-axis rejection
func (k *Kinematics) CheckPosition(p Position) error {
	axes := [3]string{"X", "Y", "Z"}
	for i := 0; i < 3; i++ {
		if p[i] < k.axesMin[i] || p[i] > k.axesMax[i] {
			return errors.KinematicsBoundsError(axes[i], p[i], k.axesMin[i], k.axesMax[i])
		}
	}
	return nil
}
