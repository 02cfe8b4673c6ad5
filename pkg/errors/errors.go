// Unified error handling for the motion host
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Kinematics errors
	ErrKinematics       ErrorCode = "KINEMATICS"
	ErrKinematicsBounds ErrorCode = "KINEMATICS_BOUNDS"
	ErrKinematicsType   ErrorCode = "KINEMATICS_TYPE"

	// Profile generation errors
	ErrInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrInfeasible        ErrorCode = "INFEASIBLE_CONSTRAINTS"

	// Queue and buffer errors
	ErrQueueFull    ErrorCode = "QUEUE_FULL"
	ErrQueueEmpty   ErrorCode = "QUEUE_EMPTY"
	ErrRuntimeQueue ErrorCode = "RUNTIME_QUEUE"

	// Configuration errors
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Shaper and blend errors
	ErrShaperType ErrorCode = "SHAPER_TYPE"
	ErrBlend      ErrorCode = "BLEND"
)

// MotionError is the unified error type for the motion host
type MotionError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Axis is the axis index the error refers to (-1 when not applicable)
	Axis int

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *MotionError) Error() string {
	if e.Axis >= 0 {
		return fmt.Sprintf("[%s] axis %d: %s", e.Code, e.Axis, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MotionError) Unwrap() error {
	return e.Err
}

// SetAxis sets the axis index
func (e *MotionError) SetAxis(axis int) *MotionError {
	e.Axis = axis
	return e
}

// SetContext adds additional context
func (e *MotionError) SetContext(key string, value interface{}) *MotionError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new MotionError with the given code and message
func New(code ErrorCode, message string) *MotionError {
	return &MotionError{Code: code, Message: message, Axis: -1}
}

// Newf creates a new MotionError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *MotionError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *MotionError {
	return &MotionError{Code: code, Message: message, Axis: -1, Err: err}
}

// Is reports whether err carries the given error code
func Is(err error, code ErrorCode) bool {
	var me *MotionError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// IsBounds reports whether err is a kinematic bounds rejection
func IsBounds(err error) bool {
	return Is(err, ErrKinematicsBounds)
}

// IsInvalid reports whether err is an invalid-parameters rejection
func IsInvalid(err error) bool {
	return Is(err, ErrInvalidParameters) || Is(err, ErrInfeasible)
}

// IsBackpressure reports whether err is a transient buffer-full condition
func IsBackpressure(err error) bool {
	return Is(err, ErrQueueFull)
}

// Taxonomy-specific constructors

// KinematicsBoundsError creates an error for a move target outside the axis box
func KinematicsBoundsError(axis string, coord, min, max float64) *MotionError {
	return New(ErrKinematicsBounds, fmt.Sprintf("%s coordinate %.3f out of bounds [%.3f, %.3f]", axis, coord, min, max))
}

// KinematicsTypeError creates an error for an unknown kinematics variant
func KinematicsTypeError(typ string) *MotionError {
	return New(ErrKinematicsType, fmt.Sprintf("unknown kinematics type: %s", typ))
}

// InvalidParametersError creates an error for a structurally invalid request
func InvalidParametersError(what string, reason string) *MotionError {
	return New(ErrInvalidParameters, fmt.Sprintf("%s: %s", what, reason))
}

// InfeasibleError creates an error for constraints that admit no profile
func InfeasibleError(reason string) *MotionError {
	return New(ErrInfeasible, reason)
}

// QueueFullError creates a transient backpressure error
func QueueFullError(what string, capacity int) *MotionError {
	return New(ErrQueueFull, fmt.Sprintf("%s full (capacity %d)", what, capacity))
}

// ConfigValidationError creates an error for an implausible config value
func ConfigValidationError(option string, reason string) *MotionError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s': %s", option, reason))
}

// ShaperTypeError creates an error for an unknown shaper variant
func ShaperTypeError(typ string) *MotionError {
	return New(ErrShaperType, fmt.Sprintf("unknown shaper type: %s", typ))
}

// BlendError creates an error for a corner blend failure
func BlendError(reason string) *MotionError {
	return New(ErrBlend, reason)
}
