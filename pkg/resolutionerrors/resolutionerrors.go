// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolutionerrors

import "errors"

const (
	InvalidAtom            = "INVALID_ATOM"
	InvalidDependString    = "INVALID_DEPEND_STRING"
	AmbiguousPackageName   = "AMBIGUOUS_PACKAGE_NAME"
	SlotConflict           = "SLOT_CONFLICT"
	UnsatisfiableDep       = "UNSATISFIABLE_DEPENDENCY"
	CircularDependency     = "CIRCULAR_DEPENDENCY"
	BacktrackLimitExceeded = "BACKTRACK_LIMIT_EXCEEDED"
	BlockerViolation       = "BLOCKER_VIOLATION"
	InvalidConfig          = "INVALID_CONFIG"
	UnknownError           = "UNKNOWN_ERROR"
)

// Coder is implemented by errors that carry their own code
type Coder interface {
	error
	Code() string
}

// Fatal reports whether a code stops resolution outright rather than
// triggering a backtrack
func Fatal(code string) bool {
	switch code {
	case SlotConflict, UnsatisfiableDep, CircularDependency, BlockerViolation:
		return false
	}
	return true
}

type ResolutionError struct {
	Code  string
	Cause error
}

func (r *ResolutionError) Error() string {
	if r.Cause != nil {
		return r.Code + ": " + r.Cause.Error()
	}
	return r.Code
}

func (r *ResolutionError) MarshalYAML() (interface{}, error) {
	var causeStr string
	if r.Cause != nil {
		causeStr = r.Cause.Error()
	}
	return map[string]interface{}{
		"code":  r.Code,
		"cause": causeStr,
	}, nil
}

func (r *ResolutionError) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var aux struct {
		Code  string `yaml:"code"`
		Cause string `yaml:"cause"`
	}
	if err := unmarshal(&aux); err != nil {
		return err
	}
	r.Code = aux.Code
	if aux.Cause != "" {
		r.Cause = errors.New(aux.Cause)
	}
	return nil
}

func (r *ResolutionError) Unwrap() error {
	return r.Cause
}

var _ error = (*ResolutionError)(nil)

func NewInvalidConfigError(cause error) *ResolutionError {
	return &ResolutionError{
		Code:  InvalidConfig,
		Cause: cause,
	}
}

func NewUnknownError(cause error) *ResolutionError {
	return &ResolutionError{
		Code:  UnknownError,
		Cause: cause,
	}
}

// Standardize maps err to a coded ResolutionError. Errors anywhere in the
// chain that implement Coder keep their code.
func Standardize(err error) *ResolutionError {
	if err == nil {
		return nil
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr
	}

	var coder Coder
	if errors.As(err, &coder) {
		return &ResolutionError{Code: coder.Code(), Cause: err}
	}

	return NewUnknownError(err)
}
