// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checkpoint

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrInvalidInput indicates a nil or malformed argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNilContext indicates a nil context.Context was passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNotFound indicates a recovery candidate does not exist on the
	// filesystem. It is recorded per candidate but never counts as a
	// decode failure.
	ErrNotFound = errors.New("checkpoint candidate not present")

	// ErrDecode indicates a candidate's byte stream is malformed or
	// references a payload kind no registry can resolve.
	ErrDecode = errors.New("checkpoint decode failed")

	// ErrValidation indicates a checkpoint is structurally present but
	// semantically invalid (a required field is missing or zero).
	ErrValidation = errors.New("checkpoint validation failed")

	// ErrRecoveryExhausted indicates every recovery candidate was absent
	// or failed. It is the only error Load returns for recovery failure;
	// the per-candidate reasons ride along in RecoveryError.
	ErrRecoveryExhausted = errors.New("checkpoint recovery exhausted")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports the first invalid checkpoint field, checked in
// a fixed order: timestamp, coordinator endpoint, job name, snapshot
// directory, snapshot interval.
type ValidationError struct {
	// Field is the name of the first field that failed validation.
	Field string

	// Reason is a human-readable description of the failure.
	Reason string
}

// Error returns the validation failure description.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkpoint validation failed: field %q %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Attempt records the outcome of probing a single recovery candidate.
type Attempt struct {
	// Candidate is the path that was probed.
	Candidate string

	// Err is why the candidate did not yield a checkpoint. ErrNotFound
	// for absent candidates; otherwise an I/O, decode, or validation error.
	Err error
}

// RecoveryError aggregates the per-candidate failures after every recovery
// candidate has been spent. It lets operators distinguish "nothing was ever
// checkpointed" (all ErrNotFound) from "checkpoints exist but are all
// corrupt".
type RecoveryError struct {
	// BasePath is the base path recovery was attempted under.
	BasePath string

	// Attempts holds one entry per candidate, in probe order.
	Attempts []Attempt
}

// Error summarizes the base path and every per-candidate failure reason.
func (e *RecoveryError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no recoverable checkpoint under %q", e.BasePath)
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "; %s: %v", a.Candidate, a.Err)
	}
	return sb.String()
}

// Unwrap allows errors.Is(err, ErrRecoveryExhausted).
func (e *RecoveryError) Unwrap() error {
	return ErrRecoveryExhausted
}
