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

	"github.com/go-playground/validator/v10"
)

// checkpointValidate is the validator instance for checkpoint structs.
// Struct fields are checked in declaration order, which gives the fixed
// validation order the recovery contract promises (timestamp first).
var checkpointValidate *validator.Validate

func init() {
	checkpointValidate = validator.New()
}

// Validate checks the structural invariants of a checkpoint.
//
// Description:
//
//	A checkpoint is valid only if its timestamp and every identity field
//	(coordinator endpoint, job name, snapshot directory, snapshot
//	interval) is set. Validate runs twice in the full lifecycle: right
//	after construction, before any I/O, and right after decoding during
//	recovery, to reject corrupt-but-parseable data.
//
// Inputs:
//
//	cp - The checkpoint to check. Must not be nil.
//
// Outputs:
//
//	error - nil if valid; a ValidationError naming the first invalid
//	field otherwise.
func Validate(cp *Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("%w: checkpoint must not be nil", ErrInvalidInput)
	}

	err := checkpointValidate.Struct(cp)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &ValidationError{
			Field:  first.Field(),
			Reason: reasonFor(first),
		}
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// reasonFor maps a validator tag to a human-readable reason.
func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "gt":
		return "must be greater than zero"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
