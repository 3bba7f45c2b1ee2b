// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package checkpoint persists point-in-time snapshots of a running job's
// state and recovers the most recent valid one after a crash.
//
// A save rotates the existing primary file into a one-generation backup
// slot before overwriting the primary. The write itself is not atomic (no
// fsync, no rename-into-place); durability comes from the rotation plus an
// ordered four-candidate recovery:
//
//	<base>/graph      current primary
//	<base>/graph.bk   backup of primary
//	<base>            legacy flat-file primary
//	<base>.bk         legacy flat-file backup
//
// The Reader returns the first candidate that opens, decodes, and
// validates; every per-candidate failure is recorded rather than raised,
// and recovery only fails once all four candidates are spent.
package checkpoint

import (
	"time"

	"github.com/google/uuid"
)

// Payload is the capability a job's state type must implement to be
// carried inside a checkpoint. The subsystem never interprets the payload;
// it only round-trips it through JSON under the kind string, which the
// decoding side resolves through a TypeRegistry.
type Payload interface {
	// PayloadKind returns the stable name the payload type is registered
	// under. It must not change across releases that need to read old
	// checkpoints.
	PayloadKind() string
}

// Checkpoint is the unit of persisted state: a snapshot timestamp, the
// identity of the job that took it, and the job's opaque state payload.
//
// Field order matters: validation reports the first invalid field in
// declaration order (timestamp first, then each identity field).
type Checkpoint struct {
	// Timestamp is the logical point in time the snapshot was taken.
	Timestamp time.Time `json:"timestamp" validate:"required"`

	// CoordinatorEndpoint identifies the coordinator the job reports to.
	CoordinatorEndpoint string `json:"coordinator_endpoint" validate:"required"`

	// JobName is the job/run this snapshot belongs to.
	JobName string `json:"job_name" validate:"required"`

	// SnapshotDir is the directory snapshots for this job are written to.
	SnapshotDir string `json:"snapshot_dir" validate:"required"`

	// SnapshotInterval is how often snapshots are taken. Must be positive.
	SnapshotInterval time.Duration `json:"snapshot_interval_ns" validate:"required,gt=0"`

	// SnapshotID uniquely identifies this snapshot. Assigned by New;
	// informational only, not part of validity.
	SnapshotID string `json:"snapshot_id"`

	// AuxResources optionally references auxiliary resources the job
	// depends on (jar paths, side inputs). May be empty.
	AuxResources []string `json:"aux_resources,omitempty"`

	// Payload is the job's opaque state. Owned by the caller's domain.
	Payload Payload `json:"-"`
}

// New constructs a Checkpoint and validates it before returning.
//
// Description:
//
//	Fails fast with a ValidationError if the timestamp or any identity
//	field is missing, so an invalid checkpoint never reaches the Writer
//	and no filesystem call is made on its behalf.
//
// Inputs:
//
//	timestamp - Logical snapshot time. Must not be the zero time.
//	coordinatorEndpoint - Coordinator identity. Must not be empty.
//	jobName - Job/run name. Must not be empty.
//	snapshotDir - Snapshot directory path. Must not be empty.
//	snapshotInterval - Snapshot cadence. Must be positive.
//	payload - Opaque job state. May be nil.
//	auxResources - Optional auxiliary resource references.
//
// Outputs:
//
//	*Checkpoint - The validated checkpoint with a fresh SnapshotID.
//	error - ValidationError naming the first invalid field.
func New(
	timestamp time.Time,
	coordinatorEndpoint string,
	jobName string,
	snapshotDir string,
	snapshotInterval time.Duration,
	payload Payload,
	auxResources ...string,
) (*Checkpoint, error) {
	cp := &Checkpoint{
		Timestamp:           timestamp,
		CoordinatorEndpoint: coordinatorEndpoint,
		JobName:             jobName,
		SnapshotDir:         snapshotDir,
		SnapshotInterval:    snapshotInterval,
		SnapshotID:          uuid.NewString(),
		AuxResources:        auxResources,
		Payload:             payload,
	}

	if err := Validate(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Equal reports whether two checkpoints agree on timestamp and every
// identity field. Payload equality is the payload owner's business and is
// not considered.
func (c *Checkpoint) Equal(o *Checkpoint) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Timestamp.Equal(o.Timestamp) &&
		c.CoordinatorEndpoint == o.CoordinatorEndpoint &&
		c.JobName == o.JobName &&
		c.SnapshotDir == o.SnapshotDir &&
		c.SnapshotInterval == o.SnapshotInterval
}
