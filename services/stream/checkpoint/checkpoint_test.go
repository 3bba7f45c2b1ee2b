// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checkpoint

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterPayload is a stand-in for a job's opaque state in tests.
type counterPayload struct {
	Offsets map[string]int64 `json:"offsets"`
}

func (p *counterPayload) PayloadKind() string { return "test.counters" }

// validCheckpoint returns a checkpoint passing all structural invariants.
func validCheckpoint(t *testing.T) *Checkpoint {
	t.Helper()
	cp, err := New(
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		"coordinator:7188",
		"wordcount",
		"/var/lib/emberflow/snapshots",
		30*time.Second,
		&counterPayload{Offsets: map[string]int64{"shard-0": 42}},
		"libs/udfs.jar",
	)
	require.NoError(t, err)
	return cp
}

func TestNew_Valid(t *testing.T) {
	cp := validCheckpoint(t)

	assert.NotEmpty(t, cp.SnapshotID)
	assert.Equal(t, "wordcount", cp.JobName)
	assert.Equal(t, []string{"libs/udfs.jar"}, cp.AuxResources)
	require.NotNil(t, cp.Payload)
	assert.Equal(t, "test.counters", cp.Payload.PayloadKind())
}

func TestNew_NilPayloadAllowed(t *testing.T) {
	cp, err := New(
		time.Now(), "coordinator:7188", "wordcount",
		"/snapshots", time.Minute, nil,
	)
	require.NoError(t, err)
	assert.Nil(t, cp.Payload)
}

func TestNew_FirstInvalidFieldWins(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cp *Checkpoint)
		wantField string
	}{
		{
			name:      "zero timestamp",
			mutate:    func(cp *Checkpoint) { cp.Timestamp = time.Time{} },
			wantField: "Timestamp",
		},
		{
			name:      "empty coordinator endpoint",
			mutate:    func(cp *Checkpoint) { cp.CoordinatorEndpoint = "" },
			wantField: "CoordinatorEndpoint",
		},
		{
			name:      "empty job name",
			mutate:    func(cp *Checkpoint) { cp.JobName = "" },
			wantField: "JobName",
		},
		{
			name:      "empty snapshot dir",
			mutate:    func(cp *Checkpoint) { cp.SnapshotDir = "" },
			wantField: "SnapshotDir",
		},
		{
			name:      "zero snapshot interval",
			mutate:    func(cp *Checkpoint) { cp.SnapshotInterval = 0 },
			wantField: "SnapshotInterval",
		},
		{
			name: "timestamp checked before job name",
			mutate: func(cp *Checkpoint) {
				cp.Timestamp = time.Time{}
				cp.JobName = ""
			},
			wantField: "Timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := validCheckpoint(t)
			tt.mutate(cp)

			err := Validate(cp)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidate_NilCheckpoint(t *testing.T) {
	err := Validate(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckpoint_Equal(t *testing.T) {
	a := validCheckpoint(t)
	b := validCheckpoint(t)

	// SnapshotID and payload differ between constructions; equality is
	// over timestamp and identity fields only.
	assert.True(t, a.Equal(b))

	b.JobName = "other-job"
	assert.False(t, a.Equal(b))

	var nilCP *Checkpoint
	assert.False(t, a.Equal(nilCP))
	assert.True(t, nilCP.Equal(nil))
}
