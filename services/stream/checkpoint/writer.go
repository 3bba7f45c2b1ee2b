// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("emberflow.checkpoint")

const (
	// primaryFileName is the file the current checkpoint lives in under
	// the base path.
	primaryFileName = "graph"

	// backupSuffix marks the one-generation backup slot of a candidate.
	backupSuffix = ".bk"
)

// Writer persists checkpoints with one-generation backup rotation.
//
// Description:
//
//	Save resolves the primary file as <base>/graph, copies any existing
//	primary to <base>/graph.bk first, then overwrites the primary with
//	the new checkpoint. The primary write is not atomic; if it is
//	interrupted, the backup still holds a previously-valid checkpoint,
//	which is the subsystem's sole durability guarantee.
//
// Thread Safety:
//
//	Callers must ensure at most one Writer targets a given base path at
//	a time. No internal locking is provided.
type Writer struct {
	fs     FileSystem
	logger *slog.Logger
}

// NewWriter creates a checkpoint writer.
//
// Inputs:
//
//	fs - Storage collaborator. If nil, the local filesystem is used.
//	logger - Logger for save diagnostics. If nil, uses slog.Default().
func NewWriter(fs FileSystem, logger *slog.Logger) *Writer {
	if fs == nil {
		fs = OSFileSystem{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{fs: fs, logger: logger}
}

// Save persists a checkpoint under basePath, rotating any prior primary
// into the backup slot first.
//
// Description:
//
//	Validation runs before any filesystem call, so an invalid checkpoint
//	never disturbs the files on disk. Filesystem errors during rotation
//	or the write are surfaced unmodified; Save performs no retries, since
//	a single write path has no fallback.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	cp - The checkpoint to persist. Must be valid.
//	basePath - Directory the primary and backup files live under.
//
// Outputs:
//
//	error - Non-nil if validation, rotation, encoding, or the write fails.
func (w *Writer) Save(ctx context.Context, cp *Checkpoint, basePath string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if basePath == "" {
		return fmt.Errorf("%w: basePath must not be empty", ErrInvalidInput)
	}

	_, span := tracer.Start(ctx, "checkpoint.save",
		trace.WithAttributes(
			attribute.String("checkpoint.base_path", basePath),
		),
	)
	defer span.End()

	// Fail fast: no I/O on behalf of an invalid checkpoint.
	if err := Validate(cp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	primary := filepath.Join(basePath, primaryFileName)

	exists, err := w.fs.Exists(primary)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("check primary %s: %w", primary, err)
	}
	if exists {
		backup := primary + backupSuffix
		if err := w.fs.Copy(primary, backup); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("rotate backup %s: %w", backup, err)
		}
		w.logger.Debug("rotated checkpoint backup",
			slog.String("primary", primary),
			slog.String("backup", backup),
		)
	}

	data, err := Encode(cp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	f, err := w.fs.Create(primary)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("create primary %s: %w", primary, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write primary %s: %w", primary, err)
	}
	if err := f.Close(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("close primary %s: %w", primary, err)
	}

	span.SetAttributes(attribute.String("checkpoint.snapshot_id", cp.SnapshotID))
	w.logger.Info("checkpoint saved",
		slog.String("path", primary),
		slog.String("job_name", cp.JobName),
		slog.String("snapshot_id", cp.SnapshotID),
		slog.Time("timestamp", cp.Timestamp),
	)
	return nil
}

// Encode validates and serializes a checkpoint without touching the
// filesystem, for callers that delegate persistence elsewhere.
func (w *Writer) Encode(cp *Checkpoint) ([]byte, error) {
	if err := Validate(cp); err != nil {
		return nil, err
	}
	return Encode(cp)
}
