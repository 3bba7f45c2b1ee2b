// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reader recovers the most recent valid checkpoint from an ordered set of
// candidate locations.
//
// Description:
//
//	Candidates are probed in a fixed order that prefers the most recent
//	primary, then its backup, then the legacy flat-file forms. Each
//	candidate is attempted inside an isolated failure boundary: an I/O,
//	decode, or validation failure is recorded and the next candidate is
//	tried, never propagated directly. The first candidate that opens,
//	decodes, and validates wins.
//
// Thread Safety:
//
//	Reader is read-only and safe for concurrent use with itself, but must
//	not run concurrently with a Writer targeting the same base path: the
//	rotation-plus-overwrite is not atomic, and a concurrent load can
//	observe a half-written primary. That is the corruption case the
//	ordered fallback tolerates, not prevents.
type Reader struct {
	fs       FileSystem
	registry *TypeRegistry
	logger   *slog.Logger
}

// NewReader creates a checkpoint reader.
//
// Inputs:
//
//	fs - Storage collaborator. If nil, the local filesystem is used.
//	registry - Resolution context for payload kinds. If nil, only
//	DefaultRegistry is consulted.
//	logger - Logger for per-candidate diagnostics. If nil, uses
//	slog.Default().
func NewReader(fs FileSystem, registry *TypeRegistry, logger *slog.Logger) *Reader {
	if fs == nil {
		fs = OSFileSystem{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{fs: fs, registry: registry, logger: logger}
}

// candidatePaths returns the recovery locations for a base path, most
// preferred first.
func candidatePaths(basePath string) []string {
	primary := filepath.Join(basePath, primaryFileName)
	return []string{
		primary,                   // current primary
		primary + backupSuffix,    // backup of primary
		basePath,                  // legacy flat-file primary
		basePath + backupSuffix,   // legacy flat-file backup
	}
}

// Load recovers the first checkpoint that opens, decodes, and validates.
//
// Description:
//
//	Absent candidates are logged as not present and skipped; failed
//	candidates are logged with their reason. Load never returns a partial
//	or best-effort checkpoint: if every candidate is absent or fails, it
//	returns a RecoveryError naming the base path and every per-candidate
//	reason, so operators can tell "never checkpointed" from "all corrupt".
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	basePath - Base path the candidates are derived from.
//
// Outputs:
//
//	*Checkpoint - The recovered checkpoint, owned by the caller.
//	error - A RecoveryError wrapping ErrRecoveryExhausted when all
//	candidates are spent.
func (r *Reader) Load(ctx context.Context, basePath string) (*Checkpoint, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if basePath == "" {
		return nil, fmt.Errorf("%w: basePath must not be empty", ErrInvalidInput)
	}

	_, span := tracer.Start(ctx, "checkpoint.load",
		trace.WithAttributes(
			attribute.String("checkpoint.base_path", basePath),
		),
	)
	defer span.End()

	var attempts []Attempt
	for _, candidate := range candidatePaths(basePath) {
		cp, err := r.tryCandidate(candidate)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				r.logger.Debug("checkpoint candidate not present",
					slog.String("path", candidate),
				)
			} else {
				r.logger.Warn("checkpoint candidate failed",
					slog.String("path", candidate),
					slog.String("error", err.Error()),
				)
			}
			attempts = append(attempts, Attempt{Candidate: candidate, Err: err})
			continue
		}

		span.SetAttributes(
			attribute.String("checkpoint.candidate", candidate),
			attribute.Int("checkpoint.failed_candidates", len(attempts)),
		)
		r.logger.Info("checkpoint recovered",
			slog.String("path", candidate),
			slog.String("job_name", cp.JobName),
			slog.Time("timestamp", cp.Timestamp),
		)
		return cp, nil
	}

	err := &RecoveryError{BasePath: basePath, Attempts: attempts}
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// tryCandidate attempts a single candidate through all three stages:
// open, decode, validate. Every file handle is released on every exit
// path.
func (r *Reader) tryCandidate(path string) (*Checkpoint, error) {
	exists, err := r.fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("check candidate: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidate: %w", err)
	}
	data, err := io.ReadAll(f)
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("read candidate: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close candidate: %w", closeErr)
	}

	cp, err := Decode(data, r.registry)
	if err != nil {
		return nil, err
	}
	if err := Validate(cp); err != nil {
		return nil, err
	}
	return cp, nil
}
