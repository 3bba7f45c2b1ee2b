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

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs recovery whenever the primary checkpoint file changes.
//
// Description:
//
//	Watcher observes the base path's directory with fsnotify and, on a
//	write or create touching the primary file, invokes Reader.Load and
//	delivers the outcome to the callback. Useful for standby processes
//	that shadow a live writer's checkpoints.
//
// Thread Safety:
//
//	The callback is invoked from a single internal goroutine. Callers
//	synchronize their own consumption.
type Watcher struct {
	reader   *Reader
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	basePath string
	done     chan struct{}
}

// NewWatcher starts watching basePath's primary checkpoint file.
//
// Inputs:
//
//	reader - Reader used for reloads. Must not be nil.
//	basePath - Base path to watch. Its parent directory must exist.
//	onReload - Receives each reload outcome. Must not be nil.
//
// Outputs:
//
//	*Watcher - The running watcher. Close it to release the watch.
//	error - Non-nil if inputs are invalid or the watch cannot be set up.
func NewWatcher(reader *Reader, basePath string, onReload func(*Checkpoint, error)) (*Watcher, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: reader must not be nil", ErrInvalidInput)
	}
	if basePath == "" {
		return nil, fmt.Errorf("%w: basePath must not be empty", ErrInvalidInput)
	}
	if onReload == nil {
		return nil, fmt.Errorf("%w: onReload must not be nil", ErrInvalidInput)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(basePath); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", basePath, err)
	}

	w := &Watcher{
		reader:   reader,
		fsw:      fsw,
		logger:   reader.logger,
		basePath: basePath,
		done:     make(chan struct{}),
	}
	go w.run(onReload)
	return w, nil
}

// run dispatches primary-file events until the underlying watcher closes.
func (w *Watcher) run(onReload func(*Checkpoint, error)) {
	defer close(w.done)

	primary := filepath.Join(w.basePath, primaryFileName)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != primary {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("primary checkpoint changed",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)
			cp, err := w.reader.Load(context.Background(), w.basePath)
			onReload(cp, err)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("checkpoint watch error",
				slog.String("path", w.basePath),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Close releases the watch and waits for the dispatch goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
