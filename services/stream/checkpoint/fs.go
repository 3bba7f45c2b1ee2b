// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checkpoint

import (
	"fmt"
	"io"
	"os"
)

// FileSystem is the storage collaborator the Writer and Reader consume.
// Implementations resolve paths against their own configuration; the
// subsystem never touches the medium directly, which keeps recovery
// testable against stub filesystems.
type FileSystem interface {
	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)

	// Open opens the file at path for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates the file at path for writing.
	Create(path string) (io.WriteCloser, error)

	// Copy copies src to dst, overwriting dst if it exists.
	Copy(src, dst string) error
}

// OSFileSystem implements FileSystem over the local filesystem.
type OSFileSystem struct{}

// Exists reports whether path exists. A missing file is not an error.
func (OSFileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// Open opens path for reading.
func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Create creates or truncates path for writing.
func (OSFileSystem) Create(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// Copy copies src to dst wholesale, overwriting any previous dst.
func (OSFileSystem) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// Ensure OSFileSystem implements FileSystem
var _ FileSystem = OSFileSystem{}
