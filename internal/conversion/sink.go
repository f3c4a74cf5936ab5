// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package conversion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/rdfcsv/internal/validate"
)

// Sink receives the archive of a finished conversion.
type Sink interface {
	// Deliver stores the content read from r under name and returns where
	// it ended up.
	Deliver(name string, r io.Reader) (string, error)
}

// DirSink saves archives into a directory. The archive is written to a
// temporary file that is renamed into place only after the whole body has
// arrived, so a failed download never leaves a partial archive behind.
type DirSink struct {
	Dir string
}

// Deliver implements Sink.
func (s DirSink) Deliver(name string, r io.Reader) (string, error) {
	if !validate.IsValidFilename(name) {
		return "", fmt.Errorf("refusing unsafe archive name %q", name)
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	destPath := filepath.Join(dir, name)

	tmpFile, err := os.CreateTemp(dir, ".rdfcsv-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, r)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing archive: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return destPath, nil
}
