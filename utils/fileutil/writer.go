package fileutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// IOError reports a failed filesystem write.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Writer persists rendered content.
type Writer interface {
	WriteFile(ctx context.Context, path, content string) error
}

// OSWriter writes files to the local filesystem, creating parent directories.
type OSWriter struct {
	// Perm is the mode for new files; zero means 0644.
	Perm os.FileMode
}

// WriteFile writes content to path, creating missing parent directories.
func (w OSWriter) WriteFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0644
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &IOError{Path: dir, Op: "mkdir", Err: err}
		}
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}
