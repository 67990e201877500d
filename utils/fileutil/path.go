package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables and resolves the result
// against the current working directory.
func ExpandPath(path string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return ResolvePath(path, cwd)
}

// ResolvePath expands ~ and environment variables, then makes the path
// absolute relative to base. An empty path stays empty.
func ResolvePath(path, base string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return homeDir, nil
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	// ~user is not supported and falls through as a relative path

	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	return filepath.Clean(path), nil
}

// UnsafePathError is returned by JoinUnder for a path that could leave its
// base through a parent segment.
type UnsafePathError struct {
	Path string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe path %q: parent segments are not allowed", e.Path)
}

// JoinUnder makes a rendered path absolute relative to base without any
// expansion: $VAR and ~ are kept literally. Paths containing a ".." segment
// and empty paths are rejected.
func JoinUnder(base, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &UnsafePathError{Path: path}
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", &UnsafePathError{Path: path}
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(base, path), nil
}
