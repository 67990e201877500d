package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/kris-hansen/runa/utils/config"
)

// IgnoreFile lists files of a command directory that should not be loaded.
const IgnoreFile = ".runaignore"

// Source produces commands for the registry.
type Source interface {
	Name() string
	Commands() ([]Command, error)
}

// Loader turns one file into a command. name is the file name without its
// extension.
type Loader func(name, path string) (Command, error)

type builtinSource struct {
	commands []Command
}

// Builtins wraps commands compiled into the binary.
func Builtins(commands ...Command) Source {
	return &builtinSource{commands: commands}
}

func (s *builtinSource) Name() string { return "builtin" }

func (s *builtinSource) Commands() ([]Command, error) {
	return s.commands, nil
}

// DirSource loads the files directly inside a directory, choosing a loader
// by file extension.
type DirSource struct {
	Path    string
	Loaders map[string]Loader // keyed by lower-case extension with dot
}

// Dir creates a directory source.
func Dir(path string, loaders map[string]Loader) *DirSource {
	return &DirSource{Path: path, Loaders: loaders}
}

func (s *DirSource) Name() string { return s.Path }

// Commands scans the directory without descending into subdirectories. A
// missing directory yields no commands. Files a loader rejects are skipped
// with a warning.
func (s *DirSource) Commands() ([]Command, error) {
	entries, err := os.ReadDir(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			debugf("directory %s does not exist, skipping", s.Path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read command directory %s: %w", s.Path, err)
	}

	ignore := s.ignoreRules()

	var commands []Command
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == IgnoreFile || strings.HasPrefix(name, ".") {
			continue
		}
		if ignore != nil && ignore.MatchesPath(name) {
			debugf("ignoring %s", name)
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		load, ok := s.Loaders[ext]
		if !ok {
			continue
		}

		path := filepath.Join(s.Path, name)
		cmd, err := load(strings.TrimSuffix(name, filepath.Ext(name)), path)
		if err != nil {
			config.WarnLog("skipping %s: %v", path, err)
			continue
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}

func (s *DirSource) ignoreRules() *gitignore.GitIgnore {
	path := filepath.Join(s.Path, IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	rules, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		config.WarnLog("could not read %s: %v", path, err)
		return nil
	}
	return rules
}

// ScriptLoader returns a loader that runs files through interpreter. The
// first comment line after an optional shebang becomes the description.
func ScriptLoader(interpreter string) Loader {
	return func(name, path string) (Command, error) {
		desc, err := scriptDescription(path)
		if err != nil {
			return nil, err
		}
		return &External{
			Info:        Info{Name: name, Description: desc, Origin: path},
			Path:        path,
			Interpreter: interpreter,
		}, nil
	}
}

// DefaultScriptLoaders maps the supported script extensions to interpreters.
func DefaultScriptLoaders() map[string]Loader {
	return map[string]Loader{
		".sh":   ScriptLoader("sh"),
		".bash": ScriptLoader("bash"),
		".py":   ScriptLoader("python3"),
	}
}

func scriptDescription(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for first := true; scanner.Scan(); first = false {
		line := strings.TrimSpace(scanner.Text())
		if first && strings.HasPrefix(line, "#!") {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		if desc := strings.TrimSpace(strings.TrimLeft(line, "#")); desc != "" {
			return desc, nil
		}
	}
	return "", scanner.Err()
}
