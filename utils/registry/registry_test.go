package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/runa/utils/params"
)

func native(name, desc string) *Native {
	return &Native{
		Info:    Info{Name: name, Description: desc},
		Handler: func(context.Context, *params.Bound) error { return nil },
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func names(r *Registry) []string {
	var out []string
	for name := range r.All() {
		out = append(out, name)
	}
	return out
}

func TestRegistryLaterSourceWins(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "build.sh", "#!/bin/sh\n# Build from scripts\nmake\n")

	r := New(
		Builtins(native("list", "List commands"), native("build", "Built-in build")),
		Dir(dir, DefaultScriptLoaders()),
	)

	cmd, err := r.Resolve("build")
	require.NoError(t, err)
	ext, ok := cmd.(*External)
	require.True(t, ok, "directory source should replace the built-in")
	assert.Equal(t, path, ext.Path)
	assert.Equal(t, "sh", ext.Interpreter)
	assert.Equal(t, "Build from scripts", ext.Description)

	if diff := cmp.Diff([]string{"list", "build"}, names(r)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := New(Builtins(native("list", "")))
	_, err := r.Resolve("nope")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.Name)
}

func TestRegistryMissingDirectory(t *testing.T) {
	r := New(Dir(filepath.Join(t.TempDir(), "absent"), DefaultScriptLoaders()))
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, names(r))
}

func TestRegistryAllIsRestartable(t *testing.T) {
	r := New(Builtins(native("a", ""), native("b", ""), native("c", "")))

	assert.Equal(t, []string{"a", "b", "c"}, names(r))
	assert.Equal(t, []string{"a", "b", "c"}, names(r))

	var first string
	for name := range r.All() {
		first = name
		break
	}
	assert.Equal(t, "a", first)
}

type countingSource struct {
	calls int
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Commands() ([]Command, error) {
	s.calls++
	return []Command{native("x", "")}, nil
}

func TestRegistryLoadsOnce(t *testing.T) {
	src := &countingSource{}
	r := New(src)
	assert.Equal(t, 0, src.calls, "nothing is read before first use")

	_, err := r.Resolve("x")
	require.NoError(t, err)
	_ = names(r)
	_ = r.Len()
	assert.Equal(t, 1, src.calls)
}

type failingSource struct{}

func (failingSource) Name() string                 { return "broken" }
func (failingSource) Commands() ([]Command, error) { return nil, errors.New("boom") }

func TestRegistrySkipsFailingSource(t *testing.T) {
	r := New(failingSource{}, Builtins(native("ok", "")))
	assert.Equal(t, []string{"ok"}, names(r))
}

func TestDirSourceIsNotRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top.sh", "echo top\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writeFile(t, filepath.Join(dir, "nested"), "deep.sh", "echo deep\n")
	writeFile(t, dir, "notes.txt", "not a command\n")

	cmds, err := Dir(dir, DefaultScriptLoaders()).Commands()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "top", cmds[0].Meta().Name)
}

func TestDirSourceHonoursIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.sh", "echo keep\n")
	writeFile(t, dir, "scratch.sh", "echo scratch\n")
	writeFile(t, dir, "wip-deploy.py", "print('wip')\n")
	writeFile(t, dir, IgnoreFile, "scratch.sh\nwip-*\n")

	r := New(Dir(dir, DefaultScriptLoaders()))
	assert.Equal(t, []string{"keep"}, names(r))
}

func TestDirSourceLoaderErrorsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", "")
	writeFile(t, dir, "bad.yaml", "")

	loaders := map[string]Loader{
		".yaml": func(name, path string) (Command, error) {
			if name == "bad" {
				return nil, errors.New("invalid task file")
			}
			n := native(name, "")
			n.Origin = path
			return n, nil
		},
	}

	r := New(Dir(dir, loaders))
	assert.Equal(t, []string{"good"}, names(r))

	cmd, err := r.Resolve("good")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "good.yaml"), Origin(cmd))
}

func TestScriptDescription(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{name: "after shebang", content: "#!/usr/bin/env bash\n# Clear caches\necho\n", expected: "Clear caches"},
		{name: "no shebang", content: "## Sync files\n", expected: "Sync files"},
		{name: "blank comment skipped", content: "#!/bin/sh\n#\n# Real text\n", expected: "Real text"},
		{name: "code first", content: "echo hi\n# too late\n", expected: ""},
		{name: "empty", content: "", expected: ""},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "s"+string(rune('a'+i))+".sh", tt.content)
			desc, err := scriptDescription(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, desc)
		})
	}
}

func TestSynopsisAndOrigin(t *testing.T) {
	n := native("generate", "")
	n.Params = []params.Spec{params.New("!name"), params.New("force").WithOptions("yes", "no").WithFallback("no")}
	assert.Equal(t, "<name> [yes|no=no]", Synopsis(n))
	assert.Equal(t, "builtin", Origin(n))

	ext := &External{Info: Info{Name: "x", Origin: "/cmds/x.sh"}, Path: "/cmds/x.sh"}
	assert.Equal(t, "[args...]", Synopsis(ext))
	assert.Equal(t, "/cmds/x.sh", Origin(ext))
}
