package builtin

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/executor"
	"github.com/kris-hansen/runa/utils/fetch"
	"github.com/kris-hansen/runa/utils/form"
	"github.com/kris-hansen/runa/utils/generate"
	"github.com/kris-hansen/runa/utils/placeholder"
	"github.com/kris-hansen/runa/utils/process"
	"github.com/kris-hansen/runa/utils/registry"
	"github.com/kris-hansen/runa/utils/report"
)

type invocation struct {
	Name string
	Args []string
	Opts process.Options
}

type stubInvoker struct {
	calls  []invocation
	stdout string
	failOn string
}

func (s *stubInvoker) Invoke(_ context.Context, name string, args []string, opts process.Options) *process.Result {
	s.calls = append(s.calls, invocation{Name: name, Args: args, Opts: opts})
	if len(args) > 0 && args[0] == s.failOn {
		return &process.Result{ExitCode: 1, Err: &process.Failure{Command: name, Args: args, ExitCode: 1, Err: errors.New("exit status 1")}}
	}
	return &process.Result{Stdout: s.stdout}
}

type fixture struct {
	deps *Deps
	exec *executor.Executor
	inv  *stubInvoker
	out  *bytes.Buffer
	msgs *bytes.Buffer
}

func newFixture(t *testing.T, extra ...registry.Command) *fixture {
	t.Helper()
	inv := &stubInvoker{}
	out, msgs := &bytes.Buffer{}, &bytes.Buffer{}
	d := &Deps{
		Invoker:  inv,
		Reporter: report.New(msgs),
		Out:      out,
		Tools:    config.DefaultConfig().Tools,
		Root:     "/srv/site",
		Paths:    map[string]string{"root": "/srv/site", "theme": "/srv/site/web/themes"},
	}
	d.Registry = registry.New(registry.Builtins(Commands(d)...), registry.Builtins(extra...))
	return &fixture{deps: d, exec: executor.New(d.Registry, inv), inv: inv, out: out, msgs: msgs}
}

func TestListRejectsUnknownFormatWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := List(&buf, registry.New(), "tree")
	assert.ErrorContains(t, err, `unknown list format "tree"`)
	assert.Empty(t, buf.String())

	require.NoError(t, List(&buf, registry.New(), FormatFull))
	assert.Empty(t, buf.String())
}

func TestListFormats(t *testing.T) {
	ext := &registry.External{Info: registry.Info{Name: "sync", Description: "Sync files", Origin: "/cmds/sync.sh"}, Path: "/cmds/sync.sh"}
	f := newFixture(t, ext)

	require.NoError(t, f.exec.Run(context.Background(), "list", []string{"simple"}))
	assert.Equal(t, "list\ngenerate\ndeploy\nrevision\npaths\nsync\n", f.out.String())

	f.out.Reset()
	require.NoError(t, f.exec.Run(context.Background(), "list", nil))
	assert.Contains(t, f.out.String(), "generate <name> [yes|no=no]")
	assert.Contains(t, f.out.String(), "Sync files")
	assert.NotContains(t, f.out.String(), "/cmds/sync.sh")

	f.out.Reset()
	require.NoError(t, f.exec.Run(context.Background(), "list", []string{"full"}))
	assert.Contains(t, f.out.String(), "/cmds/sync.sh")
	assert.Contains(t, f.out.String(), "builtin")

	assert.ErrorContains(t, f.exec.Run(context.Background(), "list", []string{"tree"}), `unknown list format "tree"`)
}

func TestDeploySteps(t *testing.T) {
	tools := config.Tools{Git: "git", Composer: "composer", Drush: "vendor/bin/drush"}

	tests := []struct {
		kind     string
		expected [][]string
	}{
		{kind: DeployStandard, expected: [][]string{
			{"composer", "install", "--no-interaction"},
			{"vendor/bin/drush", "updatedb", "-y"},
			{"vendor/bin/drush", "config:import", "-y"},
			{"vendor/bin/drush", "cache:rebuild"},
		}},
		{kind: DeployUpdate, expected: [][]string{
			{"composer", "update", "--no-interaction"},
			{"vendor/bin/drush", "updatedb", "-y"},
			{"vendor/bin/drush", "config:import", "-y"},
			{"vendor/bin/drush", "cache:rebuild"},
		}},
		{kind: DeploySpeed, expected: [][]string{
			{"vendor/bin/drush", "config:import", "-y"},
			{"vendor/bin/drush", "cache:rebuild"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := DeploySteps(tools, tt.kind)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("steps mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, err := DeploySteps(tools, "fast")
	assert.ErrorContains(t, err, `unknown deploy type "fast"`)
}

func TestDeployDefaultsToStandardAndStopsOnFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.exec.Run(context.Background(), "deploy", nil))
	require.Len(t, f.inv.calls, 4)
	assert.Equal(t, "composer", f.inv.calls[0].Name)
	assert.Equal(t, "/srv/site", f.inv.calls[0].Opts.Dir)
	assert.False(t, f.inv.calls[0].Opts.Capture)

	f = newFixture(t)
	f.inv.failOn = "updatedb"
	err := f.exec.Run(context.Background(), "deploy", []string{"update"})
	var pf *process.Failure
	require.True(t, errors.As(err, &pf))
	assert.Len(t, f.inv.calls, 2, "config import never runs after a failed update")
}

func TestRevision(t *testing.T) {
	f := newFixture(t)
	f.inv.stdout = "4f2a9c1\n"

	require.NoError(t, f.exec.Run(context.Background(), "revision", nil))
	assert.Equal(t, "4f2a9c1\n", f.out.String())
	require.Len(t, f.inv.calls, 1)
	assert.Equal(t, invocation{Name: "git", Args: []string{"rev-parse", "HEAD"}, Opts: process.Options{Capture: true, Dir: "/srv/site"}}, f.inv.calls[0])

	require.NoError(t, f.exec.Run(context.Background(), "revision", []string{"/other"}))
	assert.Equal(t, "/other", f.inv.calls[1].Opts.Dir)
}

func TestPaths(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.exec.Run(context.Background(), "paths", nil))
	assert.Equal(t, "@root   /srv/site\n@theme  /srv/site/web/themes\n", f.out.String())
}

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, resource string) (string, error) {
	if body, ok := m[resource]; ok {
		return body, nil
	}
	return "", &fetch.FailedError{Resource: resource, Status: http.StatusNotFound}
}

type answerDriver struct {
	answers []string
	confirm bool
}

func (d *answerDriver) Input(context.Context, form.InputConfig) (string, error) {
	a := d.answers[0]
	d.answers = d.answers[1:]
	return a, nil
}

func (d *answerDriver) Confirm(context.Context, form.ConfirmConfig) (bool, error) {
	return d.confirm, nil
}

type memWriter map[string]string

func (m memWriter) WriteFile(_ context.Context, path, content string) error {
	m[path] = content
	return nil
}

func TestGenerateCommand(t *testing.T) {
	f := newFixture(t)
	written := memWriter{}
	driver := &answerDriver{}
	var forced bool
	f.deps.NewGenerator = func(force bool) *generate.Generator {
		forced = force
		engine := placeholder.NewEngine(f.deps.Paths)
		return &generate.Generator{
			Fetcher: mapFetcher{
				"forms/note.yaml":   "fields:\n  - [\"!title\", \"Title?\"]\nfiles:\n  \"{{title}}.md\": note.md\n",
				"templates/note.md": "# {{title}}\n",
			},
			Writer:    written,
			Collector: &form.Collector{Engine: engine, Driver: driver, Reporter: f.deps.Reporter},
			Engine:    engine,
			Driver:    driver,
			Reporter:  f.deps.Reporter,
			Root:      "/tmp/out",
			Force:     force,
		}
	}

	driver.answers, driver.confirm = []string{"todo"}, true
	require.NoError(t, f.exec.Run(context.Background(), "generate", []string{"note", "yes"}))
	assert.True(t, forced)
	assert.Equal(t, memWriter{"/tmp/out/todo.md": "# todo\n"}, written)

	delete(written, "/tmp/out/todo.md")
	driver.answers, driver.confirm = []string{"later"}, false
	require.NoError(t, f.exec.Run(context.Background(), "generate", []string{"note"}))
	assert.False(t, forced)
	assert.Empty(t, written)
	assert.Contains(t, f.msgs.String(), "nothing was written")

	err := f.exec.Run(context.Background(), "generate", []string{"missing"})
	var rf *generate.ResourceFetchError
	assert.True(t, errors.As(err, &rf))
}
