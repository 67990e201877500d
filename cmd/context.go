package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kris-hansen/runa/utils/builtin"
	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/executor"
	"github.com/kris-hansen/runa/utils/fetch"
	"github.com/kris-hansen/runa/utils/fileutil"
	"github.com/kris-hansen/runa/utils/form"
	"github.com/kris-hansen/runa/utils/generate"
	"github.com/kris-hansen/runa/utils/placeholder"
	"github.com/kris-hansen/runa/utils/process"
	"github.com/kris-hansen/runa/utils/registry"
	"github.com/kris-hansen/runa/utils/report"
	"github.com/kris-hansen/runa/utils/task"
)

// appContext is built once per process and passed to everything that runs a
// command.
type appContext struct {
	Config     *config.Config
	ConfigPath string
	Root       string
	Cwd        string
	Paths      map[string]string

	Engine   *placeholder.Engine
	Registry *registry.Registry
	Invoker  process.Invoker
	Reporter *report.Reporter
	Driver   form.PromptDriver
	Executor *executor.Executor
	Out      io.Writer
}

// streams are the process's terminal connections; tests replace them.
type streams struct {
	In  *os.File
	Out io.Writer
	Err io.Writer
}

func newAppContext(configPath string, s streams) (*appContext, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}
	root := config.FindProjectRoot(cwd)
	config.DebugLog("Project root: %s", root)

	paths, err := cfg.PathTable(root, cwd, configPath)
	if err != nil {
		return nil, err
	}
	dirs, err := cfg.ResolvedCommandDirs(root)
	if err != nil {
		return nil, err
	}

	invoker := &process.ExecInvoker{Stdin: s.In, Stdout: s.Out, Stderr: s.Err}
	app := &appContext{
		Config:     cfg,
		ConfigPath: configPath,
		Root:       root,
		Cwd:        cwd,
		Paths:      paths,
		Engine:     placeholder.NewEngine(paths),
		Invoker:    invoker,
		Reporter:   report.New(s.Err),
		Driver:     form.NewDriver(s.In, s.Err),
		Out:        s.Out,
	}

	deps := &builtin.Deps{
		Invoker:      invoker,
		Reporter:     app.Reporter,
		Out:          s.Out,
		Tools:        cfg.Tools,
		Root:         root,
		Paths:        app.Engine.Paths(),
		NewGenerator: app.newGenerator,
	}

	sources := []registry.Source{registry.Builtins(builtin.Commands(deps)...)}
	loaders := registry.DefaultScriptLoaders()
	taskLoader := task.Loader(app.Engine, invoker)
	loaders[".yaml"] = taskLoader
	loaders[".yml"] = taskLoader
	for _, dir := range dirs {
		sources = append(sources, registry.Dir(dir, loaders))
	}

	app.Registry = registry.New(sources...)
	deps.Registry = app.Registry

	app.Executor = executor.New(app.Registry, invoker)
	app.Executor.Env = pathEnv(paths)
	return app, nil
}

func (a *appContext) newGenerator(force bool) *generate.Generator {
	source, err := a.Config.TemplateSource(a.Root)
	if err != nil {
		config.WarnLog("invalid template source: %v", err)
	}
	fetcher := fetch.New(source)
	if hf, ok := fetcher.(*fetch.HTTPFetcher); ok {
		hf.Retry.MaxRetries = a.Config.Templates.Retries
	}
	config.VerboseLog("Templates from %s", source)

	return &generate.Generator{
		Fetcher:   fetcher,
		Writer:    fileutil.OSWriter{},
		Collector: &form.Collector{Engine: a.Engine, Driver: a.Driver, Reporter: a.Reporter},
		Engine:    a.Engine,
		Driver:    a.Driver,
		Reporter:  a.Reporter,
		Root:      a.Cwd,
		Force:     force,
	}
}

// pathEnv exposes the path macros to external scripts as RUNA_PATH_<NAME>.
func pathEnv(paths map[string]string) []string {
	env := make([]string, 0, len(paths))
	for name, p := range paths {
		env = append(env, "RUNA_PATH_"+strings.ToUpper(name)+"="+p)
	}
	sort.Strings(env)
	return env
}
