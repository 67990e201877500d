// Package task loads native commands declared as YAML step lists.
package task

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/params"
	"github.com/kris-hansen/runa/utils/placeholder"
	"github.com/kris-hansen/runa/utils/process"
	"github.com/kris-hansen/runa/utils/registry"
	"github.com/kris-hansen/runa/utils/runner"
)

// ArgsKey holds the overflow arguments during rendering. In a run line it
// expands to one word per argument.
const ArgsKey = "args"

var captureName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// File is a parsed task file.
type File struct {
	Description string               `yaml:"description"`
	Params      []params.Declaration `yaml:"params"`
	Steps       []Step               `yaml:"steps"`
}

// Step is one command line of a task. Run and Dir are templates rendered
// against the task's arguments and earlier captures. In Run every inserted
// value becomes exactly one shell word, so placeholders must not be wrapped
// in quotes; concatenate instead, as in 'Release '{{tag}}.
type Step struct {
	Run     string `yaml:"run"`
	Capture string `yaml:"capture,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// Parse decodes and validates a task file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing task file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every step has a command and that capture names can
// be referenced from later steps.
func (f *File) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("task has no steps")
	}
	for i, s := range f.Steps {
		if strings.TrimSpace(s.Run) == "" {
			return fmt.Errorf("step %d: run is empty", i+1)
		}
		if s.Capture != "" && !captureName.MatchString(s.Capture) {
			return fmt.Errorf("step %d: invalid capture name %q", i+1, s.Capture)
		}
	}
	return nil
}

// Command builds the native command that runs the task.
func (f *File) Command(name, origin string, engine *placeholder.Engine, invoker process.Invoker) *registry.Native {
	t := &taskRun{file: f, engine: engine, invoker: invoker}
	return &registry.Native{
		Info:    registry.Info{Name: name, Description: f.Description, Origin: origin},
		Params:  params.Specs(f.Params),
		Handler: t.run,
	}
}

// Loader returns a registry loader for task files.
func Loader(engine *placeholder.Engine, invoker process.Invoker) registry.Loader {
	return func(name, path string) (registry.Command, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		f, err := Parse(data)
		if err != nil {
			return nil, err
		}
		return f.Command(name, path, engine, invoker), nil
	}
}

type taskRun struct {
	file    *File
	engine  *placeholder.Engine
	invoker process.Invoker
}

func (t *taskRun) run(ctx context.Context, args *params.Bound) error {
	bag := placeholder.NewBag()
	for _, name := range args.Names() {
		bag.Set(name, args.Value(name))
	}
	bag.Set(ArgsKey, shellquote.Join(args.Overflow...))
	config.DebugLog("[Task] %d bound argument(s), %d extra", args.Len(), len(args.Overflow))

	steps := make([]runner.Step[string], len(t.file.Steps))
	for i, s := range t.file.Steps {
		steps[i] = runner.Named(i, s.Run, func(ctx context.Context) (string, error) {
			return t.runStep(ctx, s, bag)
		})
	}
	_, err := runner.Run(ctx, steps...)
	return err
}

func (t *taskRun) runStep(ctx context.Context, s Step, bag *placeholder.Bag) (string, error) {
	line, err := t.engine.RenderQuoted(s.Run, bag, quoteWord)
	if err != nil {
		return "", err
	}
	argv, err := shellquote.Split(line)
	if err != nil {
		return "", fmt.Errorf("cannot split %q: %w", line, err)
	}
	if len(argv) == 0 {
		return "", fmt.Errorf("%q renders to an empty command", s.Run)
	}

	var dir string
	if s.Dir != "" {
		if dir, err = t.engine.Render(s.Dir, bag); err != nil {
			return "", err
		}
	}

	config.VerboseLog("[Task] %s", line)
	res := t.invoker.Invoke(ctx, argv[0], argv[1:], process.Options{Capture: s.Capture != "", Dir: dir})
	if res.Failed() {
		return "", res.Err
	}
	if s.Capture != "" {
		bag.Set(s.Capture, res.Output())
		config.DebugLog("[Task] captured %s=%q", s.Capture, res.Output())
	}
	return res.Output(), nil
}

// quoteWord keeps a value in one word of the run line. The args value is
// already joined word by word.
func quoteWord(key, value string) string {
	if key == ArgsKey {
		return value
	}
	return shellquote.Join(value)
}
