// Package generate renders the files described by a form definition.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/cespare/xxhash/v2"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/fetch"
	"github.com/kris-hansen/runa/utils/fileutil"
	"github.com/kris-hansen/runa/utils/form"
	"github.com/kris-hansen/runa/utils/placeholder"
	"github.com/kris-hansen/runa/utils/report"
	"github.com/kris-hansen/runa/utils/runner"
)

// Resource locations relative to the fetcher's base.
const (
	FormsDir     = "forms"
	TemplatesDir = "templates"
)

// ErrDeclined is returned when the user refuses the generation or an
// overwrite. Nothing has been written when it is returned.
var ErrDeclined = errors.New("generation declined")

// ResourceFetchError wraps a failure to fetch a form or template.
type ResourceFetchError struct {
	Resource string
	Err      error
}

func (e *ResourceFetchError) Error() string {
	return fmt.Sprintf("could not fetch %s: %v", e.Resource, e.Err)
}

func (e *ResourceFetchError) Unwrap() error { return e.Err }

// Status describes the target of a planned file.
type Status string

const (
	StatusNew       Status = "new"
	StatusExists    Status = "exists"
	StatusUnchanged Status = "unchanged"
)

// PlannedFile is a rendered file waiting to be written.
type PlannedFile struct {
	Path     string
	Template string
	Content  string
	Status   Status
}

// FileError records a file that could not be rendered.
type FileError struct {
	Path string // the unrendered output path template
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Result summarises one generation run.
type Result struct {
	Name    string
	Bag     *placeholder.Bag
	Planned []PlannedFile
	Written []string
	Skipped []string // templates whose body rendered absent
	Errors  []*FileError
}

// Generator drives a generation from form fetch to file write.
type Generator struct {
	Fetcher   fetch.Fetcher
	Writer    fileutil.Writer
	Collector *form.Collector
	Engine    *placeholder.Engine
	Driver    form.PromptDriver
	Reporter  *report.Reporter

	// Root resolves relative output paths; empty means the working directory.
	Root string
	// Force overwrites existing files without asking.
	Force bool
}

// Generate runs the named generator. Output paths render strictly and a
// failure only drops that file. Template bodies render leniently and an
// absent body skips the file. Every planned file is confirmed once, and
// unless Force is set each existing file is confirmed before anything is
// written; declining either returns ErrDeclined with no writes.
func (g *Generator) Generate(ctx context.Context, name string) (*Result, error) {
	def, err := g.loadForm(ctx, name)
	if err != nil {
		return nil, err
	}
	if def.Description != "" {
		g.Reporter.Notef("%s", def.Description)
	}

	bag, err := g.Collector.Collect(ctx, def)
	if err != nil {
		return nil, err
	}
	result := &Result{Name: name, Bag: bag}
	config.DebugLog("[Generate] %s values: %v", name, bag.Map())

	_, err = runner.Each(ctx, def.Files, func(ctx context.Context, spec form.FileSpec, _ int) (struct{}, error) {
		return struct{}{}, g.plan(ctx, spec, bag, result)
	})
	if err != nil {
		return result, err
	}

	if len(result.Planned) == 0 {
		g.Reporter.Warnf("nothing to generate for %s", name)
		return result, nil
	}

	if err := g.confirm(ctx, result.Planned); err != nil {
		return result, err
	}

	_, err = runner.Each(ctx, result.Planned, func(ctx context.Context, f PlannedFile, _ int) (struct{}, error) {
		if f.Status == StatusUnchanged {
			return struct{}{}, nil
		}
		if err := g.Writer.WriteFile(ctx, f.Path, f.Content); err != nil {
			return struct{}{}, err
		}
		result.Written = append(result.Written, f.Path)
		g.Reporter.Successf("wrote %s", f.Path)
		return struct{}{}, nil
	})
	return result, err
}

func (g *Generator) loadForm(ctx context.Context, name string) (*form.Definition, error) {
	resource := path.Join(FormsDir, name+".yaml")
	data, err := g.Fetcher.Fetch(ctx, resource)
	if err != nil {
		return nil, &ResourceFetchError{Resource: resource, Err: err}
	}
	def, err := form.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resource, err)
	}
	config.DebugLog("[Generate] %s: %d fields, %d files", name, len(def.Fields), len(def.Files))
	warnUndeclared(resource, def)
	return def, nil
}

// warnUndeclared flags output paths that reference a value no field
// provides. Such a path can only render if the reference is optional.
func warnUndeclared(resource string, def *form.Definition) {
	declared := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		declared[f.Name] = true
	}
	for _, file := range def.Files {
		for _, key := range placeholder.Placeholders(file.Path) {
			if !declared[key] {
				config.WarnLog("[Generate] %s: %q uses %q, which no field declares", resource, file.Path, key)
			}
		}
	}
}

// plan renders one file entry. Only fetch failures are returned; render
// problems are recorded on the result.
func (g *Generator) plan(ctx context.Context, spec form.FileSpec, bag *placeholder.Bag, result *Result) error {
	rendered, err := g.Engine.Render(spec.Path, bag)
	if err != nil {
		fe := &FileError{Path: spec.Path, Err: err}
		result.Errors = append(result.Errors, fe)
		g.Reporter.Error(fe)
		return nil
	}
	target, err := fileutil.JoinUnder(g.Root, rendered)
	if err != nil {
		fe := &FileError{Path: spec.Path, Err: err}
		result.Errors = append(result.Errors, fe)
		g.Reporter.Error(fe)
		return nil
	}

	resource := path.Join(TemplatesDir, spec.Template)
	body, err := g.Fetcher.Fetch(ctx, resource)
	if err != nil {
		return &ResourceFetchError{Resource: resource, Err: err}
	}

	content, ok := g.Engine.Resolve(body, bag)
	if !ok {
		config.VerboseLog("[Generate] %s skipped: template needs values that were not given", target)
		result.Skipped = append(result.Skipped, spec.Template)
		return nil
	}

	result.Planned = append(result.Planned, PlannedFile{
		Path:     target,
		Template: spec.Template,
		Content:  content,
		Status:   status(target, content),
	})
	return nil
}

func status(target, content string) Status {
	existing, err := os.ReadFile(target)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			config.DebugLog("[Generate] cannot read %s: %v", target, err)
			return StatusExists
		}
		return StatusNew
	}
	if xxhash.Sum64(existing) == xxhash.Sum64String(content) {
		return StatusUnchanged
	}
	return StatusExists
}

func (g *Generator) confirm(ctx context.Context, planned []PlannedFile) error {
	var exists []string
	for _, f := range planned {
		switch f.Status {
		case StatusExists:
			g.Reporter.Warnf("%s (exists)", f.Path)
			exists = append(exists, f.Path)
		case StatusUnchanged:
			g.Reporter.Notef("%s (unchanged)", f.Path)
		default:
			g.Reporter.Infof("%s", f.Path)
		}
	}

	ok, err := g.Driver.Confirm(ctx, form.ConfirmConfig{Message: fmt.Sprintf("Generate %d file(s)?", len(planned))})
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}

	if g.Force {
		return nil
	}
	for _, p := range exists {
		ok, err := g.Driver.Confirm(ctx, form.ConfirmConfig{Message: fmt.Sprintf("Overwrite %s?", p)})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("overwrite of %s: %w", p, ErrDeclined)
		}
	}
	return nil
}
