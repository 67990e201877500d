// Package builtin provides the native commands compiled into runa.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/generate"
	"github.com/kris-hansen/runa/utils/params"
	"github.com/kris-hansen/runa/utils/process"
	"github.com/kris-hansen/runa/utils/registry"
	"github.com/kris-hansen/runa/utils/report"
	"github.com/kris-hansen/runa/utils/runner"
)

// Deps holds what the built-in commands need at run time. Registry may be
// set after the commands are created, since list reads the registry that
// contains it.
type Deps struct {
	Registry     *registry.Registry
	Invoker      process.Invoker
	Reporter     *report.Reporter
	Out          io.Writer
	Tools        config.Tools
	Root         string
	Paths        map[string]string
	NewGenerator func(force bool) *generate.Generator
}

// Commands returns the built-in commands in listing order.
func Commands(d *Deps) []registry.Command {
	return []registry.Command{
		&registry.Native{
			Info: registry.Info{Name: "list", Description: "List available commands"},
			Params: []params.Spec{
				params.New("format").WithOptions(FormatSimple, FormatUsage, FormatFull).WithFallback(FormatUsage),
			},
			Handler: d.list,
		},
		&registry.Native{
			Info: registry.Info{Name: "generate", Description: "Generate files from a form and its templates"},
			Params: []params.Spec{
				params.New("!name").WithDescription("form name"),
				params.New("force").WithOptions("yes", "no").WithFallback("no").WithDescription("overwrite existing files without asking"),
			},
			Handler: d.generate,
		},
		&registry.Native{
			Info: registry.Info{Name: "deploy", Description: "Install dependencies, update the database, import config and rebuild caches"},
			Params: []params.Spec{
				params.New("type").WithOptions(DeployStandard, DeployUpdate, DeploySpeed).WithFallback(DeployStandard),
			},
			Handler: d.deploy,
		},
		&registry.Native{
			Info:    registry.Info{Name: "revision", Description: "Print the current git revision"},
			Params:  []params.Spec{params.New("dir").WithDescription("repository directory")},
			Handler: d.revision,
		},
		&registry.Native{
			Info:    registry.Info{Name: "paths", Description: "Show the path macros available to templates"},
			Handler: d.paths,
		},
	}
}

// Listing formats.
const (
	FormatSimple = "simple"
	FormatUsage  = "usage"
	FormatFull   = "full"
)

func (d *Deps) list(_ context.Context, args *params.Bound) error {
	if d.Registry == nil {
		return errors.New("no command registry")
	}
	return List(d.Out, d.Registry, args.Value("format"))
}

// List writes the commands of reg in the given format.
func List(w io.Writer, reg *registry.Registry, format string) error {
	switch format {
	case FormatSimple, FormatUsage, FormatFull:
	default:
		return fmt.Errorf("unknown list format %q (expected %s, %s or %s)", format, FormatSimple, FormatUsage, FormatFull)
	}

	type row struct{ name, synopsis, desc, source string }
	var rows []row
	width := 0
	for name, cmd := range reg.All() {
		r := row{name: name, synopsis: registry.Synopsis(cmd), desc: cmd.Meta().Description, source: registry.Origin(cmd)}
		if l := len(strings.TrimSpace(r.name + " " + r.synopsis)); l > width {
			width = l
		}
		rows = append(rows, r)
	}

	for _, r := range rows {
		usage := strings.TrimSpace(r.name + " " + r.synopsis)
		switch format {
		case FormatSimple:
			fmt.Fprintln(w, r.name)
		case FormatUsage:
			fmt.Fprintln(w, strings.TrimRight(fmt.Sprintf("%-*s  %s", width, usage, r.desc), " "))
		case FormatFull:
			fmt.Fprintln(w, strings.TrimRight(fmt.Sprintf("%-*s  %s", width, usage, r.desc), " "))
			fmt.Fprintf(w, "%*s  %s\n", width, "", r.source)
		}
	}
	return nil
}

func (d *Deps) generate(ctx context.Context, args *params.Bound) error {
	g := d.NewGenerator(args.Value("force") == "yes")
	res, err := g.Generate(ctx, args.Value("name"))
	if errors.Is(err, generate.ErrDeclined) {
		d.Reporter.Notef("%v, nothing was written", err)
		return nil
	}
	if err != nil {
		return err
	}

	d.Reporter.Successf("%s: %d written, %d skipped", res.Name, len(res.Written), len(res.Skipped))
	if n := len(res.Errors); n > 0 {
		return report.MarkReported(fmt.Errorf("%d file(s) of %s could not be rendered", n, res.Name))
	}
	return nil
}

// Deploy types.
const (
	DeployStandard = "standard"
	DeployUpdate   = "update"
	DeploySpeed    = "speed"
)

// DeploySteps returns the tool invocations for a deploy type.
func DeploySteps(tools config.Tools, kind string) ([][]string, error) {
	drush := [][]string{
		{tools.Drush, "updatedb", "-y"},
		{tools.Drush, "config:import", "-y"},
		{tools.Drush, "cache:rebuild"},
	}
	switch kind {
	case DeployStandard:
		return append([][]string{{tools.Composer, "install", "--no-interaction"}}, drush...), nil
	case DeployUpdate:
		return append([][]string{{tools.Composer, "update", "--no-interaction"}}, drush...), nil
	case DeploySpeed:
		return drush[1:], nil
	default:
		return nil, fmt.Errorf("unknown deploy type %q (expected %s, %s or %s)", kind, DeployStandard, DeployUpdate, DeploySpeed)
	}
}

func (d *Deps) deploy(ctx context.Context, args *params.Bound) error {
	kind := args.Value("type")
	commands, err := DeploySteps(d.Tools, kind)
	if err != nil {
		return err
	}

	steps := make([]runner.Step[struct{}], len(commands))
	for i, argv := range commands {
		line := strings.Join(argv, " ")
		steps[i] = runner.Named(i, line, func(ctx context.Context) (struct{}, error) {
			d.Reporter.Infof("%s", line)
			res := d.Invoker.Invoke(ctx, argv[0], argv[1:], process.Options{Dir: d.Root})
			return struct{}{}, res.Err
		})
	}
	if _, err := runner.Run(ctx, steps...); err != nil {
		return err
	}
	d.Reporter.Successf("%s deploy finished", kind)
	return nil
}

func (d *Deps) revision(ctx context.Context, args *params.Bound) error {
	dir := args.Value("dir")
	if dir == "" {
		dir = d.Root
	}
	res := d.Invoker.Invoke(ctx, d.Tools.Git, []string{"rev-parse", "HEAD"}, process.Options{Capture: true, Dir: dir})
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintln(d.Out, res.Output())
	return nil
}

func (d *Deps) paths(_ context.Context, _ *params.Bound) error {
	names := make([]string, 0, len(d.Paths))
	width := 0
	for name := range d.Paths {
		names = append(names, name)
		if len(name)+1 > width {
			width = len(name) + 1
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(d.Out, "%-*s  %s\n", width, "@"+name, d.Paths[name])
	}
	return nil
}
