// Package executor binds arguments to a resolved command and runs it.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/params"
	"github.com/kris-hansen/runa/utils/process"
	"github.com/kris-hansen/runa/utils/registry"
)

// ErrHandlerPanic is wrapped by the error returned when a native handler
// panics.
var ErrHandlerPanic = errors.New("command failed unexpectedly")

// UnknownCommandError is returned when no command has the requested name.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// Executor runs commands from a registry.
type Executor struct {
	Registry *registry.Registry
	Invoker  process.Invoker
	Env      []string // extra environment for external commands
}

// New creates an executor.
func New(reg *registry.Registry, invoker process.Invoker) *Executor {
	return &Executor{Registry: reg, Invoker: invoker}
}

// Run resolves name and executes it with args. Native commands get their
// parameters bound first; a binding error means the handler never runs.
// External commands receive args unchanged and run attached to the terminal.
func (e *Executor) Run(ctx context.Context, name string, args []string) error {
	cmd, err := e.Registry.Resolve(name)
	if err != nil {
		var nf *registry.NotFoundError
		if errors.As(err, &nf) {
			return &UnknownCommandError{Name: name}
		}
		return err
	}

	switch c := cmd.(type) {
	case *registry.Native:
		return e.runNative(ctx, c, args)
	case *registry.External:
		return e.runExternal(ctx, c, args)
	default:
		return fmt.Errorf("command %q has unsupported type %T", name, cmd)
	}
}

func (e *Executor) runNative(ctx context.Context, c *registry.Native, args []string) error {
	bound, err := params.Bind(c.Params, args)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	config.DebugLog("[Executor] running %s with %v (overflow %v)", c.Name, bound.Names(), bound.Overflow)
	return callHandler(ctx, c, bound)
}

func callHandler(ctx context.Context, c *registry.Native, bound *params.Bound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] [Executor] %s panicked: %v\n%s", c.Name, r, debug.Stack())
			err = fmt.Errorf("%s: %w", c.Name, ErrHandlerPanic)
		}
	}()
	if c.Handler == nil {
		return fmt.Errorf("%s: no handler", c.Name)
	}
	return c.Handler(ctx, bound)
}

func (e *Executor) runExternal(ctx context.Context, c *registry.External, args []string) error {
	name, argv := c.Path, args
	if c.Interpreter != "" {
		name = c.Interpreter
		argv = append([]string{c.Path}, args...)
	}
	config.DebugLog("[Executor] running script %s via %q", c.Path, c.Interpreter)

	res := e.Invoker.Invoke(ctx, name, argv, process.Options{Env: e.Env})
	if res.Failed() {
		return res.Err
	}
	return nil
}
