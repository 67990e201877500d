// Package process runs external programs either attached to the terminal or
// with their output captured.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kris-hansen/runa/utils/config"
)

// Options controls a single invocation.
type Options struct {
	// Capture buffers stdout and stderr instead of inheriting the terminal.
	Capture bool
	Dir     string
	Env     []string // extra KEY=VALUE entries appended to the current environment
}

// Result describes a finished invocation. A non-nil Err carries the failure
// as data; callers decide whether to stop or continue.
type Result struct {
	ExitCode int
	Stdout   string // only set when captured
	Stderr   string // only set when captured
	Err      error
}

// Failed reports whether the invocation did not succeed.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Output returns the captured stdout without surrounding whitespace.
func (r *Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Failure is the error stored in Result.Err.
type Failure struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (f *Failure) Error() string {
	cmdline := strings.TrimSpace(f.Command + " " + strings.Join(f.Args, " "))
	msg := fmt.Sprintf("%s: %v", cmdline, f.Err)
	if stderr := strings.TrimSpace(f.Stderr); stderr != "" {
		msg += " (" + stderr + ")"
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Invoker runs external commands.
type Invoker interface {
	Invoke(ctx context.Context, name string, args []string, opts Options) *Result
}

// ExecInvoker runs commands with os/exec.
type ExecInvoker struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecInvoker returns an invoker attached to the process's standard streams.
func NewExecInvoker() *ExecInvoker {
	return &ExecInvoker{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Invoke runs name with args. It never returns a nil Result.
func (e *ExecInvoker) Invoke(ctx context.Context, name string, args []string, opts Options) *Result {
	config.DebugLog("[Process] %s %s (capture=%v dir=%q)", name, strings.Join(args, " "), opts.Capture, opts.Dir)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	if opts.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdin = e.Stdin
		cmd.Stdout = e.Stdout
		cmd.Stderr = e.Stderr
	}

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	res.ExitCode = exitCode(err)
	res.Err = &Failure{
		Command:  name,
		Args:     append([]string(nil), args...),
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Err:      err,
	}
	return res
}

// exitCode returns the process exit code, or -1 when the process never ran.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
