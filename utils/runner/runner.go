// Package runner executes ordered steps one at a time and stops at the first
// failure.
package runner

import (
	"context"
	"fmt"

	"github.com/kris-hansen/runa/utils/config"
)

// Step is one unit of sequential work.
type Step[T any] func(ctx context.Context) (T, error)

// Run executes steps in order. Each step starts only after the previous one
// returned without error. The first error is returned and later steps are
// never started; nothing is rolled back. On success the last step's result
// is returned. An empty list returns the zero value.
//
// The context is checked before each step, so a cancelled context prevents
// the next step from starting. A step that is already running is never
// interrupted by the runner.
func Run[T any](ctx context.Context, steps ...Step[T]) (T, error) {
	var last T
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		config.DebugLog("[Runner] step %d/%d", i+1, len(steps))
		result, err := step(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		last = result
	}
	return last, nil
}

// Each runs fn over items in order with the same fail-fast rules as Run.
func Each[I, T any](ctx context.Context, items []I, fn func(ctx context.Context, item I, index int) (T, error)) (T, error) {
	steps := make([]Step[T], len(items))
	for i, item := range items {
		steps[i] = func(ctx context.Context) (T, error) {
			return fn(ctx, item, i)
		}
	}
	return Run(ctx, steps...)
}

// StepError records which step of a named sequence failed.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Name, e.Err)
	}
	return fmt.Sprintf("step %d: %v", e.Index+1, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Named wraps a step so its failure is reported as a *StepError.
func Named[T any](index int, name string, step Step[T]) Step[T] {
	return func(ctx context.Context) (T, error) {
		result, err := step(ctx)
		if err != nil {
			return result, &StepError{Index: index, Name: name, Err: err}
		}
		return result, nil
	}
}
