// Package registry discovers runnable commands and resolves them by name.
package registry

import (
	"context"

	"github.com/kris-hansen/runa/utils/params"
)

// Handler is the body of a native command.
type Handler func(ctx context.Context, args *params.Bound) error

// Info is shared by every command kind.
type Info struct {
	Name        string
	Description string
	Origin      string // file the command was loaded from; empty for built-ins
}

// Meta returns the command's descriptive fields.
func (i Info) Meta() Info { return i }

func (Info) command() {}

// Command is either a *Native or an *External.
type Command interface {
	Meta() Info
	command()
}

// Native runs in-process after its parameters are bound.
type Native struct {
	Info
	Params  []params.Spec
	Handler Handler
}

// External is a script run through an interpreter with the raw arguments.
type External struct {
	Info
	Path        string
	Interpreter string // empty runs Path directly
}

// Synopsis renders the argument line shown in listings.
func Synopsis(c Command) string {
	switch c := c.(type) {
	case *Native:
		return params.Synopsis(c.Params)
	case *External:
		return "[args...]"
	default:
		return ""
	}
}

// Origin returns where a command came from, for listings.
func Origin(c Command) string {
	if origin := c.Meta().Origin; origin != "" {
		return origin
	}
	return "builtin"
}
