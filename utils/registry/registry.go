package registry

import (
	"fmt"
	"iter"
	"sync"

	"github.com/kris-hansen/runa/utils/config"
)

// NotFoundError is returned by Resolve for unknown names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found", e.Name)
}

// Registry maps command names to commands. Sources are read once, on first
// use, in the order they were given; a later source replaces an earlier
// command of the same name, which keeps its original list position.
type Registry struct {
	sources []Source

	once   sync.Once
	order  []string
	byName map[string]Command
}

// New creates a registry over sources. Nothing is loaded until the first
// Resolve, All or Len call.
func New(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

func (r *Registry) load() {
	r.once.Do(func() {
		r.byName = make(map[string]Command)
		for _, src := range r.sources {
			cmds, err := src.Commands()
			if err != nil {
				config.WarnLog("command source %s: %v", src.Name(), err)
				continue
			}
			for _, cmd := range cmds {
				r.add(src.Name(), cmd)
			}
		}
		debugf("loaded %d commands from %d sources", len(r.order), len(r.sources))
	})
}

func (r *Registry) add(source string, cmd Command) {
	name := cmd.Meta().Name
	if _, exists := r.byName[name]; exists {
		debugf("%s overrides command %q", source, name)
	} else {
		r.order = append(r.order, name)
	}
	r.byName[name] = cmd
}

// Resolve looks a command up by name.
func (r *Registry) Resolve(name string) (Command, error) {
	r.load()
	cmd, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return cmd, nil
}

// All yields every command in registration order. The sequence can be
// ranged over any number of times.
func (r *Registry) All() iter.Seq2[string, Command] {
	return func(yield func(string, Command) bool) {
		r.load()
		for _, name := range r.order {
			if !yield(name, r.byName[name]) {
				return
			}
		}
	}
}

// Len reports the number of distinct command names.
func (r *Registry) Len() int {
	r.load()
	return len(r.order)
}

func debugf(format string, args ...interface{}) {
	config.DebugLog("[Registry] "+format, args...)
}
