package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// CommandEntry pairs a command descriptor with its factory.
type CommandEntry struct {
	Options CommandOptions
	Factory CommandFactory
}

// ComponentEntry pairs a component descriptor with its factory.
type ComponentEntry struct {
	Options ComponentOptions
	Factory ComponentFactory
}

type commandKey struct {
	kind CommandType
	name string
}

// Registry maps lookup keys to handler factories. It is filled at startup and
// read concurrently by the dispatcher afterwards.
type Registry struct {
	mu         sync.RWMutex
	commands   map[commandKey]CommandEntry
	components map[string]ComponentEntry
	events     map[EventKey][]EventFactory
	log        zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		commands:   make(map[commandKey]CommandEntry),
		components: make(map[string]ComponentEntry),
		events:     make(map[EventKey][]EventFactory),
		log:        log.With().Str("component", "registry").Logger(),
	}
}

// RegisterCommand adds a command to every table its type covers. An existing
// command with the same kind and name is replaced.
func (r *Registry) RegisterCommand(opts CommandOptions, factory CommandFactory) {
	kinds := opts.Type.Kinds()
	if kinds == nil {
		r.log.Warn().Str("command", opts.Name).Str("type", string(opts.Type)).Msg("unknown command type, not registered")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range kinds {
		key := commandKey{kind: kind, name: opts.Name}
		if _, ok := r.commands[key]; ok {
			r.log.Debug().Str("kind", string(kind)).Str("command", opts.Name).Msg("replacing command")
		}
		r.commands[key] = CommandEntry{Options: opts, Factory: factory}
	}
}

// RegisterComponent adds a component handler, replacing any with the same id.
func (r *Registry) RegisterComponent(opts ComponentOptions, factory ComponentFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[opts.ID]; ok {
		r.log.Debug().Str("component_id", opts.ID).Msg("replacing component")
	}
	r.components[opts.ID] = ComponentEntry{Options: opts, Factory: factory}
}

// RegisterEvent binds a factory to a gateway event. Several handlers may
// listen to the same event.
func (r *Registry) RegisterEvent(key EventKey, factory EventFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[key] = append(r.events[key], factory)
}

// Command returns the command registered under kind and name.
func (r *Registry) Command(kind CommandType, name string) (CommandEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.commands[commandKey{kind: kind, name: name}]
	return e, ok
}

// Component returns the component registered under id.
func (r *Registry) Component(id string) (ComponentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.components[id]
	return e, ok
}

// Events returns the factories bound to key.
func (r *Registry) Events(key EventKey) []EventFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventFactory(nil), r.events[key]...)
}

// EventKeys returns every event with at least one binding, sorted.
func (r *Registry) EventKeys() []EventKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]EventKey, 0, len(r.events))
	for k := range r.events {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Commands returns all commands of kind, sorted by name.
func (r *Registry) Commands(kind CommandType) []CommandEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]CommandEntry, 0, len(r.commands))
	for k, e := range r.commands {
		if k.kind == kind {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Options.Name < list[j].Options.Name
	})
	return list
}

// Len returns the number of command, component and event entries.
func (r *Registry) Len() (commands, components, events int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fs := range r.events {
		events += len(fs)
	}
	return len(r.commands), len(r.components), events
}
