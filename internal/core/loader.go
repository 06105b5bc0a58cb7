package core

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrNoDescriptor = errors.New("no descriptor attached")
	ErrNoFactory    = errors.New("no factory")
	ErrNoExecute    = errors.New("handler has no matching Execute method")
	ErrFactoryPanic = errors.New("factory panicked")
	ErrDescriptor   = errors.New("unsupported descriptor type")
)

// Unit is one discoverable handler: a descriptor plus a factory producing a
// fresh handler value. Descriptor is a CommandOptions, a ComponentOptions
// (either by value or pointer) or an EventKey.
type Unit struct {
	Source     string
	Descriptor any
	Factory    func() any
}

// LoadWarning records why a unit was skipped.
type LoadWarning struct {
	Source string
	Err    error
}

func (w LoadWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

func (w LoadWarning) Unwrap() error { return w.Err }

// Loader fills a Registry from units.
type Loader struct {
	registry *Registry
	log      zerolog.Logger
}

// NewLoader returns a loader writing into reg.
func NewLoader(reg *Registry, log zerolog.Logger) *Loader {
	return &Loader{registry: reg, log: log.With().Str("component", "loader").Logger()}
}

// Load registers every valid unit and skips the rest, returning one warning
// per skipped unit. It never stops early.
func (l *Loader) Load(units []Unit) []LoadWarning {
	var warnings []LoadWarning
	for _, u := range units {
		if err := l.load(u); err != nil {
			w := LoadWarning{Source: u.Source, Err: err}
			l.log.Warn().Str("unit", u.Source).Err(err).Msg("skipping handler unit")
			warnings = append(warnings, w)
		}
	}

	commands, components, events := l.registry.Len()
	l.log.Info().
		Int("commands", commands).
		Int("components", components).
		Int("events", events).
		Int("skipped", len(warnings)).
		Msg("handlers loaded")
	return warnings
}

func (l *Loader) load(u Unit) error {
	if u.Descriptor == nil {
		return ErrNoDescriptor
	}
	if u.Factory == nil {
		return ErrNoFactory
	}

	desc := u.Descriptor
	switch d := desc.(type) {
	case CommandOptions:
		desc = &d
	case ComponentOptions:
		desc = &d
	}

	switch d := desc.(type) {
	case *CommandOptions:
		if d == nil {
			return ErrNoDescriptor
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("command descriptor: %w", err)
		}
		if h, err := instantiate(u.Factory); err != nil {
			return fmt.Errorf("command %q: %w", d.Name, err)
		} else if _, ok := h.(CommandHandler); !ok {
			return fmt.Errorf("command %q: %w", d.Name, ErrNoExecute)
		}
		factory := u.Factory
		l.registry.RegisterCommand(*d, func() CommandHandler {
			h, _ := factory().(CommandHandler)
			return h
		})
		l.log.Debug().Str("command", d.Name).Str("type", string(d.Type)).Msg("command registered")

	case *ComponentOptions:
		if d == nil {
			return ErrNoDescriptor
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("component descriptor: %w", err)
		}
		if h, err := instantiate(u.Factory); err != nil {
			return fmt.Errorf("component %q: %w", d.ID, err)
		} else if _, ok := h.(ComponentHandler); !ok {
			return fmt.Errorf("component %q: %w", d.ID, ErrNoExecute)
		}
		factory := u.Factory
		l.registry.RegisterComponent(*d, func() ComponentHandler {
			h, _ := factory().(ComponentHandler)
			return h
		})
		l.log.Debug().Str("component_id", d.ID).Msg("component registered")

	case EventKey:
		if d == "" {
			return ErrNoDescriptor
		}
		if h, err := instantiate(u.Factory); err != nil {
			return fmt.Errorf("event %q: %w", d, err)
		} else if _, ok := h.(EventHandler); !ok {
			return fmt.Errorf("event %q: %w", d, ErrNoExecute)
		}
		factory := u.Factory
		l.registry.RegisterEvent(d, func() EventHandler {
			h, _ := factory().(EventHandler)
			return h
		})
		l.log.Debug().Str("event", string(d)).Msg("event registered")

	default:
		return fmt.Errorf("%w %T", ErrDescriptor, u.Descriptor)
	}
	return nil
}

// instantiate builds one handler to check its type. A panicking factory is
// reported instead of taking the loader down.
func instantiate(factory func() any) (h any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFactoryPanic, r)
		}
	}()
	return factory(), nil
}
