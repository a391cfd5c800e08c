package gclog

import (
	"fmt"
	"slices"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Consumer receives the events of the categories it was registered for.
// Each event is delivered once.
type Consumer interface {
	Consume(ev event.Event) error
}

// ConsumerFunc adapts an ordinary function to Consumer.
type ConsumerFunc func(ev event.Event) error

// Consume implements Consumer.
func (f ConsumerFunc) Consume(ev event.Event) error {
	return f(ev)
}

// ConsumerFactory declares a consumer and the categories it accepts. New is
// called once, when the registry is built.
type ConsumerFactory struct {
	Name       string
	Categories []event.Category
	New        func() (Consumer, error)
}

// Registry routes events to consumers by category. It is built once and
// read-only afterwards.
type Registry struct {
	byCategory map[event.Category]Consumer
	names      []string
}

// NewRegistry builds the consumers of factories and indexes them by
// category. It fails when a factory is incomplete, names an unknown
// category, or claims a category or a name already claimed.
func NewRegistry(factories ...ConsumerFactory) (*Registry, error) {
	r := &Registry{byCategory: make(map[event.Category]Consumer)}
	owner := make(map[event.Category]string)

	for i, f := range factories {
		if f.Name == "" {
			return nil, fmt.Errorf("consumer factory %d: name is required", i)
		}
		if slices.Contains(r.names, f.Name) {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateConsumer, f.Name)
		}
		if f.New == nil {
			return nil, fmt.Errorf("consumer %q: constructor is required", f.Name)
		}
		if len(f.Categories) == 0 {
			return nil, fmt.Errorf("consumer %q: at least one category is required", f.Name)
		}
		for _, c := range f.Categories {
			if !slices.Contains(event.Categories, c) {
				return nil, fmt.Errorf("consumer %q: %w: %q", f.Name, ErrUnknownCategory, c)
			}
			if prev, ok := owner[c]; ok {
				return nil, fmt.Errorf("%w: category %q claimed by %q and %q", ErrDuplicateConsumer, c, prev, f.Name)
			}
			owner[c] = f.Name
		}

		consumer, err := f.New()
		if err != nil {
			return nil, fmt.Errorf("consumer %q: %w", f.Name, err)
		}
		if consumer == nil {
			return nil, fmt.Errorf("consumer %q: constructor returned nil", f.Name)
		}
		for _, c := range f.Categories {
			r.byCategory[c] = consumer
		}
		r.names = append(r.names, f.Name)
	}
	return r, nil
}

// Consumer returns the consumer registered for c.
func (r *Registry) Consumer(c event.Category) (Consumer, bool) {
	consumer, ok := r.byCategory[c]
	return consumer, ok
}

// Names returns the consumer names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Dispatch delivers ev to the consumer of its category. Events of a
// category without a consumer are dropped.
func (r *Registry) Dispatch(ev event.Event) error {
	consumer, ok := r.byCategory[ev.Category]
	if !ok {
		return nil
	}
	if err := consumer.Consume(ev); err != nil {
		return fmt.Errorf("consuming %s event: %w", ev.Type, err)
	}
	return nil
}
