// Package bus implements the typed, schema-validated publish/subscribe core
// described in spec §4.3. Each topic is declared once as an Event[T]; Go's
// type system replaces a runtime schema registry, and struct tags processed
// by go-playground/validator stand in for the JSON-Schema validation a
// dynamically typed version of this bus would need at runtime.
package bus

import (
	"context"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hazyhaar/goclode/internal/clog"
	"github.com/hazyhaar/goclode/internal/coreerr"
)

// Event is an opaque handle to a declared topic. Two Event[T] values
// compare equal only if they share both a name and a payload type, so
// accidentally publishing a session.Message on a bus.Event[int] is a
// compile error rather than a runtime one.
type Event[T any] struct {
	name string
}

// Declare registers the name of a topic carrying payloads of type T. Two
// Declare calls with the same name but different T are different topics as
// far as the type system is concerned; callers are expected to declare each
// topic exactly once, typically as a package-level var.
func Declare[T any](name string) Event[T] {
	return Event[T]{name: name}
}

// Name returns the topic's wire name, as used for logging and metrics.
func (e Event[T]) Name() string { return e.name }

type subscription struct {
	id int
	fn func(context.Context, any)
}

// Bus is a single pub/sub hub. The zero value is not usable; construct one
// with New.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	subs     map[string][]subscription
	validate *validator.Validate
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		subs:     make(map[string][]subscription),
		validate: validator.New(),
	}
}

var global = New()

// Global returns the process-wide Bus, used for events that are not scoped
// to any one project instance (e.g. provider rate-limit notices).
func Global() *Bus { return global }

// Subscribe registers fn to run for every payload published to ev on b,
// until the returned unsubscribe func is called.
func Subscribe[T any](b *Bus, ev Event[T], fn func(context.Context, T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	b.subs[ev.name] = append(b.subs[ev.name], subscription{
		id: id,
		fn: func(ctx context.Context, payload any) {
			fn(ctx, payload.(T))
		},
	})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[ev.name]
		for i, s := range subs {
			if s.id == id {
				b.subs[ev.name] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish validates payload against its struct tags and, if valid, delivers
// it synchronously to every current subscriber of ev, in subscription
// order. A validation failure returns a coreerr.KindInvalid error and
// reaches no subscriber.
func Publish[T any](ctx context.Context, b *Bus, ev Event[T], payload T) error {
	if err := validateEvent(b.validate, payload); err != nil {
		return err
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs[ev.name]))
	copy(subs, b.subs[ev.name])
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(ctx, ev.name, s, payload)
	}
	return nil
}

// deliver invokes one subscriber, isolating the rest of the delivery loop
// from a panicking handler: it is caught, logged, and swallowed rather than
// propagated to the publisher or later subscribers.
func deliver(ctx context.Context, name string, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			clog.Ctx(ctx).Error("subscriber panicked", "event", name, "subscriber", s.id, "panic", r)
		}
	}()
	s.fn(ctx, payload)
}

func validateEvent(v *validator.Validate, payload any) error {
	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := v.Struct(payload)
	if err == nil {
		return nil
	}

	var violations []string
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			violations = append(violations, fe.Namespace()+": failed "+fe.Tag())
		}
	} else {
		violations = append(violations, err.Error())
	}
	return coreerr.Invalid("event payload failed schema validation", violations...)
}
