// Package instance implements the project-scoped execution scope described
// in spec §4.1: Provide binds a directory and a lazy state cache to a
// context for the lifetime of a call chain, the way qri's lib.scope binds a
// profile and event bus to the lifetime of one API call.
package instance

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/vcs"
)

// Project describes the VCS-rooted working tree an Instance is scoped to.
type Project struct {
	ID       string
	VCS      string // "git" or "" when outside any worktree
	Worktree string
	Time     struct {
		Created     time.Time
		Initialized time.Time
	}
}

type contextKey struct{}

var ctxKey = contextKey{}

// Register lets a state factory attach a teardown, run in reverse
// registration order when the Instance is disposed.
type Register func(teardown func(context.Context) error)

// Key identifies one lazily-computed slot in an Instance's state cache.
// Distinct *Key[T] values (even for the same T) produce distinct slots, so
// callers typically hold one package-level key per resource they memoize.
type Key[T any] struct{ _ int }

// NewKey allocates a fresh state-cache slot identity.
func NewKey[T any]() *Key[T] {
	return &Key[T]{}
}

// Instance is a running project scope: a directory, its project descriptor,
// and a lazily-populated cache of per-scope resources.
type Instance struct {
	directory string
	project   Project

	mu        sync.Mutex
	values    map[any]any
	teardowns []func(context.Context) error
	disposed  bool
}

func build(directory string) (*Instance, error) {
	info, err := vcs.Describe(directory)
	if err != nil {
		return nil, coreerr.IO("vcs.describe", err)
	}

	now := time.Now()
	proj := Project{Worktree: directory}
	if info.Present {
		proj.VCS = "git"
		proj.ID = info.RootCommit
		proj.Worktree = info.Worktree
	} else {
		proj.ID = "global"
	}
	proj.Time.Created = now
	proj.Time.Initialized = now

	return &Instance{
		directory: directory,
		project:   proj,
		values:    make(map[any]any),
	}, nil
}

// Provide runs fn inside a freshly built scope bound to directory. The scope
// (and every lazily-initialized resource registered inside it) is disposed
// when fn returns, unless fn disposes it earlier via Dispose — the pattern
// Config.update uses to force the next Provide for the same directory to
// rebuild its state from disk instead of reusing anything cached here.
// Nested Provide calls shadow rather than merge: a nested call gets its own
// Instance and its own state cache, and the outer Instance reappears in ctx
// once the nested call returns.
func Provide[R any](ctx context.Context, directory string, fn func(context.Context) (R, error)) (R, error) {
	var zero R

	inst, err := build(directory)
	if err != nil {
		return zero, err
	}

	child := context.WithValue(ctx, ctxKey, inst)
	defer inst.dispose(child)

	return fn(child)
}

// From returns the Instance bound to ctx. It panics if ctx was not produced
// by Provide — the same contract as using an uninitialized context.Context:
// a programmer error, never something user input can trigger.
func From(ctx context.Context) *Instance {
	inst, ok := ctx.Value(ctxKey).(*Instance)
	if !ok {
		panic("instance: From called outside instance.Provide")
	}
	return inst
}

// Directory returns the absolute project path this scope is bound to.
func (i *Instance) Directory() string { return i.directory }

// Project returns the scope's project descriptor.
func (i *Instance) Project() Project { return i.project }

// State returns the memoized value for key, invoking factory on first access
// within this scope. Concurrent accesses to the same Instance are
// serialized (spec §5's single-writer, cooperative-scheduling model), so
// factory is guaranteed to run at most once per scope per key even when
// called from goroutines racing to prime the same slot.
func State[T any](ctx context.Context, key *Key[T], factory func(context.Context, Register) (T, error)) (T, error) {
	inst := From(ctx)

	inst.mu.Lock()
	defer inst.mu.Unlock()

	var zero T
	if inst.disposed {
		return zero, coreerr.ScopeDisposed()
	}
	if v, ok := inst.values[key]; ok {
		return v.(T), nil
	}

	register := func(teardown func(context.Context) error) {
		inst.teardowns = append(inst.teardowns, teardown)
	}

	v, err := factory(ctx, register)
	if err != nil {
		// Slot stays empty: the next call retries the factory.
		return zero, err
	}

	inst.values[key] = v
	return v, nil
}

func (i *Instance) dispose(ctx context.Context) error {
	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return nil
	}
	i.disposed = true
	teardowns := i.teardowns
	i.teardowns = nil
	i.mu.Unlock()

	var firstErr error
	for idx := len(teardowns) - 1; idx >= 0; idx-- {
		if err := teardowns[idx](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dispose tears down the Instance bound to ctx immediately, running
// registered teardowns in reverse order. Further State calls against this
// Instance return ScopeDisposed.
func Dispose(ctx context.Context) error {
	return From(ctx).dispose(ctx)
}
