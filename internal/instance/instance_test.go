package instance

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

func TestProvideBuildsGlobalProjectOutsideGit(t *testing.T) {
	dir := t.TempDir()

	proj, err := Provide(context.Background(), dir, func(ctx context.Context) (Project, error) {
		return From(ctx).Project(), nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}
	if proj.ID != "global" {
		t.Fatalf("expected global project id outside a git worktree, got %q", proj.ID)
	}
	if proj.Worktree != dir {
		t.Fatalf("expected worktree %q, got %q", dir, proj.Worktree)
	}
}

func TestStateMemoizesFactoryPerScope(t *testing.T) {
	dir := t.TempDir()
	key := NewKey[int]()

	calls := 0
	factory := func(ctx context.Context, register Register) (int, error) {
		calls++
		return 42, nil
	}

	_, err := Provide(context.Background(), dir, func(ctx context.Context) (struct{}, error) {
		for i := 0; i < 5; i++ {
			v, err := State(ctx, key, factory)
			if err != nil {
				return struct{}{}, err
			}
			if v != 42 {
				t.Fatalf("expected memoized value 42, got %d", v)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected factory to run exactly once, ran %d times", calls)
	}
}

func TestDisposeRunsTeardownsInReverseOrder(t *testing.T) {
	dir := t.TempDir()
	keyA := NewKey[int]()
	keyB := NewKey[int]()

	var order []string

	_, err := Provide(context.Background(), dir, func(ctx context.Context) (struct{}, error) {
		if _, err := State(ctx, keyA, func(ctx context.Context, register Register) (int, error) {
			register(func(ctx context.Context) error {
				order = append(order, "a")
				return nil
			})
			return 1, nil
		}); err != nil {
			return struct{}{}, err
		}
		if _, err := State(ctx, keyB, func(ctx context.Context, register Register) (int, error) {
			register(func(ctx context.Context) error {
				order = append(order, "b")
				return nil
			})
			return 2, nil
		}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}

	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Fatalf("expected teardowns in reverse registration order, got %v", order)
	}
}

func TestStateAfterDisposeReturnsScopeDisposed(t *testing.T) {
	dir := t.TempDir()
	key := NewKey[int]()

	_, err := Provide(context.Background(), dir, func(ctx context.Context) (struct{}, error) {
		if err := Dispose(ctx); err != nil {
			return struct{}{}, err
		}
		_, err := State(ctx, key, func(ctx context.Context, register Register) (int, error) {
			return 1, nil
		})
		if !coreerr.Is(err, coreerr.KindScopeDisposed) {
			t.Fatalf("expected ScopeDisposed, got %v", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}
}

func TestFromOutsideProvidePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected From to panic outside of Provide")
		}
	}()
	From(context.Background())
}

func TestNestedProvideShadowsOuterScope(t *testing.T) {
	outerDir := t.TempDir()
	innerDir := t.TempDir()

	_, err := Provide(context.Background(), outerDir, func(ctx context.Context) (struct{}, error) {
		if From(ctx).Directory() != outerDir {
			t.Fatalf("expected outer directory %q", outerDir)
		}

		_, err := Provide(ctx, innerDir, func(ctx context.Context) (struct{}, error) {
			if From(ctx).Directory() != innerDir {
				t.Fatalf("expected inner directory %q", innerDir)
			}
			return struct{}{}, nil
		})
		if err != nil {
			return struct{}{}, err
		}

		if From(ctx).Directory() != outerDir {
			t.Fatal("expected outer scope to reappear after nested Provide returns")
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}
}

func TestStateFactoryErrorDoesNotCache(t *testing.T) {
	dir := t.TempDir()
	key := NewKey[int]()
	boom := errors.New("boom")

	attempts := 0
	_, err := Provide(context.Background(), dir, func(ctx context.Context) (struct{}, error) {
		_, err := State(ctx, key, func(ctx context.Context, register Register) (int, error) {
			attempts++
			return 0, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		v, err := State(ctx, key, func(ctx context.Context, register Register) (int, error) {
			attempts++
			return 7, nil
		})
		if err != nil {
			return struct{}{}, err
		}
		if v != 7 {
			t.Fatalf("expected 7, got %d", v)
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected factory retried after failure, got %d attempts", attempts)
	}
}
