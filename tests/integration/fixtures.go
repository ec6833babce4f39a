package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/gjovs/serverkit/internal/cache/memory"
)

// Fixtures seeds and rolls back integration test data against the
// harness cache store, migration-runner style: Up applies one named
// fixture, Down rolls everything back.
type Fixtures struct {
	store *memory.Store
}

// NewFixtures creates a fixtures runner over the given store
func NewFixtures(store *memory.Store) *Fixtures {
	return &Fixtures{store: store}
}

// fixtureSteps maps fixture names to their seeding steps
var fixtureSteps = map[string]func(ctx context.Context, store *memory.Store) error{
	"CachedGreeting": func(ctx context.Context, store *memory.Store) error {
		return store.Save(ctx, "greeting", map[string]any{"message": "hello"}, 0)
	},
	"ExpiringSession": func(ctx context.Context, store *memory.Store) error {
		return store.Save(ctx, "session:abc", map[string]any{"userId": "u1"}, time.Minute)
	},
}

// Up applies the named fixture
func (f *Fixtures) Up(ctx context.Context, name string) error {
	step, ok := fixtureSteps[name]
	if !ok {
		return fmt.Errorf("unknown fixture: %s", name)
	}
	return step(ctx, f.store)
}

// Down rolls back every applied fixture
func (f *Fixtures) Down() {
	f.store.Purge()
}
