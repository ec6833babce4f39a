// Package registry implements the handler-module registration table and
// the directory discovery that drives it. Handler modules register a
// setup function under a name (by convention, their file base name);
// directory loaders scan a directory and invoke the registered setup for
// every eligible file found. Discovered files with no registered setup
// are skipped: a module without a setup hook is not an error.
package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Accepted file extensions and excluded name markers for discovery.
// Comparison is done on the upper-cased file name.
var (
	acceptedExtensions = []string{".GO"}
	excludedMarkers    = []string{"_TEST", ".SPEC.", ".MAP."}
)

// Table maps module names to setup functions over a registrar of type T.
// Registration happens during init or early startup; lookups happen when
// a directory loader runs. Safe for concurrent use.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[string]func(T)
}

// NewTable creates an empty table
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[string]func(T))}
}

// Register stores a setup function under name. A later registration
// under the same name replaces the earlier one.
func (t *Table[T]) Register(name string, setup func(T)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[name] = setup
}

// Lookup returns the setup registered under name
func (t *Table[T]) Lookup(name string) (func(T), bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	setup, ok := t.entries[name]
	return setup, ok
}

// Names returns all registered names, sorted
func (t *Table[T]) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discover scans dir (non-recursive) and returns the module names of
// eligible files in directory-listing order: files whose upper-cased
// name ends in an accepted extension and contains no excluded marker.
// The returned names are base names with the extension stripped.
// An unreadable directory is a hard error.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read handlers directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !eligible(name) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, name[strings.LastIndex(name, "."):]))
	}
	return names, nil
}

func eligible(name string) bool {
	upper := strings.ToUpper(name)

	accepted := false
	for _, ext := range acceptedExtensions {
		if strings.HasSuffix(upper, ext) {
			accepted = true
			break
		}
	}
	if !accepted {
		return false
	}

	for _, marker := range excludedMarkers {
		if strings.Contains(upper, marker) {
			return false
		}
	}
	return true
}
