// Package testindex discovers test classes inside installed bundles.
//
// A bundle opts in by declaring a test package prefix in its
// "Test-Package" manifest header. The index watches module-change events
// and lazily re-scans changed bundles' entries on the next query, caching
// discovered class names per bundle so that bundles coming and going stay
// cheap to track.
package testindex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/hotswap/internal/bundle"
)

// TestPackageHeader is the manifest header naming a bundle's test package
// prefix.
const TestPackageHeader = "Test-Package"

// ErrNotFound is returned by Load when no bundle supplies the class.
var ErrNotFound = errors.New("test class not found")

// Index is a lazily maintained map of test classes per bundle.
//
// Thread-safety: all methods are safe for concurrent use; the
// module-change handler runs on the runtime's notification goroutine.
type Index struct {
	runtime bundle.Runtime
	sub     bundle.Subscription

	mu      sync.Mutex
	changed map[bundle.ID]bool
	classes map[bundle.ID][]string
}

// New creates an index over the given runtime. All bundles carrying the
// test header are initially considered changed, so the first query scans
// everything relevant. Call Close to release the event subscription.
func New(rt bundle.Runtime) *Index {
	ix := &Index{
		runtime: rt,
		changed: make(map[bundle.ID]bool),
		classes: make(map[bundle.ID][]string),
	}
	for _, m := range rt.List() {
		if testPackage(m) != "" {
			ix.changed[m.ID()] = true
		}
	}
	ix.sub = rt.Subscribe(func(ev bundle.Event) {
		if ev.Type == bundle.EventModuleChanged {
			ix.NotifyChanged(ev.Module)
		}
	})
	return ix
}

// Close releases the runtime subscription.
func (ix *Index) Close() {
	if ix.sub != nil {
		ix.sub.Cancel()
	}
}

// NotifyChanged marks a bundle's cached class list stale. Bundles without
// the test header are ignored.
func (ix *Index) NotifyChanged(id bundle.ID) {
	m, ok := ix.runtime.Get(id)
	if ok && testPackage(m) == "" {
		return
	}
	ix.mu.Lock()
	ix.changed[id] = true
	ix.mu.Unlock()
}

// List returns the qualified names of all known test classes, sorted.
func (ix *Index) List() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshChangedLocked()

	var out []string
	for _, names := range ix.classes {
		out = append(out, names...)
	}
	sort.Strings(out)
	return out
}

// Load resolves a test class name to the bundle that supplies it.
func (ix *Index) Load(className string) (bundle.ID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshChangedLocked()

	for id, names := range ix.classes {
		for _, n := range names {
			if n == className {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, className)
}

// refreshChangedLocked re-scans bundles marked changed. Caller holds mu.
func (ix *Index) refreshChangedLocked() {
	if len(ix.changed) == 0 {
		return
	}
	for id := range ix.changed {
		delete(ix.classes, id)
		if m, ok := ix.runtime.Get(id); ok {
			if names := scan(m); len(names) > 0 {
				ix.classes[id] = names
			}
		}
	}
	ix.changed = make(map[bundle.ID]bool)
}

// scan extracts the test class names a bundle provides. Only ACTIVE
// bundles are considered: an unstarted bundle's classes can't be loaded.
func scan(m bundle.Module) []string {
	prefix := testPackage(m)
	if prefix == "" || m.State() != bundle.Active {
		return nil
	}
	var out []string
	for _, entry := range m.Entries() {
		name, ok := toClassName(entry)
		if ok && strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func testPackage(m bundle.Module) string {
	return m.Headers()[TestPackageHeader]
}

// toClassName converts a content entry path like
// "org/example/tests/FooTest.class" to "org.example.tests.FooTest".
func toClassName(entry string) (string, bool) {
	const suffix = ".class"
	if !strings.HasSuffix(entry, suffix) {
		return "", false
	}
	name := strings.TrimPrefix(entry, "/")
	name = strings.TrimSuffix(name, suffix)
	return strings.ReplaceAll(name, "/", "."), true
}
