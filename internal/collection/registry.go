// Package collection provides the storage adapters hosting tracks: an
// in-memory store, a directory of GPX files, a SQLite database and a
// client for the remote track server.
package collection

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wrohdewald/gpxity/internal/config"
	"github.com/wrohdewald/gpxity/internal/track"
)

// Factory builds a collection from an account.
type Factory func(account config.Account) (track.Collection, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// Register adds a collection kind under the given name. Registration is
// explicit; nothing is discovered by scanning.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// RegisterBuiltins registers all collection kinds shipped with this
// module. Call it once at process start.
func RegisterBuiltins() {
	Register("memory", func(account config.Account) (track.Collection, error) {
		return NewMemory(account.Name), nil
	})
	Register("directory", func(account config.Account) (track.Collection, error) {
		return NewDirectory(account.URL)
	})
	Register("sqlite", func(account config.Account) (track.Collection, error) {
		return OpenSQLite(account.URL)
	})
	Register("client", func(account config.Account) (track.Collection, error) {
		return NewClient(account.URL, account.Token), nil
	})
}

// Registered returns the sorted names of all registered collection kinds.
func Registered() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the collection an account points to.
func Open(account config.Account) (track.Collection, error) {
	registryMu.Lock()
	factory, ok := registry[strings.ToLower(account.Backend)]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown collection kind %q for account %q", account.Backend, account.Name)
	}
	return factory(account)
}

// newAttached creates an empty track attached to c with the given
// identity, as handed out by listings.
func newAttached(c track.Collection, ident string) *track.Track {
	t := track.New()
	_ = t.Decoupled(func() error {
		t.SetCollection(c)
		return t.SetID(ident)
	})
	return t
}
