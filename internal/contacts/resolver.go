package contacts

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
)

// Directory is the external identity lookup chatbridge resolves names
// against. Lookup returns the display name for an exact phone or email
// match, or "" when the identifier is unknown.
type Directory interface {
	Lookup(ctx context.Context, identifier string) (string, error)
}

// NullDirectory is a Directory with no entries. It backs the resolver when
// no address book is configured, so callers always see identifier fallback
// instead of a special case.
type NullDirectory struct{}

func (NullDirectory) Lookup(context.Context, string) (string, error) { return "", nil }

// Resolver caches directory lookups for the process lifetime. Misses and
// directory failures are cached too, so an unreachable directory is probed
// at most once per identifier. The cache is never invalidated during a run;
// directory changes are not observed until restart.
type Resolver struct {
	dir    Directory
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // LRU order, front = most recent
	maxSize int        // 0 = unbounded
}

type cacheEntry struct {
	key  string
	name string
}

// NewResolver creates a Resolver over the given directory. maxSize bounds
// the cache with least-recently-used eviction; 0 keeps every entry.
func NewResolver(dir Directory, maxSize int) *Resolver {
	return &Resolver{
		dir:     dir,
		logger:  slog.Default(),
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// WithLogger sets the logger for the resolver.
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	r.logger = logger
	return r
}

// Resolve returns the display name for an identifier, or "" when no name is
// known. The identifier is normalized before lookup. Directory failures
// degrade to "" rather than surfacing; the negative result is cached.
func (r *Resolver) Resolve(ctx context.Context, identifier string) string {
	key := Normalize(identifier)

	r.mu.Lock()
	if el, ok := r.entries[key]; ok {
		r.order.MoveToFront(el)
		name := el.Value.(*cacheEntry).name
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	name, err := r.dir.Lookup(ctx, key)
	if err != nil {
		r.logger.Debug("directory lookup failed", "identifier", key, "error", err)
		name = ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.entries[key]; ok {
		// Another caller resolved the same identifier concurrently.
		return el.Value.(*cacheEntry).name
	}
	r.entries[key] = r.order.PushFront(&cacheEntry{key: key, name: name})
	if r.maxSize > 0 && r.order.Len() > r.maxSize {
		oldest := r.order.Back()
		r.order.Remove(oldest)
		delete(r.entries, oldest.Value.(*cacheEntry).key)
	}
	return name
}

// CacheLen returns the number of cached entries.
func (r *Resolver) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
