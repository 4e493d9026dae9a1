package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/randytsao24/gigsahead/internal/logging"
)

// Layered checks memory first, then the disk store, then loads from upstream.
// A nil store disables the disk layer. Disk failures are logged, never returned.
type Layered struct {
	mem    *Memory[[]byte]
	store  *Store
	maxAge time.Duration
	log    logging.Logger
}

// NewLayered builds a two-level cache
func NewLayered(memTTL time.Duration, store *Store, diskMaxAge time.Duration, log logging.Logger) *Layered {
	if log == nil {
		log = logging.Nop()
	}
	return &Layered{
		mem:    NewMemory[[]byte](memTTL),
		store:  store,
		maxAge: diskMaxAge,
		log:    log,
	}
}

// Close stops the memory sweep. The store is owned by the caller.
func (l *Layered) Close() {
	l.mem.Close()
}

func (l *Layered) lookup(ctx context.Context, key string) ([]byte, bool) {
	if body, ok := l.mem.Get(key); ok {
		return body, true
	}
	if l.store == nil {
		return nil, false
	}
	body, ok, err := l.store.Get(ctx, key, l.maxAge)
	if err != nil {
		l.log.Warn("disk cache read failed", "key", key, "error", err)
		return nil, false
	}
	if ok {
		l.mem.Set(key, body)
	}
	return body, ok
}

func (l *Layered) save(ctx context.Context, key string, body []byte) {
	l.mem.Set(key, body)
	if l.store == nil {
		return
	}
	if err := l.store.Put(ctx, key, body); err != nil {
		l.log.Warn("disk cache write failed", "key", key, "error", err)
	}
}

// Fetch returns the cached value for key or calls load and caches its result.
// Load errors are returned unchanged and nothing is cached.
func Fetch[T any](ctx context.Context, l *Layered, key string, load func(context.Context) (T, error)) (T, error) {
	if l == nil {
		return load(ctx)
	}

	if body, ok := l.lookup(ctx, key); ok {
		var v T
		if err := json.Unmarshal(body, &v); err == nil {
			return v, nil
		}
		l.log.Warn("discarding undecodable cache entry", "key", key)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	body, err := json.Marshal(v)
	if err != nil {
		l.log.Warn("value not cacheable", "key", key, "error", err)
		return v, nil
	}
	l.save(ctx, key, body)
	return v, nil
}
