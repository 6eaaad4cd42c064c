package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/drpaneas/voiceprint/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// ErrCorrupt marks an entry that could not be decoded. Callers never see
// it: the entry is logged, deleted and treated as a miss.
var ErrCorrupt = errors.New("corrupt cache entry")

// Validator is implemented by payload types that can be decoded cleanly
// and still be unusable. A cached payload that fails Validate is corrupt.
type Validator interface {
	Validate() error
}

// Kind selects the TTL class of an entry.
type Kind string

const (
	KindSignature Kind = "signature"
	KindPosts     Kind = "posts"
)

// Default TTLs. Writing style drifts slowly; posts do not.
const (
	DefaultSignatureTTL = 7 * 24 * time.Hour
	DefaultPostsTTL     = 24 * time.Hour
)

type envelope struct {
	Kind     Kind            `json:"kind"`
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Options configures a Cache.
type Options struct {
	TTLs    map[Kind]time.Duration
	Now     func() time.Time
	Metrics *metrics.Metrics
}

// Cache stores JSON payloads in a Store with per-kind TTLs checked against
// its own clock, so an entry past its TTL is a miss even if the backend
// still holds it.
type Cache struct {
	store   Store
	ttls    map[Kind]time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	group   singleflight.Group
}

// New returns a Cache over store. Missing TTLs and clock take defaults.
func New(store Store, opts Options) *Cache {
	ttls := map[Kind]time.Duration{
		KindSignature: DefaultSignatureTTL,
		KindPosts:     DefaultPostsTTL,
	}
	for k, v := range opts.TTLs {
		if v > 0 {
			ttls[k] = v
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{store: store, ttls: ttls, now: now, metrics: opts.Metrics}
}

// TTL returns the lifetime of entries of kind.
func (c *Cache) TTL(kind Kind) time.Duration {
	return c.ttls[kind]
}

func key(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// Get decodes a live entry into dst and reports whether there was one. If
// dst is a Validator, an entry that fails validation is a miss.
func (c *Cache) Get(ctx context.Context, kind Kind, id string, dst any) (bool, error) {
	payload, ok, err := c.lookup(ctx, kind, id, true)
	if err != nil || !ok {
		return false, err
	}
	if err := decode(payload, dst); err != nil {
		reset(dst)
		c.discard(ctx, kind, id, err)
		return false, nil
	}
	c.metrics.RecordCache(string(kind), metrics.CacheHit)
	slog.Debug("cache hit", "kind", kind, "id", id)
	return true, nil
}

func decode(payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	if v, ok := dst.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return nil
}

// reset zeroes what dst points to so a rejected entry leaves nothing behind.
func reset(dst any) {
	if v := reflect.ValueOf(dst); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
}

// Put stores v under kind and id.
func (c *Cache) Put(ctx context.Context, kind Kind, id string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	return c.put(ctx, kind, id, payload)
}

// Load returns the cached value for kind and id in dst, calling fetch on a
// miss and caching its result. Concurrent misses for the same key share one
// fetch. The fetch runs with the context of the caller that started it. A
// failing backend degrades to fetching on every call.
func (c *Cache) Load(ctx context.Context, kind Kind, id string, dst any, fetch func(context.Context) (any, error)) (hit bool, err error) {
	hit, err = c.Get(ctx, kind, id, dst)
	if err != nil {
		slog.Warn("cache read failed, fetching", "kind", kind, "id", id, "error", err)
	}
	if hit {
		return true, nil
	}

	v, err, shared := c.group.Do(key(kind, id), func() (any, error) {
		// A flight that finished between our miss and now has already
		// stored the value.
		if payload, ok, _ := c.lookup(ctx, kind, id, false); ok && decode(payload, dst) == nil {
			return payload, nil
		}
		reset(dst)
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", kind, err)
		}
		if err := c.put(ctx, kind, id, payload); err != nil {
			slog.Warn("cache write failed", "kind", kind, "id", id, "error", err)
		}
		return payload, nil
	})
	if err != nil {
		return false, err
	}
	if shared {
		slog.Debug("coalesced cache miss", "kind", kind, "id", id)
	}
	if err := decode(v.([]byte), dst); err != nil {
		return false, fmt.Errorf("decoding fetched %s: %w", kind, err)
	}
	return false, nil
}

// Invalidate removes the entry for kind and id.
func (c *Cache) Invalidate(ctx context.Context, kind Kind, id string) error {
	return c.store.Delete(ctx, key(kind, id))
}

func (c *Cache) put(ctx context.Context, kind Kind, id string, payload []byte) error {
	data, err := json.Marshal(envelope{Kind: kind, StoredAt: c.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	return c.store.Set(ctx, key(kind, id), data, c.ttls[kind])
}

// lookup returns the payload of a live entry. Corrupt and expired entries
// are deleted and reported as misses. Hits are recorded by the caller once
// the payload decodes.
func (c *Cache) lookup(ctx context.Context, kind Kind, id string, record bool) ([]byte, bool, error) {
	data, ok, err := c.store.Get(ctx, key(kind, id))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if record {
			c.metrics.RecordCache(string(kind), metrics.CacheMiss)
		}
		return nil, false, nil
	}

	env, err := decodeEnvelope(data, kind)
	if err != nil {
		c.discard(ctx, kind, id, err)
		return nil, false, nil
	}
	if age := c.now().Sub(env.StoredAt); age >= c.ttls[kind] {
		if record {
			c.metrics.RecordCache(string(kind), metrics.CacheExpired)
		}
		slog.Debug("cache entry expired", "kind", kind, "id", id, "age", age)
		if err := c.store.Delete(ctx, key(kind, id)); err != nil {
			slog.Warn("deleting expired cache entry", "kind", kind, "id", id, "error", err)
		}
		return nil, false, nil
	}

	return env.Payload, true, nil
}

func decodeEnvelope(data []byte, kind Kind) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	switch {
	case env.Kind != kind:
		return nil, fmt.Errorf("%w: kind %q, want %q", ErrCorrupt, env.Kind, kind)
	case env.StoredAt.IsZero():
		return nil, fmt.Errorf("%w: missing stored_at", ErrCorrupt)
	case len(env.Payload) == 0:
		return nil, fmt.Errorf("%w: empty payload", ErrCorrupt)
	}
	return &env, nil
}

func (c *Cache) discard(ctx context.Context, kind Kind, id string, cause error) {
	c.metrics.RecordCache(string(kind), metrics.CacheCorrupt)
	slog.Warn("discarding corrupt cache entry", "kind", kind, "id", id, "error", cause)
	if err := c.store.Delete(ctx, key(kind, id)); err != nil {
		slog.Warn("deleting corrupt cache entry", "kind", kind, "id", id, "error", err)
	}
}
