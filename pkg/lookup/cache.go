// Package lookup memoises vehicle catalog queries for the lifetime of a
// process (or of a shared Redis keyspace). Entries never expire: the catalog
// is small and read-only, so there is nothing to invalidate.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Source is the uncached catalog. *vpic.Client satisfies it.
type Source interface {
	Makes(ctx context.Context, year int) ([]string, error)
	Models(ctx context.Context, makeName string, year int) ([]string, error)
}

// Store persists normalised name lists by key. Get reports ok=false on a
// miss.
type Store interface {
	Get(ctx context.Context, key string) (names []string, ok bool, err error)
	Set(ctx context.Context, key string, names []string) error
}

// MakesKey is the cache key for the makes of year within vehicleType.
func MakesKey(vehicleType string, year int) string {
	return "makes:" + normaliseType(vehicleType) + ":" + strconv.Itoa(year)
}

// ModelsKey is the cache key for the models of makeName in year within
// vehicleType. Make names compare case-insensitively.
func ModelsKey(vehicleType, makeName string, year int) string {
	return "models:" + normaliseType(vehicleType) + ":" + strconv.Itoa(year) + ":" +
		strings.ToUpper(strings.TrimSpace(makeName))
}

func normaliseType(vehicleType string) string {
	return strings.ToLower(strings.TrimSpace(vehicleType))
}

// Stats counts cache outcomes since construction.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type Cache struct {
	source      Source
	store       Store
	vehicleType string
	logger      *slog.Logger
	flight      singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*Cache)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(c *Cache) {
		if store != nil {
			c.store = store
		}
	}
}

// WithVehicleType scopes keys to a vehicle type. It should match the type the
// source queries with.
func WithVehicleType(vehicleType string) Option {
	return func(c *Cache) {
		c.vehicleType = vehicleType
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(source Source, options ...Option) *Cache {
	c := &Cache{
		source: source,
		store:  NewMemoryStore(),
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Makes returns the deduplicated, sorted makes for year.
func (c *Cache) Makes(ctx context.Context, year int) ([]string, error) {
	return c.resolve(ctx, MakesKey(c.vehicleType, year), func(ctx context.Context) ([]string, error) {
		return c.source.Makes(ctx, year)
	})
}

// Models returns the deduplicated, sorted models for makeName in year.
func (c *Cache) Models(ctx context.Context, makeName string, year int) ([]string, error) {
	return c.resolve(ctx, ModelsKey(c.vehicleType, makeName, year), func(ctx context.Context) ([]string, error) {
		return c.source.Models(ctx, makeName, year)
	})
}

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *Cache) resolve(ctx context.Context, key string, fetch func(context.Context) ([]string, error)) ([]string, error) {
	if c.source == nil {
		return nil, fmt.Errorf("lookup: source is nil")
	}

	names, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "lookup: store read failed, treating as miss", "key", key, "error", err)
	} else if ok {
		c.hits.Add(1)
		return append([]string(nil), names...), nil
	}

	c.misses.Add(1)
	// Concurrent misses for one key share a single fetch, detached from any
	// one caller's cancellation.
	flight := c.flight.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		raw, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		names := Normalize(raw)
		if err := c.store.Set(fetchCtx, key, names); err != nil {
			c.logger.WarnContext(ctx, "lookup: store write failed", "key", key, "error", err)
		}
		return names, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		names, _ := res.Val.([]string)
		return append([]string{}, names...), nil
	}
}

// Normalize trims names, drops blanks and duplicates, and sorts the rest
// lexicographically. The result is never nil.
func Normalize(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
