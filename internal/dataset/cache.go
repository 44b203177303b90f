package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"

	"sales-dashboard/internal/observability"
)

// CacheEntry is one loaded table together with when and from what it was read.
type CacheEntry struct {
	Key      string
	Path     string
	Rows     int
	Columns  int
	LoadedAt time.Time
	table    *Table
}

// Cache memoises loaded tables by source identity (path, size and
// modification time) for the life of the process. Entries never expire on
// their own; Invalidate drops them all.
type Cache struct {
	mu      sync.Mutex
	entries *ttlcache.Cache[string, *CacheEntry]
	clock   clockwork.Clock
	logger  *slog.Logger
}

type CacheOption func(*Cache)

func WithClock(clock clockwork.Clock) CacheOption {
	return func(c *Cache) { c.clock = clock }
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: ttlcache.New[string, *CacheEntry](
			ttlcache.WithTTL[string, *CacheEntry](ttlcache.NoTTL),
		),
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the table for path, reading it only when the file's identity
// has not been seen before. Loads are serialised so concurrent callers for
// the same file share one read.
func (c *Cache) Get(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		observability.DatasetLoadsTotal.WithLabelValues("error").Inc()
		return nil, &LoadError{Source: path, Reason: "stat file", Err: err}
	}
	key := fmt.Sprintf("%s|%d|%d|derive=%t", path, info.Size(), info.ModTime().UnixNano(), !opts.SkipDerive)

	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.entries.Get(key); item != nil {
		observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return item.Value().table, nil
	}
	observability.CacheLookupsTotal.WithLabelValues("miss").Inc()

	ctx, span := observability.StartSpan(ctx, "dataset.load")
	span.SetTag("path", path)
	defer func() {
		span.Finish()
		observability.LoggerFrom(ctx, c.logger).Debug("span finished", "span", span)
	}()

	if opts.Logger == nil {
		opts.Logger = c.logger
	}

	start := c.clock.Now()
	table, err := Load(ctx, path, opts)
	if err != nil {
		span.SetError(err)
		observability.DatasetLoadsTotal.WithLabelValues("error").Inc()
		observability.LoggerFrom(ctx, c.logger).Error("dataset load failed", "path", path, "error", err)
		return nil, err
	}
	loadedAt := c.clock.Now()

	observability.DatasetLoadsTotal.WithLabelValues("ok").Inc()
	observability.DatasetLoadDuration.Observe(loadedAt.Sub(start).Seconds())
	observability.DatasetRows.WithLabelValues(path).Set(float64(table.Len()))

	c.dropStale(path, key)
	c.entries.Set(key, &CacheEntry{
		Key:      key,
		Path:     path,
		Rows:     table.Len(),
		Columns:  table.Width(),
		LoadedAt: loadedAt,
		table:    table,
	}, ttlcache.NoTTL)

	observability.LoggerFrom(ctx, c.logger).Info("dataset loaded",
		"path", path,
		"rows", table.Len(),
		"columns", table.Width(),
	)
	return table, nil
}

// dropStale removes entries for an older version of the same file loaded
// with the same options.
func (c *Cache) dropStale(path, current string) {
	suffix := current[strings.LastIndex(current, "|"):]
	for _, k := range c.entries.Keys() {
		if k != current && strings.HasPrefix(k, path+"|") && strings.HasSuffix(k, suffix) {
			c.entries.Delete(k)
		}
	}
}

// Invalidate drops every cached table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.DeleteAll()
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// Entries lists the cached tables ordered by path.
func (c *Cache) Entries() []CacheEntry {
	items := c.entries.Items()
	out := make([]CacheEntry, 0, len(items))
	for _, item := range items {
		out = append(out, *item.Value())
	}
	slices.SortFunc(out, func(a, b CacheEntry) int { return strings.Compare(a.Key, b.Key) })
	return out
}
