package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type cacheEntry struct {
	Context  *Context  `json:"context"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache holds market contexts keyed by deal id for a fixed TTL. It can persist
// itself to a JSON snapshot so a restart does not refetch every deal.
type Cache struct {
	logger       *logrus.Logger
	ttl          time.Duration
	snapshotPath string
	entries      map[string]cacheEntry
	lock         sync.RWMutex
	now          func() time.Time
}

// NewCache creates a cache. A non-positive ttl never expires entries. When
// snapshotPath is set the snapshot is loaded if it exists.
func NewCache(logger *logrus.Logger, ttl time.Duration, snapshotPath string) *Cache {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	c := &Cache{
		logger:       logger,
		ttl:          ttl,
		snapshotPath: snapshotPath,
		entries:      make(map[string]cacheEntry),
		now:          time.Now,
	}
	if snapshotPath != "" {
		if err := c.Load(); err != nil {
			logger.WithError(err).Warn("Could not load market cache snapshot")
		}
	}
	return c
}

func (c *Cache) expired(e cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.StoredAt) > c.ttl
}

// Get returns the cached context for key if present and not expired.
func (c *Cache) Get(key string) (*Context, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.Context, true
}

// Put stores ctx under key.
func (c *Cache) Put(key string, ctx *Context) {
	c.lock.Lock()
	c.entries[key] = cacheEntry{Context: ctx, StoredAt: c.now()}
	c.lock.Unlock()
}

// Evict removes key.
func (c *Cache) Evict(key string) {
	c.lock.Lock()
	delete(c.entries, key)
	c.lock.Unlock()
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.entries)
}

// GetOrFetch returns the cached context for key or calls fetch and caches a
// non-empty result. Fetch errors are returned and nothing is cached.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (*Context, error)) (*Context, error) {
	if cached, ok := c.Get(key); ok {
		c.logger.WithFields(logrus.Fields{
			"key":    key,
			"source": "cache",
		}).Debug("Found market context in cache")
		return cached, nil
	}

	fetched, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if fetched.IsEmpty() {
		return fetched, nil
	}
	if fetched.FetchedAt.IsZero() {
		fetched.FetchedAt = c.now().UTC()
	}
	c.Put(key, fetched)
	return fetched, nil
}

// Save writes the live entries to the snapshot file.
func (c *Cache) Save() error {
	if c.snapshotPath == "" {
		return nil
	}

	c.lock.RLock()
	live := make(map[string]cacheEntry, len(c.entries))
	for key, e := range c.entries {
		if !c.expired(e) {
			live[key] = e
		}
	}
	c.lock.RUnlock()

	data, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("failed to marshal market cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.snapshotPath), 0755); err != nil {
		return fmt.Errorf("failed to create market cache directory: %w", err)
	}
	if err := os.WriteFile(c.snapshotPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save market cache: %w", err)
	}

	c.logger.WithField("entries", len(live)).Info("Saved market cache to disk")
	return nil
}

// Load replaces the cache contents with the snapshot file. A missing file is not
// an error.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.snapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read market cache: %w", err)
	}

	entries := make(map[string]cacheEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse market cache: %w", err)
	}

	c.lock.Lock()
	c.entries = entries
	c.lock.Unlock()

	c.logger.WithField("entries", len(entries)).Info("Loaded market cache")
	return nil
}
