package mastering

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/errors"
)

// tieredCache holds mastered chunks in three tiers: L1 and L2 in memory,
// L3 on disk (one directory per session, only when an L3 directory is
// configured). Put writes every chunk to L1 and L2 alike; both memory tiers
// expire entries after ChunkTTL and have no size bound or LRU eviction, so
// L1 is not limited to the current and next chunk and L2 holds no separate
// predicted window; CacheSettings.L1Items, L2Items and L3Bytes are not
// read. Each tier keeps its own lock
// (here delegated to go-cache's internal locking, plus l3Mu for disk I/O)
// so no single lock spans multiple tiers, per spec.md §5.
type tieredCache struct {
	l1 *gocache.Cache
	l2 *gocache.Cache

	l3Dir string
	l3Mu  sync.Mutex
}

func newTieredCache(cfg config.CacheSettings) *tieredCache {
	ttl := cfg.ChunkTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &tieredCache{
		l1:    gocache.New(ttl, ttl/2),
		l2:    gocache.New(ttl, ttl/2),
		l3Dir: cfg.L3Dir,
	}
}

// Get checks L1, then L2, then L3 in order, returning the first hit.
func (c *tieredCache) Get(key CacheKey) ([]byte, bool) {
	k := key.String()
	if v, ok := c.l1.Get(k); ok {
		return v.([]byte), true
	}
	if v, ok := c.l2.Get(k); ok {
		return v.([]byte), true
	}
	if c.l3Dir != "" {
		if data, ok := c.readL3(key); ok {
			return data, true
		}
	}
	return nil, false
}

// Put writes a completed chunk to all tiers atomically per chunk: no
// partial chunk is ever visible to a concurrent reader, since the disk
// write uses a rename-into-place and the in-memory tiers are set only
// after the value is fully built.
func (c *tieredCache) Put(key CacheKey, data []byte) error {
	k := key.String()
	c.l1.SetDefault(k, data)
	c.l2.SetDefault(k, data)
	if c.l3Dir != "" {
		return c.writeL3(key, data)
	}
	return nil
}

// PromoteToL1 copies a chunk held in L2 into L1; it does nothing when L2
// does not hold the key.
func (c *tieredCache) PromoteToL1(key CacheKey) {
	k := key.String()
	if v, ok := c.l2.Get(k); ok {
		c.l1.SetDefault(k, v)
	}
}

func (c *tieredCache) l3Path(key CacheKey) string {
	session := SessionKey{TrackID: key.TrackID, Preset: key.Preset, Intensity: key.Intensity}
	return filepath.Join(c.l3Dir, sanitizeForPath(session.String()), sanitizeForPath(key.String())+".chunk")
}

func (c *tieredCache) readL3(key CacheKey) ([]byte, bool) {
	c.l3Mu.Lock()
	defer c.l3Mu.Unlock()
	data, err := os.ReadFile(c.l3Path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *tieredCache) writeL3(key CacheKey, data []byte) error {
	c.l3Mu.Lock()
	defer c.l3Mu.Unlock()

	path := c.l3Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component(ComponentMastering).
			Category(errors.CategoryCache).
			Context("operation", "l3_mkdir").
			Build()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.New(err).
			Component(ComponentMastering).
			Category(errors.CategoryCache).
			Context("operation", "l3_write_temp").
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.New(err).
			Component(ComponentMastering).
			Category(errors.CategoryCache).
			Context("operation", "l3_rename").
			Build()
	}
	return nil
}

// ClearSession bulk-evicts every tier's entries for one session, used by
// clear_cache(track_id) and by end-of-session cleanup.
func (c *tieredCache) ClearSession(session SessionKey) {
	prefix := session.String() + "|"
	for k := range c.l1.Items() {
		if hasSessionPrefix(k, prefix) {
			c.l1.Delete(k)
		}
	}
	for k := range c.l2.Items() {
		if hasSessionPrefix(k, prefix) {
			c.l2.Delete(k)
		}
	}
	if c.l3Dir != "" {
		c.l3Mu.Lock()
		_ = os.RemoveAll(filepath.Join(c.l3Dir, sanitizeForPath(session.String())))
		c.l3Mu.Unlock()
	}
}

// ClearAll evicts every tier entirely, used by clear_cache() with no
// track_id.
func (c *tieredCache) ClearAll() {
	c.l1.Flush()
	c.l2.Flush()
	if c.l3Dir != "" {
		c.l3Mu.Lock()
		_ = os.RemoveAll(c.l3Dir)
		c.l3Mu.Unlock()
	}
}

func hasSessionPrefix(cacheKey, prefix string) bool {
	return len(cacheKey) >= len(prefix) && cacheKey[:len(prefix)] == prefix
}

func sanitizeForPath(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
