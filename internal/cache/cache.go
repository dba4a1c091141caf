// Package cache is the keyed, TTL'd, file-backed memoization layer
// (§4.6) shared by the WHOIS and threat-intel enrichers. It is grounded
// on the teacher pack's own JSON-file cache (darshakkanani-stormfinder's
// pkg/cache), reworked to the namespaced sha256-keyed on-disk layout and
// single-flight contract §4.6 requires.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/typosniper/typo-sniper/internal/metrics"
)

// Entry is the on-disk envelope for a single cache file.
type Entry struct {
	CreatedAt  time.Time       `json:"created_at"`
	TTLSeconds float64         `json:"ttl_seconds"`
	Payload    json.RawMessage `json:"payload"`
}

func (e Entry) expired() bool {
	return time.Since(e.CreatedAt) > time.Duration(e.TTLSeconds*float64(time.Second))
}

// Stats is returned by GetStats.
type Stats struct {
	Namespace      string `json:"namespace"`
	TotalEntries   int    `json:"total_entries"`
	ExpiredEntries int    `json:"expired_entries"`
}

// Cache is a namespace-partitioned, file-per-entry, atomic-write store.
type Cache struct {
	dir     string
	metrics *metrics.Collector

	group singleflight.Group
}

// New creates a Cache rooted at dir, creating it if necessary.
func New(dir string, mc *metrics.Collector) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, metrics: mc}, nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(namespace, key string) string {
	h := hashKey(key)
	return filepath.Join(c.dir, namespace, h[:2], h+".entry")
}

// Get is a miss iff the file is absent or now > created_at+ttl.
func (c *Cache) Get(namespace, key string, out interface{}) (bool, error) {
	p := c.path(namespace, key)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			c.countMiss(namespace)
			return false, nil
		}
		return false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false, err
	}

	if entry.expired() {
		c.countMiss(namespace)
		return false, nil
	}

	if out != nil {
		if err := json.Unmarshal(entry.Payload, out); err != nil {
			return false, err
		}
	}
	c.countHit(namespace)
	return true, nil
}

// Put writes value under (namespace, key) with the given ttl. Writes are
// atomic: a temp file is written then renamed into place so no reader
// ever observes a torn write.
func (c *Cache) Put(namespace, key string, ttl time.Duration, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := Entry{CreatedAt: time.Now(), TTLSeconds: ttl.Seconds(), Payload: payload}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	p := c.path(namespace, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, p)
}

// GetOrFetch deduplicates concurrent fetches of the same (namespace,
// key) via an in-process single-flight group: at most one fetch call is
// in flight for a given key at any time.
func (c *Cache) GetOrFetch(namespace, key string, ttl time.Duration, out interface{}, fetch func() (interface{}, error)) (bool, error) {
	if ok, err := c.Get(namespace, key, out); ok || err != nil {
		return ok, err
	}

	flightKey := namespace + "\x00" + key
	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		val, ferr := fetch()
		if ferr != nil {
			return nil, ferr
		}
		if perr := c.Put(namespace, key, ttl, val); perr != nil {
			return nil, perr
		}
		return val, nil
	})
	if err != nil {
		return false, err
	}

	// Round-trip through JSON so concurrent callers observe a copy,
	// matching what a fresh cache read would have returned.
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ClearExpired removes every entry across every namespace whose TTL has
// elapsed and returns the count removed.
func (c *Cache) ClearExpired() (int, error) {
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		var entry Entry
		if jerr := json.Unmarshal(data, &entry); jerr != nil {
			return nil
		}
		if entry.expired() {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// GetStats reports aggregate entry counts per namespace.
func (c *Cache) GetStats() (map[string]Stats, error) {
	stats := make(map[string]Stats)
	var mu sync.Mutex

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}

	for _, nsEntry := range entries {
		if !nsEntry.IsDir() {
			continue
		}
		ns := nsEntry.Name()
		s := Stats{Namespace: ns}
		nsDir := filepath.Join(c.dir, ns)
		_ = filepath.WalkDir(nsDir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				return nil
			}
			var entry Entry
			if jerr := json.Unmarshal(data, &entry); jerr != nil {
				return nil
			}
			s.TotalEntries++
			if entry.expired() {
				s.ExpiredEntries++
			}
			return nil
		})
		mu.Lock()
		stats[ns] = s
		mu.Unlock()
	}
	return stats, nil
}

func (c *Cache) countHit(namespace string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(namespace).Inc()
	}
}

func (c *Cache) countMiss(namespace string) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(namespace).Inc()
	}
}
