package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Bateristico/agent-architect/internal/models"
)

const fileExt = ".json.zst"

// DefaultMemoryEntries is the size of the in-memory tier.
const DefaultMemoryEntries = 128

// Cache stores estimation results. Lookups hit an in-memory LRU first, then a
// directory of zstd-compressed JSON files. An empty dir disables the disk tier;
// memEntries <= 0 disables the memory tier.
type Cache struct {
	dir string
	mu  sync.Mutex
	mem *lru.Cache[string, []byte]
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a cache rooted at dir.
func New(dir string, memEntries int) (*Cache, error) {
	c := &Cache{dir: dir}
	if memEntries > 0 {
		mem, err := lru.New[string, []byte](memEntries)
		if err != nil {
			return nil, fmt.Errorf("creating memory cache: %w", err)
		}
		c.mem = mem
	}
	if dir != "" {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		c.enc, c.dec = enc, dec
	}
	return c, nil
}

// CacheKey identifies an estimation: each placed component's role, id, cost
// and variant, the full level definition, the seed and the number of trials.
// Only pinned seeds are cacheable.
func CacheKey(cfg models.Configuration, level *models.Level, seed int64, trials int) (string, error) {
	h := sha256.New()

	for _, comp := range cfg.Components() {
		part := fmt.Sprintf("%s=%s/%d/%s", comp.Role, comp.ID, comp.Cost, comp.Variant)
		if err := writeString(h, part); err != nil {
			return "", err
		}
	}

	levelJSON, err := json.Marshal(level)
	if err != nil {
		return "", fmt.Errorf("marshaling level: %w", err)
	}
	if _, err := h.Write(levelJSON); err != nil {
		return "", err
	}

	if _, err := fmt.Fprintf(h, "\x00%d\x00%d\x00", seed, trials); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get decodes the entry for key into v and reports whether it was found.
func (c *Cache) Get(key string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mem != nil {
		if data, ok := c.mem.Get(key); ok {
			return json.Unmarshal(data, v) == nil
		}
	}
	if c.dir == "" {
		return false
	}

	compressed, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return false
	}
	data, err := c.dec.DecodeAll(compressed, nil)
	if err != nil {
		// corrupt entry, treat as miss
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false
	}
	if c.mem != nil {
		c.mem.Add(key, data)
	}
	return true
}

// Put stores v under key in every enabled tier.
func (c *Cache) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mem != nil {
		c.mem.Add(key, data)
	}
	if c.dir == "" {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := os.WriteFile(c.cachePath(key), c.enc.EncodeAll(data, nil), 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	if c.mem == nil {
		return 0
	}
	return c.mem.Len()
}

// Clear removes all cached results. The directory is only deleted when it
// holds nothing but cache files.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mem != nil {
		c.mem.Purge()
	}
	if c.dir == "" {
		return nil
	}
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(entry.Name(), fileExt) {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+fileExt)
}

func writeString(w io.Writer, s string) error {
	// null byte delimiter prevents collisions between adjacent fields
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
