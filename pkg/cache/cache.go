// Package cache keeps downloaded package content on disk, addressed by
// BLAKE3 digest. Content-addressing makes entries self-verifying: the
// filename is the expected hash of the bytes.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/fccur/portal/pkg/hash"
)

var digestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Entry describes one cached blob.
type Entry struct {
	Digest     string
	Path       string
	Size       int64
	LastAccess time.Time
	Pinned     bool
}

// Cache is a digest-keyed LRU blob store with a size bound.
type Cache struct {
	dir     string
	maxSize int64

	mu      sync.RWMutex
	entries map[string]*Entry
	size    int64
}

// Open creates or reopens a cache at dir, rebuilding the index from the
// files already present (their names are their digests).
func Open(dir string, maxSize int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{
		dir:     dir,
		maxSize: maxSize,
		entries: make(map[string]*Entry),
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan cache dir: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !digestPattern.MatchString(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		c.entries[f.Name()] = &Entry{
			Digest:     f.Name(),
			Path:       filepath.Join(dir, f.Name()),
			Size:       info.Size(),
			LastAccess: info.ModTime(),
		}
		c.size += info.Size()
	}

	return c, nil
}

// Get returns the local path for a digest, if cached.
func (c *Cache) Get(digest string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[digest]
	if !ok {
		return "", false
	}
	entry.LastAccess = time.Now()
	return entry.Path, true
}

// GetVerified returns the local path for a digest after re-hashing the
// stored bytes. Corrupt entries are evicted and reported as a miss.
func (c *Cache) GetVerified(digest string) (string, bool) {
	path, ok := c.Get(digest)
	if !ok {
		return "", false
	}

	actual, err := hash.SumFile(path, nil)
	if err != nil || actual != digest {
		c.mu.Lock()
		c.removeLocked(digest)
		c.mu.Unlock()
		return "", false
	}
	return path, true
}

// Put stores content under its digest, verifying the bytes as they are
// written. The write is atomic (temp file then rename); on a digest
// mismatch nothing is stored.
func (c *Cache) Put(digest string, r io.Reader, size int64) (string, error) {
	if !digestPattern.MatchString(digest) {
		return "", fmt.Errorf("invalid digest %q", digest)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.size+size > c.maxSize {
		if !c.evictOldestLocked() {
			break
		}
	}

	path := filepath.Join(c.dir, digest)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	actual, err := hash.SumReader(io.TeeReader(r, f))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write content: %w", err)
	}
	if actual != digest {
		os.Remove(tmp)
		return "", fmt.Errorf("content digest %s does not match expected %s", actual, digest)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	c.entries[digest] = &Entry{
		Digest:     digest,
		Path:       path,
		Size:       info.Size(),
		LastAccess: time.Now(),
	}
	c.size += info.Size()
	return path, nil
}

// Pin protects an entry from eviction.
func (c *Cache) Pin(digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[digest]
	if !ok {
		return fmt.Errorf("not cached: %s", digest)
	}
	entry.Pinned = true
	return nil
}

// Unpin allows an entry to be evicted again.
func (c *Cache) Unpin(digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[digest]
	if !ok {
		return fmt.Errorf("not cached: %s", digest)
	}
	entry.Pinned = false
	return nil
}

// Evict removes a single entry.
func (c *Cache) Evict(digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[digest]
	if !ok {
		return nil
	}
	if entry.Pinned {
		return fmt.Errorf("cannot evict pinned entry: %s", digest)
	}
	c.removeLocked(digest)
	return nil
}

func (c *Cache) removeLocked(digest string) {
	entry, ok := c.entries[digest]
	if !ok {
		return
	}
	os.Remove(entry.Path)
	c.size -= entry.Size
	delete(c.entries, digest)
}

// evictOldestLocked removes the least recently used unpinned entry.
func (c *Cache) evictOldestLocked() bool {
	var oldest *Entry
	for _, entry := range c.entries {
		if entry.Pinned {
			continue
		}
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldest = entry
		}
	}
	if oldest == nil {
		return false
	}
	c.removeLocked(oldest.Digest)
	return true
}

// Clear removes all unpinned entries and returns how many were dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for digest, entry := range c.entries {
		if entry.Pinned {
			continue
		}
		c.removeLocked(digest)
		count++
	}
	return count
}

// Stats returns current size, the size bound, and the entry count.
func (c *Cache) Stats() (size, maxSize int64, count int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size, c.maxSize, len(c.entries)
}

// List returns a snapshot of all entries.
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, *entry)
	}
	return entries
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }
