package index

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/zerr"
)

// Cache stores raw index responses on disk. Entries older than the TTL are misses.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{
		dir: filepath.Clean(dir),
		ttl: ttl,
		now: time.Now,
	}
}

// Key derives a cache key from the request parts.
func Key(parts ...string) string {
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "\x00")), 16)
}

func (c *Cache) path(manager domain.Manager, key string) string {
	return filepath.Join(c.dir, string(manager), key+".json")
}

// Get returns a fresh cached response. It returns domain.ErrCacheMiss when
// the entry is missing or stale.
func (c *Cache) Get(manager domain.Manager, key string) ([]byte, error) {
	path := c.path(manager, key)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		return nil, domain.ErrCacheMiss
	}

	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return data, nil
}

// Put stores a response.
func (c *Cache) Put(manager domain.Manager, key string, data []byte) error {
	return atomicWriteFile(c.path(manager, key), data)
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrIndexCacheCreateFailed.Error())
	}

	tmpFile, err := os.CreateTemp(dir, "index-cache-*.json")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	tmpName := tmpFile.Name()

	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := tmpFile.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}
