package cache

import (
	"context"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

const DefaultSize = 512

const keySeparator = "\x00"

type entry struct {
	result core.Result
	// content hash per dependency as it was compiled; "" for a file that
	// could not be read
	fingerprints map[string]string
}

// Cache memoizes pipeline results per (path, key). An entry is reused only
// while every dependency it was computed from still has the same content.
// Concurrent misses for the same key share one computation.
type Cache struct {
	entries *lru.Cache[string, entry]
	group   singleflight.Group
	fs      fs.FileSystem
	logger  *slog.Logger
}

func New(size int, files fs.FileSystem, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if files == nil {
		files = fs.NewOSFileSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, fs: files, logger: logger}, nil
}

var _ usecase.Cache = (*Cache)(nil)

func (c *Cache) Get(ctx context.Context, path string, key core.CacheKey, compute usecase.ComputeFunc) (core.Result, error) {
	k := path + keySeparator + key.String()

	if result, ok := c.lookup(k); ok {
		return result, nil
	}

	v, err, shared := c.group.Do(k, func() (any, error) {
		if result, ok := c.lookup(k); ok {
			return result, nil
		}
		result, err := compute(ctx)
		if err != nil {
			// Results under other keys were built from sources that no
			// longer compile.
			c.Invalidate(path)
			return nil, err
		}
		c.entries.Add(k, entry{result: result, fingerprints: c.fingerprints(result)})
		return result, nil
	})
	if err != nil {
		return core.Result{}, err
	}
	if shared {
		c.logger.Debug("cache coalesced", "file", path)
	}
	return v.(core.Result), nil
}

func (c *Cache) lookup(k string) (core.Result, bool) {
	e, ok := c.entries.Get(k)
	if !ok {
		return core.Result{}, false
	}
	for dep, want := range e.fingerprints {
		if want == "" || c.fingerprint(dep) != want {
			c.entries.Remove(k)
			c.logger.Debug("cache invalidated", "dependency", dep)
			return core.Result{}, false
		}
	}
	return e.result, true
}

// fingerprints prefers the hashes taken while bundling. A dependency without
// one is read now.
func (c *Cache) fingerprints(result core.Result) map[string]string {
	out := make(map[string]string, len(result.Dependencies))
	for _, dep := range result.Dependencies {
		if hash, ok := result.Fingerprints[dep]; ok {
			out[dep] = hash
			continue
		}
		out[dep] = c.fingerprint(dep)
	}
	return out
}

func (c *Cache) fingerprint(path string) string {
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return ""
	}
	return core.HashContent(data)
}

// Invalidate drops every entry stored for path, under any key.
func (c *Cache) Invalidate(path string) {
	prefix := path + keySeparator
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
