package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
)

const (
	entryPath = "/p/a.css.ts"
	depPath   = "/p/theme.css.ts"
)

var testKey = core.CacheKey{Version: core.PipelineVersion, OutputCSS: true, Identifiers: core.IdentDebug}

func newTestCache(t *testing.T, files *fs.MemoryFileSystem) *Cache {
	t.Helper()
	c, err := New(16, files, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return c
}

func testFiles() *fs.MemoryFileSystem {
	return fs.NewMemoryFileSystem(map[string]string{
		entryPath: "export const a = style({});",
		depPath:   "export const vars = createTheme({});",
	})
}

func countingCompute(calls *atomic.Int32) func(context.Context) (core.Result, error) {
	return func(context.Context) (core.Result, error) {
		n := calls.Add(1)
		return core.Result{
			JS:           fmt.Sprintf("export const run = %d;", n),
			CSS:          ".x{}",
			Dependencies: []string{depPath, entryPath},
		}, nil
	}
}

func TestCacheHit(t *testing.T) {
	c := newTestCache(t, testFiles())
	var calls atomic.Int32

	first, err := c.Get(context.Background(), entryPath, testKey, countingCompute(&calls))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := c.Get(context.Background(), entryPath, testKey, countingCompute(&calls))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected 1 computation, got %d", calls.Load())
	}
	if first.JS != second.JS {
		t.Errorf("Expected cached result, got %q and %q", first.JS, second.JS)
	}
}

func TestCacheKeyedByConfiguration(t *testing.T) {
	c := newTestCache(t, testFiles())
	var calls atomic.Int32

	short := testKey
	short.Identifiers = core.IdentShort

	for _, k := range []core.CacheKey{testKey, short, testKey, short} {
		if _, err := c.Get(context.Background(), entryPath, k, countingCompute(&calls)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("Expected one computation per key, got %d", calls.Load())
	}
}

func TestCacheInvalidatesOnDependencyChange(t *testing.T) {
	files := testFiles()
	c := newTestCache(t, files)
	var calls atomic.Int32

	get := func() core.Result {
		t.Helper()
		res, err := c.Get(context.Background(), entryPath, testKey, countingCompute(&calls))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		return res
	}

	get()
	if err := files.WriteFile(depPath, []byte("export const vars = createTheme({ a: 1 });"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	res := get()

	if calls.Load() != 2 {
		t.Errorf("Expected recomputation after dependency change, got %d computations", calls.Load())
	}
	if res.JS != "export const run = 2;" {
		t.Errorf("Expected fresh result, got %q", res.JS)
	}

	files.Remove(depPath)
	get()
	if calls.Load() != 3 {
		t.Errorf("Expected recomputation after dependency removal, got %d computations", calls.Load())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	c := newTestCache(t, testFiles())
	var calls atomic.Int32

	short := testKey
	short.Identifiers = core.IdentShort
	if _, err := c.Get(context.Background(), entryPath, short, countingCompute(&calls)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	boom := errors.New("boom")
	_, err := c.Get(context.Background(), entryPath, testKey, func(context.Context) (core.Result, error) {
		calls.Add(1)
		return core.Result{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected a failure to drop every entry for the path, got %d", c.Len())
	}

	if _, err := c.Get(context.Background(), entryPath, testKey, countingCompute(&calls)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected failure to be recomputed, got %d computations", calls.Load())
	}
}

func TestCacheUsesBundleTimeFingerprints(t *testing.T) {
	files := testFiles()
	c := newTestCache(t, files)
	var calls atomic.Int32

	original, err := files.ReadFile(depPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The dependency is edited after the bundler read it but before the
	// result is stored.
	compute := func(ctx context.Context) (core.Result, error) {
		res, err := countingCompute(&calls)(ctx)
		res.Fingerprints = map[string]string{depPath: core.HashContent(original)}
		if calls.Load() == 1 {
			if err := files.WriteFile(depPath, []byte("export const vars = createTheme({ edited: 1 });"), 0o644); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		}
		return res, err
	}

	if _, err := c.Get(context.Background(), entryPath, testKey, compute); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	res, err := c.Get(context.Background(), entryPath, testKey, countingCompute(&calls))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("Expected the edit to invalidate the entry, got %d computations", calls.Load())
	}
	if res.JS != "export const run = 2;" {
		t.Errorf("Expected fresh result, got %q", res.JS)
	}
}

func TestCacheCoalescesConcurrentRequests(t *testing.T) {
	c := newTestCache(t, testFiles())
	var calls atomic.Int32

	compute := func(ctx context.Context) (core.Result, error) {
		time.Sleep(20 * time.Millisecond)
		return countingCompute(&calls)(ctx)
	}

	var wg sync.WaitGroup
	results := make([]core.Result, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Get(context.Background(), entryPath, testKey, compute)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			results[i] = res
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected 1 computation, got %d", calls.Load())
	}
	for i, res := range results {
		if res.JS != results[0].JS {
			t.Errorf("result %d differs: %q", i, res.JS)
		}
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := newTestCache(t, testFiles())
	var calls atomic.Int32

	short := testKey
	short.Identifiers = core.IdentShort
	for _, k := range []core.CacheKey{testKey, short} {
		if _, err := c.Get(context.Background(), entryPath, k, countingCompute(&calls)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", c.Len())
	}

	c.Invalidate(entryPath)
	if c.Len() != 0 {
		t.Errorf("Expected every entry for the path to be dropped, got %d", c.Len())
	}
}

func TestStylesheets(t *testing.T) {
	s := NewStylesheets()
	s.Set("src/a.css.ts", ".a{color:red}")
	s.Set("src/empty.css.ts", "")

	if css, ok := s.Get("src/a.css.ts"); !ok || css != ".a{color:red}" {
		t.Errorf("Unexpected stylesheet %q", css)
	}
	if _, ok := s.Get("src/empty.css.ts"); !ok {
		t.Error("Expected empty stylesheet to be known")
	}
	if _, ok := s.Get("src/missing.css.ts"); ok {
		t.Error("Expected unknown key to be missing")
	}

	s.Delete("src/a.css.ts")
	if _, ok := s.Get("src/a.css.ts"); ok {
		t.Error("Expected deleted stylesheet to be gone")
	}
}
