package bundler

import (
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
)

// fingerprints records the content hash of every file a build loads from
// disk. The file is read before esbuild reads it, so a change that lands in
// between leaves an older hash behind and the result is recomputed.
type fingerprints struct {
	mu     sync.Mutex
	hashes map[string]string
}

func newFingerprints() *fingerprints {
	return &fingerprints{hashes: make(map[string]string)}
}

func (f *fingerprints) plugin(files fs.FileSystem) api.Plugin {
	return api.Plugin{
		Name: "cssextract-fingerprint",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if data, err := files.ReadFile(args.Path); err == nil {
						f.record(args.Path, core.HashContent(data))
					}
					// No contents: esbuild goes on to the next loader.
					return api.OnLoadResult{}, nil
				})
		},
	}
}

func (f *fingerprints) record(path string, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes[filepath.Clean(path)] = hash
}

// of returns the recorded hashes of deps.
func (f *fingerprints) of(deps []string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]string, len(deps))
	for _, dep := range deps {
		if hash, ok := f.hashes[filepath.Clean(dep)]; ok {
			out[dep] = hash
		}
	}
	return out
}
