package usecase

import (
	"context"

	"github.com/3-lines-studio/cssextract/internal/core"
)

type BundleInput struct {
	EntryPath  string
	WorkingDir string
	Options    core.BundleOptions
}

type BundleOutput struct {
	Source       string
	Dependencies []string
	Fingerprints map[string]string
}

// Bundler turns an entry module and its imports into one executable unit,
// applying the file-scope annotation to every styling module it loads.
type Bundler interface {
	Bundle(ctx context.Context, input BundleInput) (BundleOutput, error)
}

type ExecuteInput struct {
	Source     string
	EntryPath  string
	WorkingDir string
	Capture    *core.Capture
	// External lists the packages the bundle left for require to load
	// from node_modules.
	External []string
}

// Sandbox runs a bundled unit once with the capture installed as the style
// adapter and returns the unit's exports.
type Sandbox interface {
	Execute(ctx context.Context, input ExecuteInput) (*core.Exports, error)
}

type AssembleInput struct {
	File               string
	IdentMode          core.IdentMode
	LocalClassNames    []string
	ComposedClassLists []core.ComposedClassList
	Fragments          []core.StyleFragment
}

// Assembler must be a pure function of its input.
type Assembler interface {
	Assemble(input AssembleInput) (string, error)
}

type ComputeFunc func(ctx context.Context) (core.Result, error)

type Cache interface {
	Get(ctx context.Context, path string, key core.CacheKey, compute ComputeFunc) (core.Result, error)
}
