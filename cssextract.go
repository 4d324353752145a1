package cssextract

import (
	"context"
	"fmt"
	"os"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/adapters/assembler"
	"github.com/3-lines-studio/cssextract/internal/adapters/bundler"
	"github.com/3-lines-studio/cssextract/internal/adapters/cache"
	"github.com/3-lines-studio/cssextract/internal/adapters/sandbox"
	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

const (
	PluginName = "cssextract"
	// Namespace holds the virtual stylesheets of compiled styling modules.
	Namespace = "cssextract"
)

type Result = core.Result

type CompileError = core.CompileError

type ResultCache = cache.Cache

var (
	ErrInvalidMarker   = core.ErrInvalidMarker
	ErrNotSerializable = core.ErrNotSerializable
)

// NewResultCache returns a cache holding up to size results. Entries are
// dropped when any file they were computed from changes.
func NewResultCache(size int) (*ResultCache, error) {
	return cache.New(size, nil, nil)
}

// Plugin returns the esbuild plugin that compiles styling modules
// (*.css.ts and friends) at build time into their exports plus a stylesheet
// import.
func Plugin(opts ...Option) api.Plugin {
	cfg := newConfig(opts)
	if cfg.runtime {
		return bundler.FileScopePlugin(cfg.workingDir, cfg.fs)
	}

	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			var initial api.BuildOptions
			if build.InitialOptions != nil {
				initial = *build.InitialOptions
			}
			e, err := newExtractor(cfg, initial, true)
			if err != nil {
				build.OnStart(func() (api.OnStartResult, error) {
					return api.OnStartResult{}, err
				})
				return
			}
			e.register(build)
		},
	}
}

// Compile runs the pipeline for one styling module outside of an esbuild
// build. Results are cached only when WithResultCache is given.
func Compile(ctx context.Context, path string, opts ...Option) (Result, error) {
	cfg := newConfig(opts)
	e, err := newExtractor(cfg, api.BuildOptions{AbsWorkingDir: cfg.workingDir}, false)
	if err != nil {
		return Result{}, err
	}

	out := e.service.Compile(ctx, e.input(path))
	if out.Error != nil {
		return Result{}, out.Error
	}
	return out.Result, nil
}

func newExtractor(cfg *config, initial api.BuildOptions, ownCache bool) (*extractor, error) {
	cwd := initial.AbsWorkingDir
	if cwd == "" {
		cwd = cfg.workingDir
	}
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cwd = wd
	}

	identifiers, err := core.ParseIdentMode(string(cfg.identifiers))
	if err != nil {
		return nil, err
	}
	minify := cfg.minify || initial.MinifyWhitespace || initial.MinifyIdentifiers || initial.MinifySyntax

	var resultCache usecase.Cache
	switch {
	case !cfg.cache:
	case cfg.resultCache != nil:
		resultCache = cfg.resultCache
	case ownCache:
		c, err := cache.New(cache.DefaultSize, cfg.fs, cfg.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		resultCache = c
	}

	sandboxOpts := []sandbox.Option{sandbox.WithLogger(cfg.logger), sandbox.WithFileSystem(cfg.fs)}
	if cfg.env != nil {
		sandboxOpts = append(sandboxOpts, sandbox.WithEnv(cfg.env))
	}

	service := usecase.NewProcessService(
		bundler.New(cfg.fs, cfg.plugins...),
		sandbox.New(sandboxOpts...),
		assembler.New(),
		resultCache,
		cfg.logger,
	)

	return &extractor{
		cfg: cfg,
		cwd: cwd,
		compile: core.Config{
			Cache:       cfg.cache,
			OutputCSS:   cfg.outputCSS,
			Identifiers: core.DefaultIdentMode(identifiers, minify),
			Bundle: core.BundleOptions{
				External: cfg.externals,
				Define:   cfg.define,
				Loader:   cfg.loader,
			},
		},
		service:     service,
		stylesheets: cache.NewStylesheets(),
	}, nil
}
