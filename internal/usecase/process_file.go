package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/3-lines-studio/cssextract/internal/core"
)

type CompileInput struct {
	FilePath   string
	WorkingDir string
	Config     core.Config
}

type CompileOutput struct {
	Result core.Result
	Error  error
}

type ProcessService struct {
	bundler   Bundler
	sandbox   Sandbox
	assembler Assembler
	cache     Cache
	logger    *slog.Logger
}

func NewProcessService(bundler Bundler, sandbox Sandbox, assembler Assembler, cache Cache, logger *slog.Logger) *ProcessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessService{
		bundler:   bundler,
		sandbox:   sandbox,
		assembler: assembler,
		cache:     cache,
		logger:    logger,
	}
}

// Compile runs the pipeline behind the cache boundary. With caching
// disabled, or without a cache, every call recomputes.
func (s *ProcessService) Compile(ctx context.Context, input CompileInput) CompileOutput {
	input, err := normalizeInput(input)
	if err != nil {
		return CompileOutput{Error: err}
	}

	compute := func(ctx context.Context) (core.Result, error) {
		return s.process(ctx, input)
	}

	var result core.Result
	if input.Config.Cache && s.cache != nil {
		result, err = s.cache.Get(ctx, input.FilePath, core.NewCacheKey(input.Config), compute)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		return CompileOutput{Error: err}
	}

	return CompileOutput{Result: result}
}

// Process runs the pipeline once, without consulting the cache.
func (s *ProcessService) Process(ctx context.Context, input CompileInput) (core.Result, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return core.Result{}, err
	}
	return s.process(ctx, input)
}

func (s *ProcessService) process(ctx context.Context, input CompileInput) (core.Result, error) {
	file := input.FilePath
	cwd := input.WorkingDir
	cfg := input.Config

	start := time.Now()
	bundle, err := s.bundler.Bundle(ctx, BundleInput{
		EntryPath:  file,
		WorkingDir: cwd,
		Options:    cfg.Bundle,
	})
	if err != nil {
		return core.Result{}, core.WithFile(err, file)
	}
	s.logger.Debug("bundle timing", "file", file, "duration", time.Since(start), "inputs", len(bundle.Dependencies))

	if err := ctx.Err(); err != nil {
		return core.Result{}, err
	}

	capture := core.NewCapture(cfg.OutputCSS, cfg.Identifiers)

	start = time.Now()
	exports, err := s.sandbox.Execute(ctx, ExecuteInput{
		Source:     bundle.Source,
		EntryPath:  file,
		WorkingDir: cwd,
		Capture:    capture,
		External:   cfg.Bundle.External,
	})
	if err != nil {
		return core.Result{}, core.WithFile(err, file)
	}
	s.logger.Debug("execute timing", "file", file, "duration", time.Since(start))

	routes, err := core.RouteScopes(cwd, file, capture.Scopes())
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to route stylesheets for %s: %w", file, err)
	}

	var css string
	for _, route := range routes {
		if !route.IsEntry() {
			continue
		}
		css, err = s.assembler.Assemble(AssembleInput{
			File:               file,
			IdentMode:          capture.IdentMode(),
			LocalClassNames:    capture.LocalClassNames(),
			ComposedClassLists: capture.ComposedClassLists(),
			Fragments:          capture.Fragments(route.Scope),
		})
		if err != nil {
			return core.Result{}, fmt.Errorf("failed to assemble stylesheet for %s: %w", file, err)
		}
	}

	unused := core.UnusedCompositionPattern(capture.UnusedCompositions())
	js, err := core.SerializeModule(core.ImportStatements(routes), exports, unused)
	if err != nil {
		return core.Result{}, core.WithFile(err, file)
	}

	deps := slices.Clone(bundle.Dependencies)
	slices.Reverse(deps)

	return core.Result{
		JS:           js,
		CSS:          css,
		Dependencies: deps,
		Fingerprints: bundle.Fingerprints,
	}, nil
}

func normalizeInput(input CompileInput) (CompileInput, error) {
	if input.WorkingDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return input, fmt.Errorf("failed to get working directory: %w", err)
		}
		input.WorkingDir = cwd
	}
	input.WorkingDir = filepath.Clean(input.WorkingDir)

	if filepath.IsAbs(input.FilePath) {
		input.FilePath = filepath.Clean(input.FilePath)
	} else {
		input.FilePath = filepath.Join(input.WorkingDir, input.FilePath)
	}
	return input, nil
}
