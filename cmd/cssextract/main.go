package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/3-lines-studio/cssextract"
	"github.com/3-lines-studio/cssextract/internal/adapters/cli"
	"github.com/3-lines-studio/cssextract/internal/adapters/env"
	"github.com/3-lines-studio/cssextract/internal/core"
)

type flags struct {
	outdir      string
	print       bool
	minify      bool
	identifiers string
	noCache     bool
	noCSS       bool
	externals   string
	jobs        int
	noColor     bool
}

func main() {
	output := cli.NewOutput()

	var f flags
	flag.StringVar(&f.outdir, "outdir", "dist", "output directory for bundled entries")
	flag.BoolVar(&f.print, "print", false, "compile styling modules and print their module text and stylesheet")
	flag.BoolVar(&f.minify, "minify", false, "minify output; also selects short class names")
	flag.StringVar(&f.identifiers, "identifiers", "", `class name style: "short" or "debug"`)
	flag.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	flag.BoolVar(&f.noCSS, "no-css", false, "do not emit stylesheets")
	flag.StringVar(&f.externals, "external", "", "comma separated packages to keep out of the build-time bundle")
	flag.IntVar(&f.jobs, "j", runtime.NumCPU(), "files compiled in parallel with -print")
	flag.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	flag.Parse()

	if f.noColor {
		output.DisableColors()
	}

	if flag.NArg() == 0 {
		output.PrintHeader("cssextract")
		output.PrintError("Missing entry file argument")
		fmt.Println()
		output.PrintStep("Usage: cssextract [flags] <entry>...")
		output.PrintStep("Example: cssextract -outdir dist ./src/index.ts")
		output.PrintStep("Example: cssextract -print ./src/button.css.ts")
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		output.PrintError("Failed to get current working directory: %v", err)
		os.Exit(1)
	}

	cfg, err := env.Load(cwd)
	if err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	opts, err := options(f, cfg, cwd, logger)
	if err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}

	var report *cli.CompileReport
	if f.print {
		report = printModules(context.Background(), output, flag.Args(), f.jobs, opts)
	} else {
		report = bundle(output, flag.Args(), f, cwd, opts)
	}

	report.Render(os.Stdout, os.Stderr)
	if report.HasFailures() {
		os.Exit(1)
	}
}

func options(f flags, cfg env.Config, cwd string, logger *slog.Logger) ([]cssextract.Option, error) {
	identifiers := cfg.Identifiers
	if f.identifiers != "" {
		mode, err := core.ParseIdentMode(f.identifiers)
		if err != nil {
			return nil, err
		}
		identifiers = mode
	}

	opts := []cssextract.Option{
		cssextract.WithLogger(logger),
		cssextract.WithWorkingDir(cwd),
		cssextract.WithMinify(f.minify),
		cssextract.WithCache(cfg.Cache && !f.noCache),
		cssextract.WithOutputCSS(cfg.OutputCSS && !f.noCSS),
		cssextract.WithEnv(env.Environ()),
	}
	if identifiers != "" {
		opts = append(opts, cssextract.WithIdentifiers(string(identifiers)))
	}
	if f.externals != "" {
		opts = append(opts, cssextract.WithExternals(strings.Split(f.externals, ",")...))
	}
	return opts, nil
}

func bundle(output *cli.Output, entries []string, f flags, cwd string, opts []cssextract.Option) *cli.CompileReport {
	outdir := f.outdir
	if !filepath.IsAbs(outdir) {
		outdir = filepath.Join(cwd, outdir)
	}
	report := cli.NewCompileReport(output, outdir)

	start := time.Now()
	result := api.Build(api.BuildOptions{
		EntryPoints:       entries,
		AbsWorkingDir:     cwd,
		Outdir:            outdir,
		Bundle:            true,
		Write:             true,
		Format:            api.FormatESModule,
		MinifyWhitespace:  f.minify,
		MinifyIdentifiers: f.minify,
		MinifySyntax:      f.minify,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{cssextract.Plugin(opts...)},
	})
	duration := time.Since(start)

	for _, warning := range result.Warnings {
		output.PrintWarning("%s", formatMessage(warning))
	}
	if len(result.Errors) > 0 {
		report.AddFailure(strings.Join(entries, ", "), duration, buildError(result.Errors))
		return report
	}
	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(cwd, file.Path)
		if err != nil {
			rel = file.Path
		}
		report.AddSuccess(rel, duration, 0)
	}
	return report
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

func buildError(messages []api.Message) error {
	ce := &core.CompileError{Kind: core.KindBundle, Message: fmt.Sprintf("%d build errors", len(messages))}
	for _, msg := range messages {
		detail := core.ErrorDetail{Message: msg.Text}
		if msg.Location != nil {
			detail.File = msg.Location.File
			detail.Line = msg.Location.Line
			detail.Column = msg.Location.Column
			detail.LineText = msg.Location.LineText
		}
		ce.Errors = append(ce.Errors, detail)
	}
	return ce
}

type printed struct {
	path string
	res  cssextract.Result
	ok   bool
}

// printModules compiles files concurrently and prints them in argument
// order once all are done.
func printModules(ctx context.Context, output *cli.Output, files []string, jobs int, opts []cssextract.Option) *cli.CompileReport {
	report := cli.NewCompileReport(output, "")

	shared, err := cssextract.NewResultCache(len(files))
	if err == nil {
		opts = append(opts, cssextract.WithResultCache(shared))
	}

	results := make([]printed, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, file := range files {
		i, file := i, file
		if !core.IsStyleModule(file) {
			report.AddFailure(file, 0, fmt.Errorf("%s is not a styling module (want *.css.ts, *.css.js and the like)", file))
			continue
		}
		g.Go(func() error {
			start := time.Now()
			res, err := cssextract.Compile(ctx, file, opts...)
			if err != nil {
				report.AddFailure(file, time.Since(start), err)
				return nil
			}
			report.AddSuccess(file, time.Since(start), len(res.Dependencies))
			results[i] = printed{path: file, res: res, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range results {
		if p.ok {
			output.PrintModule(p.path, p.res.JS, p.res.CSS)
		}
	}
	return report
}
