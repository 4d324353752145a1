package cssextract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/adapters/cache"
	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

// extractor is the per-build state of the plugin. Stylesheets live only as
// long as the build that compiled them.
type extractor struct {
	cfg         *config
	cwd         string
	compile     core.Config
	service     *usecase.ProcessService
	stylesheets *cache.Stylesheets
}

func (e *extractor) register(build api.PluginBuild) {
	build.OnLoad(api.OnLoadOptions{Filter: core.StyleModuleFilter}, e.loadStyleModule)
	build.OnResolve(api.OnResolveOptions{Filter: core.OwnStylesheetFilter}, e.resolveStylesheet)
	build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: Namespace}, e.loadStylesheet)
}

func (e *extractor) input(path string) usecase.CompileInput {
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.cwd, path)
	}
	return usecase.CompileInput{
		FilePath:   path,
		WorkingDir: e.cwd,
		Config:     e.compile,
	}
}

func (e *extractor) loadStyleModule(args api.OnLoadArgs) (api.OnLoadResult, error) {
	if args.Namespace != "file" && args.Namespace != "" {
		return api.OnLoadResult{}, nil
	}

	key := core.StylesheetKey(e.cwd, args.Path)
	out := e.service.Compile(context.Background(), e.input(args.Path))
	if out.Error != nil {
		// A rebuild must not serve the stylesheet of the last good compile.
		e.stylesheets.Delete(key)
		return api.OnLoadResult{Errors: pluginMessages(out.Error)}, nil
	}

	e.stylesheets.Set(key, out.Result.CSS)

	js := out.Result.JS
	return api.OnLoadResult{
		Contents:   &js,
		Loader:     api.LoaderJS,
		ResolveDir: filepath.Dir(args.Path),
		WatchFiles: out.Result.Dependencies,
	}, nil
}

func (e *extractor) resolveStylesheet(args api.OnResolveArgs) (api.OnResolveResult, error) {
	if args.Importer == "" {
		return api.OnResolveResult{}, nil
	}

	key, ok := core.ResolveOwnStylesheet(e.cwd, args.Importer, args.Path)
	if !ok {
		return api.OnResolveResult{}, nil
	}
	if _, known := e.stylesheets.Get(key); !known {
		return api.OnResolveResult{}, nil
	}

	return api.OnResolveResult{Path: key, Namespace: Namespace}, nil
}

func (e *extractor) loadStylesheet(args api.OnLoadArgs) (api.OnLoadResult, error) {
	css, ok := e.stylesheets.Get(args.Path)
	if !ok {
		return api.OnLoadResult{}, fmt.Errorf("no stylesheet was compiled for %s", args.Path)
	}

	file := filepath.Join(e.cwd, filepath.FromSlash(args.Path))
	if e.cfg.processCSS != nil {
		processed, err := e.cfg.processCSS(css, file)
		if err != nil {
			return api.OnLoadResult{}, fmt.Errorf("processCSS failed for %s: %w", args.Path, err)
		}
		css = processed
	}

	return api.OnLoadResult{
		Contents:   &css,
		Loader:     api.LoaderCSS,
		ResolveDir: filepath.Dir(file),
	}, nil
}

// pluginMessages turns a pipeline failure into esbuild messages, one per
// bundler detail when there are any.
func pluginMessages(err error) []api.Message {
	var ce *core.CompileError
	if !errors.As(err, &ce) {
		return []api.Message{{Text: err.Error(), Detail: err}}
	}

	if len(ce.Errors) == 0 {
		msg := api.Message{Text: ce.Error(), Detail: err}
		if ce.File != "" {
			msg.Location = &api.Location{File: ce.File}
		}
		return []api.Message{msg}
	}

	msgs := make([]api.Message, 0, len(ce.Errors))
	for _, d := range ce.Errors {
		msg := api.Message{Text: d.Message, Detail: err}
		if d.File != "" {
			msg.Location = &api.Location{
				File:     d.File,
				Line:     d.Line,
				Column:   d.Column,
				LineText: d.LineText,
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
