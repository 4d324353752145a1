package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

// hostModules are provided by the sandbox at execution time and must never
// be bundled.
var hostModules = []string{core.FileScopeModule, core.AdapterModule}

var loaders = map[string]api.Loader{
	"base64":     api.LoaderBase64,
	"binary":     api.LoaderBinary,
	"copy":       api.LoaderCopy,
	"css":        api.LoaderCSS,
	"dataurl":    api.LoaderDataURL,
	"default":    api.LoaderDefault,
	"empty":      api.LoaderEmpty,
	"file":       api.LoaderFile,
	"global-css": api.LoaderGlobalCSS,
	"js":         api.LoaderJS,
	"json":       api.LoaderJSON,
	"jsx":        api.LoaderJSX,
	"local-css":  api.LoaderLocalCSS,
	"text":       api.LoaderText,
	"ts":         api.LoaderTS,
	"tsx":        api.LoaderTSX,
}

type Bundler struct {
	fs      fs.FileSystem
	plugins []api.Plugin
}

// New returns an esbuild backed bundler. Extra plugins run after the
// file-scope plugin.
func New(files fs.FileSystem, plugins ...api.Plugin) *Bundler {
	if files == nil {
		files = fs.NewOSFileSystem()
	}
	return &Bundler{fs: files, plugins: plugins}
}

func (b *Bundler) Bundle(ctx context.Context, input usecase.BundleInput) (usecase.BundleOutput, error) {
	if err := ctx.Err(); err != nil {
		return usecase.BundleOutput{}, err
	}

	loader, err := buildLoaders(input.Options.Loader)
	if err != nil {
		return usecase.BundleOutput{}, &core.CompileError{Kind: core.KindBundle, File: input.EntryPath, Message: err.Error(), Err: err}
	}

	loaded := newFingerprints()
	plugins := make([]api.Plugin, 0, len(b.plugins)+3)
	plugins = append(plugins, loaded.plugin(b.fs), hostModulePlugin(), FileScopePlugin(input.WorkingDir, b.fs))
	plugins = append(plugins, b.plugins...)

	result := api.Build(api.BuildOptions{
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        api.FormatCommonJS,
		Platform:      api.PlatformNode,
		Target:        api.ES2017,
		LogLevel:      api.LogLevelSilent,
		EntryPoints:   []string{input.EntryPath},
		AbsWorkingDir: input.WorkingDir,
		External:      append(append([]string(nil), hostModules...), input.Options.External...),
		Plugins:       plugins,
		Loader:        loader,
		Define:        input.Options.Define,
	})

	if len(result.Errors) > 0 {
		return usecase.BundleOutput{}, bundleError(input.EntryPath, result.Errors)
	}
	if len(result.OutputFiles) == 0 {
		return usecase.BundleOutput{}, &core.CompileError{Kind: core.KindBundle, File: input.EntryPath, Message: "bundler produced no output"}
	}

	metafile, err := ParseMetafile(result.Metafile)
	if err != nil {
		return usecase.BundleOutput{}, &core.CompileError{Kind: core.KindBundle, File: input.EntryPath, Message: err.Error(), Err: err}
	}

	var deps []string
	for _, p := range metafile.InputPaths() {
		if file, ok := inputFile(input.WorkingDir, p); ok {
			deps = append(deps, file)
		}
	}

	return usecase.BundleOutput{
		Source:       string(result.OutputFiles[0].Contents),
		Dependencies: deps,
		Fingerprints: loaded.of(deps),
	}, nil
}

// inputFile maps a metafile input to a file on disk. Inputs from other
// namespaces ("ns:path") have no file to watch.
func inputFile(cwd string, p string) (string, bool) {
	if ns, _, found := strings.Cut(p, ":"); found && !filepath.IsAbs(p) && len(ns) > 1 {
		return "", false
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), true
	}
	return filepath.Join(cwd, filepath.FromSlash(p)), true
}

func buildLoaders(names map[string]string) (map[string]api.Loader, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[string]api.Loader, len(names))
	for ext, name := range names {
		l, ok := loaders[name]
		if !ok {
			return nil, fmt.Errorf("unknown loader %q for %s", name, ext)
		}
		out[ext] = l
	}
	return out, nil
}

func bundleError(entry string, messages []api.Message) error {
	details := make([]core.ErrorDetail, 0, len(messages))
	for _, msg := range messages {
		detail := core.ErrorDetail{Message: msg.Text}
		if msg.PluginName != "" {
			detail.Message = fmt.Sprintf("[plugin %s] %s", msg.PluginName, msg.Text)
		}
		if msg.Location != nil {
			detail.File = msg.Location.File
			detail.Line = msg.Location.Line
			detail.Column = msg.Location.Column
			detail.LineText = msg.Location.LineText
		}
		details = append(details, detail)
	}

	return &core.CompileError{
		Kind:    core.KindBundle,
		File:    entry,
		Message: fmt.Sprintf("%d error(s)", len(messages)),
		Errors:  details,
	}
}
