package bundler

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
)

var dialectLoaders = map[core.Dialect]api.Loader{
	core.DialectTSX: api.LoaderTSX,
	core.DialectJSX: api.LoaderJSX,
}

// FileScopePlugin annotates every styling module esbuild loads from disk so
// that styles it produces are attributed to that module. An empty cwd falls
// back to the build's working directory.
func FileScopePlugin(cwd string, files fs.FileSystem) api.Plugin {
	return api.Plugin{
		Name: "cssextract-filescope",
		Setup: func(build api.PluginBuild) {
			root := cwd
			if root == "" && build.InitialOptions != nil {
				root = build.InitialOptions.AbsWorkingDir
			}

			build.OnLoad(api.OnLoadOptions{Filter: core.StyleModuleFilter, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					return annotateFile(root, files, args.Path)
				})
		},
	}
}

func annotateFile(cwd string, files fs.FileSystem, path string) (api.OnLoadResult, error) {
	source, err := files.ReadFile(path)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	scope, err := core.ScopePath(cwd, path)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("failed to compute file scope for %s: %w", path, err)
	}

	contents := core.Annotate(string(source), scope)
	return api.OnLoadResult{
		Contents: &contents,
		Loader:   dialectLoaders[core.DialectForPath(path)],
	}, nil
}
