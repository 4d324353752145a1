package bundler

import (
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/core"
)

// hostModulePlugin keeps every route into the adapter and file scope
// modules external, including the relative requires the published
// @vanilla-extract/css package makes into its own adapter/ and fileScope/
// builds.
func hostModulePlugin() api.Plugin {
	return api.Plugin{
		Name: "cssextract-host-modules",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `(^|/)(adapter|fileScope)(/|$)`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					target := args.Path
					if strings.HasPrefix(target, ".") && args.ResolveDir != "" {
						target = filepath.Join(args.ResolveDir, target)
					}
					if module, ok := core.HostModule(target); ok {
						return api.OnResolveResult{Path: module, External: true}, nil
					}
					return api.OnResolveResult{}, nil
				})
		},
	}
}
