package cssextract

import (
	"log/slog"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
)

// ProcessCSSFunc post-processes the stylesheet of one styling module before
// it is handed to the host build.
type ProcessCSSFunc func(css string, path string) (string, error)

type config struct {
	cache       bool
	outputCSS   bool
	identifiers core.IdentMode
	minify      bool
	workingDir  string
	externals   []string
	define      map[string]string
	loader      map[string]string
	plugins     []api.Plugin
	runtime     bool
	processCSS  ProcessCSSFunc
	logger      *slog.Logger
	resultCache *ResultCache
	env         map[string]string
	fs          fs.FileSystem
}

type Option func(*config)

func newConfig(opts []Option) *config {
	cfg := &config{
		cache:     true,
		outputCSS: true,
		logger:    slog.Default(),
		fs:        fs.NewOSFileSystem(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCache toggles result caching. Caching is on by default.
func WithCache(enabled bool) Option {
	return func(c *config) {
		c.cache = enabled
	}
}

// WithOutputCSS toggles stylesheet emission. When disabled, styling modules
// compile to their exports only.
func WithOutputCSS(enabled bool) Option {
	return func(c *config) {
		c.outputCSS = enabled
	}
}

// WithIdentifiers forces "short" or "debug" class names. Without it the
// mode follows the host build's minify setting.
func WithIdentifiers(mode string) Option {
	return func(c *config) {
		c.identifiers = core.IdentMode(mode)
	}
}

// WithMinify marks the build as minified for Compile, which has no host
// build options to inspect.
func WithMinify(minify bool) Option {
	return func(c *config) {
		c.minify = minify
	}
}

func WithWorkingDir(dir string) Option {
	return func(c *config) {
		c.workingDir = dir
	}
}

// WithExternals keeps the named packages out of the build-time bundle.
func WithExternals(externals ...string) Option {
	return func(c *config) {
		c.externals = append(c.externals, externals...)
	}
}

func WithDefine(define map[string]string) Option {
	return func(c *config) {
		c.define = define
	}
}

// WithLoader maps file extensions to esbuild loader names ("ts", "text",
// "file", ...) for the build-time bundle.
func WithLoader(loader map[string]string) Option {
	return func(c *config) {
		c.loader = loader
	}
}

// WithPlugins adds esbuild plugins to the build-time bundle.
func WithPlugins(plugins ...api.Plugin) Option {
	return func(c *config) {
		c.plugins = append(c.plugins, plugins...)
	}
}

// WithRuntime makes Plugin return only the file-scope plugin, for builds
// that create styles at runtime.
func WithRuntime() Option {
	return func(c *config) {
		c.runtime = true
	}
}

func WithProcessCSS(fn ProcessCSSFunc) Option {
	return func(c *config) {
		c.processCSS = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResultCache shares one result cache between builds, e.g. across
// rebuilds in watch mode.
func WithResultCache(cache *ResultCache) Option {
	return func(c *config) {
		c.resultCache = cache
	}
}

// WithEnv sets process.env as seen by styling modules at build time.
func WithEnv(env map[string]string) Option {
	return func(c *config) {
		c.env = env
	}
}
