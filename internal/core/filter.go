package core

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// StyleModuleFilter matches authoring modules whose execution produces styles.
	StyleModuleFilter = `(?i)\.css\.(js|mjs|jsx|ts|mts|tsx)$`

	// OwnStylesheetSuffix marks the synthetic import that resolves to a
	// module's own extracted stylesheet.
	OwnStylesheetSuffix = "?__css"

	OwnStylesheetFilter = `\?__css$`

	FileScopeModule = "@vanilla-extract/css/fileScope"
	AdapterModule   = "@vanilla-extract/css/adapter"
)

var styleModuleRe = regexp.MustCompile(StyleModuleFilter)

type Dialect string

const (
	DialectTSX Dialect = "tsx"
	DialectJSX Dialect = "jsx"
)

var dialects = map[string]Dialect{
	".ts":  DialectTSX,
	".mts": DialectTSX,
	".tsx": DialectTSX,
	".js":  DialectJSX,
	".mjs": DialectJSX,
	".jsx": DialectJSX,
}

func IsStyleModule(path string) bool {
	return styleModuleRe.MatchString(path)
}

// DialectForPath picks the loader dialect purely by extension. Typed
// sources are parsed as tsx so that embedded markup keeps working.
func DialectForPath(path string) Dialect {
	ext := strings.ToLower(filepath.Ext(path))
	if d, ok := dialects[ext]; ok {
		return d
	}
	return DialectJSX
}

var hostModuleRe = regexp.MustCompile(`(?:^|/)@vanilla-extract/css/(adapter|fileScope)(?:/|$)`)

// HostModule maps a specifier, or a file inside the published
// @vanilla-extract/css package, to the host module that stands in for it.
// The package reaches its adapter and file scope through files under
// adapter/ and fileScope/; a private copy of either would never see the
// capture.
func HostModule(path string) (string, bool) {
	m := hostModuleRe.FindStringSubmatch(filepath.ToSlash(path))
	if m == nil {
		return "", false
	}
	if m[1] == "adapter" {
		return AdapterModule, true
	}
	return FileScopeModule, true
}

// MatchesExternal reports whether specifier is covered by one of the
// bundler externals: the package itself, any of its subpaths, or a pattern
// with a single "*" wildcard.
func MatchesExternal(externals []string, specifier string) bool {
	for _, ext := range externals {
		if prefix, suffix, wildcard := strings.Cut(ext, "*"); wildcard {
			if len(specifier) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) {
				return true
			}
			continue
		}
		if specifier == ext || strings.HasPrefix(specifier, ext+"/") {
			return true
		}
	}
	return false
}
