package core

import "fmt"

type IdentMode string

const (
	IdentShort IdentMode = "short"
	IdentDebug IdentMode = "debug"
)

func ParseIdentMode(s string) (IdentMode, error) {
	switch IdentMode(s) {
	case IdentShort, IdentDebug:
		return IdentMode(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown identifiers mode %q (want %q or %q)", s, IdentShort, IdentDebug)
}

// DefaultIdentMode is used when no mode was configured: short identifiers for
// minified builds, readable ones otherwise.
func DefaultIdentMode(configured IdentMode, minify bool) IdentMode {
	if configured != "" {
		return configured
	}
	if minify {
		return IdentShort
	}
	return IdentDebug
}

// BundleOptions are passed through to the bundler untouched.
type BundleOptions struct {
	External []string
	Define   map[string]string
	Loader   map[string]string
}

type Config struct {
	Cache       bool
	OutputCSS   bool
	Identifiers IdentMode
	Bundle      BundleOptions
}

// Result is everything one styling module compiles to.
type Result struct {
	JS           string
	CSS          string
	Dependencies []string
	// Fingerprints holds the HashContent of each dependency as the bundler
	// read it. Files the bundler did not load from disk are absent.
	Fingerprints map[string]string
}
