package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/3-lines-studio/cssextract/internal/core"
)

const (
	IdentifiersVar = "CSSEXTRACT_IDENTIFIERS"
	CacheVar       = "CSSEXTRACT_CACHE"
	OutputCSSVar   = "CSSEXTRACT_OUTPUT_CSS"
	DebugVar       = "CSSEXTRACT_DEBUG"
)

// Config is the CLI configuration read from the environment. Flags
// override it.
type Config struct {
	Identifiers core.IdentMode
	Cache       bool
	OutputCSS   bool
	Debug       bool
}

// Load reads an optional .env file from dir and then the process
// environment. Variables already set in the environment win over .env.
func Load(dir string) (Config, error) {
	path := ".env"
	if dir != "" {
		path = dir + string(os.PathSeparator) + ".env"
	}
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{Cache: true, OutputCSS: true}

	if raw, ok := lookup(IdentifiersVar); ok && strings.TrimSpace(raw) != "" {
		mode, err := core.ParseIdentMode(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", IdentifiersVar, err)
		}
		cfg.Identifiers = mode
	}

	var err error
	if cfg.Cache, err = boolVar(lookup, CacheVar, cfg.Cache); err != nil {
		return Config{}, err
	}
	if cfg.OutputCSS, err = boolVar(lookup, OutputCSSVar, cfg.OutputCSS); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = boolVar(lookup, DebugVar, cfg.Debug); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

func boolVar(lookup func(string) (string, bool), name string, def bool) (bool, error) {
	raw, ok := lookup(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def, fmt.Errorf("%s: expected a boolean, got %q", name, raw)
	}
	return v, nil
}
