package core

import (
	"fmt"
	"sort"
	"strings"
)

// PipelineVersion invalidates every stored result when the output format changes.
const PipelineVersion = 1

type CacheKey struct {
	Version            int
	OutputCSS          bool
	Identifiers        IdentMode
	BundlerFingerprint string
}

func NewCacheKey(cfg Config) CacheKey {
	return CacheKey{
		Version:            PipelineVersion,
		OutputCSS:          cfg.OutputCSS,
		Identifiers:        cfg.Identifiers,
		BundlerFingerprint: BundleFingerprint(cfg.Bundle),
	}
}

func (k CacheKey) String() string {
	return fmt.Sprintf("v%d|css=%t|ident=%s|bundle=%s", k.Version, k.OutputCSS, k.Identifiers, k.BundlerFingerprint)
}

// BundleFingerprint hashes the bundler passthrough options. Map entries are
// sorted so that equal options always produce the same fingerprint.
func BundleFingerprint(opts BundleOptions) string {
	var sb strings.Builder
	sb.WriteString("external:")
	sb.WriteString(strings.Join(opts.External, ","))
	writeSortedMap(&sb, "define", opts.Define)
	writeSortedMap(&sb, "loader", opts.Loader)
	return HashString(sb.String())
}

func writeSortedMap(sb *strings.Builder, label string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(sb, ";%s:", label)
	for _, k := range keys {
		fmt.Fprintf(sb, "%s=%s,", k, m[k])
	}
}
