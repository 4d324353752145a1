package core

import (
	"path/filepath"
	"strings"
)

// ScopePath is the identity of a FileScope: the module path relative to the
// working directory, always with forward slashes.
func ScopePath(cwd string, filePath string) (string, error) {
	rel, err := filepath.Rel(cwd, filePath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// ScopeFile resolves a scope path back to an absolute file path.
func ScopeFile(cwd string, scopePath string) string {
	if filepath.IsAbs(scopePath) {
		return filepath.Clean(scopePath)
	}
	return filepath.Join(cwd, filepath.FromSlash(scopePath))
}

func OwnStylesheetRef(filePath string) string {
	return "./" + filepath.Base(filePath) + OwnStylesheetSuffix
}

// RelativeImport renders the specifier used by importer to reach target.
// The result always starts with "./" or "../" so it is never mistaken for a
// package name.
func RelativeImport(importer string, target string) (string, error) {
	from := filepath.Dir(importer)
	rel, err := filepath.Rel(from, target)
	if err != nil {
		return "", err
	}

	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return rel, nil
	}

	return "./" + rel, nil
}

// StylesheetKey is the lookup key under which an entry's stylesheet is kept
// between loading the module and resolving its own-stylesheet import.
func StylesheetKey(cwd string, filePath string) string {
	rel, err := filepath.Rel(cwd, filePath)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(filePath))
	}
	return filepath.ToSlash(rel)
}

// ResolveOwnStylesheet maps an own-stylesheet specifier seen from importer to
// the stylesheet key of the module it names. ok is false for specifiers that
// do not carry the reserved suffix.
func ResolveOwnStylesheet(cwd string, importer string, specifier string) (key string, ok bool) {
	name, found := strings.CutSuffix(specifier, OwnStylesheetSuffix)
	if !found {
		return "", false
	}

	file := filepath.Join(filepath.Dir(importer), filepath.FromSlash(name))
	return StylesheetKey(cwd, file), true
}
