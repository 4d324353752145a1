package core

import (
	"path/filepath"
	"testing"
)

func TestScopePath(t *testing.T) {
	cwd := filepath.FromSlash("/project")

	tests := []struct {
		name string
		file string
		want string
	}{
		{"file in cwd", "/project/button.css.ts", "button.css.ts"},
		{"nested file", "/project/src/styles/theme.css.ts", "src/styles/theme.css.ts"},
		{"file outside cwd", "/other/theme.css.ts", "../other/theme.css.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScopePath(cwd, filepath.FromSlash(tt.file))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestScopeFileRoundTrip(t *testing.T) {
	cwd := filepath.FromSlash("/project")
	file := filepath.FromSlash("/project/src/a.css.ts")

	scope, err := ScopePath(cwd, file)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := ScopeFile(cwd, scope); got != file {
		t.Errorf("Expected %s, got %s", file, got)
	}
}

func TestOwnStylesheetRef(t *testing.T) {
	got := OwnStylesheetRef(filepath.FromSlash("/project/src/button.css.ts"))
	if got != "./button.css.ts?__css" {
		t.Errorf("Expected ./button.css.ts?__css, got %q", got)
	}
}

func TestRelativeImport(t *testing.T) {
	tests := []struct {
		name     string
		importer string
		target   string
		want     string
	}{
		{"sibling", "/p/src/a.css.ts", "/p/src/b.css.ts", "./b.css.ts"},
		{"child dir", "/p/src/a.css.ts", "/p/src/theme/vars.css.ts", "./theme/vars.css.ts"},
		{"parent dir", "/p/src/a.css.ts", "/p/theme.css.ts", "../theme.css.ts"},
		{"two levels up", "/p/src/deep/a.css.ts", "/p/theme.css.ts", "../../theme.css.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativeImport(filepath.FromSlash(tt.importer), filepath.FromSlash(tt.target))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolveOwnStylesheet(t *testing.T) {
	cwd := filepath.FromSlash("/project")
	importer := filepath.FromSlash("/project/src/button.css.ts")

	key, ok := ResolveOwnStylesheet(cwd, importer, "./button.css.ts?__css")
	if !ok {
		t.Fatal("Expected specifier to resolve")
	}
	if key != "src/button.css.ts" {
		t.Errorf("Expected src/button.css.ts, got %q", key)
	}
	if key != StylesheetKey(cwd, importer) {
		t.Errorf("Expected resolved key to match the stylesheet key of the importer")
	}

	if _, ok := ResolveOwnStylesheet(cwd, importer, "./button.css.ts"); ok {
		t.Error("Expected specifier without suffix not to resolve")
	}
}

func TestIsStyleModule(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"button.css.ts", true},
		{"button.css.tsx", true},
		{"button.css.mts", true},
		{"button.css.js", true},
		{"button.css.mjs", true},
		{"button.css.jsx", true},
		{"BUTTON.CSS.TS", true},
		{"button.css", false},
		{"button.ts", false},
		{"button.css.ts.map", false},
		{"button.css.cjs", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsStyleModule(tt.path); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDialectForPath(t *testing.T) {
	tests := []struct {
		path string
		want Dialect
	}{
		{"a.css.ts", DialectTSX},
		{"a.css.mts", DialectTSX},
		{"a.css.tsx", DialectTSX},
		{"a.css.js", DialectJSX},
		{"a.css.mjs", DialectJSX},
		{"a.css.jsx", DialectJSX},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DialectForPath(tt.path); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHostModule(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"@vanilla-extract/css/adapter", AdapterModule, true},
		{"@vanilla-extract/css/fileScope", FileScopeModule, true},
		{"/p/node_modules/@vanilla-extract/css/adapter/dist/vanilla-extract-css-adapter.cjs.js", AdapterModule, true},
		{"/p/node_modules/@vanilla-extract/css/fileScope/dist/vanilla-extract-css-fileScope.esm.js", FileScopeModule, true},
		{"/p/node_modules/@vanilla-extract/css/dist/vanilla-extract-css.cjs.js", "", false},
		{"/p/src/adapter/index.ts", "", false},
		{"@vanilla-extract/css/adapterish", "", false},
	}

	for _, tt := range tests {
		got, ok := HostModule(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Expected (%q, %v) for %s, got (%q, %v)", tt.want, tt.ok, tt.path, got, ok)
		}
	}
}

func TestMatchesExternal(t *testing.T) {
	tests := []struct {
		name      string
		externals []string
		specifier string
		want      bool
	}{
		{"exact", []string{"polished"}, "polished", true},
		{"subpath", []string{"polished"}, "polished/lib/rem", true},
		{"prefix only", []string{"polished"}, "polished-extra", false},
		{"scope wildcard", []string{"@acme/*"}, "@acme/tokens", true},
		{"suffix wildcard", []string{"*.json"}, "./data.json", true},
		{"wildcard miss", []string{"@acme/*"}, "@other/tokens", false},
		{"none", nil, "polished", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesExternal(tt.externals, tt.specifier); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
