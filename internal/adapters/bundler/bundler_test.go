package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func TestBundleAnnotatesStyleModules(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"src/a.css.ts":          "import { vars } from './theme/vars.css.ts';\nimport { px } from './util';\nconst size: number = 4;\nexport const a = vars + px(size);\n",
		"src/theme/vars.css.ts": "export const vars = 'theme';\n",
		"src/util.ts":           "export const px = (n: number) => n + 'px';\n",
	})

	entry := filepath.Join(dir, "src", "a.css.ts")
	out, err := New(fs.NewOSFileSystem()).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  entry,
		WorkingDir: dir,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, want := range []string{
		`setFileScope("src/a.css.ts")`,
		`setFileScope("src/theme/vars.css.ts")`,
		`require("@vanilla-extract/css/fileScope")`,
	} {
		if !strings.Contains(out.Source, want) {
			t.Errorf("Expected bundle to contain %s, got:\n%s", want, out.Source)
		}
	}
	if strings.Contains(out.Source, "setFileScope(\"src/util.ts\")") {
		t.Error("Expected plain modules to stay unannotated")
	}

	deps := make(map[string]bool)
	for _, d := range out.Dependencies {
		if !filepath.IsAbs(d) {
			t.Errorf("Expected absolute dependency path, got %s", d)
		}
		deps[d] = true
	}
	for _, want := range []string{entry, filepath.Join(dir, "src", "theme", "vars.css.ts"), filepath.Join(dir, "src", "util.ts")} {
		if !deps[want] {
			t.Errorf("Expected dependency %s in %v", want, out.Dependencies)
		}
	}
}

func TestBundleExternals(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.css.js": "import { x } from 'some-package';\nexport const a = x;\n",
	})

	out, err := New(nil).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  filepath.Join(dir, "a.css.js"),
		WorkingDir: dir,
		Options:    core.BundleOptions{External: []string{"some-package"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.Source, `require("some-package")`) {
		t.Errorf("Expected external to stay a require, got:\n%s", out.Source)
	}
}

func TestBundleDefine(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.css.ts": "export const mode = MODE;\n",
	})

	out, err := New(nil).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  filepath.Join(dir, "a.css.ts"),
		WorkingDir: dir,
		Options:    core.BundleOptions{Define: map[string]string{"MODE": `"test"`}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.Source, `"test"`) {
		t.Errorf("Expected define to be applied, got:\n%s", out.Source)
	}
}

func TestBundleErrors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.css.ts": "import { missing } from './nope';\nexport const a = missing;\n",
	})

	_, err := New(nil).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  filepath.Join(dir, "a.css.ts"),
		WorkingDir: dir,
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var ce *core.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CompileError, got %T", err)
	}
	if ce.Kind != core.KindBundle {
		t.Errorf("Expected bundle error, got %s", ce.Kind)
	}
	if len(ce.Errors) == 0 || !strings.Contains(ce.Errors[0].Message, "./nope") {
		t.Errorf("Expected resolve failure detail, got %+v", ce.Errors)
	}
}

func TestBundleUnknownLoader(t *testing.T) {
	_, err := New(nil).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  "/p/a.css.ts",
		WorkingDir: "/p",
		Options:    core.BundleOptions{Loader: map[string]string{".svg": "svg-magic"}},
	})
	if err == nil || !strings.Contains(err.Error(), "svg-magic") {
		t.Errorf("Expected unknown loader error, got %v", err)
	}
}

func TestBundleCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Bundle(ctx, usecase.BundleInput{EntryPath: "/p/a.css.ts", WorkingDir: "/p"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestParseMetafileKeepsInputOrder(t *testing.T) {
	m, err := ParseMetafile(`{"inputs":{"src/z.ts":{"bytes":1,"imports":[]},"src/a.css.ts":{"bytes":2,"imports":[{"path":"src/z.ts","kind":"import-statement"}]}},"outputs":{}}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := m.InputPaths()
	if len(got) != 2 || got[0] != "src/z.ts" || got[1] != "src/a.css.ts" {
		t.Errorf("Expected document order, got %v", got)
	}
}

func TestParseMetafileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"inputs":`},
		{"inputs not an object", `{"inputs":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMetafile(tt.data); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	m, err := ParseMetafile(`{"outputs":{}}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(m.InputPaths()) != 0 {
		t.Errorf("Expected no inputs, got %v", m.InputPaths())
	}
}

func TestInputFile(t *testing.T) {
	cwd := filepath.FromSlash("/p")

	if got, ok := inputFile(cwd, "src/a.css.ts"); !ok || got != filepath.Join(cwd, "src", "a.css.ts") {
		t.Errorf("Expected joined path, got %q", got)
	}
	if _, ok := inputFile(cwd, "virtual:thing"); ok {
		t.Error("Expected namespaced input to be skipped")
	}
}

func TestBundleKeepsPublishedPackageOnHostModules(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"node_modules/@vanilla-extract/css/package.json": `{"name":"@vanilla-extract/css","main":"dist/vanilla-extract-css.cjs.js"}`,
		"node_modules/@vanilla-extract/css/dist/vanilla-extract-css.cjs.js": `var fileScope = require("../fileScope/dist/vanilla-extract-css-fileScope.cjs.js");
var adapter = require("../adapter/dist/vanilla-extract-css-adapter.cjs.js");
exports.style = function (rule) { return adapter.appendCss(rule, fileScope.getFileScope()); };
`,
		"node_modules/@vanilla-extract/css/fileScope/dist/vanilla-extract-css-fileScope.cjs.js": `exports.privateFileScope = true;`,
		"node_modules/@vanilla-extract/css/adapter/dist/vanilla-extract-css-adapter.cjs.js":     `exports.privateAdapter = true;`,
		"src/a.css.ts": "import { style } from '@vanilla-extract/css';\nexport const a = style({ color: 'red' });\n",
	})

	out, err := New(fs.NewOSFileSystem()).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  filepath.Join(dir, "src", "a.css.ts"),
		WorkingDir: dir,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, want := range []string{`require("@vanilla-extract/css/adapter")`, `require("@vanilla-extract/css/fileScope")`} {
		if !strings.Contains(out.Source, want) {
			t.Errorf("Expected bundle to contain %s, got:\n%s", want, out.Source)
		}
	}
	for _, unwanted := range []string{"privateAdapter", "privateFileScope"} {
		if strings.Contains(out.Source, unwanted) {
			t.Errorf("Expected no private copy (%s) in bundle, got:\n%s", unwanted, out.Source)
		}
	}
}

func TestBundleFingerprintsWhatWasBundled(t *testing.T) {
	dir := t.TempDir()
	const util = "export const px = (n: number) => n + 'px';\n"
	writeFiles(t, dir, map[string]string{
		"src/a.css.ts": "import { px } from './util';\nexport const a = px(4);\n",
		"src/util.ts":  util,
	})

	out, err := New(fs.NewOSFileSystem()).Bundle(context.Background(), usecase.BundleInput{
		EntryPath:  filepath.Join(dir, "src", "a.css.ts"),
		WorkingDir: dir,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	path := filepath.Join(dir, "src", "util.ts")
	if got := out.Fingerprints[path]; got != core.HashContent([]byte(util)) {
		t.Errorf("Expected fingerprint of the bundled util.ts, got %q", got)
	}
	if len(out.Fingerprints) != len(out.Dependencies) {
		t.Errorf("Expected a fingerprint per dependency, got %d for %d", len(out.Fingerprints), len(out.Dependencies))
	}
}
