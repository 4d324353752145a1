package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/tidwall/gjson"

	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
)

var extensions = []string{"", ".js", ".cjs", ".mjs", ".json"}

var indexFiles = []string{"index.js", "index.cjs", "index.json"}

// exportConditions are the package.json "exports" conditions a CommonJS
// require under Node honours.
var exportConditions = map[string]bool{"node": true, "require": true, "default": true}

// modules loads the packages a bundle left external from node_modules and
// runs them in the execution's runtime. The bundle itself may only reach
// the host modules and its declared externals; a loaded package may require
// its own files and dependencies.
type modules struct {
	h         *host
	files     fs.FileSystem
	externals []string
	loaded    map[string]*goja.Object
}

func newModules(h *host, files fs.FileSystem, externals []string) *modules {
	return &modules{
		h:         h,
		files:     files,
		externals: externals,
		loaded:    make(map[string]*goja.Object),
	}
}

// requireFrom returns the require function handed to code living in dir.
func (m *modules) requireFrom(dir string, bundle bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if mod, ok := m.h.modules[name]; ok {
			return mod
		}
		if bundle && !core.MatchesExternal(m.externals, name) {
			m.h.fail("cannot find module %q: only %s, %s and the configured externals are available at build time",
				name, core.AdapterModule, core.FileScopeModule)
		}
		return m.require(dir, name)
	}
}

func (m *modules) require(dir string, name string) goja.Value {
	file, ok := m.resolve(dir, name)
	if !ok {
		if !isRelative(name) && !strings.Contains(name, "/") && !strings.HasPrefix(name, "@") {
			m.h.fail("cannot find module %q from %s: Node built-in and unlisted modules are not available at build time", name, dir)
		}
		m.h.fail("cannot find module %q from %s", name, dir)
	}
	if name, ok := core.HostModule(file); ok {
		return m.h.modules[name]
	}
	if mod, ok := m.loaded[file]; ok {
		return mod.Get("exports")
	}
	return m.load(file)
}

func (m *modules) load(file string) goja.Value {
	vm := m.h.vm
	data, err := m.files.ReadFile(file)
	if err != nil {
		m.h.fail("failed to read %s: %v", file, err)
	}

	module := vm.NewObject()
	_ = module.Set("exports", vm.NewObject())
	_ = module.Set("id", file)
	m.loaded[file] = module

	if strings.EqualFold(filepath.Ext(file), ".json") {
		parse, _ := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
		v, err := parse(goja.Undefined(), vm.ToValue(string(data)))
		if err != nil {
			m.h.rethrow(err)
		}
		_ = module.Set("exports", v)
		return v
	}

	code, err := toCommonJS(file, string(data))
	if err != nil {
		delete(m.loaded, file)
		m.h.fail("%v", err)
	}

	wrapper, err := vm.RunScript(file, "(function (exports, require, module, __filename, __dirname) {"+code+"\n})")
	if err != nil {
		delete(m.loaded, file)
		m.h.rethrow(err)
	}
	fn, _ := goja.AssertFunction(wrapper)

	dir := filepath.Dir(file)
	_, err = fn(goja.Undefined(),
		module.Get("exports"),
		vm.ToValue(m.requireFrom(dir, false)),
		module,
		vm.ToValue(file),
		vm.ToValue(dir),
	)
	if err != nil {
		delete(m.loaded, file)
		m.h.rethrow(err)
	}
	return module.Get("exports")
}

// toCommonJS lowers ES module syntax so that packages shipping only ESM
// builds run under the CommonJS wrapper.
func toCommonJS(file string, source string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderJS,
		Format:     api.FormatCommonJS,
		Platform:   api.PlatformNode,
		Target:     api.ES2017,
		Sourcefile: file,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		if msg.Location != nil {
			return "", fmt.Errorf("failed to load %s:%d:%d: %s", file, msg.Location.Line, msg.Location.Column, msg.Text)
		}
		return "", fmt.Errorf("failed to load %s: %s", file, msg.Text)
	}
	return string(result.Code), nil
}

func (m *modules) resolve(dir string, name string) (string, bool) {
	if isRelative(name) || filepath.IsAbs(name) {
		target := name
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, filepath.FromSlash(name))
		}
		return m.resolveFile(target)
	}

	pkg, subpath := splitPackage(name)
	for d := dir; ; d = filepath.Dir(d) {
		if filepath.Base(d) != "node_modules" {
			root := filepath.Join(d, "node_modules", filepath.FromSlash(pkg))
			if file, ok := m.resolvePackage(root, subpath); ok {
				return file, true
			}
		}
		if parent := filepath.Dir(d); parent == d {
			return "", false
		}
	}
}

func (m *modules) resolvePackage(root string, subpath string) (string, bool) {
	manifest, err := m.files.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		if subpath == "" {
			return m.resolveFile(root)
		}
		return m.resolveFile(filepath.Join(root, filepath.FromSlash(subpath)))
	}

	if target, ok := exportsTarget(manifest, subpath); ok {
		return m.resolveFile(filepath.Join(root, filepath.FromSlash(target)))
	}
	if subpath != "" {
		return m.resolveFile(filepath.Join(root, filepath.FromSlash(subpath)))
	}
	if main := gjson.GetBytes(manifest, "main").String(); main != "" {
		if file, ok := m.resolveFile(filepath.Join(root, filepath.FromSlash(main))); ok {
			return file, true
		}
	}
	return m.resolveFile(root)
}

func (m *modules) resolveFile(base string) (string, bool) {
	for _, ext := range extensions {
		if m.isFile(base + ext) {
			return base + ext, true
		}
	}
	for _, index := range indexFiles {
		if file := filepath.Join(base, index); m.isFile(file) {
			return file, true
		}
	}
	return "", false
}

func (m *modules) isFile(path string) bool {
	_, err := m.files.ReadFile(path)
	return err == nil
}

// exportsTarget resolves subpath through the "exports" field of a
// package.json.
func exportsTarget(manifest []byte, subpath string) (string, bool) {
	exports := gjson.GetBytes(manifest, "exports")
	if !exports.Exists() {
		return "", false
	}

	key := "."
	if subpath != "" {
		key = "./" + subpath
	}

	if exports.IsObject() && hasSubpathKeys(exports) {
		var entry gjson.Result
		exports.ForEach(func(k, v gjson.Result) bool {
			if k.String() == key {
				entry = v
				return false
			}
			return true
		})
		if !entry.Exists() {
			return "", false
		}
		return conditionTarget(entry)
	}
	if key != "." {
		return "", false
	}
	return conditionTarget(exports)
}

func hasSubpathKeys(exports gjson.Result) bool {
	subpaths := false
	exports.ForEach(func(k, _ gjson.Result) bool {
		subpaths = strings.HasPrefix(k.String(), ".")
		return false
	})
	return subpaths
}

func conditionTarget(entry gjson.Result) (string, bool) {
	switch {
	case entry.Type == gjson.String:
		return entry.String(), true
	case entry.IsArray():
		for _, item := range entry.Array() {
			if target, ok := conditionTarget(item); ok {
				return target, true
			}
		}
	case entry.IsObject():
		var target string
		var found bool
		entry.ForEach(func(k, v gjson.Result) bool {
			if !exportConditions[k.String()] {
				return true
			}
			target, found = conditionTarget(v)
			return !found
		})
		return target, found
	}
	return "", false
}

// splitPackage separates "pkg/sub/path" and "@scope/pkg/sub" into the
// package name and the subpath inside it.
func splitPackage(name string) (string, string) {
	parts := strings.SplitN(name, "/", 3)
	if strings.HasPrefix(name, "@") && len(parts) >= 2 {
		pkg := parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			return pkg, parts[2]
		}
		return pkg, ""
	}
	pkg, sub, _ := strings.Cut(name, "/")
	return pkg, sub
}

func isRelative(name string) bool {
	return name == "." || name == ".." || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../")
}
