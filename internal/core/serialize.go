package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UnusedCompositionPattern matches every never-used composition identifier
// together with the single whitespace character that follows it. It returns nil when
// there is nothing to strip.
func UnusedCompositionPattern(identifiers []string) *regexp.Regexp {
	if len(identifiers) == 0 {
		return nil
	}

	quoted := make([]string, len(identifiers))
	for i, id := range identifiers {
		quoted[i] = regexp.QuoteMeta(id)
	}
	return regexp.MustCompile("(" + strings.Join(quoted, "|") + ")" + jsWhitespace)
}

// jsWhitespace is the class JavaScript's \s matches. Go's \s is ASCII only.
const jsWhitespace = `[\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`

type reference struct {
	export string
	local  string
	path   string
}

// backref restores a repeated value once its literal exists: x<target> = x<source>.
type backref struct {
	target string
	source string
}

// frame is one literal being rendered: an export value or a single
// pre-built call argument. Paths are relative to the frame's root.
type frame struct {
	exported bool
	refs     map[Value]string
	backrefs []backref
}

func newFrame(exported bool) *frame {
	return &frame{exported: exported, refs: make(map[Value]string)}
}

// wrap turns a literal with back references into an expression that
// rebuilds the shared structure.
func (f *frame) wrap(code string) string {
	if len(f.backrefs) == 0 {
		return code
	}
	var sb strings.Builder
	sb.WriteString("(function(){var x=")
	sb.WriteString(code)
	sb.WriteString(";")
	for _, b := range f.backrefs {
		sb.WriteString("x" + b.target + "=x" + b.source + ";")
	}
	sb.WriteString("return x;}())")
	return sb.String()
}

// omitted marks a position filled in later by a back reference.
const omitted = ""

type moduleSerializer struct {
	unused *regexp.Regexp

	imports   []string
	importSet map[string]bool
	aliases   map[string]string

	exported map[Value]reference
	active   map[Value]bool

	export string
	local  string
}

// SerializeModule renders the rewritten module: stylesheet imports, then
// pre-built value imports in first-use order, then one export per key.
func SerializeModule(cssImports []string, exports *Exports, unused *regexp.Regexp) (string, error) {
	s := &moduleSerializer{
		unused:    unused,
		importSet: make(map[string]bool),
		aliases:   make(map[string]string),
		exported:  make(map[Value]reference),
		active:    make(map[Value]bool),
	}

	var statements []string
	if exports != nil {
		locals := exportLocals(exports)
		for _, key := range exports.Keys {
			s.export = key
			s.local = locals[key]

			f := newFrame(true)
			code, err := s.serialize(exports.Values[key], "", f)
			if err != nil {
				return "", err
			}
			statements = append(statements, exportStatement(key, s.local, f.wrap(code)))
		}
	}

	lines := make([]string, 0, len(cssImports)+len(s.imports)+len(statements))
	lines = append(lines, cssImports...)
	lines = append(lines, s.imports...)
	lines = append(lines, statements...)

	return strings.Join(lines, "\n"), nil
}

// exportLocals picks the binding each export is declared under. Plain names
// bind directly; default and non-identifier names get a synthesized local
// that does not collide with any export.
func exportLocals(exports *Exports) map[string]string {
	taken := make(map[string]bool, len(exports.Keys))
	for _, key := range exports.Keys {
		if IsIdentifier(key) {
			taken[key] = true
		}
	}

	locals := make(map[string]string, len(exports.Keys))
	n := 0
	for _, key := range exports.Keys {
		if IsIdentifier(key) {
			locals[key] = key
			continue
		}

		local := "_default"
		if key != "default" {
			local = "_export" + strconv.Itoa(n)
			n++
		}
		for taken[local] {
			local = "_" + local
		}
		taken[local] = true
		locals[key] = local
	}
	return locals
}

func exportStatement(key string, local string, code string) string {
	if key == local {
		return fmt.Sprintf("export const %s = %s;", key, code)
	}

	name := key
	if key != "default" {
		name = JSString(key)
	}
	return fmt.Sprintf("const %s = %s;\nexport { %s as %s };", local, code, local, name)
}

func (s *moduleSerializer) serialize(v Value, path string, f *frame) (string, error) {
	if isReference(v) {
		if ref, ok := s.exported[v]; ok && ref.export != s.export {
			return ref.local + ref.path, nil
		}
		if source, ok := f.refs[v]; ok {
			f.backrefs = append(f.backrefs, backref{target: path, source: source})
			return omitted, nil
		}
		// Reachable again through a call argument of its own literal.
		if s.active[v] {
			return "", s.fail(KindUnserializable, "cyclic "+v.Kind(), "value refers to itself through a call argument")
		}

		f.refs[v] = path
		if f.exported {
			s.exported[v] = reference{export: s.export, local: s.local, path: path}
		}
		s.active[v] = true
		defer delete(s.active, v)
	}

	switch v := v.(type) {
	case nil, Undefined:
		return "undefined", nil
	case Null:
		return "null", nil
	case Bool:
		return strconv.FormatBool(bool(v)), nil
	case Number:
		return FormatNumber(float64(v)), nil
	case String:
		str := string(v)
		if s.unused != nil {
			str = s.unused.ReplaceAllString(str, "")
		}
		return quoteString(str), nil
	case *Sequence:
		return s.sequence(v, path, f)
	case *Container:
		return s.container(v, path, f)
	case *Marker:
		return s.marker(v)
	}

	return "", s.fail(KindUnserializable, v.Kind(), "")
}

func (s *moduleSerializer) sequence(seq *Sequence, path string, f *frame) (string, error) {
	items := make([]string, len(seq.Items))
	for i, item := range seq.Items {
		code, err := s.serialize(item, path+"["+strconv.Itoa(i)+"]", f)
		if err != nil {
			return "", err
		}
		if code == omitted {
			code = "undefined"
		}
		items[i] = code
	}
	return "[" + strings.Join(items, ",") + "]", nil
}

func (s *moduleSerializer) container(c *Container, path string, f *frame) (string, error) {
	props := make([]string, 0, len(c.Keys))
	for _, key := range c.Keys {
		code, err := s.serialize(c.Values[key], propertyAccess(path, key), f)
		if err != nil {
			return "", err
		}
		if code == omitted {
			continue
		}
		props = append(props, propertyKey(key)+":"+code)
	}
	return "{" + strings.Join(props, ",") + "}", nil
}

func (s *moduleSerializer) marker(m *Marker) (string, error) {
	importPath, pathOK := m.ImportPath.(String)
	importName, nameOK := m.ImportName.(String)
	args, argsOK := m.Args.(*Sequence)
	if !pathOK || !nameOK || !argsOK {
		return "", s.fail(KindInvalidMarker, "marker", fmt.Sprintf(
			"want string importPath, string importName and an args array, got %s, %s and %s",
			kindOf(m.ImportPath), kindOf(m.ImportName), kindOf(m.Args),
		))
	}

	alias := s.alias(string(importName), string(importPath))
	symbol := string(importName)
	if !IsIdentifier(symbol) {
		symbol = JSString(symbol)
	}
	stmt := ImportStatement(symbol, alias, string(importPath))
	if !s.importSet[stmt] {
		s.importSet[stmt] = true
		s.imports = append(s.imports, stmt)
	}

	rendered := make([]string, len(args.Items))
	for i, arg := range args.Items {
		f := newFrame(false)
		code, err := s.serialize(arg, "", f)
		if err != nil {
			return "", err
		}
		rendered[i] = f.wrap(code)
	}

	return alias + "(" + strings.Join(rendered, ", ") + ")", nil
}

// alias returns the short hashed alias, falling back to the full hash if two
// distinct imports would otherwise share a binding.
func (s *moduleSerializer) alias(symbol string, importPath string) string {
	owner := importPath + "\x00" + symbol

	alias := ImportAlias(symbol, importPath)
	if prev, ok := s.aliases[alias]; ok && prev != owner {
		alias = fullImportAlias(symbol, importPath)
	}
	s.aliases[alias] = owner
	return alias
}

func (s *moduleSerializer) fail(kind ErrorKind, valueKind string, message string) error {
	return &CompileError{
		Kind:      kind,
		ExportKey: s.export,
		ValueKind: valueKind,
		Message:   message,
	}
}

func kindOf(v Value) string {
	if v == nil {
		return "undefined"
	}
	return v.Kind()
}
