package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// JSString renders s the way JSON.stringify does.
func JSString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var quoteEscapes = map[rune]string{
	'\b': `\b`,
	'\t': `\t`,
	'\n': `\n`,
	'\f': `\f`,
	'\r': `\r`,
	'\'': `\'`,
	'\\': `\\`,
}

// quoteString renders a single-quoted literal, escaping control and
// invisible format characters the way javascript-stringify does.
func quoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for _, r := range s {
		if esc, ok := quoteEscapes[r]; ok {
			sb.WriteString(esc)
			continue
		}
		if needsUnicodeEscape(r) {
			fmt.Fprintf(&sb, `\u%04x`, r)
			continue
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('\'')
	return sb.String()
}

// needsUnicodeEscape is the escapable set of javascript-stringify. Characters
// outside the basic multilingual plane are written as is.
func needsUnicodeEscape(r rune) bool {
	switch {
	case r <= 0x1f, r >= 0x7f && r <= 0x9f, r == 0xad:
		return true
	case r >= 0x600 && r <= 0x604, r == 0x70f, r == 0x17b4, r == 0x17b5:
		return true
	case r >= 0x200c && r <= 0x200f, r >= 0x2028 && r <= 0x202f, r >= 0x2060 && r <= 0x206f:
		return true
	case r == 0xfeff, r >= 0xfff0 && r <= 0xffff:
		return true
	}
	return false
}

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true, "package": true,
	"private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "await": true,
}

// IsIdentifier reports whether name can be written as a bare binding or
// property name.
func IsIdentifier(name string) bool {
	if name == "" || reservedWords[name] {
		return false
	}
	for i, r := range name {
		if r == '$' || r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && (unicode.IsDigit(r) || r == 0x200c || r == 0x200d || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)) {
			continue
		}
		return false
	}
	return true
}

func propertyKey(key string) string {
	if IsIdentifier(key) {
		return key
	}
	return quoteString(key)
}

func propertyAccess(base string, key string) string {
	if IsIdentifier(key) {
		return base + "." + key
	}
	return base + "[" + quoteString(key) + "]"
}

// FormatNumber follows Number.prototype.toString for finite values.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		if exp == "" {
			exp = "0"
		}
		return mantissa + "e" + string(sign) + exp
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
