package core

import "fmt"

const aliasHashLength = 5

// ImportAlias derives the local binding for a pre-built value import.
func ImportAlias(symbol string, importPath string) string {
	h := HashString(symbol + importPath)
	if len(h) > aliasHashLength {
		h = h[:aliasHashLength]
	}
	return "_" + h
}

func fullImportAlias(symbol string, importPath string) string {
	return "_" + HashString(symbol+importPath)
}

func ImportStatement(symbol string, alias string, importPath string) string {
	return fmt.Sprintf("import { %s as %s } from %s;", symbol, alias, JSString(importPath))
}

func SideEffectImport(specifier string) string {
	return fmt.Sprintf("import %s;", JSString(specifier))
}
