package core

import (
	"fmt"
	"strings"
)

// Annotate wraps one authoring module so that its top-level statements run
// with scopePath as the active file scope.
func Annotate(source string, scopePath string) string {
	var sb strings.Builder
	sb.Grow(len(source) + 192)

	fmt.Fprintf(&sb, "import { setFileScope, endFileScope } from %s;\n", JSString(FileScopeModule))
	fmt.Fprintf(&sb, "setFileScope(%s);\n", JSString(scopePath))
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("endFileScope();\n")

	return sb.String()
}
