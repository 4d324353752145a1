package core

import (
	"path/filepath"
	"testing"
)

func TestRouteScopes(t *testing.T) {
	cwd := filepath.FromSlash("/project")
	entry := filepath.FromSlash("/project/src/a.css.ts")

	routes, err := RouteScopes(cwd, entry, []string{"src/theme/b.css.ts", "src/a.css.ts", "shared.css.ts"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []struct {
		kind      RouteKind
		specifier string
	}{
		{RouteModuleImport, "./theme/b.css.ts"},
		{RouteOwnStylesheet, "./a.css.ts?__css"},
		{RouteModuleImport, "../shared.css.ts"},
	}
	if len(routes) != len(want) {
		t.Fatalf("Expected %d routes, got %d", len(want), len(routes))
	}
	for i, w := range want {
		if routes[i].Kind != w.kind {
			t.Errorf("route %d: expected kind %d, got %d", i, w.kind, routes[i].Kind)
		}
		if routes[i].Specifier != w.specifier {
			t.Errorf("route %d: expected %q, got %q", i, w.specifier, routes[i].Specifier)
		}
	}

	if !routes[1].IsEntry() || routes[0].IsEntry() {
		t.Error("Expected only the entry scope to be routed to the own stylesheet")
	}

	imports := ImportStatements(routes)
	if imports[0] != `import "./theme/b.css.ts";` {
		t.Errorf("Unexpected import statement %q", imports[0])
	}
	if imports[1] != `import "./a.css.ts?__css";` {
		t.Errorf("Unexpected import statement %q", imports[1])
	}
}

func TestRouteScopesWithoutStyles(t *testing.T) {
	routes, err := RouteScopes(filepath.FromSlash("/p"), filepath.FromSlash("/p/a.css.ts"), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("Expected no routes, got %d", len(routes))
	}
}
