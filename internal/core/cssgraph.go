package core

import "path/filepath"

type RouteKind int

const (
	// RouteOwnStylesheet points at the entry's own extracted stylesheet.
	RouteOwnStylesheet RouteKind = iota
	// RouteModuleImport imports a dependency's module so that it emits its
	// own stylesheet when it is processed.
	RouteModuleImport
)

type Route struct {
	Scope     string
	File      string
	Kind      RouteKind
	Specifier string
}

func (r Route) IsEntry() bool {
	return r.Kind == RouteOwnStylesheet
}

func (r Route) ImportStatement() string {
	return SideEffectImport(r.Specifier)
}

// RouteScopes decides for every scope that emitted styles how the entry's
// rewritten module refers to it. Scopes keep the order they were given in.
func RouteScopes(cwd string, entryFile string, scopes []string) ([]Route, error) {
	entryFile = filepath.Clean(entryFile)
	routes := make([]Route, 0, len(scopes))

	for _, scope := range scopes {
		file := ScopeFile(cwd, scope)

		if file == entryFile {
			routes = append(routes, Route{
				Scope:     scope,
				File:      file,
				Kind:      RouteOwnStylesheet,
				Specifier: OwnStylesheetRef(file),
			})
			continue
		}

		specifier, err := RelativeImport(entryFile, file)
		if err != nil {
			return nil, err
		}
		routes = append(routes, Route{
			Scope:     scope,
			File:      file,
			Kind:      RouteModuleImport,
			Specifier: specifier,
		})
	}

	return routes, nil
}

func ImportStatements(routes []Route) []string {
	imports := make([]string, 0, len(routes))
	for _, r := range routes {
		imports = append(imports, r.ImportStatement())
	}
	return imports
}
