package assembler

import (
	"strings"
	"testing"

	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

func rule(selector string, props ...any) core.StyleFragment {
	r := core.NewContainer()
	for i := 0; i < len(props); i += 2 {
		r.Set(props[i].(string), props[i+1].(core.Value))
	}
	payload := core.NewContainer()
	payload.Set("type", core.String("local"))
	payload.Set("selector", core.String(selector))
	payload.Set("rule", r)
	return core.StyleFragment{Scope: "a.css.ts", Payload: payload}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name  string
		ident core.IdentMode
		want  string
	}{
		{"debug keeps formatting", core.IdentDebug, ".a {\n  color: red;\n}"},
		{"short minifies whitespace", core.IdentShort, ".a{color:red}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Assemble(usecase.AssembleInput{
				File:      "/p/a.css.ts",
				IdentMode: tt.ident,
				Fragments: []core.StyleFragment{rule(".a", "color", core.String("red"))},
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAssembleEmpty(t *testing.T) {
	got, err := New().Assemble(usecase.AssembleInput{File: "/p/a.css.ts", IdentMode: core.IdentDebug})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty stylesheet, got %q", got)
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	in := usecase.AssembleInput{
		File:      "/p/a.css.ts",
		IdentMode: core.IdentDebug,
		Fragments: []core.StyleFragment{
			rule(".a", "color", core.String("red"), "paddingTop", core.Number(4)),
			rule(".b", "zIndex", core.Number(2)),
		},
	}

	first, err := New().Assemble(in)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := New().Assemble(in)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("Expected identical output, got:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, "padding-top: 4px") || !strings.Contains(first, "z-index: 2") {
		t.Errorf("Unexpected stylesheet:\n%s", first)
	}
}

func TestAssembleInvalidFragment(t *testing.T) {
	_, err := New().Assemble(usecase.AssembleInput{
		File:      "/p/a.css.ts",
		IdentMode: core.IdentDebug,
		Fragments: []core.StyleFragment{{Scope: "a.css.ts", Payload: core.String("not an object")}},
	})
	if err == nil {
		t.Error("Expected error for malformed fragment")
	}
}
