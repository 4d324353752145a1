package core

import "testing"

func TestHashString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "0"},
		{"hello", "15rnts0"},
		{"color: red;", "jk0pkr"},
		{"createRuntimeFn@vanilla-extract/recipes/createRuntimeFn", "3ea3pj"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := HashString(tt.input)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestImportAlias(t *testing.T) {
	got := ImportAlias("createRuntimeFn", "@vanilla-extract/recipes/createRuntimeFn")
	if got != "_3ea3p" {
		t.Errorf("Expected _3ea3p, got %q", got)
	}

	short := ImportAlias("fn", "./util.js")
	if len(short) > 6 || short[0] != '_' {
		t.Errorf("Expected an underscore and at most 5 hash characters, got %q", short)
	}
}

func TestHashContent(t *testing.T) {
	got := HashContent([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
