package assembler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

// Assembler renders captured fragments and normalizes the result with the
// esbuild CSS printer. Short identifiers also minify whitespace.
type Assembler struct{}

func New() *Assembler {
	return &Assembler{}
}

var _ usecase.Assembler = (*Assembler)(nil)

func (a *Assembler) Assemble(in usecase.AssembleInput) (string, error) {
	blocks, err := core.BuildStylesheet(core.StylesheetInput{
		LocalClassNames:    in.LocalClassNames,
		ComposedClassLists: in.ComposedClassLists,
		Fragments:          in.Fragments,
	})
	if err != nil {
		return "", &core.CompileError{Kind: core.KindExecution, File: in.File, Message: err.Error(), Err: err}
	}
	if len(blocks) == 0 {
		return "", nil
	}

	result := api.Transform(core.RenderCSS(blocks), api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       in.File,
		MinifyWhitespace: in.IdentMode == core.IdentShort,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", transformError(in.File, result.Errors)
	}
	return strings.TrimSuffix(string(result.Code), "\n"), nil
}

func transformError(file string, messages []api.Message) error {
	ce := &core.CompileError{
		Kind:    core.KindBundle,
		File:    file,
		Message: fmt.Sprintf("stylesheet for %s could not be printed", file),
	}
	for _, msg := range messages {
		detail := core.ErrorDetail{Message: msg.Text}
		if msg.Location != nil {
			detail.File = msg.Location.File
			detail.Line = msg.Location.Line
			detail.Column = msg.Location.Column
			detail.LineText = msg.Location.LineText
		}
		ce.Errors = append(ce.Errors, detail)
	}
	return ce
}
