package sandbox

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dop251/goja"
)

// newConsole routes console output of executed modules to the logger,
// tagged with the entry file.
func newConsole(vm *goja.Runtime, logger *slog.Logger, file string) *goja.Object {
	console := vm.NewObject()

	method := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			logger.Log(context.Background(), level, formatArgs(vm, call.Arguments), "file", file)
			return goja.Undefined()
		}
	}

	_ = console.Set("log", method(slog.LevelInfo))
	_ = console.Set("info", method(slog.LevelInfo))
	_ = console.Set("debug", method(slog.LevelDebug))
	_ = console.Set("trace", method(slog.LevelDebug))
	_ = console.Set("warn", method(slog.LevelWarn))
	_ = console.Set("error", method(slog.LevelError))
	return console
}

func formatArgs(vm *goja.Runtime, args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatArg(vm, arg))
	}
	return strings.Join(parts, " ")
}

func formatArg(vm *goja.Runtime, v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok || obj.ClassName() == "Function" || obj.ClassName() == "Error" {
		return v.String()
	}

	var out string
	if ex := vm.Try(func() {
		b, err := obj.MarshalJSON()
		if err == nil {
			out = string(b)
		}
	}); ex != nil || out == "" {
		return v.String()
	}
	return out
}
