package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dop251/goja"

	"github.com/3-lines-studio/cssextract/internal/adapters/env"
	"github.com/3-lines-studio/cssextract/internal/adapters/fs"
	"github.com/3-lines-studio/cssextract/internal/core"
	"github.com/3-lines-studio/cssextract/internal/usecase"
)

// Sandbox executes bundled units in a fresh goja runtime per call. Nothing
// survives between executions.
type Sandbox struct {
	logger *slog.Logger
	env    map[string]string
	files  fs.FileSystem
}

type Option func(*Sandbox)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sandbox) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEnv replaces the variables exposed as process.env.
func WithEnv(env map[string]string) Option {
	return func(s *Sandbox) {
		s.env = env
	}
}

// WithFileSystem sets where external packages are loaded from.
func WithFileSystem(files fs.FileSystem) Option {
	return func(s *Sandbox) {
		if files != nil {
			s.files = files
		}
	}
}

func New(opts ...Option) *Sandbox {
	s := &Sandbox{logger: slog.Default(), files: fs.NewOSFileSystem()}
	for _, opt := range opts {
		opt(s)
	}
	if s.env == nil {
		s.env = env.Environ()
	}
	return s
}

var _ usecase.Sandbox = (*Sandbox)(nil)

func (s *Sandbox) Execute(ctx context.Context, in usecase.ExecuteInput) (exports *core.Exports, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Capture == nil {
		return nil, fmt.Errorf("execute %s: no capture installed", in.EntryPath)
	}

	start := time.Now()
	defer func() {
		s.logger.Debug("execute timing", "file", in.EntryPath, "duration", time.Since(start))
	}()

	vm := goja.New()
	h := newHost(vm, in.Capture)
	defer h.detach()
	mods := newModules(h, s.files, in.External)

	defer func() {
		if r := recover(); r != nil {
			exports = nil
			err = &core.CompileError{
				Kind:    core.KindExecution,
				File:    in.EntryPath,
				Message: fmt.Sprint(r),
			}
		}
	}()

	if err := s.installGlobals(vm, in); err != nil {
		return nil, err
	}

	module := vm.NewObject()
	moduleExports := vm.NewObject()
	_ = module.Set("exports", moduleExports)

	wrapper, err := vm.RunScript(in.EntryPath, "(function (exports, require, module, __filename, __dirname) {"+in.Source+"\n})")
	if err != nil {
		return nil, executionError(in.EntryPath, err)
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, executionError(in.EntryPath, errors.New("bundled unit did not evaluate to a function"))
	}

	_, err = fn(goja.Undefined(),
		moduleExports,
		vm.ToValue(mods.requireFrom(filepath.Dir(in.EntryPath), true)),
		module,
		vm.ToValue(in.EntryPath),
		vm.ToValue(filepath.Dir(in.EntryPath)),
	)
	if err != nil {
		return nil, executionError(in.EntryPath, err)
	}

	var value core.Value
	if ex := vm.Try(func() {
		value = newConverter(vm).convert(module.Get("exports"))
	}); ex != nil {
		return nil, executionError(in.EntryPath, ex)
	}

	if container, ok := value.(*core.Container); ok {
		return container, nil
	}
	// A unit that replaces module.exports wholesale exposes it as the
	// default export.
	container := core.NewContainer()
	if _, undefined := value.(core.Undefined); !undefined {
		container.Set("default", value)
	}
	return container, nil
}

func (s *Sandbox) installGlobals(vm *goja.Runtime, in usecase.ExecuteInput) error {
	if err := vm.Set("console", newConsole(vm, s.logger, in.EntryPath)); err != nil {
		return fmt.Errorf("install console: %w", err)
	}

	process := vm.NewObject()
	_ = process.Set("env", s.env)
	_ = process.Set("platform", platform())
	_ = process.Set("cwd", func() string { return in.WorkingDir })
	if err := vm.Set("process", process); err != nil {
		return fmt.Errorf("install process: %w", err)
	}
	return nil
}

func executionError(file string, err error) error {
	ce := &core.CompileError{
		Kind: core.KindExecution,
		File: file,
		Err:  err,
	}

	var ex *goja.Exception
	var syntax *goja.CompilerSyntaxError
	switch {
	case errors.As(err, &ex):
		if v := ex.Value(); v != nil {
			ce.Message = v.String()
		}
		ce.Stack = ex.String()
	case errors.As(err, &syntax):
		ce.Message = syntax.Error()
	default:
		ce.Message = err.Error()
	}
	return ce
}

func platform() string {
	if runtime.GOOS == "windows" {
		return "win32"
	}
	return runtime.GOOS
}

