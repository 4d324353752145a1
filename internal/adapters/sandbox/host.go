package sandbox

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/3-lines-studio/cssextract/internal/core"
)

// host owns the two modules a bundled unit may require: the style adapter
// and the file scope stack. Every call is routed to the capture of the
// current execution, or to an adapter installed from JS with setAdapter.
type host struct {
	vm      *goja.Runtime
	capture *core.Capture

	scopes   []core.FileScope
	adapters []*goja.Object
	refs     int

	modules map[string]goja.Value
}

func newHost(vm *goja.Runtime, capture *core.Capture) *host {
	h := &host{vm: vm, capture: capture}
	h.modules = map[string]goja.Value{
		core.AdapterModule:   h.adapterModule(),
		core.FileScopeModule: h.fileScopeModule(),
	}
	return h
}

// fail raises a JS error carrying a Go error.
func (h *host) fail(format string, args ...any) {
	panic(h.vm.NewGoError(fmt.Errorf(format, args...)))
}

// rethrow raises err inside the runtime, keeping the original JS value of
// an exception.
func (h *host) rethrow(err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex.Value())
	}
	panic(h.vm.NewGoError(err))
}

// detach removes the capture. Calls that arrive afterwards throw.
func (h *host) detach() {
	h.capture = nil
	h.adapters = nil
}

func (h *host) throw(format string, args ...any) {
	panic(h.vm.NewTypeError(fmt.Sprintf(format, args...)))
}

func (h *host) active() *core.Capture {
	if h.capture == nil {
		h.throw("style adapter called after the build finished")
	}
	return h.capture
}

// forward calls method on the most recently installed JS adapter.
func (h *host) forward(method string, args ...goja.Value) (goja.Value, bool) {
	if len(h.adapters) == 0 {
		return nil, false
	}
	adapter := h.adapters[len(h.adapters)-1]
	fn, ok := goja.AssertFunction(adapter.Get(method))
	if !ok {
		return goja.Undefined(), true
	}
	v, err := fn(adapter, args...)
	if err != nil {
		h.rethrow(err)
	}
	return v, true
}

func (h *host) adapterModule() goja.Value {
	mod := h.vm.NewObject()
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = mod.Set(name, fn)
	}

	set("appendCss", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("appendCss", call.Arguments...); ok {
			return v
		}
		capture := h.active()
		scope := h.scopeArg(call.Argument(1))
		payload := newConverter(h.vm).convert(call.Argument(0))
		if err := capture.AppendCSS(payload, scope); err != nil {
			h.throw("%s", err.Error())
		}
		return goja.Undefined()
	})

	set("registerClassName", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("registerClassName", call.Arguments...); ok {
			return v
		}
		h.active().RegisterClassName(call.Argument(0).String())
		return goja.Undefined()
	})

	set("registerComposition", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("registerComposition", call.Arguments...); ok {
			return v
		}
		capture := h.active()
		entry := core.ComposedClassList{}
		if obj, ok := call.Argument(0).(*goja.Object); ok {
			entry.Identifier = stringProp(obj, "identifier")
			entry.ClassList = stringProp(obj, "classList")
		}
		if err := capture.RegisterComposition(entry); err != nil {
			h.throw("%s", err.Error())
		}
		return goja.Undefined()
	})

	set("markCompositionUsed", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("markCompositionUsed", call.Arguments...); ok {
			return v
		}
		h.active().MarkCompositionUsed(call.Argument(0).String())
		return goja.Undefined()
	})

	set("onEndFileScope", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("onEndFileScope", call.Arguments...); ok {
			return v
		}
		h.active().OnEndFileScope(h.scopeArg(call.Argument(0)))
		return goja.Undefined()
	})

	set("onBeginFileScope", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("onBeginFileScope", call.Arguments...); ok {
			return v
		}
		return goja.Undefined()
	})

	set("getIdentOption", func(call goja.FunctionCall) goja.Value {
		if v, ok := h.forward("getIdentOption", call.Arguments...); ok {
			return v
		}
		return h.vm.ToValue(string(h.active().IdentMode()))
	})

	set("setAdapter", func(call goja.FunctionCall) goja.Value {
		obj, ok := call.Argument(0).(*goja.Object)
		if !ok {
			h.throw("setAdapter expects an adapter object")
		}
		h.adapters = append(h.adapters, obj)
		return goja.Undefined()
	})

	// The capture adapter is always installed, so there is nothing to
	// default to.
	set("setAdapterIfNotSet", func(goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	set("removeAdapter", func(goja.FunctionCall) goja.Value {
		if len(h.adapters) > 0 {
			h.adapters = h.adapters[:len(h.adapters)-1]
		}
		return goja.Undefined()
	})

	return mod
}

func (h *host) fileScopeModule() goja.Value {
	mod := h.vm.NewObject()

	_ = mod.Set("setFileScope", func(call goja.FunctionCall) goja.Value {
		scope := core.FileScope{FilePath: call.Argument(0).String()}
		if pkg := call.Argument(1); !goja.IsUndefined(pkg) && !goja.IsNull(pkg) {
			scope.PackageName = pkg.String()
		}
		h.scopes = append(h.scopes, scope)
		h.refs = 0
		h.forward("onBeginFileScope", h.scopeValue(scope))
		return goja.Undefined()
	})

	_ = mod.Set("endFileScope", func(goja.FunctionCall) goja.Value {
		if len(h.scopes) == 0 {
			h.throw("endFileScope called without an active file scope")
		}
		scope := h.scopes[len(h.scopes)-1]
		h.scopes = h.scopes[:len(h.scopes)-1]

		if v, ok := h.forward("onEndFileScope", h.scopeValue(scope)); ok {
			return v
		}
		if h.capture != nil {
			h.capture.OnEndFileScope(scope)
		}
		return goja.Undefined()
	})

	_ = mod.Set("getFileScope", func(goja.FunctionCall) goja.Value {
		if len(h.scopes) == 0 {
			h.throw("styles can only be created at the top level of a .css.ts file; no file scope is active")
		}
		return h.scopeValue(h.scopes[len(h.scopes)-1])
	})

	_ = mod.Set("hasFileScope", func(goja.FunctionCall) goja.Value {
		return h.vm.ToValue(len(h.scopes) > 0)
	})

	_ = mod.Set("getAndIncrementRefCounter", func(goja.FunctionCall) goja.Value {
		n := h.refs
		h.refs++
		return h.vm.ToValue(n)
	})

	return mod
}

func (h *host) scopeValue(scope core.FileScope) goja.Value {
	obj := h.vm.NewObject()
	_ = obj.Set("filePath", scope.FilePath)
	if scope.PackageName != "" {
		_ = obj.Set("packageName", scope.PackageName)
	}
	return obj
}

// scopeArg reads a file scope argument, falling back to the innermost
// active scope.
func (h *host) scopeArg(v goja.Value) core.FileScope {
	if obj, ok := v.(*goja.Object); ok {
		return core.FileScope{
			FilePath:    stringProp(obj, "filePath"),
			PackageName: stringProp(obj, "packageName"),
		}
	}
	if len(h.scopes) > 0 {
		return h.scopes[len(h.scopes)-1]
	}
	return core.FileScope{}
}

func stringProp(obj *goja.Object, name string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
