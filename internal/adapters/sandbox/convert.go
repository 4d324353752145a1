package sandbox

import (
	"math/big"
	"strconv"

	"github.com/dop251/goja"

	"github.com/3-lines-studio/cssextract/internal/core"
)

var markerProperties = []string{"__function_serializer__", "__recipe__"}

// converter snapshots JS values into core values. One converter maps every
// JS object to exactly one core value, so shared references stay shared.
type converter struct {
	vm          *goja.Runtime
	objectProto *goja.Object
	seen        map[*goja.Object]core.Value
}

func newConverter(vm *goja.Runtime) *converter {
	var proto *goja.Object
	if ctor, ok := vm.Get("Object").(*goja.Object); ok {
		proto, _ = ctor.Get("prototype").(*goja.Object)
	}
	return &converter{
		vm:          vm,
		objectProto: proto,
		seen:        make(map[*goja.Object]core.Value),
	}
}

func (c *converter) convert(v goja.Value) core.Value {
	if v == nil || goja.IsUndefined(v) {
		return core.Undefined{}
	}
	if goja.IsNull(v) {
		return core.Null{}
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return c.primitive(v)
	}
	if prev, ok := c.seen[obj]; ok {
		return prev
	}

	switch obj.ClassName() {
	case "Array":
		return c.array(obj)
	case "Function":
		return c.function(obj)
	}

	if !c.isPlain(obj) {
		opaque := core.Opaque{Type: describe(obj)}
		c.seen[obj] = opaque
		return opaque
	}

	container := core.NewContainer()
	c.seen[obj] = container
	for _, key := range obj.Keys() {
		container.Set(key, c.convert(obj.Get(key)))
	}
	return container
}

func (c *converter) primitive(v goja.Value) core.Value {
	if _, ok := v.(*goja.Symbol); ok {
		return core.Opaque{Type: "symbol"}
	}

	switch x := v.Export().(type) {
	case bool:
		return core.Bool(x)
	case int64:
		return core.Number(float64(x))
	case float64:
		return core.Number(x)
	case string:
		return core.String(x)
	case *big.Int:
		return core.Opaque{Type: "bigint"}
	}
	return core.Opaque{Type: "unknown"}
}

func (c *converter) array(obj *goja.Object) core.Value {
	seq := &core.Sequence{}
	c.seen[obj] = seq

	length := obj.Get("length").ToInteger()
	seq.Items = make([]core.Value, 0, length)
	for i := int64(0); i < length; i++ {
		seq.Items = append(seq.Items, c.convert(obj.Get(strconv.FormatInt(i, 10))))
	}
	return seq
}

// function turns a tagged function into a marker and anything else into an
// opaque value.
func (c *converter) function(obj *goja.Object) core.Value {
	for _, prop := range markerProperties {
		tag := obj.Get(prop)
		if tag == nil || goja.IsUndefined(tag) || goja.IsNull(tag) {
			continue
		}

		marker := &core.Marker{
			ImportPath: core.Undefined{},
			ImportName: core.Undefined{},
			Args:       core.Undefined{},
		}
		c.seen[obj] = marker

		if tagObj, ok := tag.(*goja.Object); ok {
			marker.ImportPath = c.convert(tagObj.Get("importPath"))
			marker.ImportName = c.convert(tagObj.Get("importName"))
			marker.Args = c.convert(tagObj.Get("args"))
		}
		return marker
	}

	opaque := core.Opaque{Type: "function"}
	c.seen[obj] = opaque
	return opaque
}

func (c *converter) isPlain(obj *goja.Object) bool {
	if obj.ClassName() != "Object" {
		return false
	}
	proto := obj.Prototype()
	return proto == nil || proto == c.objectProto
}

func describe(obj *goja.Object) string {
	if ctor, ok := obj.Get("constructor").(*goja.Object); ok {
		if name := ctor.Get("name"); name != nil && !goja.IsUndefined(name) && name.String() != "" {
			return name.String() + " instance"
		}
	}
	return obj.ClassName()
}
