package core

// Value is one node of a module's export surface. Reference kinds
// (*Sequence, *Container, *Marker) compare by pointer, which mirrors object
// identity in the executed module.
type Value interface {
	Kind() string
	isValue()
}

type Undefined struct{}

type Null struct{}

type Bool bool

type Number float64

type String string

// Sequence is an ordered list.
type Sequence struct {
	Items []Value
}

// Container is a plain keyed object. Keys keeps enumeration order.
type Container struct {
	Keys   []string
	Values map[string]Value
}

// Marker tags a value that is imported and called rather than inlined. The
// fields hold whatever the module supplied; shape is checked when the marker
// is serialized.
type Marker struct {
	ImportPath Value
	ImportName Value
	Args       Value
}

// Opaque stands for anything without a literal form: bare functions, class
// instances, symbols, host handles.
type Opaque struct {
	Type string
}

func (Undefined) Kind() string  { return "undefined" }
func (Null) Kind() string       { return "null" }
func (Bool) Kind() string       { return "boolean" }
func (Number) Kind() string     { return "number" }
func (String) Kind() string     { return "string" }
func (*Sequence) Kind() string  { return "array" }
func (*Container) Kind() string { return "object" }
func (*Marker) Kind() string    { return "marker" }
func (o Opaque) Kind() string   { return o.Type }

func (Undefined) isValue()  {}
func (Null) isValue()       {}
func (Bool) isValue()       {}
func (Number) isValue()     {}
func (String) isValue()     {}
func (*Sequence) isValue()  {}
func (*Container) isValue() {}
func (*Marker) isValue()    {}
func (Opaque) isValue()     {}

func NewContainer() *Container {
	return &Container{Values: make(map[string]Value)}
}

// Set appends key on first use and overwrites the value otherwise.
func (c *Container) Set(key string, v Value) {
	if _, exists := c.Values[key]; !exists {
		c.Keys = append(c.Keys, key)
	}
	c.Values[key] = v
}

func (c *Container) Get(key string) (Value, bool) {
	v, ok := c.Values[key]
	return v, ok
}

func (c *Container) Len() int {
	return len(c.Keys)
}

// Exports is the module's export surface, keyed by export name.
type Exports = Container

func isReference(v Value) bool {
	switch v.(type) {
	case *Sequence, *Container, *Marker:
		return true
	}
	return false
}
