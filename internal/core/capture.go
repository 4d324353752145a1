package core

import "fmt"

type FileScope struct {
	FilePath    string
	PackageName string
}

// StyleFragment is one captured style payload and the scope that was active
// when it was emitted.
type StyleFragment struct {
	Scope   string
	Payload Value
}

type ComposedClassList struct {
	Identifier string
	ClassList  string
}

// Capture is the side-channel state of a single execution. It is created
// fresh for every pipeline invocation and handed to the sandbox explicitly.
type Capture struct {
	outputCSS bool
	identMode IdentMode

	scopes    []string
	fragments map[string][]StyleFragment

	localClassNames []string
	localSet        map[string]bool

	composed    []ComposedClassList
	composedSet map[string]bool

	used map[string]bool
}

func NewCapture(outputCSS bool, identMode IdentMode) *Capture {
	if identMode == "" {
		identMode = IdentDebug
	}
	return &Capture{
		outputCSS:   outputCSS,
		identMode:   identMode,
		fragments:   make(map[string][]StyleFragment),
		localSet:    make(map[string]bool),
		composedSet: make(map[string]bool),
		used:        make(map[string]bool),
	}
}

// AppendCSS records payload under scope. It is a no-op when stylesheet
// output is disabled.
func (c *Capture) AppendCSS(payload Value, scope FileScope) error {
	if !c.outputCSS {
		return nil
	}
	if scope.FilePath == "" {
		return fmt.Errorf("appendCss called without a file scope")
	}

	if _, seen := c.fragments[scope.FilePath]; !seen {
		c.scopes = append(c.scopes, scope.FilePath)
	}
	c.fragments[scope.FilePath] = append(c.fragments[scope.FilePath], StyleFragment{
		Scope:   scope.FilePath,
		Payload: payload,
	})
	return nil
}

func (c *Capture) RegisterClassName(name string) {
	if c.localSet[name] {
		return
	}
	c.localSet[name] = true
	c.localClassNames = append(c.localClassNames, name)
}

func (c *Capture) RegisterComposition(entry ComposedClassList) error {
	if entry.Identifier == "" {
		return fmt.Errorf("composition registered without an identifier")
	}
	if c.composedSet[entry.Identifier] {
		return fmt.Errorf("composition %q registered twice", entry.Identifier)
	}
	c.composedSet[entry.Identifier] = true
	c.composed = append(c.composed, entry)
	return nil
}

func (c *Capture) MarkCompositionUsed(identifier string) {
	c.used[identifier] = true
}

func (c *Capture) OnEndFileScope(FileScope) {}

func (c *Capture) IdentMode() IdentMode {
	return c.identMode
}

// Scopes lists every scope that emitted at least one fragment, in order of
// its first fragment.
func (c *Capture) Scopes() []string {
	return append([]string(nil), c.scopes...)
}

func (c *Capture) Fragments(scope string) []StyleFragment {
	return append([]StyleFragment(nil), c.fragments[scope]...)
}

func (c *Capture) LocalClassNames() []string {
	return append([]string(nil), c.localClassNames...)
}

func (c *Capture) ComposedClassLists() []ComposedClassList {
	return append([]ComposedClassList(nil), c.composed...)
}

// UnusedCompositions returns identifiers of compositions never marked used,
// in registration order.
func (c *Capture) UnusedCompositions() []string {
	var unused []string
	for _, entry := range c.composed {
		if !c.used[entry.Identifier] {
			unused = append(unused, entry.Identifier)
		}
	}
	return unused
}
