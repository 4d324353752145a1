package core

import (
	"fmt"
	"regexp"
	"strings"
)

// CSSBlock is a rule or at-rule. Statement blocks render without a body.
type CSSBlock struct {
	Prelude      string
	Declarations []Declaration
	Children     []*CSSBlock
	Statement    bool
}

type Declaration struct {
	Property string
	Value    string
}

type StylesheetInput struct {
	LocalClassNames    []string
	ComposedClassLists []ComposedClassList
	Fragments          []StyleFragment
}

var conditionKeys = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@container": true,
	"@layer":     true,
}

var unitless = map[string]bool{
	"animationIterationCount": true,
	"aspectRatio":             true,
	"borderImageOutset":       true,
	"borderImageSlice":        true,
	"borderImageWidth":        true,
	"boxFlex":                 true,
	"boxFlexGroup":            true,
	"columnCount":             true,
	"columns":                 true,
	"fillOpacity":             true,
	"flex":                    true,
	"flexGrow":                true,
	"flexShrink":              true,
	"floodOpacity":            true,
	"fontWeight":              true,
	"gridArea":                true,
	"gridColumn":              true,
	"gridColumnEnd":           true,
	"gridColumnStart":         true,
	"gridRow":                 true,
	"gridRowEnd":              true,
	"gridRowStart":            true,
	"initialLetter":           true,
	"lineClamp":               true,
	"lineHeight":              true,
	"maskBorderOutset":        true,
	"maskBorderSlice":         true,
	"maskBorderWidth":         true,
	"maxLines":                true,
	"opacity":                 true,
	"order":                   true,
	"orphans":                 true,
	"scale":                   true,
	"shapeImageThreshold":     true,
	"stopOpacity":             true,
	"strokeDashoffset":        true,
	"strokeMiterlimit":        true,
	"strokeOpacity":           true,
	"strokeWidth":             true,
	"tabSize":                 true,
	"WebkitLineClamp":         true,
	"widows":                  true,
	"zIndex":                  true,
	"zoom":                    true,
}

type compositionRewrite struct {
	pattern *regexp.Regexp
	repl    string
}

type sheetBuilder struct {
	rewrites []compositionRewrite
}

// BuildStylesheet turns captured fragments into stylesheet blocks. Exact
// duplicate top-level blocks are kept once, at their first position.
func BuildStylesheet(in StylesheetInput) ([]*CSSBlock, error) {
	b := &sheetBuilder{rewrites: compositionRewrites(in.LocalClassNames, in.ComposedClassLists)}

	var blocks []*CSSBlock
	seen := make(map[string]bool)
	for i, fragment := range in.Fragments {
		fragmentBlocks, err := b.fragment(fragment.Payload)
		if err != nil {
			return nil, fmt.Errorf("style fragment %d of %s: %w", i, fragment.Scope, err)
		}
		for _, block := range fragmentBlocks {
			key := RenderCSS([]*CSSBlock{block})
			if seen[key] {
				continue
			}
			seen[key] = true
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

// compositionRewrites maps composed identifiers that are not themselves
// local class names onto the classes they compose.
func compositionRewrites(local []string, composed []ComposedClassList) []compositionRewrite {
	localSet := make(map[string]bool, len(local))
	for _, name := range local {
		localSet[name] = true
	}

	var rewrites []compositionRewrite
	for _, entry := range composed {
		if localSet[entry.Identifier] {
			continue
		}
		classes := strings.Fields(entry.ClassList)
		if len(classes) == 0 {
			continue
		}
		rewrites = append(rewrites, compositionRewrite{
			pattern: regexp.MustCompile(`\.` + regexp.QuoteMeta(entry.Identifier) + `([^\w-]|$)`),
			repl:    "." + strings.Join(classes, ".") + "${1}",
		})
	}
	return rewrites
}

func (b *sheetBuilder) selector(s string) string {
	for _, rw := range b.rewrites {
		s = rw.pattern.ReplaceAllString(s, rw.repl)
	}
	return s
}

func (b *sheetBuilder) fragment(payload Value) ([]*CSSBlock, error) {
	obj, ok := payload.(*Container)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", payload.Kind())
	}
	kind := stringField(obj, "type")

	switch kind {
	case "local", "global":
		selector := stringField(obj, "selector")
		if selector == "" {
			return nil, fmt.Errorf("%s style without a selector", kind)
		}
		rule, err := containerField(obj, "rule")
		if err != nil {
			return nil, err
		}
		return b.styleRule(b.selector(selector), rule)

	case "fontFace":
		return b.fontFace(obj)

	case "keyframes":
		name := stringField(obj, "name")
		if name == "" {
			return nil, fmt.Errorf("keyframes without a name")
		}
		rule, err := containerField(obj, "rule")
		if err != nil {
			return nil, err
		}
		block := &CSSBlock{Prelude: "@keyframes " + name}
		for _, step := range rule.Keys {
			frame, ok := rule.Values[step].(*Container)
			if !ok {
				return nil, fmt.Errorf("keyframe %q is not an object", step)
			}
			decls, err := declarations(frame)
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, &CSSBlock{Prelude: step, Declarations: decls})
		}
		return []*CSSBlock{block}, nil

	case "property":
		name := stringField(obj, "name")
		rule, err := containerField(obj, "rule")
		if err != nil {
			return nil, err
		}
		decls, err := declarations(rule)
		if err != nil {
			return nil, err
		}
		return []*CSSBlock{{Prelude: "@property " + name, Declarations: decls}}, nil

	case "layer":
		name := stringField(obj, "name")
		if name == "" {
			return nil, fmt.Errorf("layer without a name")
		}
		return []*CSSBlock{{Prelude: "@layer " + name, Statement: true}}, nil
	}
	return nil, fmt.Errorf("unknown style type %q", kind)
}

func (b *sheetBuilder) fontFace(obj *Container) ([]*CSSBlock, error) {
	raw, _ := obj.Get("rule")

	var rules []*Container
	switch rule := raw.(type) {
	case *Container:
		rules = append(rules, rule)
	case *Sequence:
		for _, item := range rule.Items {
			c, ok := item.(*Container)
			if !ok {
				return nil, fmt.Errorf("font face rule is not an object")
			}
			rules = append(rules, c)
		}
	default:
		return nil, fmt.Errorf("font face without a rule")
	}

	blocks := make([]*CSSBlock, 0, len(rules))
	for _, rule := range rules {
		decls, err := declarations(rule)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, &CSSBlock{Prelude: "@font-face", Declarations: decls})
	}
	return blocks, nil
}

// styleRule expands one style object into the rule for selector followed by
// its nested selectors and conditions.
func (b *sheetBuilder) styleRule(selector string, rule *Container) ([]*CSSBlock, error) {
	main := &CSSBlock{Prelude: selector}
	var nested []*CSSBlock

	for _, key := range rule.Keys {
		value := rule.Values[key]

		switch {
		case key == "selectors":
			selectors, ok := value.(*Container)
			if !ok {
				return nil, fmt.Errorf("selectors of %s is not an object", selector)
			}
			for _, sel := range selectors.Keys {
				sub, ok := selectors.Values[sel].(*Container)
				if !ok {
					return nil, fmt.Errorf("selector %q is not an object", sel)
				}
				blocks, err := b.styleRule(b.selector(strings.ReplaceAll(sel, "&", selector)), sub)
				if err != nil {
					return nil, err
				}
				nested = append(nested, blocks...)
			}

		case conditionKeys[key]:
			conditions, ok := value.(*Container)
			if !ok {
				return nil, fmt.Errorf("%s of %s is not an object", key, selector)
			}
			for _, query := range conditions.Keys {
				sub, ok := conditions.Values[query].(*Container)
				if !ok {
					return nil, fmt.Errorf("%s %q is not an object", key, query)
				}
				children, err := b.styleRule(selector, sub)
				if err != nil {
					return nil, err
				}
				nested = append(nested, &CSSBlock{Prelude: key + " " + query, Children: children})
			}

		case key == "vars":
			vars, ok := value.(*Container)
			if !ok {
				return nil, fmt.Errorf("vars of %s is not an object", selector)
			}
			for _, name := range vars.Keys {
				decls, err := declaration(varName(name), varName(name), vars.Values[name])
				if err != nil {
					return nil, err
				}
				main.Declarations = append(main.Declarations, decls...)
			}

		case strings.HasPrefix(key, ":"):
			sub, ok := value.(*Container)
			if !ok {
				return nil, fmt.Errorf("pseudo %q of %s is not an object", key, selector)
			}
			blocks, err := b.styleRule(selector+key, sub)
			if err != nil {
				return nil, err
			}
			nested = append(nested, blocks...)

		default:
			decls, err := declaration(PropertyName(key), key, value)
			if err != nil {
				return nil, err
			}
			main.Declarations = append(main.Declarations, decls...)
		}
	}

	if len(main.Declarations) == 0 {
		return nested, nil
	}
	return append([]*CSSBlock{main}, nested...), nil
}

func declarations(rule *Container) ([]Declaration, error) {
	var decls []Declaration
	for _, key := range rule.Keys {
		d, err := declaration(PropertyName(key), key, rule.Values[key])
		if err != nil {
			return nil, err
		}
		decls = append(decls, d...)
	}
	return decls, nil
}

// declaration renders one property. Arrays become fallback declarations in
// order.
func declaration(property, key string, v Value) ([]Declaration, error) {
	switch val := v.(type) {
	case String:
		return []Declaration{{Property: property, Value: string(val)}}, nil
	case Number:
		return []Declaration{{Property: property, Value: cssNumber(key, float64(val))}}, nil
	case *Sequence:
		var decls []Declaration
		for _, item := range val.Items {
			d, err := declaration(property, key, item)
			if err != nil {
				return nil, err
			}
			decls = append(decls, d...)
		}
		return decls, nil
	case Undefined, Null:
		return nil, nil
	}
	return nil, fmt.Errorf("property %q has unsupported value of kind %s", key, v.Kind())
}

func cssNumber(key string, f float64) string {
	if f == 0 {
		return "0"
	}
	s := FormatNumber(f)
	if unitless[key] || strings.HasPrefix(key, "--") {
		return s
	}
	return s + "px"
}

// PropertyName converts a camelCase style key into its CSS property name.
// Custom properties pass through.
func PropertyName(key string) string {
	if strings.HasPrefix(key, "--") {
		return key
	}

	var sb strings.Builder
	if strings.HasPrefix(key, "ms") && len(key) > 2 && key[2] >= 'A' && key[2] <= 'Z' {
		sb.WriteString("-")
	}
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func varName(name string) string {
	if strings.HasPrefix(name, "var(") && strings.HasSuffix(name, ")") {
		return strings.TrimSuffix(strings.TrimPrefix(name, "var("), ")")
	}
	return name
}

// RenderCSS prints blocks with two-space indentation.
func RenderCSS(blocks []*CSSBlock) string {
	var sb strings.Builder
	for _, block := range blocks {
		renderBlock(&sb, block, 0)
	}
	return sb.String()
}

func renderBlock(sb *strings.Builder, block *CSSBlock, depth int) {
	indent := strings.Repeat("  ", depth)
	if block.Statement {
		fmt.Fprintf(sb, "%s%s;\n", indent, block.Prelude)
		return
	}

	fmt.Fprintf(sb, "%s%s {\n", indent, block.Prelude)
	for _, d := range block.Declarations {
		fmt.Fprintf(sb, "%s  %s: %s;\n", indent, d.Property, d.Value)
	}
	for _, child := range block.Children {
		renderBlock(sb, child, depth+1)
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}

func stringField(obj *Container, key string) string {
	if s, ok := obj.Values[key].(String); ok {
		return string(s)
	}
	return ""
}

func containerField(obj *Container, key string) (*Container, error) {
	c, ok := obj.Values[key].(*Container)
	if !ok {
		return nil, fmt.Errorf("%s is not an object", key)
	}
	return c, nil
}
