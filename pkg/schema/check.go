package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Check verifies a schema that was assembled outside Compile, for example by
// an adapter. It reports the same class of problems Compile does.
func (s *Schema) Check() error {
	if s == nil {
		return errors.New("schema: schema is nil")
	}
	var problems []string
	problemf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	checkSimple := func(st *SimpleType, context string) {
		for cur := st; cur != nil; cur = cur.Base {
			if cur.Base == nil {
				if _, ok := NormalizeBuiltin(cur.Builtin); !ok {
					problemf("%s: unknown builtin %q", context, cur.Builtin)
				}
			}
			if _, err := cur.compiledPatterns(); err != nil {
				problemf("%s: %v", context, err)
			}
		}
	}

	var walk func(el *Element, context string, trail map[*ComplexType]bool)
	walk = func(el *Element, context string, trail map[*ComplexType]bool) {
		if el.Type == nil {
			problemf("%s: element has no type", context)
			return
		}
		if el.MinOccurs < 0 {
			problemf("%s: negative minOccurs", context)
		}
		if el.MaxOccurs != Unbounded && el.MaxOccurs < el.MinOccurs {
			problemf("%s: maxOccurs %d is below minOccurs %d", context, el.MaxOccurs, el.MinOccurs)
		}
		switch typ := el.Type.(type) {
		case *SimpleType:
			checkSimple(typ, context)
		case *ComplexType:
			if trail[typ] {
				problemf("%s: recursive content model through %q", context, typ.Name)
				return
			}
			trail[typ] = true
			for _, attr := range typ.Attributes {
				if attr.Type == nil {
					problemf("%s@%s: attribute has no type", context, attr.Name)
					continue
				}
				checkSimple(attr.Type, context+"@"+attr.Name)
			}
			if typ.SimpleContent != nil {
				checkSimple(typ.SimpleContent, context)
			}
			for _, child := range typ.Elements {
				walk(child, context+"."+child.Name, trail)
			}
			delete(trail, typ)
		}
	}

	for _, el := range s.Elements {
		walk(el, el.Name, make(map[*ComplexType]bool))
	}

	if len(problems) > 0 {
		return &ConsistencyError{Problems: problems}
	}
	return nil
}

// Describe renders a short human readable summary of an element tree. The CLI
// prints it when asked to list a schema.
func Describe(el *Element) string {
	var b strings.Builder
	var walk func(el *Element, depth int)
	walk = func(el *Element, depth int) {
		max := fmt.Sprint(el.MaxOccurs)
		if el.Unbounded() {
			max = "*"
		}
		fmt.Fprintf(&b, "%s%s [%d..%s] %s\n", strings.Repeat("  ", depth), el.Name, el.MinOccurs, max, typeLabel(el.Type))
		if ct, ok := el.Complex(); ok {
			for _, attr := range ct.Attributes {
				fmt.Fprintf(&b, "%s@%s %s\n", strings.Repeat("  ", depth+1), attr.Name, attr.Type.TypeName())
			}
			for _, child := range ct.Elements {
				walk(child, depth+1)
			}
		}
	}
	if el != nil {
		walk(el, 0)
	}
	return b.String()
}

func typeLabel(t Type) string {
	if t == nil {
		return "?"
	}
	if name := t.TypeName(); name != "" {
		return name
	}
	return "(anonymous)"
}
