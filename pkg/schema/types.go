package schema

import "sort"

// Unbounded marks a maxOccurs value without an upper limit.
const Unbounded = -1

// QName is a namespace-qualified name.
type QName struct {
	Space string `json:"space,omitempty"`
	Local string `json:"local"`
}

// String renders the name in Clark notation ({namespace}local), or just the
// local part when the name is unqualified.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// Type is implemented by *SimpleType and *ComplexType.
type Type interface {
	TypeName() string
	isType()
}

// Facets collects the restriction facets declared on a simple type. Nil
// pointers mean the facet is absent. Numeric and date bounds keep their
// lexical form so they can be compared according to the primitive type.
type Facets struct {
	Length         *int     `json:"length,omitempty" yaml:"length,omitempty"`
	MinLength      *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength      *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinInclusive   *string  `json:"minInclusive,omitempty" yaml:"minInclusive,omitempty"`
	MaxInclusive   *string  `json:"maxInclusive,omitempty" yaml:"maxInclusive,omitempty"`
	MinExclusive   *string  `json:"minExclusive,omitempty" yaml:"minExclusive,omitempty"`
	MaxExclusive   *string  `json:"maxExclusive,omitempty" yaml:"maxExclusive,omitempty"`
	TotalDigits    *int     `json:"totalDigits,omitempty" yaml:"totalDigits,omitempty"`
	FractionDigits *int     `json:"fractionDigits,omitempty" yaml:"fractionDigits,omitempty"`
	Patterns       []string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enumeration    []string `json:"enumeration,omitempty" yaml:"enumeration,omitempty"`
	WhiteSpace     string   `json:"whiteSpace,omitempty" yaml:"whiteSpace,omitempty"`
}

// SimpleType is a text-only type. Base points at the type it restricts; the
// chain ends at a builtin type whose name is stored in Builtin.
type SimpleType struct {
	Name    string
	Builtin string
	Base    *SimpleType
	Facets  Facets

	patterns []compiledPattern
}

func (*SimpleType) isType() {}

// TypeName reports the declared name, or the builtin name for anonymous types.
func (t *SimpleType) TypeName() string {
	if t == nil {
		return ""
	}
	if t.Name != "" {
		return t.Name
	}
	if t.Base != nil {
		return t.Base.TypeName()
	}
	return t.Builtin
}

// Primitive returns the builtin type at the root of the derivation chain.
func (t *SimpleType) Primitive() string {
	for cur := t; cur != nil; cur = cur.Base {
		if cur.Base == nil {
			return cur.Builtin
		}
	}
	return BuiltinString
}

// Effective merges the facets of the whole derivation chain. Facets declared
// closer to t win; patterns accumulate because every step must match.
func (t *SimpleType) Effective() Facets {
	var chain []*SimpleType
	for cur := t; cur != nil; cur = cur.Base {
		chain = append(chain, cur)
	}
	var out Facets
	for i := len(chain) - 1; i >= 0; i-- {
		f := chain[i].Facets
		if f.Length != nil {
			out.Length = f.Length
		}
		if f.MinLength != nil {
			out.MinLength = f.MinLength
		}
		if f.MaxLength != nil {
			out.MaxLength = f.MaxLength
		}
		if f.MinInclusive != nil {
			out.MinInclusive = f.MinInclusive
		}
		if f.MaxInclusive != nil {
			out.MaxInclusive = f.MaxInclusive
		}
		if f.MinExclusive != nil {
			out.MinExclusive = f.MinExclusive
		}
		if f.MaxExclusive != nil {
			out.MaxExclusive = f.MaxExclusive
		}
		if f.TotalDigits != nil {
			out.TotalDigits = f.TotalDigits
		}
		if f.FractionDigits != nil {
			out.FractionDigits = f.FractionDigits
		}
		if len(f.Enumeration) > 0 {
			out.Enumeration = append([]string(nil), f.Enumeration...)
		}
		if f.WhiteSpace != "" {
			out.WhiteSpace = f.WhiteSpace
		}
		out.Patterns = append(out.Patterns, f.Patterns...)
	}
	return out
}

// Attribute is an attribute declared on a complex type.
type Attribute struct {
	Name          string
	QName         QName
	Required      bool
	Type          *SimpleType
	Documentation string
}

// ComplexType has child elements, attributes, or simple content with
// attributes.
type ComplexType struct {
	Name          string
	Attributes    []*Attribute
	Elements      []*Element
	SimpleContent *SimpleType
}

func (*ComplexType) isType() {}

// TypeName reports the declared name (empty for anonymous types).
func (t *ComplexType) TypeName() string {
	if t == nil {
		return ""
	}
	return t.Name
}

// HasSimpleContent reports whether the type carries text content only.
func (t *ComplexType) HasSimpleContent() bool {
	return t != nil && t.SimpleContent != nil && len(t.Elements) == 0
}

// Element is a global or local element declaration.
type Element struct {
	Name          string
	QName         QName
	MinOccurs     int
	MaxOccurs     int
	Type          Type
	Documentation string
}

// Unbounded reports whether maxOccurs has no upper limit.
func (e *Element) Unbounded() bool {
	return e != nil && e.MaxOccurs == Unbounded
}

// Simple returns the element's text type when it has simple content, either
// through a simple type or a complex type with simple content.
func (e *Element) Simple() (*SimpleType, bool) {
	if e == nil {
		return nil, false
	}
	switch typ := e.Type.(type) {
	case *SimpleType:
		return typ, true
	case *ComplexType:
		if typ.HasSimpleContent() {
			return typ.SimpleContent, true
		}
	}
	return nil, false
}

// Complex returns the element's complex type when it has element or
// attribute content.
func (e *Element) Complex() (*ComplexType, bool) {
	if e == nil {
		return nil, false
	}
	typ, ok := e.Type.(*ComplexType)
	if !ok || typ.HasSimpleContent() {
		return nil, false
	}
	return typ, true
}

// Schema is a compiled schema: global elements in declaration order, named
// types, and namespace declarations.
type Schema struct {
	TargetNamespace string
	Namespaces      map[string]string
	Elements        []*Element
	Types           map[string]Type
}

// Element looks up a global element by local name.
func (s *Schema) Element(name string) (*Element, bool) {
	if s == nil {
		return nil, false
	}
	for _, el := range s.Elements {
		if el.Name == name {
			return el, true
		}
	}
	return nil, false
}

// ElementNames lists global elements in declaration order.
func (s *Schema) ElementNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Elements))
	for _, el := range s.Elements {
		names = append(names, el.Name)
	}
	return names
}

// TypeNames lists named types sorted alphabetically.
func (s *Schema) TypeNames() []string {
	if s == nil || len(s.Types) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamespaceMap returns a copy of the namespace declarations.
func (s *Schema) NamespaceMap() map[string]string {
	if s == nil || len(s.Namespaces) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Namespaces))
	for prefix, uri := range s.Namespaces {
		out[prefix] = uri
	}
	return out
}
