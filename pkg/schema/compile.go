package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInconsistent is wrapped by ConsistencyError.
var ErrInconsistent = errors.New("schema: inconsistent definition")

// ConsistencyError lists every problem found while compiling a definition.
type ConsistencyError struct {
	Problems []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("schema: %d consistency problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Unwrap allows errors.Is(err, ErrInconsistent).
func (e *ConsistencyError) Unwrap() error {
	return ErrInconsistent
}

type compiler struct {
	def       Definition
	simple    map[string]*SimpleTypeDef
	complex   map[string]*ComplexTypeDef
	types     map[string]Type
	resolving map[string]bool
	problems  []string
}

// Compile resolves type references in def and checks the result for internal
// consistency. Any problem fails the whole compilation.
func Compile(def Definition) (*Schema, error) {
	c := &compiler{
		def:       def,
		simple:    make(map[string]*SimpleTypeDef),
		complex:   make(map[string]*ComplexTypeDef),
		types:     make(map[string]Type),
		resolving: make(map[string]bool),
	}

	for i := range def.SimpleTypes {
		st := &def.SimpleTypes[i]
		c.declare(st.Name, "simple type")
		c.simple[st.Name] = st
	}
	for i := range def.ComplexTypes {
		ct := &def.ComplexTypes[i]
		c.declare(ct.Name, "complex type")
		c.complex[ct.Name] = ct
	}

	for _, name := range sortedKeys(c.simple) {
		c.namedSimple(name)
	}
	for _, name := range sortedKeys(c.complex) {
		c.namedComplex(name)
	}

	out := &Schema{
		TargetNamespace: def.TargetNamespace,
		Namespaces:      make(map[string]string, len(def.Namespaces)),
		Types:           c.types,
	}
	for prefix, uri := range def.Namespaces {
		out.Namespaces[prefix] = uri
	}

	seen := make(map[string]bool, len(def.Elements))
	for _, ed := range def.Elements {
		if seen[ed.Name] {
			c.problemf("duplicate global element %q", ed.Name)
			continue
		}
		seen[ed.Name] = true
		el := c.element(ed, true, ed.Name)
		if el == nil {
			continue
		}
		el.MinOccurs, el.MaxOccurs = 1, 1
		out.Elements = append(out.Elements, el)
	}

	c.checkRecursion()

	if len(c.problems) > 0 {
		return nil, &ConsistencyError{Problems: c.problems}
	}
	return out, nil
}

// CompileDocument decodes and compiles a definition document.
func CompileDocument(doc Document) (*Schema, error) {
	def, err := DecodeDefinition(doc.Raw(), doc.Location())
	if err != nil {
		return nil, err
	}
	return Compile(def)
}

func (c *compiler) problemf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *compiler) declare(name, kind string) {
	if strings.TrimSpace(name) == "" {
		c.problemf("%s without a name", kind)
		return
	}
	if _, ok := NormalizeBuiltin(name); ok {
		c.problemf("%s %q shadows a builtin type", kind, name)
	}
	if _, ok := c.simple[name]; ok {
		c.problemf("duplicate type %q", name)
	}
	if _, ok := c.complex[name]; ok {
		c.problemf("duplicate type %q", name)
	}
}

func (c *compiler) namedSimple(name string) *SimpleType {
	if typ, ok := c.types[name]; ok {
		st, _ := typ.(*SimpleType)
		return st
	}
	def, ok := c.simple[name]
	if !ok {
		return nil
	}
	if c.resolving[name] {
		c.problemf("simple type %q derives from itself", name)
		return nil
	}
	c.resolving[name] = true
	st := c.simpleType(*def, name)
	delete(c.resolving, name)
	if st != nil {
		c.types[name] = st
	}
	return st
}

func (c *compiler) simpleType(def SimpleTypeDef, context string) *SimpleType {
	st := &SimpleType{Name: def.Name, Facets: def.Facets}
	base := def.Base
	if strings.TrimSpace(base) == "" {
		base = BuiltinString
	}
	if builtin, ok := NormalizeBuiltin(base); ok {
		st.Builtin = builtin
	} else {
		parent := c.namedSimple(base)
		if parent == nil {
			c.problemf("%s: unknown simple base type %q", context, base)
			return nil
		}
		st.Base = parent
	}
	c.checkFacets(st, context)
	return st
}

func (c *compiler) checkFacets(st *SimpleType, context string) {
	f := st.Facets
	for _, p := range f.Patterns {
		if _, err := CompilePattern(p); err != nil {
			c.problemf("%s: %v", context, err)
		}
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		c.problemf("%s: minLength %d exceeds maxLength %d", context, *f.MinLength, *f.MaxLength)
	}
	for _, v := range []*int{f.Length, f.MinLength, f.MaxLength, f.TotalDigits, f.FractionDigits} {
		if v != nil && *v < 0 {
			c.problemf("%s: negative facet value %d", context, *v)
		}
	}
	primitive := st.Primitive()
	if f.MinInclusive != nil && f.MaxInclusive != nil {
		if cmp, err := compareValues(primitive, *f.MinInclusive, *f.MaxInclusive); err != nil {
			c.problemf("%s: %v", context, err)
		} else if cmp > 0 {
			c.problemf("%s: minInclusive %s exceeds maxInclusive %s", context, *f.MinInclusive, *f.MaxInclusive)
		}
	}
	for _, v := range f.Enumeration {
		if err := checkLexical(primitive, v); err != nil {
			c.problemf("%s: enumeration value: %v", context, err)
		}
	}
}

func (c *compiler) namedComplex(name string) *ComplexType {
	if typ, ok := c.types[name]; ok {
		ct, _ := typ.(*ComplexType)
		return ct
	}
	def, ok := c.complex[name]
	if !ok {
		return nil
	}
	ct := &ComplexType{Name: name}
	// Registered before children so recursive references resolve; the
	// recursion check reports them afterwards.
	c.types[name] = ct
	c.fillComplex(ct, *def, name)
	return ct
}

func (c *compiler) fillComplex(ct *ComplexType, def ComplexTypeDef, context string) {
	for _, ad := range def.Attributes {
		attr := &Attribute{
			Name:          ad.Name,
			QName:         QName{Local: ad.Name},
			Required:      strings.EqualFold(ad.Use, "required"),
			Documentation: strings.TrimSpace(ad.Doc),
		}
		attrCtx := context + "@" + ad.Name
		switch {
		case ad.SimpleType != nil:
			attr.Type = c.simpleType(*ad.SimpleType, attrCtx)
		default:
			attr.Type = c.simpleRef(ad.Type, attrCtx)
		}
		if attr.Type == nil {
			continue
		}
		ct.Attributes = append(ct.Attributes, attr)
	}
	if def.SimpleContent != "" {
		ct.SimpleContent = c.simpleRef(def.SimpleContent, context)
	}
	seen := make(map[string]bool, len(def.Sequence))
	for _, ed := range def.Sequence {
		if seen[ed.Name] {
			c.problemf("%s: duplicate child element %q", context, ed.Name)
			continue
		}
		seen[ed.Name] = true
		if el := c.element(ed, false, context+"."+ed.Name); el != nil {
			ct.Elements = append(ct.Elements, el)
		}
	}
}

func (c *compiler) simpleRef(name, context string) *SimpleType {
	if strings.TrimSpace(name) == "" {
		name = BuiltinString
	}
	if builtin, ok := NormalizeBuiltin(name); ok {
		return &SimpleType{Builtin: builtin}
	}
	if st := c.namedSimple(name); st != nil {
		return st
	}
	c.problemf("%s: unknown simple type %q", context, name)
	return nil
}

func (c *compiler) element(ed ElementDef, global bool, context string) *Element {
	if strings.TrimSpace(ed.Name) == "" {
		c.problemf("%s: element without a name", context)
		return nil
	}
	el := &Element{Name: ed.Name, MinOccurs: 1, MaxOccurs: 1, Documentation: strings.TrimSpace(ed.Doc)}
	if global || strings.EqualFold(c.def.ElementFormDefault, "qualified") {
		el.QName = QName{Space: c.def.TargetNamespace, Local: ed.Name}
	} else {
		el.QName = QName{Local: ed.Name}
	}
	if ed.MinOccurs != nil {
		el.MinOccurs = *ed.MinOccurs
	}
	if ed.MaxOccurs != nil {
		el.MaxOccurs = int(*ed.MaxOccurs)
	}
	if el.MinOccurs < 0 {
		c.problemf("%s: negative minOccurs", context)
	}
	if el.MaxOccurs != Unbounded && el.MaxOccurs < el.MinOccurs {
		c.problemf("%s: maxOccurs %d is below minOccurs %d", context, el.MaxOccurs, el.MinOccurs)
	}

	switch {
	case ed.ComplexType != nil:
		ct := &ComplexType{Name: ed.ComplexType.Name}
		c.fillComplex(ct, *ed.ComplexType, context)
		el.Type = ct
	case ed.SimpleType != nil:
		st := c.simpleType(*ed.SimpleType, context)
		if st == nil {
			return nil
		}
		el.Type = st
	default:
		typeName := ed.Type
		if strings.TrimSpace(typeName) == "" {
			typeName = BuiltinString
		}
		if builtin, ok := NormalizeBuiltin(typeName); ok {
			el.Type = &SimpleType{Builtin: builtin}
		} else if _, ok := c.complex[typeName]; ok {
			el.Type = c.namedComplex(typeName)
		} else if st := c.namedSimple(typeName); st != nil {
			el.Type = st
		} else {
			c.problemf("%s: unknown type %q", context, typeName)
			return nil
		}
	}
	return el
}

// checkRecursion reports named complex types that contain themselves. A form
// tree built from such a type would never terminate.
func (c *compiler) checkRecursion() {
	const (
		white = iota
		grey
		black
	)
	state := make(map[*ComplexType]int)
	var visit func(ct *ComplexType, trail []string)
	visit = func(ct *ComplexType, trail []string) {
		switch state[ct] {
		case grey:
			c.problemf("recursive content model: %s", strings.Join(append(trail, ct.Name), " -> "))
			return
		case black:
			return
		}
		state[ct] = grey
		for _, el := range ct.Elements {
			if child, ok := el.Type.(*ComplexType); ok {
				visit(child, append(trail, ct.Name))
			}
		}
		state[ct] = black
	}
	for _, name := range sortedKeys(c.complex) {
		if ct, ok := c.types[name].(*ComplexType); ok {
			visit(ct, nil)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
