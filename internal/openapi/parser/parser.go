package parser

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	pkgopenapi "github.com/goliatone/go-xsdform/pkg/openapi"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

const componentPrefix = "#/components/schemas/"

// Parser implements pkgopenapi.Compiler using kin-openapi.
type Parser struct {
	options pkgopenapi.Options
}

var _ pkgopenapi.Compiler = (*Parser)(nil)

// New constructs a Parser with the given options.
func New(options pkgopenapi.Options) *Parser {
	return &Parser{options: options}
}

// Definition loads doc and converts its component schemas.
func (p *Parser) Definition(ctx context.Context, doc schema.Document) (schema.Definition, error) {
	if err := ctx.Err(); err != nil {
		return schema.Definition{}, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return schema.Definition{}, fmt.Errorf("openapi parser: document payload is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return schema.Definition{}, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if p.options.Validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return schema.Definition{}, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return schema.Definition{}, pkgopenapi.ErrNoComponents
	}

	b := newBuilder(spec.Components.Schemas, p.options)
	def := b.build()
	if len(b.problems) > 0 {
		return schema.Definition{}, &schema.ConsistencyError{Problems: b.problems}
	}
	p.options.Logger.Info("openapi components converted",
		"location", doc.Location(),
		"elements", len(def.Elements),
		"complex_types", len(def.ComplexTypes),
		"simple_types", len(def.SimpleTypes),
	)
	return def, nil
}

type builder struct {
	components openapi3.Schemas
	options    pkgopenapi.Options
	named      map[string]bool
	problems   []string
}

func newBuilder(components openapi3.Schemas, options pkgopenapi.Options) *builder {
	b := &builder{components: components, options: options, named: make(map[string]bool)}
	for name, ref := range components {
		if ref == nil || ref.Value == nil || isArray(ref.Value) {
			continue
		}
		b.named[name] = true
	}
	return b
}

func (b *builder) problemf(format string, args ...any) {
	b.problems = append(b.problems, fmt.Sprintf(format, args...))
}

func (b *builder) build() schema.Definition {
	def := schema.Definition{
		ElementFormDefault: b.options.ElementFormDefault,
		Namespaces:         make(map[string]string),
	}
	names := make([]string, 0, len(b.components))
	for name := range b.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := b.components[name]
		if ref == nil || ref.Value == nil {
			b.problemf("%s: unresolved component", name)
			continue
		}
		s := ref.Value
		if x := s.XML; x != nil && x.Namespace != "" {
			if def.TargetNamespace == "" {
				def.TargetNamespace = x.Namespace
			}
			if x.Prefix != "" {
				def.Namespaces[x.Prefix] = x.Namespace
			}
		}
		switch {
		case isArray(s):
			b.options.Logger.Debug("openapi array component inlined at use sites", "component", name)
		case isObject(s):
			def.ComplexTypes = append(def.ComplexTypes, b.complexType(name, s))
			if len(b.options.Roots) == 0 || slices.Contains(b.options.Roots, name) {
				def.Elements = append(def.Elements, schema.ElementDef{
					Name: xmlName(name, s),
					Type: name,
					Doc:  describe(s),
				})
			}
		default:
			def.SimpleTypes = append(def.SimpleTypes, simpleType(name, s))
		}
	}
	for _, root := range b.options.Roots {
		if !b.named[root] {
			b.problemf("root %q is not an object component", root)
		}
	}
	return def
}

func (b *builder) complexType(name string, s *openapi3.Schema) schema.ComplexTypeDef {
	ct := schema.ComplexTypeDef{Name: name}
	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 {
		b.problemf("%s: oneOf/anyOf are not supported", contextName(name))
	}
	props, required := flatten(s)
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop := props[key]
		if prop == nil || prop.Value == nil {
			b.problemf("%s.%s: unresolved property", contextName(name), key)
			continue
		}
		isRequired := slices.Contains(required, key)
		if x := prop.Value.XML; x != nil && x.Attribute {
			ct.Attributes = append(ct.Attributes, b.attribute(name, key, prop, isRequired))
			continue
		}
		ct.Sequence = append(ct.Sequence, b.element(name, key, prop, isRequired))
	}
	return ct
}

func (b *builder) attribute(owner, key string, ref *openapi3.SchemaRef, required bool) schema.AttributeDef {
	s := ref.Value
	attr := schema.AttributeDef{Name: xmlName(key, s), Doc: describe(s)}
	if required {
		attr.Use = "required"
	}
	switch {
	case isObject(s) || isArray(s):
		b.problemf("%s@%s: attributes must be scalar", contextName(owner), key)
		attr.Type = schema.BuiltinString
	case b.componentName(ref) != "":
		attr.Type = b.componentName(ref)
	case hasFacets(s):
		st := simpleType("", s)
		attr.SimpleType = &st
	default:
		attr.Type = builtin(s)
	}
	return attr
}

func (b *builder) element(owner, key string, ref *openapi3.SchemaRef, required bool) schema.ElementDef {
	s := ref.Value
	if isArray(s) {
		if s.Items == nil || s.Items.Value == nil {
			b.problemf("%s.%s: array without items", contextName(owner), key)
			return schema.ElementDef{Name: key}
		}
		el := b.element(owner, key, s.Items, true)
		if s.XML != nil && s.XML.Name != "" {
			el.Name = s.XML.Name
		}
		minItems := int(s.MinItems)
		el.MinOccurs = &minItems
		maxItems := schema.Occurs(schema.Unbounded)
		if s.MaxItems != nil {
			maxItems = schema.Occurs(*s.MaxItems)
		}
		el.MaxOccurs = &maxItems
		if el.Doc == "" {
			el.Doc = describe(s)
		}
		return el
	}

	el := schema.ElementDef{Name: xmlName(key, s), Doc: describe(s)}
	if !required {
		zero := 0
		el.MinOccurs = &zero
	}
	switch {
	case b.componentName(ref) != "":
		el.Type = b.componentName(ref)
	case isObject(s):
		ct := b.complexType(contextName(owner)+"."+key, s)
		ct.Name = ""
		el.ComplexType = &ct
	case hasFacets(s):
		st := simpleType("", s)
		el.SimpleType = &st
	default:
		el.Type = builtin(s)
	}
	return el
}

func (b *builder) componentName(ref *openapi3.SchemaRef) string {
	name, ok := strings.CutPrefix(ref.Ref, componentPrefix)
	if !ok || !b.named[name] {
		return ""
	}
	return name
}

func simpleType(name string, s *openapi3.Schema) schema.SimpleTypeDef {
	return schema.SimpleTypeDef{Name: name, Base: builtin(s), Facets: facets(s)}
}

// flatten merges allOf members into the schema's own properties.
func flatten(s *openapi3.Schema) (openapi3.Schemas, []string) {
	props := make(openapi3.Schemas, len(s.Properties))
	required := append([]string(nil), s.Required...)
	for _, part := range s.AllOf {
		if part == nil || part.Value == nil {
			continue
		}
		sub, req := flatten(part.Value)
		for k, v := range sub {
			props[k] = v
		}
		required = append(required, req...)
	}
	for k, v := range s.Properties {
		props[k] = v
	}
	return props, required
}

func builtin(s *openapi3.Schema) string {
	switch primaryType(s) {
	case openapi3.TypeInteger:
		switch s.Format {
		case "int32":
			return schema.BuiltinInt
		case "int64":
			return schema.BuiltinLong
		}
		return schema.BuiltinInteger
	case openapi3.TypeNumber:
		switch s.Format {
		case "float":
			return schema.BuiltinFloat
		case "double":
			return schema.BuiltinDouble
		}
		return schema.BuiltinDecimal
	case openapi3.TypeBoolean:
		return schema.BuiltinBoolean
	}
	switch s.Format {
	case "date":
		return schema.BuiltinDate
	case "date-time":
		return schema.BuiltinDateTime
	case "time":
		return schema.BuiltinTime
	case "uri":
		return schema.BuiltinAnyURI
	}
	return schema.BuiltinString
}

func facets(s *openapi3.Schema) schema.Facets {
	var f schema.Facets
	if s.Pattern != "" {
		f.Patterns = []string{strings.TrimSuffix(strings.TrimPrefix(s.Pattern, "^"), "$")}
	}
	for _, v := range s.Enum {
		if v == nil {
			continue
		}
		f.Enumeration = append(f.Enumeration, lexical(v))
	}
	if s.MinLength > 0 {
		n := int(s.MinLength)
		f.MinLength = &n
	}
	if s.MaxLength != nil {
		n := int(*s.MaxLength)
		f.MaxLength = &n
	}
	if s.Min != nil {
		v := strconv.FormatFloat(*s.Min, 'f', -1, 64)
		if s.ExclusiveMin {
			f.MinExclusive = &v
		} else {
			f.MinInclusive = &v
		}
	}
	if s.Max != nil {
		v := strconv.FormatFloat(*s.Max, 'f', -1, 64)
		if s.ExclusiveMax {
			f.MaxExclusive = &v
		} else {
			f.MaxInclusive = &v
		}
	}
	return f
}

func hasFacets(s *openapi3.Schema) bool {
	return s.Pattern != "" || len(s.Enum) > 0 || s.MinLength > 0 || s.MaxLength != nil || s.Min != nil || s.Max != nil
}

func lexical(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func primaryType(s *openapi3.Schema) string {
	if s.Type == nil {
		return ""
	}
	for _, t := range s.Type.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func isArray(s *openapi3.Schema) bool {
	return primaryType(s) == openapi3.TypeArray
}

func isObject(s *openapi3.Schema) bool {
	t := primaryType(s)
	return t == openapi3.TypeObject || (t == "" && (len(s.Properties) > 0 || len(s.AllOf) > 0))
}

func xmlName(name string, s *openapi3.Schema) string {
	if s.XML != nil && s.XML.Name != "" {
		return s.XML.Name
	}
	return name
}

func describe(s *openapi3.Schema) string {
	if s.Description != "" {
		return strings.TrimSpace(s.Description)
	}
	return strings.TrimSpace(s.Title)
}

func contextName(name string) string {
	if name == "" {
		return "(inline)"
	}
	return name
}
