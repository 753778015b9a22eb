package model

import (
	"sort"
	"strconv"

	"github.com/goliatone/go-xsdform/pkg/schema"
)

// Builder converts a compiled schema into a FormModel rooted at one global
// element.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	opts := defaultOptions()
	if options.Labeler != nil {
		opts.Labeler = options.Labeler
	}
	opts.OmitDocumentation = options.OmitDocumentation
	return &Builder{opts: opts}
}

// Build produces the SectionDef tree for root. An empty root selects the first
// global element.
func (b *Builder) Build(s *schema.Schema, root string) (FormModel, error) {
	el, err := validateRoot(s, root)
	if err != nil {
		return FormModel{}, err
	}
	ct, _ := el.Complex()

	model := FormModel{
		TargetNamespace: s.TargetNamespace,
		Namespaces:      s.NamespaceMap(),
	}
	model.Root = b.section(el, ct, el.Name)
	return model, nil
}

func (b *Builder) section(el *schema.Element, ct *schema.ComplexType, path string) SectionDef {
	sec := SectionDef{
		Name:      el.Name,
		QName:     el.QName.String(),
		Path:      path,
		Label:     b.opts.Labeler(el.Name),
		MinOccurs: el.MinOccurs,
		MaxOccurs: maxOccurs(el.MaxOccurs),
	}
	if !b.opts.OmitDocumentation {
		sec.Documentation = el.Documentation
	}

	for _, attr := range ct.Attributes {
		sec.Fields = append(sec.Fields, b.attributeField(attr, path))
	}
	for _, child := range ct.Elements {
		childPath := path + "." + child.Name
		if st, ok := child.Simple(); ok {
			sec.Fields = append(sec.Fields, b.elementField(child, st, childPath))
			continue
		}
		if childType, ok := child.Complex(); ok {
			sec.Sections = append(sec.Sections, b.section(child, childType, childPath))
		}
	}
	return sec
}

func (b *Builder) elementField(el *schema.Element, st *schema.SimpleType, path string) FieldDef {
	field := b.simpleField(el.Name, st, path)
	field.QName = el.QName.String()
	field.MinOccurs = el.MinOccurs
	field.MaxOccurs = maxOccurs(el.MaxOccurs)
	field.Required = el.MinOccurs >= 1
	field.List = el.Unbounded() || el.MaxOccurs > 1
	if !b.opts.OmitDocumentation {
		field.Documentation = el.Documentation
	}
	return field
}

func (b *Builder) attributeField(attr *schema.Attribute, parent string) FieldDef {
	field := b.simpleField(attr.Name, attr.Type, parent+"."+attr.Name)
	field.QName = attr.QName.String()
	field.Attribute = true
	field.Required = attr.Required
	one := 1
	field.MaxOccurs = &one
	if attr.Required {
		field.MinOccurs = 1
	}
	if !b.opts.OmitDocumentation {
		field.Documentation = attr.Documentation
	}
	return field
}

func (b *Builder) simpleField(name string, st *schema.SimpleType, path string) FieldDef {
	field := FieldDef{
		Name:     name,
		Path:     path,
		Label:    b.opts.Labeler(name),
		TypeName: st.TypeName(),
		BaseType: st.Primitive(),
		Type:     st,
	}
	facets := st.Effective()
	field.Restrictions = restrictions(facets)
	if len(facets.Enumeration) > 0 {
		field.Enumerations = append([]string(nil), facets.Enumeration...)
	}
	return field
}

// restrictions flattens facets into rules. Only the first pattern is kept as
// the canonical one; validation still checks the full chain through Type.
func restrictions(f schema.Facets) []ValidationRule {
	var rules []ValidationRule
	addInt := func(kind string, v *int) {
		if v != nil {
			rules = append(rules, ValidationRule{Kind: kind, Params: map[string]string{"value": strconv.Itoa(*v)}})
		}
	}
	addString := func(kind string, v *string) {
		if v != nil {
			rules = append(rules, ValidationRule{Kind: kind, Params: map[string]string{"value": *v}})
		}
	}
	addInt(ValidationRuleLength, f.Length)
	addInt(ValidationRuleMinLength, f.MinLength)
	addInt(ValidationRuleMaxLength, f.MaxLength)
	addString(ValidationRuleMinInclusive, f.MinInclusive)
	addString(ValidationRuleMaxInclusive, f.MaxInclusive)
	addString(ValidationRuleMinExclusive, f.MinExclusive)
	addString(ValidationRuleMaxExclusive, f.MaxExclusive)
	addInt(ValidationRuleTotalDigits, f.TotalDigits)
	addInt(ValidationRuleFractionDigits, f.FractionDigits)
	if len(f.Patterns) > 0 {
		rules = append(rules, ValidationRule{Kind: ValidationRulePattern, Params: map[string]string{"pattern": f.Patterns[0]}})
	}
	return rules
}

func maxOccurs(v int) *int {
	if v == schema.Unbounded {
		return nil
	}
	return &v
}

// SortedFieldPaths returns every field path of m in lexicographic order.
func SortedFieldPaths(m FormModel) []string {
	fields := m.Fields()
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Path)
	}
	sort.Strings(out)
	return out
}
