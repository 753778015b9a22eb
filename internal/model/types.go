package model

import "strconv"

// Restriction kinds extracted from simple-type facets. Every rule stores its
// threshold in Params["value"] except pattern, which keeps the expression in
// Params["pattern"].
const (
	ValidationRuleLength         = "length"
	ValidationRuleMinLength      = "minLength"
	ValidationRuleMaxLength      = "maxLength"
	ValidationRuleMinInclusive   = "minInclusive"
	ValidationRuleMaxInclusive   = "maxInclusive"
	ValidationRuleMinExclusive   = "minExclusive"
	ValidationRuleMaxExclusive   = "maxExclusive"
	ValidationRuleTotalDigits    = "totalDigits"
	ValidationRuleFractionDigits = "fractionDigits"
	ValidationRulePattern        = "pattern"
)

// ValidationRule is a single restriction on a field value.
type ValidationRule struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// TypeValidator checks a non-empty value against the field's declared type.
// *schema.SimpleType implements it.
type TypeValidator interface {
	Validate(value string) error
}

// FieldDef is a leaf data item derived from a simple-content element or an
// attribute.
type FieldDef struct {
	Name          string           `json:"name"`
	QName         string           `json:"qname"`
	Path          string           `json:"path"`
	Label         string           `json:"label,omitempty"`
	Documentation string           `json:"documentation,omitempty"`
	TypeName      string           `json:"type"`
	BaseType      string           `json:"baseType"`
	Required      bool             `json:"required"`
	List          bool             `json:"list,omitempty"`
	Attribute     bool             `json:"attribute,omitempty"`
	MinOccurs     int              `json:"minOccurs"`
	MaxOccurs     *int             `json:"maxOccurs"`
	Restrictions  []ValidationRule `json:"restrictions,omitempty"`
	Enumerations  []string         `json:"enumerations,omitempty"`
	Type          TypeValidator    `json:"-"`
}

// Restriction returns the raw parameter of the first rule of kind.
func (f *FieldDef) Restriction(kind string) (string, bool) {
	for _, rule := range f.Restrictions {
		if rule.Kind != kind {
			continue
		}
		if kind == ValidationRulePattern {
			return rule.Params["pattern"], true
		}
		return rule.Params["value"], true
	}
	return "", false
}

// IntRestriction parses an integer restriction such as maxLength.
func (f *FieldDef) IntRestriction(kind string) (int, bool) {
	raw, ok := f.Restriction(kind)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Pattern returns the canonical pattern facet, if any.
func (f *FieldDef) Pattern() string {
	p, _ := f.Restriction(ValidationRulePattern)
	return p
}

// SectionDef is a possibly repeatable group derived from a complex type.
// MaxOccurs is nil when unbounded.
type SectionDef struct {
	Name          string       `json:"name"`
	QName         string       `json:"qname"`
	Path          string       `json:"path"`
	Label         string       `json:"label,omitempty"`
	Documentation string       `json:"documentation,omitempty"`
	MinOccurs     int          `json:"minOccurs"`
	MaxOccurs     *int         `json:"maxOccurs"`
	Fields        []FieldDef   `json:"fields,omitempty"`
	Sections      []SectionDef `json:"sections,omitempty"`
}

// Optional reports whether the section may have no instance at all.
func (s *SectionDef) Optional() bool {
	return s.MinOccurs == 0
}

// Repeated reports whether the section collects as a list (maxOccurs != 1).
func (s *SectionDef) Repeated() bool {
	return s.MaxOccurs == nil || *s.MaxOccurs != 1
}

// AllowsMore reports whether a section holding count instances may grow.
func (s *SectionDef) AllowsMore(count int) bool {
	return s.MaxOccurs == nil || count < *s.MaxOccurs
}

// FormModel is the SectionDef tree for one root element plus the namespace
// data the serializer needs.
type FormModel struct {
	Root            SectionDef        `json:"root"`
	TargetNamespace string            `json:"targetNamespace,omitempty"`
	Namespaces      map[string]string `json:"namespaces,omitempty"`
}

// Sections returns every section, root first, in declaration order.
func (m *FormModel) Sections() []*SectionDef {
	var out []*SectionDef
	var walk func(s *SectionDef)
	walk = func(s *SectionDef) {
		out = append(out, s)
		for i := range s.Sections {
			walk(&s.Sections[i])
		}
	}
	walk(&m.Root)
	return out
}

// Fields returns every field in declaration order.
func (m *FormModel) Fields() []*FieldDef {
	var out []*FieldDef
	for _, s := range m.Sections() {
		for i := range s.Fields {
			out = append(out, &s.Fields[i])
		}
	}
	return out
}

// Field looks up a field by dotted path.
func (m *FormModel) Field(path string) (*FieldDef, bool) {
	for _, f := range m.Fields() {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

// Section looks up a section by dotted path.
func (m *FormModel) Section(path string) (*SectionDef, bool) {
	for _, s := range m.Sections() {
		if s.Path == path {
			return s, true
		}
	}
	return nil, false
}

// QNameMap maps local names to qualified names for the serializer. When two
// declarations share a local name the first one wins.
func (m *FormModel) QNameMap() map[string]string {
	out := make(map[string]string)
	put := func(local, qname string) {
		if _, ok := out[local]; !ok {
			out[local] = qname
		}
	}
	for _, s := range m.Sections() {
		put(s.Name, s.QName)
		for _, f := range s.Fields {
			put(f.Name, f.QName)
		}
	}
	return out
}
