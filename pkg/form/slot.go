package form

import (
	"slices"

	"github.com/goliatone/go-xsdform/pkg/model"
)

// Slot holds one value of a field inside one instance. List fields own one
// slot per occurrence.
type Slot struct {
	def      *model.FieldDef
	owner    int
	index    int
	address  string
	value    string
	enabled  bool
	visible  bool
	required bool
	// nil choices means free text.
	choices     []string
	baseChoices []string
}

func newSlot(def *model.FieldDef, owner, index int) *Slot {
	return &Slot{
		def:         def,
		owner:       owner,
		index:       index,
		enabled:     true,
		visible:     true,
		required:    def.Required,
		choices:     cloneChoices(def.Enumerations),
		baseChoices: cloneChoices(def.Enumerations),
	}
}

// Def returns the owning field definition.
func (s *Slot) Def() *model.FieldDef { return s.def }

// Address is the instance path plus the field name, with a [k] suffix for
// list fields.
func (s *Slot) Address() string { return s.address }

// Index is the position of the slot within its list field.
func (s *Slot) Index() int { return s.index }

// InstanceID identifies the owning instance.
func (s *Slot) InstanceID() int { return s.owner }

func (s *Slot) Value() string  { return s.value }
func (s *Slot) Enabled() bool  { return s.enabled }
func (s *Slot) Visible() bool  { return s.visible }
func (s *Slot) Required() bool { return s.required }
func (s *Slot) Empty() bool    { return s.value == "" }

// Choices returns the allowed values, or nil when the field is free text.
func (s *Slot) Choices() []string { return cloneChoices(s.choices) }

// Allows reports whether v is acceptable under the current choice list.
func (s *Slot) Allows(v string) bool {
	return s.choices == nil || v == "" || slices.Contains(s.choices, v)
}

func (s *Slot) copyFlags(from *Slot) {
	s.enabled = from.enabled
	s.visible = from.visible
	s.required = from.required
	s.choices = cloneChoices(from.choices)
	s.baseChoices = cloneChoices(from.baseChoices)
}

func cloneChoices(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
