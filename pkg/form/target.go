package form

import (
	"slices"

	"github.com/goliatone/go-xsdform/pkg/model"
)

// Target is the capability interface rule actions act through. It has two
// cases: FieldTarget and SectionTarget.
type Target interface {
	Path() string
	Show(visible bool)
	SetEnabled(enabled bool)
	SetRequired(required bool)
	Clear()
	SetFilteredChoices(allowed []string)
	SetChoices(choices []string)
	SetAllowMultiple(allow bool)
	isTarget()
}

// Target resolves a definition path to a field or section target. A scope
// restricts the target to slots inside that instance subtree.
func (t *Tree) Target(path string, scope *Instance) (Target, bool) {
	path = StripIndices(path)
	if _, ok := t.model.Field(path); ok {
		return &FieldTarget{tree: t, path: path, scope: scope}, true
	}
	if _, ok := t.model.Section(path); ok {
		return &SectionTarget{tree: t, path: path, scope: scope}, true
	}
	return nil, false
}

// FieldTarget addresses every slot of one field.
type FieldTarget struct {
	tree  *Tree
	path  string
	scope *Instance
}

func (*FieldTarget) isTarget() {}

func (f *FieldTarget) Path() string { return f.path }

// Slots returns the slots the target acts on.
func (f *FieldTarget) Slots() []*Slot {
	if f.scope == nil {
		return f.tree.Slots(f.path)
	}
	var out []*Slot
	for _, inst := range f.tree.subtree(f.scope) {
		out = append(out, inst.slots[f.path]...)
	}
	return out
}

func (f *FieldTarget) Show(visible bool) {
	for _, s := range f.Slots() {
		s.visible = visible
	}
}

func (f *FieldTarget) SetEnabled(enabled bool) {
	for _, s := range f.Slots() {
		s.enabled = enabled
	}
}

func (f *FieldTarget) SetRequired(required bool) {
	for _, s := range f.Slots() {
		s.required = required
	}
}

func (f *FieldTarget) Clear() {
	for _, s := range f.Slots() {
		_, _ = f.tree.SetValue(s, "", Clear)
	}
}

// SetFilteredChoices restricts the full choice list to the values in
// allowed. Nil restores the full list. Free-text fields are left alone. A
// value that is no longer allowed is cleared.
func (f *FieldTarget) SetFilteredChoices(allowed []string) {
	for _, s := range f.Slots() {
		switch {
		case s.baseChoices == nil:
			continue
		case allowed == nil:
			s.choices = cloneChoices(s.baseChoices)
		default:
			s.choices = []string{}
			for _, c := range s.baseChoices {
				if slices.Contains(allowed, c) {
					s.choices = append(s.choices, c)
				}
			}
		}
		if !s.Allows(s.value) {
			_, _ = f.tree.SetValue(s, "", Clear)
		}
	}
}

// SetChoices replaces the full choice list and enables the field.
func (f *FieldTarget) SetChoices(choices []string) {
	for _, s := range f.Slots() {
		s.baseChoices = cloneChoices(choices)
		s.choices = cloneChoices(choices)
		s.enabled = true
		if !s.Allows(s.value) {
			_, _ = f.tree.SetValue(s, "", Clear)
		}
	}
}

// SetAllowMultiple has no meaning for fields.
func (f *FieldTarget) SetAllowMultiple(bool) {}

// SectionTarget addresses every group of one section definition.
type SectionTarget struct {
	tree  *Tree
	path  string
	scope *Instance
}

func (*SectionTarget) isTarget() {}

func (s *SectionTarget) Path() string { return s.path }

// Groups returns the groups the target acts on.
func (s *SectionTarget) Groups() []*Group {
	groups := s.tree.Groups(s.path)
	if s.scope == nil {
		return groups
	}
	inScope := make(map[int]bool)
	for _, inst := range s.tree.subtree(s.scope) {
		inScope[inst.id] = true
	}
	var out []*Group
	for _, g := range groups {
		if inScope[g.parentID] || (g.parentID == 0 && inScope[s.tree.Root().id]) {
			out = append(out, g)
		}
	}
	return out
}

// Show activates or deactivates the section. Hiding deactivates.
func (s *SectionTarget) Show(visible bool) {
	for _, g := range s.Groups() {
		if visible {
			s.tree.Activate(g)
		} else {
			s.tree.Deactivate(g)
		}
	}
}

func (s *SectionTarget) SetEnabled(enabled bool) {
	for _, slot := range s.activeSlots() {
		slot.enabled = enabled
	}
}

// SetRequired has no meaning for sections.
func (s *SectionTarget) SetRequired(bool) {}

func (s *SectionTarget) Clear() {
	for _, slot := range s.activeSlots() {
		_, _ = s.tree.SetValue(slot, "", Clear)
	}
}

// SetFilteredChoices has no meaning for sections.
func (s *SectionTarget) SetFilteredChoices([]string) {}

// SetChoices has no meaning for sections.
func (s *SectionTarget) SetChoices([]string) {}

func (s *SectionTarget) SetAllowMultiple(allow bool) {
	for _, g := range s.Groups() {
		g.allowMultiple = allow
	}
}

// activeSlots collects slots of every active instance below the target,
// recursing into active child instances.
func (s *SectionTarget) activeSlots() []*Slot {
	var out []*Slot
	var walk func(inst *Instance)
	walk = func(inst *Instance) {
		if !inst.active {
			return
		}
		for _, path := range inst.order {
			out = append(out, inst.slots[path]...)
		}
		for _, g := range inst.groups {
			for _, child := range g.instances {
				walk(child)
			}
		}
	}
	for _, g := range s.Groups() {
		for _, inst := range g.instances {
			walk(inst)
		}
	}
	return out
}

func (t *Tree) subtree(scope *Instance) []*Instance {
	var out []*Instance
	var walk func(inst *Instance)
	walk = func(inst *Instance) {
		out = append(out, inst)
		for _, g := range inst.groups {
			for _, child := range g.instances {
				walk(child)
			}
		}
	}
	walk(scope)
	return out
}

// FieldDefs is a convenience for callers iterating the model through the tree.
func (t *Tree) FieldDefs() []*model.FieldDef {
	return t.model.Fields()
}
