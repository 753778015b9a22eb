package collect

import "github.com/goliatone/go-xsdform/pkg/form"

// Validate checks every enabled, visible slot of live instances in tree
// order: required slots must be non-empty and non-empty values must satisfy
// the field type and the current choice list.
func (c *Collector) Validate() []Issue {
	var issues []Issue
	for _, slot := range c.tree.AllSlots() {
		if !slot.Enabled() || !c.tree.Collectable(slot) {
			continue
		}
		if msg := check(slot); msg != "" {
			issues = append(issues, Issue{
				Path:    slot.Address(),
				Field:   slot.Def().Path,
				Message: msg,
			})
		}
	}
	return issues
}

func check(slot *form.Slot) string {
	value := slot.Value()
	if value == "" {
		if slot.Required() {
			return "value is required"
		}
		return ""
	}
	if !slot.Allows(value) {
		return "value is not one of the allowed choices"
	}
	if typ := slot.Def().Type; typ != nil {
		if err := typ.Validate(value); err != nil {
			return err.Error()
		}
	}
	return ""
}
