package collect

import "github.com/goliatone/go-xsdform/pkg/form"

// Collect builds the nested data map without validating. Keys are local
// names. Repeated sections collect as lists of instance maps, singular ones
// as a map, list fields as lists of values. Empty values, inactive instances
// and sections without data are left out. Rule-locked values are collected.
func (c *Collector) Collect() map[string]any {
	root := c.tree.Root()
	return map[string]any{root.Def().Name: c.instance(root)}
}

func (c *Collector) instance(inst *form.Instance) map[string]any {
	out := make(map[string]any)
	for _, path := range inst.FieldPaths() {
		slots := inst.Slots(path)
		var values []any
		for _, slot := range slots {
			if slot.Empty() || !c.tree.Collectable(slot) {
				continue
			}
			values = append(values, slot.Value())
		}
		if len(values) == 0 {
			continue
		}
		def := slots[0].Def()
		if def.List {
			out[def.Name] = values
		} else {
			out[def.Name] = values[0]
		}
	}
	for _, g := range inst.Groups() {
		var items []any
		for _, child := range g.Instances() {
			if !c.tree.Live(child) {
				continue
			}
			if data := c.instance(child); len(data) > 0 {
				items = append(items, data)
			}
		}
		if len(items) == 0 {
			continue
		}
		if g.Def().Repeated() {
			out[g.Def().Name] = items
		} else {
			out[g.Def().Name] = items[0]
		}
	}
	return out
}
