package collect

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-xsdform/pkg/form"
)

// Populate writes nested data, as produced by Collect, into the tree with
// the Manual origin. Missing instances are added and switched-off sections
// activated. A slot that refuses the write, such as one hidden until a later
// field reveals it, is retried after the pass until a round writes nothing;
// slots that stay locked are skipped. It returns the number of values written.
//
// Populate does not clear the tree first; callers that load a preset reset
// it beforehand.
func (c *Collector) Populate(data map[string]any) (int, error) {
	root := c.tree.Root()
	raw, ok := data[root.Def().Name]
	if !ok {
		return 0, fmt.Errorf("%w: missing root %q", ErrShape, root.Def().Name)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%w: root %q is %T", ErrShape, root.Def().Name, raw)
	}
	var pending []pendingWrite
	written, err := c.populate(root, m, &pending)
	if err != nil {
		return written, err
	}
	for len(pending) > 0 {
		n, rest, err := c.retry(pending)
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
		pending = rest
	}
	for _, p := range pending {
		c.logger.Debug("populate skipped locked slot", "address", p.slot.Address())
	}
	c.logger.Info("form populated", "written", written, "skipped", len(pending))
	return written, nil
}

type pendingWrite struct {
	slot  *form.Slot
	value string
}

func (c *Collector) retry(pending []pendingWrite) (int, []pendingWrite, error) {
	written := 0
	var rest []pendingWrite
	for _, p := range pending {
		changed, err := c.tree.SetValue(p.slot, p.value, form.Manual)
		switch {
		case errors.Is(err, form.ErrSlotDisabled):
			rest = append(rest, p)
		case err != nil:
			return written, rest, err
		case changed:
			written++
		}
	}
	return written, rest, nil
}

func (c *Collector) populate(inst *form.Instance, data map[string]any, pending *[]pendingWrite) (int, error) {
	written := 0
	for _, path := range inst.FieldPaths() {
		slots := inst.Slots(path)
		def := slots[0].Def()
		raw, ok := data[def.Name]
		if !ok {
			continue
		}
		values := asList(raw)
		for i, v := range values {
			if i >= len(slots) {
				slot, err := c.tree.AddSlot(inst, path)
				if err != nil {
					c.logger.Warn("cannot add list value", "field", path, "error", err)
					break
				}
				slots = append(slots, slot)
			}
			text, ok := scalar(v)
			if !ok {
				return written, fmt.Errorf("%w: %s holds %T", ErrShape, slots[i].Address(), v)
			}
			changed, err := c.tree.SetValue(slots[i], text, form.Manual)
			switch {
			case errors.Is(err, form.ErrSlotDisabled):
				*pending = append(*pending, pendingWrite{slot: slots[i], value: text})
			case err != nil:
				return written, err
			case changed:
				written++
			}
		}
	}

	for _, g := range inst.Groups() {
		raw, ok := data[g.Def().Name]
		if !ok {
			continue
		}
		items := asList(raw)
		if len(items) == 0 {
			continue
		}
		if g.Len() == 0 || !g.Instances()[0].Active() {
			c.tree.Activate(g)
		}
		for g.Len() < len(items) {
			if _, err := c.tree.AddInstance(g); err != nil {
				c.logger.Warn("cannot add section instance", "section", g.Def().Path, "error", err)
				break
			}
		}
		children := g.Instances()
		for i, item := range items {
			if i >= len(children) {
				break
			}
			m, ok := item.(map[string]any)
			if !ok {
				return written, fmt.Errorf("%w: %s holds %T", ErrShape, children[i].Path(), item)
			}
			n, err := c.populate(children[i], m, pending)
			written += n
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	}
	return []any{v}
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	}
	return "", false
}
