package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/form"
)

func TestFieldTarget_Choices(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	slot, _ := tree.SlotAt("Message.Body.Reason")
	target, _ := tree.Target("Message.Body.Reason", nil)

	_, _ = tree.SetValue(slot, "A03", form.Manual)
	target.SetFilteredChoices([]string{"A01", "A02", "ZZZ"})
	if diff := cmp.Diff([]string{"A01", "A02"}, slot.Choices()); diff != "" {
		t.Fatalf("filtered choices mismatch (-want +got):\n%s", diff)
	}
	if slot.Value() != "" {
		t.Fatalf("disallowed value should be cleared, got %q", slot.Value())
	}

	target.SetFilteredChoices(nil)
	if len(slot.Choices()) != 3 {
		t.Fatalf("nil filter should restore the full list, got %v", slot.Choices())
	}

	target.SetEnabled(false)
	target.SetChoices([]string{"X1", "X2"})
	if !slot.Enabled() {
		t.Fatalf("SetChoices should enable the field")
	}
	target.SetFilteredChoices(nil)
	if diff := cmp.Diff([]string{"X1", "X2"}, slot.Choices()); diff != "" {
		t.Fatalf("restore after SetChoices mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldTarget_Flags(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	slot, _ := tree.SlotAt("Message.Body.Details")
	target, _ := tree.Target("Message.Body.Details", nil)

	target.SetRequired(true)
	target.Show(false)
	if !slot.Required() || slot.Visible() {
		t.Fatalf("flags not applied")
	}
	if tree.Collectable(slot) {
		t.Fatalf("hidden slot should not collect")
	}
	_, _ = tree.SetValue(slot, "v", form.RuleEngineWrite)
	target.Clear()
	if slot.Value() != "" {
		t.Fatalf("clear should blank the slot")
	}
}

func TestSectionTarget_Recurses(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	points := tree.Groups("Message.Body.Point")[0]
	_, _ = tree.AddInstance(points)
	_, _ = tree.SetValueAt("Message.Body.Point[0].Code", "A", form.Manual)
	_, _ = tree.SetValueAt("Message.Body.Point[1].Code", "B", form.Manual)

	body, _ := tree.Target("Message.Body", nil)
	body.SetEnabled(false)
	for _, s := range tree.Slots("Message.Body.Point.Code") {
		if s.Enabled() {
			t.Fatalf("%s should be disabled", s.Address())
		}
	}
	body.SetRequired(true)
	body.SetChoices([]string{"nope"})
	if s, _ := tree.SlotAt("Message.Body.Details"); s.Required() || s.Choices() != nil {
		t.Fatalf("section targets must ignore field-only operations")
	}

	body.Clear()
	for _, s := range tree.Slots("Message.Body.Point.Code") {
		if s.Value() != "" {
			t.Fatalf("%s should be cleared", s.Address())
		}
	}
}

func TestScopedTarget(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	points := tree.Groups("Message.Body.Point")[0]
	second, _ := tree.AddInstance(points)

	target, _ := tree.Target("Message.Body.Point.Quantity", second)
	target.SetEnabled(false)

	first, _ := tree.SlotAt("Message.Body.Point[0].Quantity")
	other, _ := tree.SlotAt("Message.Body.Point[1].Quantity")
	if !first.Enabled() || other.Enabled() {
		t.Fatalf("scoped target leaked: first=%v second=%v", first.Enabled(), other.Enabled())
	}
}

func TestTarget_Unknown(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	if _, ok := tree.Target("Message.Nope", nil); ok {
		t.Fatalf("unknown path should not resolve")
	}
	if target, ok := tree.Target("Message.Body.Point[0].Code", nil); !ok || target.Path() != "Message.Body.Point.Code" {
		t.Fatalf("indexed path should resolve to its definition")
	}
}

func TestFieldTarget_FilterIgnoresFreeText(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	slot, _ := tree.SlotAt("Message.Body.Details")
	target, _ := tree.Target("Message.Body.Details", nil)

	_, _ = tree.SetValue(slot, "kept", form.Manual)
	target.SetFilteredChoices([]string{"a"})
	if slot.Choices() != nil || slot.Value() != "kept" {
		t.Fatalf("free-text field should ignore filters, choices=%v value=%q", slot.Choices(), slot.Value())
	}
}
