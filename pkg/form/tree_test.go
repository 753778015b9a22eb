package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/form"
	"github.com/goliatone/go-xsdform/pkg/model"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func newTree(t *testing.T, opts ...form.Option) *form.Tree {
	t.Helper()
	return form.New(testsupport.MustModel(t), opts...)
}

func addresses(slots []*form.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Address())
	}
	return out
}

func TestNew_SeedsMinimumInstances(t *testing.T) {
	t.Parallel()
	tree := newTree(t)

	var paths []string
	for _, inst := range tree.Instances() {
		paths = append(paths, inst.Path())
	}
	want := []string{"Message", "Message.Header", "Message.Body", "Message.Body.Point[0]"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("instances mismatch (-want +got):\n%s", diff)
	}

	body := tree.Groups("Message.Body")[0].Instances()[0]
	extra, ok := body.Group("Message.Body.Extra")
	if !ok {
		t.Fatalf("expected Extra group")
	}
	if extra.Toggled() || extra.Len() != 0 {
		t.Fatalf("optional section should start switched off, got toggled=%v len=%d", extra.Toggled(), extra.Len())
	}

	got := addresses(tree.Slots("Message.Body.Point.Code"))
	if diff := cmp.Diff([]string{"Message.Body.Point[0].Code"}, got); diff != "" {
		t.Fatalf("slot address mismatch (-want +got):\n%s", diff)
	}
	note := tree.Slots("Message.Body.Note")
	if len(note) != 1 || note[0].Address() != "Message.Body.Note[0]" {
		t.Fatalf("unexpected note slots %v", addresses(note))
	}
	reason := tree.Slots("Message.Body.Reason")[0]
	if diff := cmp.Diff([]string{"A01", "A02", "A03"}, reason.Choices()); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
	if !reason.Required() || !reason.Enabled() || !reason.Visible() {
		t.Fatalf("unexpected reason flags")
	}
}

func TestNew_ControlledSectionStartsInactive(t *testing.T) {
	t.Parallel()
	tree := newTree(t, form.WithControlledSections("Message.Body.Extra"))

	g := tree.Groups("Message.Body.Extra")[0]
	if g.Len() != 1 {
		t.Fatalf("expected one seeded instance, got %d", g.Len())
	}
	inst := g.Instances()[0]
	if inst.Active() || tree.Live(inst) {
		t.Fatalf("controlled instance should start inactive")
	}
	slot := tree.Slots("Message.Body.Extra.Comment")[0]
	if tree.Editable(slot) {
		t.Fatalf("slot of inactive instance should not be editable")
	}
	if _, ok := tree.Parent(inst); !ok {
		t.Fatalf("expected parent lookup to resolve")
	}
}

func TestSetValue_WriteGuard(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	slot := tree.Slots("Message.Body.Details")[0]

	var changes []form.Change
	unsubscribe := tree.Subscribe(func(c form.Change) { changes = append(changes, c) })

	changed, err := tree.SetValue(slot, "hello", form.Manual)
	if err != nil || !changed {
		t.Fatalf("manual write: changed=%v err=%v", changed, err)
	}
	if changed, _ := tree.SetValue(slot, "hello", form.Manual); changed {
		t.Fatalf("identical write should report no change")
	}

	target, _ := tree.Target("Message.Body.Details", nil)
	target.SetEnabled(false)
	if slot.Value() != "hello" {
		t.Fatalf("disabling must not clear")
	}
	if _, err := tree.SetValue(slot, "other", form.Manual); !errors.Is(err, form.ErrSlotDisabled) {
		t.Fatalf("expected ErrSlotDisabled, got %v", err)
	}
	for _, origin := range []form.Origin{form.RuleEngineWrite, form.ImportWrite, form.SynthesisWrite, form.Clear} {
		if _, err := tree.SetValue(slot, origin.String(), origin); err != nil {
			t.Fatalf("%s should bypass the guard: %v", origin, err)
		}
	}

	unsubscribe()
	_, _ = tree.SetValue(slot, "after", form.RuleEngineWrite)
	if len(changes) != 5 {
		t.Fatalf("expected 5 notifications, got %d", len(changes))
	}
	if changes[0].Old != "" || changes[0].New != "hello" || changes[0].Origin != form.Manual {
		t.Fatalf("unexpected first change %+v", changes[0])
	}
}

func TestAddRemoveInstance(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	points := tree.Groups("Message.Body.Point")[0]

	second, err := tree.AddInstance(points)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if second.Path() != "Message.Body.Point[1]" {
		t.Fatalf("unexpected path %q", second.Path())
	}
	if _, err := tree.SetValueAt("Message.Body.Point[1].Code", "P2", form.Manual); err != nil {
		t.Fatalf("set by address: %v", err)
	}

	first := points.Instances()[0]
	if err := tree.RemoveInstance(first); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if second.Path() != "Message.Body.Point[0]" {
		t.Fatalf("expected reindex, got %q", second.Path())
	}
	slot, ok := tree.SlotAt("Message.Body.Point[0].Code")
	if !ok || slot.Value() != "P2" {
		t.Fatalf("expected moved slot to keep its value")
	}
	if err := tree.RemoveInstance(second); !errors.Is(err, form.ErrMinOccurs) {
		t.Fatalf("expected ErrMinOccurs, got %v", err)
	}

	target, _ := tree.Target("Message.Body.Point", nil)
	target.SetAllowMultiple(false)
	if _, err := tree.AddInstance(points); !errors.Is(err, form.ErrMaxOccurs) {
		t.Fatalf("expected ErrMaxOccurs when multiples are forbidden, got %v", err)
	}
	target.SetAllowMultiple(true)
	if !points.CanAdd() {
		t.Fatalf("expected group to accept instances again")
	}
}

func TestOptionalSectionToggle(t *testing.T) {
	t.Parallel()
	tree := newTree(t)

	target, ok := tree.Target("Message.Body.Extra", nil)
	if !ok {
		t.Fatalf("expected section target")
	}
	if _, isSection := target.(*form.SectionTarget); !isSection {
		t.Fatalf("expected SectionTarget, got %T", target)
	}

	var added, removed int
	tree.Subscribe(func(c form.Change) {
		switch c.Kind {
		case form.InstanceAdded:
			added++
		case form.InstanceRemoved:
			removed++
		}
	})

	target.Show(true)
	g := tree.Groups("Message.Body.Extra")[0]
	if !g.Toggled() || g.Len() != 1 {
		t.Fatalf("show should create the first instance")
	}
	comment := tree.Slots("Message.Body.Extra.Comment")[0]
	if _, err := tree.SetValue(comment, "note", form.Manual); err != nil {
		t.Fatalf("write: %v", err)
	}

	target.Show(false)
	if g.Toggled() || g.Len() != 0 {
		t.Fatalf("hide should remove every instance")
	}
	if len(tree.Slots("Message.Body.Extra.Comment")) != 0 {
		t.Fatalf("removed instance slots should disappear")
	}
	if added != 1 || removed != 1 {
		t.Fatalf("expected one add and one remove, got %d/%d", added, removed)
	}
}

func TestRequiredSectionHideKeepsInstances(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	target, _ := tree.Target("Message.Header", nil)

	target.Show(false)
	g := tree.Groups("Message.Header")[0]
	if g.Len() != 1 || g.Instances()[0].Active() {
		t.Fatalf("required section should keep an inactive instance")
	}
	slot := tree.Slots("Message.Header.SenderId")[0]
	if _, err := tree.SetValue(slot, "x", form.Manual); !errors.Is(err, form.ErrSlotDisabled) {
		t.Fatalf("expected inactive slot to reject manual writes, got %v", err)
	}
	target.Show(true)
	if !tree.Editable(slot) {
		t.Fatalf("expected slot to be editable again")
	}
}

func TestListSlots(t *testing.T) {
	t.Parallel()
	tree := newTree(t)
	body := tree.Groups("Message.Body")[0].Instances()[0]

	if _, err := tree.AddSlot(body, "Message.Body.Reason"); !errors.Is(err, form.ErrNotList) {
		t.Fatalf("expected ErrNotList, got %v", err)
	}
	s, err := tree.AddSlot(body, "Message.Body.Note")
	if err != nil {
		t.Fatalf("add slot: %v", err)
	}
	if s.Address() != "Message.Body.Note[1]" {
		t.Fatalf("unexpected address %q", s.Address())
	}
	if err := tree.RemoveSlot(body, "Message.Body.Note"); err != nil {
		t.Fatalf("remove slot: %v", err)
	}
	if err := tree.RemoveSlot(body, "Message.Body.Note"); !errors.Is(err, form.ErrMinOccurs) {
		t.Fatalf("expected ErrMinOccurs, got %v", err)
	}
}

func TestValueLookup(t *testing.T) {
	t.Parallel()
	tree := newTree(t)

	if _, ok := tree.Value("Message.Body.Unknown"); ok {
		t.Fatalf("unknown path should not resolve")
	}
	points := tree.Groups("Message.Body.Point")[0]
	second, _ := tree.AddInstance(points)
	_, _ = tree.SetValueAt("Message.Body.Point[1].Code", "B", form.Manual)

	if v, _ := tree.Value("Message.Body.Point.Code"); v != "B" {
		t.Fatalf("expected first non-empty live value, got %q", v)
	}
	if v, _ := tree.ValueNear("Message.Body.Point.Code", points.Instances()[0]); v != "" {
		t.Fatalf("scoped lookup should read the scope's own slot, got %q", v)
	}
	if v, _ := tree.ValueNear("Message.Body.Reason", second); v != "" {
		t.Fatalf("ancestor lookup failed, got %q", v)
	}
}

func TestSetFieldValueByNameAndClearEnabled(t *testing.T) {
	t.Parallel()
	tree := newTree(t)

	if _, err := tree.SetFieldValueByName("MessageTimestamp", "2024-01-01T00:00:00Z", form.RuleEngineWrite); err != nil {
		t.Fatalf("set by name: %v", err)
	}
	if _, err := tree.SetFieldValueByName("Nope", "x", form.Manual); !errors.Is(err, form.ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}
	_, _ = tree.SetValueAt("Message.Body.Details", "d", form.Manual)
	id, _ := tree.SlotAt("Message.Header.MessageId")
	_, _ = tree.SetValue(id, "locked", form.RuleEngineWrite)
	target, _ := tree.Target("Message.Header.MessageId", nil)
	target.SetEnabled(false)

	if n := tree.ClearEnabled(); n != 2 {
		t.Fatalf("expected 2 cleared slots, got %d", n)
	}
	if id.Value() != "locked" {
		t.Fatalf("locked value should survive ClearEnabled")
	}

	tree.Reset()
	if id2, _ := tree.SlotAt("Message.Header.MessageId"); id2.Value() != "" || !id2.Enabled() {
		t.Fatalf("reset should rebuild fresh slots")
	}
}

func TestSetFieldValueByName_SkipsInactiveInstances(t *testing.T) {
	t.Parallel()
	s := testsupport.MustCompileYAML(t, `
elements:
  - name: Msg
    complexType:
      sequence:
        - name: Draft
          minOccurs: 0
          complexType:
            sequence:
              - name: Stamp
                type: string
        - name: Head
          complexType:
            sequence:
              - name: Stamp
                type: string
`)
	m, err := model.Build(s, "Msg")
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	tree := form.New(m, form.WithControlledSections("Msg.Draft"))

	if _, err := tree.SetFieldValueByName("Stamp", "now", form.Manual); err != nil {
		t.Fatalf("set by name: %v", err)
	}
	draft, _ := tree.SlotAt("Msg.Draft.Stamp")
	head, _ := tree.SlotAt("Msg.Head.Stamp")
	if draft.Value() != "" || head.Value() != "now" {
		t.Fatalf("expected the live slot to take the write, got draft=%q head=%q", draft.Value(), head.Value())
	}

	target, _ := tree.Target("Msg.Head.Stamp", nil)
	target.SetEnabled(false)
	if _, err := tree.SetFieldValueByName("Stamp", "later", form.Manual); !errors.Is(err, form.ErrSlotDisabled) {
		t.Fatalf("expected ErrSlotDisabled without an editable match, got %v", err)
	}
}

func TestStripIndices(t *testing.T) {
	t.Parallel()
	if got := form.StripIndices("Message.Body.Point[12].Code"); got != "Message.Body.Point.Code" {
		t.Fatalf("got %q", got)
	}
}
