package form

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/model"
)

var (
	// ErrSlotDisabled is returned when a manual write targets a disabled,
	// hidden or inactive slot.
	ErrSlotDisabled = errors.New("form: slot is disabled")
	// ErrUnknownPath is returned for paths the tree does not contain.
	ErrUnknownPath = errors.New("form: unknown path")
	// ErrMaxOccurs is returned when adding would exceed maxOccurs or the
	// group forbids further instances.
	ErrMaxOccurs = errors.New("form: maximum occurrences reached")
	// ErrMinOccurs is returned when removing would go below minOccurs.
	ErrMinOccurs = errors.New("form: minimum occurrences reached")
	// ErrNotList is returned when adding a slot to a single-valued field.
	ErrNotList = errors.New("form: field is not a list")
)

// Tree is the runtime instance tree of a form model. It is not safe for
// concurrent use; every mutation runs listeners to completion before it
// returns.
type Tree struct {
	model      model.FormModel
	root       *Group
	instances  map[int]*Instance
	nextID     int
	controlled map[string]bool
	listeners  []subscription
	nextSub    int
	logger     *slog.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithControlledSections marks sections whose visibility is owned by rules.
// They are seeded with one inactive instance instead of the default state.
func WithControlledSections(paths ...string) Option {
	return func(t *Tree) {
		for _, p := range paths {
			t.controlled[p] = true
		}
	}
}

// New seeds a tree from m with the minimum required instances.
func New(m model.FormModel, opts ...Option) *Tree {
	t := &Tree{
		model:      m,
		controlled: make(map[string]bool),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.seed()
	return t
}

func (t *Tree) seed() {
	t.instances = make(map[int]*Instance)
	t.nextID = 0
	t.root = &Group{def: &t.model.Root, toggled: true, visible: true, allowMultiple: true}
	root := t.newInstance(t.root, 0, true)
	t.root.instances = []*Instance{root}
}

// Reset discards every instance and value and seeds the tree again.
func (t *Tree) Reset() {
	t.seed()
	t.logger.Debug("form tree reset", "root", t.model.Root.Name)
	t.emit(Change{Kind: TreeReset, Instance: t.Root()})
}

// Model returns the form model the tree was built from.
func (t *Tree) Model() *model.FormModel { return &t.model }

// Root returns the root instance.
func (t *Tree) Root() *Instance { return t.root.instances[0] }

// Instance looks up an instance by id.
func (t *Tree) Instance(id int) (*Instance, bool) {
	inst, ok := t.instances[id]
	return inst, ok
}

// Parent resolves the parent of inst through the lookup relation.
func (t *Tree) Parent(inst *Instance) (*Instance, bool) {
	if inst == nil || inst.parentID == 0 {
		return nil, false
	}
	return t.Instance(inst.parentID)
}

// Live reports whether inst and all its ancestors are active.
func (t *Tree) Live(inst *Instance) bool {
	for cur := inst; cur != nil; {
		if !cur.active {
			return false
		}
		parent, ok := t.Parent(cur)
		if !ok {
			return true
		}
		cur = parent
	}
	return false
}

// Editable reports whether a manual writer may change the slot.
func (t *Tree) Editable(s *Slot) bool {
	inst, ok := t.instances[s.owner]
	return ok && s.enabled && s.visible && t.Live(inst)
}

// Collectable reports whether the slot's value belongs to the collected
// data. Disabled slots still collect; locked values are part of the message.
func (t *Tree) Collectable(s *Slot) bool {
	inst, ok := t.instances[s.owner]
	return ok && s.visible && t.Live(inst)
}

// Controlled reports whether a section's visibility is owned by rules.
func (t *Tree) Controlled(sectionPath string) bool {
	return t.controlled[sectionPath]
}

func (t *Tree) newInstance(g *Group, index int, active bool) *Instance {
	t.nextID++
	parentPath := ""
	if parent, ok := t.instances[g.parentID]; ok {
		parentPath = parent.path
	}
	inst := &Instance{
		id:       t.nextID,
		parentID: g.parentID,
		def:      g.def,
		index:    index,
		path:     instancePath(parentPath, g.def, index),
		active:   active,
		slots:    make(map[string][]*Slot),
	}
	t.instances[inst.id] = inst

	for i := range g.def.Fields {
		def := &g.def.Fields[i]
		n := 1
		if def.List && def.MinOccurs > 1 {
			n = def.MinOccurs
		}
		inst.order = append(inst.order, def.Path)
		for k := 0; k < n; k++ {
			slot := newSlot(def, inst.id, k)
			slot.address = slotAddress(inst, def, k)
			inst.slots[def.Path] = append(inst.slots[def.Path], slot)
		}
	}
	for i := range g.def.Sections {
		inst.groups = append(inst.groups, t.seedGroup(&g.def.Sections[i], inst.id))
	}
	return inst
}

func (t *Tree) seedGroup(def *model.SectionDef, parentID int) *Group {
	g := &Group{def: def, parentID: parentID, allowMultiple: true}
	switch {
	case t.controlled[def.Path]:
		// Rules decide; the first applyAll shows or hides it.
		g.instances = []*Instance{t.newInstance(g, 0, false)}
	case def.Optional():
		// Toggle off, no live instance.
	default:
		g.toggled = true
		g.visible = true
		for i := 0; i < def.MinOccurs; i++ {
			g.instances = append(g.instances, t.newInstance(g, i, true))
		}
	}
	return g
}

// Instances returns every instance in depth-first declaration order.
func (t *Tree) Instances() []*Instance {
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
	walk(t.Root())
	return out
}

// Groups returns every group whose section definition path is sectionPath.
func (t *Tree) Groups(sectionPath string) []*Group {
	if sectionPath == t.model.Root.Path {
		return []*Group{t.root}
	}
	var out []*Group
	for _, inst := range t.Instances() {
		if g, ok := inst.Group(sectionPath); ok {
			out = append(out, g)
		}
	}
	return out
}

// Slots returns every slot of a field across all instances in tree order.
func (t *Tree) Slots(fieldPath string) []*Slot {
	var out []*Slot
	for _, inst := range t.Instances() {
		out = append(out, inst.slots[fieldPath]...)
	}
	return out
}

// AllSlots returns every slot in tree order.
func (t *Tree) AllSlots() []*Slot {
	var out []*Slot
	for _, inst := range t.Instances() {
		for _, path := range inst.order {
			out = append(out, inst.slots[path]...)
		}
	}
	return out
}

// SlotAt finds a slot by its address, for example
// "Message.Body.Point[1].Code" or "Message.Body.Note[0]".
func (t *Tree) SlotAt(address string) (*Slot, bool) {
	for _, s := range t.AllSlots() {
		if s.address == address {
			return s, true
		}
	}
	return nil, false
}

// Value returns the value used by rule predicates for a field path: the first
// non-empty slot of a live instance, then the first slot of a live instance,
// then the first slot anywhere. Unknown paths report false.
func (t *Tree) Value(fieldPath string) (string, bool) {
	return t.ValueNear(fieldPath, nil)
}

// ValueNear is Value with a preference for slots in scope or its ancestors,
// so that rules evaluated for a new instance read their own siblings first.
func (t *Tree) ValueNear(fieldPath string, scope *Instance) (string, bool) {
	slots := t.Slots(fieldPath)
	if len(slots) == 0 {
		return "", false
	}
	if scope != nil {
		for cur := scope; cur != nil; {
			if own := cur.slots[fieldPath]; len(own) > 0 {
				return own[0].value, true
			}
			parent, ok := t.Parent(cur)
			if !ok {
				break
			}
			cur = parent
		}
	}
	var firstLive *Slot
	for _, s := range slots {
		inst := t.instances[s.owner]
		if !t.Live(inst) {
			continue
		}
		if s.value != "" {
			return s.value, true
		}
		if firstLive == nil {
			firstLive = s
		}
	}
	if firstLive != nil {
		return firstLive.value, true
	}
	return slots[0].value, true
}

// SetValue writes v into s on behalf of origin. It reports whether the value
// changed; unchanged writes notify nobody.
func (t *Tree) SetValue(s *Slot, v string, origin Origin) (bool, error) {
	if s == nil {
		return false, ErrUnknownPath
	}
	if !origin.Privileged() && !t.Editable(s) {
		return false, fmt.Errorf("%w: %s", ErrSlotDisabled, s.address)
	}
	if s.value == v {
		return false, nil
	}
	old := s.value
	s.value = v
	t.emit(Change{Kind: ValueChanged, Slot: s, Old: old, New: v, Origin: origin})
	return true, nil
}

// SetValueAt writes by slot address.
func (t *Tree) SetValueAt(address, v string, origin Origin) (bool, error) {
	s, ok := t.SlotAt(address)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPath, address)
	}
	return t.SetValue(s, v, origin)
}

// SetFieldValueByName writes the first editable slot whose field local name
// matches. When no match is editable the first match takes the write and the
// origin decides whether it is allowed.
func (t *Tree) SetFieldValueByName(name, v string, origin Origin) (bool, error) {
	var first *Slot
	for _, s := range t.AllSlots() {
		if s.def.Name != name {
			continue
		}
		if t.Editable(s) {
			return t.SetValue(s, v, origin)
		}
		if first == nil {
			first = s
		}
	}
	if first == nil {
		return false, fmt.Errorf("%w: field %q", ErrUnknownPath, name)
	}
	return t.SetValue(first, v, origin)
}

// ClearEnabled blanks every enabled slot and returns how many changed.
// Locked values survive.
func (t *Tree) ClearEnabled() int {
	n := 0
	for _, s := range t.AllSlots() {
		if !s.enabled {
			continue
		}
		if changed, _ := t.SetValue(s, "", Clear); changed {
			n++
		}
	}
	return n
}

// AddInstance appends an instance to g and activates the group.
func (t *Tree) AddInstance(g *Group) (*Instance, error) {
	if !g.CanAdd() {
		return nil, fmt.Errorf("%w: %s", ErrMaxOccurs, g.def.Path)
	}
	inst := t.newInstance(g, len(g.instances), true)
	g.instances = append(g.instances, inst)
	g.toggled = true
	g.visible = true
	t.logger.Debug("form instance added", "path", inst.path)
	t.emit(Change{Kind: InstanceAdded, Instance: inst})
	return inst, nil
}

// RemoveInstance deletes inst from its group. Removing the last instance of
// an optional section switches its toggle off.
func (t *Tree) RemoveInstance(inst *Instance) error {
	g, idx := t.groupOf(inst)
	if g == nil {
		return fmt.Errorf("%w: instance %d", ErrUnknownPath, inst.id)
	}
	if !g.CanRemove() {
		return fmt.Errorf("%w: %s", ErrMinOccurs, g.def.Path)
	}
	g.instances = append(g.instances[:idx], g.instances[idx+1:]...)
	t.forget(inst)
	if len(g.instances) == 0 {
		g.toggled = false
	}
	t.reindex(g)
	t.logger.Debug("form instance removed", "path", inst.path)
	t.emit(Change{Kind: InstanceRemoved, Instance: inst})
	return nil
}

// Activate switches a group on: optional sections get their first instance,
// existing inactive instances become active.
func (t *Tree) Activate(g *Group) {
	g.toggled = true
	g.visible = true
	if len(g.instances) == 0 {
		n := g.def.MinOccurs
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			inst := t.newInstance(g, i, true)
			g.instances = append(g.instances, inst)
			t.emit(Change{Kind: InstanceAdded, Instance: inst})
		}
		return
	}
	for _, inst := range g.instances {
		inst.active = true
	}
}

// Deactivate switches a group off. Optional sections lose every instance;
// required ones keep them inactive.
func (t *Tree) Deactivate(g *Group) {
	g.visible = false
	if g.def.Optional() {
		removed := g.instances
		g.instances = nil
		g.toggled = false
		for _, inst := range removed {
			t.forget(inst)
			t.emit(Change{Kind: InstanceRemoved, Instance: inst})
		}
		return
	}
	for _, inst := range g.instances {
		inst.active = false
	}
}

// AddSlot appends a value slot to a list field of inst.
func (t *Tree) AddSlot(inst *Instance, fieldPath string) (*Slot, error) {
	slots, ok := inst.slots[fieldPath]
	if !ok || len(slots) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, fieldPath)
	}
	def := slots[0].def
	if !def.List {
		return nil, fmt.Errorf("%w: %s", ErrNotList, fieldPath)
	}
	if def.MaxOccurs != nil && len(slots) >= *def.MaxOccurs {
		return nil, fmt.Errorf("%w: %s", ErrMaxOccurs, fieldPath)
	}
	s := newSlot(def, inst.id, len(slots))
	s.copyFlags(slots[0])
	s.address = slotAddress(inst, def, s.index)
	inst.slots[fieldPath] = append(slots, s)
	return s, nil
}

// RemoveSlot deletes the last slot of a list field, keeping at least one.
func (t *Tree) RemoveSlot(inst *Instance, fieldPath string) error {
	slots := inst.slots[fieldPath]
	if len(slots) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPath, fieldPath)
	}
	floor := slots[0].def.MinOccurs
	if floor < 1 {
		floor = 1
	}
	if len(slots) <= floor {
		return fmt.Errorf("%w: %s", ErrMinOccurs, fieldPath)
	}
	inst.slots[fieldPath] = slots[:len(slots)-1]
	return nil
}

func (t *Tree) groupOf(inst *Instance) (*Group, int) {
	if inst.parentID == 0 {
		return nil, -1
	}
	parent, ok := t.instances[inst.parentID]
	if !ok {
		return nil, -1
	}
	g, ok := parent.Group(inst.def.Path)
	if !ok {
		return nil, -1
	}
	for i, candidate := range g.instances {
		if candidate == inst {
			return g, i
		}
	}
	return nil, -1
}

func (t *Tree) forget(inst *Instance) {
	delete(t.instances, inst.id)
	for _, g := range inst.groups {
		for _, child := range g.instances {
			t.forget(child)
		}
	}
}

func (t *Tree) reindex(g *Group) {
	parentPath := ""
	if parent, ok := t.instances[g.parentID]; ok {
		parentPath = parent.path
	}
	for i, inst := range g.instances {
		inst.index = i
		t.repath(inst, instancePath(parentPath, g.def, i))
	}
}

func (t *Tree) repath(inst *Instance, path string) {
	inst.path = path
	for _, slots := range inst.slots {
		for _, s := range slots {
			s.address = slotAddress(inst, s.def, s.index)
		}
	}
	for _, g := range inst.groups {
		for i, child := range g.instances {
			t.repath(child, instancePath(path, g.def, i))
		}
	}
}

// StripIndices turns an address into its definition path.
func StripIndices(address string) string {
	var b strings.Builder
	depth := 0
	for _, r := range address {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
