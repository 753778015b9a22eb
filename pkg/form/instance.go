package form

import (
	"strconv"

	"github.com/goliatone/go-xsdform/pkg/model"
)

// Instance is one occurrence of a section. The parent is referenced by id and
// resolved through the tree; instances never own their parent.
type Instance struct {
	id       int
	parentID int
	def      *model.SectionDef
	index    int
	path     string
	active   bool
	order    []string
	slots    map[string][]*Slot
	groups   []*Group
}

func (i *Instance) ID() int                { return i.id }
func (i *Instance) ParentID() int          { return i.parentID }
func (i *Instance) Def() *model.SectionDef { return i.def }
func (i *Instance) Index() int             { return i.index }
func (i *Instance) Path() string           { return i.path }

// Active reports the instance's own flag. Use Tree.Live to include ancestors.
func (i *Instance) Active() bool { return i.active }

// FieldPaths lists the field definition paths of the instance in declaration
// order.
func (i *Instance) FieldPaths() []string {
	return append([]string(nil), i.order...)
}

// Slots returns the value slots of one field of this instance.
func (i *Instance) Slots(fieldPath string) []*Slot {
	return append([]*Slot(nil), i.slots[fieldPath]...)
}

// Groups returns the child instance groups, one per child section.
func (i *Instance) Groups() []*Group {
	return append([]*Group(nil), i.groups...)
}

// Group returns the child group for a section definition path.
func (i *Instance) Group(sectionPath string) (*Group, bool) {
	for _, g := range i.groups {
		if g.def.Path == sectionPath {
			return g, true
		}
	}
	return nil, false
}

// Group holds the instances of one child section under one parent instance.
type Group struct {
	def           *model.SectionDef
	parentID      int
	instances     []*Instance
	toggled       bool
	visible       bool
	allowMultiple bool
}

func (g *Group) Def() *model.SectionDef { return g.def }
func (g *Group) ParentID() int          { return g.parentID }
func (g *Group) Len() int               { return len(g.instances) }

// Instances returns the group's instances in order.
func (g *Group) Instances() []*Instance {
	return append([]*Instance(nil), g.instances...)
}

// Toggled reports whether an optional section is switched on.
func (g *Group) Toggled() bool { return g.toggled }

func (g *Group) Visible() bool { return g.visible }

// AllowMultiple reports whether further instances may be added.
func (g *Group) AllowMultiple() bool { return g.allowMultiple }

// CanAdd reports whether AddInstance would succeed.
func (g *Group) CanAdd() bool {
	if len(g.instances) >= 1 && !g.allowMultiple {
		return false
	}
	return g.def.AllowsMore(len(g.instances))
}

// CanRemove reports whether RemoveInstance would succeed.
func (g *Group) CanRemove() bool {
	return len(g.instances) > g.def.MinOccurs
}

func instancePath(parent string, def *model.SectionDef, index int) string {
	path := def.Name
	if parent != "" {
		path = parent + "." + def.Name
	}
	if def.Repeated() {
		path += "[" + strconv.Itoa(index) + "]"
	}
	return path
}

func slotAddress(inst *Instance, def *model.FieldDef, index int) string {
	addr := inst.path + "." + def.Name
	if def.List {
		addr += "[" + strconv.Itoa(index) + "]"
	}
	return addr
}
