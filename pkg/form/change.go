package form

// ChangeKind classifies a tree notification.
type ChangeKind int

const (
	ValueChanged ChangeKind = iota
	InstanceAdded
	InstanceRemoved
	TreeReset
)

// Change describes one mutation. Slot is set for ValueChanged, Instance for
// instance notifications.
type Change struct {
	Kind     ChangeKind
	Slot     *Slot
	Instance *Instance
	Old      string
	New      string
	Origin   Origin
}

// Listener receives changes synchronously, on the goroutine that mutated the
// tree.
type Listener func(Change)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it.
func (t *Tree) Subscribe(l Listener) func() {
	t.nextSub++
	id := t.nextSub
	t.listeners = append(t.listeners, subscription{id: id, fn: l})
	return func() {
		for i, sub := range t.listeners {
			if sub.id == id {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

func (t *Tree) emit(c Change) {
	listeners := append([]subscription(nil), t.listeners...)
	for _, sub := range listeners {
		sub.fn(c)
	}
}
