package wam

import orderedmap "github.com/wk8/go-ordered-map/v2"

// AttributeHook is a per-package handler woken whenever a variable carrying
// that package's attribute gets bound (spec.md §4.4 "attributed-variable
// unification-frame hook", §9). It returns ok=false to fail the enclosing
// unification (an ordinary, backtrackable failure) or a non-nil err to
// abort the run; that err reaches the caller unwrapped, not as an
// OperationalError.
type AttributeHook func(m *Machine, v RefCell, value Cell) (ok bool, err error)

// UnifFrame is one queued hook invocation: variable v was bound to Value
// while carrying Pkg's attribute. Frames are queued, not run inline, so
// that a single bindRef can wake several packages without reentering the
// binder; they drain in the order they were queued (spec.md §4.4).
type UnifFrame struct {
	Var   RefCell
	Pkg   string
	Value Cell
}

// RegisterAttributePackage installs hook under name, the driver API's
// register_attribute_package (spec.md §6). Re-registering a name replaces
// its hook.
func (m *Machine) RegisterAttributePackage(name string, hook AttributeHook) {
	m.attrPkgs.Set(name, hook)
}

// PutAttr attaches pkg's attribute value to v, creating v's attribute set
// if this is its first attribute.
func (m *Machine) PutAttr(v RefCell, pkg string, value Cell) {
	set, ok := m.attributes[v]
	if !ok {
		set = orderedmap.New[string, Cell]()
		m.attributes[v] = set
	}
	set.Set(pkg, value)
}

// GetAttr reads pkg's attribute value on v, if any.
func (m *Machine) GetAttr(v RefCell, pkg string) (Cell, bool) {
	set, ok := m.attributes[v]
	if !ok {
		return nil, false
	}
	return set.Get(pkg)
}

// DelAttr removes pkg's attribute from v.
func (m *Machine) DelAttr(v RefCell, pkg string) {
	set, ok := m.attributes[v]
	if !ok {
		return
	}
	set.Delete(pkg)
}

// notifyAttr queues one unification frame per attribute package attached
// to r, in the packages' registration-on-r order, whenever r is bound.
func (m *Machine) notifyAttr(r RefCell, value Cell) {
	set, ok := m.attributes[r]
	if !ok {
		return
	}
	for pair := set.Oldest(); pair != nil; pair = pair.Next() {
		m.pendingFrames = append(m.pendingFrames, UnifFrame{Var: r, Pkg: pair.Key, Value: value})
	}
}

// drainAttrFrames runs every queued unification frame's hook, in queue
// order. It returns ok=false the first time a hook rejects a binding
// (ordinary failure, triggers backtrack), or a non-nil err the first time
// a hook reports an operational error.
func (m *Machine) drainAttrFrames() (ok bool, err error) {
	for len(m.pendingFrames) > 0 {
		f := m.pendingFrames[0]
		m.pendingFrames = m.pendingFrames[1:]
		hook, found := m.attrPkgs.Get(f.Pkg)
		if !found {
			continue
		}
		ok, err := hook(m, f.Var, f.Value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
