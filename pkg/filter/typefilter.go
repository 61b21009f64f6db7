package filter

import "github.com/chronolith/chronolith/pkg/types"

// TypeFilter selects events by type through the two-level type hierarchy.
// The hierarchy root has a nil event type and one child per base category;
// base nodes have one child per sub-type. A node without children stands
// for every sub-type beneath its own type.
type TypeFilter struct {
	node
	eventType types.EventType // nil for the hierarchy root
	subs      []*TypeFilter
}

// NewTypeFilterRoot builds the full type hierarchy with every node
// selected, the everything-visible default.
func NewTypeFilterRoot() *TypeFilter {
	root := &TypeFilter{node: activeNode()}
	for _, base := range types.BaseTypes() {
		baseFilter := &TypeFilter{node: activeNode(), eventType: base}
		for _, sub := range base.SubTypes() {
			baseFilter.subs = append(baseFilter.subs,
				&TypeFilter{node: activeNode(), eventType: sub})
		}
		root.subs = append(root.subs, baseFilter)
	}
	return root
}

// NewTypeFilter returns a selected node for one type with the given
// children. The child list is fixed; callers build subtrees bottom-up.
func NewTypeFilter(et types.EventType, subs ...*TypeFilter) *TypeFilter {
	children := make([]*TypeFilter, len(subs))
	copy(children, subs)
	return &TypeFilter{node: activeNode(), eventType: et, subs: children}
}

func (f *TypeFilter) isFilter() {}

// Kind returns "type".
func (f *TypeFilter) Kind() string { return "type" }

// EventType returns the node's type, nil for the hierarchy root.
func (f *TypeFilter) EventType() types.EventType { return f.eventType }

// IsRoot reports whether the node is the hierarchy root.
func (f *TypeFilter) IsRoot() bool { return f.eventType == nil }

// SubFilters returns a copy of the node's children.
func (f *TypeFilter) SubFilters() []*TypeFilter {
	subs := make([]*TypeFilter, len(f.subs))
	copy(subs, f.subs)
	return subs
}

// Find returns the descendant node for the given type, or nil. The root
// itself is never returned.
func (f *TypeFilter) Find(et types.EventType) *TypeFilter {
	for _, sub := range f.subs {
		if sub.eventType == et {
			return sub
		}
		if found := sub.Find(et); found != nil {
			return found
		}
	}
	return nil
}

// FullySelected reports whether the node and every descendant is active.
func (f *TypeFilter) FullySelected() bool {
	if !f.IsActive() {
		return false
	}
	for _, sub := range f.subs {
		if !sub.FullySelected() {
			return false
		}
	}
	return true
}

// ActiveSubTypes returns the sub-types selected by the node's active
// branches. An inactive branch contributes nothing; an active node without
// children contributes every sub-type beneath its type.
func (f *TypeFilter) ActiveSubTypes() []types.SubType {
	if !f.IsActive() {
		return nil
	}
	if len(f.subs) == 0 {
		switch et := f.eventType.(type) {
		case types.SubType:
			return []types.SubType{et}
		case types.BaseType:
			return et.SubTypes()
		default:
			return types.SubTypes()
		}
	}
	var out []types.SubType
	for _, sub := range f.subs {
		out = append(out, sub.ActiveSubTypes()...)
	}
	return out
}

// Copy returns a deep copy of the subtree.
func (f *TypeFilter) Copy() Filter {
	c := &TypeFilter{node: f.node, eventType: f.eventType}
	for _, sub := range f.subs {
		c.subs = append(c.subs, sub.Copy().(*TypeFilter))
	}
	return c
}
