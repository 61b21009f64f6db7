// Package filter models the predicate trees timeline queries are shaped by.
// A filter tree is built once by composition and then handed to the query
// engine; the set of node kinds is closed, so consumers can dispatch over it
// exhaustively.
package filter

// Filter is one node of a filter tree. Implementations are the leaf and
// combinator types in this package; the unexported method keeps the set
// closed.
//
// A node carries selected and disabled flags. Only those flags may change
// after construction; a node's children are fixed when it is built.
type Filter interface {
	// Kind returns the node's kind name, stable across releases.
	Kind() string
	// Selected reports the selected flag.
	Selected() bool
	// Disabled reports the disabled flag.
	Disabled() bool
	// SetSelected sets the selected flag.
	SetSelected(bool)
	// SetDisabled sets the disabled flag.
	SetDisabled(bool)
	// IsActive reports whether the node participates in a query:
	// selected and not disabled.
	IsActive() bool
	// Copy returns a deep copy of the node, children and flags included.
	Copy() Filter

	isFilter()
}

// node carries the activation flags shared by every filter kind.
type node struct {
	selected bool
	disabled bool
}

func activeNode() node { return node{selected: true} }

// Selected reports the selected flag.
func (n *node) Selected() bool { return n.selected }

// Disabled reports the disabled flag.
func (n *node) Disabled() bool { return n.disabled }

// SetSelected sets the selected flag.
func (n *node) SetSelected(v bool) { n.selected = v }

// SetDisabled sets the disabled flag.
func (n *node) SetDisabled(v bool) { n.disabled = v }

// IsActive reports whether the node is selected and not disabled.
func (n *node) IsActive() bool { return n.selected && !n.disabled }
