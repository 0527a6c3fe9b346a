// Package registry holds the tree of named runtime entities and the
// symbolic references used to address them across save/load.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/questlogic/types"
)

var (
	// ErrDuplicateName is returned when a sibling with the same type and
	// non-empty name is already registered.
	ErrDuplicateName = errors.New("registry: duplicate name")
	// ErrAlreadyRegistered is returned when an entity already has an owner.
	ErrAlreadyRegistered = errors.New("registry: entity already registered")
	// ErrNotRegistered is returned when an owner is not part of the tree.
	ErrNotRegistered = errors.New("registry: owner not registered")
)

// Named is implemented by every entity that lives in the registry.
type Named interface {
	Base() *Node
}

// Node is the named-entity base embedded by every concrete entity.
type Node struct {
	Type  types.ObjectType
	Name  string
	Flags uint32

	self     Named
	owner    *Node
	children []*Node
	attached bool
}

// NewNode returns a detached node.
func NewNode(t types.ObjectType, name string) Node {
	return Node{Type: t, Name: name}
}

// Base returns n itself, so a bare *Node is Named.
func (n *Node) Base() *Node { return n }

// Entity returns the concrete entity that embeds this node.
func (n *Node) Entity() Named {
	if n.self != nil {
		return n.self
	}
	return n
}

// Owner returns the owning node, or nil for the root and detached nodes.
func (n *Node) Owner() *Node { return n.owner }

// OwnerOfType returns the closest ancestor with the given type.
func (n *Node) OwnerOfType(t types.ObjectType) *Node {
	for p := n.owner; p != nil; p = p.owner {
		if p.Type == t {
			return p
		}
	}
	return nil
}

// Children returns the child nodes in registration order.
func (n *Node) Children() []*Node { return n.children }

// Attached reports whether the node is currently part of a registry tree.
func (n *Node) Attached() bool { return n.attached }

func (n *Node) SetFlag(f uint32)        { n.Flags |= f }
func (n *Node) DropFlag(f uint32)       { n.Flags &^= f }
func (n *Node) CheckFlag(f uint32) bool { return n.Flags&f == f }

// Child returns the direct child with the given type and name.
// Empty names never match.
func (n *Node) Child(t types.ObjectType, name string) *Node {
	if name == "" {
		return nil
	}
	for _, c := range n.children {
		if c.Type == t && c.Name == name {
			return c
		}
	}
	return nil
}

// Path renders the owner chain as "a::b::c", skipping unnamed levels.
func (n *Node) Path() string {
	var parts []string
	for p := n; p != nil && p.Type != types.ObjDispatcher; p = p.owner {
		if p.Name != "" {
			parts = append([]string{p.Name}, parts...)
		}
	}
	return strings.Join(parts, "::")
}

// Registry is the root of all name resolution. It is not safe for
// concurrent use; the runtime is single-threaded.
type Registry struct {
	root Node
}

// New returns an empty registry with a dispatcher root.
func New() *Registry {
	r := &Registry{root: NewNode(types.ObjDispatcher, "")}
	r.root.attached = true
	return r
}

// Root returns the dispatcher node.
func (r *Registry) Root() *Node { return &r.root }

// Register inserts e under owner. A nil owner means the root.
func (r *Registry) Register(owner Named, e Named) error {
	parent := &r.root
	if owner != nil {
		parent = owner.Base()
	}
	if !parent.attached {
		return fmt.Errorf("%w: %s %q", ErrNotRegistered, parent.Type, parent.Name)
	}

	n := e.Base()
	if n.owner != nil || n.attached {
		return fmt.Errorf("%w: %s %q", ErrAlreadyRegistered, n.Type, n.Name)
	}
	if n.Name != "" && parent.Child(n.Type, n.Name) != nil {
		return fmt.Errorf("%w: %s %q under %q", ErrDuplicateName, n.Type, n.Name, parent.Path())
	}

	n.self = e
	n.owner = parent
	parent.children = append(parent.children, n)
	n.markAttached(true)
	return nil
}

// Unregister detaches e and its whole subtree.
func (r *Registry) Unregister(e Named) {
	n := e.Base()
	if n.owner == nil {
		return
	}
	siblings := n.owner.children
	for i, c := range siblings {
		if c == n {
			n.owner.children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	n.owner = nil
	n.markAttached(false)
}

func (n *Node) markAttached(v bool) {
	n.attached = v
	for _, c := range n.children {
		c.markAttached(v)
	}
}

// Resolve walks ref from the root. It returns false whenever a segment does
// not match; it never fails in any other way.
func (r *Registry) Resolve(ref Reference) (Named, bool) {
	if len(ref) == 0 {
		return nil, false
	}
	n := &r.root
	for _, seg := range ref {
		n = n.Child(seg.Type, seg.Name)
		if n == nil {
			return nil, false
		}
	}
	return n.Entity(), true
}

// Lookup parses a reference path and resolves it.
func (r *Registry) Lookup(path string) (Named, bool) {
	ref, err := ParseReference(path)
	if err != nil {
		return nil, false
	}
	return r.Resolve(ref)
}

// Walk visits every registered entity in pre-order, children in
// registration order. Returning false from fn stops the walk.
func (r *Registry) Walk(fn func(Named) bool) {
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		for _, c := range n.children {
			if !fn(c.Entity()) {
				return false
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(&r.root)
}
