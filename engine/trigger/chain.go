// Package trigger implements trigger chains: directed graphs of elements,
// each wrapping a payload entity, connected by statused links. Chains
// advance once per engine tick.
package trigger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/types"
)

// RootID is the id of the element every chain starts from.
const RootID int32 = 0

var (
	ErrNoRoot           = errors.New("trigger: chain has no root element")
	ErrDuplicateElement = errors.New("trigger: duplicate element id")
	ErrUnknownElement   = errors.New("trigger: link to unknown element")
)

// Element is a node of a chain.
type Element struct {
	ID      int32
	Payload registry.Link
	OrJoin  bool

	status   types.ElementStatus
	parents  []*Link
	children []*Link
}

func (e *Element) Status() types.ElementStatus { return e.status }

// Parents returns incoming links in declaration order.
func (e *Element) Parents() []*Link { return e.parents }

// Children returns outgoing links in declaration order.
func (e *Element) Children() []*Link { return e.children }

// Passthrough reports whether the element has no payload. Such elements
// start as soon as they are waiting and complete on the following tick.
func (e *Element) Passthrough() bool { return e.Payload.Ref.Empty() }

// Link is a directed edge. A guard, when present, must check true before
// the link may activate.
type Link struct {
	From  *Element
	To    *Element
	Type  int32
	Guard *conditions.Set

	status types.LinkStatus
}

func (l *Link) Status() types.LinkStatus { return l.status }

// Observer is notified of every status change.
type Observer interface {
	ElementChanged(c *Chain, e *Element)
	LinkChanged(c *Chain, l *Link)
}

var _ registry.Named = (*Chain)(nil)

// Chain is a trigger chain registered under the dispatcher.
type Chain struct {
	registry.Node

	// ResetScene names the scene whose entry resets the chain.
	ResetScene string
	Elements   []*Element
	Links      []*Link

	// Passes is the number of propagation passes per tick; values below
	// one mean one.
	Passes int
	// Index is the chain's position in registration order.
	Index int

	observer Observer
	log      *zap.Logger
}

// New builds a chain from its definition. Malformed guard conditions are
// skipped with a warning; structural problems are errors.
func New(def types.ChainDef, log *zap.Logger) (*Chain, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Chain{
		Node:       registry.NewNode(types.ObjTriggerChain, def.Name),
		ResetScene: def.ResetScene,
		log:        log,
	}
	c.Flags = def.Flags

	byID := make(map[int32]*Element, len(def.Elements))
	for _, ed := range def.Elements {
		if _, dup := byID[ed.ID]; dup {
			return nil, fmt.Errorf("%w: chain %q element %d", ErrDuplicateElement, def.Name, ed.ID)
		}
		ref, err := registry.ParseReference(ed.Object)
		if err != nil {
			return nil, fmt.Errorf("chain %q element %d: %w", def.Name, ed.ID, err)
		}
		el := &Element{ID: ed.ID, Payload: registry.LinkTo(ref), OrJoin: ed.OrJoin}
		byID[ed.ID] = el
		c.Elements = append(c.Elements, el)
	}
	if _, ok := byID[RootID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRoot, def.Name)
	}

	for i, ld := range def.Links {
		from, to := byID[ld.From], byID[ld.To]
		if from == nil || to == nil {
			return nil, fmt.Errorf("%w: chain %q link %d (%d -> %d)", ErrUnknownElement, def.Name, i, ld.From, ld.To)
		}
		l := &Link{From: from, To: to, Type: ld.Type}
		if len(ld.Guard.Conditions) > 0 {
			owner := fmt.Sprintf("%s link %d->%d", def.Name, ld.From, ld.To)
			if g := conditions.Build(ld.Guard, owner, log); !g.Empty() {
				l.Guard = g
			}
		}
		from.children = append(from.children, l)
		to.parents = append(to.parents, l)
		c.Links = append(c.Links, l)
	}
	return c, nil
}

// SetObserver installs o; nil removes it.
func (c *Chain) SetObserver(o Observer) { c.observer = o }

// SetLogger replaces the chain's logger.
func (c *Chain) SetLogger(log *zap.Logger) {
	if log != nil {
		c.log = log
	}
}

// Element returns the element with the given id.
func (c *Chain) Element(id int32) *Element {
	for _, e := range c.Elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Root returns the root element.
func (c *Chain) Root() *Element { return c.Element(RootID) }

// FindLink returns the link between two element ids.
func (c *Chain) FindLink(from, to int32) *Link {
	if e := c.Element(from); e != nil {
		for _, l := range e.children {
			if l.To.ID == to {
				return l
			}
		}
	}
	return nil
}

// Def converts the chain back to its script definition.
func (c *Chain) Def() types.ChainDef {
	def := types.ChainDef{Name: c.Name, Flags: c.Flags, ResetScene: c.ResetScene}
	for _, e := range c.Elements {
		def.Elements = append(def.Elements, types.ElementDef{ID: e.ID, Object: e.Payload.Ref.String(), OrJoin: e.OrJoin})
	}
	for _, l := range c.Links {
		ld := types.LinkDef{From: l.From.ID, To: l.To.ID, Type: l.Type}
		if l.Guard != nil {
			ld.Guard = l.Guard.Def()
		}
		def.Links = append(def.Links, ld)
	}
	return def
}
