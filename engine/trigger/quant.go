package trigger

import (
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/types"
)

// Env is what a chain needs from the engine while advancing.
type Env interface {
	Registry() *registry.Registry
	Rand() conditions.Roller
	// Done reports whether a started payload has completed.
	Done(payload registry.Named) bool
}

// Quant advances the chain by one tick. Elements are processed first, in
// declaration order, then links. With Passes above one the two phases
// repeat until nothing changes, for at least as many passes as there are
// elements; running out of passes while still changing is logged as a
// possible cycle.
func (c *Chain) Quant(dt float32, env Env) {
	for _, l := range c.Links {
		if l.Guard != nil {
			l.Guard.Quant(dt, env.Rand())
		}
	}

	working := make([]bool, len(c.Elements))
	for i, e := range c.Elements {
		working[i] = e.status == types.ElementWorking
	}

	passes := c.Passes
	if passes < 1 {
		passes = 1
	}
	if passes > 1 && passes < len(c.Elements) {
		passes = len(c.Elements)
	}
	changed := false
	for p := 0; p < passes; p++ {
		changed = c.advanceElements(env, working)
		if c.advanceLinks(env) {
			changed = true
		}
		if !changed {
			return
		}
	}
	if passes > 1 {
		c.log.Error("trigger chain still changing after all propagation passes, possible cycle",
			zap.String("chain", c.Name), zap.Int("passes", passes))
	}
}

func (c *Chain) advanceElements(env Env, working []bool) bool {
	reg := env.Registry()
	changed := false
	for i, e := range c.Elements {
		switch e.status {
		case types.ElementInactive:
			if e.ID != RootID && !joinReady(e) {
				continue
			}
			for _, l := range e.parents {
				if l.status == types.LinkActive {
					c.setLinkStatus(l, types.LinkDone)
				}
			}
			c.setElementStatus(e, types.ElementWaiting)
			c.arm(e, reg)
			changed = true
			if c.tryStart(e, reg) {
				changed = true
			}

		case types.ElementWaiting:
			if c.tryStart(e, reg) {
				changed = true
			}

		case types.ElementWorking:
			if !working[i] {
				continue
			}
			if c.done(e, env) {
				c.setElementStatus(e, types.ElementDone)
				changed = true
			}
		}
	}
	return changed
}

// joinReady applies the element's join rule to its incoming links. An AND
// join needs every link active or done with at least one active; an OR
// join needs any active link.
func joinReady(e *Element) bool {
	if len(e.parents) == 0 {
		return false
	}
	active := false
	for _, l := range e.parents {
		switch l.status {
		case types.LinkActive:
			if e.OrJoin {
				return true
			}
			active = true
		case types.LinkInactive:
			if !e.OrJoin {
				return false
			}
		}
	}
	return active
}

func (c *Chain) payload(e *Element, reg *registry.Registry) (registry.Named, bool) {
	if e.Passthrough() {
		return nil, false
	}
	p, ok := e.Payload.Get(reg)
	if !ok {
		c.log.Debug("trigger payload not found",
			zap.String("chain", c.Name), zap.Int32("element", e.ID), zap.Stringer("ref", e.Payload.Ref))
	}
	return p, ok
}

func holder(p registry.Named) *conditional.Object {
	if h, ok := p.(conditional.Holder); ok {
		return h.Conditional()
	}
	return nil
}

func (c *Chain) arm(e *Element, reg *registry.Registry) {
	if p, ok := c.payload(e, reg); ok {
		if obj := holder(p); obj != nil {
			obj.Arm()
		}
	}
}

func (c *Chain) disarm(e *Element, reg *registry.Registry) {
	if p, ok := c.payload(e, reg); ok {
		if obj := holder(p); obj != nil {
			obj.Disarm()
		}
	}
}

// tryStart moves a waiting element to working when its payload started
// this tick. Elements without a payload, or whose payload carries no
// conditions hook, start immediately.
func (c *Chain) tryStart(e *Element, reg *registry.Registry) bool {
	if e.Passthrough() {
		c.setElementStatus(e, types.ElementWorking)
		return true
	}
	p, ok := c.payload(e, reg)
	if !ok {
		return false
	}
	obj := holder(p)
	if obj == nil {
		c.setElementStatus(e, types.ElementWorking)
		return true
	}
	mode, started := obj.StartResult()
	if !started || mode != types.StartActivate {
		return false
	}
	obj.Disarm()
	c.setElementStatus(e, types.ElementWorking)
	return true
}

func (c *Chain) done(e *Element, env Env) bool {
	if e.Passthrough() {
		return true
	}
	p, ok := c.payload(e, env.Registry())
	if !ok {
		return false
	}
	return env.Done(p)
}

func (c *Chain) advanceLinks(env Env) bool {
	reg := env.Registry()
	changed := false
	for _, l := range c.Links {
		if l.status != types.LinkInactive || l.From.status != types.ElementDone {
			continue
		}
		if l.Guard != nil && !l.Guard.Check(reg) {
			continue
		}
		c.setLinkStatus(l, types.LinkActive)
		changed = true
	}
	return changed
}

func (c *Chain) setElementStatus(e *Element, s types.ElementStatus) {
	if e.status == s {
		return
	}
	e.status = s
	if c.observer != nil {
		c.observer.ElementChanged(c, e)
	}
}

func (c *Chain) setLinkStatus(l *Link, s types.LinkStatus) {
	if l.status == s {
		return
	}
	l.status = s
	if c.observer != nil {
		c.observer.LinkChanged(c, l)
	}
}

// Reset returns every element and link to inactive and disarms waiting
// payloads. Changes are reported to the observer.
func (c *Chain) Reset(reg *registry.Registry) {
	for _, e := range c.Elements {
		if e.status == types.ElementWaiting {
			c.disarm(e, reg)
		}
		c.setElementStatus(e, types.ElementInactive)
	}
	for _, l := range c.Links {
		c.setLinkStatus(l, types.LinkInactive)
		if l.Guard != nil {
			l.Guard.Reset()
		}
	}
}

// Rearm arms the payload of every waiting element. Statuses applied with
// RestoreElement after a Reset leave payloads disarmed until this is called.
func (c *Chain) Rearm(reg *registry.Registry) {
	for _, e := range c.Elements {
		if e.status == types.ElementWaiting {
			c.arm(e, reg)
		}
	}
}

// RestoreElement sets a status without side effects or notifications. It
// is used when replaying recorded transitions.
func (c *Chain) RestoreElement(id int32, s types.ElementStatus) bool {
	e := c.Element(id)
	if e == nil {
		return false
	}
	e.status = s
	return true
}

// RestoreLink is RestoreElement for links.
func (c *Chain) RestoreLink(from, to int32, s types.LinkStatus) bool {
	l := c.FindLink(from, to)
	if l == nil {
		return false
	}
	l.status = s
	return true
}

// Counts returns the number of elements in each status.
func (c *Chain) Counts() map[types.ElementStatus]int {
	out := make(map[types.ElementStatus]int, 4)
	for _, e := range c.Elements {
		out[e.status]++
	}
	return out
}
