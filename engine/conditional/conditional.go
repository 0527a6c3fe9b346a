// Package conditional implements the conditional object: a condition set
// with a per-tick hook that starts the owner's trigger payload when its
// conditions become true.
package conditional

import (
	"fmt"

	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Truth is the last observed value of a condition set.
type Truth uint8

const (
	Unset Truth = iota
	False
	True
)

func (t Truth) String() string {
	switch t {
	case False:
		return "false"
	case True:
		return "true"
	}
	return "unset"
}

// Holder is implemented by every entity that carries conditions.
type Holder interface {
	registry.Named
	Conditional() *Object
}

// StartFunc starts the owner's payload. It is supplied by the engine,
// which knows the concrete payload kinds.
type StartFunc func() types.StartMode

// Object is embedded by conditional entities.
type Object struct {
	conditions.Set

	last    Truth
	waiting int32

	started bool
	result  types.StartMode
}

// New wraps a built condition set.
func New(set *conditions.Set) Object {
	if set == nil {
		return Object{}
	}
	return Object{Set: *set}
}

// Conditional returns o, so embedding entities satisfy Holder.
func (o *Object) Conditional() *Object { return o }

// Arm registers one more trigger element waiting on this object.
func (o *Object) Arm() { o.waiting++ }

// Disarm removes one waiting trigger element. Once nothing waits the
// truth value is forgotten, so the next arming starts from unset.
func (o *Object) Disarm() {
	if o.waiting > 0 {
		o.waiting--
	}
	if o.waiting == 0 {
		o.last = Unset
	}
}

// Waiting reports whether any trigger element waits on this object.
func (o *Object) Waiting() bool { return o.waiting > 0 }

// Last returns the truth value observed by the latest Quant.
func (o *Object) Last() Truth { return o.last }

// Check evaluates the condition set.
func (o *Object) Check(reg *registry.Registry) bool {
	return o.Set.Check(reg)
}

// StartResult returns the payload start result produced during the current
// tick, if the payload was started.
func (o *Object) StartResult() (types.StartMode, bool) {
	return o.result, o.started
}

// Quant is the per-tick hook. It advances condition runtime state and,
// while some trigger element waits on the object, starts the payload on a
// rising edge of the condition set. FAILED and WAIT reset the truth value
// so the start is retried on the next tick.
func (o *Object) Quant(dt float32, reg *registry.Registry, rng conditions.Roller, start StartFunc) {
	o.started = false
	o.Set.Quant(dt, rng)

	if o.waiting == 0 {
		o.last = Unset
		return
	}

	now := False
	if o.Check(reg) {
		now = True
	}
	prev := o.last
	o.last = now
	if now != True || prev == True || start == nil {
		return
	}

	o.result = start()
	o.started = true
	if o.result != types.StartActivate {
		o.last = Unset
	}
}

// Reset clears every piece of runtime state, including arming.
func (o *Object) Reset() {
	o.Set.Reset()
	o.last = Unset
	o.waiting = 0
	o.started = false
	o.result = types.StartFailed
}

// SaveData writes the truth value, the waiting count and the condition
// runtime state.
func (o *Object) SaveData(w *stream.Writer) {
	w.Uint8(uint8(o.last))
	w.Int32(o.waiting)
	o.Set.SaveData(w)
}

// LoadData reads what SaveData wrote.
func (o *Object) LoadData(r *stream.Reader, version int) error {
	if err := stream.CheckVersion(version); err != nil {
		return err
	}
	last := Truth(r.Uint8())
	waiting := r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	if last > True || waiting < 0 {
		return fmt.Errorf("conditional: corrupt state (truth %d, waiting %d)", last, waiting)
	}
	if err := o.Set.LoadData(r); err != nil {
		return err
	}
	o.last = last
	o.waiting = waiting
	o.started = false
	return nil
}
