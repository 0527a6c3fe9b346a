package objects

import (
	"fmt"

	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// GameObject is a scene object that is always in exactly one of its states
// (or none, before the first state is set).
type GameObject struct {
	registry.Node
	Pos [3]float32

	initial   string
	baseFlags uint32
	state     *ObjectState
	stateTime float32
	inventory string
}

func NewGameObject(t types.ObjectType, name string, flags uint32, start string) *GameObject {
	o := &GameObject{Node: registry.NewNode(t, name), initial: start, baseFlags: flags}
	o.Flags = flags
	return o
}

// States returns the object's states in declaration order.
func (o *GameObject) States() []*ObjectState {
	var out []*ObjectState
	for _, c := range o.Children() {
		if s, ok := c.Entity().(*ObjectState); ok {
			out = append(out, s)
		}
	}
	return out
}

// StateByName returns the named state, or nil.
func (o *GameObject) StateByName(name string) *ObjectState {
	if c := o.Child(types.ObjState, name); c != nil {
		s, _ := c.Entity().(*ObjectState)
		return s
	}
	return nil
}

// State returns the current state, or nil.
func (o *GameObject) State() *ObjectState { return o.state }

// CurrentState returns the current state's name.
func (o *GameObject) CurrentState() string {
	if o.state == nil {
		return ""
	}
	return o.state.Name
}

// StateTime returns the seconds spent in the current state.
func (o *GameObject) StateTime() float32 { return o.stateTime }

// Inventory returns the name of the inventory holding the object.
func (o *GameObject) Inventory() string { return o.inventory }

// SetState switches to s and restarts the state timer. Hidden states hide
// the object.
func (o *GameObject) SetState(s *ObjectState) {
	o.state = s
	o.stateTime = 0
	o.SetFlag(types.FlagStateChange)
	if s != nil && s.Flags&types.FlagHidden != 0 {
		o.SetFlag(types.FlagHidden)
	} else if o.baseFlags&types.FlagHidden == 0 {
		o.DropFlag(types.FlagHidden)
	}
}

// Quant advances the state timer.
func (o *GameObject) Quant(dt float32) {
	o.DropFlag(types.FlagStateChange)
	if o.state != nil {
		o.stateTime += dt
	}
}

// Init puts the object into its initial state.
func (o *GameObject) Init() {
	o.Flags = o.baseFlags
	o.inventory = ""
	o.state = nil
	o.stateTime = 0
	if s := o.StateByName(o.initial); s != nil {
		o.state = s
	} else if states := o.States(); len(states) > 0 {
		o.state = states[0]
	}
}

func (o *GameObject) SaveData(w *stream.Writer) {
	w.Uint32(o.Flags)
	w.Str(o.CurrentState())
	w.Float32(o.stateTime)
	w.Str(o.inventory)
	for _, v := range o.Pos {
		w.Float32(v)
	}
}

func (o *GameObject) LoadData(r *stream.Reader, version int) error {
	if err := stream.CheckVersion(version); err != nil {
		return err
	}
	flags := r.Uint32()
	state := r.Str()
	stateTime := r.Float32()
	inv := r.Str()
	var pos [3]float32
	for i := range pos {
		pos[i] = r.Float32()
	}
	if err := r.Err(); err != nil {
		return err
	}

	var s *ObjectState
	if state != "" {
		if s = o.StateByName(state); s == nil {
			return fmt.Errorf("object %s: unknown state %q", o.Path(), state)
		}
	}
	o.Flags = flags
	o.state = s
	o.stateTime = stateTime
	o.inventory = inv
	o.Pos = pos
	return nil
}

// ObjectState is a state of a game object. Starting it as a payload makes
// it the object's current state; it completes after Duration seconds.
type ObjectState struct {
	registry.Node
	conditional.Object

	Duration  float32
	Inventory string
}

func NewObjectState(name string, flags uint32, duration float32, inventory string, cond conditional.Object) *ObjectState {
	s := &ObjectState{Node: registry.NewNode(types.ObjState, name), Object: cond, Duration: duration, Inventory: inventory}
	s.Flags = flags
	return s
}

// GameObject returns the owning game object.
func (s *ObjectState) GameObject() *GameObject {
	if s.Owner() == nil {
		return nil
	}
	obj, _ := s.Owner().Entity().(*GameObject)
	return obj
}

func (s *ObjectState) SaveData(w *stream.Writer) { s.Object.SaveData(w) }

func (s *ObjectState) LoadData(r *stream.Reader, version int) error {
	return s.Object.LoadData(r, version)
}
