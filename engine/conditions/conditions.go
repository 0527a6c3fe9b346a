// Package conditions implements the condition evaluator: typed predicates
// over registry entities, condition groups and AND/OR folding.
package conditions

import (
	"fmt"

	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Entities inspected by conditions implement one of these.
type (
	// StateHolder reports the name of its current state.
	StateHolder interface{ CurrentState() string }
	// Counter reports its current value.
	Counter interface{ Value() int32 }
	// Activity reports whether a scene is the active one.
	Activity interface{ IsActive() bool }
	// Playback reports whether a music track is playing.
	Playback interface{ IsPlaying() bool }
	// Switch reports whether a zone is on.
	Switch interface{ IsOn() bool }
)

// Roller is the deterministic random source used by timer conditions.
type Roller interface {
	Roll(sides int) int
}

// layout describes the operands a condition kind expects.
type layout struct {
	data    []types.DataType
	counts  []int
	objects int
}

var layouts = map[types.ConditionKind]layout{
	types.CondObjectInState:  {data: []types.DataType{types.DataString}, counts: []int{0}, objects: 1},
	types.CondCounterEqual:   {data: []types.DataType{types.DataInt}, counts: []int{1}, objects: 1},
	types.CondCounterGreater: {data: []types.DataType{types.DataInt}, counts: []int{1}, objects: 1},
	types.CondCounterLess:    {data: []types.DataType{types.DataInt}, counts: []int{1}, objects: 1},
	types.CondCounterInRange: {data: []types.DataType{types.DataInt}, counts: []int{2}, objects: 1},
	// period in seconds, probability in percent
	types.CondTimer:        {data: []types.DataType{types.DataFloat, types.DataInt}, counts: []int{1, 1}},
	types.CondSceneActive:  {objects: 1},
	types.CondMusicPlaying: {objects: 1},
	types.CondObjectFlag:   {data: []types.DataType{types.DataInt}, counts: []int{1}, objects: 1},
	types.CondZoneOn:       {objects: 1},
}

// Condition is a typed predicate instance.
type Condition struct {
	Kind    types.ConditionKind
	Inverse bool
	Data    []Data
	Objects []registry.Link

	// timer runtime state
	elapsed float32
	fired   bool
}

// New returns a condition of the given kind with operand buffers allocated
// per the kind's layout.
func New(kind types.ConditionKind) *Condition {
	c := &Condition{Kind: kind}
	l := layouts[kind]
	for i, t := range l.data {
		c.Data = append(c.Data, NewData(t, l.counts[i]))
	}
	c.Objects = make([]registry.Link, l.objects)
	return c
}

// Validate reports whether the condition's operands match its kind.
func (c *Condition) Validate() error {
	l, ok := layouts[c.Kind]
	if !ok {
		return fmt.Errorf("unknown condition kind %d", c.Kind)
	}
	if len(c.Data) != len(l.data) {
		return fmt.Errorf("%s: expected %d operands, got %d", c.Kind, len(l.data), len(c.Data))
	}
	for i, t := range l.data {
		if c.Data[i].Type != t {
			return fmt.Errorf("%s: operand %d has wrong type", c.Kind, i)
		}
		if c.Data[i].Len() < l.counts[i] {
			return fmt.Errorf("%s: operand %d needs %d elements, has %d", c.Kind, i, l.counts[i], c.Data[i].Len())
		}
	}
	if len(c.Objects) != l.objects {
		return fmt.Errorf("%s: expected %d objects, got %d", c.Kind, l.objects, len(c.Objects))
	}
	for i := range c.Objects {
		if c.Objects[i].Ref.Empty() {
			return fmt.Errorf("%s: object %d has an empty reference", c.Kind, i)
		}
	}
	return nil
}

// object resolves the i-th referenced entity.
func (c *Condition) object(i int, reg *registry.Registry) (registry.Named, bool) {
	if i >= len(c.Objects) {
		return nil, false
	}
	return c.Objects[i].Get(reg)
}

func (c *Condition) data(i int) *Data {
	if i >= len(c.Data) {
		return &Data{}
	}
	return &c.Data[i]
}

// Evaluate checks the condition against the current registry state. It
// never mutates entity state; an unresolved reference counts as false
// before inversion.
func Evaluate(c *Condition, reg *registry.Registry) bool {
	return evaluate(c, reg) != c.Inverse
}

func evaluate(c *Condition, reg *registry.Registry) bool {
	switch c.Kind {
	case types.CondObjectInState:
		obj, ok := c.object(0, reg)
		if !ok {
			return false
		}
		sh, ok := obj.(StateHolder)
		return ok && sh.CurrentState() == c.data(0).String()

	case types.CondCounterEqual, types.CondCounterGreater, types.CondCounterLess, types.CondCounterInRange:
		obj, ok := c.object(0, reg)
		if !ok {
			return false
		}
		ctr, ok := obj.(Counter)
		if !ok {
			return false
		}
		v := ctr.Value()
		d := c.data(0)
		switch c.Kind {
		case types.CondCounterEqual:
			return v == d.Int(0)
		case types.CondCounterGreater:
			return v > d.Int(0)
		case types.CondCounterLess:
			return v < d.Int(0)
		default:
			return v >= d.Int(0) && v <= d.Int(1)
		}

	case types.CondTimer:
		return c.fired

	case types.CondSceneActive:
		obj, ok := c.object(0, reg)
		if !ok {
			return false
		}
		a, ok := obj.(Activity)
		return ok && a.IsActive()

	case types.CondMusicPlaying:
		obj, ok := c.object(0, reg)
		if !ok {
			return false
		}
		p, ok := obj.(Playback)
		return ok && p.IsPlaying()

	case types.CondObjectFlag:
		obj, ok := c.object(0, reg)
		if !ok {
			return false
		}
		mask := uint32(c.data(0).Int(0))
		return obj.Base().CheckFlag(mask)

	case types.CondZoneOn:
		obj, ok := c.object(0, reg)
		if !ok {
			return false
		}
		s, ok := obj.(Switch)
		return ok && s.IsOn()

	default:
		return false
	}
}

// Quant advances runtime state for kinds that have any. It is the only
// mutating operation on a condition.
func (c *Condition) Quant(dt float32, rng Roller) {
	if c.Kind != types.CondTimer {
		return
	}
	period := c.data(0).Float(0)
	c.fired = false
	if period <= 0 {
		return
	}
	c.elapsed += dt
	if c.elapsed < period {
		return
	}
	c.elapsed -= period
	probability := c.data(1).Int(0)
	if probability >= 100 || (rng != nil && int32(rng.Roll(100)) <= probability) {
		c.fired = true
	}
}

// Reset clears runtime state.
func (c *Condition) Reset() {
	c.elapsed = 0
	c.fired = false
}

// SaveData writes the runtime state.
func (c *Condition) SaveData(w *stream.Writer) {
	w.Float32(c.elapsed)
	w.Bool(c.fired)
}

// LoadData reads the runtime state.
func (c *Condition) LoadData(r *stream.Reader) error {
	c.elapsed = r.Float32()
	c.fired = r.Bool()
	return r.Err()
}

// FromDef builds a condition from its script definition.
func FromDef(def types.ConditionDef) (*Condition, error) {
	l, ok := layouts[def.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown condition kind %q", def.Kind)
	}
	c := New(def.Kind)
	c.Inverse = def.Inverse

	var ints, floats, strs int
	for i, t := range l.data {
		d := &c.Data[i]
		switch t {
		case types.DataInt:
			for j := 0; j < l.counts[i]; j++ {
				if ints >= len(def.Ints) {
					return nil, fmt.Errorf("%s: missing int operand", def.Kind)
				}
				d.PutInt(def.Ints[ints], j)
				ints++
			}
		case types.DataFloat:
			for j := 0; j < l.counts[i]; j++ {
				if floats >= len(def.Floats) {
					return nil, fmt.Errorf("%s: missing float operand", def.Kind)
				}
				d.PutFloat(def.Floats[floats], j)
				floats++
			}
		case types.DataString:
			if strs >= len(def.Strings) {
				return nil, fmt.Errorf("%s: missing string operand", def.Kind)
			}
			d.PutString(def.Strings[strs])
			strs++
		}
	}

	if len(def.Objects) != l.objects {
		return nil, fmt.Errorf("%s: expected %d object references, got %d", def.Kind, l.objects, len(def.Objects))
	}
	for i, path := range def.Objects {
		ref, err := registry.ParseReference(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Kind, err)
		}
		c.Objects[i] = registry.LinkTo(ref)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Def converts the condition back to its script definition.
func (c *Condition) Def() types.ConditionDef {
	def := types.ConditionDef{Kind: c.Kind, Inverse: c.Inverse}
	for i := range c.Data {
		d := &c.Data[i]
		switch d.Type {
		case types.DataInt:
			def.Ints = append(def.Ints, d.Ints()...)
		case types.DataFloat:
			def.Floats = append(def.Floats, d.Floats()...)
		case types.DataString:
			def.Strings = append(def.Strings, d.String())
		}
	}
	for _, o := range c.Objects {
		def.Objects = append(def.Objects, o.Ref.String())
	}
	return def
}
