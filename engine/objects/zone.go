package objects

import (
	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// GridZone is a walkable area that can be switched on and off.
type GridZone struct {
	registry.Node
	conditional.Object

	Initial bool
	Target  bool
	on      bool
}

func NewGridZone(name string, flags uint32, initial, target bool, cond conditional.Object) *GridZone {
	z := &GridZone{Node: registry.NewNode(types.ObjGridZone, name), Object: cond, Initial: initial, Target: target, on: initial}
	z.Flags = flags
	return z
}

func (z *GridZone) IsOn() bool   { return z.on }
func (z *GridZone) SetOn(v bool) { z.on = v }

func (z *GridZone) Reset() {
	z.Object.Reset()
	z.on = z.Initial
}

func (z *GridZone) SaveData(w *stream.Writer) {
	w.Bool(z.on)
	z.Object.SaveData(w)
}

func (z *GridZone) LoadData(r *stream.Reader, version int) error {
	on := r.Bool()
	if err := r.Err(); err != nil {
		return err
	}
	if err := z.Object.LoadData(r, version); err != nil {
		return err
	}
	z.on = on
	return nil
}
