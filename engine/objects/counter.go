package objects

import (
	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Counter is a named integer. Starting it as a payload adds Step.
type Counter struct {
	registry.Node
	conditional.Object

	Initial int32
	Step    int32
	Limit   int32 // 0 means unbounded

	value int32
}

func NewCounter(name string, flags uint32, initial, step, limit int32, cond conditional.Object) *Counter {
	c := &Counter{Node: registry.NewNode(types.ObjCounter, name), Object: cond, Initial: initial, Step: step, Limit: limit, value: initial}
	c.Flags = flags
	return c
}

func (c *Counter) Value() int32 { return c.value }

// SetValue assigns v, clamped to the limit.
func (c *Counter) SetValue(v int32) {
	if c.Limit > 0 && v > c.Limit {
		v = c.Limit
	}
	c.value = v
}

// Add adds d, clamped to the limit.
func (c *Counter) Add(d int32) { c.SetValue(c.value + d) }

func (c *Counter) Reset() {
	c.Object.Reset()
	c.value = c.Initial
}

func (c *Counter) SaveData(w *stream.Writer) {
	w.Int32(c.value)
	c.Object.SaveData(w)
}

func (c *Counter) LoadData(r *stream.Reader, version int) error {
	v := r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	if err := c.Object.LoadData(r, version); err != nil {
		return err
	}
	c.value = v
	return nil
}

// GameEnd finishes the game when started.
type GameEnd struct {
	registry.Node
	conditional.Object

	Screen string
}

func NewGameEnd(name string, flags uint32, screen string, cond conditional.Object) *GameEnd {
	g := &GameEnd{Node: registry.NewNode(types.ObjGameEnd, name), Object: cond, Screen: screen}
	g.Flags = flags
	return g
}

func (g *GameEnd) SaveData(w *stream.Writer) { g.Object.SaveData(w) }

func (g *GameEnd) LoadData(r *stream.Reader, version int) error {
	return g.Object.LoadData(r, version)
}
