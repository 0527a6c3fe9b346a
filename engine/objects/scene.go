package objects

import (
	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Scene owns game objects, zones and music tracks. At most one scene is
// active at a time; the engine switches scenes at the end of a tick.
type Scene struct {
	registry.Node
	conditional.Object

	active bool
	visits int32
}

func NewScene(name string, cond conditional.Object) *Scene {
	return &Scene{Node: registry.NewNode(types.ObjScene, name), Object: cond}
}

// IsActive reports whether this is the current scene.
func (s *Scene) IsActive() bool { return s.active }

// Visits returns how many times the scene has been entered.
func (s *Scene) Visits() int32 { return s.visits }

// SetActive is called by the engine when switching scenes.
func (s *Scene) SetActive(v bool) {
	if v && !s.active {
		s.visits++
	}
	s.active = v
}

// RestoreActive sets the active flag without counting a visit.
func (s *Scene) RestoreActive(v bool) { s.active = v }

// GameObjects returns the scene's objects in declaration order.
func (s *Scene) GameObjects() []*GameObject {
	var out []*GameObject
	for _, c := range s.Children() {
		if obj, ok := c.Entity().(*GameObject); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (s *Scene) Reset() {
	s.Object.Reset()
	s.active = false
	s.visits = 0
}

func (s *Scene) SaveData(w *stream.Writer) {
	w.Int32(s.visits)
	s.Object.SaveData(w)
}

func (s *Scene) LoadData(r *stream.Reader, version int) error {
	s.visits = r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	return s.Object.LoadData(r, version)
}
