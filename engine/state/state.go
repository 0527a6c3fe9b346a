// Package state builds the runtime world from script definitions: the
// registry tree plus the ordered lists the engine iterates every tick.
package state

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/objects"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/trigger"
	"github.com/nathoo/questlogic/types"
)

// World is the instantiated game. Every list is in registration order,
// which is the order the engine processes entities in.
type World struct {
	Defs     *types.Defs
	Registry *registry.Registry

	Scenes      []*objects.Scene
	Objects     []*objects.GameObject
	Music       []*objects.MusicTrack
	Inventories []*objects.Inventory
	Chains      []*trigger.Chain

	// Conditionals holds every entity with a conditions hook.
	Conditionals []conditional.Holder
	// Persistent holds every entity that goes into a save.
	Persistent []objects.Persistent

	Start *objects.Scene
}

type builder struct {
	w   *World
	log *zap.Logger
}

func (b *builder) register(owner, e registry.Named) error {
	return b.w.Registry.Register(owner, e)
}

func (b *builder) cond(def types.ConditionsDef, owner string) conditional.Object {
	return conditional.New(conditions.Build(def, owner, b.log))
}

// Build instantiates defs. Registration failures are errors; malformed
// condition data is skipped with a warning.
func Build(defs *types.Defs, log *zap.Logger) (*World, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &builder{w: &World{Defs: defs, Registry: registry.New()}, log: log}

	for _, sd := range defs.Scenes {
		if err := b.scene(sd); err != nil {
			return nil, err
		}
	}
	for _, md := range defs.Music {
		if err := b.music(nil, md); err != nil {
			return nil, err
		}
	}
	for _, cd := range defs.Counters {
		c := objects.NewCounter(cd.Name, cd.Flags, cd.Value, cd.Step, cd.Limit, b.cond(cd.Conditions, cd.Name))
		if err := b.register(nil, c); err != nil {
			return nil, err
		}
	}
	for _, gd := range defs.GameEnds {
		g := objects.NewGameEnd(gd.Name, gd.Flags, gd.Screen, b.cond(gd.Conditions, gd.Name))
		if err := b.register(nil, g); err != nil {
			return nil, err
		}
	}
	for _, id := range defs.Inventories {
		var sets []*objects.CellSet
		for _, cs := range id.CellSets {
			sets = append(sets, objects.NewCellSet(cs.Size, cs.Additional, cs.CellType))
		}
		inv := objects.NewInventory(id.Name, id.Flags, sets)
		if err := b.register(nil, inv); err != nil {
			return nil, err
		}
		b.w.Inventories = append(b.w.Inventories, inv)
	}
	for _, cd := range defs.Chains {
		c, err := trigger.New(cd, log)
		if err != nil {
			return nil, err
		}
		if err := b.register(nil, c); err != nil {
			return nil, err
		}
		c.Index = len(b.w.Chains)
		b.w.Chains = append(b.w.Chains, c)
	}

	b.w.Registry.Walk(func(e registry.Named) bool {
		if h, ok := e.(conditional.Holder); ok {
			b.w.Conditionals = append(b.w.Conditionals, h)
		}
		if p, ok := e.(objects.Persistent); ok {
			b.w.Persistent = append(b.w.Persistent, p)
		}
		return true
	})

	if defs.Game.Start != "" {
		b.w.Start = b.w.Scene(defs.Game.Start)
		if b.w.Start == nil {
			return nil, fmt.Errorf("start scene %q not found", defs.Game.Start)
		}
	} else if len(b.w.Scenes) > 0 {
		b.w.Start = b.w.Scenes[0]
	}

	b.w.Init()
	return b.w, nil
}

func (b *builder) scene(sd types.SceneDef) error {
	s := objects.NewScene(sd.Name, b.cond(sd.Conditions, sd.Name))
	s.Flags = sd.Flags
	if err := b.register(nil, s); err != nil {
		return err
	}
	b.w.Scenes = append(b.w.Scenes, s)

	for _, od := range sd.Objects {
		t := od.Type
		if t != types.ObjStatic && t != types.ObjMoving {
			t = types.ObjAnimated
		}
		obj := objects.NewGameObject(t, od.Name, od.Flags, od.Start)
		obj.Pos = od.Pos
		if err := b.register(s, obj); err != nil {
			return err
		}
		for _, st := range od.States {
			owner := sd.Name + "::" + od.Name + "::" + st.Name
			ps := objects.NewObjectState(st.Name, st.Flags, st.Duration, st.Inventory, b.cond(st.Conditions, owner))
			if err := b.register(obj, ps); err != nil {
				return err
			}
		}
		b.w.Objects = append(b.w.Objects, obj)
	}
	for _, zd := range sd.Zones {
		z := objects.NewGridZone(zd.Name, zd.Flags, zd.State, zd.Target, b.cond(zd.Conditions, sd.Name+"::"+zd.Name))
		if err := b.register(s, z); err != nil {
			return err
		}
	}
	for _, md := range sd.Music {
		if err := b.music(s, md); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) music(owner *objects.Scene, md types.MusicTrackDef) error {
	t := objects.NewMusicTrack(md.Name, md.Flags, md.File, md.Cycled, md.Volume, md.Duration, b.cond(md.Conditions, md.Name))
	var err error
	if owner == nil {
		err = b.register(nil, t)
	} else {
		err = b.register(owner, t)
	}
	if err != nil {
		return err
	}
	b.w.Music = append(b.w.Music, t)
	return nil
}

// resetter is implemented by entities with their own reset logic.
type resetter interface{ Reset() }

// Init returns every entity to its scripted initial state. Chains are
// reset, no scene is active.
func (w *World) Init() {
	w.Registry.Walk(func(e registry.Named) bool {
		switch v := e.(type) {
		case *objects.GameObject:
			v.Init()
		case resetter:
			v.Reset()
		}
		return true
	})
	for _, c := range w.Chains {
		c.Reset(w.Registry)
	}
}

// Scene returns the scene with the given name.
func (w *World) Scene(name string) *objects.Scene {
	if e, ok := w.Registry.Resolve(registry.Reference{{Type: types.ObjScene, Name: name}}); ok {
		s, _ := e.(*objects.Scene)
		return s
	}
	return nil
}

// Chain returns the chain with the given name.
func (w *World) Chain(name string) *trigger.Chain {
	for _, c := range w.Chains {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Counter returns the global counter with the given name.
func (w *World) Counter(name string) *objects.Counter {
	if e, ok := w.Registry.Resolve(registry.Reference{{Type: types.ObjCounter, Name: name}}); ok {
		c, _ := e.(*objects.Counter)
		return c
	}
	return nil
}

// Inventory returns the inventory with the given name.
func (w *World) Inventory(name string) *objects.Inventory {
	for _, inv := range w.Inventories {
		if inv.Name == name {
			return inv
		}
	}
	return nil
}
