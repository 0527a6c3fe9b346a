// Package objects defines the concrete runtime entities: scenes, game
// objects and their states, zones, music tracks, counters, game ends and
// inventories. Trigger payload behavior is dispatched over this closed
// set of kinds by StartTrigger and TriggerDone.
package objects

import (
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Env is what payloads need from the running engine.
type Env interface {
	Registry() *registry.Registry
	ActiveScene() *Scene
	RequestScene(s *Scene)
	Audio() Audio
	EndGame(g *GameEnd)
	Logger() *zap.Logger
}

// Audio is the music playback boundary. Implementations report progress
// back through MusicTrack.MarkPlaying, Advance and MarkFinished.
type Audio interface {
	Play(t *MusicTrack) bool
	Stop(t *MusicTrack)
	Quant(dt float32)
}

// Persistent is implemented by every entity with runtime state that goes
// into a save.
type Persistent interface {
	registry.Named
	SaveData(w *stream.Writer)
	LoadData(r *stream.Reader, version int) error
}

var (
	_ Persistent = (*Scene)(nil)
	_ Persistent = (*GameObject)(nil)
	_ Persistent = (*ObjectState)(nil)
	_ Persistent = (*GridZone)(nil)
	_ Persistent = (*MusicTrack)(nil)
	_ Persistent = (*Counter)(nil)
	_ Persistent = (*GameEnd)(nil)
	_ Persistent = (*Inventory)(nil)
)

// CanStart reports whether a payload may start now. Entities that live
// inside a scene wait until that scene is active, unless flagged global.
func CanStart(env Env, e registry.Named) types.StartMode {
	n := e.Base()
	if n.CheckFlag(types.FlagGlobal) {
		return types.StartActivate
	}
	if n.Type == types.ObjScene {
		return types.StartActivate
	}
	owner := n.OwnerOfType(types.ObjScene)
	if owner == nil {
		return types.StartActivate
	}
	active := env.ActiveScene()
	if active == nil || active.Base() != owner {
		return types.StartWait
	}
	return types.StartActivate
}

// Start checks CanStart and then starts the payload.
func Start(env Env, e registry.Named) types.StartMode {
	if mode := CanStart(env, e); mode != types.StartActivate {
		return mode
	}
	return StartTrigger(env, e)
}

// StartTrigger runs the start action of a payload.
func StartTrigger(env Env, e registry.Named) types.StartMode {
	switch p := e.(type) {
	case *Scene:
		env.RequestScene(p)
		return types.StartActivate

	case *ObjectState:
		obj := p.GameObject()
		if obj == nil {
			return types.StartFailed
		}
		obj.SetState(p)
		if p.Inventory != "" {
			inv, ok := env.Registry().Resolve(registry.Reference{{Type: types.ObjInventory, Name: p.Inventory}})
			if !ok {
				env.Logger().Warn("inventory not found",
					zap.String("state", p.Path()), zap.String("inventory", p.Inventory))
				return types.StartActivate
			}
			if !inv.(*Inventory).Put(obj) {
				env.Logger().Warn("inventory full",
					zap.String("object", obj.Path()), zap.String("inventory", p.Inventory))
			}
		}
		return types.StartActivate

	case *GridZone:
		p.SetOn(p.Target)
		return types.StartActivate

	case *MusicTrack:
		if env.Audio() == nil || !env.Audio().Play(p) {
			return types.StartFailed
		}
		return types.StartActivate

	case *Counter:
		p.Add(p.Step)
		return types.StartActivate

	case *GameEnd:
		env.EndGame(p)
		return types.StartActivate
	}

	env.Logger().Debug("entity has no trigger payload", zap.Stringer("type", e.Base().Type))
	return types.StartFailed
}

// TriggerDone reports whether a started payload has completed.
func TriggerDone(env Env, e registry.Named) bool {
	switch p := e.(type) {
	case *Scene:
		return p.IsActive()
	case *ObjectState:
		obj := p.GameObject()
		if obj == nil || obj.State() != p {
			return true
		}
		return obj.StateTime() >= p.Duration
	case *MusicTrack:
		return !p.Cycled && p.Finished()
	case *GridZone, *Counter, *GameEnd:
		return true
	}
	return true
}

// Conditionals returns the conditional part of e, if any.
func Conditionals(e registry.Named) *conditional.Object {
	if h, ok := e.(conditional.Holder); ok {
		return h.Conditional()
	}
	return nil
}
