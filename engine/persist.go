package engine

import (
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/save"
	"github.com/nathoo/questlogic/types"
)

// Save encodes the whole game.
func (e *Engine) Save() ([]byte, error) {
	return save.Save(e.World, save.Meta{
		Session: e.Session,
		Elapsed: e.elapsed,
		Ticks:   e.ticks,
		RNGSeed: e.RNG.Seed(),
		RNGPos:  e.RNG.Position(),
		Scene:   e.scene,
	})
}

// Load replaces the running game with data and clears the profiler. On
// failure the game is left exactly as it was.
func (e *Engine) Load(data []byte) error {
	snapshot, err := e.Save()
	if err != nil {
		return err
	}
	over := e.over
	if err := e.load(data); err != nil {
		if rerr := e.load(snapshot); rerr != nil {
			e.log.Error("restoring game after failed load", zap.Error(rerr))
		}
		e.over = over
		return err
	}
	e.Profiler.Clear()
	return nil
}

func (e *Engine) load(data []byte) error {
	e.World.Init()
	meta, err := save.Load(data, e.World, e.log)
	if err != nil {
		return err
	}

	for _, s := range e.World.Scenes {
		s.RestoreActive(false)
	}
	e.scene = meta.Scene
	if e.scene != nil {
		e.scene.RestoreActive(true)
	}
	e.pending = nil
	e.over = nil
	e.Session = meta.Session
	e.elapsed = meta.Elapsed
	e.ticks = meta.Ticks
	if meta.Version >= types.VersionRNGPosition {
		e.RNG = RestoreRNG(meta.RNGSeed, meta.RNGPos)
	} else {
		e.RNG = NewRNG(e.RNG.Seed())
	}
	e.events = nil
	return nil
}
