// Package engine provides the Quant() dispatcher that advances the world
// one tick at a time: conditional objects, the active scene, audio,
// trigger chains and finally the scene switch.
package engine

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/objects"
	"github.com/nathoo/questlogic/engine/profiler"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/state"
	"github.com/nathoo/questlogic/engine/trigger"
	"github.com/nathoo/questlogic/types"
)

// DefaultTick is the game time advanced by one console tick, in seconds.
const DefaultTick float32 = 0.1

// Engine holds the world and everything that drives it.
type Engine struct {
	Defs     *types.Defs
	World    *state.World
	RNG      *RNG
	Profiler *profiler.Profiler
	Session  uuid.UUID

	log     *zap.Logger
	audio   objects.Audio
	tick    float32
	scene   *objects.Scene
	pending *objects.Scene
	over    *objects.GameEnd
	elapsed float64
	ticks   int64
	events  []types.Event
}

// Option configures New.
type Option func(*options)

type options struct {
	log     *zap.Logger
	seed    int64
	audio   objects.Audio
	passes  int
	tick    float32
	profile bool
}

func WithLogger(log *zap.Logger) Option { return func(o *options) { o.log = log } }

// WithSeed seeds the RNG used by timer conditions.
func WithSeed(seed int64) Option { return func(o *options) { o.seed = seed } }

// WithAudio replaces the simulated audio player.
func WithAudio(a objects.Audio) Option { return func(o *options) { o.audio = a } }

// WithPasses sets the propagation passes per chain per tick.
func WithPasses(n int) Option { return func(o *options) { o.passes = n } }

// WithTick sets the game time of one console tick.
func WithTick(dt float32) Option { return func(o *options) { o.tick = dt } }

// WithProfiler enables the trigger profiler from the first tick.
func WithProfiler(enabled bool) Option { return func(o *options) { o.profile = enabled } }

// New builds the world from defs and enters the start scene.
func New(defs *types.Defs, opts ...Option) (*Engine, error) {
	o := options{seed: 1, passes: 1, tick: DefaultTick}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	w, err := state.Build(defs, o.log)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		Defs:     defs,
		World:    w,
		RNG:      NewRNG(o.seed),
		Profiler: profiler.New(o.log),
		Session:  uuid.New(),
		log:      o.log,
		audio:    o.audio,
		tick:     o.tick,
	}
	if e.audio == nil {
		e.audio = NewSimAudio(w.Music, o.log)
	}

	e.Profiler.Attach(w.Chains, w.Registry, func() float64 { return e.elapsed })
	e.Profiler.Enable(o.profile)
	for _, c := range w.Chains {
		c.Passes = o.passes
		c.SetObserver(e)
	}

	if w.Start != nil {
		e.switchScene(w.Start)
	}
	e.log.Info("game started",
		zap.String("title", defs.Game.Title),
		zap.String("session", e.Session.String()),
		zap.Int("chains", len(w.Chains)))
	return e, nil
}

// objects.Env and trigger.Env.

func (e *Engine) Registry() *registry.Registry  { return e.World.Registry }
func (e *Engine) ActiveScene() *objects.Scene   { return e.scene }
func (e *Engine) Audio() objects.Audio          { return e.audio }
func (e *Engine) Logger() *zap.Logger           { return e.log }
func (e *Engine) Rand() conditions.Roller       { return e.RNG }
func (e *Engine) Done(p registry.Named) bool    { return objects.TriggerDone(e, p) }
func (e *Engine) RequestScene(s *objects.Scene) { e.pending = s }

func (e *Engine) EndGame(g *objects.GameEnd) {
	if e.over != nil {
		return
	}
	e.over = g
	e.emit("game_over", map[string]any{"end": g.Name, "screen": g.Screen})
	e.log.Info("game over", zap.String("end", g.Name))
}

// GameOver returns the game end that finished the game, if any.
func (e *Engine) GameOver() *objects.GameEnd { return e.over }

// Elapsed returns the game time in seconds.
func (e *Engine) Elapsed() float64 { return e.elapsed }

// Ticks returns the number of ticks run.
func (e *Engine) Ticks() int64 { return e.ticks }

// TickInterval returns the game time of one console tick.
func (e *Engine) TickInterval() float32 { return e.tick }

// Quant advances the world by dt seconds. Nothing moves once the game is
// over.
func (e *Engine) Quant(dt float32) {
	if e.over != nil {
		return
	}
	reg := e.World.Registry

	for _, h := range e.World.Conditionals {
		h := h
		h.Conditional().Quant(dt, reg, e.RNG, func() types.StartMode {
			return objects.Start(e, h)
		})
	}

	if e.scene != nil {
		for _, obj := range e.scene.GameObjects() {
			obj.Quant(dt)
		}
	}
	e.audio.Quant(dt)

	for _, c := range e.World.Chains {
		c.Quant(dt, e)
	}

	if e.pending != nil {
		next := e.pending
		e.pending = nil
		e.switchScene(next)
	}

	e.elapsed += float64(dt)
	e.ticks++
}

// switchScene leaves the current scene, stopping its music, enters next
// and resets every chain bound to it.
func (e *Engine) switchScene(next *objects.Scene) {
	if next == e.scene {
		return
	}
	if prev := e.scene; prev != nil {
		for _, c := range prev.Children() {
			if t, ok := c.Entity().(*objects.MusicTrack); ok {
				e.audio.Stop(t)
			}
		}
		prev.SetActive(false)
	}
	e.scene = next
	next.SetActive(true)
	e.emit("scene_changed", map[string]any{"scene": next.Name, "visits": next.Visits()})
	e.log.Debug("scene changed", zap.String("scene", next.Name))

	for _, c := range e.World.Chains {
		if c.ResetScene != "" && c.ResetScene == next.Name {
			c.Reset(e.World.Registry)
		}
	}
}

// trigger.Observer. Every change becomes an event and is forwarded to
// the profiler.

func (e *Engine) ElementChanged(c *trigger.Chain, el *trigger.Element) {
	e.emit("element_status", map[string]any{
		"chain":   c.Name,
		"element": el.ID,
		"status":  el.Status().String(),
	})
	e.Profiler.ElementChanged(c, el)
}

func (e *Engine) LinkChanged(c *trigger.Chain, l *trigger.Link) {
	e.emit("link_status", map[string]any{
		"chain":  c.Name,
		"from":   l.From.ID,
		"to":     l.To.ID,
		"status": l.Status().String(),
	})
	e.Profiler.LinkChanged(c, l)
}

func (e *Engine) emit(typ string, data map[string]any) {
	e.events = append(e.events, types.Event{Type: typ, Data: data})
}

// Events returns and clears the events emitted since the last call.
func (e *Engine) Events() []types.Event {
	out := e.events
	e.events = nil
	return out
}
