package engine

import (
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/objects"
)

// SimAudio is the default Audio: it plays nothing and only advances the
// playback position of every playing track by game time. All playback
// state lives in the tracks themselves, so it survives save/load.
type SimAudio struct {
	tracks []*objects.MusicTrack
	log    *zap.Logger
}

// NewSimAudio returns a simulator over tracks.
func NewSimAudio(tracks []*objects.MusicTrack, log *zap.Logger) *SimAudio {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimAudio{tracks: tracks, log: log}
}

// Play starts t from the beginning. A cycled track without a duration
// would never advance, so it is refused.
func (a *SimAudio) Play(t *objects.MusicTrack) bool {
	if t.Cycled && t.Duration <= 0 && t.File == "" {
		a.log.Warn("music track has neither file nor duration", zap.String("track", t.Path()))
		return false
	}
	t.MarkPlaying()
	a.log.Debug("music started", zap.String("track", t.Path()), zap.Int32("volume", t.Volume))
	return true
}

func (a *SimAudio) Stop(t *objects.MusicTrack) {
	if t.IsPlaying() {
		t.MarkStopped()
		a.log.Debug("music stopped", zap.String("track", t.Path()))
	}
}

func (a *SimAudio) Quant(dt float32) {
	for _, t := range a.tracks {
		t.Advance(dt)
	}
}
