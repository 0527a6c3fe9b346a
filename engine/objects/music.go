package objects

import (
	"math"

	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// DefaultVolume is the full-scale track volume.
const DefaultVolume = 256

// MusicTrack is a piece of background music. Playback itself belongs to
// the Audio collaborator, which reports progress back to the track.
type MusicTrack struct {
	registry.Node
	conditional.Object

	File     string
	Cycled   bool
	Volume   int32
	Duration float32

	playing  bool
	finished bool
	position float32
}

func NewMusicTrack(name string, flags uint32, file string, cycled bool, volume int32, duration float32, cond conditional.Object) *MusicTrack {
	if volume <= 0 {
		volume = DefaultVolume
	}
	t := &MusicTrack{
		Node:     registry.NewNode(types.ObjMusicTrack, name),
		Object:   cond,
		File:     file,
		Cycled:   cycled,
		Volume:   volume,
		Duration: duration,
	}
	t.Flags = flags
	return t
}

func (t *MusicTrack) IsPlaying() bool   { return t.playing }
func (t *MusicTrack) Finished() bool    { return t.finished }
func (t *MusicTrack) Position() float32 { return t.position }

// MarkPlaying rewinds the track and marks it as playing.
func (t *MusicTrack) MarkPlaying() {
	t.playing = true
	t.finished = false
	t.position = 0
}

// Advance moves the playback position. Non-cycled tracks with a known
// duration finish when it is reached; cycled tracks wrap.
func (t *MusicTrack) Advance(dt float32) {
	if !t.playing {
		return
	}
	t.position += dt
	if t.Duration <= 0 || t.position < t.Duration {
		return
	}
	if t.Cycled {
		t.position = float32(math.Mod(float64(t.position), float64(t.Duration)))
		if t.position >= t.Duration {
			t.position = 0
		}
		return
	}
	t.MarkFinished()
}

// MarkFinished stops the track and records that it played to the end.
func (t *MusicTrack) MarkFinished() {
	t.playing = false
	t.finished = true
}

// MarkStopped stops the track without finishing it.
func (t *MusicTrack) MarkStopped() {
	t.playing = false
}

func (t *MusicTrack) Reset() {
	t.Object.Reset()
	t.playing = false
	t.finished = false
	t.position = 0
}

func (t *MusicTrack) SaveData(w *stream.Writer) {
	w.Bool(t.playing)
	w.Bool(t.finished)
	w.Float32(t.position)
	t.Object.SaveData(w)
}

func (t *MusicTrack) LoadData(r *stream.Reader, version int) error {
	playing := r.Bool()
	finished := r.Bool()
	position := r.Float32()
	if err := r.Err(); err != nil {
		return err
	}
	if err := t.Object.LoadData(r, version); err != nil {
		return err
	}
	t.playing, t.finished, t.position = playing, finished, position
	return nil
}
