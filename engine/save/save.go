// Package save implements the binary save blob for a whole world.
//
// Layout: magic "QLSV", int32 version, 16-byte session id, uint64 xxhash64
// of the body, uint32 body length, then the body. The body carries the game
// title, elapsed time, tick count, RNG seed and position (version 106+), the
// active scene reference, and every persistent entity in registration order
// as a (reference, data block) pair.
package save

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/objects"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/state"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Magic opens every save blob.
const Magic = "QLSV"

const headerSize = 4 + 4 + 16 + 8 + 4

var (
	// ErrIncompatibleSave is returned for blobs this build cannot read.
	ErrIncompatibleSave = errors.New("incompatible save")
	// ErrChecksum is returned when the body does not match its checksum.
	ErrChecksum = errors.New("save: checksum mismatch")
)

// Meta is the engine state that lives outside the registry.
type Meta struct {
	Session uuid.UUID
	Version int
	Elapsed float64
	Ticks   int64
	RNGSeed int64
	RNGPos  int64
	Scene   *objects.Scene
}

// Save encodes w and meta with the current layout version.
func Save(w *state.World, meta Meta) ([]byte, error) {
	body := stream.NewWriter()
	body.Str(w.Defs.Game.Title)
	body.Float64(meta.Elapsed)
	body.Int64(meta.Ticks)
	body.Int64(meta.RNGSeed)
	body.Int64(meta.RNGPos)
	if meta.Scene != nil {
		registry.ReferenceOf(meta.Scene).SaveData(body)
	} else {
		registry.Reference(nil).SaveData(body)
	}

	for _, p := range w.Persistent {
		registry.ReferenceOf(p).SaveData(body)
		block := stream.NewWriter()
		p.SaveData(block)
		if err := block.Err(); err != nil {
			return nil, fmt.Errorf("save %s: %w", p.Base().Path(), err)
		}
		body.Block(block.Data())
	}
	if err := body.Err(); err != nil {
		return nil, err
	}

	sid, err := meta.Session.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := stream.NewWriter()
	out.Raw([]byte(Magic))
	out.Int32(types.SaveVersion)
	out.Raw(sid)
	out.Uint64(xxhash.Sum64(body.Data()))
	out.Uint32(uint32(body.Len()))
	out.Raw(body.Data())
	return out.Data(), out.Err()
}

type entry struct {
	target objects.Persistent
	block  []byte
}

// Load validates data and applies it onto w. Entities whose reference no
// longer resolves are skipped with a warning. Nothing is applied unless
// the whole blob parses; an entity that rejects its block aborts the load
// and leaves w partially restored, so callers should re-initialize on error.
func Load(data []byte, w *state.World, log *zap.Logger) (Meta, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var meta Meta

	if len(data) < headerSize || !bytes.Equal(data[:4], []byte(Magic)) {
		return meta, fmt.Errorf("%w: not a save blob", ErrIncompatibleSave)
	}
	hdr := stream.NewReader(data[4:headerSize])
	meta.Version = int(hdr.Int32())
	if err := stream.CheckVersion(meta.Version); err != nil {
		return meta, fmt.Errorf("%w: %w", ErrIncompatibleSave, err)
	}
	if err := meta.Session.UnmarshalBinary(hdr.Raw(16)); err != nil {
		return meta, fmt.Errorf("%w: session id: %v", ErrIncompatibleSave, err)
	}
	sum := hdr.Uint64()
	n := hdr.Uint32()
	if err := hdr.Err(); err != nil {
		return meta, err
	}
	body := data[headerSize:]
	if int(n) != len(body) {
		return meta, fmt.Errorf("%w: body is %d bytes, header says %d", ErrIncompatibleSave, len(body), n)
	}
	if xxhash.Sum64(body) != sum {
		return meta, ErrChecksum
	}

	r := stream.NewReader(body)
	if title := r.Str(); r.Err() == nil && title != w.Defs.Game.Title {
		return meta, fmt.Errorf("%w: saved by %q, running %q", ErrIncompatibleSave, title, w.Defs.Game.Title)
	}
	meta.Elapsed = r.Float64()
	meta.Ticks = r.Int64()
	if meta.Version >= types.VersionRNGPosition {
		meta.RNGSeed = r.Int64()
		meta.RNGPos = r.Int64()
	}
	sceneRef, err := registry.LoadReference(r)
	if err != nil {
		return meta, fmt.Errorf("active scene: %w", err)
	}

	var entries []entry
	for r.Remaining() > 0 {
		ref, err := registry.LoadReference(r)
		if err != nil {
			return meta, err
		}
		block := r.Block()
		if err := r.Err(); err != nil {
			return meta, fmt.Errorf("%s: %w", ref, err)
		}
		e, ok := w.Registry.Resolve(ref)
		if !ok {
			log.Warn("saved entity no longer exists", zap.Stringer("ref", ref))
			continue
		}
		p, ok := e.(objects.Persistent)
		if !ok {
			log.Warn("saved entity is not persistent", zap.Stringer("ref", ref))
			continue
		}
		entries = append(entries, entry{target: p, block: block})
	}
	if err := r.Err(); err != nil {
		return meta, err
	}

	if !sceneRef.Empty() {
		if e, ok := w.Registry.Resolve(sceneRef); ok {
			meta.Scene, _ = e.(*objects.Scene)
		} else {
			log.Warn("saved scene no longer exists", zap.Stringer("ref", sceneRef))
		}
	}

	for _, e := range entries {
		if err := e.target.LoadData(stream.NewReader(e.block), meta.Version); err != nil {
			return meta, fmt.Errorf("load %s: %w", e.target.Base().Path(), err)
		}
	}
	log.Info("save loaded",
		zap.Int("version", meta.Version),
		zap.Int("entities", len(entries)),
		zap.String("session", meta.Session.String()))
	return meta, nil
}
