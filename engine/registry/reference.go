package registry

import (
	"fmt"
	"strings"

	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Segment is one (type, name) level of a reference path.
type Segment struct {
	Type types.ObjectType
	Name string
}

// Reference is the path from the registry root down to an entity. It holds
// no pointers and survives save/load unchanged.
type Reference []Segment

// ReferenceOf builds the path of e by walking its owners up to the
// dispatcher. Unnamed levels contribute a segment with an empty name, which
// makes the reference unresolvable but keeps its depth.
func ReferenceOf(e Named) Reference {
	if e == nil {
		return nil
	}
	var ref Reference
	for n := e.Base(); n != nil && n.Type != types.ObjDispatcher; n = n.owner {
		ref = append(ref, Segment{Type: n.Type, Name: n.Name})
	}
	for i, j := 0, len(ref)-1; i < j; i, j = i+1, j-1 {
		ref[i], ref[j] = ref[j], ref[i]
	}
	return ref
}

// Empty reports whether the reference has no levels.
func (r Reference) Empty() bool { return len(r) == 0 }

// Complete reports whether every level carries a name.
func (r Reference) Complete() bool {
	for _, s := range r {
		if s.Name == "" {
			return false
		}
	}
	return len(r) > 0
}

// Equal compares two references level by level.
func (r Reference) Equal(o Reference) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}

// Leaf returns the last segment.
func (r Reference) Leaf() Segment {
	if len(r) == 0 {
		return Segment{}
	}
	return r[len(r)-1]
}

// String renders the reference as "type:name/type:name".
func (r Reference) String() string {
	parts := make([]string, len(r))
	for i, s := range r {
		parts[i] = s.Type.String() + ":" + s.Name
	}
	return strings.Join(parts, "/")
}

// ParseReference parses the form produced by String. An empty string is an
// empty reference.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var ref Reference
	for _, part := range strings.Split(s, "/") {
		typ, name, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("reference %q: segment %q has no type", s, part)
		}
		t, ok := types.ParseObjectType(typ)
		if !ok {
			return nil, fmt.Errorf("reference %q: unknown object type %q", s, typ)
		}
		ref = append(ref, Segment{Type: t, Name: name})
	}
	return ref, nil
}

// SaveData writes the level count, then per level the type and the
// length-prefixed name.
func (r Reference) SaveData(w *stream.Writer) {
	w.Int32(int32(len(r)))
	for _, s := range r {
		w.Int32(int32(s.Type))
		w.Str(s.Name)
	}
}

// maxLevels bounds the level count accepted from a save blob.
const maxLevels = 64

// LoadReference reads a reference written by SaveData.
func LoadReference(rd *stream.Reader) (Reference, error) {
	n := rd.Int32()
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if n < 0 || n > maxLevels {
		return nil, fmt.Errorf("reference: invalid level count %d", n)
	}
	ref := make(Reference, 0, n)
	for i := int32(0); i < n; i++ {
		t := types.ObjectType(rd.Int32())
		name := rd.Str()
		if err := rd.Err(); err != nil {
			return nil, fmt.Errorf("reference level %d: %w", i, err)
		}
		ref = append(ref, Segment{Type: t, Name: name})
	}
	return ref, nil
}

// Link is a reference that is resolved on first use and cached. Loading a
// Link never touches the registry, so forward references are fine.
type Link struct {
	Ref    Reference
	cached Named
}

// NewLink returns a link pointing at e.
func NewLink(e Named) Link {
	return Link{Ref: ReferenceOf(e), cached: e}
}

// LinkTo returns an unresolved link for ref.
func LinkTo(ref Reference) Link {
	return Link{Ref: ref}
}

// Get resolves the link. A cached entity that has since been unregistered
// or moved to another path is dropped and the path is resolved again.
func (l *Link) Get(reg *Registry) (Named, bool) {
	if l.cached != nil && l.cached.Base().Attached() && ReferenceOf(l.cached).Equal(l.Ref) {
		return l.cached, true
	}
	l.cached = nil
	if reg == nil || l.Ref.Empty() {
		return nil, false
	}
	e, ok := reg.Resolve(l.Ref)
	if ok {
		l.cached = e
	}
	return e, ok
}

// Resolved reports whether the link currently holds a cached entity.
func (l *Link) Resolved() bool { return l.cached != nil }

// Set points the link at a new reference and drops the cache.
func (l *Link) Set(ref Reference) {
	l.Ref = ref
	l.cached = nil
}
