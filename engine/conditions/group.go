package conditions

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

var (
	// ErrConditionInGroup is returned when removing a condition that a
	// group still references.
	ErrConditionInGroup = errors.New("conditions: condition is referenced by a group")
	// ErrIndexOutOfRange is returned for condition or group indices that do
	// not exist.
	ErrIndexOutOfRange = errors.New("conditions: index out of range")
)

// Group is an ordered set of condition indices folded with one mode.
type Group struct {
	Mode    types.ConditionsMode
	Members []int
}

// Contains reports whether idx is a member.
func (g Group) Contains(idx int) bool {
	for _, m := range g.Members {
		if m == idx {
			return true
		}
	}
	return false
}

// EvaluateGroup folds the member conditions with the group's mode, in
// member order. AND over no members is true, OR over no members is false.
// Members that index outside conds are skipped.
func EvaluateGroup(g Group, conds []*Condition, reg *registry.Registry) bool {
	switch g.Mode {
	case types.ModeOr:
		for _, idx := range g.Members {
			if idx < 0 || idx >= len(conds) {
				continue
			}
			if Evaluate(conds[idx], reg) {
				return true
			}
		}
		return false
	default:
		for _, idx := range g.Members {
			if idx < 0 || idx >= len(conds) {
				continue
			}
			if !Evaluate(conds[idx], reg) {
				return false
			}
		}
		return true
	}
}

// Set is a condition list with groups and a top-level mode.
type Set struct {
	Mode       types.ConditionsMode
	Conditions []*Condition
	Groups     []Group
}

// Len returns the number of conditions.
func (s *Set) Len() int { return len(s.Conditions) }

// Empty reports whether the set has no conditions.
func (s *Set) Empty() bool { return len(s.Conditions) == 0 }

// Check computes the aggregate truth value. An empty set is true. Without
// groups the top-level mode folds the flat list; with groups, each group is
// folded by its own mode and then the group results plus the ungrouped
// conditions are folded by the top-level mode.
func (s *Set) Check(reg *registry.Registry) bool {
	if len(s.Conditions) == 0 {
		return true
	}
	if len(s.Groups) == 0 {
		all := make([]int, len(s.Conditions))
		for i := range all {
			all[i] = i
		}
		return EvaluateGroup(Group{Mode: s.Mode, Members: all}, s.Conditions, reg)
	}

	or := s.Mode == types.ModeOr
	for _, g := range s.Groups {
		if EvaluateGroup(g, s.Conditions, reg) == or {
			return or
		}
	}
	for i, c := range s.Conditions {
		if s.InGroup(i) {
			continue
		}
		if Evaluate(c, reg) == or {
			return or
		}
	}
	return !or
}

// InGroup reports whether any group references condition idx.
func (s *Set) InGroup(idx int) bool {
	for _, g := range s.Groups {
		if g.Contains(idx) {
			return true
		}
	}
	return false
}

// Add appends a condition and returns its index.
func (s *Set) Add(c *Condition) int {
	s.Conditions = append(s.Conditions, c)
	return len(s.Conditions) - 1
}

// Update replaces condition idx.
func (s *Set) Update(idx int, c *Condition) error {
	if idx < 0 || idx >= len(s.Conditions) {
		return fmt.Errorf("%w: condition %d", ErrIndexOutOfRange, idx)
	}
	s.Conditions[idx] = c
	return nil
}

// Remove deletes condition idx. It refuses while a group references the
// condition; group members above idx are shifted down.
func (s *Set) Remove(idx int) error {
	if idx < 0 || idx >= len(s.Conditions) {
		return fmt.Errorf("%w: condition %d", ErrIndexOutOfRange, idx)
	}
	if s.InGroup(idx) {
		return fmt.Errorf("%w: condition %d", ErrConditionInGroup, idx)
	}
	s.Conditions = append(s.Conditions[:idx], s.Conditions[idx+1:]...)
	for gi := range s.Groups {
		for mi, m := range s.Groups[gi].Members {
			if m > idx {
				s.Groups[gi].Members[mi] = m - 1
			}
		}
	}
	return nil
}

func (s *Set) checkGroup(g Group) error {
	if len(g.Members) == 0 {
		return fmt.Errorf("%w: empty group", ErrIndexOutOfRange)
	}
	for _, m := range g.Members {
		if m < 0 || m >= len(s.Conditions) {
			return fmt.Errorf("%w: group member %d", ErrIndexOutOfRange, m)
		}
	}
	return nil
}

// AddGroup appends a group whose members must all exist.
func (s *Set) AddGroup(g Group) (int, error) {
	if err := s.checkGroup(g); err != nil {
		return -1, err
	}
	s.Groups = append(s.Groups, g)
	return len(s.Groups) - 1, nil
}

// UpdateGroup replaces group idx.
func (s *Set) UpdateGroup(idx int, g Group) error {
	if idx < 0 || idx >= len(s.Groups) {
		return fmt.Errorf("%w: group %d", ErrIndexOutOfRange, idx)
	}
	if err := s.checkGroup(g); err != nil {
		return err
	}
	s.Groups[idx] = g
	return nil
}

// RemoveGroup deletes group idx.
func (s *Set) RemoveGroup(idx int) error {
	if idx < 0 || idx >= len(s.Groups) {
		return fmt.Errorf("%w: group %d", ErrIndexOutOfRange, idx)
	}
	s.Groups = append(s.Groups[:idx], s.Groups[idx+1:]...)
	return nil
}

// Quant advances every condition's runtime state.
func (s *Set) Quant(dt float32, rng Roller) {
	for _, c := range s.Conditions {
		c.Quant(dt, rng)
	}
}

// Reset clears every condition's runtime state.
func (s *Set) Reset() {
	for _, c := range s.Conditions {
		c.Reset()
	}
}

// SaveData writes the condition count and each condition's runtime state.
func (s *Set) SaveData(w *stream.Writer) {
	w.Int32(int32(len(s.Conditions)))
	for _, c := range s.Conditions {
		c.SaveData(w)
	}
}

// LoadData reads what SaveData wrote. The condition count must match.
func (s *Set) LoadData(r *stream.Reader) error {
	n := r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n) != len(s.Conditions) {
		return fmt.Errorf("conditions: saved %d conditions, script has %d", n, len(s.Conditions))
	}
	for i, c := range s.Conditions {
		if err := c.LoadData(r); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

// Build compiles a script condition block. Malformed conditions and
// out-of-range group members are skipped and logged.
func Build(def types.ConditionsDef, owner string, log *zap.Logger) *Set {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Set{Mode: def.Mode}

	remap := make(map[int]int, len(def.Conditions))
	for i, cd := range def.Conditions {
		c, err := FromDef(cd)
		if err != nil {
			log.Warn("skipping malformed condition",
				zap.String("owner", owner), zap.Int("index", i), zap.Error(err))
			continue
		}
		remap[i] = s.Add(c)
	}

	for gi, gd := range def.Groups {
		g := Group{Mode: gd.Mode}
		for _, m := range gd.Members {
			idx, ok := remap[m]
			if !ok {
				log.Warn("dropping condition group member",
					zap.String("owner", owner), zap.Int("group", gi), zap.Int("member", m))
				continue
			}
			g.Members = append(g.Members, idx)
		}
		if len(g.Members) == 0 {
			log.Warn("dropping empty condition group", zap.String("owner", owner), zap.Int("group", gi))
			continue
		}
		s.Groups = append(s.Groups, g)
	}
	return s
}

// Def converts the set back to its script definition.
func (s *Set) Def() types.ConditionsDef {
	def := types.ConditionsDef{Mode: s.Mode}
	for _, c := range s.Conditions {
		def.Conditions = append(def.Conditions, c.Def())
	}
	for _, g := range s.Groups {
		def.Groups = append(def.Groups, types.GroupDef{Mode: g.Mode, Members: append([]int(nil), g.Members...)})
	}
	return def
}
