package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/trigger"
	"github.com/nathoo/questlogic/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks defs for structural errors and reports suspicious but
// loadable data as warnings.
func Validate(defs *types.Defs) *ValidationError {
	ve := &ValidationError{}
	validate(defs, ve)
	return ve
}

func validate(defs *types.Defs, ve *ValidationError) {
	if defs.Game.Title == "" {
		ve.errorf("Game.title is required")
	}
	if len(defs.Scenes) == 0 {
		ve.errorf("at least one Scene is required")
	}

	known := index(defs, ve)
	if defs.Game.Start != "" && !known[sceneRef(defs.Game.Start)] {
		ve.errorf("Game.start references unknown scene %q", defs.Game.Start)
	}

	inventories := make(map[string]bool, len(defs.Inventories))
	for _, inv := range defs.Inventories {
		inventories[inv.Name] = true
	}

	check := func(owner string, cd types.ConditionsDef) {
		checkConditions(ve, known, owner, cd)
	}
	for _, s := range defs.Scenes {
		check("scene "+s.Name, s.Conditions)
		for _, o := range s.Objects {
			owner := s.Name + "/" + o.Name
			if len(o.States) == 0 {
				ve.warnf("object %s has no states", owner)
			}
			found := o.Start == ""
			for _, st := range o.States {
				if st.Name == o.Start {
					found = true
				}
				if st.Inventory != "" && !inventories[st.Inventory] {
					ve.warnf("state %s/%s moves into unknown inventory %q", owner, st.Name, st.Inventory)
				}
				check("state "+owner+"/"+st.Name, st.Conditions)
			}
			if !found {
				ve.errorf("object %s starts in unknown state %q", owner, o.Start)
			}
		}
		for _, z := range s.Zones {
			check("zone "+s.Name+"/"+z.Name, z.Conditions)
		}
		for _, m := range s.Music {
			check("music track "+s.Name+"/"+m.Name, m.Conditions)
		}
	}
	for _, m := range defs.Music {
		check("music track "+m.Name, m.Conditions)
	}
	for _, c := range defs.Counters {
		check("counter "+c.Name, c.Conditions)
	}
	for _, g := range defs.GameEnds {
		check("game end "+g.Name, g.Conditions)
	}
	for _, inv := range defs.Inventories {
		if len(inv.CellSets) == 0 {
			ve.warnf("inventory %s has no cell sets", inv.Name)
		}
	}
	for _, c := range defs.Chains {
		validateChain(ve, known, c)
	}
}

func sceneRef(name string) string { return types.ObjScene.String() + ":" + name }

func ref(parent string, t types.ObjectType, name string) string {
	s := t.String() + ":" + name
	if parent == "" {
		return s
	}
	return parent + "/" + s
}

// index returns the reference path of every defined entity and reports
// duplicate sibling names.
func index(defs *types.Defs, ve *ValidationError) map[string]bool {
	known := make(map[string]bool)
	add := func(path string) {
		if known[path] {
			ve.errorf("duplicate entity %s", path)
			return
		}
		known[path] = true
	}

	for _, s := range defs.Scenes {
		sp := sceneRef(s.Name)
		add(sp)
		for _, o := range s.Objects {
			op := ref(sp, o.Type, o.Name)
			add(op)
			for _, st := range o.States {
				add(ref(op, types.ObjState, st.Name))
			}
		}
		for _, z := range s.Zones {
			add(ref(sp, types.ObjGridZone, z.Name))
		}
		for _, m := range s.Music {
			add(ref(sp, types.ObjMusicTrack, m.Name))
		}
	}
	for _, m := range defs.Music {
		add(ref("", types.ObjMusicTrack, m.Name))
	}
	for _, c := range defs.Counters {
		add(ref("", types.ObjCounter, c.Name))
	}
	for _, g := range defs.GameEnds {
		add(ref("", types.ObjGameEnd, g.Name))
	}
	for _, inv := range defs.Inventories {
		add(ref("", types.ObjInventory, inv.Name))
	}
	for _, c := range defs.Chains {
		add(ref("", types.ObjTriggerChain, c.Name))
	}
	return known
}

// checkConditions warns about everything the runtime will drop: unknown
// kinds, layout violations, unparsable references and group members out
// of range. References that parse but name nothing are only suspicious,
// since links resolve lazily.
func checkConditions(ve *ValidationError, known map[string]bool, owner string, cd types.ConditionsDef) {
	valid := make([]bool, len(cd.Conditions))
	for i, def := range cd.Conditions {
		if def.Kind == types.CondNone {
			continue // reported by the compiler
		}
		if _, err := conditions.FromDef(def); err != nil {
			ve.warnf("%s: condition %d dropped: %v", owner, i+1, err)
			continue
		}
		valid[i] = true
		for _, path := range def.Objects {
			if r, err := registry.ParseReference(path); err == nil && !known[r.String()] {
				ve.warnf("%s: condition %d references unknown entity %s", owner, i+1, path)
			}
		}
	}
	for gi, g := range cd.Groups {
		for _, m := range g.Members {
			if m < 0 || m >= len(cd.Conditions) {
				ve.warnf("%s: group %d member %d out of range", owner, gi+1, m+1)
			} else if !valid[m] {
				ve.warnf("%s: group %d member %d is a dropped condition", owner, gi+1, m+1)
			}
		}
	}
}

func validateChain(ve *ValidationError, known map[string]bool, c types.ChainDef) {
	owner := "chain " + c.Name
	if c.ResetScene != "" && !known[sceneRef(c.ResetScene)] {
		ve.warnf("%s: reset scene %q not found", owner, c.ResetScene)
	}

	ids := make(map[int32]bool, len(c.Elements))
	for _, el := range c.Elements {
		if ids[el.ID] {
			ve.errorf("%s: duplicate element id %d", owner, el.ID)
		}
		ids[el.ID] = true
		r, err := registry.ParseReference(el.Object)
		switch {
		case err != nil:
			ve.errorf("%s: element %d: %v", owner, el.ID, err)
		case !r.Empty() && !known[r.String()]:
			ve.warnf("%s: element %d references unknown entity %s", owner, el.ID, el.Object)
		}
	}
	if !ids[trigger.RootID] {
		ve.errorf("%s: no root element %d", owner, trigger.RootID)
	}

	children := make(map[int32][]int32)
	for i, l := range c.Links {
		if !ids[l.From] || !ids[l.To] {
			ve.errorf("%s: link %d (%d -> %d) references an unknown element", owner, i+1, l.From, l.To)
			continue
		}
		children[l.From] = append(children[l.From], l.To)
		checkConditions(ve, known, fmt.Sprintf("%s link %d->%d", owner, l.From, l.To), l.Guard)
	}

	if id, ok := findCycle(c.Elements, children); ok {
		ve.warnf("%s: cycle through element %d", owner, id)
	}
}

// findCycle runs a depth-first search over the link graph and returns an
// element on the first cycle found.
func findCycle(elements []types.ElementDef, children map[int32][]int32) (int32, bool) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[int32]int, len(elements))
	var visit func(id int32) (int32, bool)
	visit = func(id int32) (int32, bool) {
		color[id] = grey
		for _, next := range children[id] {
			switch color[next] {
			case grey:
				return next, true
			case white:
				if at, ok := visit(next); ok {
					return at, true
				}
			}
		}
		color[id] = black
		return 0, false
	}
	for _, el := range elements {
		if color[el.ID] == white {
			if at, ok := visit(el.ID); ok {
				return at, true
			}
		}
	}
	return 0, false
}
