package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/questlogic/types"
)

func validDefs() *types.Defs {
	return &types.Defs{
		Game: types.GameDef{Title: "Test", Start: "hall"},
		Scenes: []types.SceneDef{{
			Name: "hall",
			Objects: []types.GameObjectDef{{
				Name:   "door",
				Type:   types.ObjAnimated,
				Start:  "closed",
				States: []types.StateDef{{Name: "closed"}, {Name: "open"}},
			}},
		}},
		Counters: []types.CounterDef{{Name: "coins", Step: 1}},
		Chains: []types.ChainDef{{
			Name: "main",
			Elements: []types.ElementDef{
				{ID: 0},
				{ID: 1, Object: "counter:coins"},
				{ID: 2, Object: "scene:hall/animated_obj:door/obj_state:open"},
			},
			Links: []types.LinkDef{
				{From: 0, To: 1},
				{From: 1, To: 2, Guard: types.ConditionsDef{Conditions: []types.ConditionDef{
					{Kind: types.CondCounterGreater, Ints: []int32{2}, Objects: []string{"counter:coins"}},
				}}},
			},
		}},
	}
}

func TestValidate_ValidDefs(t *testing.T) {
	ve := Validate(validDefs())
	if len(ve.Errors) > 0 || len(ve.Warnings) > 0 {
		t.Errorf("errors %v, warnings %v", ve.Errors, ve.Warnings)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *types.Defs)
		want   string
	}{
		{"empty title", func(d *types.Defs) { d.Game.Title = "" }, "title is required"},
		{"no scenes", func(d *types.Defs) { d.Scenes = nil; d.Game.Start = "" }, "at least one Scene"},
		{"unknown start", func(d *types.Defs) { d.Game.Start = "attic" }, `unknown scene "attic"`},
		{"duplicate counter", func(d *types.Defs) {
			d.Counters = append(d.Counters, types.CounterDef{Name: "coins"})
		}, "duplicate entity counter:coins"},
		{"unknown start state", func(d *types.Defs) { d.Scenes[0].Objects[0].Start = "ajar" }, `unknown state "ajar"`},
		{"duplicate element", func(d *types.Defs) {
			d.Chains[0].Elements = append(d.Chains[0].Elements, types.ElementDef{ID: 1})
		}, "duplicate element id 1"},
		{"no root", func(d *types.Defs) {
			d.Chains[0].Elements = d.Chains[0].Elements[1:]
			d.Chains[0].Links = d.Chains[0].Links[1:]
		}, "no root element"},
		{"unknown link target", func(d *types.Defs) {
			d.Chains[0].Links = append(d.Chains[0].Links, types.LinkDef{From: 2, To: 9})
		}, "references an unknown element"},
		{"unparsable element ref", func(d *types.Defs) { d.Chains[0].Elements[1].Object = "coins" }, "has no type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := validDefs()
			tt.mutate(defs)
			ve := Validate(defs)
			assertContains(t, ve.Errors, tt.want)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *types.Defs)
		want   string
	}{
		{"cycle", func(d *types.Defs) {
			d.Chains[0].Links = append(d.Chains[0].Links, types.LinkDef{From: 2, To: 1})
		}, "cycle through element"},
		{"missing operand", func(d *types.Defs) {
			d.Counters[0].Conditions.Conditions = []types.ConditionDef{
				{Kind: types.CondCounterEqual, Objects: []string{"counter:coins"}},
			}
		}, "missing int operand"},
		{"bad condition ref", func(d *types.Defs) {
			d.Counters[0].Conditions.Conditions = []types.ConditionDef{
				{Kind: types.CondSceneActive, Objects: []string{"hall"}},
			}
		}, "condition 1 dropped"},
		{"group out of range", func(d *types.Defs) {
			d.Chains[0].Links[1].Guard.Groups = []types.GroupDef{{Members: []int{0, 4}}}
		}, "group 1 member 5 out of range"},
		{"unknown condition target", func(d *types.Defs) {
			d.Counters[0].Conditions.Conditions = []types.ConditionDef{
				{Kind: types.CondSceneActive, Objects: []string{"scene:attic"}},
			}
		}, "unknown entity scene:attic"},
		{"unknown element target", func(d *types.Defs) { d.Chains[0].Elements[1].Object = "counter:gold" }, "unknown entity counter:gold"},
		{"unknown reset scene", func(d *types.Defs) { d.Chains[0].ResetScene = "attic" }, `reset scene "attic"`},
		{"unknown inventory", func(d *types.Defs) { d.Scenes[0].Objects[0].States[1].Inventory = "bag" }, `unknown inventory "bag"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := validDefs()
			tt.mutate(defs)
			ve := Validate(defs)
			if len(ve.Errors) > 0 {
				t.Errorf("unexpected errors: %v", ve.Errors)
			}
			assertContains(t, ve.Warnings, tt.want)
		})
	}
}

func TestFindCycle(t *testing.T) {
	elements := []types.ElementDef{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}}
	tests := []struct {
		name     string
		children map[int32][]int32
		cyclic   bool
	}{
		{"line", map[int32][]int32{0: {1}, 1: {2}, 2: {3}}, false},
		{"diamond", map[int32][]int32{0: {1, 2}, 1: {3}, 2: {3}}, false},
		{"self loop", map[int32][]int32{0: {1}, 1: {1}}, true},
		{"back edge", map[int32][]int32{0: {1}, 1: {2}, 2: {3}, 3: {1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := findCycle(elements, tt.children); got != tt.cyclic {
				t.Errorf("cyclic = %t, want %t", got, tt.cyclic)
			}
		})
	}
}

// assertContains checks that at least one string in the slice contains substr.
func assertContains(t *testing.T, strs []string, substr string) {
	t.Helper()
	for _, s := range strs {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected one of %v to contain %q", strs, substr)
}
