package loader

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questlogic/types"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

// compileSource runs src and compiles what it defined.
func compileSource(t *testing.T, src string) (*types.Defs, *ValidationError) {
	t.Helper()
	L, coll := newTestVM()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		t.Fatal(err)
	}
	ve := &ValidationError{}
	defs, err := compile(coll, ve)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return defs, ve
}

func TestCompileGame(t *testing.T) {
	defs, _ := compileSource(t, `
		Game {
			title = "Test Game",
			author = "Author",
			version = "1.0",
			start = "hall",
		}
	`)
	want := types.GameDef{Title: "Test Game", Author: "Author", Version: "1.0", Start: "hall"}
	if defs.Game != want {
		t.Errorf("Game = %+v, want %+v", defs.Game, want)
	}
}

func TestCompile_NoGame(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()
	if err := L.DoString(`Scene "hall" {}`); err != nil {
		t.Fatal(err)
	}
	if _, err := compile(coll, &ValidationError{}); err == nil {
		t.Fatal("expected error without Game")
	}
}

func TestCompileConditionHelpers(t *testing.T) {
	tests := []struct {
		expr string
		want types.ConditionDef
	}{
		{`InState("scene:hall/animated_obj:door", "open")`, types.ConditionDef{
			Kind: types.CondObjectInState, Strings: []string{"open"}, Objects: []string{"scene:hall/animated_obj:door"}}},
		{`CounterEq("coins", 3)`, types.ConditionDef{
			Kind: types.CondCounterEqual, Ints: []int32{3}, Objects: []string{"counter:coins"}}},
		{`CounterGt("counter:coins", -1)`, types.ConditionDef{
			Kind: types.CondCounterGreater, Ints: []int32{-1}, Objects: []string{"counter:coins"}}},
		{`CounterLt("coins", 9)`, types.ConditionDef{
			Kind: types.CondCounterLess, Ints: []int32{9}, Objects: []string{"counter:coins"}}},
		{`CounterIn("coins", 2, 5)`, types.ConditionDef{
			Kind: types.CondCounterInRange, Ints: []int32{2, 5}, Objects: []string{"counter:coins"}}},
		{`Timer(1.5)`, types.ConditionDef{
			Kind: types.CondTimer, Ints: []int32{100}, Floats: []float32{1.5}}},
		{`Timer(0.25, 30)`, types.ConditionDef{
			Kind: types.CondTimer, Ints: []int32{30}, Floats: []float32{0.25}}},
		{`SceneActive("hall")`, types.ConditionDef{
			Kind: types.CondSceneActive, Objects: []string{"scene:hall"}}},
		{`Playing("theme")`, types.ConditionDef{
			Kind: types.CondMusicPlaying, Objects: []string{"music_track:theme"}}},
		{`Playing("scene:hall/music_track:birds")`, types.ConditionDef{
			Kind: types.CondMusicPlaying, Objects: []string{"scene:hall/music_track:birds"}}},
		{`FlagSet("scene:hall", 16)`, types.ConditionDef{
			Kind: types.CondObjectFlag, Ints: []int32{16}, Objects: []string{"scene:hall"}}},
		{`ZoneOn("scene:hall/grid_zone:rug")`, types.ConditionDef{
			Kind: types.CondZoneOn, Objects: []string{"scene:hall/grid_zone:rug"}}},
		{`Not(SceneActive("hall"))`, types.ConditionDef{
			Kind: types.CondSceneActive, Inverse: true, Objects: []string{"scene:hall"}}},
		{`Not(Not(SceneActive("hall")))`, types.ConditionDef{
			Kind: types.CondSceneActive, Objects: []string{"scene:hall"}}},
		{`Condition { kind = "counter_equal", inverse = true, ints = { 4 }, objects = { "counter:x" } }`, types.ConditionDef{
			Kind: types.CondCounterEqual, Inverse: true, Ints: []int32{4}, Objects: []string{"counter:x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			defs, ve := compileSource(t, `
				Game { title = "t" }
				Counter "probe" { conditions = { `+tt.expr+` } }
			`)
			if len(ve.Warnings) > 0 {
				t.Errorf("warnings: %v", ve.Warnings)
			}
			got := defs.Counters[0].Conditions.Conditions
			if len(got) != 1 {
				t.Fatalf("got %d conditions, want 1", len(got))
			}
			if !reflect.DeepEqual(got[0], tt.want) {
				t.Errorf("got %+v, want %+v", got[0], tt.want)
			}
		})
	}
}

func TestCompileConditions_ModeAndGroups(t *testing.T) {
	defs, _ := compileSource(t, `
		Game { title = "t" }
		GameEnd "win" {
			conditions = {
				mode = "or",
				CounterEq("a", 1),
				CounterEq("b", 1),
				CounterEq("c", 1),
				groups = { Group("and", 1, 2), Group("or", 3) },
			},
		}
	`)
	cd := defs.GameEnds[0].Conditions
	if cd.Mode != types.ModeOr {
		t.Errorf("Mode = %v, want or", cd.Mode)
	}
	want := []types.GroupDef{
		{Mode: types.ModeAnd, Members: []int{0, 1}},
		{Mode: types.ModeOr, Members: []int{2}},
	}
	if !reflect.DeepEqual(cd.Groups, want) {
		t.Errorf("Groups = %+v, want %+v", cd.Groups, want)
	}
}

func TestCompileConditions_UnknownKindKeepsPosition(t *testing.T) {
	defs, ve := compileSource(t, `
		Game { title = "t" }
		Counter "c" {
			conditions = {
				Condition { kind = "moon_phase" },
				CounterEq("c", 1),
				groups = { Group("and", 2) },
			},
		}
	`)
	conds := defs.Counters[0].Conditions.Conditions
	if len(conds) != 2 || conds[0].Kind != types.CondNone || conds[1].Kind != types.CondCounterEqual {
		t.Fatalf("conditions = %+v", conds)
	}
	assertContains(t, ve.Warnings, `unknown kind "moon_phase"`)
}

func TestCompileScene(t *testing.T) {
	defs, ve := compileSource(t, `
		Game { title = "t" }
		Scene "hall" {
			flags = { "hidden", "global" },
			objects = {
				Object "door" {
					pos = { 1, 2.5, 3 },
					start = "closed",
					states = {
						State "closed" {},
						State "open" { duration = 0.5, inventory = "bag", flags = { "state_change" } },
					},
				},
				Object "rug" { type = "static" },
			},
			zones = {
				Zone "hole" {},
				Zone "trap" { on = true, target = false },
			},
			music = {
				MusicTrack "birds" { file = "birds.ogg", cycled = true },
			},
		}
	`)
	if len(ve.Warnings) > 0 {
		t.Errorf("warnings: %v", ve.Warnings)
	}
	s := defs.Scenes[0]
	if s.Flags != types.FlagHidden|types.FlagGlobal {
		t.Errorf("Flags = %#x", s.Flags)
	}

	door := s.Objects[0]
	if door.Type != types.ObjAnimated {
		t.Errorf("door type = %v, want animated by default", door.Type)
	}
	if door.Pos != [3]float32{1, 2.5, 3} {
		t.Errorf("door pos = %v", door.Pos)
	}
	wantStates := []types.StateDef{
		{Name: "closed"},
		{Name: "open", Duration: 0.5, Inventory: "bag", Flags: types.FlagStateChange},
	}
	if !reflect.DeepEqual(door.States, wantStates) {
		t.Errorf("states = %+v, want %+v", door.States, wantStates)
	}
	if s.Objects[1].Type != types.ObjStatic {
		t.Errorf("rug type = %v, want static", s.Objects[1].Type)
	}

	wantZones := []types.ZoneDef{
		{Name: "hole", State: false, Target: true},
		{Name: "trap", State: true, Target: false},
	}
	if !reflect.DeepEqual(s.Zones, wantZones) {
		t.Errorf("zones = %+v, want %+v", s.Zones, wantZones)
	}

	if len(s.Music) != 1 || s.Music[0].Name != "birds" || s.Music[0].Volume != 255 || !s.Music[0].Cycled {
		t.Errorf("music = %+v", s.Music)
	}
	if len(defs.Music) != 0 {
		t.Errorf("scene track leaked into global music: %+v", defs.Music)
	}
}

func TestCompileGlobalMusic(t *testing.T) {
	defs, _ := compileSource(t, `
		Game { title = "t" }
		MusicTrack "theme" { volume = 90, duration = 30 }
		Scene "hall" { music = { MusicTrack "birds" {} } }
		MusicTrack "outro" {}
	`)
	var names []string
	for _, m := range defs.Music {
		names = append(names, m.Name)
	}
	if !reflect.DeepEqual(names, []string{"theme", "outro"}) {
		t.Errorf("global music = %v", names)
	}
	if defs.Music[0].Volume != 90 || defs.Music[0].Duration != 30 {
		t.Errorf("theme = %+v", defs.Music[0])
	}
}

func TestCompileChain(t *testing.T) {
	defs, _ := compileSource(t, `
		Game { title = "t" }
		TriggerChain "main" {
			reset_scene = "hall",
			elements = {
				Element(0),
				Element(1, "counter:coins"),
				Element(2, "scene:hall", { join = "or" }),
			},
			links = {
				Link(0, 1),
				Link(1, 2, { type = 3, guard = { CounterGt("coins", 1) } }),
			},
		}
	`)
	c := defs.Chains[0]
	if c.ResetScene != "hall" {
		t.Errorf("ResetScene = %q", c.ResetScene)
	}
	wantElements := []types.ElementDef{
		{ID: 0},
		{ID: 1, Object: "counter:coins"},
		{ID: 2, Object: "scene:hall", OrJoin: true},
	}
	if !reflect.DeepEqual(c.Elements, wantElements) {
		t.Errorf("elements = %+v, want %+v", c.Elements, wantElements)
	}
	if len(c.Links) != 2 {
		t.Fatalf("got %d links", len(c.Links))
	}
	if l := c.Links[0]; l.From != 0 || l.To != 1 || l.Type != 0 || len(l.Guard.Conditions) != 0 {
		t.Errorf("link 0 = %+v", l)
	}
	l := c.Links[1]
	if l.Type != 3 || len(l.Guard.Conditions) != 1 || l.Guard.Conditions[0].Kind != types.CondCounterGreater {
		t.Errorf("link 1 = %+v", l)
	}
}

func TestCompileCountersAndInventories(t *testing.T) {
	defs, _ := compileSource(t, `
		Game { title = "t" }
		Counter "coins" { value = 2, step = 5, limit = 20, flags = 16 }
		Inventory "bag" {
			cells = {
				CellSet { size = { 3, 2 }, additional = { 1, 0 }, type = 4 },
				CellSet { size = { 1, 1 } },
			},
		}
	`)
	want := types.CounterDef{Name: "coins", Value: 2, Step: 5, Limit: 20, Flags: types.FlagGlobal}
	if !reflect.DeepEqual(defs.Counters[0], want) {
		t.Errorf("counter = %+v, want %+v", defs.Counters[0], want)
	}
	wantCells := []types.CellSetDef{
		{Size: [2]int32{3, 2}, Additional: [2]int32{1, 0}, CellType: 4},
		{Size: [2]int32{1, 1}},
	}
	if !reflect.DeepEqual(defs.Inventories[0].CellSets, wantCells) {
		t.Errorf("cells = %+v, want %+v", defs.Inventories[0].CellSets, wantCells)
	}
}

func TestCompile_UnknownFlagAndType(t *testing.T) {
	_, ve := compileSource(t, `
		Game { title = "t" }
		Scene "hall" {
			flags = { "sparkly" },
			objects = { Object "ghost" { type = "ethereal" } },
		}
	`)
	assertContains(t, ve.Warnings, `unknown flag "sparkly"`)
	assertContains(t, ve.Warnings, `unknown object type "ethereal"`)
}
