package loader

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
}

// topLevel registers a curried constructor, Name "id" { ... }, that
// records the table in dst.
func topLevel(L *lua.LState, name string, dst *[]rawEntity) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			*dst = append(*dst, rawEntity{name: id, table: tbl})
			return 0
		}))
		return 1
	}))
}

// nested registers a curried constructor that stores the id in the table's
// name field and returns the table for use inside a parent.
func nested(L *lua.LState, name string, record func(id string, tbl *lua.LTable)) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString("name", lua.LString(id))
			if record != nil {
				record(id, tbl)
			}
			L.Push(tbl)
			return 1
		}))
		return 1
	}))
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "scene" }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	topLevel(L, "Scene", &coll.scenes)
	topLevel(L, "Counter", &coll.counters)
	topLevel(L, "GameEnd", &coll.gameEnds)
	topLevel(L, "Inventory", &coll.inventories)
	topLevel(L, "TriggerChain", &coll.chains)

	nested(L, "Object", nil)
	nested(L, "State", nil)
	nested(L, "Zone", nil)
	// A track listed in a scene's music belongs to that scene; any other
	// track is global.
	nested(L, "MusicTrack", func(id string, tbl *lua.LTable) {
		coll.music = append(coll.music, rawEntity{name: id, table: tbl})
	})

	// CellSet { size = {w, h}, additional = {w, h}, type = n }
	L.SetGlobal("CellSet", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckTable(1))
		return 1
	}))

	// Element(id [, ref [, { join = "or" }]])
	L.SetGlobal("Element", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("id", L.CheckNumber(1))
		if ref, ok := L.Get(2).(lua.LString); ok {
			tbl.RawSetString("object", ref)
		}
		if opts, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("join", opts.RawGetString("join"))
		}
		L.Push(tbl)
		return 1
	}))

	// Link(from, to [, { type = n, guard = { ... } }])
	L.SetGlobal("Link", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("from", L.CheckNumber(1))
		tbl.RawSetString("to", L.CheckNumber(2))
		if opts, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("type", opts.RawGetString("type"))
			tbl.RawSetString("guard", opts.RawGetString("guard"))
		}
		L.Push(tbl)
		return 1
	}))

	// Group("or", 1, 3): members are 1-based positions in the enclosing
	// conditions list.
	L.SetGlobal("Group", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("mode", lua.LString(L.CheckString(1)))
		members := L.NewTable()
		for i := 2; i <= L.GetTop(); i++ {
			members.Append(L.CheckNumber(i))
		}
		tbl.RawSetString("members", members)
		L.Push(tbl)
		return 1
	}))
}

// qualify prefixes a bare name with typ, leaving full paths alone.
func qualify(typ, name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return typ + ":" + name
}

// condition builds the raw condition table.
func condition(L *lua.LState, kind string, objects []string, ints []lua.LNumber, floats []lua.LNumber, strs []string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("kind", lua.LString(kind))
	if len(objects) > 0 {
		t := L.NewTable()
		for _, o := range objects {
			t.Append(lua.LString(o))
		}
		tbl.RawSetString("objects", t)
	}
	if len(ints) > 0 {
		t := L.NewTable()
		for _, n := range ints {
			t.Append(n)
		}
		tbl.RawSetString("ints", t)
	}
	if len(floats) > 0 {
		t := L.NewTable()
		for _, n := range floats {
			t.Append(n)
		}
		tbl.RawSetString("floats", t)
	}
	if len(strs) > 0 {
		t := L.NewTable()
		for _, s := range strs {
			t.Append(lua.LString(s))
		}
		tbl.RawSetString("strings", t)
	}
	return tbl
}

func registerConditionHelpers(L *lua.LState) {
	fn := func(name string, f func(L *lua.LState) *lua.LTable) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(f(L))
			return 1
		}))
	}

	// InState("scene:hall/animated_obj:door", "open")
	fn("InState", func(L *lua.LState) *lua.LTable {
		return condition(L, "object_in_state", []string{L.CheckString(1)}, nil, nil, []string{L.CheckString(2)})
	})

	counter := func(kind string) func(L *lua.LState) *lua.LTable {
		return func(L *lua.LState) *lua.LTable {
			return condition(L, kind, []string{qualify("counter", L.CheckString(1))},
				[]lua.LNumber{L.CheckNumber(2)}, nil, nil)
		}
	}
	fn("CounterEq", counter("counter_equal"))
	fn("CounterGt", counter("counter_greater"))
	fn("CounterLt", counter("counter_less"))

	// CounterIn("coins", lo, hi), inclusive
	fn("CounterIn", func(L *lua.LState) *lua.LTable {
		return condition(L, "counter_in_range", []string{qualify("counter", L.CheckString(1))},
			[]lua.LNumber{L.CheckNumber(2), L.CheckNumber(3)}, nil, nil)
	})

	// Timer(period [, probability]): fires every period seconds with the
	// given chance in percent, 100 by default.
	fn("Timer", func(L *lua.LState) *lua.LTable {
		return condition(L, "timer", nil,
			[]lua.LNumber{L.OptNumber(2, 100)}, []lua.LNumber{L.CheckNumber(1)}, nil)
	})

	fn("SceneActive", func(L *lua.LState) *lua.LTable {
		return condition(L, "scene_active", []string{qualify("scene", L.CheckString(1))}, nil, nil, nil)
	})
	fn("Playing", func(L *lua.LState) *lua.LTable {
		return condition(L, "music_playing", []string{qualify("music_track", L.CheckString(1))}, nil, nil, nil)
	})

	// FlagSet(ref, bits)
	fn("FlagSet", func(L *lua.LState) *lua.LTable {
		return condition(L, "object_flag", []string{L.CheckString(1)},
			[]lua.LNumber{L.CheckNumber(2)}, nil, nil)
	})

	fn("ZoneOn", func(L *lua.LState) *lua.LTable {
		return condition(L, "zone_on", []string{L.CheckString(1)}, nil, nil, nil)
	})

	// Not(cond) flips the condition's inverse flag.
	fn("Not", func(L *lua.LState) *lua.LTable {
		tbl := L.CheckTable(1)
		tbl.RawSetString("inverse", lua.LBool(!lua.LVAsBool(tbl.RawGetString("inverse"))))
		return tbl
	})

	// Condition { kind = "...", inverse = bool, ints = {}, floats = {}, strings = {}, objects = {} }
	fn("Condition", func(L *lua.LState) *lua.LTable {
		return L.CheckTable(1)
	})
}
