// Package loader loads Lua scripts into definition structs. The Lua VM is
// discarded after loading; nothing of it survives into the runtime.
package loader

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questlogic/types"
)

// rawEntity holds a named table before compilation.
type rawEntity struct {
	name  string
	table *lua.LTable
}

// flagNames are the script names of entity flag bits.
var flagNames = []struct {
	name string
	bit  uint32
}{
	{"hidden", types.FlagHidden},
	{"in_trigger", types.FlagInTrigger},
	{"in_inventory", types.FlagInInventory},
	{"state_change", types.FlagStateChange},
	{"global", types.FlagGlobal},
}

var objectTypes = map[string]types.ObjectType{
	"static":   types.ObjStatic,
	"animated": types.ObjAnimated,
	"moving":   types.ObjMoving,
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or the default if
// missing.
func getNumber(tbl *lua.LTable, key string, def float64) float64 {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func getInt32(tbl *lua.LTable, key string, def int32) int32 {
	return int32(getNumber(tbl, key, float64(def)))
}

func getFloat32(tbl *lua.LTable, key string) float32 {
	return float32(getNumber(tbl, key, 0))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// tables returns the array part of tbl that holds tables.
func tables(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.Len(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

func numbers(tbl *lua.LTable) []float64 {
	if tbl == nil {
		return nil
	}
	var out []float64
	for i := 1; i <= tbl.Len(); i++ {
		if n, ok := tbl.RawGetInt(i).(lua.LNumber); ok {
			out = append(out, float64(n))
		}
	}
	return out
}

func strs(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.Len(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// compiler carries the warnings of one compile run.
type compiler struct {
	ve *ValidationError
}

func (c *compiler) warnf(format string, args ...any) {
	c.ve.Warnings = append(c.ve.Warnings, fmt.Sprintf(format, args...))
}

// compile converts the collected Lua tables into typed definitions.
func compile(coll *collector, ve *ValidationError) (*types.Defs, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game definition found")
	}
	c := &compiler{ve: ve}
	defs := &types.Defs{
		Game: types.GameDef{
			Title:   getString(coll.game, "title"),
			Author:  getString(coll.game, "author"),
			Version: getString(coll.game, "version"),
			Start:   getString(coll.game, "start"),
		},
	}

	owned := make(map[*lua.LTable]bool)
	for _, raw := range coll.scenes {
		defs.Scenes = append(defs.Scenes, c.scene(raw, owned))
	}
	for _, raw := range coll.music {
		if !owned[raw.table] {
			defs.Music = append(defs.Music, c.music(raw.name, raw.table))
		}
	}
	for _, raw := range coll.counters {
		defs.Counters = append(defs.Counters, types.CounterDef{
			Name:       raw.name,
			Flags:      c.flags(raw.table, raw.name),
			Value:      getInt32(raw.table, "value", 0),
			Step:       getInt32(raw.table, "step", 0),
			Limit:      getInt32(raw.table, "limit", 0),
			Conditions: c.conditions(getTable(raw.table, "conditions"), raw.name),
		})
	}
	for _, raw := range coll.gameEnds {
		defs.GameEnds = append(defs.GameEnds, types.GameEndDef{
			Name:       raw.name,
			Flags:      c.flags(raw.table, raw.name),
			Screen:     getString(raw.table, "screen"),
			Conditions: c.conditions(getTable(raw.table, "conditions"), raw.name),
		})
	}
	for _, raw := range coll.inventories {
		inv := types.InventoryDef{Name: raw.name, Flags: c.flags(raw.table, raw.name)}
		for _, cs := range tables(getTable(raw.table, "cells")) {
			inv.CellSets = append(inv.CellSets, types.CellSetDef{
				Size:       pair(getTable(cs, "size")),
				Additional: pair(getTable(cs, "additional")),
				CellType:   getInt32(cs, "type", 0),
			})
		}
		defs.Inventories = append(defs.Inventories, inv)
	}
	for _, raw := range coll.chains {
		defs.Chains = append(defs.Chains, c.chain(raw))
	}
	return defs, nil
}

func pair(tbl *lua.LTable) [2]int32 {
	var out [2]int32
	for i, n := range numbers(tbl) {
		if i < 2 {
			out[i] = int32(n)
		}
	}
	return out
}

// flags reads a list of flag names, or a plain number.
func (c *compiler) flags(tbl *lua.LTable, owner string) uint32 {
	switch v := tbl.RawGetString("flags").(type) {
	case lua.LNumber:
		return uint32(v)
	case *lua.LTable:
		var bits uint32
		for _, name := range strs(v) {
			found := false
			for _, f := range flagNames {
				if f.name == name {
					bits |= f.bit
					found = true
				}
			}
			if !found {
				c.warnf("%s: unknown flag %q", owner, name)
			}
		}
		return bits
	}
	return 0
}

func (c *compiler) scene(raw rawEntity, owned map[*lua.LTable]bool) types.SceneDef {
	tbl := raw.table
	sd := types.SceneDef{
		Name:       raw.name,
		Flags:      c.flags(tbl, raw.name),
		Conditions: c.conditions(getTable(tbl, "conditions"), raw.name),
	}
	for _, ot := range tables(getTable(tbl, "objects")) {
		sd.Objects = append(sd.Objects, c.object(raw.name, ot))
	}
	for _, zt := range tables(getTable(tbl, "zones")) {
		name := getString(zt, "name")
		owner := raw.name + "/" + name
		sd.Zones = append(sd.Zones, types.ZoneDef{
			Name:       name,
			Flags:      c.flags(zt, owner),
			State:      getBool(zt, "on", false),
			Target:     getBool(zt, "target", true),
			Conditions: c.conditions(getTable(zt, "conditions"), owner),
		})
	}
	for _, mt := range tables(getTable(tbl, "music")) {
		owned[mt] = true
		sd.Music = append(sd.Music, c.music(raw.name+"/"+getString(mt, "name"), mt))
	}
	return sd
}

func (c *compiler) object(scene string, tbl *lua.LTable) types.GameObjectDef {
	name := getString(tbl, "name")
	owner := scene + "/" + name
	od := types.GameObjectDef{
		Name:  name,
		Type:  types.ObjAnimated,
		Flags: c.flags(tbl, owner),
		Start: getString(tbl, "start"),
	}
	if s := getString(tbl, "type"); s != "" {
		t, ok := objectTypes[s]
		if !ok {
			c.warnf("%s: unknown object type %q, using animated", owner, s)
		} else {
			od.Type = t
		}
	}
	for i, n := range numbers(getTable(tbl, "pos")) {
		if i < 3 {
			od.Pos[i] = float32(n)
		}
	}
	for _, st := range tables(getTable(tbl, "states")) {
		sn := getString(st, "name")
		od.States = append(od.States, types.StateDef{
			Name:       sn,
			Flags:      c.flags(st, owner+"/"+sn),
			Duration:   getFloat32(st, "duration"),
			Inventory:  getString(st, "inventory"),
			Conditions: c.conditions(getTable(st, "conditions"), owner+"/"+sn),
		})
	}
	return od
}

// music compiles a track. Only the name field is taken from the table, so
// the same table serves scene-owned and global tracks.
func (c *compiler) music(owner string, tbl *lua.LTable) types.MusicTrackDef {
	return types.MusicTrackDef{
		Name:       getString(tbl, "name"),
		Flags:      c.flags(tbl, owner),
		File:       getString(tbl, "file"),
		Cycled:     getBool(tbl, "cycled", false),
		Volume:     getInt32(tbl, "volume", 255),
		Duration:   getFloat32(tbl, "duration"),
		Conditions: c.conditions(getTable(tbl, "conditions"), owner),
	}
}

func (c *compiler) chain(raw rawEntity) types.ChainDef {
	tbl := raw.table
	cd := types.ChainDef{
		Name:       raw.name,
		Flags:      c.flags(tbl, raw.name),
		ResetScene: getString(tbl, "reset_scene"),
	}
	for _, et := range tables(getTable(tbl, "elements")) {
		cd.Elements = append(cd.Elements, types.ElementDef{
			ID:     getInt32(et, "id", 0),
			Object: getString(et, "object"),
			OrJoin: getString(et, "join") == "or",
		})
	}
	for _, lt := range tables(getTable(tbl, "links")) {
		from, to := getInt32(lt, "from", 0), getInt32(lt, "to", 0)
		cd.Links = append(cd.Links, types.LinkDef{
			From:  from,
			To:    to,
			Type:  getInt32(lt, "type", 0),
			Guard: c.conditions(getTable(lt, "guard"), fmt.Sprintf("%s link %d->%d", raw.name, from, to)),
		})
	}
	return cd
}

func parseMode(s string) types.ConditionsMode {
	if s == "or" {
		return types.ModeOr
	}
	return types.ModeAnd
}

// conditions compiles a conditions block: the array part holds the
// conditions, mode and groups are named fields. Unknown kinds are kept as
// CondNone so group positions stay stable; the runtime drops them.
func (c *compiler) conditions(tbl *lua.LTable, owner string) types.ConditionsDef {
	var cd types.ConditionsDef
	if tbl == nil {
		return cd
	}
	cd.Mode = parseMode(getString(tbl, "mode"))
	for i, ct := range tables(tbl) {
		def := types.ConditionDef{Inverse: getBool(ct, "inverse", false)}
		name := getString(ct, "kind")
		kind, ok := types.ParseConditionKind(name)
		if !ok {
			c.warnf("%s: condition %d has unknown kind %q", owner, i+1, name)
		}
		def.Kind = kind
		for _, n := range numbers(getTable(ct, "ints")) {
			def.Ints = append(def.Ints, int32(n))
		}
		for _, n := range numbers(getTable(ct, "floats")) {
			def.Floats = append(def.Floats, float32(n))
		}
		def.Strings = strs(getTable(ct, "strings"))
		def.Objects = strs(getTable(ct, "objects"))
		cd.Conditions = append(cd.Conditions, def)
	}
	for _, gt := range tables(getTable(tbl, "groups")) {
		g := types.GroupDef{Mode: parseMode(getString(gt, "mode"))}
		for _, m := range numbers(getTable(gt, "members")) {
			g.Members = append(g.Members, int(m)-1)
		}
		cd.Groups = append(cd.Groups, g)
	}
	return cd
}
