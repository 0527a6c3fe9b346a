// Package types defines the shared enumerations and script definition
// structures for the questlogic runtime.
// This package contains only type definitions and their names, no logic.
package types

// Save format versions. Every save blob carries the version it was written
// with; loaders branch on it.
const (
	// MinSaveVersion is the oldest layout the runtime can still read.
	MinSaveVersion = 100
	// SaveVersion is the layout written by this build.
	SaveVersion = 108

	// VersionAdditionalCells introduced inventory cell set additional cells.
	VersionAdditionalCells = 102
	// VersionElementPayloads introduced trigger element payload references.
	VersionElementPayloads = 104
	// VersionRNGPosition introduced the RNG seed/position in the world header.
	VersionRNGPosition = 106
	// VersionGuardState introduced link guard runtime state in chains.
	VersionGuardState = 108
)

// ObjectType tags every named entity. Values are persisted, so the order
// must never change.
type ObjectType int32

const (
	ObjGeneric ObjectType = iota
	ObjScaleInfo
	ObjTriggerChain
	ObjSound
	ObjAnimation
	ObjAnimationInfo
	ObjCoordsAnimation
	ObjState
	ObjStatic
	ObjAnimated
	ObjMoving
	ObjMouse
	ObjScene
	ObjLocation
	ObjDispatcher
	ObjAnimationSet
	ObjGridZone
	ObjVideo
	ObjInventory
	ObjMinigame
	ObjMusicTrack
	ObjGridZoneState
	ObjSoundInfo
	ObjAnimationSetInfo
	ObjGameEnd
	ObjCounter
	ObjFontInfo

	ObjMaxType
)

var objectTypeNames = [...]string{
	"generic",
	"scale_info",
	"trigger_chain",
	"sound",
	"animation",
	"animation_info",
	"coords_animation",
	"obj_state",
	"static_obj",
	"animated_obj",
	"moving_obj",
	"mouse_obj",
	"scene",
	"location",
	"dispatcher",
	"animation_set",
	"grid_zone",
	"video",
	"inventory",
	"minigame",
	"music_track",
	"grid_zone_state",
	"sound_info",
	"animation_set_info",
	"game_end",
	"counter",
	"font_info",
}

func (t ObjectType) String() string {
	if t < 0 || t >= ObjMaxType {
		return "???"
	}
	return objectTypeNames[t]
}

// ParseObjectType maps a lowercase type name back to its tag.
func ParseObjectType(s string) (ObjectType, bool) {
	for i, name := range objectTypeNames {
		if name == s {
			return ObjectType(i), true
		}
	}
	return 0, false
}

// Entity flag bits shared by all named entities.
const (
	FlagHidden      uint32 = 0x01
	FlagInTrigger   uint32 = 0x02
	FlagInInventory uint32 = 0x04
	FlagStateChange uint32 = 0x08
	FlagGlobal      uint32 = 0x10
)

// ConditionsMode selects how a list of truth values is folded.
type ConditionsMode int32

const (
	ModeAnd ConditionsMode = iota
	ModeOr
)

func (m ConditionsMode) String() string {
	if m == ModeOr {
		return "or"
	}
	return "and"
}

// ConditionKind is the closed set of predicates the evaluator understands.
type ConditionKind int32

const (
	CondNone ConditionKind = iota
	CondObjectInState
	CondCounterEqual
	CondCounterGreater
	CondCounterLess
	CondCounterInRange
	CondTimer
	CondSceneActive
	CondMusicPlaying
	CondObjectFlag
	CondZoneOn

	CondMaxKind
)

var conditionKindNames = [...]string{
	"none",
	"object_in_state",
	"counter_equal",
	"counter_greater",
	"counter_less",
	"counter_in_range",
	"timer",
	"scene_active",
	"music_playing",
	"object_flag",
	"zone_on",
}

func (k ConditionKind) String() string {
	if k < 0 || k >= CondMaxKind {
		return "???"
	}
	return conditionKindNames[k]
}

// ParseConditionKind maps a script name to a condition kind.
func ParseConditionKind(s string) (ConditionKind, bool) {
	for i, name := range conditionKindNames {
		if i > 0 && name == s {
			return ConditionKind(i), true
		}
	}
	return CondNone, false
}

// DataType is the element type of a condition operand buffer.
type DataType int32

const (
	DataInt DataType = iota
	DataFloat
	DataString
)

// ElementStatus is the state of a trigger element.
type ElementStatus int32

const (
	ElementInactive ElementStatus = iota
	ElementWaiting
	ElementWorking
	ElementDone
)

func (s ElementStatus) String() string {
	switch s {
	case ElementInactive:
		return "inactive"
	case ElementWaiting:
		return "waiting"
	case ElementWorking:
		return "working"
	case ElementDone:
		return "done"
	}
	return "???"
}

// LinkStatus is the state of a trigger link.
type LinkStatus int32

const (
	LinkInactive LinkStatus = iota
	LinkActive
	LinkDone
)

func (s LinkStatus) String() string {
	switch s {
	case LinkInactive:
		return "inactive"
	case LinkActive:
		return "active"
	case LinkDone:
		return "done"
	}
	return "???"
}

// StartMode is the result of asking a payload to start.
type StartMode int32

const (
	StartFailed StartMode = iota
	StartActivate
	StartWait
)

func (m StartMode) String() string {
	switch m {
	case StartActivate:
		return "activate"
	case StartWait:
		return "wait"
	}
	return "failed"
}

// ConditionDef is a condition as written in a script.
type ConditionDef struct {
	Kind    ConditionKind
	Inverse bool
	Ints    []int32
	Floats  []float32
	Strings []string
	Objects []string // reference paths, "type:name/type:name"
}

// GroupDef is a condition group: indices into the owning condition list.
type GroupDef struct {
	Mode    ConditionsMode
	Members []int
}

// ConditionsDef is the condition block shared by every conditional entity.
type ConditionsDef struct {
	Mode       ConditionsMode
	Conditions []ConditionDef
	Groups     []GroupDef
}

// StateDef is a game object state.
type StateDef struct {
	Name       string
	Flags      uint32
	Duration   float32
	Inventory  string // inventory name the object moves into on start
	Conditions ConditionsDef
}

// GameObjectDef is a scene object with states.
type GameObjectDef struct {
	Name   string
	Type   ObjectType // ObjStatic, ObjAnimated or ObjMoving
	Flags  uint32
	Pos    [3]float32
	States []StateDef
	Start  string // initial state name
}

// ZoneDef is a grid zone that can be switched on and off.
type ZoneDef struct {
	Name       string
	Flags      uint32
	State      bool // initial state
	Target     bool // state set when triggered
	Conditions ConditionsDef
}

// MusicTrackDef is a music track.
type MusicTrackDef struct {
	Name       string
	Flags      uint32
	File       string
	Cycled     bool
	Volume     int32
	Duration   float32
	Conditions ConditionsDef
}

// CounterDef is a named integer counter.
type CounterDef struct {
	Name       string
	Flags      uint32
	Value      int32
	Step       int32
	Limit      int32
	Conditions ConditionsDef
}

// GameEndDef ends the game when triggered.
type GameEndDef struct {
	Name       string
	Flags      uint32
	Screen     string
	Conditions ConditionsDef
}

// CellSetDef is a rectangular block of inventory cells.
type CellSetDef struct {
	Size       [2]int32
	Additional [2]int32
	CellType   int32
}

// InventoryDef is an inventory with its cell sets.
type InventoryDef struct {
	Name     string
	Flags    uint32
	CellSets []CellSetDef
}

// SceneDef is a scene and everything it owns.
type SceneDef struct {
	Name       string
	Flags      uint32
	Objects    []GameObjectDef
	Zones      []ZoneDef
	Music      []MusicTrackDef
	Conditions ConditionsDef
}

// ElementDef is a trigger chain node.
type ElementDef struct {
	ID     int32
	Object string // payload reference path; empty for the root
	OrJoin bool
}

// LinkDef is a directed trigger chain edge.
type LinkDef struct {
	From  int32
	To    int32
	Type  int32
	Guard ConditionsDef
}

// ChainDef is a trigger chain.
type ChainDef struct {
	Name       string
	Flags      uint32
	ResetScene string // scene name whose entry resets the chain
	Elements   []ElementDef
	Links      []LinkDef
}

// GameDef holds game metadata.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   string // starting scene name
}

// Defs holds every definition loaded from scripts, in declaration order.
type Defs struct {
	Game        GameDef
	Scenes      []SceneDef
	Music       []MusicTrackDef // global tracks
	Counters    []CounterDef
	GameEnds    []GameEndDef
	Inventories []InventoryDef
	Chains      []ChainDef
}

// Event is emitted for every trigger status transition.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a console command.
type Result struct {
	Events []Event
	Output []string
}
