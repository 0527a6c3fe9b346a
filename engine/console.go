package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/questlogic/engine/objects"
	"github.com/nathoo/questlogic/engine/parser"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/trigger"
	"github.com/nathoo/questlogic/types"
)

// maxTicks bounds a single "tick n" command.
const maxTicks = 100000

var helpText = []string{
	"tick [n]              advance n ticks (default 1)",
	"status                scene, time, chains and counters",
	"chain <name>          element and link statuses of a chain",
	"set <counter> <int>   set a counter value",
	"state <object> <st>   switch a game object to a state",
	"scene <name>          switch to a scene",
	"reset <chain>         reset a chain",
	"ref <ref>             resolve a reference path",
	"inventory             list inventory contents",
	"profile on|off|show [n]|evolve <n>",
	"help                  this text",
}

// Exec runs one console command and returns its output together with the
// events it caused.
func (e *Engine) Exec(input string) types.Result {
	var result types.Result
	cmd := parser.Parse(input)

	switch cmd.Verb {
	case "":
		result.Output = append(result.Output, "Type help for a list of commands.")
	case "tick":
		result.Output = e.cmdTick(cmd)
	case "status":
		result.Output = e.cmdStatus()
	case "chain":
		result.Output = e.cmdChain(cmd)
	case "set":
		result.Output = e.cmdSet(cmd)
	case "state":
		result.Output = e.cmdState(cmd)
	case "scene":
		result.Output = e.cmdScene(cmd)
	case "reset":
		result.Output = e.cmdReset(cmd)
	case "ref":
		result.Output = e.cmdRef(cmd)
	case "inventory":
		result.Output = e.cmdInventory()
	case "profile":
		result.Output = e.cmdProfile(cmd)
	case "help":
		result.Output = append(result.Output, helpText...)
	default:
		result.Output = append(result.Output, fmt.Sprintf("Unknown command %q. Type help for a list of commands.", cmd.Verb))
	}

	result.Events = e.Events()
	return result
}

func (e *Engine) cmdTick(cmd parser.Command) []string {
	if e.over != nil {
		return []string{fmt.Sprintf("Game over (%s). Load a save or quit.", e.over.Name)}
	}
	n := 1
	if arg := cmd.Arg(0); arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 || v > maxTicks {
			return []string{fmt.Sprintf("Tick count must be between 1 and %d.", maxTicks)}
		}
		n = v
	}
	for i := 0; i < n && e.over == nil; i++ {
		e.Quant(e.tick)
	}
	out := []string{fmt.Sprintf("Tick %d, %.2fs.", e.ticks, e.elapsed)}
	if e.over != nil {
		out = append(out, fmt.Sprintf("Game over: %s.", e.over.Name))
	}
	return out
}

func (e *Engine) cmdStatus() []string {
	scene := "(none)"
	if e.scene != nil {
		scene = e.scene.Name
	}
	out := []string{fmt.Sprintf("Scene %s, tick %d, %.2fs.", scene, e.ticks, e.elapsed)}
	for _, c := range e.World.Chains {
		out = append(out, "  "+ChainSummary(c))
	}

	var counters []string
	for _, h := range e.World.Conditionals {
		if c, ok := h.(*objects.Counter); ok {
			counters = append(counters, fmt.Sprintf("%s=%d", c.Name, c.Value()))
		}
	}
	if len(counters) > 0 {
		out = append(out, "Counters: "+strings.Join(counters, ", ")+".")
	}
	return out
}

// ChainSummary renders "name: n waiting, n working, n done".
func ChainSummary(c *trigger.Chain) string {
	counts := c.Counts()
	return fmt.Sprintf("%s: %d waiting, %d working, %d done",
		c.Name, counts[types.ElementWaiting], counts[types.ElementWorking], counts[types.ElementDone])
}

func (e *Engine) cmdChain(cmd parser.Command) []string {
	c := e.World.Chain(cmd.Arg(0))
	if c == nil {
		return []string{fmt.Sprintf("No chain named %q.", cmd.Arg(0))}
	}
	return ChainLines(c, e.World.Registry)
}

// ChainLines describes every element and link of c.
func ChainLines(c *trigger.Chain, reg *registry.Registry) []string {
	out := []string{ChainSummary(c)}
	for _, el := range c.Elements {
		out = append(out, fmt.Sprintf("  #%d %-8s %s", el.ID, el.Status(), ElementLabel(el, reg)))
	}
	for _, l := range c.Links {
		out = append(out, fmt.Sprintf("  #%d -> #%d %s", l.From.ID, l.To.ID, l.Status()))
	}
	return out
}

// ElementLabel names the payload of el.
func ElementLabel(el *trigger.Element, reg *registry.Registry) string {
	if el.Passthrough() {
		if el.ID == trigger.RootID {
			return "start"
		}
		return "(pass)"
	}
	if p, ok := el.Payload.Get(reg); ok {
		return p.Base().Path()
	}
	return el.Payload.Ref.String() + " (unresolved)"
}

// lookup resolves arg as a reference path, or as a bare name of type t at
// the top level.
func (e *Engine) lookup(arg string, t types.ObjectType) (registry.Named, bool) {
	if strings.Contains(arg, ":") {
		return e.World.Registry.Lookup(arg)
	}
	return e.World.Registry.Resolve(registry.Reference{{Type: t, Name: arg}})
}

func (e *Engine) cmdSet(cmd parser.Command) []string {
	if len(cmd.Args) < 2 {
		return []string{"Usage: set <counter> <int>"}
	}
	ent, ok := e.lookup(cmd.Arg(0), types.ObjCounter)
	c, isCounter := ent.(*objects.Counter)
	if !ok || !isCounter {
		return []string{fmt.Sprintf("No counter %q.", cmd.Arg(0))}
	}
	v, err := strconv.ParseInt(cmd.Arg(1), 10, 32)
	if err != nil {
		return []string{fmt.Sprintf("Not a number: %q.", cmd.Arg(1))}
	}
	c.SetValue(int32(v))
	return []string{fmt.Sprintf("%s = %d.", c.Name, c.Value())}
}

func (e *Engine) cmdState(cmd parser.Command) []string {
	if len(cmd.Args) < 2 {
		return []string{"Usage: state <object> <state>"}
	}
	var obj *objects.GameObject
	if ent, ok := e.lookup(cmd.Arg(0), types.ObjAnimated); ok {
		obj, _ = ent.(*objects.GameObject)
	}
	if obj == nil {
		for _, o := range e.World.Objects {
			if o.Name == cmd.Arg(0) {
				obj = o
				break
			}
		}
	}
	if obj == nil {
		return []string{fmt.Sprintf("No object %q.", cmd.Arg(0))}
	}
	s := obj.StateByName(cmd.Arg(1))
	if s == nil {
		var names []string
		for _, st := range obj.States() {
			names = append(names, st.Name)
		}
		return []string{fmt.Sprintf("%s has no state %q. States: %s.", obj.Name, cmd.Arg(1), strings.Join(names, ", "))}
	}
	obj.SetState(s)
	return []string{fmt.Sprintf("%s is now %s.", obj.Name, s.Name)}
}

func (e *Engine) cmdScene(cmd parser.Command) []string {
	s := e.World.Scene(cmd.Arg(0))
	if s == nil {
		return []string{fmt.Sprintf("No scene %q.", cmd.Arg(0))}
	}
	e.switchScene(s)
	return []string{fmt.Sprintf("Scene %s (visit %d).", s.Name, s.Visits())}
}

func (e *Engine) cmdReset(cmd parser.Command) []string {
	c := e.World.Chain(cmd.Arg(0))
	if c == nil {
		return []string{fmt.Sprintf("No chain named %q.", cmd.Arg(0))}
	}
	c.Reset(e.World.Registry)
	return []string{fmt.Sprintf("Chain %s reset.", c.Name)}
}

func (e *Engine) cmdRef(cmd parser.Command) []string {
	ref, err := registry.ParseReference(cmd.Arg(0))
	if err != nil {
		return []string{err.Error()}
	}
	ent, ok := e.World.Registry.Resolve(ref)
	if !ok {
		return []string{fmt.Sprintf("%s does not resolve.", ref)}
	}
	n := ent.Base()
	out := []string{fmt.Sprintf("%s %s flags=%#x", n.Type, n.Path(), n.Flags)}
	if c := objects.Conditionals(ent); c != nil {
		out = append(out, fmt.Sprintf("  conditions: %d, truth %s", c.Len(), c.Last()))
	}
	switch v := ent.(type) {
	case *objects.Counter:
		out = append(out, fmt.Sprintf("  value %d", v.Value()))
	case *objects.GameObject:
		out = append(out, fmt.Sprintf("  state %s for %.2fs", v.CurrentState(), v.StateTime()))
	case *objects.Scene:
		out = append(out, fmt.Sprintf("  active %t, visits %d", v.IsActive(), v.Visits()))
	case *objects.GridZone:
		out = append(out, fmt.Sprintf("  on %t", v.IsOn()))
	case *objects.MusicTrack:
		out = append(out, fmt.Sprintf("  playing %t, at %.2fs", v.IsPlaying(), v.Position()))
	}
	return out
}

func (e *Engine) cmdInventory() []string {
	if len(e.World.Inventories) == 0 {
		return []string{"No inventories."}
	}
	var out []string
	for _, inv := range e.World.Inventories {
		var names []string
		for _, obj := range inv.Objects(e.World.Registry) {
			names = append(names, obj.Name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			out = append(out, inv.Name+": empty.")
			continue
		}
		out = append(out, inv.Name+": "+strings.Join(names, ", ")+".")
	}
	return out
}

func (e *Engine) cmdProfile(cmd parser.Command) []string {
	p := e.Profiler
	switch cmd.Arg(0) {
	case "on":
		p.Enable(true)
		return []string{"Profiler on."}
	case "off":
		p.Enable(false)
		return []string{"Profiler off."}
	case "show", "":
		n := 20
		if v, err := strconv.Atoi(cmd.Arg(1)); err == nil && v > 0 {
			n = v
		}
		start := len(p.Records) - n
		if start < 0 {
			start = 0
		}
		out := []string{fmt.Sprintf("%d records, profiler %s.", len(p.Records), onOff(p.Enabled()))}
		for i := start; i < len(p.Records); i++ {
			out = append(out, fmt.Sprintf("%4d %s", i, p.Text(p.Records[i])))
		}
		return out
	case "evolve":
		n, err := strconv.Atoi(cmd.Arg(1))
		if err != nil {
			return []string{"Usage: profile evolve <record>"}
		}
		if err := p.Evolve(n); err != nil {
			return []string{err.Error()}
		}
		return []string{fmt.Sprintf("Chains replayed up to record %d.", n)}
	}
	return []string{"Usage: profile on|off|show [n]|evolve <n>"}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
