package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/transform"

	"github.com/nathoo/questlogic/types"
)

// Dump writes defs as a single Lua script that Load reads back into equal
// definitions. With WithEncoding the output is encoded through it.
func Dump(w io.Writer, defs *types.Defs, opts ...Option) error {
	o := buildOptions(opts)
	var tw io.WriteCloser
	if o.enc != nil {
		tw = transform.NewWriter(w, o.enc.NewEncoder())
		w = tw
	}
	bw := bufio.NewWriter(w)
	d := &dumper{w: bw}
	d.defs(defs)
	if d.err != nil {
		return d.err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("dumping scripts: %w", err)
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("dumping scripts: %w", err)
		}
	}
	return nil
}

type dumper struct {
	w      *bufio.Writer
	indent int
	err    error
}

func (d *dumper) line(format string, args ...any) {
	if d.err != nil {
		return
	}
	s := strings.Repeat("\t", d.indent) + fmt.Sprintf(format, args...) + "\n"
	_, d.err = d.w.WriteString(s)
}

// open writes a line ending in "{" and indents.
func (d *dumper) open(format string, args ...any) {
	d.line(format, args...)
	d.indent++
}

func (d *dumper) close(trailer string) {
	d.indent--
	d.line("}%s", trailer)
}

func (d *dumper) defs(defs *types.Defs) {
	g := defs.Game
	d.open("Game {")
	d.line("title = %s,", quote(g.Title))
	if g.Author != "" {
		d.line("author = %s,", quote(g.Author))
	}
	if g.Version != "" {
		d.line("version = %s,", quote(g.Version))
	}
	if g.Start != "" {
		d.line("start = %s,", quote(g.Start))
	}
	d.close("")

	for _, m := range defs.Music {
		d.line("")
		d.music(m, "")
	}
	for _, s := range defs.Scenes {
		d.line("")
		d.scene(s)
	}
	for _, c := range defs.Counters {
		d.line("")
		d.open("Counter %s {", quote(c.Name))
		d.flags(c.Flags)
		d.line("value = %d,", c.Value)
		d.line("step = %d,", c.Step)
		d.line("limit = %d,", c.Limit)
		d.conditions("conditions", c.Conditions)
		d.close("")
	}
	for _, g := range defs.GameEnds {
		d.line("")
		d.open("GameEnd %s {", quote(g.Name))
		d.flags(g.Flags)
		if g.Screen != "" {
			d.line("screen = %s,", quote(g.Screen))
		}
		d.conditions("conditions", g.Conditions)
		d.close("")
	}
	for _, inv := range defs.Inventories {
		d.line("")
		d.open("Inventory %s {", quote(inv.Name))
		d.flags(inv.Flags)
		if len(inv.CellSets) > 0 {
			d.open("cells = {")
			for _, cs := range inv.CellSets {
				d.line("CellSet { size = { %d, %d }, additional = { %d, %d }, type = %d },",
					cs.Size[0], cs.Size[1], cs.Additional[0], cs.Additional[1], cs.CellType)
			}
			d.close(",")
		}
		d.close("")
	}
	for _, c := range defs.Chains {
		d.line("")
		d.chain(c)
	}
}

func (d *dumper) scene(s types.SceneDef) {
	d.open("Scene %s {", quote(s.Name))
	d.flags(s.Flags)
	d.conditions("conditions", s.Conditions)
	if len(s.Objects) > 0 {
		d.open("objects = {")
		for _, o := range s.Objects {
			d.object(o)
		}
		d.close(",")
	}
	if len(s.Zones) > 0 {
		d.open("zones = {")
		for _, z := range s.Zones {
			d.open("Zone %s {", quote(z.Name))
			d.flags(z.Flags)
			d.line("on = %t,", z.State)
			d.line("target = %t,", z.Target)
			d.conditions("conditions", z.Conditions)
			d.close(",")
		}
		d.close(",")
	}
	if len(s.Music) > 0 {
		d.open("music = {")
		for _, m := range s.Music {
			d.music(m, ",")
		}
		d.close(",")
	}
	d.close("")
}

func (d *dumper) object(o types.GameObjectDef) {
	d.open("Object %s {", quote(o.Name))
	d.line("type = %s,", quote(objectTypeName(o.Type)))
	d.flags(o.Flags)
	d.line("pos = { %s, %s, %s },", num(o.Pos[0]), num(o.Pos[1]), num(o.Pos[2]))
	if o.Start != "" {
		d.line("start = %s,", quote(o.Start))
	}
	if len(o.States) > 0 {
		d.open("states = {")
		for _, st := range o.States {
			d.open("State %s {", quote(st.Name))
			d.flags(st.Flags)
			if st.Duration != 0 {
				d.line("duration = %s,", num(st.Duration))
			}
			if st.Inventory != "" {
				d.line("inventory = %s,", quote(st.Inventory))
			}
			d.conditions("conditions", st.Conditions)
			d.close(",")
		}
		d.close(",")
	}
	d.close(",")
}

func (d *dumper) music(m types.MusicTrackDef, trailer string) {
	d.open("MusicTrack %s {", quote(m.Name))
	d.flags(m.Flags)
	if m.File != "" {
		d.line("file = %s,", quote(m.File))
	}
	d.line("cycled = %t,", m.Cycled)
	d.line("volume = %d,", m.Volume)
	if m.Duration != 0 {
		d.line("duration = %s,", num(m.Duration))
	}
	d.conditions("conditions", m.Conditions)
	d.close(trailer)
}

func (d *dumper) chain(c types.ChainDef) {
	d.open("TriggerChain %s {", quote(c.Name))
	d.flags(c.Flags)
	if c.ResetScene != "" {
		d.line("reset_scene = %s,", quote(c.ResetScene))
	}
	if len(c.Elements) > 0 {
		d.open("elements = {")
		for _, el := range c.Elements {
			switch {
			case el.OrJoin:
				d.line("Element(%d, %s, { join = \"or\" }),", el.ID, quote(el.Object))
			case el.Object != "":
				d.line("Element(%d, %s),", el.ID, quote(el.Object))
			default:
				d.line("Element(%d),", el.ID)
			}
		}
		d.close(",")
	}
	if len(c.Links) > 0 {
		d.open("links = {")
		for _, l := range c.Links {
			if l.Type == 0 && len(l.Guard.Conditions) == 0 && len(l.Guard.Groups) == 0 {
				d.line("Link(%d, %d),", l.From, l.To)
				continue
			}
			d.open("Link(%d, %d, {", l.From, l.To)
			if l.Type != 0 {
				d.line("type = %d,", l.Type)
			}
			d.conditions("guard", l.Guard)
			d.close("),")
		}
		d.close(",")
	}
	d.close("")
}

func (d *dumper) flags(bits uint32) {
	if bits == 0 {
		return
	}
	var names []string
	rest := bits
	for _, f := range flagNames {
		if bits&f.bit != 0 {
			names = append(names, quote(f.name))
			rest &^= f.bit
		}
	}
	if rest != 0 {
		// bits without a name only survive as a number
		d.line("flags = %d,", bits)
		return
	}
	d.line("flags = { %s },", strings.Join(names, ", "))
}

// conditions writes the block in the raw Condition form so that malformed
// entries survive the round trip.
func (d *dumper) conditions(key string, cd types.ConditionsDef) {
	if len(cd.Conditions) == 0 && len(cd.Groups) == 0 && cd.Mode == types.ModeAnd {
		return
	}
	d.open("%s = {", key)
	if cd.Mode == types.ModeOr {
		d.line("mode = \"or\",")
	}
	for _, c := range cd.Conditions {
		fields := []string{"kind = " + quote(c.Kind.String())}
		if c.Inverse {
			fields = append(fields, "inverse = true")
		}
		if len(c.Ints) > 0 {
			var parts []string
			for _, v := range c.Ints {
				parts = append(parts, strconv.FormatInt(int64(v), 10))
			}
			fields = append(fields, "ints = { "+strings.Join(parts, ", ")+" }")
		}
		if len(c.Floats) > 0 {
			var parts []string
			for _, v := range c.Floats {
				parts = append(parts, num(v))
			}
			fields = append(fields, "floats = { "+strings.Join(parts, ", ")+" }")
		}
		if len(c.Strings) > 0 {
			fields = append(fields, "strings = { "+quoteAll(c.Strings)+" }")
		}
		if len(c.Objects) > 0 {
			fields = append(fields, "objects = { "+quoteAll(c.Objects)+" }")
		}
		d.line("Condition { %s },", strings.Join(fields, ", "))
	}
	if len(cd.Groups) > 0 {
		d.open("groups = {")
		for _, g := range cd.Groups {
			args := []string{quote(g.Mode.String())}
			for _, m := range g.Members {
				args = append(args, strconv.Itoa(m+1))
			}
			d.line("Group(%s),", strings.Join(args, ", "))
		}
		d.close(",")
	}
	d.close(",")
}

func objectTypeName(t types.ObjectType) string {
	for name, ot := range objectTypes {
		if ot == t {
			return name
		}
	}
	return "animated"
}

// num formats a float32 with the fewest digits that read back exactly.
func num(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func quoteAll(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = quote(s)
	}
	return strings.Join(parts, ", ")
}

// quote renders s as a Lua 5.1 string literal. Bytes from 0x80 up pass
// through untouched so the encoder sees whole characters.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, "\\%03d", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
