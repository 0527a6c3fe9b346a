package profiler

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/trigger"
	"github.com/nathoo/questlogic/types"
)

type env struct{ reg *registry.Registry }

func (e env) Registry() *registry.Registry { return e.reg }
func (e env) Rand() conditions.Roller      { return nil }
func (e env) Done(registry.Named) bool     { return true }

type snapshot struct {
	elements []types.ElementStatus
	links    []types.LinkStatus
}

func snap(c *trigger.Chain) snapshot {
	var s snapshot
	for _, e := range c.Elements {
		s.elements = append(s.elements, e.Status())
	}
	for _, l := range c.Links {
		s.links = append(s.links, l.Status())
	}
	return s
}

func (s snapshot) equal(o snapshot) bool {
	if len(s.elements) != len(o.elements) || len(s.links) != len(o.links) {
		return false
	}
	for i := range s.elements {
		if s.elements[i] != o.elements[i] {
			return false
		}
	}
	for i := range s.links {
		if s.links[i] != o.links[i] {
			return false
		}
	}
	return true
}

func setup(t *testing.T) (*Profiler, *trigger.Chain, env, *float64) {
	t.Helper()
	reg := registry.New()
	c, err := trigger.New(types.ChainDef{
		Name:     "intro",
		Elements: []types.ElementDef{{ID: 0}, {ID: 1}, {ID: 2}},
		Links:    []types.LinkDef{{From: 0, To: 1}, {From: 1, To: 2}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(nil, c); err != nil {
		t.Fatal(err)
	}
	now := new(float64)
	p := New(nil)
	p.Attach([]*trigger.Chain{c}, reg, func() float64 { return *now })
	p.Enable(true)
	return p, c, env{reg}, now
}

func TestEvolve_ReproducesLiveStatuses(t *testing.T) {
	p, c, e, now := setup(t)

	var snaps []snapshot
	var marks []int
	for i := 0; i < 6; i++ {
		*now += 0.1
		c.Quant(0.1, e)
		snaps = append(snaps, snap(c))
		marks = append(marks, len(p.Records)-1)
	}
	if len(p.Records) == 0 {
		t.Fatal("no records")
	}

	for i, m := range marks {
		if m < 0 {
			continue
		}
		before := len(p.Records)
		if err := p.Evolve(m); err != nil {
			t.Fatalf("Evolve(%d): %v", m, err)
		}
		if len(p.Records) != before {
			t.Fatal("Evolve must not record")
		}
		if got := snap(c); !got.equal(snaps[i]) {
			t.Errorf("after tick %d: evolve = %+v, live = %+v", i+1, got, snaps[i])
		}
	}

	if err := p.Evolve(len(p.Records)); err == nil {
		t.Error("expected out of range error")
	}
}

func TestSaveLoad(t *testing.T) {
	p, c, e, now := setup(t)
	for i := 0; i < 4; i++ {
		*now += 0.5
		c.Quant(0.5, e)
	}

	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4+recordSize*len(p.Records) {
		t.Errorf("work file size = %d", buf.Len())
	}

	q := New(nil)
	if err := q.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(q.Records) != len(p.Records) {
		t.Fatalf("loaded %d records, want %d", len(q.Records), len(p.Records))
	}
	for i := range p.Records {
		if q.Records[i] != p.Records[i] {
			t.Errorf("record %d = %+v, want %+v", i, q.Records[i], p.Records[i])
		}
	}

	if err := q.Load(bytes.NewReader([]byte{9, 0, 0, 0, 1})); err == nil {
		t.Error("truncated work file should fail")
	}
}

func TestWorkFile(t *testing.T) {
	p, c, e, _ := setup(t)
	c.Quant(0.1, e)

	path := filepath.Join(t.TempDir(), "profile.dat")
	if err := p.SaveWorkFile(path); err != nil {
		t.Fatal(err)
	}
	q := New(nil)
	if err := q.LoadWorkFile(path); err != nil {
		t.Fatal(err)
	}
	if len(q.Records) != len(p.Records) {
		t.Errorf("records = %d, want %d", len(q.Records), len(p.Records))
	}
}

func TestText(t *testing.T) {
	p, _, _, _ := setup(t)

	tests := []struct {
		rec  Record
		want string
	}{
		{Record{Time: 3723450, Event: ElementStatusUpdate, Element: 0, Status: int32(types.ElementWaiting)},
			"01:02:03:45 [intro] trigger waiting start"},
		{Record{Time: 10, Event: ChildLinkStatusUpdate, Element: 0, Link: 1, Status: int32(types.LinkActive)},
			"00:00:00:01 [intro] link on start -> #1"},
		{Record{Event: ElementStatusUpdate, Chain: 5, Status: int32(types.ElementDone)},
			"00:00:00:00 trigger done "},
	}
	for _, tt := range tests {
		if got := p.Text(tt.rec); got != tt.want {
			t.Errorf("Text = %q, want %q", got, tt.want)
		}
	}
}

func TestDisabledRecordsNothing(t *testing.T) {
	p, c, e, _ := setup(t)
	p.Enable(false)
	c.Quant(0.1, e)
	if len(p.Records) != 0 {
		t.Errorf("disabled profiler recorded %d entries", len(p.Records))
	}
	if !strings.HasPrefix(DefaultWorkFile, "trigger_profiler") {
		t.Error("unexpected default work file")
	}
}
