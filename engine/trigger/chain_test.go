package trigger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nathoo/questlogic/engine/conditional"
	"github.com/nathoo/questlogic/engine/conditions"
	"github.com/nathoo/questlogic/engine/objects"
	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

type testEnv struct {
	reg      *registry.Registry
	counters []*objects.Counter
	chains   []*Chain
}

func (e *testEnv) Registry() *registry.Registry { return e.reg }
func (e *testEnv) Rand() conditions.Roller      { return nil }
func (e *testEnv) Done(p registry.Named) bool   { return objects.TriggerDone(e, p) }
func (e *testEnv) ActiveScene() *objects.Scene  { return nil }
func (e *testEnv) RequestScene(*objects.Scene)  {}
func (e *testEnv) Audio() objects.Audio         { return nil }
func (e *testEnv) EndGame(*objects.GameEnd)     {}
func (e *testEnv) Logger() *zap.Logger          { return zap.NewNop() }

func (e *testEnv) tick() {
	for _, c := range e.counters {
		c := c
		c.Object.Quant(0.1, e.reg, nil, func() types.StartMode { return objects.Start(e, c) })
	}
	for _, ch := range e.chains {
		ch.Quant(0.1, e)
	}
}

func newEnv(t *testing.T, counters ...*objects.Counter) *testEnv {
	t.Helper()
	env := &testEnv{reg: registry.New(), counters: counters}
	for _, c := range counters {
		if err := env.reg.Register(nil, c); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

func addChain(t *testing.T, env *testEnv, def types.ChainDef) *Chain {
	t.Helper()
	c, err := New(def, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := env.reg.Register(nil, c); err != nil {
		t.Fatal(err)
	}
	c.Index = len(env.chains)
	env.chains = append(env.chains, c)
	return c
}

func counter(name string, cond types.ConditionsDef) *objects.Counter {
	return objects.NewCounter(name, 0, 0, 1, 0, conditional.New(conditions.Build(cond, name, nil)))
}

func linearChain() types.ChainDef {
	return types.ChainDef{
		Name: "intro",
		Elements: []types.ElementDef{
			{ID: RootID},
			{ID: 1, Object: "counter:coins"},
			{ID: 2, Object: "counter:gems"},
		},
		Links: []types.LinkDef{{From: 0, To: 1}, {From: 1, To: 2}},
	}
}

func expect(t *testing.T, tick int, c *Chain, want ...types.ElementStatus) {
	t.Helper()
	for i, w := range want {
		if got := c.Elements[i].Status(); got != w {
			t.Errorf("tick %d: element %d = %v, want %v", tick, c.Elements[i].ID, got, w)
		}
	}
}

func TestQuant_RootThenFirstElement(t *testing.T) {
	coins, gems := counter("coins", types.ConditionsDef{}), counter("gems", types.ConditionsDef{})
	env := newEnv(t, coins, gems)
	c := addChain(t, env, linearChain())
	rootLink := c.FindLink(0, 1)

	env.tick()
	expect(t, 1, c, types.ElementWorking, types.ElementInactive, types.ElementInactive)
	if rootLink.Status() != types.LinkInactive {
		t.Errorf("tick 1: link = %v", rootLink.Status())
	}

	env.tick()
	expect(t, 2, c, types.ElementDone, types.ElementInactive, types.ElementInactive)
	if rootLink.Status() != types.LinkActive {
		t.Errorf("tick 2: link = %v, want active", rootLink.Status())
	}

	env.tick()
	expect(t, 3, c, types.ElementDone, types.ElementWaiting, types.ElementInactive)
	if rootLink.Status() != types.LinkDone {
		t.Errorf("tick 3: consumed link = %v, want done", rootLink.Status())
	}
	if !coins.Waiting() {
		t.Error("tick 3: payload should be armed")
	}

	env.tick()
	expect(t, 4, c, types.ElementDone, types.ElementWorking, types.ElementInactive)
	if coins.Value() != 1 {
		t.Errorf("tick 4: counter = %d, want 1", coins.Value())
	}
	if coins.Waiting() {
		t.Error("tick 4: started payload should be disarmed")
	}

	env.tick()
	expect(t, 5, c, types.ElementDone, types.ElementDone, types.ElementInactive)
	if l := c.FindLink(1, 2); l.Status() != types.LinkActive {
		t.Errorf("tick 5: link 1->2 = %v", l.Status())
	}
}

func TestQuant_WaitsForConditions(t *testing.T) {
	gems := counter("gems", types.ConditionsDef{})
	coins := counter("coins", types.ConditionsDef{Conditions: []types.ConditionDef{
		{Kind: types.CondCounterGreater, Ints: []int32{0}, Objects: []string{"counter:gems"}},
	}})
	env := newEnv(t, coins, gems)
	c := addChain(t, env, linearChain())

	for i := 0; i < 6; i++ {
		env.tick()
	}
	if got := c.Element(1).Status(); got != types.ElementWaiting {
		t.Fatalf("element 1 = %v, want waiting while gems == 0", got)
	}
	gems.SetValue(1)
	env.tick()
	if got := c.Element(1).Status(); got != types.ElementWorking {
		t.Errorf("element 1 = %v, want working once the condition holds", got)
	}
}

func TestQuant_OrJoin(t *testing.T) {
	def := types.ChainDef{
		Name: "branches",
		Elements: []types.ElementDef{
			{ID: RootID}, {ID: 1}, {ID: 2}, {ID: 3, OrJoin: true}, {ID: 4},
		},
		Links: []types.LinkDef{
			{From: 0, To: 1}, {From: 0, To: 2},
			{From: 1, To: 3}, {From: 2, To: 3, Guard: types.ConditionsDef{Conditions: []types.ConditionDef{
				{Kind: types.CondCounterGreater, Ints: []int32{5}, Objects: []string{"counter:coins"}},
			}}},
			{From: 1, To: 4}, {From: 2, To: 4, Guard: types.ConditionsDef{Conditions: []types.ConditionDef{
				{Kind: types.CondCounterGreater, Ints: []int32{5}, Objects: []string{"counter:coins"}},
			}}},
		},
	}
	env := newEnv(t, counter("coins", types.ConditionsDef{}))
	c := addChain(t, env, def)

	for i := 0; i < 8; i++ {
		env.tick()
	}
	if got := c.Element(3).Status(); got != types.ElementDone {
		t.Errorf("OR-join = %v, want done with one active branch", got)
	}
	if got := c.Element(4).Status(); got != types.ElementInactive {
		t.Errorf("AND-join = %v, want inactive while the guarded branch is blocked", got)
	}
	if got := c.FindLink(2, 4).Status(); got != types.LinkInactive {
		t.Errorf("guarded link = %v", got)
	}
}

func TestQuant_PassesPropagateWithinTick(t *testing.T) {
	def := types.ChainDef{
		Name:     "fast",
		Elements: []types.ElementDef{{ID: RootID}, {ID: 1}, {ID: 2}},
		Links:    []types.LinkDef{{From: 0, To: 1}, {From: 1, To: 2}},
	}
	env := newEnv(t)
	c := addChain(t, env, def)
	c.Passes = 10

	env.tick()
	// The root starts working on tick 1 and completes on tick 2.
	expect(t, 1, c, types.ElementWorking, types.ElementInactive, types.ElementInactive)
	env.tick()
	expect(t, 2, c, types.ElementDone, types.ElementWorking, types.ElementInactive)
}

func TestQuant_PassBudgetCoversElementCount(t *testing.T) {
	def := types.ChainDef{
		Name:     "relay",
		Elements: []types.ElementDef{{ID: RootID}, {ID: 1}, {ID: 2}, {ID: 3}},
		Links:    []types.LinkDef{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 3}},
	}
	env := newEnv(t)
	c := addChain(t, env, def)
	c.Passes = 2
	core, logs := observer.New(zap.ErrorLevel)
	c.SetLogger(zap.New(core))

	for i := 0; i < 10; i++ {
		env.tick()
	}
	expect(t, 10, c, types.ElementDone, types.ElementDone, types.ElementDone, types.ElementDone)
	if n := logs.FilterMessageSnippet("possible cycle").Len(); n != 0 {
		t.Errorf("acyclic chain logged %d possible cycles", n)
	}
}

type recorder struct {
	elements []types.ElementStatus
	links    int
}

func (r *recorder) ElementChanged(_ *Chain, e *Element) { r.elements = append(r.elements, e.Status()) }
func (r *recorder) LinkChanged(*Chain, *Link)           { r.links++ }

func TestReset_ClearsAndDisarms(t *testing.T) {
	coins, gems := counter("coins", types.ConditionsDef{}), counter("gems", types.ConditionsDef{})
	env := newEnv(t, coins, gems)
	c := addChain(t, env, linearChain())
	rec := &recorder{}
	c.SetObserver(rec)

	for i := 0; i < 3; i++ {
		env.tick()
	}
	if !coins.Waiting() {
		t.Fatal("coins should be armed")
	}
	c.Reset(env.reg)
	for _, e := range c.Elements {
		if e.Status() != types.ElementInactive {
			t.Errorf("element %d = %v after reset", e.ID, e.Status())
		}
	}
	for _, l := range c.Links {
		if l.Status() != types.LinkInactive {
			t.Errorf("link %d->%d = %v after reset", l.From.ID, l.To.ID, l.Status())
		}
	}
	if coins.Waiting() {
		t.Error("reset should disarm waiting payloads")
	}
	if len(rec.elements) == 0 || rec.links == 0 {
		t.Error("observer saw no changes")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	coins, gems := counter("coins", types.ConditionsDef{}), counter("gems", types.ConditionsDef{})
	env := newEnv(t, coins, gems)
	c := addChain(t, env, linearChain())
	for i := 0; i < 5; i++ {
		env.tick()
	}

	w := stream.NewWriter()
	c.SaveData(w)

	restored, err := New(linearChain(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.LoadData(stream.NewReader(w.Data()), types.SaveVersion); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	for i, e := range c.Elements {
		r := restored.Elements[i]
		if r.Status() != e.Status() || !r.Payload.Ref.Equal(e.Payload.Ref) {
			t.Errorf("element %d: %v %s, want %v %s", e.ID, r.Status(), r.Payload.Ref, e.Status(), e.Payload.Ref)
		}
	}
	for i, l := range c.Links {
		if restored.Links[i].Status() != l.Status() {
			t.Errorf("link %d: %v, want %v", i, restored.Links[i].Status(), l.Status())
		}
	}
	if restored.Element(2).Parents()[0].Status() != types.LinkActive {
		t.Error("parent link status should follow the child link")
	}
}

func timerGuardedChain() types.ChainDef {
	return types.ChainDef{
		Name:     "dusk",
		Elements: []types.ElementDef{{ID: RootID}, {ID: 1, Object: "counter:coins"}},
		Links: []types.LinkDef{{From: 0, To: 1, Guard: types.ConditionsDef{Conditions: []types.ConditionDef{
			{Kind: types.CondTimer, Floats: []float32{1}, Ints: []int32{100}},
		}}}},
	}
}

func TestSaveLoad_KeepsGuardTimer(t *testing.T) {
	live := newEnv(t, counter("coins", types.ConditionsDef{}))
	c := addChain(t, live, timerGuardedChain())
	for i := 0; i < 8; i++ {
		live.tick()
	}

	w := stream.NewWriter()
	c.SaveData(w)

	reloaded := newEnv(t, counter("coins", types.ConditionsDef{}))
	restored := addChain(t, reloaded, timerGuardedChain())
	r := stream.NewReader(w.Data())
	if err := restored.LoadData(r, types.SaveVersion); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("%d bytes left unread", r.Remaining())
	}

	for i := 0; i < 10; i++ {
		live.tick()
		reloaded.tick()
		if got, want := restored.Links[0].Status(), c.Links[0].Status(); got != want {
			t.Fatalf("tick %d: reloaded link %v, live link %v", 9+i, got, want)
		}
	}
	if c.Links[0].Status() == types.LinkInactive {
		t.Error("guard never opened")
	}
}

func TestLoadData_Pre108HasNoGuardState(t *testing.T) {
	env := newEnv(t, counter("coins", types.ConditionsDef{}))
	c := addChain(t, env, timerGuardedChain())

	w := stream.NewWriter()
	w.Int32(2)
	w.Int32(RootID)
	w.Int32(int32(types.ElementDone))
	registry.Reference{}.SaveData(w)
	w.Int32(1)
	w.Int32(1)
	w.Int32(int32(types.LinkInactive))
	w.Int32(1)
	w.Int32(int32(types.ElementInactive))
	c.Elements[1].Payload.Ref.SaveData(w)
	w.Int32(0)

	r := stream.NewReader(w.Data())
	if err := c.LoadData(r, types.VersionGuardState-1); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("%d bytes left unread", r.Remaining())
	}
	if c.Root().Status() != types.ElementDone {
		t.Errorf("root = %v", c.Root().Status())
	}
}

func TestLoadData_Mismatch(t *testing.T) {
	env := newEnv(t)
	c := addChain(t, env, linearChain())
	w := stream.NewWriter()
	c.SaveData(w)

	short := linearChain()
	short.Elements = short.Elements[:2]
	short.Links = short.Links[:1]
	other, err := New(short, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.LoadData(stream.NewReader(w.Data()), types.SaveVersion); err == nil {
		t.Error("expected element count mismatch")
	}
	if err := c.LoadData(stream.NewReader(w.Data()), 42); !errors.Is(err, stream.ErrUnsupportedVersion) {
		t.Errorf("expected unsupported version, got %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  types.ChainDef
		want error
	}{
		{"no root", types.ChainDef{Elements: []types.ElementDef{{ID: 1}}}, ErrNoRoot},
		{"duplicate id", types.ChainDef{Elements: []types.ElementDef{{ID: 0}, {ID: 0}}}, ErrDuplicateElement},
		{"unknown target", types.ChainDef{Elements: []types.ElementDef{{ID: 0}}, Links: []types.LinkDef{{From: 0, To: 9}}}, ErrUnknownElement},
	}
	for _, tt := range tests {
		if _, err := New(tt.def, nil); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}
