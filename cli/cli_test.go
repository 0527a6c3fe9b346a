package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/questlogic/engine"
	"github.com/nathoo/questlogic/loader"
	"github.com/nathoo/questlogic/storage"
	"github.com/nathoo/questlogic/types"
)

// testDefs returns a small game: collecting a coin moves to the garden,
// which ends the game.
func testDefs() *types.Defs {
	return &types.Defs{
		Game: types.GameDef{Title: "Test Game", Author: "Test", Version: "1.0", Start: "hall"},
		Scenes: []types.SceneDef{
			{Name: "hall"},
			{Name: "garden"},
		},
		Counters: []types.CounterDef{{Name: "coins", Step: 1}},
		GameEnds: []types.GameEndDef{{Name: "victory"}},
		Chains: []types.ChainDef{{
			Name: "main",
			Elements: []types.ElementDef{
				{ID: 0},
				{ID: 1, Object: "counter:coins"},
				{ID: 2, Object: "scene:garden"},
				{ID: 3, Object: "game_end:victory"},
			},
			Links: []types.LinkDef{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 3}},
		}},
	}
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	eng, err := engine.New(testDefs())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	store, err := storage.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := New(eng, store)
	c.In = strings.NewReader(input)
	c.Out = &out
	c.WorkFile = filepath.Join(t.TempDir(), "work.dat")
	return c, &out
}

func run(t *testing.T, input string) string {
	t.Helper()
	c, out := newTestCLI(t, input)
	c.Run(context.Background())
	return out.String()
}

func TestCLI_TitleAndStatus(t *testing.T) {
	output := run(t, "/quit\n")
	for _, want := range []string{"Test Game", "by Test", "Scene hall, tick 0", "[Goodbye.]"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestCLI_TickToVictory(t *testing.T) {
	output := run(t, "tick 20\nstatus\n/quit\n")
	if !strings.Contains(output, "Game over: victory.") {
		t.Errorf("expected game over:\n%s", output)
	}
	if !strings.Contains(output, "Scene garden") {
		t.Errorf("expected garden in status:\n%s", output)
	}
}

func TestCLI_Again(t *testing.T) {
	output := run(t, "tick\ng\nagain\n/quit\n")
	if !strings.Contains(output, "Tick 3,") {
		t.Errorf("expected three ticks:\n%s", output)
	}

	output = run(t, "g\n/quit\n")
	if !strings.Contains(output, "Nothing to repeat.") {
		t.Errorf("expected nothing to repeat:\n%s", output)
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	output := run(t, "tick 3\n/save slot1\ntick 4\n/load slot1\n/saves\n/quit\n")
	if !strings.Contains(output, "[Game saved to slot1.]") {
		t.Errorf("expected save confirmation:\n%s", output)
	}
	if !strings.Contains(output, "[Game loaded from slot1 (tick 3).]") {
		t.Errorf("expected load confirmation:\n%s", output)
	}
	if !strings.Contains(output, "  slot1 ") {
		t.Errorf("expected slot listing:\n%s", output)
	}
}

func TestCLI_LoadMissingSlot(t *testing.T) {
	output := run(t, "/load nowhere\n/delete nowhere\n/quit\n")
	if !strings.Contains(output, "Load failed") {
		t.Errorf("expected load failure:\n%s", output)
	}
	if !strings.Contains(output, "No save named nowhere.") {
		t.Errorf("expected delete failure:\n%s", output)
	}
}

func TestCLI_Trace(t *testing.T) {
	output := run(t, "/trace\ntick 2\n/trace\n/quit\n")
	if !strings.Contains(output, "[Trace output enabled.]") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "[trace [main] #0") {
		t.Errorf("expected chain events in trace:\n%s", output)
	}
}

func TestCLI_DumpReloads(t *testing.T) {
	dir := t.TempDir()
	output := run(t, "/dump "+filepath.Join(dir, "game.lua")+"\n/quit\n")
	if !strings.Contains(output, "Scripts written to") {
		t.Fatalf("expected dump confirmation:\n%s", output)
	}
	defs, err := loader.Load(dir)
	if err != nil {
		t.Fatalf("reloading dump: %v", err)
	}
	if defs.Game.Title != "Test Game" || len(defs.Chains) != 1 {
		t.Errorf("reloaded defs = %+v", defs)
	}
}

func TestCLI_WorkFile(t *testing.T) {
	output := run(t, "profile on\ntick 3\n/work save\n/work load\n/quit\n")
	if !strings.Contains(output, "records written to") || !strings.Contains(output, "records read from") {
		t.Errorf("expected work file round trip:\n%s", output)
	}
}

func TestCLI_UnknownMeta(t *testing.T) {
	output := run(t, "/frobnicate\n/quit\n")
	if !strings.Contains(output, "Unknown command: /frobnicate") {
		t.Errorf("expected unknown command message:\n%s", output)
	}
}

func TestCLI_EchoAndComments(t *testing.T) {
	c, out := newTestCLI(t, "# a comment\nstatus\n/quit\n")
	c.EchoInput = true
	c.Run(context.Background())
	output := out.String()
	if strings.Contains(output, "a comment") {
		t.Error("comment lines should be skipped")
	}
	if !strings.Contains(output, "> status\n") {
		t.Errorf("expected echoed input:\n%s", output)
	}
}
