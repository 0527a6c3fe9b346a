package events

import (
	"testing"

	"github.com/nathoo/questlogic/types"
)

func sample() []types.Event {
	return []types.Event{
		{Type: "element_status", Data: map[string]any{"chain": "intro", "element": int32(1), "status": "waiting"}},
		{Type: "link_status", Data: map[string]any{"chain": "intro", "from": int32(0), "to": int32(1), "status": "done"}},
		{Type: "scene_changed", Data: map[string]any{"scene": "cave", "visits": int32(2)}},
		{Type: "element_status", Data: map[string]any{"chain": "intro", "element": int32(1), "status": "working"}},
	}
}

func TestDispatch_MatchesEventType(t *testing.T) {
	var seen []string
	handlers := []Handler{
		{Type: "element_status", Fn: func(e types.Event) { seen = append(seen, e.Data["status"].(string)) }},
		{Type: "game_over", Fn: func(types.Event) { t.Error("game_over handler should not run") }},
	}

	calls := Dispatch(sample(), handlers)
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
	if len(seen) != 2 || seen[0] != "waiting" || seen[1] != "working" {
		t.Errorf("seen = %v", seen)
	}
}

func TestDispatch_EmptyTypeMatchesAll(t *testing.T) {
	n := 0
	Dispatch(sample(), []Handler{{Fn: func(types.Event) { n++ }}})
	if n != 4 {
		t.Errorf("expected 4 calls, got %d", n)
	}
}

func TestDispatch_NoEvents(t *testing.T) {
	if calls := Dispatch(nil, []Handler{{Fn: func(types.Event) {}}}); calls != 0 {
		t.Errorf("expected 0 calls, got %d", calls)
	}
}

func TestFilter(t *testing.T) {
	got := Filter(sample(), "scene_changed", "link_status")
	if len(got) != 2 || got[0].Type != "link_status" || got[1].Type != "scene_changed" {
		t.Errorf("Filter = %+v", got)
	}
	if Filter(sample(), "game_over") != nil {
		t.Error("expected no game_over events")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		evt  types.Event
		want string
	}{
		{sample()[0], "[intro] #1 waiting"},
		{sample()[1], "[intro] #0 -> #1 done"},
		{sample()[2], "scene cave (visit 2)"},
		{types.Event{Type: "game_over", Data: map[string]any{"end": "victory"}}, "game over: victory"},
		{types.Event{Type: "custom", Data: map[string]any{"k": 1}}, "custom map[k:1]"},
	}
	for _, tt := range tests {
		if got := Describe(tt.evt); got != tt.want {
			t.Errorf("Describe(%s) = %q, want %q", tt.evt.Type, got, tt.want)
		}
	}
}
