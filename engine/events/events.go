// Package events implements single-pass dispatch of engine events to
// handlers, plus their one-line descriptions for consoles.
// Handlers observe; they do not emit further events.
package events

import (
	"fmt"

	"github.com/nathoo/questlogic/types"
)

// Handler reacts to events of one type. An empty Type matches every event.
type Handler struct {
	Type string
	Fn   func(types.Event)
}

// Dispatch runs handlers against the events in order. Single pass: each
// event is offered to every handler once. Returns the number of handler
// calls made.
func Dispatch(evts []types.Event, handlers []Handler) int {
	calls := 0
	for _, evt := range evts {
		for _, h := range handlers {
			if h.Type != "" && h.Type != evt.Type {
				continue
			}
			h.Fn(evt)
			calls++
		}
	}
	return calls
}

// Filter returns the events whose type is one of typs.
func Filter(evts []types.Event, typs ...string) []types.Event {
	var out []types.Event
	for _, evt := range evts {
		for _, t := range typs {
			if evt.Type == t {
				out = append(out, evt)
				break
			}
		}
	}
	return out
}

// Describe renders an event as a short human-readable line.
func Describe(evt types.Event) string {
	d := evt.Data
	switch evt.Type {
	case "element_status":
		return fmt.Sprintf("[%v] #%v %v", d["chain"], d["element"], d["status"])
	case "link_status":
		return fmt.Sprintf("[%v] #%v -> #%v %v", d["chain"], d["from"], d["to"], d["status"])
	case "scene_changed":
		return fmt.Sprintf("scene %v (visit %v)", d["scene"], d["visits"])
	case "game_over":
		return fmt.Sprintf("game over: %v", d["end"])
	}
	return fmt.Sprintf("%s %v", evt.Type, d)
}
