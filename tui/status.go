package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/questlogic/engine"
	"github.com/nathoo/questlogic/types"
)

// sceneDisplayName derives a human-readable name from a scene name.
// "great_hall" -> "Great Hall".
func sceneDisplayName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line: scene, run
// state, finished chains, tick and game time.
func (m Model) renderStatusBar() string {
	e := m.engine

	scene := "(no scene)"
	if s := e.ActiveScene(); s != nil {
		scene = sceneDisplayName(s.Name)
	}
	mode := "paused"
	switch {
	case e.GameOver() != nil:
		mode = "over: " + e.GameOver().Name
	case m.running:
		mode = "running"
	}
	left := fmt.Sprintf(" %s | %s", scene, mode)

	done := 0
	for _, c := range e.World.Chains {
		if chainDone(c.Counts()) {
			done++
		}
	}
	right := fmt.Sprintf("Chains %d/%d | T:%d %.1fs ", done, len(e.World.Chains), e.Ticks(), e.Elapsed())
	if e.Profiler.Enabled() {
		right = "REC | " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return styleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// chainDone reports whether every element of a chain has finished.
func chainDone(counts map[types.ElementStatus]int) bool {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total > 0 && counts[types.ElementDone] == total
}

// renderChainPanel lists every chain with the status of each element.
func renderChainPanel(e *engine.Engine, width, height int) string {
	var lines []string
	inner := width - 4 // border and padding
	for _, c := range e.World.Chains {
		lines = append(lines, stylePanelTitle.Render(truncate(engine.ChainSummary(c), inner)))
		for _, el := range c.Elements {
			label := truncate(engine.ElementLabel(el, e.World.Registry), inner-14)
			lines = append(lines, fmt.Sprintf(" #%-3d %s %s", el.ID, padStatus(el.Status()), label))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, styleSystem.Render("no trigger chains"))
	}
	if height > 2 && len(lines) > height-2 {
		lines = append(lines[:height-3], styleSystem.Render("..."))
	}
	return stylePanel.Width(width - 2).Height(max(height-2, 1)).Render(strings.Join(lines, "\n"))
}

func padStatus(s types.ElementStatus) string {
	return styledStatus(s) + strings.Repeat(" ", max(8-len(s.String()), 0))
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
