package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/nathoo/questlogic/types"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleOutput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleGameOver = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	stylePanelTitle = lipgloss.NewStyle().Bold(true)
)

// statusStyles colour trigger element statuses.
var statusStyles = map[types.ElementStatus]lipgloss.Style{
	types.ElementInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	types.ElementWaiting:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	types.ElementWorking:  lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true),
	types.ElementDone:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
}

func styledStatus(s types.ElementStatus) string {
	return statusStyles[s].Render(s.String())
}

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindOutput lineKind = iota
	kindSystem
	kindError
	kindTrace
	kindGameOver
)

// classifyLine determines what kind of console line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "Game over"):
		return kindGameOver
	case strings.HasPrefix(line, "Unknown command"),
		strings.HasPrefix(line, "Usage:"),
		strings.HasPrefix(line, "No "),
		strings.HasSuffix(line, "does not resolve."):
		return kindError
	}
	return kindOutput
}

func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	case kindGameOver:
		return styleGameOver.Render(line)
	}
	return styleOutput.Render(line)
}

// wrapText wraps at word boundaries and hard-breaks words longer than
// width, such as reference paths.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wrap.String(wordwrap.String(text, width), width)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
