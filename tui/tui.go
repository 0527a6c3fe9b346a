package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/questlogic/engine"
	"github.com/nathoo/questlogic/engine/events"
	"github.com/nathoo/questlogic/storage"
	"github.com/nathoo/questlogic/types"
)

// panelWidth is the width of the chain panel; it is shown only when the
// console keeps at least minConsole columns.
const (
	panelWidth = 44
	minConsole = 40
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool
	isSystem bool
}

// Model is the Bubble Tea model of the chain monitor.
type Model struct {
	engine *engine.Engine
	store  storage.Store
	ctx    context.Context

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	trace    bool
	running  bool
	quitting bool
	lastCmd  string
}

// outputMsg carries output into the Update loop.
type outputMsg struct {
	input    string
	lines    []string
	isSystem bool
}

// tickMsg advances a running game by one tick.
type tickMsg time.Time

// New creates a monitor for eng that saves into store.
func New(ctx context.Context, eng *engine.Engine, store storage.Store) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		engine:  eng,
		store:   store,
		ctx:     ctx,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, eng *engine.Engine, store storage.Store) error {
	p := tea.NewProgram(New(ctx, eng, store), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		g := m.engine.Defs.Game
		lines := []string{g.Title}
		if g.Version != "" {
			lines[0] += " v" + g.Version
		}
		if g.Author != "" {
			lines[0] += " by " + g.Author
		}
		lines = append(lines, "Type help for console commands, /help for the monitor.", "")
		lines = append(lines, m.engine.Exec("status").Output...)
		return outputMsg{lines: lines}
	}
}

// tick schedules the next tick one tick interval of wall time from now.
func (m Model) tick() tea.Cmd {
	d := time.Duration(float64(m.engine.TickInterval()) * float64(time.Second))
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.consoleSize()
		if !m.ready {
			m.viewport = viewport.New(w, h)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = w
			m.viewport.Height = h
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.handleEnter()
		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil
		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case tickMsg:
		if !m.running {
			return m, nil
		}
		return m.step()

	case outputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)
	return m, tea.Batch(cmds...)
}

// step runs one tick of a running game and schedules the next.
func (m Model) step() (tea.Model, tea.Cmd) {
	e := m.engine
	e.Quant(e.TickInterval())
	var lines []string
	if m.trace {
		lines = m.formatTrace(e.Events())
	} else {
		e.Events()
	}
	if over := e.GameOver(); over != nil {
		m.running = false
		lines = append(lines, fmt.Sprintf("Game over: %s.", over.Name))
	}
	if len(lines) > 0 {
		m = m.appendOutput(outputMsg{lines: lines})
	}
	if !m.running {
		return m, nil
	}
	return m, m.tick()
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}
	m.history.Push(input)

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(outputMsg{input: input, lines: []string{"Nothing to repeat."}, isSystem: true})
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	if strings.HasPrefix(input, "/") {
		output, cmd := m.handleMeta(input)
		m = m.appendOutput(outputMsg{input: input, lines: output, isSystem: true})
		return m, cmd
	}

	result := m.engine.Exec(input)
	output := result.Output
	if m.trace {
		output = append(output, m.formatTrace(result.Events)...)
	}
	m = m.appendOutput(outputMsg{input: input, lines: output})
	return m, nil
}

// appendOutput adds lines to the console and refreshes the viewport.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// showPanel reports whether the terminal is wide enough for the chain
// panel.
func (m Model) showPanel() bool {
	return m.width-panelWidth >= minConsole
}

// consoleSize returns the viewport dimensions.
func (m Model) consoleSize() (int, int) {
	w := m.width
	if m.showPanel() {
		w -= panelWidth
	}
	h := m.height - 2 // status bar and input line
	if h < 1 {
		h = 1
	}
	return w, h
}

// refreshViewport re-wraps and re-styles all raw lines at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width, _ := m.consoleSize()
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		wrapped := wrapText(rl.text, width)
		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the console (with the chain panel beside it when there is
// room), the status bar and the input line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	top := m.viewport.View()
	if m.showPanel() {
		_, h := m.consoleSize()
		top = lipgloss.JoinHorizontal(lipgloss.Top, top, renderChainPanel(m.engine, panelWidth, h))
	}
	return top + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches monitor commands and returns their output and the
// command to run next.
func (m *Model) handleMeta(input string) ([]string, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		m.quitting = true
		return []string{"Goodbye."}, tea.Quit
	case "/run":
		if m.engine.GameOver() != nil {
			return []string{"The game is over."}, nil
		}
		m.running = !m.running
		if m.running {
			return []string{"Running."}, m.tick()
		}
		return []string{"Paused."}, nil
	case "/save":
		return m.cmdSave(arg), nil
	case "/load":
		return m.cmdLoad(arg), nil
	case "/saves":
		return m.cmdSaves(), nil
	case "/help":
		return m.cmdHelp(), nil
	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, nil
		}
		return []string{"Trace output disabled."}, nil
	}
	return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, nil
}

func slotOrDefault(name string) string {
	if name == "" {
		return "quicksave"
	}
	return name
}

func (m *Model) cmdSave(name string) []string {
	name = slotOrDefault(name)
	data, err := m.engine.Save()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := m.store.Save(m.ctx, name, data); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	name = slotOrDefault(name)
	data, err := m.store.Load(m.ctx, name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if err := m.engine.Load(data); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	m.running = false
	out := []string{fmt.Sprintf("Game loaded from %s (tick %d).", name, m.engine.Ticks())}
	return append(out, m.engine.Exec("status").Output...)
}

func (m *Model) cmdSaves() []string {
	slots, err := m.store.List(m.ctx)
	if err != nil {
		return []string{fmt.Sprintf("Listing saves failed: %v", err)}
	}
	if len(slots) == 0 {
		return []string{"No saves."}
	}
	var out []string
	for _, s := range slots {
		out = append(out, fmt.Sprintf("%s (%d bytes, %s)", s.Name, s.Size, s.Saved.Format("2006-01-02 15:04")))
	}
	return out
}

func (m *Model) cmdHelp() []string {
	out := []string{
		"Monitor:",
		"  /run          start or pause ticking in real time",
		"  /save [slot]  save the game (default: quicksave)",
		"  /load [slot]  load a save (default: quicksave)",
		"  /saves        list save slots",
		"  /trace        toggle event output",
		"  /quit         exit",
		"",
		"Console:",
	}
	for _, line := range m.engine.Exec("help").Output {
		out = append(out, "  "+line)
	}
	return append(out, "", "Navigation: PgUp/PgDn to scroll, Up/Down for command history")
}

func (m *Model) formatTrace(evts []types.Event) []string {
	var lines []string
	for _, e := range evts {
		lines = append(lines, "[trace] "+events.Describe(e))
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
