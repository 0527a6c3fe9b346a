// Package cli provides the plain line-oriented console: terminal I/O,
// output formatting and meta-command dispatch around Engine.Exec.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/questlogic/engine"
	"github.com/nathoo/questlogic/engine/events"
	"github.com/nathoo/questlogic/loader"
	"github.com/nathoo/questlogic/storage"
	"github.com/nathoo/questlogic/types"
)

// CLI drives an engine from a line-based reader.
type CLI struct {
	Engine      *engine.Engine
	Store       storage.Store
	In          io.Reader
	Out         io.Writer
	Trace       bool   // print events after each command
	EchoInput   bool   // echo each input line after the prompt (for script playback)
	WorkFile    string // profiler work file
	DumpOptions []loader.Option
	lastCmd     string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine and save store.
func New(eng *engine.Engine, store storage.Store) *CLI {
	return &CLI{
		Engine:   eng,
		Store:    store,
		In:       os.Stdin,
		Out:      os.Stdout,
		WorkFile: "profiler.dat",
	}
}

// Run shows the title and the starting status, then loops: prompt, input,
// dispatch, output.
func (c *CLI) Run(ctx context.Context) {
	g := c.Engine.Defs.Game
	c.printLine(g.Title)
	if g.Author != "" {
		c.printLine("by " + g.Author)
	}
	c.printLine("")
	c.printResult(c.Engine.Exec("status"))

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return // /quit
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.printResult(c.Engine.Exec(input))
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should
// end.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true
	case "/save":
		c.cmdSave(ctx, arg)
	case "/load":
		c.cmdLoad(ctx, arg)
	case "/saves":
		c.cmdSaves(ctx)
	case "/delete":
		c.cmdDelete(ctx, arg)
	case "/dump":
		c.cmdDump(arg)
	case "/work":
		c.cmdWork(arg)
	case "/help":
		c.cmdHelp()
	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}
	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
	return false
}

func slotOrDefault(name string) string {
	if name == "" {
		return "quicksave"
	}
	return name
}

func (c *CLI) cmdSave(ctx context.Context, name string) {
	name = slotOrDefault(name)
	data, err := c.Engine.Save()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if err := c.Store.Save(ctx, name, data); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(ctx context.Context, name string) {
	name = slotOrDefault(name)
	data, err := c.Store.Load(ctx, name)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := c.Engine.Load(data); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (tick %d).", name, c.Engine.Ticks()))
	c.printResult(c.Engine.Exec("status"))
}

func (c *CLI) cmdSaves(ctx context.Context) {
	slots, err := c.Store.List(ctx)
	if err != nil {
		c.printSystem(fmt.Sprintf("Listing saves failed: %v", err))
		return
	}
	if len(slots) == 0 {
		c.printSystem("No saves.")
		return
	}
	for _, s := range slots {
		c.printLine(fmt.Sprintf("  %-16s %6d bytes  %s", s.Name, s.Size, s.Saved.Format("2006-01-02 15:04:05")))
	}
}

func (c *CLI) cmdDelete(ctx context.Context, name string) {
	if name == "" {
		c.printSystem("Usage: /delete <slot>")
		return
	}
	err := c.Store.Delete(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.printSystem(fmt.Sprintf("No save named %s.", name))
	case err != nil:
		c.printSystem(fmt.Sprintf("Delete failed: %v", err))
	default:
		c.printSystem(fmt.Sprintf("Deleted %s.", name))
	}
}

// cmdDump writes the loaded definitions back out as a script.
func (c *CLI) cmdDump(path string) {
	if path == "" {
		c.printSystem("Usage: /dump <file.lua>")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Dump failed: %v", err))
		return
	}
	err = loader.Dump(f, c.Engine.Defs, c.DumpOptions...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.printSystem(fmt.Sprintf("Dump failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Scripts written to %s.", path))
}

// cmdWork saves or loads the profiler work file.
func (c *CLI) cmdWork(op string) {
	p := c.Engine.Profiler
	switch op {
	case "save":
		if err := p.SaveWorkFile(c.WorkFile); err != nil {
			c.printSystem(fmt.Sprintf("Work file save failed: %v", err))
			return
		}
		c.printSystem(fmt.Sprintf("%d records written to %s.", len(p.Records), c.WorkFile))
	case "load":
		if err := p.LoadWorkFile(c.WorkFile); err != nil {
			c.printSystem(fmt.Sprintf("Work file load failed: %v", err))
			return
		}
		c.printSystem(fmt.Sprintf("%d records read from %s.", len(p.Records), c.WorkFile))
	default:
		c.printSystem("Usage: /work save|load")
	}
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [slot]    save the game (default: quicksave)",
		"  /load [slot]    load a save (default: quicksave)",
		"  /saves          list save slots",
		"  /delete <slot>  delete a save slot",
		"  /dump <file>    write the loaded scripts back out",
		"  /work save|load profiler work file",
		"  /trace          toggle event output",
		"  /quit           exit",
		"",
		"Console:",
	}
	for _, line := range help {
		c.printLine(line)
	}
	for _, line := range c.Engine.Exec("help").Output {
		c.printLine("  " + line)
	}
	c.printLine("  again (g)             repeat the last command")
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
	if c.Trace {
		c.printTrace(result)
	}
}

func (c *CLI) printTrace(result types.Result) {
	for _, e := range result.Events {
		c.printSystem("trace " + events.Describe(e))
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
