// Package parser converts console lines into Command structs.
// Intentionally dumb: verbs and aliases, no grammar.
package parser

import (
	"strings"
)

// Command is a parsed console line. Verb is canonical and lowercase;
// Args keep their case since entity names are case sensitive.
type Command struct {
	Verb string
	Args []string
}

var verbAliases = map[string]string{
	// Time
	"t":    "tick",
	"step": "tick",
	"n":    "tick",
	"next": "tick",

	// Overview
	"s":      "status",
	"st":     "status",
	"ls":     "status",
	"chains": "status",
	"inv":    "inventory",
	"i":      "inventory",

	// Chains
	"c":    "chain",
	"show": "chain",
	"r":    "reset",
	"rst":  "reset",

	// Entities
	"counter": "set",
	"goto":    "scene",
	"go":      "scene",
	"resolve": "ref",
	"lookup":  "ref",
	"?":       "help",
	"h":       "help",
}

// Noise words dropped from argument lists.
var fillers = map[string]bool{
	"to": true, "=": true, "into": true,
}

// Parse converts a raw console line into a Command.
func Parse(input string) Command {
	words := strings.Fields(strings.TrimSpace(input))
	if len(words) == 0 {
		return Command{}
	}

	verb := strings.ToLower(words[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}

	args := make([]string, 0, len(words)-1)
	for _, w := range words[1:] {
		if !fillers[strings.ToLower(w)] {
			args = append(args, w)
		}
	}
	return Command{Verb: verb, Args: args}
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}
