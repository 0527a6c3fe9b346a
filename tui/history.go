// Package tui provides a Bubble Tea monitor for running trigger chains,
// with a scrolling console and command input.
package tui

// History holds the most recent console inputs for up/down recall.
type History struct {
	entries []string
	max     int
	pos     int // len(entries) when not navigating
}

// NewHistory creates a history that keeps at most max entries.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Push records cmd unless it repeats the newest entry, and stops
// navigation.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n == 0 || h.entries[n-1] != cmd {
		h.entries = append(h.entries, cmd)
		if len(h.entries) > h.max {
			h.entries = h.entries[len(h.entries)-h.max:]
		}
	}
	h.pos = len(h.entries)
}

// Prev steps back to an older entry, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.entries[h.pos], true
}

// Next steps forward. Past the newest entry it reports false, meaning the
// input should be cleared.
func (h *History) Next() (string, bool) {
	if h.pos >= len(h.entries) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.entries) {
		return "", false
	}
	return h.entries[h.pos], true
}

// ResetCursor stops navigation.
func (h *History) ResetCursor() { h.pos = len(h.entries) }

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }
