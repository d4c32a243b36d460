// Package models defines the domain types for gittodo.
package models

import (
	"fmt"
	"time"
)

// Entry is a single todo line. Position is its zero-based line index in the
// document and changes whenever a line above it is inserted or removed.
type Entry struct {
	Position int        `json:"line"`
	Section  string     `json:"section,omitempty"`
	Text     string     `json:"text"`
	RemindAt *time.Time `json:"remind_at,omitempty"`
}

// Numbered renders the entry the way listings show it: "<position> - <text>".
func (e Entry) Numbered() string {
	return fmt.Sprintf("%d - %s", e.Position, e.Text)
}

// Section is a "## " heading and the entries that follow it up to the next
// heading or blank line.
type Section struct {
	Name    string  `json:"name"`
	Line    int     `json:"line"`
	Entries []Entry `json:"todos"`
}
