// Package parser splits a todo Markdown document into headings and entries.
package parser

import (
	"strings"

	"github.com/starford/gittodo/internal/models"
	"github.com/starford/gittodo/internal/reminder"
)

const (
	// HeadingPrefix starts a section line.
	HeadingPrefix = "## "
	// BulletPrefix is stripped from entries for display and re-added on storage.
	BulletPrefix = "* "
)

// Result holds the output of parsing a todo document.
type Result struct {
	Lines    []string
	Sections []models.Section
	Entries  []models.Entry
}

// SplitLines breaks raw document bytes into lines without their terminators.
// An empty document has no lines.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	content := strings.TrimSuffix(string(data), "\n")
	return strings.Split(content, "\n")
}

// JoinLines is the inverse of SplitLines; every line is newline-terminated.
func JoinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// IsHeading reports whether line opens a section.
func IsHeading(line string) bool {
	return strings.HasPrefix(line, HeadingPrefix)
}

// IsBlank reports whether line has no visible content.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// IsEntry reports whether line is a todo entry.
func IsEntry(line string) bool {
	return !IsHeading(line) && !IsBlank(line)
}

// HeadingName returns the section name of a heading line.
func HeadingName(line string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, HeadingPrefix))
}

// DisplayText strips the bullet from an entry line.
func DisplayText(line string) string {
	return strings.TrimPrefix(line, BulletPrefix)
}

// StorageText adds the bullet to entry text when missing.
func StorageText(text string) string {
	if strings.HasPrefix(text, BulletPrefix) {
		return text
	}
	return BulletPrefix + text
}

// Parse classifies every line of data. Entries record the section they belong
// to; a blank line closes the current section.
func Parse(data []byte) *Result {
	lines := SplitLines(data)
	res := &Result{Lines: lines}

	current := -1
	for i, line := range lines {
		switch {
		case IsHeading(line):
			res.Sections = append(res.Sections, models.Section{Name: HeadingName(line), Line: i, Entries: []models.Entry{}})
			current = len(res.Sections) - 1
		case IsBlank(line):
			current = -1
		default:
			e := models.Entry{Position: i, Text: DisplayText(line)}
			if at, ok := reminder.Decode(line); ok {
				e.RemindAt = &at
			}
			if current >= 0 {
				e.Section = res.Sections[current].Name
				res.Sections[current].Entries = append(res.Sections[current].Entries, e)
			}
			res.Entries = append(res.Entries, e)
		}
	}
	return res
}

// CollectGarbage drops every heading that has no entries before the next
// heading or the end of the document, together with the blank lines that
// followed it. Lines ahead of the first heading survive only if one of them
// is an entry.
func CollectGarbage(lines []string) []string {
	out := make([]string, 0, len(lines))
	var chunk []string
	hasContent := false

	for _, line := range lines {
		if IsHeading(line) {
			if hasContent {
				out = append(out, chunk...)
			}
			chunk = chunk[:0]
			hasContent = false
		}
		if IsEntry(line) {
			hasContent = true
		}
		chunk = append(chunk, line)
	}
	if hasContent {
		out = append(out, chunk...)
	}
	return out
}
