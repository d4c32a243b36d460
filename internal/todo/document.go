// Package todo implements the line-addressed todo document: listing,
// appending, deleting and reordering entries in a single Markdown file.
package todo

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/checksum"
	"github.com/starford/gittodo/internal/models"
	"github.com/starford/gittodo/internal/parser"
	"github.com/starford/gittodo/internal/storage"
)

// Direction selects the neighbour an entry is swapped with by Move.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// ParseDirection accepts "up"/"down" and "-1"/"1".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "-1":
		return Up, nil
	case "down", "1", "+1":
		return Down, nil
	}
	return 0, fmt.Errorf("%w: direction %q", apperr.ErrInvalidArgument, s)
}

// Document is a todo file. Mutations are serialised per Document and every
// one of them rewrites the whole file.
type Document struct {
	mu    sync.Mutex
	store storage.Provider
	path  string
}

// Open binds a Document to path inside store, creating an empty file if it
// does not exist.
func Open(store storage.Provider, path string) (*Document, error) {
	if err := store.Touch(path); err != nil {
		return nil, fmt.Errorf("todo: open %s: %w", path, err)
	}
	return &Document{store: store, path: path}, nil
}

// Path returns the document path relative to its storage root.
func (d *Document) Path() string { return d.path }

// Raw returns the document bytes unmodified.
func (d *Document) Raw() ([]byte, error) {
	return d.store.Read(d.path)
}

// Checksum returns the SHA-256 of the current document content.
func (d *Document) Checksum() (string, error) {
	data, err := d.Raw()
	if err != nil {
		return "", err
	}
	return checksum.Sum(data), nil
}

// Snapshot parses the current document.
func (d *Document) Snapshot() (*parser.Result, error) {
	data, err := d.Raw()
	if err != nil {
		return nil, err
	}
	return parser.Parse(data), nil
}

// Entries returns every entry in the document in line order.
func (d *Document) Entries() ([]models.Entry, error) {
	res, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// ReadAll renders the document with each entry prefixed by its position.
// Headings and blank lines are kept verbatim.
func (d *Document) ReadAll() (string, error) {
	res, err := d.Snapshot()
	if err != nil {
		return "", err
	}
	if len(res.Lines) == 0 || (len(res.Lines) == 1 && parser.IsBlank(res.Lines[0])) {
		return "<empty>", nil
	}

	var b strings.Builder
	for i, line := range res.Lines {
		if parser.IsEntry(line) {
			fmt.Fprintf(&b, "%d - %s\n", i, parser.DisplayText(line))
		} else {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Sections returns the names of all headings in document order.
func (d *Document) Sections() ([]string, error) {
	res, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Sections))
	for _, s := range res.Sections {
		names = append(names, s.Name)
	}
	return names, nil
}

// ListSections renders every heading line, or "<No sections found>".
func (d *Document) ListSections() (string, error) {
	names, err := d.Sections()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "<No sections found>", nil
	}
	var b strings.Builder
	for _, n := range names {
		b.WriteString(parser.HeadingPrefix + n + "\n")
	}
	return b.String(), nil
}

// Section returns the first section whose heading starts with name
// (case-sensitive). apperr.ErrNotFound is returned when none matches.
func (d *Document) Section(name string) (*models.Section, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: section can't be empty", apperr.ErrInvalidArgument)
	}
	res, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	for i, line := range res.Lines {
		if !strings.HasPrefix(line, parser.HeadingPrefix+name) {
			continue
		}
		for _, s := range res.Sections {
			if s.Line == i {
				return &s, nil
			}
		}
	}
	return nil, fmt.Errorf("todo: section %q: %w", name, apperr.ErrNotFound)
}

// ReadSection renders the numbered entries of a section. A missing section
// yields "<No section NAME>" and an empty one "<NAME is empty>".
func (d *Document) ReadSection(name string) (string, error) {
	s, err := d.Section(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Sprintf("<No section %s>", name), nil
		}
		return "", err
	}
	if len(s.Entries) == 0 {
		return fmt.Sprintf("<%s is empty>", name), nil
	}
	var b strings.Builder
	for _, e := range s.Entries {
		b.WriteString(e.Numbered() + "\n")
	}
	return b.String(), nil
}

// Append adds text as the first entry of section, matching the heading
// case-insensitively. A missing section is created at the end of the
// document.
func (d *Document) Append(section, text string) error {
	section = strings.TrimSpace(section)
	text = strings.TrimSpace(text)
	if section == "" {
		return fmt.Errorf("%w: section can't be empty", apperr.ErrInvalidArgument)
	}
	if text == "" {
		return fmt.Errorf("%w: todo can't be empty", apperr.ErrInvalidArgument)
	}
	if strings.ContainsAny(section+text, "\r\n") {
		return fmt.Errorf("%w: todo and section must be a single line", apperr.ErrInvalidArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	lines, err := d.load()
	if err != nil {
		return err
	}

	entry := parser.StorageText(text)
	prefix := strings.ToLower(parser.HeadingPrefix + section)
	inserted := false
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			lines = append(lines[:i+1], append([]string{entry}, lines[i+1:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, parser.HeadingPrefix+section, entry)
	}
	return d.save(lines)
}

// Delete removes the line at position and returns its original text, then
// drops any section left without entries. Headings can't be deleted:
// apperr.ErrNotDeletable is returned and the file is left untouched.
func (d *Document) Delete(position int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines, err := d.load()
	if err != nil {
		return "", err
	}
	if position < 0 || position >= len(lines) {
		return "", fmt.Errorf("todo: delete %d: %w", position, apperr.ErrPositionOutOfRange)
	}
	removed := lines[position]
	if parser.IsHeading(removed) {
		return "", fmt.Errorf("todo: delete %d: %w", position, apperr.ErrNotDeletable)
	}

	lines = append(lines[:position], lines[position+1:]...)
	if err := d.save(parser.CollectGarbage(lines)); err != nil {
		return "", err
	}
	return removed, nil
}

// Move swaps the entry at position with its neighbour in dir. It returns
// false without writing when the neighbour is a heading, a blank line or
// outside the document.
func (d *Document) Move(position int, dir Direction) (bool, error) {
	if dir != Up && dir != Down {
		return false, fmt.Errorf("%w: direction %d", apperr.ErrInvalidArgument, dir)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	lines, err := d.load()
	if err != nil {
		return false, err
	}
	if position < 0 || position >= len(lines) {
		return false, fmt.Errorf("todo: move %d: %w", position, apperr.ErrPositionOutOfRange)
	}
	other := position + int(dir)
	if !parser.IsEntry(lines[position]) || other < 0 || other >= len(lines) || !parser.IsEntry(lines[other]) {
		return false, nil
	}

	lines[position], lines[other] = lines[other], lines[position]
	if err := d.save(parser.CollectGarbage(lines)); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Document) load() ([]string, error) {
	data, err := d.store.Read(d.path)
	if err != nil {
		return nil, fmt.Errorf("todo: load: %w", err)
	}
	return parser.SplitLines(data), nil
}

func (d *Document) save(lines []string) error {
	if err := d.store.Write(d.path, parser.JoinLines(lines)); err != nil {
		return fmt.Errorf("todo: save: %w", err)
	}
	return nil
}
