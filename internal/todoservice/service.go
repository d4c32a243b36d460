// Package todoservice coordinates the todo document with everything that
// reacts to it: the search index, the reminder scheduler, git sync, metrics
// and live events. Every front end (HTTP, MCP, chat, CLI) goes through it.
package todoservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/checksum"
	"github.com/starford/gittodo/internal/index"
	"github.com/starford/gittodo/internal/metrics"
	"github.com/starford/gittodo/internal/models"
	"github.com/starford/gittodo/internal/parser"
	"github.com/starford/gittodo/internal/reminder"
	"github.com/starford/gittodo/internal/sse"
	"github.com/starford/gittodo/internal/todo"
)

// GitSyncer is the part of gitsync.Syncer the service drives.
type GitSyncer interface {
	Notify()
	Pull(ctx context.Context) error
	Commit(ctx context.Context) error
}

// Reloader rebuilds the reminder schedule from the document.
type Reloader interface {
	Reload() (int, error)
}

// Publisher broadcasts document changes to live clients.
type Publisher interface {
	PublishChange(c sse.DocumentChange)
}

// Option configures a Service.
type Option func(*Service)

// WithGit enables commit notifications and the pull/push commands.
func WithGit(g GitSyncer) Option { return func(s *Service) { s.git = g } }

// WithScheduler reloads reminders after every change.
func WithScheduler(r Reloader) Option { return func(s *Service) { s.sched = r } }

// WithEvents publishes every change.
func WithEvents(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithMetrics records mutations and commands.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithResolver replaces the reminder resolver, mostly to pin the clock.
func WithResolver(r *reminder.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithTrigger sets the word that introduces a reminder expression.
func WithTrigger(trigger string) Option {
	return func(s *Service) {
		if trigger != "" {
			s.trigger = trigger
		}
	}
}

// Service is safe for concurrent use. Mutating operations are serialised so
// a multi-entry done sees stable line positions.
type Service struct {
	doc      *todo.Document
	db       index.TodoIndex
	logger   *slog.Logger
	resolver *reminder.Resolver
	trigger  string

	git     GitSyncer
	sched   Reloader
	events  Publisher
	metrics *metrics.Metrics

	mu sync.Mutex
}

// New creates a service over doc and its index.
func New(doc *todo.Document, db index.TodoIndex, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		doc:      doc,
		db:       db,
		logger:   logger,
		resolver: reminder.NewResolver(),
		trigger:  reminder.DefaultTrigger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document exposes the underlying document for read-only consumers.
func (s *Service) Document() *todo.Document { return s.doc }

// Raw returns the file content.
func (s *Service) Raw() ([]byte, error) { return s.doc.Raw() }

// ReadAll renders the numbered listing.
func (s *Service) ReadAll() (string, error) { return s.doc.ReadAll() }

// ListSections renders the heading list.
func (s *Service) ListSections() (string, error) { return s.doc.ListSections() }

// ReadSection renders one section's numbered entries.
func (s *Service) ReadSection(name string) (string, error) { return s.doc.ReadSection(name) }

// Sections returns the structured sections with their entries.
func (s *Service) Sections() ([]models.Section, error) {
	res, err := s.doc.Snapshot()
	if err != nil {
		return nil, err
	}
	return nonNil(res.Sections), nil
}

// SectionNames returns the heading names in document order.
func (s *Service) SectionNames() ([]string, error) {
	names, err := s.doc.Sections()
	return nonNil(names), err
}

// Search runs a full-text query over the indexed entries.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidArgument)
	}
	res, err := s.db.Search(query, limit)
	return nonNil(res), err
}

// Upcoming lists entries with a reminder still ahead, soonest first.
func (s *Service) Upcoming(limit int) ([]models.Entry, error) {
	res, err := s.db.Upcoming(time.Now(), limit)
	return nonNil(res), err
}

// AddResult describes a stored todo.
type AddResult struct {
	Section  string     `json:"section"`
	Text     string     `json:"text"`
	RemindAt *time.Time `json:"remind_at,omitempty"`
	Message  string     `json:"message"`
}

// Add stores text under section. A reminder expression in the text is
// resolved and recorded as a marker; an expression that can't be parsed is
// reported in the message but doesn't stop the todo from being stored.
func (s *Service) Add(_ context.Context, section, text string) (*AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &AddResult{Section: strings.TrimSpace(section), Text: strings.TrimSpace(text), Message: "OK"}
	at, ok, err := s.resolver.Guess(res.Text, s.trigger)
	switch {
	case err != nil:
		s.logger.Info("todoservice: unparseable reminder",
			slog.String("todo", res.Text),
			slog.String("error", err.Error()))
		res.Message = fmt.Sprintf("ToDo added. Detected a reminder, but can't parse it: %v", err)
	case ok:
		res.Text = reminder.Mark(res.Text, at)
		at = at.Truncate(time.Second)
		res.RemindAt = &at
		res.Message = "OK. Set reminder for " + at.Format(reminder.Layout)
	}

	err = s.doc.Append(res.Section, res.Text)
	s.metrics.ObserveMutation("add", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("todoservice: todo added", slog.String("section", res.Section))
	s.changed(sse.OriginLocal)
	return res, nil
}

// Outcome is what happened to one position passed to Done.
type Outcome string

const (
	OutcomeDeleted      Outcome = "deleted"
	OutcomeMissing      Outcome = "missing"
	OutcomeNotDeletable Outcome = "not_deletable"
)

// DoneItem reports what happened to one requested position.
type DoneItem struct {
	Position int        `json:"line"`
	Outcome  Outcome    `json:"outcome"`
	Text     string     `json:"text,omitempty"`
	RemindAt *time.Time `json:"remind_at,omitempty"`
}

// String renders the item the way chat replies show it.
func (i DoneItem) String() string {
	switch i.Outcome {
	case OutcomeMissing:
		return fmt.Sprintf("ToDo %d doesn't exist", i.Position)
	case OutcomeNotDeletable:
		return fmt.Sprintf("ToDo #%d can't be deleted", i.Position)
	}
	if i.RemindAt != nil {
		return fmt.Sprintf("ToDo #%d deleted. Also removed reminder set for %s - %s",
			i.Position, i.RemindAt.Format(reminder.Layout), i.Text)
	}
	return fmt.Sprintf("ToDo #%d deleted", i.Position)
}

// DoneReport lists the per-position outcomes of Done, highest position first.
type DoneReport struct {
	Items []DoneItem `json:"items"`
}

// Deleted counts the entries actually removed.
func (r DoneReport) Deleted() int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == OutcomeDeleted {
			n++
		}
	}
	return n
}

func (r DoneReport) String() string {
	if len(r.Items) == 0 {
		return "Nothing changed?"
	}
	lines := make([]string, len(r.Items))
	for i, it := range r.Items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}

// Done removes every position. Positions are processed from the highest
// down so removing one never shifts another still to be removed. Failures
// are reported per position and don't stop the batch.
func (s *Service) Done(_ context.Context, positions ...int) (DoneReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := append([]int(nil), positions...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	var report DoneReport
	seen := make(map[int]bool, len(ordered))
	for _, pos := range ordered {
		if seen[pos] {
			continue
		}
		seen[pos] = true

		item := DoneItem{Position: pos}
		removed, err := s.doc.Delete(pos)
		s.metrics.ObserveMutation("done", err)
		switch {
		case errors.Is(err, apperr.ErrPositionOutOfRange):
			item.Outcome = OutcomeMissing
		case errors.Is(err, apperr.ErrNotDeletable):
			item.Outcome = OutcomeNotDeletable
		case err != nil:
			if report.Deleted() > 0 {
				s.changed(sse.OriginLocal)
			}
			return report, err
		default:
			item.Outcome = OutcomeDeleted
			item.Text = parser.DisplayText(removed)
			if at, ok := reminder.Decode(removed); ok {
				item.RemindAt = &at
				s.logger.Info("todoservice: removed todo had a reminder",
					slog.Int("line", pos),
					slog.Time("at", at))
			}
		}
		report.Items = append(report.Items, item)
	}

	if report.Deleted() > 0 {
		s.changed(sse.OriginLocal)
	}
	return report, nil
}

// Move swaps the entry at position with its neighbour. It returns false when
// the move isn't possible (section boundary or non-entry line).
func (s *Service) Move(_ context.Context, position int, dir todo.Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved, err := s.doc.Move(position, dir)
	s.metrics.ObserveMutation("move", err)
	if err != nil || !moved {
		return false, err
	}
	s.changed(sse.OriginLocal)
	return true, nil
}

// Pull fetches remote changes and refreshes everything derived from the file.
func (s *Service) Pull(ctx context.Context) error {
	if s.git == nil {
		return fmt.Errorf("%w: git sync is disabled", apperr.ErrInvalidArgument)
	}
	if err := s.git.Pull(ctx); err != nil {
		return err
	}
	s.changed(sse.OriginExternal)
	return nil
}

// Push commits pending changes and pushes them.
func (s *Service) Push(ctx context.Context) error {
	if s.git == nil {
		return fmt.Errorf("%w: git sync is disabled", apperr.ErrInvalidArgument)
	}
	return s.git.Commit(ctx)
}

// Refresh is the watcher callback: the file was changed by something other
// than this service. The change is not committed.
func (s *Service) Refresh() {
	s.changed(sse.OriginExternal)
}

// changed propagates a new document revision. Local changes are also handed
// to git for a delayed commit.
func (s *Service) changed(origin sse.Origin) {
	if _, err := index.Sync(s.db, s.doc, s.logger); err != nil {
		s.logger.Error("todoservice: index sync failed", slog.String("error", err.Error()))
	}
	entries := 0
	if n, err := s.db.Count(); err == nil {
		entries = n
		s.metrics.ObserveIndexSync(n)
	}

	if s.sched != nil {
		n, err := s.sched.Reload()
		if err != nil {
			s.logger.Error("todoservice: reminder reload failed", slog.String("error", err.Error()))
		}
		s.metrics.SetPendingReminders(n)
	}

	if s.events != nil {
		sum, _ := s.doc.Checksum()
		s.events.PublishChange(sse.DocumentChange{Origin: origin, Checksum: sum, Entries: entries})
		s.logger.Debug("todoservice: change published",
			slog.String("origin", string(origin)),
			slog.String("checksum", checksum.Short(sum)))
	}

	if origin == sse.OriginLocal && s.git != nil {
		s.git.Notify()
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
