// Package scheduler fires one-shot reminders for todo entries whose text
// carries a "[@remind_at ...]" marker.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/gittodo/internal/models"
)

// Sender delivers a reminder. Delivery is fire-and-forget: errors are logged
// and never retried.
type Sender interface {
	SendReminder(ctx context.Context, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, text string) error

// SendReminder calls f.
func (f SenderFunc) SendReminder(ctx context.Context, text string) error { return f(ctx, text) }

// EntrySource lists the current todo entries.
type EntrySource interface {
	Entries() ([]models.Entry, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used to skip past reminders.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone of the underlying cron runner.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithFireHook registers fn to run after every delivery attempt, with the
// delivery error (nil on success).
func WithFireHook(fn func(text string, err error)) Option {
	return func(s *Scheduler) {
		s.onFire = fn
	}
}

// Scheduler owns the pending reminder jobs. Each Reload throws away the
// current cron runner and its jobs and builds a fresh one from the document,
// so the schedule always matches the file, whatever edited it.
type Scheduler struct {
	src    EntrySource
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
	onFire func(text string, err error)

	mu         sync.Mutex
	cron       *cron.Cron
	generation uint64
	pending    map[cron.EntryID]*job
	sender     Sender
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
}

// New creates a stopped scheduler reading entries from src.
func New(src EntrySource, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		src:     src,
		logger:  logger,
		now:     time.Now,
		loc:     time.Local,
		pending: make(map[cron.EntryID]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = s.newCron()
	return s
}

func (s *Scheduler) newCron() *cron.Cron {
	return cron.New(cron.WithLocation(s.loc))
}

// RegisterSender binds the delivery channel. It is set after construction
// because the chat bot that delivers reminders is itself built later.
func (s *Scheduler) RegisterSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// Start launches the cron runner and loads the current reminders.
func (s *Scheduler) Start() (int, error) {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return s.Reload()
}

// Shutdown stops the runner, cancels every pending reminder and waits for
// in-flight deliveries until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.started = false
	s.generation++
	s.pending = make(map[cron.EntryID]*job)
	stopped := s.cron.Stop()
	s.cancel()
	s.mu.Unlock()

	select {
	case <-stopped.Done():
		s.logger.Info("scheduler: stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: shutdown: %w", ctx.Err())
	}
}

// Reload cancels every pending reminder and schedules one job per entry
// whose reminder is still in the future. It returns the number of jobs.
func (s *Scheduler) Reload() (int, error) {
	entries, err := s.src.Entries()
	if err != nil {
		return 0, fmt.Errorf("scheduler: reload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// In-flight jobs of the old runner finish on their own; they can't fire
	// twice and jobs of a stale generation are dropped before delivery.
	s.cron.Stop()
	s.generation++
	s.cron = s.newCron()
	s.pending = make(map[cron.EntryID]*job)

	now := s.now()
	for _, e := range entries {
		if e.RemindAt == nil || !e.RemindAt.After(now) {
			continue
		}
		j := &job{s: s, generation: s.generation, at: *e.RemindAt, text: e.Text}
		j.id = s.cron.Schedule(&once{at: *e.RemindAt}, j)
		s.pending[j.id] = j
		s.logger.Info("scheduler: reminder scheduled",
			slog.Time("at", *e.RemindAt),
			slog.String("todo", e.Text))
	}

	if s.started {
		s.cron.Start()
	}
	return len(s.pending), nil
}

// Pending returns the number of reminders waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Jobs returns the pending reminders ordered by fire time.
func (s *Scheduler) Jobs() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Entry, 0, len(s.pending))
	for _, e := range s.cron.Entries() {
		j, ok := s.pending[e.ID]
		if !ok {
			continue
		}
		at := j.at
		out = append(out, models.Entry{Text: j.text, RemindAt: &at})
	}
	return out
}

// claim removes j from the pending set. It fails for jobs from an older
// generation or jobs that already ran.
func (s *Scheduler) claim(j *job) (Sender, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.generation != s.generation {
		return nil, false
	}
	if _, ok := s.pending[j.id]; !ok {
		return nil, false
	}
	delete(s.pending, j.id)
	return s.sender, true
}

func (s *Scheduler) deliver(j *job) {
	sender, ok := s.claim(j)
	if !ok {
		s.logger.Debug("scheduler: stale reminder dropped", slog.String("todo", j.text))
		return
	}
	if sender == nil {
		s.logger.Error("scheduler: no sender registered, reminder lost", slog.String("todo", j.text))
		s.fired(j.text, errNoSender)
		return
	}

	s.logger.Info("scheduler: sending reminder", slog.Time("at", j.at), slog.String("todo", j.text))
	err := sender.SendReminder(s.ctx, j.text)
	if err != nil {
		s.logger.Error("scheduler: send reminder failed",
			slog.String("todo", j.text),
			slog.String("error", err.Error()))
	}
	s.fired(j.text, err)
}

func (s *Scheduler) fired(text string, err error) {
	if s.onFire != nil {
		s.onFire(text, err)
	}
}
