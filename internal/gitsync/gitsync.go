// Package gitsync keeps the todo file in step with a git remote. Local
// updates are committed and pushed after a quiet period so a burst of
// changes lands as one commit; the remote is pulled on a cron schedule.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CommitMessage is used for every automatic commit.
const CommitMessage = "ToDo file updated by GitToDo"

// DefaultPullSchedule pulls every morning and every evening.
var DefaultPullSchedule = []string{"0 8 * * *", "0 21 * * *"}

// FailureHandler receives every failed git operation.
type FailureHandler func(op string, err error)

// Option configures a Syncer.
type Option func(*Syncer)

// WithCommitDelay sets the quiet period between the last update and the
// commit. Zero commits right away.
func WithCommitDelay(d time.Duration) Option {
	return func(s *Syncer) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithPullSchedule replaces the cron specs used for periodic pulls.
func WithPullSchedule(specs []string) Option {
	return func(s *Syncer) {
		s.pullSpecs = specs
	}
}

// WithRunner replaces the git command runner.
func WithRunner(r Runner) Option {
	return func(s *Syncer) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithResultHook registers fn to observe the outcome of every operation.
func WithResultHook(fn func(op string, err error)) Option {
	return func(s *Syncer) {
		s.onResult = fn
	}
}

// Syncer commits, pulls and pushes a single file of a git work tree.
type Syncer struct {
	dir       string
	file      string
	delay     time.Duration
	pullSpecs []string
	runner    Runner
	logger    *slog.Logger
	onResult  func(op string, err error)

	gitMu sync.Mutex // serialises git invocations

	mu       sync.Mutex
	timer    *time.Timer
	cron     *cron.Cron
	failures []FailureHandler
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	stopped  bool
}

// New creates a syncer for the file at path. The git work tree is the
// directory holding the file.
func New(path string, logger *slog.Logger, opts ...Option) (*Syncer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("gitsync: resolve %s: %w", path, err)
	}
	s := &Syncer{
		dir:       filepath.Dir(abs),
		file:      filepath.Base(abs),
		delay:     5 * time.Minute,
		pullSpecs: DefaultPullSchedule,
		runner:    ExecRunner{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// OnFailure registers fn to be told about failed operations.
func (s *Syncer) OnFailure(fn FailureHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, fn)
}

// Start installs the periodic pulls.
func (s *Syncer) Start() error {
	c := cron.New()
	for _, spec := range s.pullSpecs {
		if _, err := c.AddFunc(spec, s.scheduledPull); err != nil {
			return fmt.Errorf("gitsync: pull schedule %q: %w", spec, err)
		}
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.logger.Info("gitsync: started",
		slog.String("dir", s.dir),
		slog.String("file", s.file),
		slog.Duration("commit_delay", s.delay))
	return nil
}

// Stop cancels a pending commit and the pull schedule, then waits for running
// operations until ctx is done.
func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		if s.timer.Stop() {
			s.inflight.Done()
		}
		s.timer = nil
	}
	var cronDone context.Context
	if s.cron != nil {
		cronDone = s.cron.Stop()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if cronDone != nil {
			<-cronDone.Done()
		}
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("gitsync: stop: %w", ctx.Err())
	}
}

// Notify tells the syncer the file changed. Each call restarts the quiet
// period, so only the last of a burst of updates schedules a commit. It is
// a no-op once Stop was called.
func (s *Syncer) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("gitsync: change noted after stop, not committed")
		return
	}
	if s.timer != nil && s.timer.Stop() {
		s.inflight.Done()
	}
	s.logger.Info("gitsync: change noted, commit scheduled", slog.Duration("in", s.delay))
	s.inflight.Add(1)
	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		defer s.inflight.Done()
		s.mu.Lock()
		current := s.timer == t
		if current {
			s.timer = nil
		}
		s.mu.Unlock()
		if !current {
			return
		}
		_ = s.Commit(s.ctx)
	})
	s.timer = t
}

// Flush runs a commit scheduled by Notify right away. It is a no-op when no
// commit is waiting.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer == nil || !s.timer.Stop() {
		s.mu.Unlock()
		return nil
	}
	s.timer = nil
	s.inflight.Done()
	s.mu.Unlock()
	return s.Commit(ctx)
}

// Commit adds and commits the file when it has changes, then pulls and
// pushes.
func (s *Syncer) Commit(ctx context.Context) error {
	s.gitMu.Lock()
	defer s.gitMu.Unlock()

	s.logger.Info("gitsync: committing and pushing", slog.String("file", s.file))
	err := s.commit(ctx)
	s.report("commit", err)
	return err
}

func (s *Syncer) commit(ctx context.Context) error {
	status, err := s.runner.Run(ctx, s.dir, "status", "--porcelain", "--", s.file)
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) != "" {
		if _, err := s.runner.Run(ctx, s.dir, "add", s.file); err != nil {
			return err
		}
		if _, err := s.runner.Run(ctx, s.dir, "commit", "-m", CommitMessage); err != nil {
			return err
		}
	} else {
		s.logger.Debug("gitsync: nothing to commit")
	}
	// Pull before push; only works when pull is configured to rebase.
	if _, err := s.runner.Run(ctx, s.dir, "pull"); err != nil {
		return err
	}
	_, err = s.runner.Run(ctx, s.dir, "push")
	return err
}

// Pull fetches and merges remote changes.
func (s *Syncer) Pull(ctx context.Context) error {
	s.gitMu.Lock()
	defer s.gitMu.Unlock()

	s.logger.Info("gitsync: pulling")
	_, err := s.runner.Run(ctx, s.dir, "pull")
	s.report("pull", err)
	return err
}

// Push sends local commits to the remote.
func (s *Syncer) Push(ctx context.Context) error {
	s.gitMu.Lock()
	defer s.gitMu.Unlock()

	s.logger.Info("gitsync: pushing")
	_, err := s.runner.Run(ctx, s.dir, "push")
	s.report("push", err)
	return err
}

func (s *Syncer) scheduledPull() {
	_ = s.Pull(s.ctx)
}

func (s *Syncer) report(op string, err error) {
	if s.onResult != nil {
		s.onResult(op, err)
	}
	if err == nil {
		return
	}
	s.logger.Error("gitsync: operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()))

	s.mu.Lock()
	handlers := append([]FailureHandler(nil), s.failures...)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(op, err)
	}
}
