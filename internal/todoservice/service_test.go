package todoservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/reminder"
	"github.com/starford/gittodo/internal/sse"
	"github.com/starford/gittodo/internal/testutil"
	"github.com/starford/gittodo/internal/todo"
)

const fixture = "## Home\n* fix sink\n* water plants\n\n## Work\n* ship release\n"

// Wednesday 2026-10-14 15:30.
var wednesday = time.Date(2026, 10, 14, 15, 30, 0, 0, time.Local)

type fakeGit struct {
	mu       sync.Mutex
	notifies int
	pulls    int
	commits  int
	err      error
}

func (g *fakeGit) Notify() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notifies++
}

func (g *fakeGit) Pull(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pulls++
	return g.err
}

func (g *fakeGit) Commit(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits++
	return g.err
}

type fakeReloader struct{ reloads int }

func (r *fakeReloader) Reload() (int, error) {
	r.reloads++
	return 0, nil
}

type fakeEvents struct{ changes []sse.DocumentChange }

func (e *fakeEvents) PublishChange(c sse.DocumentChange) { e.changes = append(e.changes, c) }

type env struct {
	svc    *Service
	doc    *todo.Document
	git    *fakeGit
	sched  *fakeReloader
	events *fakeEvents
}

func newEnv(t *testing.T, content string) *env {
	t.Helper()
	_, doc := testutil.TestDocument(t, content)
	e := &env{doc: doc, git: &fakeGit{}, sched: &fakeReloader{}, events: &fakeEvents{}}
	e.svc = New(doc, testutil.TestDB(t), testutil.Logger(),
		WithGit(e.git),
		WithScheduler(e.sched),
		WithEvents(e.events),
		WithResolver(&reminder.Resolver{Now: func() time.Time { return wednesday }}),
	)
	return e
}

func (e *env) raw(t *testing.T) string {
	t.Helper()
	data, err := e.doc.Raw()
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestAdd_Plain(t *testing.T) {
	e := newEnv(t, fixture)

	res, err := e.svc.Add(context.Background(), "work", "write changelog")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Message != "OK" || res.RemindAt != nil {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(e.raw(t), "## Work\n* write changelog\n* ship release\n") {
		t.Errorf("document = %q", e.raw(t))
	}
	if e.git.notifies != 1 || e.sched.reloads != 1 || len(e.events.changes) != 1 {
		t.Errorf("notifies=%d reloads=%d events=%d", e.git.notifies, e.sched.reloads, len(e.events.changes))
	}
	if e.events.changes[0].Origin != sse.OriginLocal || e.events.changes[0].Entries != 4 {
		t.Errorf("change = %+v", e.events.changes[0])
	}
}

func TestAdd_WithReminder(t *testing.T) {
	e := newEnv(t, fixture)

	res, err := e.svc.Add(context.Background(), "Home", "call mom @remindme in 2 hours")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Message != "OK. Set reminder for 2026-10-14 17:30:00" {
		t.Errorf("message = %q", res.Message)
	}
	want := "* call mom @remindme in 2 hours [@remind_at 2026-10-14 17:30:00]\n"
	if !strings.Contains(e.raw(t), want) {
		t.Errorf("document = %q, want line %q", e.raw(t), want)
	}
	if res.RemindAt == nil || !res.RemindAt.Equal(wednesday.Add(2*time.Hour)) {
		t.Errorf("remind_at = %v", res.RemindAt)
	}
}

func TestAdd_UnparseableReminderStillStored(t *testing.T) {
	e := newEnv(t, fixture)

	res, err := e.svc.Add(context.Background(), "Home", "buy milk @remindme")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !strings.HasPrefix(res.Message, "ToDo added. Detected a reminder, but can't parse it:") {
		t.Errorf("message = %q", res.Message)
	}
	if !strings.Contains(e.raw(t), "* buy milk @remindme\n") {
		t.Errorf("document = %q", e.raw(t))
	}
}

func TestAdd_Invalid(t *testing.T) {
	e := newEnv(t, fixture)

	_, err := e.svc.Add(context.Background(), "Home", "   ")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
	if e.git.notifies != 0 {
		t.Error("failed add notified git")
	}
}

func TestDone_DescendingWithReport(t *testing.T) {
	e := newEnv(t, fixture)

	report, err := e.svc.Done(context.Background(), 1, 5, 0, 42)
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
	want := strings.Join([]string{
		"ToDo 42 doesn't exist",
		"ToDo #5 deleted",
		"ToDo #1 deleted",
		"ToDo #0 can't be deleted",
	}, "\n")
	if report.String() != want {
		t.Errorf("report =\n%s\nwant\n%s", report, want)
	}
	if report.Deleted() != 2 {
		t.Errorf("deleted = %d", report.Deleted())
	}
	if got := e.raw(t); got != "## Home\n* water plants\n\n" {
		t.Errorf("document = %q", got)
	}
	if e.git.notifies != 1 {
		t.Errorf("notifies = %d, want one per batch", e.git.notifies)
	}
}

func TestDone_ReportsRemovedReminder(t *testing.T) {
	e := newEnv(t, "## Home\n* call mom [@remind_at 2026-10-14 17:30:00]\n")

	report, err := e.svc.Done(context.Background(), 1)
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
	want := "ToDo #1 deleted. Also removed reminder set for 2026-10-14 17:30:00 - call mom [@remind_at 2026-10-14 17:30:00]"
	if report.String() != want {
		t.Errorf("report = %q", report.String())
	}
}

func TestDone_NothingChanged(t *testing.T) {
	e := newEnv(t, fixture)

	report, err := e.svc.Done(context.Background())
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
	if report.String() != "Nothing changed?" {
		t.Errorf("report = %q", report.String())
	}
	if len(e.events.changes) != 0 {
		t.Error("no-op done published a change")
	}
}

func TestMove(t *testing.T) {
	e := newEnv(t, fixture)

	moved, err := e.svc.Move(context.Background(), 2, todo.Up)
	if err != nil || !moved {
		t.Fatalf("Move = %v, %v", moved, err)
	}
	if !strings.HasPrefix(e.raw(t), "## Home\n* water plants\n* fix sink\n") {
		t.Errorf("document = %q", e.raw(t))
	}

	moved, err = e.svc.Move(context.Background(), 1, todo.Up)
	if err != nil || moved {
		t.Errorf("move onto heading = %v, %v", moved, err)
	}
	if e.git.notifies != 1 {
		t.Errorf("notifies = %d", e.git.notifies)
	}
}

func TestRefresh_ExternalNotCommitted(t *testing.T) {
	e := newEnv(t, fixture)

	e.svc.Refresh()
	if e.git.notifies != 0 {
		t.Error("external change scheduled a commit")
	}
	if len(e.events.changes) != 1 || e.events.changes[0].Origin != sse.OriginExternal {
		t.Errorf("changes = %+v", e.events.changes)
	}
	if e.sched.reloads != 1 {
		t.Errorf("reloads = %d", e.sched.reloads)
	}
}

func TestSearch_AfterAdd(t *testing.T) {
	e := newEnv(t, fixture)
	if _, err := e.svc.Add(context.Background(), "Home", "descale kettle"); err != nil {
		t.Fatal(err)
	}

	results, err := e.svc.Search("kettle", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Line != 1 {
		t.Errorf("results = %+v", results)
	}

	if _, err := e.svc.Search("  ", 10); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty query err = %v", err)
	}
}

func TestPullPush(t *testing.T) {
	e := newEnv(t, fixture)

	if err := e.svc.Pull(context.Background()); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if err := e.svc.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if e.git.pulls != 1 || e.git.commits != 1 {
		t.Errorf("pulls=%d commits=%d", e.git.pulls, e.git.commits)
	}
	if e.git.notifies != 0 {
		t.Error("pull scheduled a commit")
	}
}

func TestPull_GitDisabled(t *testing.T) {
	_, doc := testutil.TestDocument(t, fixture)
	svc := New(doc, testutil.TestDB(t), testutil.Logger())

	if err := svc.Pull(context.Background()); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}

func TestAdd_ReminderBeyondHorizon(t *testing.T) {
	e := newEnv(t, fixture)

	res, err := e.svc.Add(context.Background(), "Home", "descale kettle @remindme 9999999 hours")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.RemindAt != nil || !strings.HasPrefix(res.Message, "ToDo added. Detected a reminder, but can't parse it") {
		t.Errorf("result = %+v", res)
	}
	raw := e.raw(t)
	if !strings.Contains(raw, "* descale kettle @remindme 9999999 hours\n") || strings.Contains(raw, reminder.SetToken) {
		t.Errorf("document = %q", raw)
	}
}
