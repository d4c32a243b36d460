package scheduler

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

var errNoSender = errors.New("scheduler: no sender registered")

// once is a cron.Schedule that activates a single time. The runner asks for
// Next once before the run and once after it; the first answer is at even if
// that is already past, so a reminder falling due between Reload and the
// runner's start still fires. A zero Next tells the runner the entry is done.
type once struct {
	at   time.Time
	used atomic.Bool
}

func (o *once) Next(time.Time) time.Time {
	if o.used.Swap(true) {
		return time.Time{}
	}
	return o.at
}

type job struct {
	s          *Scheduler
	id         cron.EntryID
	generation uint64
	at         time.Time
	text       string
}

func (j *job) Run() { j.s.deliver(j) }
