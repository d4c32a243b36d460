package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/numwords"
)

type unitKind int

const (
	unitMinutes unitKind = iota + 1
	unitHours
	unitDays
	unitWeeks
	unitMonths
	unitAM
	unitPM
)

var units = map[string]unitKind{
	"minute": unitMinutes, "minutes": unitMinutes, "mins": unitMinutes, "min": unitMinutes,
	"hrs": unitHours, "hr": unitHours, "hour": unitHours, "hours": unitHours, "horas": unitHours, "hora": unitHours,
	"day": unitDays, "days": unitDays, "dia": unitDays, "dias": unitDays,
	"week": unitWeeks, "weeks": unitWeeks, "wk": unitWeeks, "wks": unitWeeks, "semanas": unitWeeks,
	"month": unitMonths, "months": unitMonths, "mes": unitMonths, "meses": unitMonths,
	"am": unitAM,
	"pm": unitPM,
}

type symbolKind int

const (
	symbolMorning symbolKind = iota + 1
	symbolAfternoon
	symbolNight
	symbolTomorrow
	symbolWeekend
)

var symbols = map[string]symbolKind{
	"maniana": symbolMorning, "morning": symbolMorning, "early": symbolMorning, "temprano": symbolMorning,
	"noon": symbolAfternoon, "afternoon": symbolAfternoon,
	"noche": symbolNight, "night": symbolNight, "tonight": symbolNight, "tarde": symbolNight,
	"tomorrow": symbolTomorrow, "tmrw": symbolTomorrow,
	"weekend": symbolWeekend, "finde": symbolWeekend,
}

// horizonYears bounds how far ahead a duration expression may reach.
const horizonYears = 100

// Resolver converts expressions into absolute times relative to Now.
type Resolver struct {
	Now func() time.Time
}

// NewResolver returns a Resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

func (r *Resolver) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Guess extracts the expression following trigger in text and resolves it.
// ok is false when text has no trigger or the expression names nothing this
// resolver knows about; callers store the todo without a reminder then.
func (r *Resolver) Guess(text, trigger string) (at time.Time, ok bool, err error) {
	if trigger == "" {
		trigger = DefaultTrigger
	}
	expr, err := Extract(text, trigger)
	if err != nil || expr == nil {
		return time.Time{}, false, err
	}

	value, unit := expr.Value, expr.Unit
	if unit == "" {
		value, unit = splitDigits(value)
	}
	if unit == "" {
		at, ok = r.ResolveSymbolic(value)
		return at, ok, nil
	}
	return r.Resolve(value, unit)
}

// Resolve handles "<value> <unit>" expressions: durations added to now, or an
// am/pm hour of today. Unknown units resolve to nothing.
func (r *Resolver) Resolve(value, unit string) (time.Time, bool, error) {
	n := numwords.Parse(value)
	if n == 0 {
		return time.Time{}, false, fmt.Errorf("%w: expected %q to be a number", apperr.ErrInvalidReminderValue, value)
	}

	now := r.now()
	horizon := now.AddDate(horizonYears, 0, 0)
	tooFar := fmt.Errorf("%w: %s %s is more than %d years ahead", apperr.ErrInvalidReminderValue, value, unit, horizonYears)
	kind := units[strings.ToLower(unit)]
	var at time.Time
	switch kind {
	case unitMinutes:
		if n > int(horizon.Sub(now)/time.Minute) {
			return time.Time{}, false, tooFar
		}
		at = now.Add(time.Duration(n) * time.Minute)
	case unitHours:
		if n > int(horizon.Sub(now)/time.Hour) {
			return time.Time{}, false, tooFar
		}
		at = now.Add(time.Duration(n) * time.Hour)
	case unitDays:
		if n > 366*horizonYears {
			return time.Time{}, false, tooFar
		}
		at = now.AddDate(0, 0, n)
	case unitWeeks:
		if n > 53*horizonYears {
			return time.Time{}, false, tooFar
		}
		at = now.AddDate(0, 0, 7*n)
	case unitMonths:
		if n > 12*horizonYears {
			return time.Time{}, false, tooFar
		}
		at = now.AddDate(0, n, 0)
	case unitAM, unitPM:
		hour := n
		if kind == unitPM {
			hour += 12
		}
		if hour > 23 {
			return time.Time{}, false, fmt.Errorf("%w: %s%s is not an hour of the day", apperr.ErrInvalidReminderValue, value, unit)
		}
		at = time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	default:
		return time.Time{}, false, nil
	}
	if at.After(horizon) {
		return time.Time{}, false, tooFar
	}
	return notBefore(now, at), true, nil
}

// ResolveSymbolic handles single-word expressions such as "tomorrow" or
// "tonight".
func (r *Resolver) ResolveSymbolic(token string) (time.Time, bool) {
	now := r.now()
	day := func(offset, hour int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day()+offset, hour, 0, 0, 0, now.Location())
	}

	var at time.Time
	switch symbols[strings.ToLower(token)] {
	case symbolMorning:
		at = day(0, 8)
	case symbolAfternoon:
		at = day(0, 13)
	case symbolNight:
		at = day(0, 20)
	case symbolTomorrow:
		at = day(1, 8)
	case symbolWeekend:
		days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		at = day(days, 9)
	default:
		return time.Time{}, false
	}
	return notBefore(now, at), true
}

// notBefore pushes at one day forward when it is not strictly after now, so
// "9am" asked for at 10am means tomorrow. Applied to durations too.
func notBefore(now, at time.Time) time.Time {
	if !at.After(now) {
		return at.AddDate(0, 0, 1)
	}
	return at
}
