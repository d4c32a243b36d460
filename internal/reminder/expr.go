// Package reminder turns free-form reminder expressions ("@remindme in 2 days",
// "@remindme tomorrow") into absolute times and keeps those times in todo text
// as a "[@remind_at ...]" marker.
package reminder

import (
	"fmt"
	"strings"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/numwords"
)

// DefaultTrigger starts a user-written reminder expression.
const DefaultTrigger = "@remindme"

var fillerWords = map[string]struct{}{"in": {}, "at": {}}

// Expression is the raw value/unit pair found after a trigger. Unit is empty
// for symbolic expressions such as "tomorrow" or "25th".
type Expression struct {
	Value string
	Unit  string
}

// Symbolic reports whether the expression has no unit.
func (e Expression) Symbolic() bool { return e.Unit == "" }

// Extract locates trigger in text and returns the expression that follows it.
// It returns nil, nil when the trigger is absent.
func Extract(text, trigger string) (*Expression, error) {
	pos := strings.Index(text, trigger)
	if pos < 0 {
		return nil, nil
	}

	tokens := strings.Fields(text[pos+len(trigger):])
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no time after %s in %q", apperr.ErrMalformedReminder, trigger, text)
	}
	for i := range tokens {
		tokens[i] = strings.ToLower(tokens[i])
	}

	first := tokens[0]
	_, filler := fillerWords[first]
	if numwords.Parse(first) == 0 && !filler {
		return &Expression{Value: first}, nil
	}

	if len(tokens) == 1 {
		return nil, fmt.Errorf("%w: found %q but no unit of time", apperr.ErrMalformedReminder, first)
	}
	if filler && len(tokens) > 2 {
		return &Expression{Value: tokens[1], Unit: tokens[2]}, nil
	}
	return &Expression{Value: tokens[0], Unit: tokens[1]}, nil
}

// splitDigits breaks a token like "25th" into ("25", "th"). Tokens that do not
// start with a digit are returned unchanged with an empty unit.
func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
