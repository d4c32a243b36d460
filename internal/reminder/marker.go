package reminder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SetToken prefixes the persisted absolute reminder time inside todo text.
const SetToken = "@remind_at"

// Layout is the canonical format written into markers.
const Layout = "2006-01-02 15:04:05"

var decodeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	Layout,
	"2006-01-02 15:04",
	"2006-01-02",
}

// Mark appends a reminder marker for at to text.
func Mark(text string, at time.Time) string {
	return fmt.Sprintf("%s [%s %s]", strings.TrimSpace(text), SetToken, at.Format(Layout))
}

// Decode returns the time stored in text's reminder marker. A marker whose
// time can't be parsed is logged and treated as no reminder.
func Decode(text string) (time.Time, bool) {
	prefix := "[" + SetToken + " "
	i := strings.Index(text, prefix)
	if i < 0 {
		return time.Time{}, false
	}
	raw := text[i+len(prefix):]
	if end := strings.Index(raw, "]"); end >= 0 {
		raw = raw[:end]
	}

	for _, layout := range decodeLayouts {
		if at, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return at, true
		}
	}
	slog.Error("reminder: invalid date in marker", slog.String("todo", strings.TrimSpace(text)))
	return time.Time{}, false
}
