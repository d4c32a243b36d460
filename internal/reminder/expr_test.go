package reminder

import (
	"errors"
	"testing"

	"github.com/starford/gittodo/internal/apperr"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		text string
		want Expression
	}{
		{"buy milk @remindme in 2 days", Expression{Value: "2", Unit: "days"}},
		{"call mom @remindme tomorrow", Expression{Value: "tomorrow"}},
		{"pay rent @remindme two Weeks", Expression{Value: "two", Unit: "weeks"}},
		{"standup @remindme at 9 am", Expression{Value: "9", Unit: "am"}},
		{"standup @remindme 9am", Expression{Value: "9am"}},
		{"bills @remindme 25th", Expression{Value: "25th"}},
		// Filler followed by a single token falls through to the two-token case.
		{"x @remindme in 5", Expression{Value: "in", Unit: "5"}},
	}
	for _, c := range cases {
		got, err := Extract(c.text, DefaultTrigger)
		if err != nil {
			t.Errorf("Extract(%q): %v", c.text, err)
			continue
		}
		if got == nil || *got != c.want {
			t.Errorf("Extract(%q) = %+v, want %+v", c.text, got, c.want)
		}
	}
}

func TestExtract_NoTrigger(t *testing.T) {
	got, err := Extract("buy milk", DefaultTrigger)
	if err != nil || got != nil {
		t.Errorf("Extract = %+v, %v; want nil, nil", got, err)
	}
}

func TestExtract_Malformed(t *testing.T) {
	for _, text := range []string{"ping @remindme", "ping @remindme   ", "ping @remindme 3"} {
		_, err := Extract(text, DefaultTrigger)
		if !errors.Is(err, apperr.ErrMalformedReminder) {
			t.Errorf("Extract(%q) err = %v, want ErrMalformedReminder", text, err)
		}
	}
}

func TestExtract_CustomTrigger(t *testing.T) {
	got, err := Extract("water plants !r tonight", "!r")
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != "tonight" || !got.Symbolic() {
		t.Errorf("got %+v", got)
	}
}

func TestSplitDigits(t *testing.T) {
	v, u := splitDigits("25th")
	if v != "25" || u != "th" {
		t.Errorf("splitDigits(25th) = %q, %q", v, u)
	}
	v, u = splitDigits("tomorrow")
	if v != "tomorrow" || u != "" {
		t.Errorf("splitDigits(tomorrow) = %q, %q", v, u)
	}
	v, u = splitDigits("42")
	if v != "42" || u != "" {
		t.Errorf("splitDigits(42) = %q, %q", v, u)
	}
}
