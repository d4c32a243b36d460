package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gittodo/internal/index"
	"github.com/starford/gittodo/internal/models"
	"github.com/starford/gittodo/internal/todo"
	"github.com/starford/gittodo/internal/todoservice"
)

var singleLine = validation.By(func(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, "\r\n") {
		return errors.New("must be a single line")
	}
	return nil
})

// AddRequest is the body of POST /api/add.
type AddRequest struct {
	Section string `json:"section" example:"Home"`
	Text    string `json:"text" example:"call mom @remindme in 2 hours"`
}

// Validate implements validation.Validatable.
func (r *AddRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Section, validation.Required, validation.Length(1, 200), singleLine),
		validation.Field(&r.Text, validation.Required, validation.Length(1, 2000), singleLine),
	)
}

// Direction accepts "up"/"down" as well as the -1/1 numbers sent by the web
// page.
type Direction struct {
	todo.Direction
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return errors.New("direction must be up, down, -1 or 1")
		}
		s = strconv.Itoa(n)
	}
	dir, err := todo.ParseDirection(s)
	if err != nil {
		return err
	}
	d.Direction = dir
	return nil
}

// MoveRequest is the body of POST /api/move.
type MoveRequest struct {
	Line      *int      `json:"line" example:"3"`
	Direction Direction `json:"direction" example:"up"`
}

// Validate implements validation.Validatable.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Line, validation.NotNil, validation.Min(0)),
		validation.Field(&r.Direction, validation.By(func(any) error {
			if r.Direction.Direction != todo.Up && r.Direction.Direction != todo.Down {
				return errors.New("must be up or down")
			}
			return nil
		})),
	)
}

// DoneRequest is the body of POST /api/done.
type DoneRequest struct {
	Lines []int `json:"lines" example:"3,5"`
}

// Validate implements validation.Validatable.
func (r *DoneRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Lines, validation.Required, validation.Length(1, 100),
			validation.Each(validation.Min(0))),
	)
}

// CommandRequest is the JSON form of POST /cmd.
type CommandRequest struct {
	Cmd string `json:"cmd" example:"/ls Home"`
}

// Validate implements validation.Validatable.
func (r *CommandRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Cmd, validation.Required, validation.Length(1, 4000)),
	)
}

// ActionResponse acknowledges a mutation.
type ActionResponse struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message,omitempty"`
	Text     string     `json:"text,omitempty"`
	RemindAt *time.Time `json:"remind_at,omitempty"`
}

// DoneResponse reports a batch done.
type DoneResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Items   []todoservice.DoneItem `json:"items"`
}

// TodosResponse is the structured document.
type TodosResponse struct {
	Checksum string           `json:"checksum"`
	Sections []models.Section `json:"sections"`
}

// SectionsResponse lists section names.
type SectionsResponse struct {
	Sections []string `json:"sections"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// RemindersResponse lists upcoming reminders.
type RemindersResponse struct {
	Reminders []models.Entry `json:"reminders"`
}
