package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/checksum"
	"github.com/starford/gittodo/internal/todoservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *todoservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *todoservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Raw handles GET /raw: the todo file as plain text.
func (h *Handler) Raw(w http.ResponseWriter, _ *http.Request) {
	data, err := h.svc.Raw()
	if err != nil {
		writeError(w, "read raw", err)
		return
	}
	w.Header().Set("ETag", `"`+checksum.Short(checksum.Sum(data))+`"`)
	writeText(w, http.StatusOK, string(data))
}

// CommandHelp handles GET /cmd.
func (h *Handler) CommandHelp(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, todoservice.Usage+
		"\nUsage: POST to /cmd with a 'cmd' form field or a JSON {\"cmd\": ...} body\n"+
		"Example: curl -X POST -d \"cmd=/ls\" http://localhost:8080/cmd\n")
}

// Command handles POST /cmd. It answers in plain text, like the chat bot.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	var input string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req CommandRequest
		if !decode(w, r, &req) {
			return
		}
		input = req.Cmd
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		input = r.FormValue("cmd")
	}

	reply, err := h.svc.ProcessCommand(r.Context(), input)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			writeError(w, "command", err)
			return
		}
		writeText(w, status, "Error: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, reply)
}

// Todos handles GET /api/todos.
func (h *Handler) Todos(w http.ResponseWriter, _ *http.Request) {
	data, err := h.svc.Raw()
	if err != nil {
		writeError(w, "read todos", err)
		return
	}
	sections, err := h.svc.Sections()
	if err != nil {
		writeError(w, "read todos", err)
		return
	}
	writeJSON(w, http.StatusOK, TodosResponse{Checksum: checksum.Sum(data), Sections: sections})
}

// Sections handles GET /api/sections.
func (h *Handler) Sections(w http.ResponseWriter, _ *http.Request) {
	names, err := h.svc.SectionNames()
	if err != nil {
		writeError(w, "list sections", err)
		return
	}
	writeJSON(w, http.StatusOK, SectionsResponse{Sections: names})
}

// Section handles GET /api/sections/{name}.
func (h *Handler) Section(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Document().Section(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "read section", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Add handles POST /api/add.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Add(r.Context(), req.Section, req.Text)
	if err != nil {
		writeError(w, "add", err)
		return
	}
	writeJSON(w, http.StatusCreated, ActionResponse{
		Success:  true,
		Message:  res.Message,
		Text:     res.Text,
		RemindAt: res.RemindAt,
	})
}

// Done handles POST /api/done/{line}.
func (h *Handler) Done(w http.ResponseWriter, r *http.Request) {
	line, err := strconv.Atoi(chi.URLParam(r, "line"))
	if err != nil || line < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("line must be a non-negative integer"))
		return
	}
	report, err := h.svc.Done(r.Context(), line)
	if err != nil {
		writeError(w, "done", err)
		return
	}
	item := report.Items[0]
	switch item.Outcome {
	case todoservice.OutcomeMissing:
		writeError(w, "done", apperr.ErrPositionOutOfRange)
	case todoservice.OutcomeNotDeletable:
		writeError(w, "done", apperr.ErrNotDeletable)
	default:
		writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: item.String(), Text: item.Text, RemindAt: item.RemindAt})
	}
}

// DoneBatch handles POST /api/done.
func (h *Handler) DoneBatch(w http.ResponseWriter, r *http.Request) {
	var req DoneRequest
	if !decode(w, r, &req) {
		return
	}
	report, err := h.svc.Done(r.Context(), req.Lines...)
	if err != nil {
		writeError(w, "done", err)
		return
	}
	writeJSON(w, http.StatusOK, DoneResponse{
		Success: report.Deleted() > 0,
		Message: report.String(),
		Items:   report.Items,
	})
}

// Move handles POST /api/move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	moved, err := h.svc.Move(r.Context(), *req.Line, req.Direction.Direction)
	if err != nil {
		writeError(w, "move", err)
		return
	}
	if !moved {
		writeJSON(w, http.StatusConflict, errorBody("cannot move this todo"))
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Success: true})
}

// Search handles GET /api/search?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Reminders handles GET /api/reminders.
func (h *Handler) Reminders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Upcoming(limit)
	if err != nil {
		writeError(w, "reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, RemindersResponse{Reminders: entries})
}
