// Package mcpserver exposes the todo list to LLM clients over the Model
// Context Protocol, either on stdio or over streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gittodo/internal/todo"
	"github.com/starford/gittodo/internal/todoservice"
)

// FormatURI is the resource holding the todo document format contract.
const FormatURI = "gittodo://todo-format"

// Server wraps the MCP server with gittodo tools.
type Server struct {
	mcp *server.MCPServer
	svc *todoservice.Service
}

// New creates an MCP server with every todo tool registered.
func New(svc *todoservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"GitToDo",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List todos with their line numbers. Line numbers are needed by mark_done and move_todo "+
			"and change after every edit, so list again before using them."),
		mcp.WithString("section", mcp.Description("Optional section name prefix (case-sensitive)")),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the section headings of the todo file."),
	), s.listSections)

	s.mcp.AddTool(mcp.NewTool("add_todo",
		mcp.WithDescription("Add a todo at the top of a section, creating the section if needed. "+
			"End the text with '@remindme <when>' (e.g. '@remindme in 2 hours', '@remindme tomorrow') to schedule a reminder."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name, matched case-insensitively")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Single-line todo text")),
	), s.addTodo)

	s.mcp.AddTool(mcp.NewTool("mark_done",
		mcp.WithDescription("Remove one or more todos by line number. Reports the outcome per line."),
		mcp.WithArray("lines", mcp.Required(),
			mcp.Description("Line numbers from list_todos"),
			mcp.Items(map[string]any{"type": "integer"})),
	), s.markDone)

	s.mcp.AddTool(mcp.NewTool("move_todo",
		mcp.WithDescription("Swap a todo with the one above or below it inside its section."),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Line number from list_todos")),
		mcp.WithString("direction", mcp.Required(), mcp.Enum("up", "down")),
	), s.moveTodo)

	s.mcp.AddTool(mcp.NewTool("search_todos",
		mcp.WithDescription("Full-text search through todo text and section names."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTodos)

	s.mcp.AddTool(mcp.NewTool("upcoming_reminders",
		mcp.WithDescription("List todos whose reminder is still ahead, soonest first."),
	), s.upcomingReminders)

	s.mcp.AddTool(mcp.NewTool("get_todo_format",
		mcp.WithDescription("Returns the todo file format contract."),
	), s.getTodoFormat)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Todo File Format",
			mcp.WithResourceDescription("Layout of the Markdown todo file and its reminder markers."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Handler serves the MCP streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listTodos(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		out string
		err error
	)
	if section := strings.TrimSpace(req.GetString("section", "")); section != "" {
		out, err = s.svc.ReadSection(section)
	} else {
		out, err = s.svc.ReadAll()
	}
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) listSections(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.svc.ListSections()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) addTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return toolError(err), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return toolError(err), nil
	}
	res, err := s.svc.Add(ctx, section, text)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) markDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines, err := intList(req.GetArguments()["lines"])
	if err != nil {
		return toolError(err), nil
	}
	report, err := s.svc.Done(ctx, lines...)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(report.String()), nil
}

func (s *Server) moveTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireInt("line")
	if err != nil {
		return toolError(err), nil
	}
	raw, err := req.RequireString("direction")
	if err != nil {
		return toolError(err), nil
	}
	dir, err := todo.ParseDirection(raw)
	if err != nil {
		return toolError(err), nil
	}
	moved, err := s.svc.Move(ctx, line, dir)
	if err != nil {
		return toolError(err), nil
	}
	if !moved {
		return mcp.NewToolResultError(fmt.Sprintf("todo on line %d can't be moved %s", line, raw)), nil
	}
	return mcp.NewToolResultText("OK"), nil
}

func (s *Server) searchTodos(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(err), nil
	}
	results, err := s.svc.Search(query, 20)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) upcomingReminders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.Upcoming(0)
	if err != nil {
		return toolError(err), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no upcoming reminders"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTodoFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TodoFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     TodoFormatContract,
		},
	}, nil
}

// intList accepts the shapes a JSON array of line numbers arrives in.
func intList(v any) ([]int, error) {
	switch vals := v.(type) {
	case []int:
		return vals, nil
	case []any:
		out := make([]int, 0, len(vals))
		for _, x := range vals {
			switch n := x.(type) {
			case float64:
				out = append(out, int(n))
			case int:
				out = append(out, n)
			case string:
				i, err := strconv.Atoi(n)
				if err != nil {
					return nil, fmt.Errorf("invalid line number %q", n)
				}
				out = append(out, i)
			default:
				return nil, fmt.Errorf("invalid line number %v", x)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("lines must not be empty")
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("required argument \"lines\" not found")
	}
	return nil, fmt.Errorf("lines must be an array of integers")
}
