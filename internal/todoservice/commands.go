package todoservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/todo"
)

// Usage documents the text commands understood by ProcessCommand.
const Usage = `Commands:
  /ls [section]          - List all ToDos (optionally in a section)
  /sections              - List all sections
  /add <section> <todo>  - Add a ToDo to a section
  /done <number...>      - Mark one or more ToDos as complete
  /move <number> up|down - Swap a ToDo with its neighbour
  /pull                  - Force git pull
  /push                  - Force git commit and push
`

// Commands lists the verbs understood by ProcessCommand.
var Commands = []string{"ls", "sections", "add", "done", "move", "pull", "push", "help"}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidArgument}, args...)...)
}

// ProcessCommand runs one chat-style command ("/ls Home", "done 3 5") and
// returns the reply text. A leading slash is optional and the verb is
// case-insensitive.
func (s *Service) ProcessCommand(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", usageError("no command provided")
	}
	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return "", usageError("empty command")
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]
	// Telegram appends the bot name in group chats: /ls@my_bot
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	s.metrics.ObserveCommand(cmd)

	switch cmd {
	case "ls":
		if len(args) > 0 {
			return s.ReadSection(args[0])
		}
		return s.ReadAll()

	case "sections":
		return s.ListSections()

	case "add":
		if len(args) < 2 {
			return "", usageError("usage /add <section> <todo>")
		}
		res, err := s.Add(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return "", err
		}
		return res.Message, nil

	case "done":
		if len(args) == 0 {
			return "", usageError("usage /done <number>")
		}
		positions, err := parsePositions(args)
		if err != nil {
			return "", err
		}
		report, err := s.Done(ctx, positions...)
		if err != nil {
			return "", err
		}
		return report.String(), nil

	case "move":
		if len(args) != 2 {
			return "", usageError("usage /move <number> up|down")
		}
		positions, err := parsePositions(args[:1])
		if err != nil {
			return "", err
		}
		dir, err := todo.ParseDirection(args[1])
		if err != nil {
			return "", err
		}
		moved, err := s.Move(ctx, positions[0], dir)
		if err != nil {
			return "", err
		}
		if !moved {
			return fmt.Sprintf("ToDo #%d can't be moved %s", positions[0], args[1]), nil
		}
		return "OK", nil

	case "pull":
		if err := s.Pull(ctx); err != nil {
			return "", err
		}
		return "Pull complete", nil

	case "push":
		if err := s.Push(ctx); err != nil {
			return "", err
		}
		return "Push complete", nil

	case "help", "start":
		return Usage, nil
	}
	return "", usageError("unknown command: %s", cmd)
}

func parsePositions(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(strings.TrimPrefix(a, "#"))
		if err != nil {
			return nil, usageError("can't parse todo numbers: %v", args)
		}
		out = append(out, n)
	}
	return out, nil
}
