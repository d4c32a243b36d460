package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gittodo/internal"
	pkgconfig "github.com/starford/gittodo/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadOrDefault(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr))
}

// oneShot builds the action for a subcommand that maps onto a bot command
// of the same name.
func oneShot(verb string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		line := strings.TrimSpace(verb + " " + strings.Join(cmd.Args().Slice(), " "))
		return internal.Exec(ctx, line,
			internal.WithConfig(cfg),
			internal.WithLogOutput(os.Stderr),
			internal.WithOutput(os.Stdout))
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "gittodo",
		Usage:   "Markdown todo list with natural-language reminders, git sync and a Telegram bot",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, reminder scheduler, git sync and Telegram bot",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "ls",
				Usage:     "List todos, optionally of one section",
				ArgsUsage: "[section]",
				Action:    oneShot("ls"),
			},
			{
				Name:   "sections",
				Usage:  "List sections",
				Action: oneShot("sections"),
			},
			{
				Name:      "add",
				Usage:     "Add a todo to a section",
				ArgsUsage: "<section> <text...>",
				Action:    oneShot("add"),
			},
			{
				Name:      "done",
				Usage:     "Mark todos done by number",
				ArgsUsage: "<number...>",
				Action:    oneShot("done"),
			},
			{
				Name:      "move",
				Usage:     "Move a todo up or down within its section",
				ArgsUsage: "<number> up|down",
				Action:    oneShot("move"),
			},
			{
				Name:   "pull",
				Usage:  "Pull the todo repository",
				Action: oneShot("pull"),
			},
			{
				Name:   "push",
				Usage:  "Commit and push the todo file",
				Action: oneShot("push"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
