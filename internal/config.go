package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"github.com/starford/gittodo/internal/gitsync"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Todo     TodoConfig        `yaml:"todo"`
	Telegram TelegramConfig    `yaml:"telegram"`
	Git      GitConfig         `yaml:"git"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Todo, &c.Telegram, &c.Git, &c.SQLite, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// MCP mounts the streamable MCP endpoint at /mcp.
	MCP bool `yaml:"mcp"`
	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `yaml:"metrics"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// TodoConfig locates the todo document.
type TodoConfig struct {
	Path            string `yaml:"path"`
	ReminderTrigger string `yaml:"reminder_trigger"`
}

// Validate validates the todo configuration.
func (c *TodoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ReminderTrigger, validation.Required, validation.Length(1, 64)),
	)
}

// TelegramConfig holds bot credentials and the chats allowed to use it.
type TelegramConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Token           string  `yaml:"token"`
	AcceptedChatIDs []int64 `yaml:"accepted_chat_ids"`
	PollTimeout     int     `yaml:"poll_timeout"`
}

// Validate validates the telegram configuration. Token and chats are only
// required when the bot is enabled.
func (c *TelegramConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.AcceptedChatIDs, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.PollTimeout, validation.Min(0), validation.Max(600)),
	)
}

// GitConfig controls synchronisation of the todo file's repository.
type GitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	CommitDelay  time.Duration `yaml:"commit_delay"`
	PullSchedule []string      `yaml:"pull_schedule"`
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CommitDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.PullSchedule, validation.Each(validation.Required, validation.By(cronSpec))),
	)
}

func cronSpec(value any) error {
	spec, _ := value.(string)
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			MCP:     true,
			Metrics: true,
		},
		Todo: TodoConfig{
			Path:            "./todo/todo.md",
			ReminderTrigger: "@remindme",
		},
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		Git: GitConfig{
			CommitDelay:  5 * time.Minute,
			PullSchedule: append([]string(nil), gitsync.DefaultPullSchedule...),
		},
		SQLite: SQLiteConfig{
			Path: "./gittodo.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
