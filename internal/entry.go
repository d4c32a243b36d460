// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gittodo/internal/api"
	"github.com/starford/gittodo/internal/gitsync"
	"github.com/starford/gittodo/internal/index"
	"github.com/starford/gittodo/internal/mcpserver"
	"github.com/starford/gittodo/internal/metrics"
	"github.com/starford/gittodo/internal/scheduler"
	"github.com/starford/gittodo/internal/sse"
	"github.com/starford/gittodo/internal/storage"
	"github.com/starford/gittodo/internal/telegram"
	"github.com/starford/gittodo/internal/todo"
	"github.com/starford/gittodo/internal/todoservice"
)

const shutdownTimeout = 10 * time.Second

// core is the state every entry point shares: the document, its index and
// the optional git syncer.
type core struct {
	path string // absolute path of the todo file
	doc  *todo.Document
	db   *index.DB
	git  *gitsync.Syncer
}

func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) open(logger *slog.Logger, m *metrics.Metrics) (*core, error) {
	cfg := a.config

	abs, err := filepath.Abs(cfg.Todo.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve todo path: %w", err)
	}
	dir, name := filepath.Split(abs)

	// Ensure the todo and database directories exist.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create todo dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	doc, err := todo.Open(store, name)
	if err != nil {
		return nil, fmt.Errorf("open todo file: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if _, err := index.Sync(db, doc, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	c := &core{path: abs, doc: doc, db: db}
	if cfg.Git.Enabled {
		c.git, err = gitsync.New(abs, logger,
			gitsync.WithCommitDelay(cfg.Git.CommitDelay),
			gitsync.WithPullSchedule(cfg.Git.PullSchedule),
			gitsync.WithResultHook(m.ObserveGit))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init git sync: %w", err)
		}
	}
	return c, nil
}

// close waits for git work still in flight and closes the index.
func (c *core) close(ctx context.Context, logger *slog.Logger) {
	if c.git != nil {
		if err := c.git.Flush(ctx); err != nil {
			logger.Error("pending commit failed", slog.String("error", err.Error()))
		}
		if err := c.git.Stop(ctx); err != nil {
			logger.Error("git sync stop error", slog.String("error", err.Error()))
		}
	}
	if err := c.db.Close(); err != nil {
		logger.Error("index close error", slog.String("error", err.Error()))
	}
}

func (a *application) newService(c *core, logger *slog.Logger, m *metrics.Metrics, extra ...todoservice.Option) *todoservice.Service {
	opts := []todoservice.Option{
		todoservice.WithMetrics(m),
		todoservice.WithTrigger(a.config.Todo.ReminderTrigger),
	}
	if c.git != nil {
		opts = append(opts, todoservice.WithGit(c.git))
	}
	return todoservice.New(c.doc, c.db, logger, append(opts, extra...)...)
}

// Run starts the server with the given options: HTTP API, SSE, MCP, the
// reminder scheduler, git sync and the Telegram bot.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("todo_path", cfg.Todo.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("telegram", cfg.Telegram.Enabled),
		slog.Bool("git", cfg.Git.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	m := metrics.New()
	c, err := app.open(logger, m)
	if err != nil {
		return err
	}

	broker := sse.NewBroker()
	defer broker.Close()

	sched := scheduler.New(c.doc, logger, scheduler.WithFireHook(func(text string, err error) {
		m.ObserveReminder(err)
		broker.Publish(sse.Event{Type: sse.TypeReminderFired, Data: map[string]any{
			"text":      text,
			"delivered": err == nil,
		}})
	}))

	if c.git != nil {
		c.git.OnFailure(func(op string, err error) {
			broker.Publish(sse.Event{Type: sse.TypeGitFailed, Data: map[string]string{
				"op":    op,
				"error": err.Error(),
			}})
		})
	}

	svc := app.newService(c, logger, m,
		todoservice.WithScheduler(sched),
		todoservice.WithEvents(broker))

	var bot *telegram.Bot
	if cfg.Telegram.Enabled {
		bot, err = telegram.New(telegram.Config{
			Token:           cfg.Telegram.Token,
			AcceptedChatIDs: cfg.Telegram.AcceptedChatIDs,
			PollTimeout:     cfg.Telegram.PollTimeout,
		}, svc, logger)
		if err != nil {
			c.close(context.Background(), logger)
			return err
		}
		sched.RegisterSender(bot)
		if c.git != nil {
			c.git.OnFailure(bot.NotifyGitFailure)
		}
	}

	n, err := sched.Start()
	if err != nil {
		logger.Warn("reminder schedule failed", slog.String("error", err.Error()))
	}
	m.SetPendingReminders(n)
	logger.Info("Reminders scheduled", slog.Int("pending", n))

	if c.git != nil {
		if err := c.git.Start(); err != nil {
			c.close(context.Background(), logger)
			return err
		}
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := c.db.Ping(); err != nil {
			http.Error(w, `{"status":"index unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.App.Metrics {
		r.Handle("/metrics", m.Handler())
	}
	if cfg.App.MCP {
		mcpHandler := mcpserver.New(svc, app.version).Handler()
		r.Group(func(r chi.Router) {
			r.Use(api.AuthMiddleware(cfg.Auth.AuthEnabled(), cfg.Auth.Token))
			r.Handle("/mcp", mcpHandler)
		})
	}

	// Web and JSON API routes.
	r.Mount("/", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-index and notify on edits made outside this process.
	g.Go(func() error {
		if err := index.Watch(gCtx, c.db, c.doc, c.path, logger, svc.Refresh); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if bot != nil {
		g.Go(func() error {
			return bot.Run(gCtx)
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		if err := sched.Shutdown(shutdownCtx); err != nil {
			logger.Error("scheduler shutdown error", slog.String("error", err.Error()))
		}
		// A non-nil return cancels gCtx, which stops the watcher and the bot.
		return errShutdown
	})

	err = g.Wait()
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.close(closeCtx, logger)

	if err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown requested")

// Exec runs one text command (the same syntax the chat bot accepts) against
// the todo file and prints the reply. A change is committed before
// returning when git sync is enabled.
func Exec(ctx context.Context, command string, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := app.newLogger()

	c, err := app.open(logger, nil)
	if err != nil {
		return err
	}
	defer c.close(ctx, logger)

	svc := app.newService(c, logger, nil)
	reply, err := svc.ProcessCommand(ctx, command)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.output, reply)
	return err
}

// ServeMCP serves the MCP tools over stdin/stdout until the client hangs up.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := app.newLogger()

	c, err := app.open(logger, nil)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	svc := app.newService(c, logger, nil)
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		if err := index.Watch(watchCtx, c.db, c.doc, c.path, logger, svc.Refresh); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP stdio server starting", slog.String("todo_path", c.path))
	err = mcpserver.New(svc, app.version).ServeStdio()
	cancel()
	<-watching

	closeCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	c.close(closeCtx, logger)
	return err
}
