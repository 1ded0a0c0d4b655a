// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2a-gateway serves an A2A agent over JSON-RPC and calls agents served by it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-a2a/a2a-gateway"
	"github.com/go-a2a/a2a-gateway/client"
	"github.com/go-a2a/a2a-gateway/internal/config"
	"github.com/go-a2a/a2a-gateway/internal/logger"
	"github.com/go-a2a/a2a-gateway/internal/telemetry"
	"github.com/go-a2a/a2a-gateway/server"
	"github.com/go-a2a/a2a-gateway/server/task"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Serve the agent."`
	Card    CardCmd    `cmd:"" help:"Print the agent card of a running agent."`
	Send    SendCmd    `cmd:"" help:"Send a text message to a running agent."`
	Tasks   TasksCmd   `cmd:"" help:"Inspect and prune the tasks of a sqlite store."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"A2A_GATEWAY_LOG_LEVEL"`
	LogFormat string `help:"Log format (text, json)." default:"text" env:"A2A_GATEWAY_LOG_FORMAT"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("a2a-gateway version %s\n", version)
	return nil
}

// ServeCmd serves the agent.
type ServeCmd struct {
	Addr string `help:"Address to listen on; overrides server.addr."`
}

func (c *ServeCmd) Run(cli *CLI, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if cli.Config != "" {
		if log, err = logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
			return err
		}
	}

	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	opts := []server.Option{
		server.WithLogger(log),
		server.WithStreamTimeout(cfg.Server.StreamTimeout),
		server.WithAllowedOrigin(cfg.Server.AllowedOrigin),
		server.WithRPCPath(cfg.Server.RPCPath),
		server.WithStreamPath(cfg.Server.StreamPath),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Metrics.Enabled {
		provider, handler, err := telemetry.NewPrometheusProvider()
		if err != nil {
			return err
		}
		defer provider.Shutdown(context.Background())
		otel.SetMeterProvider(provider)
		opts = append(opts,
			server.WithMeter(provider.Meter(telemetry.InstrumentationName)),
			server.WithMetricsHandler(handler),
		)
	}

	manager := task.NewManager(store, cfg.Agent.Card(), task.WithLogger(log))
	srv, err := server.New(ctx, manager, opts...)
	if err != nil {
		return err
	}

	var handler http.Handler = srv
	if cfg.Server.H2C {
		handler = h2c.NewHandler(srv, &http2.Server{})
	}
	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving agent", slog.String("addr", cfg.Server.Addr), slog.String("agent", cfg.Agent.Name))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Store, log *slog.Logger) (task.Store, error) {
	if cfg.Driver == config.StoreSQLite {
		return openDatabaseStore(ctx, cfg, log)
	}
	store := task.NewInMemoryStore()
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func openDatabaseStore(ctx context.Context, cfg config.Store, log *slog.Logger) (*task.DatabaseStore, error) {
	if cfg.Driver != config.StoreSQLite {
		return nil, fmt.Errorf("store driver %q is not a database", cfg.Driver)
	}
	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.NewSlogLogger(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", cfg.DSN, err)
	}
	store, err := task.NewDatabaseStore(task.DatabaseStoreConfig{DB: db, CreateTable: true})
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// TasksCmd inspects and prunes stored tasks.
type TasksCmd struct {
	List   TasksListCmd   `cmd:"" help:"List stored tasks."`
	Delete TasksDeleteCmd `cmd:"" help:"Delete stored tasks."`
}

// loadDatabaseStore opens the database store configured for cli.
func loadDatabaseStore(ctx context.Context, cli *CLI, log *slog.Logger) (*task.DatabaseStore, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	return openDatabaseStore(ctx, cfg.Store, log)
}

// TasksListCmd lists stored tasks.
type TasksListCmd struct {
	Session string `help:"Only list the tasks of this session." xor:"filter"`
	State   string `help:"Only list the tasks in this state." xor:"filter"`
	Limit   int    `help:"Maximum number of tasks to list." default:"20"`
	Offset  int    `help:"Number of tasks to skip."`
}

// taskPage is one page of listed tasks.
type taskPage struct {
	Total int64       `json:"total"`
	Tasks []*a2a.Task `json:"tasks"`
}

func (c *TasksListCmd) Run(cli *CLI, log *slog.Logger) error {
	ctx := context.Background()
	store, err := loadDatabaseStore(ctx, cli, log)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	return c.list(ctx, store, os.Stdout)
}

func (c *TasksListCmd) list(ctx context.Context, store *task.DatabaseStore, w io.Writer) error {
	if c.State != "" {
		tasks, err := store.ListByState(ctx, a2a.TaskState(c.State))
		if err != nil {
			return err
		}
		total := len(tasks)
		tasks = tasks[min(max(c.Offset, 0), total):]
		if c.Limit > 0 {
			tasks = tasks[:min(c.Limit, len(tasks))]
		}
		return printJSON(w, taskPage{Total: int64(total), Tasks: tasks})
	}

	total, err := store.Count(ctx, c.Session)
	if err != nil {
		return err
	}
	tasks, err := store.List(ctx, c.Session, c.Limit, c.Offset)
	if err != nil {
		return err
	}
	return printJSON(w, taskPage{Total: total, Tasks: tasks})
}

// TasksDeleteCmd deletes stored tasks.
type TasksDeleteCmd struct {
	IDs []string `arg:"" name:"id" help:"IDs of the tasks to delete."`
}

func (c *TasksDeleteCmd) Run(cli *CLI, log *slog.Logger) error {
	ctx := context.Background()
	store, err := loadDatabaseStore(ctx, cli, log)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	return c.remove(ctx, store, os.Stdout)
}

func (c *TasksDeleteCmd) remove(ctx context.Context, store task.Store, w io.Writer) error {
	for _, id := range c.IDs {
		if err := store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		fmt.Fprintf(w, "deleted %s\n", id)
	}
	return nil
}

// CardCmd prints the agent card of a running agent.
type CardCmd struct {
	URL string `arg:"" help:"Base URL of the agent." default:"http://localhost:8080"`
}

func (c *CardCmd) Run(log *slog.Logger) error {
	cl, err := client.New(c.URL, client.WithLogger(log))
	if err != nil {
		return err
	}
	card, err := cl.AgentCard(context.Background())
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, card)
}

// SendCmd sends a text message to a running agent.
type SendCmd struct {
	Text      string        `arg:"" help:"Text of the message."`
	URL       string        `help:"Base URL of the agent." default:"http://localhost:8080"`
	TaskID    string        `name:"task-id" help:"ID of the task to continue; a new task when empty."`
	SessionID string        `name:"session-id" help:"Session the task belongs to."`
	Stream    bool          `help:"Use the streaming endpoint and print every update."`
	Timeout   time.Duration `help:"Timeout of the call." default:"30s"`
}

func (c *SendCmd) Run(log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	cl, err := client.New(c.URL, client.WithLogger(log))
	if err != nil {
		return err
	}
	return c.send(ctx, cl, os.Stdout)
}

// send sends the message with cl and prints the task, or every update when streaming.
func (c *SendCmd) send(ctx context.Context, cl *client.Client, w io.Writer) error {
	params := &a2a.TaskSendParams{
		ID:        c.TaskID,
		SessionID: c.SessionID,
		Message:   a2a.NewTextMessage(a2a.MessageRoleUser, c.Text),
	}

	if !c.Stream {
		t, err := cl.SendTask(ctx, params)
		if err != nil {
			return err
		}
		return printJSON(w, t)
	}

	events, err := cl.SendTaskStreaming(ctx, params)
	if err != nil {
		return err
	}
	for ev := range events {
		if ev.Err != nil {
			return ev.Err
		}
		if err := printJSON(w, ev.Update); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func printJSON(w io.Writer, v any) error {
	return json.MarshalEncode(jsontext.NewEncoder(w, jsontext.WithIndent("  ")), v)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("a2a-gateway"),
		kong.Description("JSON-RPC gateway for A2A agents"),
		kong.UsageOnError(),
	)

	log, err := logger.New(os.Stderr, cli.LogLevel, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	err = kctx.Run(&cli, log)
	kctx.FatalIfErrorf(err)
}
