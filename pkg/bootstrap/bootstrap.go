// Package bootstrap opens the infrastructure every binary shares and runs the
// binary until SIGINT or SIGTERM.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/migrate"
	"github.com/littlelight-store/backend/pkg/redis"
)

// Needs selects the connections Open makes.
type Needs uint8

const (
	NeedDB Needs = 1 << iota
	NeedRedis
)

type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

// OnClose registers a resource for Close. Resources close in reverse order.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, close: fn})
}

func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.close(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(context.Background(), "resource", c.name), "close failed", err)
		}
	}
	rt.closers = nil
}

// Open loads configuration, builds the service logger and connects what needs
// asks for. Dev environments with auto-migrate on get pending migrations
// applied once the database is up. On failure everything already opened is
// closed again.
func Open(ctx context.Context, kind string, needs Needs) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Service.Kind = kind
	rt := &Runtime{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
	fail := func(step string, err error) (*Runtime, error) {
		rt.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if needs&NeedDB != 0 {
		if rt.DB, err = db.New(ctx, cfg.DB, rt.Logger); err != nil {
			return fail("database", err)
		}
		rt.OnClose("database", rt.DB.Close)
		if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
			return fail("dev migrations", err)
		}
	}
	if needs&NeedRedis != 0 {
		if rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger); err != nil {
			return fail("redis", err)
		}
		rt.OnClose("redis", rt.Redis.Close)
	}
	return rt, nil
}

// Main runs fn under a signal-bound context and exits non-zero when bootstrap
// or fn fails. Cancellation by signal is a clean exit.
func Main(kind string, needs Needs, fn func(ctx context.Context, rt *Runtime) error) {
	os.Exit(execute(kind, needs, fn))
}

func execute(kind string, needs Needs, fn func(ctx context.Context, rt *Runtime) error) int {
	early := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		early.Warn(context.Background(), ".env file not found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := Open(ctx, kind, needs)
	if err != nil {
		early.Error(ctx, "bootstrap failed", err)
		return 1
	}
	defer rt.Close()

	return rt.run(ctx, fn)
}

func (rt *Runtime) run(ctx context.Context, fn func(ctx context.Context, rt *Runtime) error) int {
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Kind,
		"instance":    instanceID(),
	})
	rt.Logger.Info(ctx, "starting")
	if err := fn(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, "stopped unexpectedly", err)
		return 1
	}
	rt.Logger.Info(ctx, "shut down")
	return 0
}

// instanceID names this process in logs. LITTLELIGHT_WORKER_ID wins over the
// hostname.
func instanceID() string {
	if id := os.Getenv("LITTLELIGHT_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
