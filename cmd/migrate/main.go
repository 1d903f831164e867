package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/littlelight-store/backend/pkg/bootstrap"
	"github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory; empty applies the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	rt, err := bootstrap.Open(context.Background(), "migrate", 0)
	exitOnErr(context.Background(), logg, "load config", err)
	cfg, logg := rt.Config, rt.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if handled := runOffline(ctx, logg, opts); handled {
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "connect database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOnErr(ctx, logg, "open sql handle", err)

	steps, err := runOnline(ctx, sqlDB, opts)
	exitOnErr(ctx, logg, "goose "+opts.cmd, err)
	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"file":        step.File,
			"state":       step.State,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migration")
	}
	logg.Info(logg.WithField(ctx, "steps", len(steps)), "migration command finished")
}

// runOffline handles the commands that only touch the migrations directory.
func runOffline(ctx context.Context, logg *logger.Logger, opts options) bool {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			exitOnErr(ctx, logg, "create", fmt.Errorf("missing -name"))
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		exitOnErr(ctx, logg, "create", err)
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return true
	case "validate":
		exitOnErr(ctx, logg, "validate", migrate.ValidateDir(opts.dir))
		logg.Info(ctx, "migration validation passed")
		return true
	}
	return false
}

func runOnline(ctx context.Context, sqlDB *sql.DB, opts options) ([]migrate.Step, error) {
	switch opts.cmd {
	case "up", "down", "status":
		return migrate.Apply(ctx, sqlDB, opts.dir, opts.cmd)
	case "version":
		target, err := strconv.ParseInt(opts.version, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("-version must be YYYYMMDDHHMMSS: %w", err)
		}
		return migrate.ApplyToVersion(ctx, sqlDB, opts.dir, target)
	default:
		return nil, fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
}

func exitOnErr(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
