package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `cmd/migrate create` writes new files. Binaries apply
// the embedded copy so they do not depend on the working directory.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Step is one migration touched by a command.
type Step struct {
	Version  int64
	File     string
	State    string
	Duration time.Duration
}

// Files returns the migration set for dir, or the embedded set when dir is
// empty.
func Files(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectPostgres, db, files)
}

// Apply runs up, down or status against db.
func Apply(ctx context.Context, db *sql.DB, dir, command string) ([]Step, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		return fromResults(results), wrap(command, err)
	case "down":
		result, err := provider.Down(ctx)
		if result == nil {
			return nil, wrap(command, err)
		}
		return fromResults([]*goose.MigrationResult{result}), wrap(command, err)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, wrap(command, err)
		}
		steps := make([]Step, 0, len(statuses))
		for _, st := range statuses {
			steps = append(steps, Step{
				Version: st.Source.Version,
				File:    filepath.Base(st.Source.Path),
				State:   string(st.State),
			})
		}
		return steps, nil
	default:
		return nil, fmt.Errorf("unsupported migrate command %q", command)
	}
}

// ApplyToVersion moves the schema up or down until target is the current
// version.
func ApplyToVersion(ctx context.Context, db *sql.DB, dir string, target int64) ([]Step, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	return fromResults(results), wrap(fmt.Sprintf("migrate to %d", target), err)
}

func fromResults(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:  r.Source.Version,
			File:     filepath.Base(r.Source.Path),
			State:    r.Direction,
			Duration: r.Duration,
		})
	}
	return steps
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
