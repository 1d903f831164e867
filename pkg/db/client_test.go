package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type txProbe struct {
	ID   int
	Name string
}

func openProbeDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&txProbe{}); err != nil {
		t.Fatalf("migrate probe table: %v", err)
	}
	return conn
}

func probeCount(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&txProbe{}).Count(&n).Error; err != nil {
		t.Fatalf("count probes: %v", err)
	}
	return n
}

func TestWithTxCommitsOnlyOnNilError(t *testing.T) {
	cases := []struct {
		name  string
		after error
		want  int64
	}{
		{name: "commit", want: 1},
		{name: "rollback", after: errors.New("insufficient cashback"), want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := openProbeDB(t)
			err := NewFromGorm(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
				if err := tx.Create(&txProbe{Name: tc.name}).Error; err != nil {
					return err
				}
				return tc.after
			})
			if !errors.Is(err, tc.after) {
				t.Fatalf("WithTx returned %v, want %v", err, tc.after)
			}
			if got := probeCount(t, conn); got != tc.want {
				t.Fatalf("rows after %s = %d, want %d", tc.name, got, tc.want)
			}
		})
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := openProbeDB(t)
	client := NewFromGorm(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&txProbe{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if got := probeCount(t, db); got != 0 {
		t.Fatalf("expected panic rollback to leave no records, got %d", got)
	}
}

func TestWithTxOptions_RequiresCallback(t *testing.T) {
	client := NewFromGorm(openProbeDB(t))
	if err := client.WithTxOptions(context.Background(), nil, nil); err == nil {
		t.Fatal("expected missing callback to fail")
	}
}

func TestWithSerializableTx_RetriesSerializationFailures(t *testing.T) {
	db := openProbeDB(t)
	client := NewFromGorm(db)

	calls := 0
	err := client.WithSerializableTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&txProbe{Name: fmt.Sprintf("attempt-%d", calls)}).Error; err != nil {
			return err
		}
		if calls < 3 {
			return fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected third attempt to succeed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	var names []string
	if err := db.Model(&txProbe{}).Pluck("name", &names).Error; err != nil {
		t.Fatalf("pluck failed: %v", err)
	}
	if len(names) != 1 || names[0] != "attempt-3" {
		t.Fatalf("expected only the final attempt to commit, got %v", names)
	}
}

func TestWithSerializableTx_GivesUpAfterAttempts(t *testing.T) {
	client := NewFromGorm(openProbeDB(t))
	client.attempts = 2

	calls := 0
	err := client.WithSerializableTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	if !IsSerializationFailure(err) {
		t.Fatalf("expected serialization failure, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestWithSerializableTx_DoesNotRetryOtherErrors(t *testing.T) {
	client := NewFromGorm(openProbeDB(t))

	calls := 0
	boom := errors.New("boom")
	err := client.WithSerializableTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected a single failed attempt, got %d calls and %v", calls, err)
	}
}

func TestPingAndClose(t *testing.T) {
	client := NewFromGorm(openProbeDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping open pool: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on a closed pool to fail")
	}
}
