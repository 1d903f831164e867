package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func captureQueryLog(t *testing.T, slow time.Duration, trace bool) (*queryLog, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})
	return newQueryLog(logg, slow, trace), &buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func statement() (string, int64) {
	return "SELECT * FROM carts", 2
}

func TestQueryLogSlowQuery(t *testing.T) {
	q, buf := captureQueryLog(t, 10*time.Millisecond, false)

	q.Trace(context.Background(), time.Now(), statement, nil)
	q.Trace(context.Background(), time.Now().Add(-time.Second), statement, nil)

	logged := entries(t, buf)
	if len(logged) != 1 {
		t.Fatalf("expected only the slow query to log, got %d entries", len(logged))
	}
	if logged[0]["level"] != "warn" || logged[0]["message"] != "slow query" || logged[0]["sql"] != "SELECT * FROM carts" {
		t.Fatalf("unexpected entry: %v", logged[0])
	}
}

func TestQueryLogFailuresSkipNotFound(t *testing.T) {
	q, buf := captureQueryLog(t, 0, false)

	q.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	q.Trace(context.Background(), time.Now(), statement, errors.New("relation does not exist"))

	logged := entries(t, buf)
	if len(logged) != 1 || logged[0]["level"] != "error" || logged[0]["error"] != "relation does not exist" {
		t.Fatalf("expected a single error entry, got %v", logged)
	}
}

func TestQueryLogTraceAndSilence(t *testing.T) {
	q, buf := captureQueryLog(t, 0, true)

	q.Trace(context.Background(), time.Now(), statement, nil)
	if logged := entries(t, buf); len(logged) != 1 || logged[0]["level"] != "debug" {
		t.Fatalf("expected traced query at debug, got %v", logged)
	}

	buf.Reset()
	q.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), statement, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should not log, got %s", buf.String())
	}
}
