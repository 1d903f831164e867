package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/littlelight-store/backend/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// queryLog routes GORM's logging through the service logger so query entries
// carry the request fields already on the context. Failed statements log at
// error, slow ones at warn, and everything else only when tracing is on.
type queryLog struct {
	logg  *logger.Logger
	slow  time.Duration
	trace bool
	level gormlogger.LogLevel
}

func newQueryLog(logg *logger.Logger, slow time.Duration, trace bool) *queryLog {
	level := gormlogger.Warn
	if trace {
		level = gormlogger.Info
	}
	return &queryLog{logg: logg, slow: slow, trace: trace, level: level}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *q
	next.level = level
	return &next
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		q.logg.Error(q.fields(ctx, fc, took), "query failed", err)
	case q.slow > 0 && took > q.slow && q.level >= gormlogger.Warn:
		q.logg.Warn(q.fields(ctx, fc, took), "slow query")
	case q.trace && q.level >= gormlogger.Info:
		q.logg.Debug(q.fields(ctx, fc, took), "query")
	}
}

func (q *queryLog) fields(ctx context.Context, fc func() (string, int64), took time.Duration) context.Context {
	sql, rows := fc()
	return q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": took.Milliseconds(),
	})
}
