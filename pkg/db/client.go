package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const defaultSerializableAttempts = 3

var errNoCallback = errors.New("transaction callback required")

// Client owns the GORM pool and the transaction helpers the repositories run
// through.
type Client struct {
	conn     *gorm.DB
	attempts int
	logg     *logger.Logger
}

// NewFromGorm wraps an already opened connection. Tests use it with SQLite.
func NewFromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn, attempts: defaultSerializableAttempts}
}

// Pinger is what health checks need.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens a Postgres pool over pgx.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 newQueryLog(logg, cfg.SlowQueryThreshold, cfg.TraceQueries),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	tunePool(sqlDB, cfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging db: %w", err)
	}

	client := NewFromGorm(conn)
	client.logg = logg
	if cfg.SerializableAttempts > 0 {
		client.attempts = cfg.SerializableAttempts
	}
	logg.Info(logg.With(ctx, "max_open_conns", cfg.MaxOpenConns), "database connection established")
	return client, nil
}

// tunePool leaves database/sql defaults in place for zero values.
func tunePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a read-committed transaction. fn's error or panic rolls
// it back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.WithTxOptions(ctx, nil, fn)
}

// WithSerializableTx runs fn at serializable isolation and reruns it when
// Postgres aborts the transaction with a serialization failure. fn must be
// safe to repeat: anything it captures outside tx is overwritten on the next
// attempt.
func (c *Client) WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	attempts := max(c.attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = c.WithTxOptions(ctx, opts, fn)
		if !IsSerializationFailure(err) || attempt == attempts {
			break
		}
		c.logg.Warn(c.logg.With(ctx, "attempt", attempt), "serializable transaction conflict, retrying")
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

// WithTxOptions runs fn in a transaction begun with opts; nil opts uses the
// server default isolation.
func (c *Client) WithTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return errNoCallback
	}
	var tx *gorm.DB
	if opts != nil {
		tx = c.conn.WithContext(ctx).Begin(opts)
	} else {
		tx = c.conn.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return fmt.Errorf("begin: %w", tx.Error)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
