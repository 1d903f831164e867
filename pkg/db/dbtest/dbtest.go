// Package dbtest opens in-memory SQLite databases carrying the application
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Schema mirrors the Postgres migrations with SQLite types. Money is TEXT so
// decimals round-trip without float conversion.
var Schema = []string{
	`CREATE TABLE services (
  slug TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  configuration_type TEXT NOT NULL,
  base_price TEXT,
  booster_percent INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	`CREATE TABLE service_configs (
  id TEXT PRIMARY KEY,
  service_slug TEXT NOT NULL,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  old_price TEXT,
  extra_data TEXT
);`,
	`CREATE TABLE promo_codes (
  code TEXT PRIMARY KEY,
  service_slugs TEXT NOT NULL DEFAULT '{}',
  comment TEXT NOT NULL DEFAULT '',
  usage_limit INTEGER NOT NULL DEFAULT 0,
  first_buy_only BOOLEAN NOT NULL DEFAULT 0,
  discount INTEGER NOT NULL
);`,
	`CREATE TABLE clients (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT,
  discord TEXT,
  cashback TEXT NOT NULL DEFAULT '0',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE client_credentials (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  platform TEXT NOT NULL,
  account_name_sealed BLOB NOT NULL,
  password_sealed BLOB NOT NULL,
  has_second_factor BOOLEAN NOT NULL DEFAULT 0,
  is_expired BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (client_id, platform)
);`,
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE boosters (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE game_profiles (
  membership_id TEXT PRIMARY KEY,
  platform TEXT NOT NULL,
  username TEXT NOT NULL,
  client_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE game_characters (
  character_id TEXT PRIMARY KEY,
  membership_id TEXT NOT NULL,
  character_class TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE shopping_carts (
  id TEXT PRIMARY KEY,
  promo_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE shopping_cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES shopping_carts(id) ON DELETE CASCADE,
  service_slug TEXT NOT NULL,
  game_profile_id TEXT NOT NULL,
  character_id TEXT NOT NULL,
  selected_option_ids TEXT NOT NULL DEFAULT '{}',
  range_options TEXT,
  price TEXT NOT NULL DEFAULT '0',
  old_price TEXT NOT NULL DEFAULT '0',
  created_at DATETIME
);`,
	`CREATE TABLE client_orders (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  payment_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'AWAIT_PAYMENT',
  total_price TEXT NOT NULL,
  cashback TEXT NOT NULL DEFAULT '0',
  platform TEXT NOT NULL,
  comment TEXT,
  promo_code TEXT,
  status_changed_at DATETIME NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE client_order_objectives (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES client_orders(id) ON DELETE CASCADE,
  client_id TEXT NOT NULL,
  service_slug TEXT NOT NULL,
  game_profile_id TEXT NOT NULL,
  character_id TEXT NOT NULL,
  selected_option_ids TEXT NOT NULL DEFAULT '{}',
  range_options TEXT,
  price TEXT NOT NULL,
  booster_id TEXT,
  status TEXT NOT NULL DEFAULT 'CREATED',
  status_changed_at DATETIME NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE cashback_events (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (order_id, type)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE UNIQUE INDEX ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id)
  WHERE event_type IN ('order_created', 'order_ready_for_approval');`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME
);`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  recipient_type TEXT NOT NULL,
  recipient_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  order_id TEXT,
  objective_id TEXT,
  payload TEXT NOT NULL DEFAULT '{}',
  read_at DATETIME,
  created_at DATETIME,
  UNIQUE (event_id, recipient_type, recipient_id)
);`,
}

// Open returns a fresh database private to the calling test. A single
// connection keeps the in-memory database alive and serializes writers the
// way row locks would on Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}
