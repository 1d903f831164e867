package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cashback      CashbackConfig
	Orders        OrdersConfig
	Notifications NotificationsConfig
	Credentials   CredentialsConfig
	Cron          CronConfig
	API           APIConfig
}

// Load reads LITTLELIGHT_* variables and checks them. Every problem found is
// reported in one error, named by its variable.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := cfg.DB.ensureDSN()
	err = multierr.Append(err, check(&cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

var rules = newRules()

func newRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if env := field.Tag.Get("envconfig"); env != "" {
			return env
		}
		return field.Name
	})
	return v
}

func check(cfg *Config) error {
	err := rules.Struct(cfg)
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}
	var out error
	for _, f := range failures {
		out = multierr.Append(out, fmt.Errorf("%s fails %s", f.Field(), describeRule(f)))
	}
	return out
}

func describeRule(f validator.FieldError) string {
	if f.Param() == "" {
		return f.Tag()
	}
	return f.Tag() + "=" + f.Param()
}

type AppConfig struct {
	Env          string `envconfig:"LITTLELIGHT_APP_ENV" required:"true"`
	Port         string `envconfig:"LITTLELIGHT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LITTLELIGHT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LITTLELIGHT_LOG_FORMAT" default:"json" validate:"oneof=json console"`
	LogWarnStack bool   `envconfig:"LITTLELIGHT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LITTLELIGHT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"LITTLELIGHT_DB_DSN"`

	LegacyHost     string `envconfig:"LITTLELIGHT_DB_HOST"`
	LegacyPort     int    `envconfig:"LITTLELIGHT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LITTLELIGHT_DB_USER"`
	LegacyPassword string `envconfig:"LITTLELIGHT_DB_PASSWORD"`
	LegacyName     string `envconfig:"LITTLELIGHT_DB_NAME"`
	LegacySSLMode  string `envconfig:"LITTLELIGHT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LITTLELIGHT_DB_MAX_OPEN_CONNS" default:"20" validate:"gte=0"`
	MaxIdleConns    int           `envconfig:"LITTLELIGHT_DB_MAX_IDLE_CONNS" default:"10" validate:"gte=0"`
	ConnMaxLifetime time.Duration `envconfig:"LITTLELIGHT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LITTLELIGHT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold   time.Duration `envconfig:"LITTLELIGHT_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
	TraceQueries         bool          `envconfig:"LITTLELIGHT_DB_TRACE_QUERIES" default:"false"`
	SerializableAttempts int           `envconfig:"LITTLELIGHT_DB_SERIALIZABLE_ATTEMPTS" default:"3" validate:"gte=1,lte=10"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LITTLELIGHT_REDIS_URL" required:"true" validate:"url"`
	Address      string        `envconfig:"LITTLELIGHT_REDIS_ADDR"`
	Password     string        `envconfig:"LITTLELIGHT_REDIS_PASSWORD"`
	DB           int           `envconfig:"LITTLELIGHT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LITTLELIGHT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LITTLELIGHT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LITTLELIGHT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LITTLELIGHT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LITTLELIGHT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LITTLELIGHT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LITTLELIGHT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LITTLELIGHT_JWT_EXPIRATION_MINUTES" default:"60" validate:"gte=1"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LITTLELIGHT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"LITTLELIGHT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"LITTLELIGHT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"LITTLELIGHT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"LITTLELIGHT_PUBSUB_ORDERS_TOPIC" default:"ll-order-events"`
	OrdersSubscription       string `envconfig:"LITTLELIGHT_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"LITTLELIGHT_PUBSUB_NOTIFICATION_TOPIC" default:"ll-notification-events"`
	NotificationSubscription string `envconfig:"LITTLELIGHT_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"LITTLELIGHT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50" validate:"gte=1,lte=1000"`
	PollIntervalMS int           `envconfig:"LITTLELIGHT_OUTBOX_PUBLISH_POLL_MS" default:"500" validate:"gte=10"`
	MaxAttempts    int           `envconfig:"LITTLELIGHT_OUTBOX_MAX_ATTEMPTS" default:"10" validate:"gte=1"`
	Retention      time.Duration `envconfig:"LITTLELIGHT_OUTBOX_RETENTION" default:"720h"`
}

// CashbackConfig drives the reward credited to a client on every checkout.
type CashbackConfig struct {
	RewardPercent int `envconfig:"LITTLELIGHT_CASHBACK_REWARD_PERCENT" default:"5" validate:"gte=0,lte=100"`
}

type OrdersConfig struct {
	AutoAcceptAfter time.Duration `envconfig:"LITTLELIGHT_ORDERS_AUTO_ACCEPT_AFTER" default:"48h" validate:"gte=1h"`
}

// NotificationsConfig carries the executor subscribers that receive order
// broadcasts alongside the client.
type NotificationsConfig struct {
	ExecutorSubscriberIDs []string `envconfig:"LITTLELIGHT_NOTIFICATIONS_EXECUTOR_SUBSCRIBERS"`
}

type APIConfig struct {
	CORSOrigins          []string      `envconfig:"LITTLELIGHT_API_CORS_ORIGINS" default:"http://localhost:3000"`
	CheckoutRateLimit    int           `envconfig:"LITTLELIGHT_API_CHECKOUT_RATE_LIMIT" default:"10" validate:"gte=1"`
	CheckoutRateWindow   time.Duration `envconfig:"LITTLELIGHT_API_CHECKOUT_RATE_WINDOW" default:"1m" validate:"gte=1s"`
	PaymentWebhookSecret string        `envconfig:"LITTLELIGHT_API_PAYMENT_WEBHOOK_SECRET"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"LITTLELIGHT_CRON_INTERVAL" default:"5m" validate:"gte=1s"`
	LockTTL               time.Duration `envconfig:"LITTLELIGHT_CRON_LOCK_TTL" default:"10m" validate:"gtefield=Interval"`
	JobTimeout            time.Duration `envconfig:"LITTLELIGHT_CRON_JOB_TIMEOUT" default:"4m" validate:"ltefield=Interval"`
	NotificationRetention time.Duration `envconfig:"LITTLELIGHT_CRON_NOTIFICATION_RETENTION" default:"720h"`
}

type CredentialsConfig struct {
	Secret string `envconfig:"LITTLELIGHT_CREDENTIALS_SECRET" required:"true"`
	Salt   string `envconfig:"LITTLELIGHT_CREDENTIALS_SALT" default:"littlelight-credentials"`
}

// ensureDSN assembles a DSN from the split DB_* variables when DB_DSN is unset.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s is unset and so is %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
