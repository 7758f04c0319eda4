package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "winimarket"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WINIMARKET_DB_DSN"
	EnvDBHost = "WINIMARKET_DB_HOST"
	EnvDBUser = "WINIMARKET_DB_USER"
	EnvDBName = "WINIMARKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Paystack     PaystackConfig
	Mailer       MailerConfig
	Push         PushConfig
	Orders       OrdersConfig
	Dispatch     DispatchConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WINIMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"WINIMARKET_APP_PORT" required:"true"`
	SiteURL      string `envconfig:"WINIMARKET_SITE_URL" default:"https://winimarket.app"`
	LogLevel     string `envconfig:"WINIMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WINIMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WINIMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WINIMARKET_DB_DSN"`
	Driver string `envconfig:"WINIMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WINIMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"WINIMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WINIMARKET_DB_USER"`
	LegacyPassword string `envconfig:"WINIMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"WINIMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"WINIMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WINIMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WINIMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WINIMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WINIMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WINIMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WINIMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"WINIMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"WINIMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WINIMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WINIMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WINIMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WINIMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WINIMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WINIMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WINIMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WINIMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WINIMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WINIMARKET_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WINIMARKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"WINIMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WINIMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"WINIMARKET_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"WINIMARKET_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"WINIMARKET_PUBSUB_NOTIFICATION_TOPIC" default:"wm-notification-events"`
	NotificationSubscription string `envconfig:"WINIMARKET_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WINIMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WINIMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WINIMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"WINIMARKET_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"WINIMARKET_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"WINIMARKET_PAYSTACK_CALLBACK_URL"`
	Currency    string        `envconfig:"WINIMARKET_PAYSTACK_CURRENCY" default:"GHS"`
	Timeout     time.Duration `envconfig:"WINIMARKET_PAYSTACK_TIMEOUT" default:"30s"`
}

type MailerConfig struct {
	APIKey      string        `envconfig:"WINIMARKET_MAILER_API_KEY"`
	BaseURL     string        `envconfig:"WINIMARKET_MAILER_BASE_URL" default:"https://api.sendgrid.com"`
	DefaultFrom string        `envconfig:"WINIMARKET_MAILER_FROM_EMAIL" default:"no-reply@winimarket.app"`
	Timeout     time.Duration `envconfig:"WINIMARKET_MAILER_TIMEOUT" default:"15s"`
}

type PushConfig struct {
	Enabled bool          `envconfig:"WINIMARKET_PUSH_ENABLED" default:"true"`
	Timeout time.Duration `envconfig:"WINIMARKET_PUSH_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	PendingTTL    time.Duration `envconfig:"WINIMARKET_ORDERS_PENDING_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"WINIMARKET_ORDERS_SWEEP_INTERVAL" default:"5m"`
}

type DispatchConfig struct {
	MaxSendAttempts int           `envconfig:"WINIMARKET_DISPATCH_MAX_SEND_ATTEMPTS" default:"3"`
	RetryBaseDelay  time.Duration `envconfig:"WINIMARKET_DISPATCH_RETRY_BASE_DELAY" default:"30s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
