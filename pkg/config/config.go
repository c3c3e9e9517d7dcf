package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Shopify      ShopifyConfig
	Internal     InternalConfig
	Relay        RelayConfig
	Webhooks     WebhookConfig
	Security     SecurityConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Security.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateService(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DROPSAAS_APP_ENV" required:"true"`
	Port         string `envconfig:"DROPSAAS_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"DROPSAAS_APP_PUBLIC_URL"`
	LogLevel     string `envconfig:"DROPSAAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DROPSAAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// URL joins path onto the public application URL.
func (a AppConfig) URL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(a.PublicURL), "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

type ServiceConfig struct {
	Kind string `envconfig:"DROPSAAS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DROPSAAS_DB_DSN"`
	Driver string `envconfig:"DROPSAAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DROPSAAS_DB_HOST"`
	LegacyPort     int    `envconfig:"DROPSAAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DROPSAAS_DB_USER"`
	LegacyPassword string `envconfig:"DROPSAAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"DROPSAAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"DROPSAAS_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"DROPSAAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DROPSAAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DROPSAAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DROPSAAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DROPSAAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DROPSAAS_REDIS_ADDR"`
	Password     string        `envconfig:"DROPSAAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"DROPSAAS_REDIS_DB" default:"0"`
	Namespace    string        `envconfig:"DROPSAAS_REDIS_NAMESPACE" default:"dsb"`
	PoolSize     int           `envconfig:"DROPSAAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DROPSAAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DROPSAAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DROPSAAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DROPSAAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ShopifyConfig holds the partner app credentials. The API secret signs
// webhooks, OAuth callbacks and App Bridge session tokens.
type ShopifyConfig struct {
	APIKey        string        `envconfig:"DROPSAAS_SHOPIFY_API_KEY" required:"true"`
	APISecret     string        `envconfig:"DROPSAAS_SHOPIFY_API_SECRET" required:"true"`
	Scopes        string        `envconfig:"DROPSAAS_SHOPIFY_SCOPES" default:"read_products,read_orders"`
	APIVersion    string        `envconfig:"DROPSAAS_SHOPIFY_API_VERSION" default:"2024-10"`
	WebhookTopics []string      `envconfig:"DROPSAAS_SHOPIFY_WEBHOOK_TOPICS" default:"orders/create,orders/updated,products/create,products/update,app/uninstalled"`
	StateTTL      time.Duration `envconfig:"DROPSAAS_SHOPIFY_OAUTH_STATE_TTL" default:"10m"`
}

type InternalConfig struct {
	ServiceSecret string `envconfig:"DROPSAAS_SERVICE_SECRET"`
}

type RelayConfig struct {
	TargetURL  string        `envconfig:"DROPSAAS_RELAY_TARGET_URL"`
	Timeout    time.Duration `envconfig:"DROPSAAS_RELAY_TIMEOUT" default:"10s"`
	RetryCount int           `envconfig:"DROPSAAS_RELAY_RETRY_COUNT" default:"2"`
}

func (r RelayConfig) Enabled() bool {
	return strings.TrimSpace(r.TargetURL) != ""
}

type WebhookConfig struct {
	DedupeTTL    time.Duration `envconfig:"DROPSAAS_WEBHOOK_DEDUPE_TTL" default:"72h"`
	MaxBodyBytes int64         `envconfig:"DROPSAAS_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
}

type SecurityConfig struct {
	// TokenEncryptionKey is a base64 encoded 32 byte key. Credentials are
	// stored in plaintext when it is empty.
	TokenEncryptionKey string `envconfig:"DROPSAAS_TOKEN_ENCRYPTION_KEY"`
}

// EncryptionKey decodes the configured key. A nil key disables sealing.
func (s SecurityConfig) EncryptionKey() ([]byte, error) {
	raw := strings.TrimSpace(s.TokenEncryptionKey)
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be base64: %w", EnvTokenEncryptionKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", EnvTokenEncryptionKey, len(key))
	}
	return key, nil
}

func (s SecurityConfig) validate() error {
	_, err := s.EncryptionKey()
	return err
}

type FeatureFlagsConfig struct {
	UseSQLite        bool `envconfig:"DROPSAAS_USE_SQLITE" default:"false"`
	AutoMigrate      bool `envconfig:"DROPSAAS_AUTO_MIGRATE" default:"false"`
	EmitDomainEvents bool `envconfig:"DROPSAAS_EMIT_DOMAIN_EVENTS" default:"true"`
	DebugRoutes      bool `envconfig:"DROPSAAS_DEBUG_ROUTES" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"DROPSAAS_CORS_ALLOWED_ORIGINS" default:"*"`
	MaxAgeSeconds  int      `envconfig:"DROPSAAS_CORS_MAX_AGE" default:"300"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DROPSAAS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DROPSAAS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DROPSAAS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"DROPSAAS_PUBSUB_EVENTS_TOPIC" default:"dsb-shopify-events"`
	EventsSubscription string `envconfig:"DROPSAAS_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DROPSAAS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DROPSAAS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DROPSAAS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"DROPSAAS_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"DROPSAAS_CRON_INTERVAL" default:"1h"`
	LockTTL       time.Duration `envconfig:"DROPSAAS_CRON_LOCK_TTL" default:"10m"`
	ReconcileSize int           `envconfig:"DROPSAAS_CRON_RECONCILE_BATCH" default:"200"`
}

func (c *Config) validateService() error {
	switch strings.ToLower(strings.TrimSpace(c.Service.Kind)) {
	case ServiceKindOutboxPublisher:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required for the outbox publisher", EnvGCPProjectID)
		}
		if c.PubSub.EventsTopic == "" {
			return fmt.Errorf("%s is required for the outbox publisher", EnvPubSubEventsTopic)
		}
	}
	return nil
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:dropsaas.db?cache=shared"
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
