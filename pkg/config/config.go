package config

import (
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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Detector     DetectorConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Detector.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MONEYPILOT_APP_ENV" required:"true"`
	Port         string `envconfig:"MONEYPILOT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MONEYPILOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MONEYPILOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MONEYPILOT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MONEYPILOT_DB_DSN"`
	Driver string `envconfig:"MONEYPILOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MONEYPILOT_DB_HOST"`
	LegacyPort     int    `envconfig:"MONEYPILOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MONEYPILOT_DB_USER"`
	LegacyPassword string `envconfig:"MONEYPILOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"MONEYPILOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"MONEYPILOT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MONEYPILOT_SQLITE_PATH" default:"moneypilot.db"`

	MaxOpenConns    int           `envconfig:"MONEYPILOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MONEYPILOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MONEYPILOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MONEYPILOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MONEYPILOT_REDIS_URL"`
	Address      string        `envconfig:"MONEYPILOT_REDIS_ADDR"`
	Password     string        `envconfig:"MONEYPILOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"MONEYPILOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MONEYPILOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MONEYPILOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MONEYPILOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MONEYPILOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MONEYPILOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MONEYPILOT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MONEYPILOT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MONEYPILOT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MONEYPILOT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MONEYPILOT_AUTO_MIGRATE" default:"false"`
}

// DetectorConfig bounds subscription detection runs.
type DetectorConfig struct {
	Timeout      time.Duration `envconfig:"MONEYPILOT_DETECT_TIMEOUT" default:"2m"`
	LockTTL      time.Duration `envconfig:"MONEYPILOT_DETECT_LOCK_TTL" default:"10m"`
	CronInterval time.Duration `envconfig:"MONEYPILOT_CRON_INTERVAL" default:"24h"`
	ListLimit    int           `envconfig:"MONEYPILOT_SUBSCRIPTIONS_LIST_LIMIT" default:"200"`
}

// validate keeps the tenant lock alive for the whole detection window; a
// shorter TTL would let a second run start while the first is still writing.
func (d DetectorConfig) validate() error {
	if d.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvDetectTO)
	}
	if d.LockTTL <= d.Timeout {
		return fmt.Errorf("%s (%s) must exceed %s (%s)", EnvDetectLockTTL, d.LockTTL, EnvDetectTO, d.Timeout)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MONEYPILOT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MONEYPILOT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MONEYPILOT_GOOGLE_APPLICATION_CREDENTIALS"`
}

// GCSConfig is optional; exports are disabled while BucketName is empty.
type GCSConfig struct {
	BucketName    string        `envconfig:"MONEYPILOT_GCS_BUCKET_NAME"`
	ExportPrefix  string        `envconfig:"MONEYPILOT_GCS_EXPORT_PREFIX" default:"exports"`
	UploadTimeout time.Duration `envconfig:"MONEYPILOT_GCS_UPLOAD_TIMEOUT" default:"2m"`
}

// Enabled reports whether an export bucket is configured.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

// PubSubConfig is optional; detection events are not published while EventsTopic is empty.
type PubSubConfig struct {
	EventsTopic    string        `envconfig:"MONEYPILOT_PUBSUB_EVENTS_TOPIC"`
	PublishTimeout time.Duration `envconfig:"MONEYPILOT_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

// Enabled reports whether detection events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EventsTopic) != ""
}

// BigQueryConfig is optional; rollups are mirrored only when RollupsTable is set.
type BigQueryConfig struct {
	Dataset      string `envconfig:"MONEYPILOT_BIGQUERY_DATASET" default:"moneypilot"`
	RollupsTable string `envconfig:"MONEYPILOT_BIGQUERY_ROLLUPS_TABLE"`
}

// Enabled reports whether rollups should be mirrored to BigQuery.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != "" && strings.TrimSpace(b.RollupsTable) != ""
}

// RateLimitConfig throttles expensive tenant endpoints. A zero limit disables the policy.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"MONEYPILOT_RATE_LIMIT_WINDOW" default:"1m"`
	DetectLimit int           `envconfig:"MONEYPILOT_RATE_LIMIT_DETECT" default:"6"`
	ImportLimit int           `envconfig:"MONEYPILOT_RATE_LIMIT_IMPORT" default:"30"`
	ExportLimit int           `envconfig:"MONEYPILOT_RATE_LIMIT_EXPORT" default:"3"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() || db.DSN != "" {
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
