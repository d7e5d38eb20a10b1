package config

import (
	"fmt"
	"log/slog"
	"time"

	"packsend-service/internal/pkg/errs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.)
// - default: Values common across all environments (timeouts, thresholds, etc.)
// -----------------------------------------------------------------------------

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	CORS     CORSConfig
	Log      LogConfig
	Redis    RedisConfig
	Lock     LockConfig
	PackSend PackSendConfig
	Mirror   MirrorConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" required:"true"`
	Password    string `envconfig:"DB_PASSWORD" required:"true"`
	DBName      string `envconfig:"DB_NAME" required:"true"`
	SSLMode     string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone    string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"20"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Idempotency-Key,X-Staff-ID,X-Client-Fingerprint"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length,X-Request-ID"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Pacific/Auckland"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"43200"` // 12*60*60
	File           string `envconfig:"LOG_FILE"`
	FileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"100"`
	FileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"7"`
	FileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"30"`
}

// Empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"REDIS_PREFIX" default:"packsend:"`
}

type LockConfig struct {
	TTL                   time.Duration `envconfig:"LOCK_TTL" default:"5m"`
	TakeoverWindow        time.Duration `envconfig:"LOCK_TAKEOVER_WINDOW" default:"60s"`
	TakeoverTimeoutAccept bool          `envconfig:"LOCK_TAKEOVER_TIMEOUT_ACCEPT" default:"true"`
	SweepInterval         time.Duration `envconfig:"LOCK_SWEEP_INTERVAL" default:"15s"`
}

type PackSendConfig struct {
	LargeShipmentKg      float64       `envconfig:"PACKSEND_LARGE_SHIPMENT_KG" default:"400"`
	IdempotencyRetention time.Duration `envconfig:"PACKSEND_IDEMPOTENCY_RETENTION" default:"72h"`
	RequireLease         bool          `envconfig:"PACKSEND_REQUIRE_LEASE" default:"false"`
	PurgeSchedule        string        `envconfig:"PACKSEND_IDEMPOTENCY_PURGE_SCHEDULE" default:"@hourly"`
}

// Empty BaseURL disables the downstream mirror.
type MirrorConfig struct {
	BaseURL    string        `envconfig:"MIRROR_BASE_URL"`
	Token      string        `envconfig:"MIRROR_TOKEN"`
	Timeout    time.Duration `envconfig:"MIRROR_TIMEOUT" default:"10s"`
	RetryCount int           `envconfig:"MIRROR_RETRY_COUNT" default:"2"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, errs.Wrap(err, "failed to process env config")
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		Redis: RedisConfig{
			Prefix: "packsend-test:",
		},
		Lock: LockConfig{
			TTL:                   5 * time.Minute,
			TakeoverWindow:        60 * time.Second,
			TakeoverTimeoutAccept: true,
			SweepInterval:         time.Second,
		},
		PackSend: PackSendConfig{
			LargeShipmentKg:      400,
			IdempotencyRetention: 72 * time.Hour,
		},
		Mirror: MirrorConfig{
			Timeout: 2 * time.Second,
		},
	}
}
