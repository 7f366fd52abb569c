package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
		// PublicURL is the externally reachable base of the HTTP API, used to
		// build public media links for the disk store.
		PublicURL string `env:"APP_PUBLIC_URL" env-default:"http://localhost:8080"`
		// TrustProxy keys rate limiting on X-Forwarded-For. Enable only when
		// a reverse proxy in front of the API overwrites that header.
		TrustProxy bool `env:"APP_TRUST_PROXY" env-default:"false"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT" env-default:"5432"`
		Host    string `env:"POSTGRES_HOST" env-default:"localhost"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`

		// ConnectRetries bounds the startup ping while the database comes up.
		ConnectRetries uint64 `env:"POSTGRES_CONNECT_RETRIES" env-default:"5"`
	}
	Telegram struct {
		Enabled bool   `env:"TELEGRAM_ENABLED" env-default:"true"`
		Admin   int64  `env:"TELEGRAM_ADMIN"`
		Token   string `env:"TELEGRAM_TOKEN"`
		Workers int    `env:"TELEGRAM_WORKERS" env-default:"16"`
	}
	Storage struct {
		// Backend is either "disk" or "firebase".
		Backend string `env:"STORAGE_BACKEND" env-default:"disk"`
		Dir     string `env:"STORAGE_DIR" env-default:"./data/media"`
	}
	Firebase struct {
		CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
		CredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`
		Bucket          string `env:"FIREBASE_BUCKET"`
	}
	Session struct {
		Secret string        `env:"SESSION_SECRET" env-default:"change-me"`
		TTL    time.Duration `env:"SESSION_TTL" env-default:"720h"`
	}
	Capture struct {
		HoldThreshold time.Duration `env:"CAPTURE_HOLD_THRESHOLD" env-default:"500ms"`
		FrameDir      string        `env:"CAPTURE_FRAME_DIR" env-default:"./data/camera"`
		FrameInterval time.Duration `env:"CAPTURE_FRAME_INTERVAL" env-default:"100ms"`
	}
	Audit struct {
		Enabled  bool          `env:"AUDIT_ENABLED" env-default:"true"`
		Interval time.Duration `env:"AUDIT_INTERVAL" env-default:"6h"`
	}
	RateLimit struct {
		Requests int           `env:"RATE_LIMIT_REQUESTS" env-default:"5"`
		Per      time.Duration `env:"RATE_LIMIT_PER" env-default:"1m"`
		Burst    int           `env:"RATE_LIMIT_BURST" env-default:"5"`
	}
}

// GetDSN returns the lib/pq style connection string used by goose.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("dbname=%s user=%s password=%s host=%s port=%d sslmode=%s",
		c.Postgres.Name, c.Postgres.User, c.Postgres.Pass, c.Postgres.Host, c.Postgres.Port, c.Postgres.SslMode,
	)
}

// GetURL returns the postgres:// URL used by pgxpool.
func (c *Config) GetURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User, c.Postgres.Pass, c.Postgres.Host, c.Postgres.Port, c.Postgres.Name, c.Postgres.SslMode,
	)
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}
