package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// insecureJWTSecret is the development fallback. Production refuses to start
// with it.
const insecureJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET, default=dev-secret-change-in-production"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`

	AuditWorkers int `env:"AUDIT_WORKERS, default=4"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Storage StorageConfig
	Anchor  AnchorConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=certificate_registry"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type StorageConfig struct {
	UploadsDir     string `env:"UPLOADS_DIR,      default=public/uploads"`
	StagingDir     string `env:"STAGING_DIR,      default=public/uploads/.staging"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=10485760"`
}

type AnchorConfig struct {
	// Mode selects the anchor backend: "disabled" or "simulated".
	Mode string `env:"ANCHOR_MODE, default=disabled"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that must never reach production.
func (c *Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a non-default value in production")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
