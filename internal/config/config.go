package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DBFileName = "votes.db"

	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

type Config struct {
	Port     string `toml:"port"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
	Env      string `toml:"env"`

	// AdminKey is the shared secret for admin endpoints. Empty disables them.
	AdminKey      string   `toml:"admin_key"`
	JWTSecret     string   `toml:"jwt_secret"`
	AdminTokenTTL Duration `toml:"admin_token_ttl"`

	FrontendDir string `toml:"frontend_dir"`
	FrontendURL string `toml:"frontend_url"`

	// VoteRatePerMinute limits votes per client IP. Zero turns limiting off.
	VoteRatePerMinute int `toml:"vote_rate_per_minute"`
	VoteRateBurst     int `toml:"vote_rate_burst"`

	Archive ArchiveConfig `toml:"archive"`
}

// ArchiveConfig selects where reset backups are shipped.
// Type determines which other fields are relevant.
type ArchiveConfig struct {
	Type     string `toml:"type"` // "local" or "s3"
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// AgeRecipient, when set, encrypts uploads to this X25519 public key.
	AgeRecipient string `toml:"age_recipient,omitempty"`
}

// Duration decodes TOML strings such as "12h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		Port:              "3001",
		DataDir:           "./data",
		LogLevel:          "info",
		Env:               EnvDevelopment,
		AdminTokenTTL:     Duration{12 * time.Hour},
		FrontendDir:       "./dist",
		FrontendURL:       "http://localhost:5173",
		VoteRatePerMinute: 0,
		VoteRateBurst:     5,
		Archive:           ArchiveConfig{Type: ArchiveLocal},
	}
}

// Load builds the configuration from defaults, an optional TOML file, .env and
// the process environment, later sources winning. An empty path falls back to
// VOTES_CONFIG.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("VOTES_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("APP_PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Env = getEnv("APP_ENV", c.Env)
	c.AdminKey = getEnv("ADMIN_KEY", c.AdminKey)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.FrontendDir = getEnv("FRONTEND_DIR", c.FrontendDir)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.Archive.Type = getEnv("ARCHIVE_TYPE", c.Archive.Type)
	c.Archive.S3Bucket = getEnv("ARCHIVE_S3_BUCKET", c.Archive.S3Bucket)
	c.Archive.S3Prefix = getEnv("ARCHIVE_S3_PREFIX", c.Archive.S3Prefix)
	c.Archive.S3Region = getEnv("ARCHIVE_S3_REGION", c.Archive.S3Region)
	c.Archive.AgeRecipient = getEnv("ARCHIVE_AGE_RECIPIENT", c.Archive.AgeRecipient)

	if v := os.Getenv("ADMIN_TOKEN_TTL"); v != "" {
		if err := c.AdminTokenTTL.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("ADMIN_TOKEN_TTL: %w", err)
		}
	}
	var err error
	if c.VoteRatePerMinute, err = getEnvInt("VOTE_RATE_PER_MINUTE", c.VoteRatePerMinute); err != nil {
		return err
	}
	if c.VoteRateBurst, err = getEnvInt("VOTE_RATE_BURST", c.VoteRateBurst); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.VoteRatePerMinute < 0 || c.VoteRateBurst < 0 {
		return fmt.Errorf("vote rate settings must not be negative")
	}
	if c.AdminTokenTTL.Duration <= 0 {
		return fmt.Errorf("admin token ttl must be positive")
	}
	switch c.Archive.Type {
	case "", ArchiveLocal:
	case ArchiveS3:
		if c.Archive.S3Bucket == "" {
			return fmt.Errorf("archive type s3 requires a bucket")
		}
	default:
		return fmt.Errorf("unknown archive type %q", c.Archive.Type)
	}
	return nil
}

// DBPath is the live store file inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFileName)
}

func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// SigningSecret is the key admin session tokens are signed with.
func (c Config) SigningSecret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return c.AdminKey
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
