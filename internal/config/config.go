package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioPublicURL string `mapstructure:"MINIO_PUBLIC_URL"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	VoteRateLimit  int           `mapstructure:"VOTE_RATE_LIMIT"`
	VoteRateWindow time.Duration `mapstructure:"VOTE_RATE_WINDOW"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"APP_ENV", "PORT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"JWT_SECRET", "JWT_ISSUER", "JWT_TTL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"MINIO_ENDPOINT", "MINIO_PUBLIC_URL", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"VOTE_RATE_LIMIT", "VOTE_RATE_WINDOW",
	"CORS_ORIGINS",
}

// Load reads .env (if present) into the process environment and then binds
// every known key from the environment on top of the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "storymap")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "storymap")
	v.SetDefault("JWT_TTL", "72h")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_PUBLIC_URL", "http://localhost:9000")
	v.SetDefault("MINIO_BUCKET", "storymap-photos")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("VOTE_RATE_LIMIT", 30)
	v.SetDefault("VOTE_RATE_WINDOW", "1m")
	v.SetDefault("CORS_ORIGINS", "*")
}

// Validate rejects configurations that would start an insecure or broken server.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDev() {
			return errors.New("JWT_SECRET must be set outside development")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.VoteRateLimit < 0 {
		return fmt.Errorf("VOTE_RATE_LIMIT must not be negative, got %d", c.VoteRateLimit)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// DSN builds the Postgres connection string the way the GORM driver expects it.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// splitList accepts both a real list and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
