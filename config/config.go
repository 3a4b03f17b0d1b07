package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig          `mapstructure:"server"`
	Database DatabaseConfig        `mapstructure:"database"`
	Redis    RedisConfig           `mapstructure:"redis"`
	JWT      JWTConfig             `mapstructure:"jwt"`
	OAuth    OAuthConfig           `mapstructure:"oauth"`
	Email    EmailConfig           `mapstructure:"email"`
	CORS     CORSConfig            `mapstructure:"cors"`
	Tokens   TokensConfig          `mapstructure:"tokens"`
	Plans    map[string]PlanConfig `mapstructure:"plans"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// TokensConfig tunes the metering layer.
type TokensConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"` // per user+operation, 0 = default 60
	HistoryMaxLimit    int `mapstructure:"history_max_limit"`     // hard cap on history page size, 0 = default 200
	BootstrapRetries   int `mapstructure:"bootstrap_retries"`     // re-fetch attempts after profile creation
	BootstrapBackoffMS int `mapstructure:"bootstrap_backoff_ms"`  // fixed delay between re-fetch attempts
}

func Load(configPath string) (*Config, error) {
	// Prefer config.local.yaml when present (real credentials, never committed).
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// KROMIO_FREE_TIER_TOKENS overrides the free plan allotment used when
	// bootstrapping new profiles.
	if v := os.Getenv("KROMIO_FREE_TIER_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			free := cfg.Plans[PlanFree]
			free.TokensPerMonth = n
			cfg.Plans[PlanFree] = free
		}
	}

	if err := ValidatePlans(cfg.Plans); err != nil {
		return nil, err
	}

	return &cfg, nil
}
