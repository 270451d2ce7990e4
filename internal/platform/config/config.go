package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string        `env:"APP_ADDR" envDefault:":8080"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	JWTSecret          string        `env:"JWT_SECRET"`
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	RunMigrations      bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	RunSeed            bool          `env:"RUN_SEED" envDefault:"true"`
	SeedAdminName      string        `env:"SEED_ADMIN_NAME" envDefault:"Administrator"`
	SeedAdminEmail     string        `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword  string        `env:"SEED_ADMIN_PASSWORD"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	TrustedProxies     []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	PolicyFile         string        `env:"POLICY_FILE" envDefault:"policy.toml"`
	DocStore           DocStoreConfig
	Policy             Policy
}

type DocStoreConfig struct {
	Enabled      bool          `env:"DOCSTORE_ENABLED" envDefault:"false"`
	BaseURL      string        `env:"DOCSTORE_BASE_URL" envDefault:"https://api.cloudinary.com/v1_1"`
	CloudName    string        `env:"DOCSTORE_CLOUD_NAME"`
	UploadPreset string        `env:"DOCSTORE_UPLOAD_PRESET" envDefault:"leavelite-pdf"`
	Folder       string        `env:"DOCSTORE_FOLDER" envDefault:"leave-applications"`
	Timeout      time.Duration `env:"DOCSTORE_TIMEOUT" envDefault:"15s"`
	RetryMax     int           `env:"DOCSTORE_RETRY_MAX" envDefault:"2"`
}

// Load reads an optional .env file, then the process environment, then the leave policy file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Policy = policy
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
	}
	if c.IsProduction() && c.RunSeed && strings.TrimSpace(c.SeedAdminEmail) != "" && len(c.SeedAdminPassword) < 12 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 12 characters in production")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if c.DocStore.Enabled && strings.TrimSpace(c.DocStore.CloudName) == "" {
		return fmt.Errorf("DOCSTORE_CLOUD_NAME must be set when DOCSTORE_ENABLED is true")
	}
	return c.Policy.Validate()
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES entries, each a CIDR prefix or a bare address.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
