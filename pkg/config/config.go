package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	State   StateConfig
	Refresh RefreshConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validateBaseURL(); err != nil {
		return nil, err
	}
	if err := cfg.State.ensureDir(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"prod"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_HTTP_TIMEOUT" default:"30s"`
}

func (a *APIConfig) validateBaseURL() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", EnvAPIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", EnvAPIBaseURL, a.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host: %q", EnvAPIBaseURL, a.BaseURL)
	}
	a.BaseURL = strings.TrimRight(a.BaseURL, "/")
	return nil
}

type StateConfig struct {
	Dir string `envconfig:"STOREFRONT_STATE_DIR"`
}

// ensureDir resolves the state directory, defaulting to ~/.storefront.
// The directory itself is created lazily by the store on open.
func (s *StateConfig) ensureDir() error {
	if s.Dir != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory for default state dir: %w", err)
	}
	s.Dir = filepath.Join(home, ".storefront")
	return nil
}

// DBPath returns the bbolt database path under the state directory.
func (s StateConfig) DBPath() string {
	return filepath.Join(s.Dir, StateFileName)
}

type RefreshConfig struct {
	MaxAttempts int           `envconfig:"STOREFRONT_REFRESH_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"STOREFRONT_REFRESH_BASE_DELAY" default:"1s"`
	MaxDelay    time.Duration `envconfig:"STOREFRONT_REFRESH_MAX_DELAY" default:"8s"`
}
