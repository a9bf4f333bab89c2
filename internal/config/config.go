package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the storefront settings. Values are layered: built-in
// defaults, then an optional YAML file, then .env, then the process
// environment.
type Config struct {
	Addr         string `yaml:"addr"`
	APIBaseURL   string `yaml:"api_base_url"`
	ImageBaseURL string `yaml:"image_base_url"`
	DatabaseURL  string `yaml:"database_url"`
	LogLevel     string `yaml:"log_level"`

	TokenCookie    string   `yaml:"token_cookie"`
	LoginPath      string   `yaml:"login_path"`
	RegisterPath   string   `yaml:"register_path"`
	ProtectedPaths []string `yaml:"protected_paths"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	RenderWait     time.Duration `yaml:"render_wait"`
	StaleTime      time.Duration `yaml:"stale_time"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	AllowOrigins   string        `yaml:"allow_origins"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:           ":3000",
		APIBaseURL:     "http://localhost:5000",
		LogLevel:       "info",
		TokenCookie:    "token",
		LoginPath:      "/login",
		RegisterPath:   "/register",
		ProtectedPaths: []string{"/", "/addproduct", "/product"},
		RequestTimeout: 10 * time.Second,
		FetchTimeout:   15 * time.Second,
		RenderWait:     3 * time.Second,
		StaleTime:      30 * time.Second,
		SessionTTL:     72 * time.Hour,
		AllowOrigins:   "*",
	}
}

// Load builds the configuration. path may be empty, in which case
// STOREFRONT_CONFIG is consulted for the YAML file location.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("STOREFRONT_CONFIG")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// a missing .env is the normal case outside development
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = cfg.APIBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"STOREFRONT_ADDR":          &cfg.Addr,
		"STOREFRONT_API_URL":       &cfg.APIBaseURL,
		"STOREFRONT_IMAGE_URL":     &cfg.ImageBaseURL,
		"DATABASE_URL":             &cfg.DatabaseURL,
		"STOREFRONT_LOG_LEVEL":     &cfg.LogLevel,
		"STOREFRONT_TOKEN_COOKIE":  &cfg.TokenCookie,
		"STOREFRONT_LOGIN_PATH":    &cfg.LoginPath,
		"STOREFRONT_REGISTER_PATH": &cfg.RegisterPath,
		"STOREFRONT_ALLOW_ORIGINS": &cfg.AllowOrigins,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("STOREFRONT_PROTECTED_PATHS"); v != "" {
		cfg.ProtectedPaths = splitList(v)
	}

	durations := map[string]*time.Duration{
		"STOREFRONT_REQUEST_TIMEOUT": &cfg.RequestTimeout,
		"STOREFRONT_FETCH_TIMEOUT":   &cfg.FetchTimeout,
		"STOREFRONT_RENDER_WAIT":     &cfg.RenderWait,
		"STOREFRONT_STALE_TIME":      &cfg.StaleTime,
		"STOREFRONT_SESSION_TTL":     &cfg.SessionTTL,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// parseDuration accepts Go duration strings ("3s") or plain seconds ("3").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first setting that would leave the server unusable.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr is required")
	case c.APIBaseURL == "":
		return errors.New("api_base_url is required")
	case c.TokenCookie == "":
		return errors.New("token_cookie is required")
	case !strings.HasPrefix(c.LoginPath, "/"):
		return fmt.Errorf("login_path must start with '/': %q", c.LoginPath)
	case !strings.HasPrefix(c.RegisterPath, "/"):
		return fmt.Errorf("register_path must start with '/': %q", c.RegisterPath)
	case c.RequestTimeout <= 0 || c.FetchTimeout <= 0:
		return errors.New("timeouts must be positive")
	case c.RenderWait < 0 || c.StaleTime < 0:
		return errors.New("render_wait and stale_time must not be negative")
	}
	return nil
}
