// Package config содержит логику чтения конфигурации панели администратора.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultAPIBaseURL     = "http://localhost:8000/api"
	defaultAPITimeout     = 10 * time.Second
	defaultSessionRecheck = 5 * time.Minute
	defaultCacheTTL       = 30 * time.Second
)

// Config содержит параметры конфигурации панели администратора.
type Config struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	APIBaseURL     string        `env:"API_BASE_URL"`
	APITimeout     time.Duration `env:"API_TIMEOUT"`
	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionRecheck time.Duration `env:"SESSION_RECHECK"`
	CacheTTL       time.Duration `env:"CACHE_TTL"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	AMQPURL        string        `env:"AMQP_URL"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	SecureCookie   bool          `env:"SECURE_COOKIE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	var origins string

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.APIBaseURL, "u", defaultAPIBaseURL, "shop API base URL")
	flag.DurationVar(&cfg.APITimeout, "t", defaultAPITimeout, "shop API request timeout")
	flag.StringVar(&cfg.SessionSecret, "s", "", "session cookie signing secret")
	flag.DurationVar(&cfg.SessionRecheck, "c", defaultSessionRecheck, "interval between session token checks")
	flag.DurationVar(&cfg.CacheTTL, "ttl", defaultCacheTTL, "cache entry lifetime")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "audit database URI")
	flag.StringVar(&cfg.AMQPURL, "q", "", "audit AMQP broker URL")
	flag.StringVar(&origins, "o", "", "comma separated origins allowed to call JSON API")
	flag.BoolVar(&cfg.SecureCookie, "secure", false, "send session cookie only over HTTPS")

	flag.Parse()

	cfg.AllowedOrigins = splitList(origins)

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.APIBaseURL != "" {
		cfg.APIBaseURL = envCfg.APIBaseURL
	}
	if envCfg.APITimeout > 0 {
		cfg.APITimeout = envCfg.APITimeout
	}
	if envCfg.SessionSecret != "" {
		cfg.SessionSecret = envCfg.SessionSecret
	}
	if envCfg.SessionRecheck > 0 {
		cfg.SessionRecheck = envCfg.SessionRecheck
	}
	if envCfg.CacheTTL > 0 {
		cfg.CacheTTL = envCfg.CacheTTL
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.AMQPURL != "" {
		cfg.AMQPURL = envCfg.AMQPURL
	}
	if envCfg.SecureCookie {
		cfg.SecureCookie = true
	}
	if list := splitList(strings.Join(envCfg.AllowedOrigins, ",")); len(list) > 0 {
		cfg.AllowedOrigins = list
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = defaultAPITimeout
	}
	if cfg.SessionRecheck <= 0 {
		cfg.SessionRecheck = defaultSessionRecheck
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("shop API base URL is empty")
	}

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = secret
	}

	return cfg, nil
}

// splitList разбирает список через запятую, пропуская пустые элементы.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// randomSecret создаёт ключ подписи сессий на время жизни процесса.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
