package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values come from defaults, then
// an optional YAML file named by POLLSCOPE_CONFIG, then the environment.
type Config struct {
	Port     string         `yaml:"port"`
	Env      string         `yaml:"env"`
	Log      LogConfig      `yaml:"log"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	VoteHub  VoteHubConfig  `yaml:"votehub"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type LLMConfig struct {
	// Provider is "gemini" or "fake".
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	Results int    `yaml:"results"`
}

type VoteHubConfig struct {
	URL            string        `yaml:"url"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	CatalogTTL     time.Duration `yaml:"catalog_ttl"`
}

type PipelineConfig struct {
	InterpretTimeout time.Duration `yaml:"interpret_timeout"`
	ReconcileTimeout time.Duration `yaml:"reconcile_timeout"`
	PartyTimeout     time.Duration `yaml:"party_timeout"`
	DivisionWorkers  int           `yaml:"division_workers"`
	PartyWorkers     int           `yaml:"party_workers"`
	PartyLookupLimit int           `yaml:"party_lookup_limit"`
}

const (
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

func Default() Config {
	return Config{
		Port: ":8080",
		Env:  "local",
		Log:  LogConfig{Level: "info"},
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			RPS:         2,
			Burst:       4,
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Timeout:     30 * time.Second,
		},
		Search: SearchConfig{Enabled: true, Results: 5},
		VoteHub: VoteHubConfig{
			URL:            "https://api.votehub.com",
			MaxAttempts:    3,
			BaseDelay:      250 * time.Millisecond,
			AttemptTimeout: 10 * time.Second,
			CatalogTTL:     time.Hour,
		},
		Pipeline: PipelineConfig{
			InterpretTimeout: 20 * time.Second,
			ReconcileTimeout: 20 * time.Second,
			PartyTimeout:     30 * time.Second,
			DivisionWorkers:  4,
			PartyWorkers:     4,
			PartyLookupLimit: 10,
		},
	}
}

// Load reads .env (if present), the optional YAML file and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(strings.TrimSpace(os.Getenv("POLLSCOPE_CONFIG")))
}

// LoadFile is Load without .env handling; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Port = normalizePort(cfg.Port)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	integer := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(dst *float64, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(dst *bool, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(&cfg.Port, "PORT")
	str(&cfg.Env, "APP_ENV")
	str(&cfg.Log.Level, "LOG_LEVEL")
	boolean(&cfg.Log.Development, "LOG_DEVELOPMENT")

	str(&cfg.LLM.Provider, "LLM_PROVIDER")
	str(&cfg.LLM.Model, "LLM_MODEL")
	str(&cfg.LLM.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	float(&cfg.LLM.RPS, "LLM_RPS")
	integer(&cfg.LLM.Burst, "LLM_BURST")
	integer(&cfg.LLM.MaxAttempts, "LLM_MAX_ATTEMPTS")
	duration(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	boolean(&cfg.Search.Enabled, "SEARCH_ENABLED")
	str(&cfg.Search.Model, "SEARCH_MODEL")

	str(&cfg.VoteHub.URL, "VOTEHUB_URL")
	integer(&cfg.VoteHub.MaxAttempts, "VOTEHUB_MAX_ATTEMPTS")
	duration(&cfg.VoteHub.AttemptTimeout, "VOTEHUB_TIMEOUT")

	duration(&cfg.Pipeline.InterpretTimeout, "INTERPRET_TIMEOUT")
	duration(&cfg.Pipeline.ReconcileTimeout, "RECONCILE_TIMEOUT")
	duration(&cfg.Pipeline.PartyTimeout, "PARTY_TIMEOUT")
	integer(&cfg.Pipeline.DivisionWorkers, "DIVISION_WORKERS")
	integer(&cfg.Pipeline.PartyLookupLimit, "PARTY_LOOKUP_LIMIT")

	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.Search.Model == "" {
		cfg.Search.Model = cfg.LLM.Model
	}
	return errors.Join(errs...)
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is required for the gemini provider"))
		}
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required"))
		}
	case ProviderFake:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q must be %q or %q", c.LLM.Provider, ProviderGemini, ProviderFake))
	}
	if u, err := url.Parse(c.VoteHub.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("votehub.url %q is not an absolute URL", c.VoteHub.URL))
	}
	if c.Pipeline.DivisionWorkers < 1 {
		errs = append(errs, errors.New("pipeline.division_workers must be at least 1"))
	}
	if c.Pipeline.PartyWorkers < 1 {
		errs = append(errs, errors.New("pipeline.party_workers must be at least 1"))
	}
	if c.Pipeline.PartyLookupLimit < 1 {
		errs = append(errs, errors.New("pipeline.party_lookup_limit must be at least 1"))
	}
	return errors.Join(errs...)
}
