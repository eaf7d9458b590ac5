package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

type AppConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Chart    ChartConfig    `yaml:"chart"`
	LLM      LLMConfig      `yaml:"llm"`
	Geo      GeoConfig      `yaml:"geo"`
	Store    StoreConfig    `yaml:"store"`
	Limits   LimitsConfig   `yaml:"limits"`
	Report   ReportConfig   `yaml:"report"`

	WriteErrorLog bool `yaml:"write_error_log"`
	ShowProgress  bool `yaml:"show_progress"`
}

type TelegramConfig struct {
	Token               string  `yaml:"token"`
	WebhookURL          string  `yaml:"webhook_url"`
	WebhookListen       string  `yaml:"webhook_listen"`
	WebhookSecret       string  `yaml:"webhook_secret"`
	WebhookAttempts     int     `yaml:"webhook_attempts"`
	SubscriptionChannel string  `yaml:"subscription_channel"`
	AdminIDs            []int64 `yaml:"admin_ids"`
}

type ChartConfig struct {
	// Orb has no built-in default; it must be set in the config file.
	Orb         *float64 `yaml:"orb"`
	Bodies      []string `yaml:"bodies"`
	HouseSystem string   `yaml:"house_system"`
}

type LLMConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	MaxWorkers     int    `yaml:"max_workers"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GeoConfig struct {
	NominatimURL   string `yaml:"nominatim_url"`
	TimezoneURL    string `yaml:"timezone_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

type LimitsConfig struct {
	ReportsPerDay    int `yaml:"reports_per_day"`
	MaxGlobalWorkers int `yaml:"max_global_workers"`
	QueueSize        int `yaml:"queue_size"`
}

type ReportConfig struct {
	FontPath  string `yaml:"font_path"`
	OutputDir string `yaml:"output_dir"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultTimezoneURL  = "https://timeapi.io"
)

var (
	ErrOrbMissing = errors.New("chart.orb is required")
	ErrInvalid    = errors.New("invalid config")
)

// Template is written next to the executable when no config file exists.
const Template = `# astrobot configuration
telegram:
  token: ""                 # or TELEGRAM_BOT_TOKEN
  webhook_url: ""           # empty = long polling
  webhook_listen: ":8080"
  webhook_secret: ""
  webhook_attempts: 5
  subscription_channel: ""  # e.g. "@my_channel"
  admin_ids: []
chart:
  orb: 8
  bodies: [Sun, Moon, Mercury, Venus, Mars]
  house_system: porphyry    # porphyry | equal | whole_sign
llm:
  provider: gemini          # gemini | openai | static
  model: ""
  api_key: ""               # or GEMINI_API_KEY / OPENAI_API_KEY
  base_url: ""              # openai-compatible endpoint override
  max_workers: 3
  max_retries: 2
  timeout_seconds: 60
geo:
  nominatim_url: "https://nominatim.openstreetmap.org"
  timezone_url: "https://timeapi.io"
  user_agent: "astrobot/1.0"
  timeout_seconds: 15
store:
  backend: memory           # memory | redis
  redis_addr: "localhost:6379"
  redis_password: ""
  redis_db: 0
  key_prefix: "astrobot:"
limits:
  reports_per_day: 1
  max_global_workers: 8
  queue_size: 32
report:
  font_path: "DejaVuSans.ttf"
  output_dir: ""
write_error_log: true
show_progress: true
`

// Parse reads the config file, applies environment overrides and defaults,
// and validates the result.
func Parse(filePath string) (*AppConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case ProviderGemini:
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Telegram.WebhookListen == "" {
		c.Telegram.WebhookListen = ":8080"
	}
	if c.Telegram.WebhookAttempts <= 0 {
		c.Telegram.WebhookAttempts = 5
	}
	if len(c.Chart.Bodies) == 0 {
		c.Chart.Bodies = []string{"Sun", "Moon", "Mercury", "Venus", "Mars"}
	}
	if c.Chart.HouseSystem == "" {
		c.Chart.HouseSystem = "porphyry"
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderStatic
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.Model = "gemini-2.0-flash"
		case ProviderOpenAI:
			c.LLM.Model = "gpt-4o-mini"
		}
	}
	if c.LLM.MaxWorkers <= 0 {
		c.LLM.MaxWorkers = 3
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 0
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.Geo.NominatimURL == "" {
		c.Geo.NominatimURL = DefaultNominatimURL
	}
	if c.Geo.TimezoneURL == "" {
		c.Geo.TimezoneURL = DefaultTimezoneURL
	}
	if c.Geo.UserAgent == "" {
		c.Geo.UserAgent = "astrobot/1.0"
	}
	if c.Geo.TimeoutSeconds <= 0 {
		c.Geo.TimeoutSeconds = 15
	}
	c.Store.Backend = strings.ToLower(c.Store.Backend)
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "astrobot:"
	}
	if c.Limits.ReportsPerDay <= 0 {
		c.Limits.ReportsPerDay = 1
	}
	if c.Limits.MaxGlobalWorkers <= 0 {
		c.Limits.MaxGlobalWorkers = 8
	}
	if c.Limits.QueueSize <= 0 {
		c.Limits.QueueSize = 32
	}
}

// Validate rejects configurations the bot cannot run with.
func (c *AppConfig) Validate() error {
	if c.Chart.Orb == nil {
		return ErrOrbMissing
	}
	orb := *c.Chart.Orb
	if math.IsNaN(orb) || math.IsInf(orb, 0) || orb < 0 || orb > 180 {
		return fmt.Errorf("%w: chart.orb %v must be within [0, 180]", ErrInvalid, orb)
	}
	switch c.Chart.HouseSystem {
	case "porphyry", "equal", "whole_sign":
	default:
		return fmt.Errorf("%w: chart.house_system %q", ErrInvalid, c.Chart.HouseSystem)
	}
	seen := make(map[string]bool, len(c.Chart.Bodies))
	for _, b := range c.Chart.Bodies {
		if seen[b] {
			return fmt.Errorf("%w: chart.bodies lists %q twice", ErrInvalid, b)
		}
		seen[b] = true
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: llm.api_key is required for provider %q", ErrInvalid, c.LLM.Provider)
		}
	case ProviderStatic:
	default:
		return fmt.Errorf("%w: llm.provider %q", ErrInvalid, c.LLM.Provider)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: store.redis_addr is required for the redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: store.backend %q", ErrInvalid, c.Store.Backend)
	}
	return nil
}

// OrbDegrees returns the configured orb. Validate guarantees it is set.
func (c *AppConfig) OrbDegrees() float64 {
	return *c.Chart.Orb
}

// IsAdmin reports whether the Telegram user may run admin commands.
func (c *AppConfig) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
