package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Scheduler Scheduler `yaml:"scheduler"`
	Generator Generator `yaml:"generator"`
	Store     Store     `yaml:"store"`
}

type Server struct {
	Listen           string  `yaml:"listen"`
	PostgresDsn      string  `yaml:"postgresDsn"`
	RedisAddr        string  `yaml:"redisAddr"`
	RedisPassword    string  `yaml:"redisPassword"`
	RedisDB          int     `yaml:"redisDB"`
	MemcachedAddr    string  `yaml:"memcachedAddr"`
	EnableTrace      bool    `yaml:"enableTrace"`
	TraceEndpoint    string  `yaml:"traceEndpoint"`
	TraceSampleRatio float64 `yaml:"traceSampleRatio"`
	AdminToken       string  `yaml:"adminToken"`
}

type Scheduler struct {
	Enabled  *bool         `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timezone string        `yaml:"timezone"`
}

type Generator struct {
	Provider          string        `yaml:"provider"` // openai, gemini
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseURL"`
	Timeout           time.Duration `yaml:"timeout"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

type Store struct {
	RetainHistory bool          `yaml:"retainHistory"`
	CacheTTL      time.Duration `yaml:"cacheTTL"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PLUMA_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Server.PostgresDsn = v
	}
	if c.Generator.APIKey == "" {
		switch c.Generator.Provider {
		case ProviderGemini:
			c.Generator.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.Generator.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Server.TraceSampleRatio == 0 {
		c.Server.TraceSampleRatio = 0.1
	}
	if c.Scheduler.Enabled == nil {
		enabled := true
		c.Scheduler.Enabled = &enabled
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = 30 * time.Minute
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "America/Sao_Paulo"
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = ProviderOpenAI
	}
	if c.Generator.Model == "" {
		switch c.Generator.Provider {
		case ProviderGemini:
			c.Generator.Model = "gemini-2.5-flash"
		default:
			c.Generator.Model = "gpt-4o-mini"
		}
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = 60 * time.Second
	}
	if c.Generator.Temperature == 0 {
		c.Generator.Temperature = 0.9
	}
	if c.Generator.MaxTokens == 0 {
		c.Generator.MaxTokens = 1200
	}
	if c.Generator.RequestsPerMinute == 0 {
		c.Generator.RequestsPerMinute = 20
	}
	if c.Store.CacheTTL == 0 {
		c.Store.CacheTTL = 5 * time.Minute
	}
}

func (c Config) Validate() error {
	if c.Server.PostgresDsn == "" {
		return fmt.Errorf("server.postgresDsn is required")
	}
	if c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", c.Scheduler.Interval)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return errors.Wrapf(err, "scheduler.timezone %q", c.Scheduler.Timezone)
	}
	switch c.Generator.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("generator.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Generator.Provider)
	}
	return nil
}

// Location returns the scheduler time zone. Validate guarantees it loads.
func (s Scheduler) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Scheduler) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}
