// Package config loads settings from an optional yaml file with
// ${ENV_VAR} expansion, plus a .env file when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	NewsAPI  NewsAPIConfig  `yaml:"newsapi"`
	Reader   ReaderConfig   `yaml:"reader"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	TTS      TTSConfig      `yaml:"tts"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LogLevel string         `yaml:"log_level"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	BadgerPath string `yaml:"badger_path"`
}

type NewsAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type ReaderConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type GeminiConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

type TTSConfig struct {
	APIKey string `yaml:"api_key"`
}

type PipelineConfig struct {
	PageSize     int           `yaml:"page_size"`
	Workers      int           `yaml:"workers"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Strategy     string        `yaml:"strategy"`
	MaxTasks     int           `yaml:"max_tasks"`
}

// Load reads path when non-empty, expands ${VARS}, and fills defaults.
// A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":5001"
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = "localhost:6379"
	}
	if c.Store.BadgerPath == "" {
		c.Store.BadgerPath = "./badger-data"
	}
	if c.NewsAPI.APIKey == "" {
		c.NewsAPI.APIKey = os.Getenv("NEWS_API_KEY")
	}
	if c.Reader.BaseURL == "" {
		c.Reader.BaseURL = "https://r.jina.ai"
	}
	if c.Reader.APIKey == "" {
		c.Reader.APIKey = os.Getenv("JINA_API_KEY")
	}
	if c.Reader.CacheTTL == 0 {
		c.Reader.CacheTTL = time.Hour
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI")
	}
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = os.Getenv("GOOGLE_TTS_API_KEY")
	}
	if c.Pipeline.PageSize == 0 {
		c.Pipeline.PageSize = 10
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 5
	}
	if c.Pipeline.FetchTimeout == 0 {
		c.Pipeline.FetchTimeout = 6 * time.Second
	}
	if c.Pipeline.Strategy == "" {
		c.Pipeline.Strategy = "group"
	}
	if c.Pipeline.MaxTasks == 0 {
		c.Pipeline.MaxTasks = 100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
