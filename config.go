package pdfquiz

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no config path is given; a missing file is fine
const DefaultConfigPath = "config.yaml"

// Config holds settings for the web server and the terminal client
type Config struct {
	OpenAI struct {
		APIKey        string `yaml:"api_key"`
		Model         string `yaml:"model" validate:"required"`
		BaseURL       string `yaml:"base_url" validate:"omitempty,url"`
		Timeout       string `yaml:"timeout"`
		MaxInputChars int    `yaml:"max_input_chars" validate:"gte=0"`
	} `yaml:"openai"`
	Server struct {
		Port          string `yaml:"port" validate:"required,numeric"`
		SessionSecret string `yaml:"session_secret" validate:"omitempty,min=16"`
		MaxUploadMB   int    `yaml:"max_upload_mb" validate:"gte=1,lte=100"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Archive struct {
		Path string `yaml:"path"`
	} `yaml:"archive"`
	Quiz struct {
		QuestionTime string `yaml:"question_time"`
	} `yaml:"quiz"`
	Log struct {
		Verbose       bool   `yaml:"verbose"`
		TranscriptDir string `yaml:"transcript_dir"`
	} `yaml:"log"`
}

// LoadConfig reads .env, then the YAML file at path, then environment
// overrides, fills defaults and validates the result. An empty path means
// DefaultConfigPath, which may be absent.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	optional := path == ""
	if optional {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.OpenAI.Model, "OPENAI_MODEL")
	setFromEnv(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setFromEnv(&c.Server.Port, "PORT")
	setFromEnv(&c.Server.SessionSecret, "SESSION_SECRET")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Redis.Password, "REDIS_PASSWORD")
	setFromEnv(&c.Archive.Path, "ARCHIVE_PATH")
	setFromEnv(&c.Log.TranscriptDir, "TRANSCRIPT_DIR")
	if v, err := strconv.ParseBool(os.Getenv("VERBOSE")); err == nil {
		c.Log.Verbose = v
	}
}

func (c *Config) applyDefaults() {
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultModel
	}
	if c.Server.Port == "" {
		c.Server.Port = "8180"
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}
}

// Generator returns the generator settings
func (c *Config) Generator() GeneratorConfig {
	return GeneratorConfig{
		APIKey:        c.OpenAI.APIKey,
		Model:         c.OpenAI.Model,
		BaseURL:       c.OpenAI.BaseURL,
		Timeout:       DurationOr(c.OpenAI.Timeout, DefaultTimeout),
		MaxInputChars: c.OpenAI.MaxInputChars,
	}
}

// QuestionTimeLimit returns the per-question answer window
func (c *Config) QuestionTimeLimit() time.Duration {
	return DurationOr(c.Quiz.QuestionTime, DefaultQuestionTimeLimit)
}

// SessionTTL returns how long idle sessions are kept in Redis
func (c *Config) SessionTTL() time.Duration {
	return DurationOr(c.Redis.TTL, 2*time.Hour)
}

// DurationOr parses a duration string or returns the fallback if empty or invalid
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
