// Package config loads the YAML configuration of the publisher.
//
// Secrets can be given inline or by environment variable name (api_key_env,
// token_env). Before the file is read, .env files are loaded in priority order:
//
//  1. ENV_FILE (if set, loads only this file)
//  2. .env.local
//  3. .env
//
// Variables already present in the environment are never overwritten.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConcurrency   = 3
	DefaultCallTimeout   = 45 * time.Second
	DefaultMaxImages     = 3
	DefaultWebResults    = 5
	DefaultSocialResults = 5
	DefaultSyntheticMin  = 3
	DefaultServerAddr    = ":8080"
)

type Config struct {
	LLM        LLMConfig      `yaml:"llm"`
	Images     ImagesConfig   `yaml:"images"`
	Research   ResearchConfig `yaml:"research"`
	Pipeline   PipelineConfig `yaml:"pipeline"`
	Publish    PublishConfig  `yaml:"publish"`
	ServerAddr string         `yaml:"server_addr"`
	LogLevel   string         `yaml:"log_level"`
}

type LLMConfig struct {
	Provider          string `yaml:"provider"` // openai | deepseek | mock
	Model             string `yaml:"model"`
	APIKey            string `yaml:"api_key"`
	APIKeyEnv         string `yaml:"api_key_env"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type ImagesConfig struct {
	Provider          string            `yaml:"provider"` // openai | mock
	Model             string            `yaml:"model"`
	Size              string            `yaml:"size"`
	APIKey            string            `yaml:"api_key"`
	APIKeyEnv         string            `yaml:"api_key_env"`
	BaseURL           string            `yaml:"base_url"`
	RequestsPerMinute int               `yaml:"requests_per_minute"`
	MaxImages         int               `yaml:"max_images"`
	TechKeywords      map[string]string `yaml:"tech_keywords"`
}

type ResearchConfig struct {
	WebResults        int    `yaml:"web_results"`
	SocialResults     int    `yaml:"social_results"`
	SyntheticFallback bool   `yaml:"synthetic_fallback"`
	SyntheticMin      int    `yaml:"synthetic_min"`
	UserAgent         string `yaml:"user_agent"`
	// FetchArticles replaces web snippets with the readable text of each result page.
	FetchArticles bool `yaml:"fetch_articles"`
}

type PipelineConfig struct {
	Concurrency int           `yaml:"concurrency"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	MaxSections int           `yaml:"max_sections"`
}

type PublishConfig struct {
	Medium   MediumConfig   `yaml:"medium"`
	LinkedIn LinkedInConfig `yaml:"linkedin"`
}

type MediumConfig struct {
	Token    string   `yaml:"token"`
	TokenEnv string   `yaml:"token_env"`
	BaseURL  string   `yaml:"base_url"`
	Tags     []string `yaml:"tags"`
}

type LinkedInConfig struct {
	Token     string `yaml:"token"`
	TokenEnv  string `yaml:"token_env"`
	AuthorURN string `yaml:"author_urn"`
	BaseURL   string `yaml:"base_url"`
}

// Load reads path, resolves env-referenced secrets, applies defaults and validates.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) document into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.resolveSecrets()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// resolveSecrets fills inline secrets from their *_env variables when unset.
func (c *Config) resolveSecrets() {
	c.LLM.APIKey = secret(c.LLM.APIKey, c.LLM.APIKeyEnv)
	c.Images.APIKey = secret(c.Images.APIKey, c.Images.APIKeyEnv)
	c.Publish.Medium.Token = secret(c.Publish.Medium.Token, c.Publish.Medium.TokenEnv)
	c.Publish.LinkedIn.Token = secret(c.Publish.LinkedIn.Token, c.Publish.LinkedIn.TokenEnv)
}

func secret(inline, env string) string {
	if inline != "" || env == "" {
		return inline
	}
	return strings.TrimSpace(os.Getenv(env))
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "mock"
	}
	if c.Images.Provider == "" {
		c.Images.Provider = "mock"
	}
	if c.Images.MaxImages == 0 {
		c.Images.MaxImages = DefaultMaxImages
	}
	// image generation shares the text credentials unless given its own
	if c.Images.APIKey == "" && c.Images.Provider == c.LLM.Provider {
		c.Images.APIKey = c.LLM.APIKey
	}
	if c.Research.WebResults == 0 {
		c.Research.WebResults = DefaultWebResults
	}
	if c.Research.SocialResults == 0 {
		c.Research.SocialResults = DefaultSocialResults
	}
	if c.Research.SyntheticMin == 0 {
		c.Research.SyntheticMin = DefaultSyntheticMin
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = DefaultConcurrency
	}
	if c.Pipeline.CallTimeout == 0 {
		c.Pipeline.CallTimeout = DefaultCallTimeout
	}
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate rejects unknown providers and negative limits.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "mock":
	case "openai", "deepseek":
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required"))
		}
		if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm provider %q not supported", c.LLM.Provider))
	}
	switch c.Images.Provider {
	case "mock", "openai":
	default:
		errs = append(errs, fmt.Errorf("images provider %q not supported", c.Images.Provider))
	}
	if c.Images.MaxImages < 0 {
		errs = append(errs, errors.New("images.max_images must not be negative"))
	}
	if c.Research.WebResults < 0 || c.Research.SocialResults < 0 || c.Research.SyntheticMin < 0 {
		errs = append(errs, errors.New("research limits must not be negative"))
	}
	if c.Pipeline.Concurrency < 0 {
		errs = append(errs, errors.New("pipeline.concurrency must not be negative"))
	}
	if c.Pipeline.CallTimeout < 0 || c.Pipeline.RetryDelay < 0 {
		errs = append(errs, errors.New("pipeline timeouts must not be negative"))
	}
	if c.Pipeline.MaxSections < 0 {
		errs = append(errs, errors.New("pipeline.max_sections must not be negative"))
	}
	if c.LLM.RequestsPerMinute < 0 || c.Images.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests_per_minute must not be negative"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q not supported", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Default returns the configuration used when no file is given: mock providers only.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}
