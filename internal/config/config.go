package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gravitrone/concierge/internal/api"
)

// DefaultAPIURL is the backend the dashboard talks to when nothing is configured.
const DefaultAPIURL = api.DefaultBaseURL

const (
	defaultRequestTimeout = 15 * time.Second
	defaultTaskRefresh    = 60 * time.Second
	defaultLogPoll        = 2 * time.Second
	defaultQuestionPoll   = 3 * time.Second
	defaultPageSize       = 50
)

// Config holds dashboard configuration stored at ~/.concierge/config.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	APIKey         string        `yaml:"api_key,omitempty"`
	UploadToken    string        `yaml:"upload_token,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	TaskRefresh    time.Duration `yaml:"task_refresh,omitempty"`
	LogPoll        time.Duration `yaml:"log_poll,omitempty"`
	QuestionPoll   time.Duration `yaml:"question_poll,omitempty"`
	PageSize       int           `yaml:"page_size,omitempty"`
	LogFile        string        `yaml:"log_file,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint,omitempty"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Dir returns the directory holding the config and log files.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".concierge")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config")
}

// Load reads and parses the config file. A missing file returns defaults
// together with an error wrapping os.ErrNotExist.
func Load() (*Config, error) {
	path := Path()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("config not found: %w", err)
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		return nil, fmt.Errorf("config permissions too open: %04o (want 0600)", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks fields that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config api_url %q is not an absolute url", c.APIURL)
	}
	if c.RequestTimeout < 0 || c.TaskRefresh < 0 || c.LogPoll < 0 || c.QuestionPoll < 0 {
		return fmt.Errorf("config durations must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config log_level %q is not one of debug/info/warn/error", c.LogLevel)
	}
	return nil
}

// Save writes the config to disk with secure permissions.
func (c *Config) Save() error {
	path := Path()
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

func (c *Config) applyDefaults() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.TaskRefresh == 0 {
		c.TaskRefresh = defaultTaskRefresh
	}
	if c.LogPoll == 0 {
		c.LogPoll = defaultLogPoll
	}
	if c.QuestionPoll == 0 {
		c.QuestionPoll = defaultQuestionPoll
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(Dir(), "concierge.log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
