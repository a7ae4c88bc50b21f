package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the tool reads
const EnvPrefix = "XHSTOOLBOX_"

// Config holds all configuration options for xhstoolbox
type Config struct {
	// Backend API the client talks to
	Backend BackendConfig `yaml:"backend" json:"backend"`

	// Edge proxy settings
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	Login LoginConfig `yaml:"login" json:"login"`
	Feed  FeedConfig  `yaml:"feed" json:"feed"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`
	Output   OutputConfig   `yaml:"output" json:"output"`

	// Where the logged-in user is persisted
	Session SessionConfig `yaml:"session" json:"session"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BackendConfig describes the backend service
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// ProxyConfig holds the edge proxy configuration
type ProxyConfig struct {
	Listen        string        `yaml:"listen" json:"listen"`
	BackendOrigin string        `yaml:"backend_origin" json:"backend_origin"`
	PathPrefix    string        `yaml:"path_prefix" json:"path_prefix"`
	StaticDir     string        `yaml:"static_dir" json:"static_dir"`
	ReadTimeout   time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// LoginConfig holds QR login settings
type LoginConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// FeedConfig holds feed browsing defaults
type FeedConfig struct {
	PageSize        int    `yaml:"page_size" json:"page_size"`
	DefaultCategory string `yaml:"default_category" json:"default_category"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	Stagger             time.Duration `yaml:"stagger" json:"stagger"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	Retries             int           `yaml:"retries" json:"retries"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	SaveMetadata      bool   `yaml:"save_metadata" json:"save_metadata"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// SessionConfig selects and configures the persisted session store
type SessionConfig struct {
	Store         string `yaml:"store" json:"store"`
	File          string `yaml:"file" json:"file"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Session store backends
const (
	StoreFile    = "file"
	StoreKeyring = "keyring"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:   "http://localhost:3000",
			Timeout:   30 * time.Second,
			UserAgent: "xhstoolbox/1.0",
		},
		Proxy: ProxyConfig{
			Listen:        ":8080",
			BackendOrigin: "http://localhost:3000",
			PathPrefix:    "/api",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  5 * time.Minute,
		},
		Login: LoginConfig{
			PollInterval: 2 * time.Second,
		},
		Feed: FeedConfig{
			PageSize:        20,
			DefaultCategory: "homefeed_recommend",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 2,
			Stagger:             500 * time.Millisecond,
			DownloadTimeout:     2 * time.Minute,
			Retries:             2,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
			SaveMetadata:  true,
		},
		Session: SessionConfig{
			Store:       StoreFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "xhstoolbox:",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Backend.BaseURL, "BACKEND_URL")
	setString(&c.Backend.UserAgent, "USER_AGENT")
	errs = append(errs, setDuration(&c.Backend.Timeout, "BACKEND_TIMEOUT"))

	setString(&c.Proxy.Listen, "PROXY_LISTEN")
	setString(&c.Proxy.BackendOrigin, "BACKEND_ORIGIN")
	setString(&c.Proxy.StaticDir, "STATIC_DIR")

	errs = append(errs, setDuration(&c.Login.PollInterval, "POLL_INTERVAL"))
	errs = append(errs, setInt(&c.Feed.PageSize, "PAGE_SIZE"))

	setString(&c.Output.BaseDirectory, "OUTPUT_DIR")
	errs = append(errs, setInt(&c.Download.ConcurrentDownloads, "CONCURRENT_DOWNLOADS"))
	errs = append(errs, setDuration(&c.Download.Stagger, "DOWNLOAD_STAGGER"))
	errs = append(errs, setInt(&c.Download.Retries, "DOWNLOAD_RETRIES"))

	setString(&c.Session.Store, "SESSION_STORE")
	setString(&c.Session.File, "SESSION_FILE")
	setString(&c.Session.RedisAddr, "REDIS_ADDR")
	setString(&c.Session.RedisPassword, "REDIS_PASSWORD")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.File, "LOG_FILE")

	return errors.Join(errs...)
}

func setString(dst *string, name string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, name string) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile returns the first config file found in the standard
// locations, or "" when there is none
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".xhstoolbox.yaml",
		".xhstoolbox.yml",
		filepath.Join(home, ".config", "xhstoolbox", "config.yaml"),
		filepath.Join(home, ".config", "xhstoolbox", "config.yml"),
		filepath.Join(home, ".xhstoolbox.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := validateOrigin(c.Backend.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("backend base URL: %w", err))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend timeout must be positive"))
	}

	if err := validateOrigin(c.Proxy.BackendOrigin); err != nil {
		errs = append(errs, fmt.Errorf("proxy backend origin: %w", err))
	}
	if !strings.HasPrefix(c.Proxy.PathPrefix, "/") {
		errs = append(errs, errors.New("proxy path prefix must start with /"))
	}
	if c.Proxy.Listen == "" {
		errs = append(errs, errors.New("proxy listen address is required"))
	}

	if c.Login.PollInterval <= 0 {
		errs = append(errs, errors.New("login poll interval must be positive"))
	}

	if c.Feed.PageSize <= 0 || c.Feed.PageSize > 100 {
		errs = append(errs, errors.New("feed page size must be between 1 and 100"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.Stagger < 0 {
		errs = append(errs, errors.New("download stagger cannot be negative"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.Retries < 0 || c.Download.Retries > 10 {
		errs = append(errs, errors.New("download retries must be between 0 and 10"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	switch c.Session.Store {
	case StoreFile, StoreKeyring, StoreMemory:
	case StoreRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.Session.Store))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

func validateOrigin(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Masked returns a copy that is safe to print
func (c *Config) Masked() *Config {
	masked := *c
	if masked.Session.RedisPassword != "" {
		masked.Session.RedisPassword = "********"
	}
	return &masked
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only non-zero values override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["backend"].(string); ok && v != "" {
		c.Backend.BaseURL = v
	}
	if v, ok := flags["backend-origin"].(string); ok && v != "" {
		c.Proxy.BackendOrigin = v
	}
	if v, ok := flags["listen"].(string); ok && v != "" {
		c.Proxy.Listen = v
	}
	if v, ok := flags["static"].(string); ok && v != "" {
		c.Proxy.StaticDir = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["num"].(int); ok && v > 0 {
		c.Feed.PageSize = v
	}
	if v, ok := flags["session-store"].(string); ok && v != "" {
		c.Session.Store = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xhstoolbox.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
