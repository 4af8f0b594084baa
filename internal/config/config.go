package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the config file is read.
const (
	DefaultPort          = 6667
	DefaultNick          = "gitbot"
	DefaultCommandPrefix = "!"
	DefaultBranch        = "master"
	DefaultTTLMinutes    = 30
	DefaultMaxConcurrent = 8
	DefaultShortenerURL  = "https://api-ssl.bitly.com/v4/shorten"
)

// IRCConfig describes the chat network connection.
type IRCConfig struct {
	Server        string   `json:"server" yaml:"server"`
	Port          int      `json:"port" yaml:"port"`
	TLS           bool     `json:"tls" yaml:"tls"`
	Nick          string   `json:"nick" yaml:"nick"`
	User          string   `json:"user" yaml:"user"`
	RealName      string   `json:"real_name" yaml:"real_name"`
	Channels      []string `json:"channels" yaml:"channels"`
	CommandPrefix string   `json:"command_prefix" yaml:"command_prefix"`
}

// GitHubConfig names the repository the bot serves and the token it uses.
type GitHubConfig struct {
	Token         string `json:"token" yaml:"token"`
	Owner         string `json:"owner" yaml:"owner"`
	Repository    string `json:"repository" yaml:"repository"`
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
}

// ShortenerConfig configures link shortening. An empty APIKey disables it.
type ShortenerConfig struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// CacheConfig configures the issue cache.
type CacheConfig struct {
	TTLMinutes int `json:"ttl_minutes" yaml:"ttl_minutes"`
}

// ScannerConfig bounds the passive mention scanner.
type ScannerConfig struct {
	MaxConcurrent int64 `json:"max_concurrent" yaml:"max_concurrent"`
}

// LoggingConfig mirrors the logging flags.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	JSONFormat bool   `json:"json_format" yaml:"json_format"`
}

// Config holds the application configuration
type Config struct {
	IRC       IRCConfig       `json:"irc" yaml:"irc"`
	GitHub    GitHubConfig    `json:"github" yaml:"github"`
	Shortener ShortenerConfig `json:"shortener" yaml:"shortener"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Scanner   ScannerConfig   `json:"scanner" yaml:"scanner"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.IRC.Port = DefaultPort
	cfg.IRC.Nick = DefaultNick
	cfg.IRC.CommandPrefix = DefaultCommandPrefix
	cfg.GitHub.DefaultBranch = DefaultBranch
	cfg.Shortener.Endpoint = DefaultShortenerURL
	cfg.Cache.TTLMinutes = DefaultTTLMinutes
	cfg.Scanner.MaxConcurrent = DefaultMaxConcurrent
	cfg.Logging.Level = "info"
	return cfg
}

// CacheTTL returns the issue cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// ResolvePath picks the config file: the explicit path, then GITIRCBOT_CONFIG,
// then ~/.config/gitircbot/config.json.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("GITIRCBOT_CONFIG"); env != "" {
		return env
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "gitircbot", "config.json")
}

// Load reads the configuration from path (see ResolvePath), a .env file in
// the working directory, and the environment, then validates it. A missing
// config or .env file is not an error.
func Load(path string) (*Config, error) {
	return load(ResolvePath(path), ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	getenv := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile decodes path into cfg, as YAML for .yaml/.yml and JSON otherwise.
func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}
	return nil
}

// applyEnv lets environment variables override the file.
func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.IRC.Server, "GITIRCBOT_IRC_SERVER")
	setString(&cfg.IRC.Nick, "GITIRCBOT_IRC_NICK")
	setString(&cfg.IRC.User, "GITIRCBOT_IRC_USER")
	setString(&cfg.IRC.RealName, "GITIRCBOT_IRC_REAL_NAME")
	setString(&cfg.IRC.CommandPrefix, "GITIRCBOT_COMMAND_PREFIX")
	if v := getenv("GITIRCBOT_IRC_CHANNELS"); v != "" {
		cfg.IRC.Channels = splitList(v)
	}
	if v := getenv("GITIRCBOT_IRC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GITIRCBOT_IRC_PORT %q: %w", v, err)
		}
		cfg.IRC.Port = port
	}
	if v := getenv("GITIRCBOT_IRC_TLS"); v != "" {
		tls, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GITIRCBOT_IRC_TLS %q: %w", v, err)
		}
		cfg.IRC.TLS = tls
	}

	// GITHUB_TOKEN is the conventional name; the prefixed one wins.
	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	setString(&cfg.GitHub.Token, "GITIRCBOT_GITHUB_TOKEN")
	setString(&cfg.GitHub.Owner, "GITIRCBOT_GITHUB_OWNER")
	setString(&cfg.GitHub.Repository, "GITIRCBOT_GITHUB_REPOSITORY")
	setString(&cfg.GitHub.DefaultBranch, "GITIRCBOT_GITHUB_BRANCH")

	setString(&cfg.Shortener.APIKey, "GITIRCBOT_SHORTENER_API_KEY")
	setString(&cfg.Shortener.Endpoint, "GITIRCBOT_SHORTENER_ENDPOINT")

	if v := getenv("GITIRCBOT_CACHE_TTL_MINUTES"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GITIRCBOT_CACHE_TTL_MINUTES %q: %w", v, err)
		}
		cfg.Cache.TTLMinutes = ttl
	}

	setString(&cfg.Logging.Level, "GITIRCBOT_LOG_LEVEL")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateConfig checks if the required configuration is present
func validateConfig(config *Config) error {
	if config.IRC.Server == "" {
		return fmt.Errorf("irc server is required")
	}

	if config.IRC.Port < 1 || config.IRC.Port > 65535 {
		return fmt.Errorf("irc port %d is out of range", config.IRC.Port)
	}

	if config.IRC.Nick == "" {
		return fmt.Errorf("irc nick is required")
	}

	if config.GitHub.Token == "" {
		return fmt.Errorf("github token is required")
	}

	if config.GitHub.Owner == "" || config.GitHub.Repository == "" {
		return fmt.Errorf("github owner and repository are required")
	}

	if config.Cache.TTLMinutes <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %d minutes", config.Cache.TTLMinutes)
	}

	return nil
}
