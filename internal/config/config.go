package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"PACTSYNC_SERVER_"`
	API       APIConfig       `yaml:"api" envPrefix:"PACTSYNC_API_"`
	Bridge    BridgeConfig    `yaml:"bridge" envPrefix:"PACTSYNC_BRIDGE_"`
	Poll      PollConfig      `yaml:"poll" envPrefix:"PACTSYNC_POLL_"`
	Challenge ChallengeConfig `yaml:"challenge" envPrefix:"PACTSYNC_CHALLENGE_"`
	Log       LogConfig       `yaml:"log" envPrefix:"PACTSYNC_LOG_"`
}

// ServerConfig holds the local bridge listener configuration
type ServerConfig struct {
	Port int    `yaml:"port" env:"PORT"`
	Host string `yaml:"host" env:"HOST"`
}

// APIConfig holds the remote server configuration
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Token   string        `yaml:"token" env:"TOKEN"`
}

// BridgeConfig holds the bridge authentication configuration.
// An empty secret disables bridge authentication.
type BridgeConfig struct {
	Secret string `yaml:"secret" env:"SECRET"`
}

// PollConfig holds the background refresh intervals
type PollConfig struct {
	PartnerInterval       time.Duration `yaml:"partner_interval" env:"PARTNER_INTERVAL"`
	ChallengeInterval     time.Duration `yaml:"challenge_interval" env:"CHALLENGE_INTERVAL"`
	ChallengeFastInterval time.Duration `yaml:"challenge_fast_interval" env:"CHALLENGE_FAST_INTERVAL"`
}

// ChallengeConfig holds challenge store timings
type ChallengeConfig struct {
	InvitationRefreshDelay time.Duration `yaml:"invitation_refresh_delay" env:"INVITATION_REFRESH_DELAY"`
	RetryBaseDelay         time.Duration `yaml:"retry_base_delay" env:"RETRY_BASE_DELAY"`
	MaxRetries             int           `yaml:"max_retries" env:"MAX_RETRIES"`
	BonusReloadDelay       time.Duration `yaml:"bonus_reload_delay" env:"BONUS_RELOAD_DELAY"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8787},
		API: APIConfig{
			BaseURL: "http://localhost:5001/api",
			Timeout: 15 * time.Second,
		},
		Poll: PollConfig{
			PartnerInterval:       15 * time.Second,
			ChallengeInterval:     15 * time.Second,
			ChallengeFastInterval: 3 * time.Second,
		},
		Challenge: ChallengeConfig{
			InvitationRefreshDelay: 500 * time.Millisecond,
			RetryBaseDelay:         time.Second,
			MaxRetries:             2,
			BonusReloadDelay:       time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies PACTSYNC_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	cfg.API.BaseURL = NormalizeBaseURL(cfg.API.BaseURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Poll.PartnerInterval <= 0 || c.Poll.ChallengeInterval <= 0 || c.Poll.ChallengeFastInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.Challenge.MaxRetries < 0 {
		return fmt.Errorf("challenge.max_retries must not be negative")
	}
	return nil
}

// Addr returns the bridge listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var apiSegment = regexp.MustCompile(`(/api)(/|$)`)

// NormalizeBaseURL trims trailing slashes and appends /api unless the URL
// already carries an /api segment.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	if apiSegment.MatchString(trimmed) {
		return trimmed
	}
	return trimmed + "/api"
}

// ServerRoot returns the base URL without its trailing /api segment.
func ServerRoot(baseURL string) string {
	return strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api")
}
