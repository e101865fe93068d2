// Package config resolves ttyclient settings from flags, TTYCLIENT_*
// environment variables, an optional config file and defaults, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/remote-agent-terminal/ttyclient/internal/heartbeat"
	"github.com/remote-agent-terminal/ttyclient/internal/logging"
	"github.com/remote-agent-terminal/ttyclient/internal/model"
	"github.com/remote-agent-terminal/ttyclient/internal/ws"
)

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "TTYCLIENT"

// Config holds the connect command settings.
type Config struct {
	URL               string        `mapstructure:"url"`
	AuthToken         string        `mapstructure:"auth-token"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat-interval"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake-timeout"`
	LogLevel          string        `mapstructure:"log-level"`
	LogFile           string        `mapstructure:"log-file"`

	// Journal is the sqlite path of the connection journal; empty disables it.
	Journal string `mapstructure:"journal"`

	// Record is the asciinema cast path; empty disables recording.
	Record string `mapstructure:"record"`
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}

// RegisterFlags adds every setting to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("url", "", "terminal page URL")
	fs.String("auth-token", "", "auth token sent in the init message")
	fs.Duration("heartbeat-interval", heartbeat.DefaultInterval, "ping interval")
	fs.Duration("handshake-timeout", ws.DefaultHandshakeTimeout, "websocket handshake timeout")
	fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "write logs to this file instead of stderr")
	fs.String("journal", "", "record connection attempts in this sqlite database")
	fs.String("record", "", "record the session to this asciinema cast file")
}

// setDefaults registers every key so AutomaticEnv sees it even without flags.
func setDefaults(v *viper.Viper) {
	v.SetDefault("url", "")
	v.SetDefault("auth-token", "")
	v.SetDefault("heartbeat-interval", heartbeat.DefaultInterval)
	v.SetDefault("handshake-timeout", ws.DefaultHandshakeTimeout)
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-file", "")
	v.SetDefault("journal", "")
	v.SetDefault("record", "")
}

// Load resolves the configuration. fs may be nil, in which case only the
// environment and defaults apply.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("error binding flags: %w", err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// PageURL parses the configured terminal page URL.
func (c *Config) PageURL() (*url.URL, error) {
	if c.URL == "" {
		return nil, model.ErrURLRequired
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	return u, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []error

	if _, err := cfg.PageURL(); err != nil {
		errs = append(errs, err)
	}

	if cfg.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("heartbeat-interval must be positive"))
	}

	if cfg.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake-timeout must be positive"))
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// History holds the history command settings.
type History struct {
	Journal string `mapstructure:"journal"`
	Limit   int    `mapstructure:"limit"`
	JSON    bool   `mapstructure:"json"`
}

// RegisterHistoryFlags adds the history settings to fs.
func RegisterHistoryFlags(fs *pflag.FlagSet) {
	fs.String("journal", "", "sqlite database written by connect --journal")
	fs.IntP("limit", "n", 20, "number of attempts to show, 0 for all")
	fs.Bool("json", false, "print attempts as JSON")
}

// LoadHistory resolves the history settings from fs and the environment.
func LoadHistory(fs *pflag.FlagSet) (*History, error) {
	v := viper.New()

	v.SetDefault("journal", "")
	v.SetDefault("limit", 20)
	v.SetDefault("json", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("error binding flags: %w", err)
		}
	}

	var h History
	if err := v.Unmarshal(&h); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if h.Journal == "" {
		return nil, model.ErrJournalRequired
	}
	if h.Limit < 0 {
		return nil, errors.New("limit must not be negative")
	}

	return &h, nil
}
