// Package config loads the command line configuration from flags,
// JFROG_* environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. JFROG_ACCESS_TOKEN.
const EnvPrefix = "JFROG"

// Config holds the settings shared by every jfcli command.
type Config struct {
	URL         string        `mapstructure:"url"`
	AccessToken string        `mapstructure:"access-token"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RPS         int           `mapstructure:"rps"`
	Burst       int           `mapstructure:"burst"`
	LogLevel    string        `mapstructure:"log-level"`
	LogFormat   string        `mapstructure:"log-format"`
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("url", "", "JFrog Platform URL, e.g. https://acme.jfrog.io/")
	fs.String("access-token", "", "access token used for authenticated requests")
	fs.String("user", "", "user for basic authentication")
	fs.String("password", "", "password or API key for basic authentication")
	fs.Duration("timeout", 0, "overall timeout of a single request (0 disables)")
	fs.Int("rps", 0, "maximum requests per second (0 disables throttling)")
	fs.Int("burst", 0, "throttle burst size (defaults to rps)")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
}

// Load resolves the configuration. Flags set on the command line win over
// the environment, which wins over the dotenv file and the flag defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	envFile, err := fs.GetString("env-file")
	if err != nil {
		return nil, fmt.Errorf("reading env-file flag: %w", err)
	}
	// A missing dotenv file is not an error; variables already set are kept.
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("url is required (--url or JFROG_URL)")
	}
	if c.AccessToken != "" && c.User != "" {
		return errors.New("access-token and user are mutually exclusive")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.RPS < 0 || c.Burst < 0 {
		return errors.New("rps and burst must not be negative")
	}
	if c.RPS > 0 && c.Burst == 0 {
		c.Burst = c.RPS
	}
	return nil
}
