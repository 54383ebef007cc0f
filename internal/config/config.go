package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tanq16/splitdl/internal/utils"
)

const EnvPrefix = "SPLITDL"

type Config struct {
	Connections      int           `mapstructure:"connections"`
	Workers          int           `mapstructure:"workers"`
	Attempts         int           `mapstructure:"attempts"`
	ProbeAttempts    int           `mapstructure:"probe-attempts"`
	RetryDelay       time.Duration `mapstructure:"retry-delay"`
	FailFast         bool          `mapstructure:"fail-fast"`
	Timeout          time.Duration `mapstructure:"timeout"`
	KeepAliveTimeout time.Duration `mapstructure:"keep-alive-timeout"`
	UserAgent        string        `mapstructure:"user-agent"`
	Proxy            string        `mapstructure:"proxy"`
	ProxyUsername    string        `mapstructure:"proxy-username"`
	ProxyPassword    string        `mapstructure:"proxy-password"`
	Headers          []string      `mapstructure:"headers"`
	BearerToken      string        `mapstructure:"bearer-token"`
	AWSProfile       string        `mapstructure:"aws-profile"`
	Debug            bool          `mapstructure:"debug"`
	LogFile          string        `mapstructure:"log-file"`
}

// flags that are not settings
var unbound = map[string]bool{"config": true, "header": true, "output": true, "help": true, "version": true}

// Load merges defaults, an optional YAML file, SPLITDL_* environment variables
// and the flags that were set explicitly, in increasing precedence. An empty
// path falls back to $HOME/.splitdl.yaml when that file exists.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault("connections", utils.DefaultParallelism)
	v.SetDefault("workers", utils.DefaultWorkers)
	v.SetDefault("attempts", utils.DefaultChunkAttempts)
	v.SetDefault("probe-attempts", utils.DefaultProbeAttempts)
	v.SetDefault("retry-delay", utils.DefaultRetryDelay)
	v.SetDefault("timeout", 3*time.Minute)
	v.SetDefault("keep-alive-timeout", 90*time.Second)
	v.SetDefault("user-agent", utils.ToolUserAgent)
	v.SetDefault("aws-profile", "default")
	// every key needs a default so SPLITDL_* variables are seen by Unmarshal
	for _, key := range []string{"proxy", "proxy-username", "proxy-password", "bearer-token", "log-file"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("fail-fast", false)
	v.SetDefault("debug", false)
	v.SetDefault("headers", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".splitdl.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if unbound[f.Name] || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("error binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Connections <= 0:
		return fmt.Errorf("connections must be greater than 0, got %d", c.Connections)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be greater than 0, got %d", c.Workers)
	case c.Attempts <= 0:
		return fmt.Errorf("attempts must be greater than 0, got %d", c.Attempts)
	case c.ProbeAttempts <= 0:
		return fmt.Errorf("probe-attempts must be greater than 0, got %d", c.ProbeAttempts)
	case c.RetryDelay < 0:
		return fmt.Errorf("retry-delay cannot be negative")
	}
	return nil
}

func (c *Config) HTTPClientConfig(extraHeaders []string) utils.HTTPClientConfig {
	userAgent := c.UserAgent
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	return utils.HTTPClientConfig{
		Timeout:       c.Timeout,
		KATimeout:     c.KeepAliveTimeout,
		ProxyURL:      c.Proxy,
		ProxyUsername: c.ProxyUsername,
		ProxyPassword: c.ProxyPassword,
		UserAgent:     userAgent,
		Headers:       utils.ParseHeaderArgs(append(append([]string{}, c.Headers...), extraHeaders...)),
		BearerToken:   c.BearerToken,
	}
}

func (c *Config) RetryConfig() utils.RetryConfig {
	return utils.RetryConfig{
		ChunkAttempts: c.Attempts,
		ProbeAttempts: c.ProbeAttempts,
		RetryDelay:    c.RetryDelay,
		FailFast:      c.FailFast,
	}
}
