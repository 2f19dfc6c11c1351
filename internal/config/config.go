// Package config loads autoquote settings with viper.
//
// Precedence, highest first: changed command line flags, AUTOQUOTE_* env
// vars, the config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/vpic"
)

const EnvPrefix = "AUTOQUOTE"

type Config struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat     string        `mapstructure:"log_format" yaml:"log_format"`
	MinYear       int           `mapstructure:"min_year" yaml:"min_year"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`

	VPIC    VPICConfig    `mapstructure:"vpic" yaml:"vpic"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	NATS    NATSConfig    `mapstructure:"nats" yaml:"nats"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
}

type VPICConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	VehicleType string        `mapstructure:"vehicle_type" yaml:"vehicle_type"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Rate        float64       `mapstructure:"rate" yaml:"rate"`
	Burst       int           `mapstructure:"burst" yaml:"burst"`
}

type CacheConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// BackendConfig is the form the flattened quote is posted to. Hidden holds
// static fields the form always carries, such as a redirect target.
type BackendConfig struct {
	Action string            `mapstructure:"action" yaml:"action"`
	Method string            `mapstructure:"method" yaml:"method"`
	Hidden map[string]string `mapstructure:"hidden" yaml:"hidden,omitempty"`
}

// Form builds the backend form with its static hidden fields.
func (b BackendConfig) Form(id string) submit.Form {
	form := submit.NewForm(id, b.Action, b.Method)
	if len(b.Hidden) == 0 {
		return form
	}
	fields := make([]submit.HiddenField, 0, len(b.Hidden))
	for name, value := range b.Hidden {
		fields = append(fields, submit.Hidden(name, value))
	}
	return form.WithHidden(fields...)
}

// NATSConfig enables quote events. An empty URL with Embedded unset
// disables publishing.
type NATSConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Subject  string `mapstructure:"subject" yaml:"subject"`
	Embedded bool   `mapstructure:"embedded" yaml:"embedded"`
}

type SessionConfig struct {
	Idle time.Duration `mapstructure:"idle" yaml:"idle"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

var defaults = map[string]any{
	"addr":               ":8080",
	"log_level":          "info",
	"log_format":         "text",
	"min_year":           cascade.DefaultMinYear,
	"shutdown_grace":     10 * time.Second,
	"vpic.base_url":      vpic.DefaultBaseURL,
	"vpic.vehicle_type":  vpic.DefaultVehicleType,
	"vpic.timeout":       vpic.DefaultTimeout,
	"vpic.rate":          5.0,
	"vpic.burst":         5,
	"cache.backend":      CacheMemory,
	"cache.redis_addr":   "localhost:6379",
	"cache.redis_prefix": "autoquote:",
	"backend.action":     "",
	"backend.method":     "POST",
	"backend.hidden":     map[string]string{},
	"nats.url":           "",
	"nats.subject":       submit.DefaultSubject,
	"nats.embedded":      false,
	"session.idle":       30 * time.Minute,
}

// Keys lists every setting.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// FlagName is the command line flag bound to key: "vpic.base_url" becomes
// "vpic-base-url".
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// ProjectPath is the config file read when no path is given.
func ProjectPath() string {
	return "autoquote.yaml"
}

// Load reads path (or ProjectPath when path is empty and the file exists)
// and binds every flag in flags whose name matches FlagName of a key.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" && fileExists(ProjectPath()) {
		path = ProjectPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if flags != nil {
		for key := range defaults {
			flag := flags.Lookup(FlagName(key))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("config: binding flag %s: %w", flag.Name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	cfg.Backend.Method = strings.ToUpper(strings.TrimSpace(cfg.Backend.Method))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if len(cfg.Backend.Hidden) == 0 {
		cfg.Backend.Hidden = nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not memory or redis", c.Cache.Backend))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not text or json", c.LogFormat))
	}
	if c.MinYear <= 0 {
		errs = append(errs, fmt.Errorf("min_year must be positive, got %d", c.MinYear))
	}
	if c.VPIC.Rate < 0 || c.VPIC.Burst < 0 {
		errs = append(errs, errors.New("vpic.rate and vpic.burst must not be negative"))
	}
	if c.VPIC.Timeout < 0 {
		errs = append(errs, errors.New("vpic.timeout must not be negative"))
	}
	if c.Session.Idle <= 0 {
		errs = append(errs, errors.New("session.idle must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

// Write stores cfg as YAML at path.
func Write(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
