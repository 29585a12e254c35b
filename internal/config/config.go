// Package config loads scorekeeper settings. Values come from flag defaults,
// overlaid by an optional YAML file, overlaid by flags set on the command line.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Backend types
const (
	BackendMemory = "memory"
	BackendREST   = "rest"
)

// Cache types
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the full application configuration
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Backend BackendConfig `koanf:"backend"`
	Cache   CacheConfig   `koanf:"cache"`
	Auth    AuthConfig    `koanf:"auth"`
	Game    GameConfig    `koanf:"game"`
	Clock   ClockConfig   `koanf:"clock"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig configures the local HTTP API
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// BackendConfig selects and configures the remote system of record
type BackendConfig struct {
	Type        string        `koanf:"type"`
	URL         string        `koanf:"url"`
	RealtimeURL string        `koanf:"realtime_url"`
	Timeout     time.Duration `koanf:"timeout"`
	ReadRetries int           `koanf:"read_retries"`
	Seed        bool          `koanf:"seed"`
}

// CacheConfig selects and configures the session cache
type CacheConfig struct {
	Type     string        `koanf:"type"`
	RedisURL string        `koanf:"redis_url"`
	TTL      time.Duration `koanf:"ttl"`
}

// AuthConfig configures local login sessions
type AuthConfig struct {
	SessionDuration time.Duration `koanf:"session_duration"`
}

// GameConfig holds period lengths for games created by the reference backend
type GameConfig struct {
	QuarterLength      int `koanf:"quarter_length"`
	OvertimeLength     int `koanf:"overtime_length"`
	RegulationQuarters int `koanf:"regulation_quarters"`
}

// ClockConfig tunes the game clock
type ClockConfig struct {
	SyncQueue int `koanf:"sync_queue"`
}

// LogConfig configures the logger
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "",
			Port: 8080,
		},
		Backend: BackendConfig{
			Type:        BackendMemory,
			Timeout:     10 * time.Second,
			ReadRetries: 3,
			Seed:        true,
		},
		Cache: CacheConfig{
			Type: CacheMemory,
			TTL:  12 * time.Hour,
		},
		Auth: AuthConfig{
			SessionDuration: 12 * time.Hour,
		},
		Game: GameConfig{
			QuarterLength:      600,
			OvertimeLength:     300,
			RegulationQuarters: 4,
		},
		Clock: ClockConfig{
			SyncQueue: 16,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// FlagConfigFile names the flag holding the YAML config path
const FlagConfigFile = "config"

// flagKeys maps flag names to config keys
var flagKeys = map[string]string{
	"host":                "server.host",
	"port":                "server.port",
	"backend":             "backend.type",
	"backend-url":         "backend.url",
	"realtime-url":        "backend.realtime_url",
	"backend-timeout":     "backend.timeout",
	"read-retries":        "backend.read_retries",
	"seed":                "backend.seed",
	"cache":               "cache.type",
	"redis-url":           "cache.redis_url",
	"cache-ttl":           "cache.ttl",
	"session-duration":    "auth.session_duration",
	"quarter-length":      "game.quarter_length",
	"overtime-length":     "game.overtime_length",
	"regulation-quarters": "game.regulation_quarters",
	"sync-queue":          "clock.sync_queue",
	"log-format":          "log.format",
	"log-level":           "log.level",
}

// RegisterFlags adds the configuration flags to fs. Flag defaults are the
// built-in configuration.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfigFile, "", "Path to a YAML config file")
	fs.String("host", d.Server.Host, "Interface to listen on")
	fs.Int("port", d.Server.Port, "Port to listen on")
	fs.String("backend", d.Backend.Type, "Backend type: memory, rest")
	fs.String("backend-url", d.Backend.URL, "Base URL of the REST backend")
	fs.String("realtime-url", d.Backend.RealtimeURL, "Base URL of the backend realtime endpoint (ws:// or wss://)")
	fs.Duration("backend-timeout", d.Backend.Timeout, "Timeout for backend requests")
	fs.Int("read-retries", d.Backend.ReadRetries, "Retries for idempotent backend reads")
	fs.Bool("seed", d.Backend.Seed, "Seed the memory backend with demo users and a game")
	fs.String("cache", d.Cache.Type, "Session cache type: memory, redis")
	fs.String("redis-url", d.Cache.RedisURL, "Redis URL for the session cache")
	fs.Duration("cache-ttl", d.Cache.TTL, "How long session snapshots are kept")
	fs.Duration("session-duration", d.Auth.SessionDuration, "Lifetime of a login session")
	fs.Int("quarter-length", d.Game.QuarterLength, "Quarter length in seconds for seeded games")
	fs.Int("overtime-length", d.Game.OvertimeLength, "Overtime length in seconds for seeded games")
	fs.Int("regulation-quarters", d.Game.RegulationQuarters, "Regulation quarters for seeded games")
	fs.Int("sync-queue", d.Clock.SyncQueue, "Pending clock syncs allowed before updates are dropped")
	fs.String("log-format", d.Log.Format, "Log format: json, text")
	fs.String("log-level", d.Log.Level, "Log level: debug, info, warn, error")
}

// Load builds the configuration from the flag set registered with
// RegisterFlags, reading the YAML file named by --config if set.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, _ := fs.GetString(FlagConfigFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").
				Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrapf(err, "reading config file")
		}
	}

	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, oops.In("config").
			Code("CONFIG_LOAD_FAILED").
			Wrapf(err, "reading flags")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").
			Code("CONFIG_LOAD_FAILED").
			Wrapf(err, "decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects missing or inconsistent settings
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return invalid("server.port", c.Server.Port, "must be between 1 and 65535")
	case c.Backend.Type != BackendMemory && c.Backend.Type != BackendREST:
		return invalid("backend.type", c.Backend.Type, "must be memory or rest")
	case c.Backend.Type == BackendREST && c.Backend.URL == "":
		return invalid("backend.url", c.Backend.URL, "required for the rest backend")
	case c.Backend.RealtimeURL != "" && !strings.HasPrefix(c.Backend.RealtimeURL, "ws://") && !strings.HasPrefix(c.Backend.RealtimeURL, "wss://"):
		return invalid("backend.realtime_url", c.Backend.RealtimeURL, "must be a ws:// or wss:// URL")
	case c.Backend.Timeout <= 0:
		return invalid("backend.timeout", c.Backend.Timeout, "must be positive")
	case c.Backend.ReadRetries < 0:
		return invalid("backend.read_retries", c.Backend.ReadRetries, "must not be negative")
	case c.Cache.Type != CacheMemory && c.Cache.Type != CacheRedis:
		return invalid("cache.type", c.Cache.Type, "must be memory or redis")
	case c.Cache.Type == CacheRedis && c.Cache.RedisURL == "":
		return invalid("cache.redis_url", c.Cache.RedisURL, "required for the redis cache")
	case c.Cache.TTL <= 0:
		return invalid("cache.ttl", c.Cache.TTL, "must be positive")
	case c.Auth.SessionDuration <= 0:
		return invalid("auth.session_duration", c.Auth.SessionDuration, "must be positive")
	case c.Game.QuarterLength <= 0:
		return invalid("game.quarter_length", c.Game.QuarterLength, "must be positive")
	case c.Game.OvertimeLength <= 0:
		return invalid("game.overtime_length", c.Game.OvertimeLength, "must be positive")
	case c.Game.RegulationQuarters <= 0:
		return invalid("game.regulation_quarters", c.Game.RegulationQuarters, "must be positive")
	case c.Clock.SyncQueue <= 0:
		return invalid("clock.sync_queue", c.Clock.SyncQueue, "must be positive")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid("log.format", c.Log.Format, "must be json or text")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func invalid(key string, value any, reason string) error {
	return oops.In("config").
		Code("INVALID_CONFIG").
		With("key", key).
		With("value", value).
		Wrapf(ErrInvalidConfig, "%s %s", key, reason)
}
