package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/roomserver/internal/api"
	"github.com/mcoot/roomserver/internal/dispatch"
	"github.com/mcoot/roomserver/internal/factory"
	"github.com/mcoot/roomserver/internal/services/identity"
	"github.com/mcoot/roomserver/internal/services/rooms"
	redisstorage "github.com/mcoot/roomserver/internal/storage/redis"
	"github.com/mcoot/roomserver/internal/transport/ws"
)

// Environment variable names
const (
	EnvHost                  = "HOST"
	EnvPort                  = "PORT"
	EnvStorageType           = "STORAGE_TYPE"
	EnvRedisURL              = "REDIS_URL"
	EnvRedisRoomTTL          = "REDIS_ROOM_TTL"
	EnvAccountManagerURL     = "ACCOUNT_MANAGER_URL"
	EnvAccountManagerTimeout = "ACCOUNT_MANAGER_TIMEOUT"
	EnvCommandTimeout        = "COMMAND_TIMEOUT"
	EnvLogLevel              = "LOG_LEVEL"
	EnvWSSendBuffer          = "WS_SEND_BUFFER"
	EnvWSPingInterval        = "WS_PING_INTERVAL"
	EnvAllowedOrigins        = "ALLOWED_ORIGINS"
)

// Config is the server configuration
type Config struct {
	Host string
	Port int

	StorageType  string
	RedisURL     string
	RedisRoomTTL time.Duration

	AccountManagerURL     string
	AccountManagerTimeout time.Duration

	CommandTimeout time.Duration
	LogLevel       slog.Level

	WSSendBuffer   int
	WSPingInterval time.Duration
	AllowedOrigins []string
}

// Default returns the configuration used for unset variables
func Default() Config {
	return Config{
		Host:                  "0.0.0.0",
		Port:                  8080,
		StorageType:           factory.StorageTypeMemory,
		RedisRoomTTL:          redisstorage.DefaultConfig().RoomTTL,
		AccountManagerTimeout: identity.DefaultConfig().Timeout,
		CommandTimeout:        dispatch.DefaultCommandTimeout,
		LogLevel:              slog.LevelInfo,
		WSSendBuffer:          ws.DefaultConfig().SendBuffer,
		WSPingInterval:        ws.DefaultConfig().PingInterval,
	}
}

// Load reads .env files, when present, into the process environment and
// then builds the configuration from it. Variables already set win.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from a variable lookup
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.string(EnvHost, &cfg.Host)
	p.int(EnvPort, &cfg.Port)
	p.string(EnvStorageType, &cfg.StorageType)
	p.string(EnvRedisURL, &cfg.RedisURL)
	p.duration(EnvRedisRoomTTL, &cfg.RedisRoomTTL)
	p.string(EnvAccountManagerURL, &cfg.AccountManagerURL)
	p.duration(EnvAccountManagerTimeout, &cfg.AccountManagerTimeout)
	p.duration(EnvCommandTimeout, &cfg.CommandTimeout)
	p.level(EnvLogLevel, &cfg.LogLevel)
	p.int(EnvWSSendBuffer, &cfg.WSSendBuffer)
	p.duration(EnvWSPingInterval, &cfg.WSPingInterval)
	p.list(EnvAllowedOrigins, &cfg.AllowedOrigins)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements
func (c Config) Validate() error {
	var errs []error
	if c.AccountManagerURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvAccountManagerURL))
	}
	switch c.StorageType {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s required when %s=redis", EnvRedisURL, EnvStorageType))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: unknown storage type %q", EnvStorageType, c.StorageType))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s: %d out of range", EnvPort, c.Port))
	}
	if c.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvCommandTimeout))
	}
	if c.WSSendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvWSSendBuffer))
	}
	return errors.Join(errs...)
}

// Factory converts the configuration into factory settings
func (c Config) Factory(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:      logger,
		StorageType: c.StorageType,
		IdentityConfig: identity.Config{
			BaseURL: c.AccountManagerURL,
			Timeout: c.AccountManagerTimeout,
		},
		RoomsConfig:    rooms.DefaultConfig(),
		CommandTimeout: c.CommandTimeout,
		WebSocketConfig: ws.Config{
			SendBuffer:     c.WSSendBuffer,
			PingInterval:   c.WSPingInterval,
			OriginPatterns: c.AllowedOrigins,
		},
	}
	if c.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.RoomTTL = c.RedisRoomTTL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

// Server converts the configuration into HTTP server settings
func (c Config) Server() api.ServerConfig {
	sc := api.DefaultServerConfig()
	sc.Host = c.Host
	sc.Port = c.Port
	return sc
}

// parser collects typed parse errors, each wrapped with its variable name
type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) string(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (p *parser) level(key string, dst *slog.Level) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
}

func (p *parser) list(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
