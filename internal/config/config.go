package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/rs/zerolog"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY  = "general-config"
	NETWORK_CONFIG_KEY  = "network-config"
	REGISTRY_CONFIG_KEY = "registry-config"
	WATCHER_CONFIG_KEY  = "watcher-config"
	STATE_CONFIG_KEY    = "state-config"
	SNAPSHOT_CONFIG_KEY = "snapshot-config"
)

var (
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrMissingRegistry = errors.New("no registry descriptor configured")
	ErrInvalidConfig   = errors.New("invalid config")
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string

	// RateLimit is the per-IP request refill rate per second.
	// Default: 10
	RateLimit int
	// Default: 20
	RateBurst int
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", "dev")
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.RateLimit = common.GetEnvOrDefaultInt("HTTP_RATE_LIMIT", 10)
	gc.RateBurst = common.GetEnvOrDefaultInt("HTTP_RATE_BURST", 20)
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if gc.RateLimit <= 0 || gc.RateBurst <= 0 {
		return fmt.Errorf("%w: http rate limit", ErrInvalidConfig)
	}
	return nil
}

// Level maps LOG_LEVEL to a zerolog level, defaulting to info.
func (gc *GeneralConfig) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(gc.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
