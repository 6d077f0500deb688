package config

import (
	"fmt"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type StateConfig struct {
	InboxSize      int
	DefaultHops    int
	MaxHops        int
	QueryTimeout   time.Duration
	RouteCacheSize int
	// SearchMode is "greedy" or "exhaustive".
	SearchMode string
}

func (c *StateConfig) Key() string {
	return STATE_CONFIG_KEY
}

func (c *StateConfig) Load() error {
	c.InboxSize = common.GetEnvOrDefaultInt("STATE_INBOX_SIZE", 1024)
	c.DefaultHops = common.GetEnvOrDefaultInt("ROUTE_DEFAULT_HOPS", 3)
	c.MaxHops = common.GetEnvOrDefaultInt("ROUTE_MAX_HOPS", 5)
	c.QueryTimeout = time.Duration(common.GetEnvOrDefaultInt("ROUTE_QUERY_TIMEOUT_MS", 2000)) * time.Millisecond
	c.RouteCacheSize = common.GetEnvOrDefaultInt("ROUTE_CACHE_SIZE", 4096)
	c.SearchMode = common.GetEnvOrDefault("ROUTE_SEARCH_MODE", "greedy")
	return c.Validate()
}

func (c *StateConfig) Validate() error {
	if c.DefaultHops <= 0 || c.MaxHops < c.DefaultHops || c.InboxSize < 0 || c.RouteCacheSize < 0 {
		return fmt.Errorf("%w: state", ErrInvalidConfig)
	}
	return nil
}
