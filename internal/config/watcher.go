package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type WatcherConfig struct {
	// StartVersion is the first ledger version to fetch. 0 starts at the
	// ledger head.
	StartVersion uint64

	// BatchSize is the number of transactions fetched per poll.
	// Default: 10000
	BatchSize uint64

	// PollInterval is the sleep between polls.
	// Default: 1s
	PollInterval time.Duration

	// LedgerRPS caps ledger requests per second, 0 for no cap.
	LedgerRPS int

	LedgerTimeout time.Duration
}

func (c *WatcherConfig) Key() string {
	return WATCHER_CONFIG_KEY
}

func (c *WatcherConfig) Load() error {
	start, err := strconv.ParseUint(common.GetEnvOrDefault("WATCHER_START_VERSION", "0"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: WATCHER_START_VERSION: %v", ErrInvalidConfig, err)
	}
	c.StartVersion = start
	c.BatchSize = uint64(common.GetEnvOrDefaultInt("WATCHER_BATCH_SIZE", 10000))
	c.PollInterval = time.Duration(common.GetEnvOrDefaultInt("WATCHER_POLL_INTERVAL_MS", 1000)) * time.Millisecond
	c.LedgerRPS = common.GetEnvOrDefaultInt("LEDGER_RPS", 20)
	c.LedgerTimeout = time.Duration(common.GetEnvOrDefaultInt("LEDGER_TIMEOUT_SEC", 30)) * time.Second
	return c.Validate()
}

func (c *WatcherConfig) Validate() error {
	if c.BatchSize == 0 || c.PollInterval <= 0 || c.LedgerRPS < 0 {
		return fmt.Errorf("%w: watcher", ErrInvalidConfig)
	}
	return nil
}
