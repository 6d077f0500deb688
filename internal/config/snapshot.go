package config

import "github.com/andrew-solarstorm/go-packages/common"

type SnapshotConfig struct {
	// Enabled controls whether pair descriptors are loaded from and saved
	// to disk.
	// Default: true
	Enabled bool

	// DBPath is the BoltDB file holding pair descriptors.
	// Default: "./data/aptos-route-engine.db"
	DBPath string
}

func (c *SnapshotConfig) Key() string {
	return SNAPSHOT_CONFIG_KEY
}

func (c *SnapshotConfig) Load() error {
	c.Enabled = common.GetEnvOrDefault("SNAPSHOT_ENABLED", "true") == "true"
	c.DBPath = common.GetEnvOrDefault("SNAPSHOT_DB_PATH", "./data/aptos-route-engine.db")
	return nil
}

func (c *SnapshotConfig) Validate() error {
	return nil
}
