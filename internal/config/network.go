package config

import (
	"fmt"
	"os"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/bytedance/sonic"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// NetworkConfig resolves NETWORK against a networks file shaped as
// {"<name>": {"name": ..., "http": ..., "chain_id": ...}}.
type NetworkConfig struct {
	Name         string
	NetworksFile string

	Network domain.Network
}

func (c *NetworkConfig) Key() string {
	return NETWORK_CONFIG_KEY
}

func (c *NetworkConfig) Load() error {
	c.Name = common.GetEnvOrDefault("NETWORK", "mainnet")
	c.NetworksFile = common.GetEnvOrDefault("NETWORKS_FILE", "./networks.json")

	raw, err := os.ReadFile(c.NetworksFile)
	if err != nil {
		return fmt.Errorf("read networks file %s: %w", c.NetworksFile, err)
	}
	network, err := ResolveNetwork(raw, c.Name)
	if err != nil {
		return err
	}
	c.Network = network
	return c.Validate()
}

func (c *NetworkConfig) Validate() error {
	if c.Network.HTTP == "" {
		return fmt.Errorf("%w: %q has no http endpoint", ErrInvalidConfig, c.Name)
	}
	return nil
}

// ResolveNetwork picks name out of a networks document.
func ResolveNetwork(raw []byte, name string) (domain.Network, error) {
	var networks map[string]domain.Network
	if err := sonic.Unmarshal(raw, &networks); err != nil {
		return domain.Network{}, fmt.Errorf("%w: networks file: %v", ErrInvalidConfig, err)
	}
	network, ok := networks[name]
	if !ok {
		return domain.Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	if network.Name == "" {
		network.Name = name
	}
	return network, nil
}
