package config

import (
	"fmt"
	"os"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/bytedance/sonic"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

type RegistryConfig struct {
	File        string
	Descriptors []domain.RegistryDescriptor
}

func (c *RegistryConfig) Key() string {
	return REGISTRY_CONFIG_KEY
}

func (c *RegistryConfig) Load() error {
	c.File = common.GetEnvOrDefault("REGISTRIES_FILE", "./registries.json")

	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read registries file %s: %w", c.File, err)
	}
	descriptors, err := ParseRegistryDescriptors(raw)
	if err != nil {
		return err
	}
	c.Descriptors = descriptors
	return c.Validate()
}

func (c *RegistryConfig) Validate() error {
	if len(c.Descriptors) == 0 {
		return ErrMissingRegistry
	}
	return nil
}

// ForNetwork returns descriptors that apply to network. Descriptors with no
// network apply everywhere.
func (c *RegistryConfig) ForNetwork(network string) ([]domain.RegistryDescriptor, error) {
	var out []domain.RegistryDescriptor
	for _, d := range c.Descriptors {
		if d.Network == "" || d.Network == network {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w for network %q", ErrMissingRegistry, network)
	}
	return out, nil
}

func ParseRegistryDescriptors(raw []byte) ([]domain.RegistryDescriptor, error) {
	var descriptors []domain.RegistryDescriptor
	if err := sonic.Unmarshal(raw, &descriptors); err != nil {
		return nil, fmt.Errorf("%w: registries file: %v", ErrInvalidConfig, err)
	}
	return descriptors, nil
}
