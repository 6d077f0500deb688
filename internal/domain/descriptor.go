package domain

// RegistryDescriptor is one configured protocol deployment.
type RegistryDescriptor struct {
	Protocol      Protocol `json:"protocol"`
	Network       string   `json:"network"`
	ModuleAddress string   `json:"module_address"`
	PoolAddress   string   `json:"pool_address"`
	// TypeAddress prefixes the protocol's Move types. Defaults to ModuleAddress.
	TypeAddress string `json:"type_address,omitempty"`
	EventHandle string `json:"event_handle,omitempty"`
	PageSize    uint64 `json:"page_size,omitempty"`
	FeeBps      uint64 `json:"fee_bps,omitempty"`
}

func (d RegistryDescriptor) TypePrefix() string {
	if d.TypeAddress != "" {
		return d.TypeAddress
	}
	return d.ModuleAddress
}
