package registry

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/hxuan190/aptos-route-engine/internal/adapters/ledger"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// Set holds the configured registries in registration order.
type Set struct {
	registries []Registry
	byProtocol map[domain.Protocol]Registry
}

func NewSet() *Set {
	return &Set{
		registries: make([]Registry, 0),
		byProtocol: make(map[domain.Protocol]Registry),
	}
}

// NewSetFromDescriptors builds one registry per descriptor on the given network.
func NewSetFromDescriptors(network string, descriptors []domain.RegistryDescriptor, api ledger.API) (*Set, error) {
	s := NewSet()
	for _, d := range descriptors {
		if d.Network != "" && d.Network != network {
			continue
		}
		r, err := New(d, api)
		if err != nil {
			return nil, err
		}
		if err := s.Register(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Register(r Registry) error {
	if _, ok := s.byProtocol[r.Protocol()]; ok {
		return fmt.Errorf("registry for %s already registered", r.Protocol())
	}
	s.registries = append(s.registries, r)
	s.byProtocol[r.Protocol()] = r
	return nil
}

func (s *Set) All() []Registry {
	return s.registries
}

func (s *Set) Len() int {
	return len(s.registries)
}

func (s *Set) Get(p domain.Protocol) (Registry, bool) {
	r, ok := s.byProtocol[p]
	return r, ok
}

// WatchList returns the distinct module addresses of all registries.
func (s *Set) WatchList() []string {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(s.registries))
	out := make([]string, 0, len(s.registries))
	for _, r := range s.registries {
		if addr := r.ModuleAddress(); seen.Add(addr) {
			out = append(out, addr)
		}
	}
	return out
}

// DecodeAll asks every registry to decode the batch. Protocols with nothing
// decoded are omitted.
func (s *Set) DecodeAll(changes []domain.WriteSetChange) map[domain.Protocol]domain.MetadataDeltas {
	out := make(map[domain.Protocol]domain.MetadataDeltas, len(s.registries))
	for _, r := range s.registries {
		if deltas := r.DecodeChanges(changes); len(deltas) > 0 {
			out[r.Protocol()] = deltas
		}
	}
	return out
}
