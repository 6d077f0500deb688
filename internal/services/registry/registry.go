// Package registry discovers pairs for each supported AMM protocol and folds
// ledger write-set changes into metadata deltas.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hxuan190/aptos-route-engine/internal/adapters/ledger"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

var (
	ErrUnknownProtocol   = errors.New("unknown registry protocol")
	ErrInvalidDescriptor = errors.New("invalid registry descriptor")
	ErrDiscovery         = errors.New("pair discovery failed")
	ErrSnapshot          = errors.New("metadata snapshot failed")
)

const DefaultPageSize = 100

// Registry is implemented once per AMM protocol.
type Registry interface {
	// ModuleAddress is the account whose write-set changes carry this
	// protocol's reserves.
	ModuleAddress() string
	Protocol() domain.Protocol
	DiscoverPairs(ctx context.Context, network domain.Network) ([]*domain.Pair, error)
	SnapshotMetadata(ctx context.Context, network domain.Network) (domain.MetadataDeltas, error)
	// DecodeChanges never fails; non-matching or malformed changes are skipped.
	DecodeChanges(changes []domain.WriteSetChange) domain.MetadataDeltas
	// MetadataKey derives the delta identifier for one of this protocol's pairs.
	MetadataKey(pair *domain.Pair) string
}

// New builds the registry for a configured deployment.
func New(d domain.RegistryDescriptor, api ledger.API) (Registry, error) {
	if d.ModuleAddress == "" {
		return nil, fmt.Errorf("%w: %s has no module address", ErrInvalidDescriptor, d.Protocol)
	}
	switch d.Protocol {
	case domain.ProtocolPancake:
		return NewPancakeRegistry(d, api), nil
	case domain.ProtocolLiquidswap:
		return NewLiquidswapRegistry(d, api), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, d.Protocol)
	}
}

// genericArgs returns the type arguments of typ if it is an instance of the
// generic type prefix, e.g. "0x1::m::T<" for "0x1::m::T<A, B<C, D>>".
// Nested generics are kept whole.
func genericArgs(typ, prefix string) ([]string, bool) {
	if !strings.HasPrefix(typ, prefix) || !strings.HasSuffix(typ, ">") {
		return nil, false
	}
	return splitTypeArgs(typ[len(prefix) : len(typ)-1])
}

func splitTypeArgs(body string) ([]string, bool) {
	var (
		args  []string
		depth int
		start int
	)
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	args = append(args, strings.TrimSpace(body[start:]))
	for _, a := range args {
		if a == "" {
			return nil, false
		}
	}
	return args, true
}
