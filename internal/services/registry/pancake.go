package registry

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/aptos-route-engine/internal/adapters/ledger"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// PancakeFeeBps is the fixed swap fee of the Pancake deployment (9975/10000).
const PancakeFeeBps = 25

type pairCreatedData struct {
	TokenX string `json:"token_x"`
	TokenY string `json:"token_y"`
	User   string `json:"user"`
}

type tokenPairReserve struct {
	ReserveX           string `json:"reserve_x"`
	ReserveY           string `json:"reserve_y"`
	BlockTimestampLast string `json:"block_timestamp_last"`
}

// PancakeRegistry handles the constant-product Pancake deployment. Pairs are
// discovered from the pair_created event stream and reserves live in
// TokenPairReserve<X, Y> resources under the module account.
type PancakeRegistry struct {
	api           ledger.API
	moduleAddress string
	eventHandle   string
	reservePrefix string
	pageSize      uint64
	feeBps        uint64
}

func NewPancakeRegistry(d domain.RegistryDescriptor, api ledger.API) *PancakeRegistry {
	r := &PancakeRegistry{
		api:           api,
		moduleAddress: d.ModuleAddress,
		eventHandle:   d.EventHandle,
		reservePrefix: d.TypePrefix() + "::swap::TokenPairReserve<",
		pageSize:      d.PageSize,
		feeBps:        d.FeeBps,
	}
	if r.eventHandle == "" {
		r.eventHandle = d.TypePrefix() + "::swap::SwapInfo/pair_created"
	}
	if r.pageSize == 0 {
		r.pageSize = DefaultPageSize
	}
	if r.feeBps == 0 {
		r.feeBps = PancakeFeeBps
	}
	return r
}

func (r *PancakeRegistry) ModuleAddress() string {
	return r.moduleAddress
}

func (r *PancakeRegistry) Protocol() domain.Protocol {
	return domain.ProtocolPancake
}

func (r *PancakeRegistry) MetadataKey(pair *domain.Pair) string {
	return pair.TokenArr[0] + ", " + pair.TokenArr[1]
}

func (r *PancakeRegistry) DiscoverPairs(ctx context.Context, network domain.Network) ([]*domain.Pair, error) {
	var (
		pairs []*domain.Pair
		seen  = make(map[string]struct{})
		start uint64
	)

	for {
		events, err := r.api.Events(ctx, r.moduleAddress, r.eventHandle, start, r.pageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: pancake page at %d: %w", ErrDiscovery, start, err)
		}

		for _, ev := range events {
			var data pairCreatedData
			if err := sonic.Unmarshal(ev.Data, &data); err != nil {
				return nil, fmt.Errorf("%w: pancake event %s: %w", ErrDiscovery, ev.SequenceNumber, err)
			}
			if data.TokenX == "" || data.TokenY == "" {
				return nil, fmt.Errorf("%w: pancake event %s has no tokens", ErrDiscovery, ev.SequenceNumber)
			}

			key := domain.PairKey(r.moduleAddress, data.TokenX, data.TokenY)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			pairs = append(pairs, &domain.Pair{
				Network:     network.Name,
				Protocol:    domain.ProtocolPancake,
				PairKey:     key,
				PoolAddress: r.moduleAddress,
				TokenArr:    [2]string{data.TokenX, data.TokenY},
				Curve:       domain.CurveUncorrelated,
				FeeBps:      r.feeBps,
			})
		}

		if uint64(len(events)) < r.pageSize {
			break
		}
		start += uint64(len(events))
	}

	log.Info().Int("pairs", len(pairs)).Str("network", network.Name).Msg("[PancakeRegistry] discovered pairs")
	return pairs, nil
}

func (r *PancakeRegistry) SnapshotMetadata(ctx context.Context, network domain.Network) (domain.MetadataDeltas, error) {
	resources, err := r.api.Resources(ctx, r.moduleAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: pancake resources: %w", ErrSnapshot, err)
	}

	deltas := make(domain.MetadataDeltas)
	for i := range resources {
		key, meta, ok := r.decodeReserve(&resources[i])
		if ok {
			deltas[key] = meta
		}
	}

	log.Info().Int("reserves", len(deltas)).Str("network", network.Name).Msg("[PancakeRegistry] snapshot loaded")
	return deltas, nil
}

func (r *PancakeRegistry) DecodeChanges(changes []domain.WriteSetChange) domain.MetadataDeltas {
	deltas := make(domain.MetadataDeltas)
	for i := range changes {
		c := &changes[i]
		if c.Data == nil || c.Address != r.moduleAddress {
			continue
		}
		key, meta, ok := r.decodeReserve(c.Data)
		if ok {
			deltas[key] = meta
		}
	}
	return deltas
}

func (r *PancakeRegistry) decodeReserve(res *domain.MoveResource) (string, domain.Metadata, bool) {
	args, ok := genericArgs(res.Type, r.reservePrefix)
	if !ok || len(args) != 2 {
		return "", domain.Metadata{}, false
	}

	var data tokenPairReserve
	if err := sonic.Unmarshal(res.Data, &data); err != nil {
		log.Debug().Err(err).Str("type", res.Type).Msg("[PancakeRegistry] skip reserve")
		return "", domain.Metadata{}, false
	}
	rx, err := domain.ParseU64(data.ReserveX)
	if err != nil {
		return "", domain.Metadata{}, false
	}
	ry, err := domain.ParseU64(data.ReserveY)
	if err != nil {
		return "", domain.Metadata{}, false
	}

	return args[0] + ", " + args[1], domain.Metadata{Reserves: [2]uint64{rx, ry}}, true
}
