package registry

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/aptos-route-engine/internal/adapters/ledger"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// liquidityPoolType matches "<addr>::liquidity_pool::LiquidityPool<...>" and
// captures the defining address and the raw type argument list.
var liquidityPoolType = regexp.MustCompile(`^(0x[0-9a-fA-F]+)::liquidity_pool::LiquidityPool<(.+)>$`)

type coinValue struct {
	Value string `json:"value"`
}

type liquidityPool struct {
	CoinXReserve coinValue `json:"coin_x_reserve"`
	CoinYReserve coinValue `json:"coin_y_reserve"`
	Fee          string    `json:"fee"`
	DaoFee       string    `json:"dao_fee"`
	XScale       string    `json:"x_scale"`
	YScale       string    `json:"y_scale"`
	Locked       bool      `json:"locked"`
}

type poolResource struct {
	tokenX, tokenY string
	curve          domain.CurveKind
	reserves       [2]uint64
	fee, daoFee    uint64
	xScale, yScale uint64
}

// LiquidswapRegistry handles Liquidswap pools. Every pool is a
// LiquidityPool<X, Y, Curve> resource under one resource account, so the
// account listing serves both discovery and snapshot.
type LiquidswapRegistry struct {
	api         ledger.API
	poolAddress string
	typeAddress string
}

func NewLiquidswapRegistry(d domain.RegistryDescriptor, api ledger.API) *LiquidswapRegistry {
	pool := d.PoolAddress
	if pool == "" {
		pool = d.ModuleAddress
	}
	return &LiquidswapRegistry{
		api:         api,
		poolAddress: pool,
		typeAddress: d.TypePrefix(),
	}
}

// ModuleAddress is the pool resource account, where reserve writes land.
func (r *LiquidswapRegistry) ModuleAddress() string {
	return r.poolAddress
}

func (r *LiquidswapRegistry) Protocol() domain.Protocol {
	return domain.ProtocolLiquidswap
}

func (r *LiquidswapRegistry) MetadataKey(pair *domain.Pair) string {
	return liquidswapKey(pair.TokenArr[0], pair.TokenArr[1], pair.Curve)
}

func liquidswapKey(x, y string, c domain.CurveKind) string {
	return x + "," + y + "," + c.String()
}

func (r *LiquidswapRegistry) DiscoverPairs(ctx context.Context, network domain.Network) ([]*domain.Pair, error) {
	resources, err := r.api.Resources(ctx, r.poolAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: liquidswap resources: %w", ErrDiscovery, err)
	}

	var pairs []*domain.Pair
	for i := range resources {
		pool, ok := r.decodePool(&resources[i])
		if !ok {
			continue
		}
		pairs = append(pairs, &domain.Pair{
			Network:     network.Name,
			Protocol:    domain.ProtocolLiquidswap,
			PairKey:     domain.PairKey(r.poolAddress, pool.tokenX, pool.tokenY) + pool.curve.String(),
			PoolAddress: r.poolAddress,
			TokenArr:    [2]string{pool.tokenX, pool.tokenY},
			Curve:       pool.curve,
			FeeBps:      pool.fee,
			DaoFeeBps:   pool.daoFee,
			XScale:      pool.xScale,
			YScale:      pool.yScale,
		})
	}

	log.Info().Int("pairs", len(pairs)).Str("network", network.Name).Msg("[LiquidswapRegistry] discovered pairs")
	return pairs, nil
}

func (r *LiquidswapRegistry) SnapshotMetadata(ctx context.Context, network domain.Network) (domain.MetadataDeltas, error) {
	resources, err := r.api.Resources(ctx, r.poolAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: liquidswap resources: %w", ErrSnapshot, err)
	}

	deltas := make(domain.MetadataDeltas)
	for i := range resources {
		if pool, ok := r.decodePool(&resources[i]); ok && pool.curve != domain.CurveUnknown {
			deltas[liquidswapKey(pool.tokenX, pool.tokenY, pool.curve)] = domain.Metadata{Reserves: pool.reserves}
		}
	}

	log.Info().Int("reserves", len(deltas)).Str("network", network.Name).Msg("[LiquidswapRegistry] snapshot loaded")
	return deltas, nil
}

func (r *LiquidswapRegistry) DecodeChanges(changes []domain.WriteSetChange) domain.MetadataDeltas {
	deltas := make(domain.MetadataDeltas)
	for i := range changes {
		c := &changes[i]
		if c.Data == nil || c.Address != r.poolAddress {
			continue
		}
		if pool, ok := r.decodePool(c.Data); ok && pool.curve != domain.CurveUnknown {
			deltas[liquidswapKey(pool.tokenX, pool.tokenY, pool.curve)] = domain.Metadata{Reserves: pool.reserves}
		}
	}
	return deltas
}

func (r *LiquidswapRegistry) decodePool(res *domain.MoveResource) (poolResource, bool) {
	m := liquidityPoolType.FindStringSubmatch(res.Type)
	if m == nil || m[1] != r.typeAddress {
		return poolResource{}, false
	}
	args, ok := splitTypeArgs(m[2])
	if !ok || len(args) != 3 {
		return poolResource{}, false
	}
	// An unknown curve still decodes; graph validation rejects it.
	curve := domain.ParseCurveKind(args[2])

	var data liquidityPool
	if err := sonic.Unmarshal(res.Data, &data); err != nil {
		log.Debug().Err(err).Str("type", res.Type).Msg("[LiquidswapRegistry] skip pool")
		return poolResource{}, false
	}

	out := poolResource{tokenX: args[0], tokenY: args[1], curve: curve}
	fields := []struct {
		raw      string
		dst      *uint64
		required bool
	}{
		{data.CoinXReserve.Value, &out.reserves[0], true},
		{data.CoinYReserve.Value, &out.reserves[1], true},
		{data.Fee, &out.fee, false},
		{data.DaoFee, &out.daoFee, false},
		{data.XScale, &out.xScale, false},
		{data.YScale, &out.yScale, false},
	}
	for _, f := range fields {
		if f.raw == "" && !f.required {
			continue
		}
		v, err := domain.ParseU64(f.raw)
		if err != nil {
			return poolResource{}, false
		}
		*f.dst = v
	}
	return out, true
}
