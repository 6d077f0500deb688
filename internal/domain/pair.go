package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hxuan190/aptos-route-engine/internal/curve"
)

var (
	ErrUnsupportedCurve = errors.New("unsupported curve variant")
	ErrInvalidPair      = errors.New("invalid pair")
)

// PairID is the stable arena index of a pair inside the state graph.
type PairID uint32

// InvalidPairID marks a pair that has not been placed in a graph yet.
const InvalidPairID PairID = 0xFFFFFFFF

type Protocol string

const (
	ProtocolPancake    Protocol = "pancake"
	ProtocolLiquidswap Protocol = "liquidswap"
)

type CurveKind uint8

const (
	CurveUnknown CurveKind = iota
	CurveUncorrelated
	CurveStable
)

func (c CurveKind) String() string {
	switch c {
	case CurveUncorrelated:
		return "Uncorrelated"
	case CurveStable:
		return "Stable"
	default:
		return "UNKNOWN"
	}
}

// ParseCurveKind maps an on-ledger curve type (full Move type or short name)
// to a CurveKind. Anything unrecognised is CurveUnknown.
func ParseCurveKind(s string) CurveKind {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uncorrelated":
		return CurveUncorrelated
	case "stable":
		return CurveStable
	default:
		return CurveUnknown
	}
}

// Metadata is the mutable reserve state of a pair, ordered like Pair.TokenArr.
type Metadata struct {
	Reserves [2]uint64 `json:"reserves"`
	// Version is the ledger version the reserves were read at, 0 for snapshots.
	Version uint64 `json:"version,omitempty"`
}

// MetadataDeltas maps a protocol-defined identifier to freshly decoded metadata.
type MetadataDeltas map[string]Metadata

type Network struct {
	Name    string `json:"name"`
	HTTP    string `json:"http"`
	ChainID uint64 `json:"chain_id"`
}

// Pair is one two-asset liquidity pool. Identity fields and TokenArr are fixed
// at discovery; only Metadata changes afterwards.
type Pair struct {
	Network     string    `json:"network"`
	Protocol    Protocol  `json:"protocol"`
	PairKey     string    `json:"pair_key"`
	PoolAddress string    `json:"pool_address"`
	TokenArr    [2]string `json:"token_arr"`
	Curve       CurveKind `json:"curve"`
	FeeBps      uint64    `json:"fee_bps"`
	DaoFeeBps   uint64    `json:"dao_fee_bps,omitempty"`
	XScale      uint64    `json:"x_scale,omitempty"`
	YScale      uint64    `json:"y_scale,omitempty"`

	Metadata *Metadata `json:"-"`
}

// PairKey derives the deterministic pair identifier from the pool address and
// the ordered token pair.
func PairKey(poolAddress, tokenX, tokenY string) string {
	return poolAddress + tokenX + tokenY
}

func (p *Pair) Validate() error {
	if p.TokenArr[0] == "" || p.TokenArr[1] == "" {
		return fmt.Errorf("%w: pair %q has an empty token", ErrInvalidPair, p.PairKey)
	}
	if p.TokenArr[0] == p.TokenArr[1] {
		return fmt.Errorf("%w: pair %q trades %s against itself", ErrInvalidPair, p.PairKey, p.TokenArr[0])
	}
	switch p.Curve {
	case CurveUncorrelated, CurveStable:
	default:
		return fmt.Errorf("%w: %s on pair %q", ErrUnsupportedCurve, p.Curve, p.PairKey)
	}
	if p.FeeBps >= curve.FeeScale {
		return fmt.Errorf("%w: fee %d bps on pair %q", ErrInvalidPair, p.FeeBps, p.PairKey)
	}
	return nil
}

// HasToken reports whether token is one of the pair's two assets.
func (p *Pair) HasToken(token string) bool {
	return p.TokenArr[0] == token || p.TokenArr[1] == token
}

// Other returns the counter-asset of token, or "" if token is not in the pair.
func (p *Pair) Other(token string) string {
	switch token {
	case p.TokenArr[0]:
		return p.TokenArr[1]
	case p.TokenArr[1]:
		return p.TokenArr[0]
	default:
		return ""
	}
}

// SetMetadata overwrites the reserve state wholesale.
func (p *Pair) SetMetadata(m Metadata) {
	p.Metadata = &m
}

// OutputAmount quotes swapping amountIn of tokenIn for tokenOut. Token
// combinations that do not match TokenArr and pairs without metadata quote 0.
// The only error is ErrUnsupportedCurve.
func (p *Pair) OutputAmount(amountIn uint64, tokenIn, tokenOut string) (uint64, error) {
	var (
		reserveIn, reserveOut uint64
		scaleIn, scaleOut     uint64
	)

	hasReserves := p.Metadata != nil
	switch {
	case tokenIn == p.TokenArr[0] && tokenOut == p.TokenArr[1]:
		if hasReserves {
			reserveIn, reserveOut = p.Metadata.Reserves[0], p.Metadata.Reserves[1]
		}
		scaleIn, scaleOut = p.XScale, p.YScale
	case tokenIn == p.TokenArr[1] && tokenOut == p.TokenArr[0]:
		if hasReserves {
			reserveIn, reserveOut = p.Metadata.Reserves[1], p.Metadata.Reserves[0]
		}
		scaleIn, scaleOut = p.YScale, p.XScale
	default:
		return 0, nil
	}

	switch p.Curve {
	case CurveUncorrelated:
		return curve.ConstantProductOut(amountIn, reserveIn, reserveOut, p.FeeBps), nil
	case CurveStable:
		return curve.StableOut(amountIn, reserveIn, reserveOut, scaleIn, scaleOut, p.FeeBps), nil
	default:
		return 0, fmt.Errorf("%w: %s on pair %q", ErrUnsupportedCurve, p.Curve, p.PairKey)
	}
}

// PairDescriptor is the identity-only view of a pair used for persistence.
type PairDescriptor struct {
	Network     string    `json:"network"`
	Protocol    Protocol  `json:"protocol"`
	PairKey     string    `json:"pair_key"`
	PoolAddress string    `json:"pool_address"`
	TokenArr    [2]string `json:"token_arr"`
	Curve       string    `json:"curve"`
	FeeBps      uint64    `json:"fee_bps"`
	DaoFeeBps   uint64    `json:"dao_fee_bps,omitempty"`
	XScale      uint64    `json:"x_scale,omitempty"`
	YScale      uint64    `json:"y_scale,omitempty"`
}

func (p *Pair) Descriptor() PairDescriptor {
	return PairDescriptor{
		Network:     p.Network,
		Protocol:    p.Protocol,
		PairKey:     p.PairKey,
		PoolAddress: p.PoolAddress,
		TokenArr:    p.TokenArr,
		Curve:       p.Curve.String(),
		FeeBps:      p.FeeBps,
		DaoFeeBps:   p.DaoFeeBps,
		XScale:      p.XScale,
		YScale:      p.YScale,
	}
}

// PairFromDescriptor rebuilds a pair without metadata.
func PairFromDescriptor(d PairDescriptor) *Pair {
	return &Pair{
		Network:     d.Network,
		Protocol:    d.Protocol,
		PairKey:     d.PairKey,
		PoolAddress: d.PoolAddress,
		TokenArr:    d.TokenArr,
		Curve:       ParseCurveKind(d.Curve),
		FeeBps:      d.FeeBps,
		DaoFeeBps:   d.DaoFeeBps,
		XScale:      d.XScale,
		YScale:      d.YScale,
	}
}
