package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCPPair(reserves [2]uint64) *Pair {
	p := &Pair{
		Network:     "testnet",
		Protocol:    ProtocolPancake,
		PairKey:     PairKey("0xpool", "A", "B"),
		PoolAddress: "0xpool",
		TokenArr:    [2]string{"A", "B"},
		Curve:       CurveUncorrelated,
		FeeBps:      25,
	}
	p.SetMetadata(Metadata{Reserves: reserves})
	return p
}

func TestPairOutputAmount(t *testing.T) {
	p := newCPPair([2]uint64{1_000_000, 2_000_000})

	tests := []struct {
		name     string
		amountIn uint64
		in, out  string
		want     uint64
	}{
		{"forward", 1000, "A", "B", 1993},
		{"reverse", 1000, "B", "A", 498},
		{"zero input", 0, "A", "B", 0},
		{"same token", 1000, "A", "A", 0},
		{"unknown token", 1000, "A", "C", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.OutputAmount(tt.amountIn, tt.in, tt.out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairOutputAmountWithoutMetadata(t *testing.T) {
	p := newCPPair([2]uint64{1, 1})
	p.Metadata = nil

	got, err := p.OutputAmount(1000, "A", "B")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestPairUnsupportedCurve(t *testing.T) {
	p := newCPPair([2]uint64{1_000_000, 2_000_000})
	p.Curve = CurveUnknown

	_, err := p.OutputAmount(1000, "A", "B")
	assert.ErrorIs(t, err, ErrUnsupportedCurve)
	assert.ErrorIs(t, p.Validate(), ErrUnsupportedCurve)
}

func TestPairValidate(t *testing.T) {
	p := newCPPair([2]uint64{1, 1})
	assert.NoError(t, p.Validate())

	p.FeeBps = 10000
	assert.ErrorIs(t, p.Validate(), ErrInvalidPair)

	p.FeeBps = 25
	p.TokenArr[1] = ""
	assert.ErrorIs(t, p.Validate(), ErrInvalidPair)
}

func TestPairStableOutput(t *testing.T) {
	p := &Pair{
		Protocol: ProtocolLiquidswap,
		TokenArr: [2]string{"USDC", "USDT"},
		Curve:    CurveStable,
		FeeBps:   4,
		XScale:   1_000_000,
		YScale:   1_000_000,
	}
	p.SetMetadata(Metadata{Reserves: [2]uint64{1_000_000_000_000, 1_000_000_000_000}})

	got, err := p.OutputAmount(1_000_000, "USDC", "USDT")
	require.NoError(t, err)
	assert.Equal(t, uint64(999599), got)

	rev, err := p.OutputAmount(1_000_000, "USDT", "USDC")
	require.NoError(t, err)
	assert.Equal(t, got, rev)
}

func TestPairOther(t *testing.T) {
	p := newCPPair([2]uint64{1, 1})
	assert.Equal(t, "B", p.Other("A"))
	assert.Equal(t, "A", p.Other("B"))
	assert.Empty(t, p.Other("C"))
	assert.True(t, p.HasToken("A"))
	assert.False(t, p.HasToken("C"))
}

func TestParseCurveKind(t *testing.T) {
	assert.Equal(t, CurveStable, ParseCurveKind("0x190d::curves::Stable"))
	assert.Equal(t, CurveUncorrelated, ParseCurveKind("0x190d::curves::Uncorrelated"))
	assert.Equal(t, CurveUncorrelated, ParseCurveKind("uncorrelated"))
	assert.Equal(t, CurveUnknown, ParseCurveKind("0x1::curves::Weighted"))
}

func TestDescriptorRoundTripDropsMetadata(t *testing.T) {
	p := newCPPair([2]uint64{10, 20})
	back := PairFromDescriptor(p.Descriptor())

	assert.Nil(t, back.Metadata)
	assert.Equal(t, p.PairKey, back.PairKey)
	assert.Equal(t, p.TokenArr, back.TokenArr)
	assert.Equal(t, p.Curve, back.Curve)
}

func TestRouteExtendCopies(t *testing.T) {
	seed := NewSeedRoute("A", 100)
	r1 := seed.Extend(0, "k1", "B", 90)
	r2 := r1.Extend(1, "k2", "C", 80)
	r3 := r1.Extend(2, "k3", "D", 70)

	assert.Equal(t, 0, seed.Hops())
	assert.Equal(t, []string{"A", "B"}, r1.Path)
	assert.Equal(t, []string{"A", "B", "C"}, r2.Path)
	assert.Equal(t, []string{"A", "B", "D"}, r3.Path)
	assert.Equal(t, uint64(80), r2.Output())
	assert.Equal(t, "D", r3.Terminal())
	assert.True(t, r2.UsesPairKey("k1"))
	assert.False(t, r2.UsesPairKey(""))
	assert.True(t, r3.Visits("A"))
}
