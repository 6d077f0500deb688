// Package curve holds the swap output math for the AMM families the router
// supports. Every function is pure and works in raw integer token units.
package curve

import "github.com/holiman/uint256"

const (
	// FeeScale is the basis-point denominator shared by every curve.
	FeeScale uint64 = 10000
	// OneE8 is the fixed-point scale stable reserves are normalised to.
	OneE8 uint64 = 100000000
)

var (
	u256FeeScale = uint256.NewInt(FeeScale)
	u256OneE8    = uint256.NewInt(OneE8)
	u256One      = uint256.NewInt(1)
	u256Three    = uint256.NewInt(3)
)

// ConstantProductOut returns
//
//	floor(in*(FeeScale-fee)*reserveOut / (reserveIn*FeeScale + in*(FeeScale-fee)))
//
// with 256-bit intermediates. Empty pools, zero input and fees at or above
// FeeScale all quote 0.
func ConstantProductOut(amountIn, reserveIn, reserveOut, feeBps uint64) uint64 {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 || feeBps >= FeeScale {
		return 0
	}

	inAfterFee := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(FeeScale-feeBps))

	numerator := new(uint256.Int).Mul(inAfterFee, uint256.NewInt(reserveOut))
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), u256FeeScale)
	denominator.Add(denominator, inAfterFee)

	out := numerator.Div(numerator, denominator)
	if !out.IsUint64() {
		return 0
	}
	return out.Uint64()
}
