package curve

import "github.com/holiman/uint256"

// maxGetYIterations bounds the Newton solver in stableGetY.
const maxGetYIterations = 255

// StableOut quotes a Solidly-style stable swap. Reserves are normalised to
// 1e8 fixed point with the per-token scales, the invariant x*y*(x^2+y^2) is
// held, and the new output reserve is solved iteratively. The fee is taken
// from the input first, rounding the remaining input up when the division
// leaves a remainder.
func StableOut(amountIn, reserveIn, reserveOut, scaleIn, scaleOut, feeBps uint64) uint64 {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 || feeBps >= FeeScale {
		return 0
	}
	if scaleIn == 0 || scaleOut == 0 {
		return 0
	}

	coinIn := stableInputAfterFee(amountIn, feeBps)
	return stableCoinOut(coinIn, scaleIn, scaleOut, reserveIn, reserveOut)
}

func stableInputAfterFee(amountIn, feeBps uint64) *uint256.Int {
	scaled := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(FeeScale-feeBps))
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(scaled, u256FeeScale, rem)
	if !rem.IsZero() {
		quo.Add(quo, u256One)
	}
	return quo
}

func stableCoinOut(coinIn *uint256.Int, scaleIn, scaleOut, reserveIn, reserveOut uint64) uint64 {
	scaleInU := uint256.NewInt(scaleIn)
	scaleOutU := uint256.NewInt(scaleOut)

	xy, ok := stableLPValue(reserveIn, scaleIn, reserveOut, scaleOut)
	if !ok {
		return 0
	}

	normIn, ok1 := normalise(uint256.NewInt(reserveIn), scaleInU)
	normOut, ok2 := normalise(uint256.NewInt(reserveOut), scaleOutU)
	amount, ok3 := normalise(coinIn, scaleInU)
	if !ok1 || !ok2 || !ok3 {
		return 0
	}

	total, overflow := new(uint256.Int).AddOverflow(amount, normIn)
	if overflow {
		return 0
	}
	newOut, ok := stableGetY(total, xy, normOut.Clone())
	if !ok || newOut.Gt(normOut) {
		return 0
	}

	y := new(uint256.Int).Sub(normOut, newOut)
	y.Mul(y, scaleOutU)
	y.Div(y, u256OneE8)
	if !y.IsUint64() {
		return 0
	}
	return y.Uint64()
}

// mul multiplies the factors left to right. ok is false when any product
// leaves 256 bits.
func mul(factors ...*uint256.Int) (*uint256.Int, bool) {
	out := new(uint256.Int).Set(factors[0])
	for _, f := range factors[1:] {
		if _, overflow := out.MulOverflow(out, f); overflow {
			return nil, false
		}
	}
	return out, true
}

func normalise(v, scale *uint256.Int) (*uint256.Int, bool) {
	out, ok := mul(v, u256OneE8)
	if !ok {
		return nil, false
	}
	return out.Div(out, scale), true
}

// stableLPValue is the invariant k = x*y*(x^2+y^2) over normalised reserves.
func stableLPValue(x uint64, xScale uint64, y uint64, yScale uint64) (*uint256.Int, bool) {
	nx, ok1 := normalise(uint256.NewInt(x), uint256.NewInt(xScale))
	ny, ok2 := normalise(uint256.NewInt(y), uint256.NewInt(yScale))
	if !ok1 || !ok2 {
		return nil, false
	}

	xx, ok1 := mul(nx, nx)
	yy, ok2 := mul(ny, ny)
	if !ok1 || !ok2 {
		return nil, false
	}
	b, overflow := xx.AddOverflow(xx, yy)
	if overflow {
		return nil, false
	}
	return mul(nx, ny, b)
}

// stableF is x0*y^3 + y*x0^3.
func stableF(x0, y *uint256.Int) (*uint256.Int, bool) {
	a, ok1 := mul(x0, y, y, y)
	b, ok2 := mul(y, x0, x0, x0)
	if !ok1 || !ok2 {
		return nil, false
	}
	sum, overflow := a.AddOverflow(a, b)
	return sum, !overflow
}

// stableD is the derivative 3*x0*y^2 + x0^3.
func stableD(x0, y *uint256.Int) (*uint256.Int, bool) {
	xyy3, ok1 := mul(u256Three, x0, y, y)
	xxx, ok2 := mul(x0, x0, x0)
	if !ok1 || !ok2 {
		return nil, false
	}
	sum, overflow := xyy3.AddOverflow(xyy3, xxx)
	return sum, !overflow
}

// stableGetY solves f(x0, y) = xy for y by Newton steps. ok is false when
// an intermediate leaves 256 bits.
func stableGetY(x0, xy, y *uint256.Int) (*uint256.Int, bool) {
	dy := new(uint256.Int)
	for i := 0; i < maxGetYIterations; i++ {
		k, ok1 := stableF(x0, y)
		d, ok2 := stableD(x0, y)
		if !ok1 || !ok2 {
			return nil, false
		}
		if d.IsZero() {
			return y, true
		}

		if k.Lt(xy) {
			dy.Sub(xy, k)
			dy.Div(dy, d)
			dy.Add(dy, u256One)
			if _, overflow := y.AddOverflow(y, dy); overflow {
				return nil, false
			}
		} else {
			dy.Sub(k, xy)
			dy.Div(dy, d)
			if dy.Gt(y) {
				return y.Clear(), true
			}
			y.Sub(y, dy)
		}

		if !dy.Gt(u256One) {
			return y, true
		}
	}
	return y, true
}
