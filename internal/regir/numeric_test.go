package regir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmregvm/core/api"
)

func TestEvalBin_I32DivByZero(t *testing.T) {
	_, trap, trapped := EvalBin(KindI32, BinDivS, 10, 0)
	require.True(t, trapped)
	require.Equal(t, api.TrapIntegerDivisionByZero, trap)

	_, trap, trapped = EvalBin(KindI32, BinDivU, 10, 0)
	require.True(t, trapped)
	require.Equal(t, api.TrapIntegerDivisionByZero, trap)
}

func TestEvalBin_I32DivSOverflow(t *testing.T) {
	// i32.div_s(INT32_MIN, -1) traps IntegerOverflow.
	x := uint64(math.MaxInt32) + 1 // bits of INT32_MIN
	y := uint64(math.MaxUint32)    // bits of int32 -1
	result, trap, trapped := EvalBin(KindI32, BinDivS, x, y)
	require.True(t, trapped)
	require.Equal(t, api.TrapIntegerOverflow, trap)
	require.Zero(t, result)
}

func TestEvalBin_I32RemSOverflowDoesNotTrap(t *testing.T) {
	// rem_s(INT32_MIN, -1) == 0, no trap (unlike div_s).
	x := uint64(math.MaxInt32) + 1 // bits of INT32_MIN
	y := uint64(math.MaxUint32)    // bits of int32 -1
	result, _, trapped := EvalBin(KindI32, BinRemS, x, y)
	require.False(t, trapped)
	require.Zero(t, result)
}

func TestEvalBin_I64DivByZero(t *testing.T) {
	_, trap, trapped := EvalBin(KindI64, BinDivS, 10, 0)
	require.True(t, trapped)
	require.Equal(t, api.TrapIntegerDivisionByZero, trap)
}

func TestEvalBin_I64DivSOverflow(t *testing.T) {
	x := uint64(math.MaxInt64) + 1 // bits of INT64_MIN
	y := uint64(^uint64(0))        // -1
	_, trap, trapped := EvalBin(KindI64, BinDivS, x, y)
	require.True(t, trapped)
	require.Equal(t, api.TrapIntegerOverflow, trap)
}

func TestEvalBin_FloatMinMaxNaNPropagation(t *testing.T) {
	nan := math.Float64bits(math.NaN())
	one := math.Float64bits(1)

	result, _, trapped := EvalBin(KindF64, BinMin, nan, one)
	require.False(t, trapped)
	require.True(t, math.IsNaN(math.Float64frombits(result)))

	result, _, trapped = EvalBin(KindF64, BinMax, one, nan)
	require.False(t, trapped)
	require.True(t, math.IsNaN(math.Float64frombits(result)))
}

func TestEvalBin_FloatZeroEquality(t *testing.T) {
	posZero := math.Float64bits(0)
	negZero := math.Float64bits(math.Copysign(0, -1))
	result, _, _ := EvalBin(KindF64, BinEq, posZero, negZero)
	require.Equal(t, uint64(1), result, "+0 and -0 must compare equal")
}

func TestEvalBin_Copysign(t *testing.T) {
	one := math.Float64bits(1)
	negOne := math.Float64bits(-1)
	result, _, _ := EvalBin(KindF64, BinCopysign, one, negOne)
	require.True(t, math.Signbit(math.Float64frombits(result)), "copysign must take the sign of y even though |result| == |x|")
}

func TestEvalUn_TruncNaNTraps(t *testing.T) {
	nan := uint64(math.Float32bits(float32(math.NaN())))
	_, trap, trapped := EvalUn(KindI32, UnTruncF32ToI32S, nan)
	require.True(t, trapped)
	require.Equal(t, api.TrapBadConversionToInteger, trap)
}

func TestEvalUn_TruncSatNaNReturnsZero(t *testing.T) {
	nan := uint64(math.Float32bits(float32(math.NaN())))
	result, trap, trapped := EvalUn(KindI32, UnTruncSatF32ToI32S, nan)
	require.False(t, trapped)
	require.Zero(t, trap)
	require.Zero(t, result)
}

func TestEvalUn_TruncSatClampsOutOfRange(t *testing.T) {
	huge := math.Float64bits(1e20)
	result, _, trapped := EvalUn(KindI32, UnTruncSatF64ToI32U, huge)
	require.False(t, trapped)
	require.Equal(t, uint64(math.MaxUint32), result)
}

func TestEvalUn_Eqz(t *testing.T) {
	result, _, _ := EvalUn(KindI32, UnEqz, 0)
	require.Equal(t, uint64(1), result)

	result, _, _ = EvalUn(KindI32, UnEqz, 5)
	require.Equal(t, uint64(0), result)
}

func TestIsFoldSafe_DivisionGuards(t *testing.T) {
	require.False(t, IsFoldSafe(KindI32, BinDivS, 0, 0), "division by zero must not be folded")
	require.False(t, IsFoldSafe(KindI32, BinDivS, uint64(math.MaxInt32)+1, uint64(math.MaxUint32)), "overflow division must not be folded")
	require.True(t, IsFoldSafe(KindI32, BinAdd, 1, 2), "non-division ops are always foldable")
}
