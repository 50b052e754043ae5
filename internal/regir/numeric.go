package regir

import (
	"math"
	"math/bits"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/moremath"
)

// EvalBin computes the result of a BinOp over two untyped 64-bit
// cells, reporting a trap code when the Wasm specification requires
// one (division by zero, signed division overflow). The translator
// uses this to constant-fold and the executor uses it
// to execute OpBinary at runtime — one implementation
// shared by both, so "the folded result equals the executor's result
// for the non-folded variant" holds by construction
// rather than by convention.
func EvalBin(kind ValueKind, op BinOp, x, y uint64) (result uint64, trap api.TrapCode, trapped bool) {
	switch kind {
	case KindI32:
		return evalBinI32(op, uint32(x), uint32(y))
	case KindI64:
		return evalBinI64(op, x, y)
	case KindF32:
		return evalBinF32(op, math.Float32frombits(uint32(x)), math.Float32frombits(uint32(y)))
	case KindF64:
		return evalBinF64(op, math.Float64frombits(x), math.Float64frombits(y))
	}
	panic("regir: unhandled ValueKind in EvalBin")
}

func b2u64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func evalBinI32(op BinOp, x, y uint32) (uint64, api.TrapCode, bool) {
	sx, sy := int32(x), int32(y)
	switch op {
	case BinAdd:
		return uint64(x + y), 0, false
	case BinSub:
		return uint64(x - y), 0, false
	case BinMul:
		return uint64(x * y), 0, false
	case BinDivS:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		if sx == math.MinInt32 && sy == -1 {
			return 0, api.TrapIntegerOverflow, true
		}
		return uint64(uint32(sx / sy)), 0, false
	case BinDivU:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		return uint64(x / y), 0, false
	case BinRemS:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		if sx == math.MinInt32 && sy == -1 {
			return 0, 0, false
		}
		return uint64(uint32(sx % sy)), 0, false
	case BinRemU:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		return uint64(x % y), 0, false
	case BinAnd:
		return uint64(x & y), 0, false
	case BinOr:
		return uint64(x | y), 0, false
	case BinXor:
		return uint64(x ^ y), 0, false
	case BinShl:
		return uint64(x << (y & 31)), 0, false
	case BinShrS:
		return uint64(uint32(sx >> (y & 31))), 0, false
	case BinShrU:
		return uint64(x >> (y & 31)), 0, false
	case BinRotl:
		return uint64(bits.RotateLeft32(x, int(y&31))), 0, false
	case BinRotr:
		return uint64(bits.RotateLeft32(x, -int(y&31))), 0, false
	case BinEq:
		return b2u64(x == y), 0, false
	case BinNe:
		return b2u64(x != y), 0, false
	case BinLtS:
		return b2u64(sx < sy), 0, false
	case BinLtU:
		return b2u64(x < y), 0, false
	case BinLeS:
		return b2u64(sx <= sy), 0, false
	case BinLeU:
		return b2u64(x <= y), 0, false
	case BinGtS:
		return b2u64(sx > sy), 0, false
	case BinGtU:
		return b2u64(x > y), 0, false
	case BinGeS:
		return b2u64(sx >= sy), 0, false
	case BinGeU:
		return b2u64(x >= y), 0, false
	}
	panic("regir: unhandled BinOp for i32")
}

func evalBinI64(op BinOp, x, y uint64) (uint64, api.TrapCode, bool) {
	sx, sy := int64(x), int64(y)
	switch op {
	case BinAdd:
		return x + y, 0, false
	case BinSub:
		return x - y, 0, false
	case BinMul:
		return x * y, 0, false
	case BinDivS:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		if sx == math.MinInt64 && sy == -1 {
			return 0, api.TrapIntegerOverflow, true
		}
		return uint64(sx / sy), 0, false
	case BinDivU:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		return x / y, 0, false
	case BinRemS:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		if sx == math.MinInt64 && sy == -1 {
			return 0, 0, false
		}
		return uint64(sx % sy), 0, false
	case BinRemU:
		if y == 0 {
			return 0, api.TrapIntegerDivisionByZero, true
		}
		return x % y, 0, false
	case BinAnd:
		return x & y, 0, false
	case BinOr:
		return x | y, 0, false
	case BinXor:
		return x ^ y, 0, false
	case BinShl:
		return x << (y & 63), 0, false
	case BinShrS:
		return uint64(sx >> (y & 63)), 0, false
	case BinShrU:
		return x >> (y & 63), 0, false
	case BinRotl:
		return bits.RotateLeft64(x, int(y&63)), 0, false
	case BinRotr:
		return bits.RotateLeft64(x, -int(y&63)), 0, false
	case BinEq:
		return b2u64(x == y), 0, false
	case BinNe:
		return b2u64(x != y), 0, false
	case BinLtS:
		return b2u64(sx < sy), 0, false
	case BinLtU:
		return b2u64(x < y), 0, false
	case BinLeS:
		return b2u64(sx <= sy), 0, false
	case BinLeU:
		return b2u64(x <= y), 0, false
	case BinGtS:
		return b2u64(sx > sy), 0, false
	case BinGtU:
		return b2u64(x > y), 0, false
	case BinGeS:
		return b2u64(sx >= sy), 0, false
	case BinGeU:
		return b2u64(x >= y), 0, false
	}
	panic("regir: unhandled BinOp for i64")
}

func evalBinF32(op BinOp, x, y float32) (uint64, api.TrapCode, bool) {
	bits32 := func(f float32) uint64 { return uint64(math.Float32bits(f)) }
	switch op {
	case BinAdd:
		return bits32(x + y), 0, false
	case BinSub:
		return bits32(x - y), 0, false
	case BinMul:
		return bits32(x * y), 0, false
	case BinDiv:
		return bits32(x / y), 0, false
	case BinMin:
		return bits32(float32(moremath.WasmCompatMin(float64(x), float64(y)))), 0, false
	case BinMax:
		return bits32(float32(moremath.WasmCompatMax(float64(x), float64(y)))), 0, false
	case BinCopysign:
		return bits32(float32(math.Copysign(float64(x), float64(y)))), 0, false
	case BinEq:
		return b2u64(x == y), 0, false
	case BinNe:
		return b2u64(x != y), 0, false
	case BinLtS:
		return b2u64(x < y), 0, false
	case BinLeS:
		return b2u64(x <= y), 0, false
	case BinGtS:
		return b2u64(x > y), 0, false
	case BinGeS:
		return b2u64(x >= y), 0, false
	}
	panic("regir: unhandled BinOp for f32")
}

func evalBinF64(op BinOp, x, y float64) (uint64, api.TrapCode, bool) {
	switch op {
	case BinAdd:
		return math.Float64bits(x + y), 0, false
	case BinSub:
		return math.Float64bits(x - y), 0, false
	case BinMul:
		return math.Float64bits(x * y), 0, false
	case BinDiv:
		return math.Float64bits(x / y), 0, false
	case BinMin:
		return math.Float64bits(moremath.WasmCompatMin(x, y)), 0, false
	case BinMax:
		return math.Float64bits(moremath.WasmCompatMax(x, y)), 0, false
	case BinCopysign:
		return math.Float64bits(math.Copysign(x, y)), 0, false
	case BinEq:
		return b2u64(x == y), 0, false
	case BinNe:
		return b2u64(x != y), 0, false
	case BinLtS:
		return b2u64(x < y), 0, false
	case BinLeS:
		return b2u64(x <= y), 0, false
	case BinGtS:
		return b2u64(x > y), 0, false
	case BinGeS:
		return b2u64(x >= y), 0, false
	}
	panic("regir: unhandled BinOp for f64")
}

// IsFoldSafe reports whether folding this BinOp at translation time is
// sound for the given operands: integer division/remainder must not
// be folded away when they would trap, since the trap has to surface
// at execution time, not as a translation error: no Wasm trap can
// originate from translation itself.
func IsFoldSafe(kind ValueKind, op BinOp, x, y uint64) bool {
	switch op {
	case BinDivS, BinRemS:
		switch kind {
		case KindI32:
			return int32(y) != 0 && !(int32(x) == math.MinInt32 && int32(y) == -1 && op == BinDivS)
		case KindI64:
			return int64(y) != 0 && !(int64(x) == math.MinInt64 && int64(y) == -1 && op == BinDivS)
		}
	case BinDivU, BinRemU:
		switch kind {
		case KindI32:
			return uint32(y) != 0
		case KindI64:
			return y != 0
		}
	}
	return true
}

// EvalUn computes the result of a UnOp, reporting a trap for the
// conversion ops that can fail (float-to-int truncation of NaN or an
// out-of-range magnitude).
func EvalUn(kind ValueKind, op UnOp, x uint64) (result uint64, trap api.TrapCode, trapped bool) {
	switch op {
	case UnClz:
		if kind == KindI32 {
			return uint64(bits.LeadingZeros32(uint32(x))), 0, false
		}
		return uint64(bits.LeadingZeros64(x)), 0, false
	case UnCtz:
		if kind == KindI32 {
			return uint64(bits.TrailingZeros32(uint32(x))), 0, false
		}
		return uint64(bits.TrailingZeros64(x)), 0, false
	case UnPopcnt:
		if kind == KindI32 {
			return uint64(bits.OnesCount32(uint32(x))), 0, false
		}
		return uint64(bits.OnesCount64(x)), 0, false
	case UnEqz:
		if kind == KindI32 {
			return b2u64(uint32(x) == 0), 0, false
		}
		return b2u64(x == 0), 0, false
	case UnNeg:
		if kind == KindF32 {
			return uint64(math.Float32bits(-math.Float32frombits(uint32(x)))), 0, false
		}
		return math.Float64bits(-math.Float64frombits(x)), 0, false
	case UnAbs:
		if kind == KindF32 {
			return uint64(math.Float32bits(float32(math.Abs(float64(math.Float32frombits(uint32(x))))))), 0, false
		}
		return math.Float64bits(math.Abs(math.Float64frombits(x))), 0, false
	case UnSqrt:
		return floatUnary(kind, x, math.Sqrt), 0, false
	case UnCeil:
		return floatUnary(kind, x, math.Ceil), 0, false
	case UnFloor:
		return floatUnary(kind, x, math.Floor), 0, false
	case UnTrunc:
		return floatUnary(kind, x, math.Trunc), 0, false
	case UnNearest:
		return floatUnary(kind, x, math.RoundToEven), 0, false
	case UnWrapI64ToI32:
		return uint64(uint32(x)), 0, false
	case UnExtendI32ToI64S:
		return uint64(int64(int32(x))), 0, false
	case UnExtendI32ToI64U:
		return uint64(uint32(x)), 0, false
	case UnExtend8S:
		if kind == KindI32 {
			return uint64(uint32(int32(int8(x)))), 0, false
		}
		return uint64(int64(int8(x))), 0, false
	case UnExtend16S:
		if kind == KindI32 {
			return uint64(uint32(int32(int16(x)))), 0, false
		}
		return uint64(int64(int16(x))), 0, false
	case UnExtend32S:
		return uint64(int64(int32(x))), 0, false
	case UnDemoteF64ToF32:
		return uint64(math.Float32bits(float32(math.Float64frombits(x)))), 0, false
	case UnPromoteF32ToF64:
		return math.Float64bits(float64(math.Float32frombits(uint32(x)))), 0, false
	case UnReinterpretF32AsI32, UnReinterpretI32AsF32:
		return uint64(uint32(x)), 0, false
	case UnReinterpretF64AsI64, UnReinterpretI64AsF64:
		return x, 0, false
	case UnConvertI32ToF32S:
		return uint64(math.Float32bits(float32(int32(x)))), 0, false
	case UnConvertI32ToF32U:
		return uint64(math.Float32bits(float32(uint32(x)))), 0, false
	case UnConvertI32ToF64S:
		return math.Float64bits(float64(int32(x))), 0, false
	case UnConvertI32ToF64U:
		return math.Float64bits(float64(uint32(x))), 0, false
	case UnConvertI64ToF32S:
		return uint64(math.Float32bits(float32(int64(x)))), 0, false
	case UnConvertI64ToF32U:
		return uint64(math.Float32bits(float32(x))), 0, false
	case UnConvertI64ToF64S:
		return math.Float64bits(float64(int64(x))), 0, false
	case UnConvertI64ToF64U:
		return math.Float64bits(float64(x)), 0, false
	case UnTruncF32ToI32S, UnTruncF32ToI32U, UnTruncF32ToI64S, UnTruncF32ToI64U:
		return truncFloatToInt(float64(math.Float32frombits(uint32(x))), op)
	case UnTruncF64ToI32S, UnTruncF64ToI32U, UnTruncF64ToI64S, UnTruncF64ToI64U:
		return truncFloatToInt(math.Float64frombits(x), op)
	case UnTruncSatF32ToI32S, UnTruncSatF32ToI32U, UnTruncSatF32ToI64S, UnTruncSatF32ToI64U:
		return truncSatFloatToInt(float64(math.Float32frombits(uint32(x))), op), 0, false
	case UnTruncSatF64ToI32S, UnTruncSatF64ToI32U, UnTruncSatF64ToI64S, UnTruncSatF64ToI64U:
		return truncSatFloatToInt(math.Float64frombits(x), op), 0, false
	}
	panic("regir: unhandled UnOp in EvalUn")
}

func floatUnary(kind ValueKind, x uint64, f func(float64) float64) uint64 {
	if kind == KindF32 {
		return uint64(math.Float32bits(float32(f(float64(math.Float32frombits(uint32(x)))))))
	}
	return math.Float64bits(f(math.Float64frombits(x)))
}

func truncFloatToInt(f float64, op UnOp) (uint64, api.TrapCode, bool) {
	if math.IsNaN(f) {
		return 0, api.TrapBadConversionToInteger, true
	}
	switch op {
	case UnTruncF32ToI32S, UnTruncF64ToI32S:
		if f < math.MinInt32 || f >= math.MaxInt32+1 {
			return 0, api.TrapBadConversionToInteger, true
		}
		return uint64(uint32(int32(f))), 0, false
	case UnTruncF32ToI32U, UnTruncF64ToI32U:
		if f < 0 || f >= math.MaxUint32+1 {
			return 0, api.TrapBadConversionToInteger, true
		}
		return uint64(uint32(f)), 0, false
	case UnTruncF32ToI64S, UnTruncF64ToI64S:
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, api.TrapBadConversionToInteger, true
		}
		return uint64(int64(f)), 0, false
	case UnTruncF32ToI64U, UnTruncF64ToI64U:
		if f < 0 || f >= math.MaxUint64 {
			return 0, api.TrapBadConversionToInteger, true
		}
		return uint64(f), 0, false
	}
	panic("regir: unhandled UnOp in truncFloatToInt")
}

func truncSatFloatToInt(f float64, op UnOp) uint64 {
	if math.IsNaN(f) {
		return 0
	}
	switch op {
	case UnTruncSatF32ToI32S, UnTruncSatF64ToI32S:
		if f <= math.MinInt32 {
			return uint64(math.MaxInt32) + 1 // bit pattern of int32 MinInt32
		}
		if f >= math.MaxInt32 {
			return uint64(uint32(math.MaxInt32))
		}
		return uint64(uint32(int32(f)))
	case UnTruncSatF32ToI32U, UnTruncSatF64ToI32U:
		if f <= 0 {
			return 0
		}
		if f >= math.MaxUint32 {
			return uint64(uint32(math.MaxUint32))
		}
		return uint64(uint32(f))
	case UnTruncSatF32ToI64S, UnTruncSatF64ToI64S:
		if f <= math.MinInt64 {
			return uint64(math.MaxInt64) + 1 // bit pattern of int64 MinInt64
		}
		if f >= math.MaxInt64 {
			return uint64(int64(math.MaxInt64))
		}
		return uint64(int64(f))
	case UnTruncSatF32ToI64U, UnTruncSatF64ToI64U:
		if f <= 0 {
			return 0
		}
		if f >= math.MaxUint64 {
			return uint64(uint64(math.MaxUint64))
		}
		return uint64(f)
	}
	panic("regir: unhandled UnOp in truncSatFloatToInt")
}
