package ops

import (
	"math"

	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(Add, "add", binaryFloatOp(func(a, b float32) float32 { return a + b }))
	register(Sub, "sub", binaryFloatOp(func(a, b float32) float32 { return a - b }))
	register(Mul, "mul", binaryFloatOp(func(a, b float32) float32 { return a * b }))
	register(Div, "div", binaryFloatOp(func(a, b float32) float32 { return a / b }))
	register(Mod, "mod", binaryFloatOp(func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) }))
	register(Pow, "pow", binaryFloatOp(func(a, b float32) float32 { return float32(math.Pow(float64(a), float64(b))) }))
	register(Min, "min", binaryFloatOp(func(a, b float32) float32 {
		if a < b {
			return a
		}
		return b
	}))
	register(Max, "max", binaryFloatOp(func(a, b float32) float32 {
		if a > b {
			return a
		}
		return b
	}))

	register(Neg, "neg", unaryFloatOp(func(a float32) float32 { return -a }))
	register(Abs, "abs", unaryFloatOp(func(a float32) float32 { return float32(math.Abs(float64(a))) }))
	register(Sign, "sign", unaryFloatOp(func(a float32) float32 {
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		default:
			return 0
		}
	}))
	register(Exp, "exp", unaryFloatOp(func(a float32) float32 { return float32(math.Exp(float64(a))) }))
	register(Ln, "ln", unaryFloatOp(func(a float32) float32 { return float32(math.Log(float64(a))) }))
	register(Log10, "log10", unaryFloatOp(func(a float32) float32 { return float32(math.Log10(float64(a))) }))
	register(Sqrt, "sqrt", unaryFloatOp(func(a float32) float32 { return float32(math.Sqrt(float64(a))) }))
	register(Recip, "recip", unaryFloatOp(func(a float32) float32 { return 1 / a }))
	register(Floor, "floor", unaryFloatOp(func(a float32) float32 { return float32(math.Floor(float64(a))) }))
	register(BoolNot, "not", unaryFloatOp(func(a float32) float32 {
		if a == 0 {
			return 1
		}
		return 0
	}))

	register(Equal, "equal", comparisonOp(func(a, b float32) bool { return a == b }))
	register(Lt, "lt", comparisonOp(func(a, b float32) bool { return a < b }))
	register(Le, "le", comparisonOp(func(a, b float32) bool { return a <= b }))
	register(Gt, "gt", comparisonOp(func(a, b float32) bool { return a > b }))
	register(Ge, "ge", comparisonOp(func(a, b float32) bool { return a >= b }))
}

func binaryFloatOp(f func(a, b float32) float32) OpFunc {
	return func(vm *vmstate.VM) error {
		if err := vm.EnsureStackSize(2, "arithmetic"); err != nil {
			return err
		}
		b, err := popFloat(vm)
		if err != nil {
			return err
		}
		a, err := popFloat(vm)
		if err != nil {
			return err
		}
		return pushFloat(vm, f(a, b))
	}
}

func unaryFloatOp(f func(a float32) float32) OpFunc {
	return func(vm *vmstate.VM) error {
		if err := vm.EnsureStackSize(1, "arithmetic"); err != nil {
			return err
		}
		a, err := popFloat(vm)
		if err != nil {
			return err
		}
		return pushFloat(vm, f(a))
	}
}

func comparisonOp(f func(a, b float32) bool) OpFunc {
	return func(vm *vmstate.VM) error {
		if err := vm.EnsureStackSize(2, "comparison"); err != nil {
			return err
		}
		b, err := popFloat(vm)
		if err != nil {
			return err
		}
		a, err := popFloat(vm)
		if err != nil {
			return err
		}
		if f(a, b) {
			return vm.Push(tagged.FromFloat32(1))
		}
		return vm.Push(tagged.FromFloat32(0))
	}
}
