package expr

import "math"

// Operator is the closed set of binary operators.
type Operator uint8

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var operatorSymbols = map[string]Operator{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"/":  OpDiv,
	"%":  OpMod,
	"^":  OpPow,
	"==": OpEq,
	"!=": OpNe,
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
	"&&": OpAnd,
	"||": OpOr,
}

func lookupOperator(s string) (Operator, bool) {
	op, ok := operatorSymbols[s]
	return op, ok
}

func (op Operator) String() string {
	for sym, o := range operatorSymbols {
		if o == op {
			return sym
		}
	}
	return "?"
}

// precedence, low to high: || && (== !=) (< <= > >=) (+ -) (* / %) ^
func (op Operator) precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEq, OpNe:
		return 3
	case OpLt, OpLe, OpGt, OpGe:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpMod:
		return 6
	case OpPow:
		return 7
	}
	return 0
}

func (op Operator) rightAssociative() bool {
	return op == OpPow
}

func (op Operator) apply(a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case OpMod:
		if b == 0 {
			return 0
		}
		return math.Mod(a, b)
	case OpPow:
		return math.Pow(a, b)
	case OpEq:
		return boolValue(a == b)
	case OpNe:
		return boolValue(a != b)
	case OpLt:
		return boolValue(a < b)
	case OpLe:
		return boolValue(a <= b)
	case OpGt:
		return boolValue(a > b)
	case OpGe:
		return boolValue(a >= b)
	case OpAnd:
		return boolValue(a != 0 && b != 0)
	case OpOr:
		return boolValue(a != 0 || b != 0)
	}
	return math.NaN()
}

// Function is the closed set of built-in functions.
type Function uint8

const (
	FnAbs Function = iota
	FnCeil
	FnFloor
	FnRound
	FnSqrt
	FnPow
	FnMin
	FnMax
	FnIf
)

var functionNames = map[string]Function{
	"abs":   FnAbs,
	"ceil":  FnCeil,
	"floor": FnFloor,
	"round": FnRound,
	"sqrt":  FnSqrt,
	"pow":   FnPow,
	"min":   FnMin,
	"max":   FnMax,
	"if":    FnIf,
}

func lookupFunction(s string) (Function, bool) {
	fn, ok := functionNames[s]
	return fn, ok
}

func (fn Function) String() string {
	for name, f := range functionNames {
		if f == fn {
			return name
		}
	}
	return "?"
}

// Arity is the number of stack operands the function consumes.
func (fn Function) Arity() int {
	switch fn {
	case FnPow, FnMin, FnMax:
		return 2
	case FnIf:
		return 3
	}
	return 1
}

// apply expects len(args) == fn.Arity(), in push order.
func (fn Function) apply(args []float64) float64 {
	switch fn {
	case FnAbs:
		return math.Abs(args[0])
	case FnCeil:
		return math.Ceil(args[0])
	case FnFloor:
		return math.Floor(args[0])
	case FnRound:
		return math.Floor(args[0] + 0.5)
	case FnSqrt:
		return math.Sqrt(args[0])
	case FnPow:
		return math.Pow(args[0], args[1])
	case FnMin:
		return math.Min(args[0], args[1])
	case FnMax:
		return math.Max(args[0], args[1])
	case FnIf:
		if args[0] != 0 {
			return args[1]
		}
		return args[2]
	}
	return math.NaN()
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
