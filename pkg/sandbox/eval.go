package sandbox

import (
	"math"
)

// evaluator holds the per-call state of one evaluation. It is created for
// every Eval call and discarded afterwards.
type evaluator struct {
	bindings Bindings
}

func (e *evaluator) eval(n Node) (Value, error) {
	switch t := n.(type) {
	case *Literal:
		return t.Value, nil
	case *Var:
		return e.lookup(t)
	case *Unary:
		return e.unary(t)
	case *Binary:
		return e.binary(t)
	case *Logical:
		return e.logical(t)
	case *Compare:
		return e.compare(t)
	default:
		return Value{}, reject(ReasonUnsafeSyntax, -1, "unsupported node %T", n)
	}
}

func (e *evaluator) lookup(v *Var) (Value, error) {
	raw, ok := e.bindings[v.Name]
	if !ok {
		return Value{}, reject(ReasonUnknownVariable, v.Pos, "unknown variable: %s", v.Name)
	}
	val, err := FromAny(raw)
	if err != nil {
		return Value{}, reject(ReasonInvalidBinding, v.Pos, "variable %s must be numeric or boolean: %v", v.Name, err)
	}
	return val, nil
}

func (e *evaluator) unary(u *Unary) (Value, error) {
	operand, err := e.eval(u.Operand)
	if err != nil {
		return Value{}, err
	}
	switch u.Op {
	case UnaryNot:
		return Bool(!operand.Truthy()), nil
	case UnaryMinus:
		return Number(-operand.Float()), nil
	case UnaryPlus:
		return Number(operand.Float()), nil
	default:
		return Value{}, reject(ReasonUnsafeSyntax, u.Pos, "unsupported unary operator")
	}
}

func (e *evaluator) binary(b *Binary) (Value, error) {
	left, err := e.eval(b.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := e.eval(b.Right)
	if err != nil {
		return Value{}, err
	}
	x, y := left.Float(), right.Float()

	switch b.Op {
	case BinaryAdd:
		return Number(x + y), nil
	case BinarySub:
		return Number(x - y), nil
	case BinaryMul:
		return Number(x * y), nil
	case BinaryDiv:
		if y == 0 {
			return Value{}, reject(ReasonArithmetic, b.Pos, "division by zero")
		}
		return Number(x / y), nil
	case BinaryMod:
		if y == 0 {
			return Value{}, reject(ReasonArithmetic, b.Pos, "modulo by zero")
		}
		return Number(floorMod(x, y)), nil
	case BinaryPow:
		if x == 0 && y < 0 {
			return Value{}, reject(ReasonArithmetic, b.Pos, "zero cannot be raised to a negative power")
		}
		r := math.Pow(x, y)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Value{}, reject(ReasonArithmetic, b.Pos, "%s ** %s is not a finite real number", left, right)
		}
		return Number(r), nil
	default:
		return Value{}, reject(ReasonUnsafeSyntax, b.Pos, "unsupported binary operator")
	}
}

// floorMod returns x mod y with the sign of y.
func floorMod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}

// logical evaluates every operand before combining them, so an invalid
// operand fails the expression even when an earlier one decides it.
func (e *evaluator) logical(l *Logical) (Value, error) {
	values := make([]bool, 0, len(l.Operands))
	for _, op := range l.Operands {
		v, err := e.eval(op)
		if err != nil {
			return Value{}, err
		}
		values = append(values, v.Truthy())
	}
	switch l.Op {
	case LogicalAnd:
		result := true
		for _, v := range values {
			result = result && v
		}
		return Bool(result), nil
	case LogicalOr:
		result := false
		for _, v := range values {
			result = result || v
		}
		return Bool(result), nil
	default:
		return Value{}, reject(ReasonUnsafeSyntax, l.Pos, "unsupported boolean operator")
	}
}

// compare evaluates a chain pairwise from the left and stops at the first
// false pair; operands past that point are never evaluated.
func (e *evaluator) compare(c *Compare) (Value, error) {
	left, err := e.eval(c.Operands[0])
	if err != nil {
		return Value{}, err
	}
	for i, op := range c.Ops {
		right, err := e.eval(c.Operands[i+1])
		if err != nil {
			return Value{}, err
		}
		ok, err := comparePair(op, left.Float(), right.Float(), c.Pos)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Bool(false), nil
		}
		left = right
	}
	return Bool(true), nil
}

func comparePair(op CompareOp, x, y float64, pos int) (bool, error) {
	switch op {
	case CompareEq:
		return x == y, nil
	case CompareNe:
		return x != y, nil
	case CompareLt:
		return x < y, nil
	case CompareLe:
		return x <= y, nil
	case CompareGt:
		return x > y, nil
	case CompareGe:
		return x >= y, nil
	default:
		return false, reject(ReasonUnsafeSyntax, pos, "unsupported comparison operator")
	}
}
