package sandbox

// Node is an expression tree node. The set of implementations is closed:
// only the types in this file satisfy it.
type Node interface {
	// Offset returns the byte offset of the node in the source expression.
	Offset() int
	sealed()
}

// UnaryOp is a prefix operator.
type UnaryOp uint8

const (
	UnaryPlus UnaryOp = iota + 1
	UnaryMinus
	UnaryNot
)

// BinaryOp is an arithmetic operator.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota + 1
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryPow
)

// LogicalOp is a boolean connective.
type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota + 1
	LogicalOr
)

// CompareOp is a comparison operator.
type CompareOp uint8

const (
	CompareEq CompareOp = iota + 1
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
)

var compareSymbols = map[string]CompareOp{
	"==": CompareEq,
	"!=": CompareNe,
	"<":  CompareLt,
	"<=": CompareLe,
	">":  CompareGt,
	">=": CompareGe,
}

var binarySymbols = map[string]BinaryOp{
	"+":  BinaryAdd,
	"-":  BinarySub,
	"*":  BinaryMul,
	"/":  BinaryDiv,
	"%":  BinaryMod,
	"**": BinaryPow,
}

// Literal is a numeric or boolean constant.
type Literal struct {
	Value Value
	Pos   int
}

// Var is a reference to a bound name.
type Var struct {
	Name string
	Pos  int
}

// Unary applies a prefix operator.
type Unary struct {
	Op      UnaryOp
	Operand Node
	Pos     int
}

// Binary applies an arithmetic operator.
type Binary struct {
	Op          BinaryOp
	Left, Right Node
	Pos         int
}

// Logical joins two or more operands with the same connective.
type Logical struct {
	Op       LogicalOp
	Operands []Node
	Pos      int
}

// Compare is a comparison chain. Ops[i] compares Operands[i] with
// Operands[i+1]; len(Operands) == len(Ops)+1.
type Compare struct {
	Operands []Node
	Ops      []CompareOp
	Pos      int
}

func (n *Literal) Offset() int { return n.Pos }
func (n *Var) Offset() int     { return n.Pos }
func (n *Unary) Offset() int   { return n.Pos }
func (n *Binary) Offset() int  { return n.Pos }
func (n *Logical) Offset() int { return n.Pos }
func (n *Compare) Offset() int { return n.Pos }

func (*Literal) sealed() {}
func (*Var) sealed()     {}
func (*Unary) sealed()   {}
func (*Binary) sealed()  {}
func (*Logical) sealed() {}
func (*Compare) sealed() {}

// walk visits n and its descendants in source order.
func walk(n Node, visit func(Node)) {
	visit(n)
	switch t := n.(type) {
	case *Literal, *Var:
	case *Unary:
		walk(t.Operand, visit)
	case *Binary:
		walk(t.Left, visit)
		walk(t.Right, visit)
	case *Logical:
		for _, op := range t.Operands {
			walk(op, visit)
		}
	case *Compare:
		for _, op := range t.Operands {
			walk(op, visit)
		}
	}
}
