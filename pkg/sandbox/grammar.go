package sandbox

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The grammar mirrors operator precedence from loosest to tightest:
// or, and, not, comparison chain, + -, * / %, unary + -, **, atoms.

type orGrammar struct {
	Pos   lexer.Position
	Left  *andGrammar   `parser:"@@"`
	Right []*andGrammar `parser:"( 'or' @@ )*"`
}

type andGrammar struct {
	Pos   lexer.Position
	Left  *notGrammar   `parser:"@@"`
	Right []*notGrammar `parser:"( 'and' @@ )*"`
}

type notGrammar struct {
	Pos     lexer.Position
	Not     *notGrammar     `parser:"  'not' @@"`
	Compare *compareGrammar `parser:"| @@"`
}

type compareGrammar struct {
	Pos   lexer.Position
	Left  *sumGrammar    `parser:"@@"`
	Chain []*compareLink `parser:"@@*"`
}

type compareLink struct {
	Op    string      `parser:"@( '==' | '!=' | '<=' | '>=' | '<' | '>' )"`
	Right *sumGrammar `parser:"@@"`
}

type sumGrammar struct {
	Pos  lexer.Position
	Left *productGrammar `parser:"@@"`
	Rest []*sumLink      `parser:"@@*"`
}

type sumLink struct {
	Pos   lexer.Position
	Op    string          `parser:"@( '+' | '-' )"`
	Right *productGrammar `parser:"@@"`
}

type productGrammar struct {
	Pos  lexer.Position
	Left *unaryGrammar  `parser:"@@"`
	Rest []*productLink `parser:"@@*"`
}

type productLink struct {
	Pos   lexer.Position
	Op    string        `parser:"@( '*' | '/' | '%' )"`
	Right *unaryGrammar `parser:"@@"`
}

type unaryGrammar struct {
	Pos     lexer.Position
	Op      string        `parser:"  @( '+' | '-' )"`
	Operand *unaryGrammar `parser:"  @@"`
	Power   *powerGrammar `parser:"| @@"`
}

// powerGrammar binds tighter than a unary operator on its left and is
// right associative: -2**2 == -4 and 2**3**2 == 512.
type powerGrammar struct {
	Pos      lexer.Position
	Base     *atomGrammar  `parser:"@@"`
	Exponent *unaryGrammar `parser:"( '**' @@ )?"`
}

type atomGrammar struct {
	Pos    lexer.Position
	Number *float64     `parser:"  @Number"`
	Bool   *boolLiteral `parser:"| @( 'True' | 'False' | 'true' | 'false' )"`
	Name   *string      `parser:"| @Ident"`
	Group  *orGrammar   `parser:"| '(' @@ ')'"`
}

type boolLiteral bool

// Capture implements participle.Capture.
func (b *boolLiteral) Capture(values []string) error {
	*b = values[0] == "True" || values[0] == "true"
	return nil
}

var expressionParser = participle.MustBuild[orGrammar](
	participle.Lexer(expressionLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// parse turns a policy-scanned expression into the participle tree.
func parse(expr string) (*orGrammar, error) {
	tree, err := expressionParser.ParseString("", expr)
	if err != nil {
		return nil, lexRejection(err)
	}
	return tree, nil
}

// lower converts the participle tree into the closed Node AST.
func lower(g *orGrammar) (Node, error) {
	if g == nil || g.Left == nil {
		return nil, reject(ReasonParse, -1, "empty expression")
	}
	first, err := lowerAnd(g.Left)
	if err != nil {
		return nil, err
	}
	if len(g.Right) == 0 {
		return first, nil
	}
	operands := []Node{first}
	for _, r := range g.Right {
		n, err := lowerAnd(r)
		if err != nil {
			return nil, err
		}
		operands = append(operands, n)
	}
	return &Logical{Op: LogicalOr, Operands: operands, Pos: g.Pos.Offset}, nil
}

func lowerAnd(g *andGrammar) (Node, error) {
	first, err := lowerNot(g.Left)
	if err != nil {
		return nil, err
	}
	if len(g.Right) == 0 {
		return first, nil
	}
	operands := []Node{first}
	for _, r := range g.Right {
		n, err := lowerNot(r)
		if err != nil {
			return nil, err
		}
		operands = append(operands, n)
	}
	return &Logical{Op: LogicalAnd, Operands: operands, Pos: g.Pos.Offset}, nil
}

func lowerNot(g *notGrammar) (Node, error) {
	switch {
	case g.Not != nil:
		operand, err := lowerNot(g.Not)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: UnaryNot, Operand: operand, Pos: g.Pos.Offset}, nil
	case g.Compare != nil:
		return lowerCompare(g.Compare)
	default:
		return nil, reject(ReasonUnsafeSyntax, g.Pos.Offset, "unrecognized expression form")
	}
}

func lowerCompare(g *compareGrammar) (Node, error) {
	first, err := lowerSum(g.Left)
	if err != nil {
		return nil, err
	}
	if len(g.Chain) == 0 {
		return first, nil
	}
	cmp := &Compare{Operands: []Node{first}, Pos: g.Pos.Offset}
	for _, link := range g.Chain {
		op, ok := compareSymbols[link.Op]
		if !ok {
			return nil, reject(ReasonUnsafeSyntax, g.Pos.Offset, "comparison operator %q is not permitted", link.Op)
		}
		right, err := lowerSum(link.Right)
		if err != nil {
			return nil, err
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Operands = append(cmp.Operands, right)
	}
	return cmp, nil
}

func lowerSum(g *sumGrammar) (Node, error) {
	left, err := lowerProduct(g.Left)
	if err != nil {
		return nil, err
	}
	for _, link := range g.Rest {
		right, err := lowerProduct(link.Right)
		if err != nil {
			return nil, err
		}
		if left, err = binary(link.Op, left, right, link.Pos); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func lowerProduct(g *productGrammar) (Node, error) {
	left, err := lowerUnary(g.Left)
	if err != nil {
		return nil, err
	}
	for _, link := range g.Rest {
		right, err := lowerUnary(link.Right)
		if err != nil {
			return nil, err
		}
		if left, err = binary(link.Op, left, right, link.Pos); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func lowerUnary(g *unaryGrammar) (Node, error) {
	switch {
	case g.Operand != nil:
		operand, err := lowerUnary(g.Operand)
		if err != nil {
			return nil, err
		}
		switch g.Op {
		case "+":
			return &Unary{Op: UnaryPlus, Operand: operand, Pos: g.Pos.Offset}, nil
		case "-":
			return &Unary{Op: UnaryMinus, Operand: operand, Pos: g.Pos.Offset}, nil
		default:
			return nil, reject(ReasonUnsafeSyntax, g.Pos.Offset, "unary operator %q is not permitted", g.Op)
		}
	case g.Power != nil:
		return lowerPower(g.Power)
	default:
		return nil, reject(ReasonUnsafeSyntax, g.Pos.Offset, "unrecognized expression form")
	}
}

func lowerPower(g *powerGrammar) (Node, error) {
	base, err := lowerAtom(g.Base)
	if err != nil {
		return nil, err
	}
	if g.Exponent == nil {
		return base, nil
	}
	exp, err := lowerUnary(g.Exponent)
	if err != nil {
		return nil, err
	}
	return &Binary{Op: BinaryPow, Left: base, Right: exp, Pos: g.Pos.Offset}, nil
}

func lowerAtom(g *atomGrammar) (Node, error) {
	switch {
	case g.Number != nil:
		return &Literal{Value: Number(*g.Number), Pos: g.Pos.Offset}, nil
	case g.Bool != nil:
		return &Literal{Value: Bool(bool(*g.Bool)), Pos: g.Pos.Offset}, nil
	case g.Name != nil:
		return &Var{Name: *g.Name, Pos: g.Pos.Offset}, nil
	case g.Group != nil:
		return lower(g.Group)
	default:
		return nil, reject(ReasonUnsafeSyntax, g.Pos.Offset, "unrecognized expression form")
	}
}

func binary(symbol string, left, right Node, pos lexer.Position) (Node, error) {
	op, ok := binarySymbols[symbol]
	if !ok {
		return nil, reject(ReasonUnsafeSyntax, pos.Offset, "operator %q is not permitted", symbol)
	}
	return &Binary{Op: op, Left: left, Right: right, Pos: pos.Offset}, nil
}

// depth returns the height of the tree rooted at n.
func depth(n Node) int {
	deepest := 0
	switch t := n.(type) {
	case *Unary:
		deepest = depth(t.Operand)
	case *Binary:
		deepest = max(depth(t.Left), depth(t.Right))
	case *Logical:
		for _, op := range t.Operands {
			deepest = max(deepest, depth(op))
		}
	case *Compare:
		for _, op := range t.Operands {
			deepest = max(deepest, depth(op))
		}
	}
	return deepest + 1
}
