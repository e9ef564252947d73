package sandbox

import (
	"sort"
)

const (
	// DefaultMaxLength is the default maximum expression length in bytes.
	DefaultMaxLength = 4096

	// DefaultMaxDepth is the default maximum expression tree height.
	DefaultMaxDepth = 64
)

// Limits bounds the work a single expression may cause.
type Limits struct {
	// MaxLength is the maximum expression length in bytes. Zero disables the check.
	MaxLength int

	// MaxDepth is the maximum height of the expression tree. Zero disables the check.
	MaxDepth int
}

// DefaultLimits returns the limits used by the package-level functions.
func DefaultLimits() Limits {
	return Limits{
		MaxLength: DefaultMaxLength,
		MaxDepth:  DefaultMaxDepth,
	}
}

// Sandbox compiles expressions under a fixed set of limits.
// It holds no mutable state and is safe for concurrent use.
type Sandbox struct {
	limits Limits
}

// New creates a sandbox with the given limits.
func New(limits Limits) *Sandbox {
	return &Sandbox{limits: limits}
}

// Limits returns the sandbox limits.
func (s *Sandbox) Limits() Limits {
	return s.limits
}

// Compile checks expr against the token policy, parses it and returns a
// program ready for evaluation. No part of expr is evaluated.
func (s *Sandbox) Compile(expr string) (*Program, error) {
	if s.limits.MaxLength > 0 && len(expr) > s.limits.MaxLength {
		return nil, reject(ReasonLimit, -1, "expression is %d bytes, limit is %d", len(expr), s.limits.MaxLength)
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 || tokens[0].EOF() {
		return nil, reject(ReasonParse, -1, "empty expression")
	}
	if err := scan(tokens); err != nil {
		return nil, err
	}

	tree, err := parse(expr)
	if err != nil {
		return nil, err
	}
	root, err := lower(tree)
	if err != nil {
		return nil, err
	}
	if d := depth(root); s.limits.MaxDepth > 0 && d > s.limits.MaxDepth {
		return nil, reject(ReasonLimit, -1, "expression nesting is %d levels, limit is %d", d, s.limits.MaxDepth)
	}

	return &Program{
		source:    expr,
		root:      root,
		variables: collectVariables(root),
	}, nil
}

// Evaluate compiles and evaluates expr in one step.
func (s *Sandbox) Evaluate(expr string, bindings Bindings) (bool, error) {
	prog, err := s.Compile(expr)
	if err != nil {
		return false, err
	}
	return prog.Eval(bindings)
}

// Program is a compiled expression. It is immutable and may be evaluated
// concurrently with different bindings.
type Program struct {
	source    string
	root      Node
	variables []string
}

// Source returns the expression the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// Variables returns the sorted, de-duplicated names the expression references.
func (p *Program) Variables() []string {
	out := make([]string, len(p.variables))
	copy(out, p.variables)
	return out
}

// Eval evaluates the program against bindings. Numeric results are
// coerced to booleans (non-zero is true).
func (p *Program) Eval(bindings Bindings) (bool, error) {
	e := &evaluator{bindings: bindings}
	v, err := e.eval(p.root)
	if err != nil {
		return false, err
	}
	switch v.Kind() {
	case KindBool, KindNumber:
		return v.Truthy(), nil
	default:
		return false, reject(ReasonInvalidResult, -1, "expression must evaluate to a boolean or number, got %s", v.Kind())
	}
}

func collectVariables(root Node) []string {
	seen := make(map[string]struct{})
	walk(root, func(n Node) {
		if v, ok := n.(*Var); ok {
			seen[v.Name] = struct{}{}
		}
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultSandbox = New(DefaultLimits())

// Compile compiles expr with the default limits.
func Compile(expr string) (*Program, error) {
	return defaultSandbox.Compile(expr)
}

// Evaluate evaluates expr against bindings with the default limits.
func Evaluate(expr string, bindings Bindings) (bool, error) {
	return defaultSandbox.Evaluate(expr, bindings)
}
