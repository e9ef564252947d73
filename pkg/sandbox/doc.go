// Package sandbox evaluates restricted boolean/arithmetic rule conditions.
//
// Conditions are externally authored data, so the package never executes
// anything outside a small closed grammar:
//
//   - numeric and boolean literals (True/False, true/false)
//   - variable references resolved from a bindings map
//   - unary + - not
//   - binary + - * / % **
//   - and / or
//   - comparisons == != < <= > >=, chainable (a < b < c)
//
// Every expression goes through three stages before a value is produced:
//
//  1. Lexing and a token policy scan. Calls, attribute access, subscripts,
//     containers, strings, assignment and reserved words (lambda, import,
//     for, if, def, try, ...) are rejected here, before parsing.
//  2. Parsing with a participle grammar that encodes operator precedence.
//  3. Lowering into a closed AST (Node). Lowering and evaluation both switch
//     exhaustively over the node kinds; an unknown shape is a rejection.
//
// All failures are reported as *RejectionError and match ErrRejected with
// errors.Is.
//
// # Basic Usage
//
//	ok, err := sandbox.Evaluate("w >= min_mm and h >= min_mm", sandbox.Bindings{
//	    "w": 10.0, "h": 12.0, "min_mm": 9.0,
//	})
//
// A Sandbox holds only immutable limits and is safe for concurrent use.
package sandbox
