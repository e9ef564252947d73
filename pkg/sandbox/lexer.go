package sandbox

import (
	"errors"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// expressionLexer tokenizes rule conditions. Tokens the grammar never
// accepts (strings, brackets, dots) are still lexed so the policy scan can
// reject them with a precise message.
var expressionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Number", Pattern: `(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?`},
	{Name: "Keyword", Pattern: `\b(?:and|or|not|True|False|true|false)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `\*\*|==|!=|<=|>=|[-+*/%<>]`},
	{Name: "Punct", Pattern: `[()\[\]{}.,:;=@~^&|!]`},
})

var (
	tokWhitespace = expressionLexer.Symbols()["Whitespace"]
	tokString     = expressionLexer.Symbols()["String"]
	tokNumber     = expressionLexer.Symbols()["Number"]
	tokKeyword    = expressionLexer.Symbols()["Keyword"]
	tokIdent      = expressionLexer.Symbols()["Ident"]
	tokPunct      = expressionLexer.Symbols()["Punct"]
)

// reservedWords maps identifiers that name disallowed constructs to the
// construct they would introduce.
var reservedWords = map[string]string{
	"lambda":   "anonymous functions",
	"import":   "imports",
	"from":     "imports",
	"for":      "loops and comprehensions",
	"while":    "loops",
	"if":       "conditional expressions",
	"else":     "conditional expressions",
	"elif":     "conditional expressions",
	"def":      "function definitions",
	"class":    "class definitions",
	"return":   "return statements",
	"try":      "exception handling",
	"except":   "exception handling",
	"finally":  "exception handling",
	"raise":    "exception handling",
	"assert":   "assertions",
	"with":     "context managers",
	"yield":    "generators",
	"async":    "coroutines",
	"await":    "coroutines",
	"global":   "scope declarations",
	"nonlocal": "scope declarations",
	"del":      "deletion",
	"pass":     "statements",
	"in":       "membership tests",
	"is":       "identity tests",
	"None":     "None constants",
}

var punctMessages = map[string]string{
	".": "attribute access is not permitted",
	"[": "subscripts and list literals are not permitted",
	"]": "subscripts and list literals are not permitted",
	"{": "dict and set literals are not permitted",
	"}": "dict and set literals are not permitted",
	",": "tuples and argument lists are not permitted",
	":": "slices, lambdas and annotations are not permitted",
	"=": "assignment is not permitted",
	";": "multiple statements are not permitted",
	"@": "operator '@' is not permitted",
	"~": "bitwise operators are not permitted",
	"^": "bitwise operators are not permitted",
	"&": "bitwise operators are not permitted",
	"|": "bitwise operators are not permitted",
	"!": "operator '!' is not permitted, use 'not'",
}

// tokenize lexes expr into significant tokens (whitespace dropped, EOF kept).
func tokenize(expr string) ([]lexer.Token, error) {
	lex, err := expressionLexer.LexString("", expr)
	if err != nil {
		return nil, lexRejection(err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, lexRejection(err)
	}
	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tok.Type == tokWhitespace {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// scan applies the token policy. It runs before parsing, so a rejected
// expression is never partially evaluated.
func scan(tokens []lexer.Token) error {
	prevOperand := false
	for _, tok := range tokens {
		if tok.EOF() {
			break
		}
		offset := tok.Pos.Offset
		switch tok.Type {
		case tokString:
			return reject(ReasonUnsafeSyntax, offset, "string literals are not permitted, only numeric and boolean constants")
		case tokIdent:
			if construct, ok := reservedWords[tok.Value]; ok {
				return reject(ReasonUnsafeSyntax, offset, "%q introduces %s, which are not permitted", tok.Value, construct)
			}
		case tokPunct:
			if tok.Value == "(" && prevOperand {
				return reject(ReasonUnsafeSyntax, offset, "function calls are not permitted")
			}
			if msg, ok := punctMessages[tok.Value]; ok {
				return reject(ReasonUnsafeSyntax, offset, "%s", msg)
			}
		}
		prevOperand = endsOperand(tok)
	}
	return nil
}

func endsOperand(tok lexer.Token) bool {
	switch tok.Type {
	case tokNumber, tokIdent:
		return true
	case tokKeyword:
		switch tok.Value {
		case "True", "False", "true", "false":
			return true
		}
		return false
	case tokPunct:
		return tok.Value == ")"
	default:
		return false
	}
}

// positioned is implemented by participle lexer and parser errors.
type positioned interface {
	Position() lexer.Position
	Message() string
}

func lexRejection(err error) *RejectionError {
	var pe positioned
	if errors.As(err, &pe) {
		return reject(ReasonParse, pe.Position().Offset, "%s", readableMessage(pe.Message()))
	}
	return reject(ReasonParse, -1, "%s", readableMessage(err.Error()))
}

// expectedHint matches the "(expected ...)" suffix of participle errors.
var expectedHint = regexp.MustCompile(`\(expected [^)]*\)`)

// productionName matches the grammar type names participle puts in its
// "expected ..." hints.
var productionName = regexp.MustCompile(`(?i)\b[a-z]*(?:grammar|link|literal)\b`)

// readableMessage replaces grammar type names in the expected hint with
// what the rule author would have to write there.
func readableMessage(msg string) string {
	return expectedHint.ReplaceAllStringFunc(msg, func(hint string) string {
		return productionName.ReplaceAllStringFunc(hint, func(name string) string {
			lower := strings.ToLower(name)
			switch {
			case strings.HasSuffix(lower, "link"):
				return "operator"
			case lower == "boolliteral":
				return "boolean"
			default:
				return "operand"
			}
		})
	})
}
