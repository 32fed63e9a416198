package expr

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ExprLexer tokenizes parameter, width and multiplicity expressions.
var ExprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	// Literals and names
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	// Operators; ** must come before the single-character set
	{Name: "Pow", Pattern: `\*\*`},
	{Name: "Op", Pattern: `[-+*/%]`},

	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
})
