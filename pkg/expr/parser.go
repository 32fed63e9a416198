package expr

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// Parser builds expression trees from source text.
type Parser struct {
	parser *participle.Parser[Expression]
}

// NewParser creates a new expression parser instance
func NewParser() (*Parser, error) {
	parser, err := participle.Build[Expression](
		participle.Lexer(ExprLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// ParseString parses a single expression.
func (p *Parser) ParseString(src string) (*Expression, error) {
	e, err := p.parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return e, nil
}

// Built once; participle parsers hold no per-parse state.
var defaultParser = func() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}()

// Parse parses src with the package's shared parser.
func Parse(src string) (*Expression, error) {
	return defaultParser.ParseString(src)
}
