package expr

import "github.com/alecthomas/participle/v2/lexer"

// Expression is a sum of terms.
// Example: 2*N + clog2(DEPTH) - 1
type Expression struct {
	Pos lexer.Position

	Left  *Term     `@@`
	Right []*OpTerm `@@*`
}

// OpTerm is an additive operator followed by its right-hand term.
type OpTerm struct {
	Op   string `@( "+" | "-" )`
	Term *Term  `@@`
}

// Term is a product of signed factors.
type Term struct {
	Left  *Unary      `@@`
	Right []*OpFactor `@@*`
}

// OpFactor is a multiplicative operator followed by its right-hand factor.
type OpFactor struct {
	Op    string `@( "*" | "/" | "%" )`
	Unary *Unary `@@`
}

// Unary is an optionally signed power. The sign binds looser than **,
// so -2**2 is -4.
type Unary struct {
	Op    string `  @( "-" | "+" )`
	Unary *Unary `  @@`
	Power *Power `| @@`
}

// Power is a primary optionally raised to a right-associative exponent.
type Power struct {
	Base     *Primary `@@`
	Exponent *Unary   `( "**" @@ )?`
}

// Primary is a literal, a name, a function call or a parenthesized expression.
type Primary struct {
	Call   *Call       `  @@`
	Number *string     `| @Int`
	Ident  *string     `| @Ident`
	Sub    *Expression `| "(" @@ ")"`
}

// Call is a single-argument builtin such as clog2(x).
type Call struct {
	Func string      `@Ident "("`
	Arg  *Expression `@@ ")"`
}

// Identifiers returns every name referenced by the expression, in order of
// appearance, excluding function names.
func (e *Expression) Identifiers() []string {
	var names []string
	e.walk(func(p *Primary) {
		if p.Ident != nil {
			names = append(names, *p.Ident)
		}
	})
	return names
}

func (e *Expression) walk(fn func(*Primary)) {
	e.Left.walk(fn)
	for _, r := range e.Right {
		r.Term.walk(fn)
	}
}

func (t *Term) walk(fn func(*Primary)) {
	t.Left.walk(fn)
	for _, r := range t.Right {
		r.Unary.walk(fn)
	}
}

func (u *Unary) walk(fn func(*Primary)) {
	if u.Unary != nil {
		u.Unary.walk(fn)
		return
	}
	u.Power.Base.walk(fn)
	if u.Power.Exponent != nil {
		u.Power.Exponent.walk(fn)
	}
}

func (p *Primary) walk(fn func(*Primary)) {
	fn(p)
	switch {
	case p.Call != nil:
		p.Call.Arg.walk(fn)
	case p.Sub != nil:
		p.Sub.walk(fn)
	}
}
