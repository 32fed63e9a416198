package expr

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUndefined reports a reference to a name missing from the environment.
	ErrUndefined = errors.New("undefined symbol")
	// ErrUnknownFunction reports a call to something other than a builtin.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrNotInteger reports a result (or operand) that is not a whole number.
	ErrNotInteger = errors.New("non-integer result")
	// ErrDivideByZero reports division or modulo by zero.
	ErrDivideByZero = errors.New("division by zero")
	// ErrDomain reports a builtin or exponent applied outside its domain.
	ErrDomain = errors.New("argument out of domain")
	// ErrRange reports a result that does not fit in an int.
	ErrRange = errors.New("result out of range")
)

// maxExponent bounds ** so a stray expression cannot allocate unbounded memory.
const maxExponent = 4096

// Env maps already-resolved parameter names to their values.
type Env map[string]int

// Builtins lists the function names understood by the evaluator.
var Builtins = map[string]func(*big.Int) (*big.Int, error){
	"log2":  ceilLog2,
	"clog2": ceilLog2,
	"flog2": floorLog2,
}

// Eval parses and evaluates src against env. The result must be an integer.
func Eval(src string, env Env) (int, error) {
	e, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return e.Int(env)
}

// Int evaluates the expression and converts the result to an int.
func (e *Expression) Int(env Env) (int, error) {
	r, err := e.Eval(env)
	if err != nil {
		return 0, err
	}
	return toInt(r)
}

// Eval evaluates the expression exactly.
func (e *Expression) Eval(env Env) (*big.Rat, error) {
	acc, err := e.Left.eval(env)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Right {
		rhs, err := r.Term.eval(env)
		if err != nil {
			return nil, err
		}
		switch r.Op {
		case "+":
			acc = new(big.Rat).Add(acc, rhs)
		case "-":
			acc = new(big.Rat).Sub(acc, rhs)
		}
	}
	return acc, nil
}

func (t *Term) eval(env Env) (*big.Rat, error) {
	acc, err := t.Left.eval(env)
	if err != nil {
		return nil, err
	}
	for _, r := range t.Right {
		rhs, err := r.Unary.eval(env)
		if err != nil {
			return nil, err
		}
		switch r.Op {
		case "*":
			acc = new(big.Rat).Mul(acc, rhs)
		case "/":
			if rhs.Sign() == 0 {
				return nil, ErrDivideByZero
			}
			acc = new(big.Rat).Quo(acc, rhs)
		case "%":
			acc, err = floorMod(acc, rhs)
			if err != nil {
				return nil, err
			}
		}
	}
	return acc, nil
}

func (u *Unary) eval(env Env) (*big.Rat, error) {
	if u.Unary != nil {
		v, err := u.Unary.eval(env)
		if err != nil {
			return nil, err
		}
		if u.Op == "-" {
			return new(big.Rat).Neg(v), nil
		}
		return v, nil
	}
	return u.Power.eval(env)
}

func (p *Power) eval(env Env) (*big.Rat, error) {
	base, err := p.Base.eval(env)
	if err != nil {
		return nil, err
	}
	if p.Exponent == nil {
		return base, nil
	}
	exp, err := p.Exponent.eval(env)
	if err != nil {
		return nil, err
	}
	if !exp.IsInt() || exp.Num().CmpAbs(big.NewInt(maxExponent)) > 0 {
		return nil, fmt.Errorf("%w: exponent %s", ErrDomain, exp.RatString())
	}
	n := exp.Num().Int64()
	neg := n < 0
	if neg {
		n = -n
	}
	num := new(big.Int).Exp(base.Num(), big.NewInt(n), nil)
	den := new(big.Int).Exp(base.Denom(), big.NewInt(n), nil)
	if neg {
		if num.Sign() == 0 {
			return nil, ErrDivideByZero
		}
		num, den = den, num
	}
	return new(big.Rat).SetFrac(num, den), nil
}

func (p *Primary) eval(env Env) (*big.Rat, error) {
	switch {
	case p.Call != nil:
		return p.Call.eval(env)
	case p.Number != nil:
		r, ok := new(big.Rat).SetString(*p.Number)
		if !ok {
			return nil, fmt.Errorf("invalid integer literal %q", *p.Number)
		}
		return r, nil
	case p.Ident != nil:
		v, ok := env[*p.Ident]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUndefined, *p.Ident)
		}
		return new(big.Rat).SetInt64(int64(v)), nil
	case p.Sub != nil:
		return p.Sub.Eval(env)
	}
	return nil, fmt.Errorf("empty expression")
}

func (c *Call) eval(env Env) (*big.Rat, error) {
	fn, ok := Builtins[c.Func]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFunction, c.Func)
	}
	arg, err := c.Arg.Eval(env)
	if err != nil {
		return nil, err
	}
	if !arg.IsInt() {
		return nil, fmt.Errorf("%w: %s(%s)", ErrDomain, c.Func, arg.RatString())
	}
	out, err := fn(arg.Num())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Func, err)
	}
	return new(big.Rat).SetInt(out), nil
}

// ceilLog2 returns ceil(log2(x)) for x >= 1.
func ceilLog2(x *big.Int) (*big.Int, error) {
	if x.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDomain, x)
	}
	m := new(big.Int).Sub(x, big.NewInt(1))
	return big.NewInt(int64(m.BitLen())), nil
}

// floorLog2 returns floor(log2(x)) for x >= 1.
func floorLog2(x *big.Int) (*big.Int, error) {
	if x.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDomain, x)
	}
	return big.NewInt(int64(x.BitLen() - 1)), nil
}

// floorMod follows the sign of the divisor, like Python's %.
func floorMod(a, b *big.Rat) (*big.Rat, error) {
	if !a.IsInt() || !b.IsInt() {
		return nil, fmt.Errorf("%w: %s %% %s", ErrNotInteger, a.RatString(), b.RatString())
	}
	if b.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	x, y := a.Num(), b.Num()
	r := new(big.Int).Rem(x, y)
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		r.Add(r, y)
	}
	return new(big.Rat).SetInt(r), nil
}

func toInt(r *big.Rat) (int, error) {
	if !r.IsInt() {
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, r.RatString())
	}
	n := r.Num()
	if !n.IsInt64() || int64(int(n.Int64())) != n.Int64() {
		return 0, fmt.Errorf("%w: %s", ErrRange, n)
	}
	return int(n.Int64()), nil
}
