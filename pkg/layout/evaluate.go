package layout

import (
	"fmt"

	"github.com/OpenTraceLab/scangen/pkg/expr"
	"github.com/OpenTraceLab/scangen/pkg/scan"
)

// Parameter is a resolved parameter.
type Parameter struct {
	Name  string
	Value int
}

// Environment resolves the document's parameters in declaration order. Each
// definition sees only the parameters above it.
func Environment(params scan.Params) (expr.Env, []Parameter, error) {
	env := make(expr.Env, len(params))
	resolved := make([]Parameter, 0, len(params))
	for _, p := range params {
		n, err := value(env, p.Value)
		if err != nil {
			return nil, nil, &scan.ExpressionError{
				Entity: "parameter",
				Name:   p.Name,
				Field:  "value",
				Expr:   p.Value.String(),
				Err:    err,
			}
		}
		env[p.Name] = n
		resolved = append(resolved, Parameter{Name: p.Name, Value: n})
	}
	return env, resolved, nil
}

// Evaluate returns a copy of doc with every parameter, width and multiplicity
// replaced by its integer value. Evaluating an already evaluated document
// returns an equal document.
func Evaluate(doc *scan.Document) (*scan.Document, error) {
	env, params, err := Environment(doc.Parameters)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	for i, p := range params {
		out.Parameters[i].Value = scan.Int(p.Value)
	}
	for i, c := range doc.Cells {
		width, err := cellValue(env, c, "width", c.Width)
		if err != nil {
			return nil, err
		}
		mult, err := cellValue(env, c, "mult", c.Mult)
		if err != nil {
			return nil, err
		}
		out.Cells[i].Width = scan.Int(width)
		out.Cells[i].Mult = scan.Int(mult)
	}
	return out, nil
}

func cellValue(env expr.Env, c scan.Cell, field string, v scan.Value) (int, error) {
	n, err := value(env, v)
	if err == nil && n <= 0 {
		err = fmt.Errorf("must be positive, got %d", n)
	}
	if err != nil {
		return 0, &scan.ExpressionError{
			Entity: "cell",
			Name:   c.Name,
			Field:  field,
			Expr:   v.String(),
			Err:    err,
		}
	}
	return n, nil
}

// value returns integers unchanged and evaluates expressions.
func value(env expr.Env, v scan.Value) (int, error) {
	if n, ok := v.IntValue(); ok {
		return n, nil
	}
	return expr.Eval(v.Expression(), env)
}
