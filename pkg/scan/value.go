package scan

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is either a literal integer or a symbolic expression that still has to
// be evaluated against the parameter environment.
type Value struct {
	n    int
	expr string
	sym  bool
}

// Int returns a literal integer value.
func Int(n int) Value { return Value{n: n} }

// Expr returns a symbolic value.
func Expr(s string) Value { return Value{expr: s, sym: true} }

// ParseValue converts s to an integer when possible and keeps it symbolic
// otherwise.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Int(n)
	}
	return Expr(s)
}

// IsInt reports whether the value is already a concrete integer.
func (v Value) IsInt() bool { return !v.sym }

// IntValue returns the integer and true, or 0 and false for symbolic values.
func (v Value) IntValue() (int, bool) {
	if v.sym {
		return 0, false
	}
	return v.n, true
}

// Expression returns the symbolic source, or "" for integers.
func (v Value) Expression() string { return v.expr }

func (v Value) String() string {
	if v.sym {
		return v.expr
	}
	return strconv.Itoa(v.n)
}

// UnmarshalYAML treats !!int scalars as integers and every other scalar as
// an expression.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected integer or expression, got %s", node.Line, kindName(node.Kind))
	}
	if node.ShortTag() == "!!int" {
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*v = Int(n)
		return nil
	}
	*v = Expr(node.Value)
	return nil
}

// MarshalYAML writes integers as plain ints and expressions as strings.
func (v Value) MarshalYAML() (interface{}, error) {
	if v.sym {
		return v.expr, nil
	}
	return v.n, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	}
	return "scalar"
}
