package scan

import (
	"fmt"
	"strings"
)

// SchemaValidationError reports a document rejected by the schema validator.
type SchemaValidationError struct {
	Path     string
	Problems []string
	Err      error
}

func (e *SchemaValidationError) Error() string {
	src := e.Path
	if src == "" {
		src = "document"
	}
	if len(e.Problems) == 0 {
		return fmt.Sprintf("scan: %s does not conform to schema: %v", src, e.Err)
	}
	return fmt.Sprintf("scan: %s does not conform to schema:\n  %s", src, strings.Join(e.Problems, "\n  "))
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// ExpressionError reports a parameter, width or multiplicity that could not
// be resolved to an integer.
type ExpressionError struct {
	Entity string // "parameter" or "cell"
	Name   string
	Field  string // "value", "width" or "mult"
	Expr   string
	Err    error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("scan: %s %q: %s %q: %v", e.Entity, e.Name, e.Field, e.Expr, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// DuplicateCellNameError reports a cell whose fully-qualified name, or one of
// the macros derived from it, is already taken. First is -1 when the name
// belongs to a chain-level macro rather than another cell.
type DuplicateCellNameError struct {
	FullName string
	First    int
	Second   int
	Macro    string // colliding macro when it is not FullName shared by two cells
}

func (e *DuplicateCellNameError) Error() string {
	switch {
	case e.First < 0:
		return fmt.Sprintf("scan: cell %d (%q) collides with the reserved macro %q", e.Second, e.FullName, e.Macro)
	case e.Macro != "":
		return fmt.Sprintf("scan: cells %d and %d (%q) both produce the macro %q", e.First, e.Second, e.FullName, e.Macro)
	}
	return fmt.Sprintf("scan: cells %d and %d share the name %q", e.First, e.Second, e.FullName)
}

// TranslationError reports legacy input without a single recognizable line.
type TranslationError struct {
	Source string
	Lines  int
}

func (e *TranslationError) Error() string {
	src := e.Source
	if src == "" {
		src = "input"
	}
	return fmt.Sprintf("scan: %s: no recognizable lines in %d scanned", src, e.Lines)
}
