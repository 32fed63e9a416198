// Package schema checks raw scan-chain documents against the CUE contract
// before they are decoded into scan.Document.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/scangen/pkg/scan"
)

// HomeEnv names the variable pointing at the installation directory.
const HomeEnv = "SCANGEN_HOME"

// Definition is the schema entry point documents are unified with.
const Definition = "#ScanChain"

//go:embed scan.cue
var embeddedSchema []byte

// Validator validates documents against the scan-chain schema. A cue.Context
// is not safe for concurrent use, so Validate serializes callers.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
	source string
}

// New creates a Validator from the embedded schema.
func New() (*Validator, error) {
	return compile(embeddedSchema, "embedded")
}

// NewFromFile creates a Validator from a schema file on disk.
func NewFromFile(path string) (*Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return compile(data, path)
}

// SchemaPath returns the schema location under home.
func SchemaPath(home string) string {
	return filepath.Join(home, "schemata", "scan.cue")
}

// NewFromHome uses the schema below home when one is installed there and
// falls back to the embedded copy otherwise.
func NewFromHome(home string) (*Validator, error) {
	if home == "" {
		return New()
	}
	path := SchemaPath(home)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return New()
		}
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return NewFromFile(path)
}

func compile(src []byte, name string) (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(src, cue.Filename(name))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath(Definition))
	if !def.Exists() {
		return nil, fmt.Errorf("looking up %s definition: not found in %s", Definition, name)
	}
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", Definition, def.Err())
	}
	return &Validator{ctx: ctx, schema: schema, source: name}, nil
}

// Source names where the schema came from.
func (v *Validator) Source() string { return v.source }

// ValidateYAML checks a YAML document. path is only used in error messages.
func (v *Validator) ValidateYAML(path string, data []byte) error {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &scan.SchemaValidationError{Path: path, Err: fmt.Errorf("parsing YAML: %w", err)}
	}
	if raw == nil {
		return &scan.SchemaValidationError{Path: path, Problems: []string{"document is empty"}}
	}
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return &scan.SchemaValidationError{Path: path, Err: fmt.Errorf("marshaling data to JSON: %w", err)}
	}
	return v.ValidateJSON(path, jsonBytes)
}

// ValidateJSON checks a JSON document.
func (v *Validator) ValidateJSON(path string, jsonBytes []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return &scan.SchemaValidationError{Path: path, Err: fmt.Errorf("compiling data as CUE: %w", dataValue.Err())}
	}

	def := v.schema.LookupPath(cue.ParsePath(Definition))
	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range errors.Errors(err) {
			problems = append(problems, e.Error())
		}
		return &scan.SchemaValidationError{Path: path, Problems: problems, Err: err}
	}
	return nil
}
