package scan

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Direction tags a cell as status (read) or configuration (write).
type Direction string

const (
	// Read cells capture chip status onto the chain.
	Read Direction = "R"
	// Write cells drive configuration bits from the chain.
	Write Direction = "W"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool { return d == Read || d == Write }

// Document is the scan-chain description as authored by the user.
type Document struct {
	Name        string `yaml:"name"`
	Prefix      string `yaml:"prefix,omitempty"`
	TwoPhase    bool   `yaml:"two_phase"`
	ConfigLatch bool   `yaml:"config_latch"`
	Parameters  Params `yaml:"parameters,omitempty"`
	Cells       []Cell `yaml:"cells"`
}

// Cell describes one segment of the chain. Order within Document.Cells is
// both the shift order and the bus order.
type Cell struct {
	Name      string    `yaml:"name"`
	Direction Direction `yaml:"R/W"`
	Width     Value     `yaml:"width"`
	Mult      Value     `yaml:"mult"`
}

// Param is one named parameter definition.
type Param struct {
	Name  string
	Value Value
}

// Params keeps parameter definitions in declaration order; later parameters
// may refer to earlier ones.
type Params []Param

// Lookup returns the definition for name.
func (p Params) Lookup(name string) (Value, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return Value{}, false
}

// Set replaces an existing definition in place or appends a new one.
func (p *Params) Set(name string, v Value) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Param{Name: name, Value: v})
}

// UnmarshalYAML decodes a mapping while preserving key order.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameters must be a mapping", node.Line)
	}
	out := make(Params, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var v Value
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("parameter %q: %w", key.Value, err)
		}
		if _, dup := out.Lookup(key.Value); dup {
			return fmt.Errorf("line %d: parameter %q defined twice", key.Line, key.Value)
		}
		out = append(out, Param{Name: key.Value, Value: v})
	}
	*p = out
	return nil
}

// MarshalYAML encodes the parameters as an ordered mapping.
func (p Params) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, param := range p {
		var val yaml.Node
		if err := val.Encode(param.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: param.Name},
			&val,
		)
	}
	return node, nil
}

// SymbolPrefix returns the prefix used for emitted names, falling back to the
// chain name.
func (d *Document) SymbolPrefix() string {
	if d.Prefix != "" {
		return d.Prefix
	}
	return d.Name
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.Parameters = append(Params(nil), d.Parameters...)
	out.Cells = append([]Cell(nil), d.Cells...)
	return &out
}
