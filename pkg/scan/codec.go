package scan

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Decode reads a structured document from YAML.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("scan: empty document")
		}
		return nil, fmt.Errorf("scan: decode: %w", err)
	}
	for i, c := range doc.Cells {
		if !c.Direction.Valid() {
			return nil, fmt.Errorf("scan: cell %d (%s): invalid R/W %q", i, c.Name, c.Direction)
		}
	}
	return &doc, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// LoadFile reads and decodes the document at path without schema checks.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes doc as YAML with two-space indentation.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("scan: encode: %w", err)
	}
	return enc.Close()
}

// Marshal returns the YAML encoding of doc.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
