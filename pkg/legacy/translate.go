// Package legacy converts the older line-oriented scan-chain format into a
// structured scan.Document.
//
// The legacy format knows three kinds of lines:
//
//	$param{"N"} = 4;
//	$param{"W"} = $param{"N"} * 2;
//	Name = chip_cfg
//	ctrl W $param{"N"} 1
//
// Everything else is ignored. Values are never evaluated here: each is kept
// as an integer when it converts cleanly and as an expression otherwise.
package legacy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/OpenTraceLab/scangen/pkg/scan"
)

var (
	paramLineRegexp = regexp.MustCompile(`^\s*\$param\{\s*"(\w+)"\s*\}\s*=\s*(.+?)\s*;?\s*$`)
	nameLineRegexp  = regexp.MustCompile(`^\s*Name\s*=\s*(\w+)\s*;?\s*$`)
	cellLineRegexp  = regexp.MustCompile(`^\s*(\w+)\s+([RW])\s+(\S+)\s+(\S+)\s*$`)
	paramRefRegexp  = regexp.MustCompile(`\$param\{\s*"(\w+)"\s*\}`)
)

// Line is the classification of one input line: ParamLine, NameLine,
// CellLine or Ignored.
type Line interface {
	isLine()
}

// ParamLine assigns a parameter.
type ParamLine struct {
	Name  string
	Value scan.Value
}

// NameLine sets the chain name.
type NameLine struct {
	Name string
}

// CellLine declares one cell.
type CellLine struct {
	Cell scan.Cell
}

// Ignored is any line matching none of the known shapes.
type Ignored struct{}

func (ParamLine) isLine() {}
func (NameLine) isLine()  {}
func (CellLine) isLine()  {}
func (Ignored) isLine()   {}

// Classify matches a single line. Shapes are probed in the order parameter,
// name, cell; the first match wins.
func Classify(line string) Line {
	if m := paramLineRegexp.FindStringSubmatch(line); m != nil {
		return ParamLine{Name: m[1], Value: convert(m[2])}
	}
	if m := nameLineRegexp.FindStringSubmatch(line); m != nil {
		return NameLine{Name: m[1]}
	}
	if m := cellLineRegexp.FindStringSubmatch(line); m != nil {
		return CellLine{Cell: scan.Cell{
			Name:      m[1],
			Direction: scan.Direction(m[2]),
			Width:     convert(m[3]),
			Mult:      convert(m[4]),
		}}
	}
	return Ignored{}
}

// convert rewrites $param{"X"} references to X and keeps the result as an
// integer when possible.
func convert(raw string) scan.Value {
	return scan.ParseValue(paramRefRegexp.ReplaceAllString(raw, "$1"))
}

// Translate reads legacy text and builds the equivalent document.
func Translate(r io.Reader) (*scan.Document, error) {
	return translate("", r)
}

// TranslateFile translates the legacy file at path.
func TranslateFile(path string) (*scan.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return translate(path, f)
}

func translate(source string, r io.Reader) (*scan.Document, error) {
	doc := &scan.Document{}
	recognized, total := 0, 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		total++
		switch l := Classify(sc.Text()).(type) {
		case ParamLine:
			doc.Parameters.Set(l.Name, l.Value)
		case NameLine:
			doc.Name = l.Name
		case CellLine:
			doc.Cells = append(doc.Cells, l.Cell)
		default:
			continue
		}
		recognized++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("legacy: read: %w", err)
	}
	if recognized == 0 {
		return nil, &scan.TranslationError{Source: source, Lines: total}
	}
	return doc, nil
}
