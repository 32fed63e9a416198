// Package layout assigns bus positions and serial links to the cells of a
// scan chain.
//
// The chain is laid out left to right in declaration order. Cell 0 sits next
// to the module's serial input and owns the lowest bus bits; the last cell
// drives the serial output and owns the highest bits. Ranges partition
// [0, TotalLength) with no gaps or overlaps.
package layout

import (
	"fmt"

	"github.com/OpenTraceLab/scangen/pkg/expr"
	"github.com/OpenTraceLab/scangen/pkg/scan"
)

// Names of the module's primary serial ports.
const (
	SerialIn  = "SIn"
	SerialOut = "SOut"
)

// MaxLength bounds the total length of a chain in bits.
const MaxLength = 1 << 24

// Chain-level macros emitted as <prefix>_<name>. Cells share that namespace,
// as do parameters (<prefix>_P_<name>) and the per-cell _Width/_idx macros.
var chainMacros = []string{"TotalLength", "TwoPhase", "ConfigLatch"}

var cellMacroSuffixes = []string{"", "_Width", "_idx"}

// Cell is a placed cell. All fields are final once Resolve returns.
type Cell struct {
	Name      string
	FullName  string
	Direction scan.Direction
	Width     int // bits per instance
	Mult      int // instance count
	FullWidth int
	MinPos    int
	MaxPos    int
	SIn       string
	SOut      string
}

// Multi reports whether the cell is replicated and addressed by index.
func (c Cell) Multi() bool { return c.Mult > 1 }

// InstanceRange returns the bus range [lo, hi] of instance idx.
func (c Cell) InstanceRange(idx int) (lo, hi int, err error) {
	if idx < 0 || idx >= c.Mult {
		return 0, 0, fmt.Errorf("layout: %s: instance %d out of range [0,%d)", c.FullName, idx, c.Mult)
	}
	lo = c.MinPos + idx*c.Width
	return lo, lo + c.Width - 1, nil
}

// Wire is an internal serial link between two adjacent cells.
type Wire struct {
	Name string
	From string // full name of the upstream cell
	To   string // full name of the downstream cell
}

// Chain is a fully resolved scan chain.
type Chain struct {
	// Source is the document as authored, before evaluation.
	Source *scan.Document

	Name        string
	Prefix      string
	TwoPhase    bool
	ConfigLatch bool
	Parameters  []Parameter
	Cells       []Cell
	TotalLength int
}

// Resolve evaluates doc and lays out its cells.
func Resolve(doc *scan.Document) (*Chain, error) {
	return ResolvePrefix(doc, "")
}

// ResolvePrefix is Resolve with prefix replacing the document's symbol
// prefix when it is not empty. doc itself is left as authored and becomes
// the chain's Source.
func ResolvePrefix(doc *scan.Document, prefix string) (*Chain, error) {
	if prefix == "" {
		prefix = doc.SymbolPrefix()
	}
	if err := checkNames(prefix, doc.Parameters, doc.Cells); err != nil {
		return nil, err
	}

	evaluated, err := Evaluate(doc)
	if err != nil {
		return nil, err
	}
	params := make([]Parameter, 0, len(evaluated.Parameters))
	for _, p := range evaluated.Parameters {
		n, _ := p.Value.IntValue()
		params = append(params, Parameter{Name: p.Name, Value: n})
	}

	cells, err := place(prefix, doc.Cells, evaluated.Cells)
	if err != nil {
		return nil, err
	}
	total := 0
	if len(cells) > 0 {
		total = cells[len(cells)-1].MaxPos + 1
	}

	return &Chain{
		Source:      doc,
		Name:        doc.Name,
		Prefix:      prefix,
		TwoPhase:    doc.TwoPhase,
		ConfigLatch: doc.ConfigLatch,
		Parameters:  params,
		Cells:       cells,
		TotalLength: total,
	}, nil
}

// FullName joins prefix and cell name.
func FullName(prefix, name string) string {
	return prefix + "_" + name
}

// WireName names the link from cell a to cell b.
func WireName(a, b string) string {
	return a + "_to_" + b
}

type macroOwner struct {
	cell int // -1 for chain and parameter macros
	full string
}

// checkNames rejects cells whose names, or the macros derived from them,
// collide with another cell's or with the chain's own macros.
func checkNames(prefix string, params scan.Params, cells []scan.Cell) error {
	seen := make(map[string]macroOwner, len(chainMacros)+len(params)+3*len(cells))
	for _, m := range chainMacros {
		seen[prefix+"_"+m] = macroOwner{cell: -1}
	}
	for _, p := range params {
		seen[prefix+"_P_"+p.Name] = macroOwner{cell: -1}
	}

	for i, c := range cells {
		full := FullName(prefix, c.Name)
		for _, suffix := range cellMacroSuffixes {
			macro := full + suffix
			owner, ok := seen[macro]
			if !ok {
				continue
			}
			err := &scan.DuplicateCellNameError{FullName: full, First: owner.cell, Second: i}
			if suffix != "" || owner.full != full {
				err.Macro = macro
			}
			return err
		}
		for _, suffix := range cellMacroSuffixes {
			seen[full+suffix] = macroOwner{cell: i, full: full}
		}
	}
	return nil
}

// place folds over evaluated cells. Each cell's range starts right after its
// predecessor's; links come from the neighbours' names. source supplies the
// authored expressions for error reports.
func place(prefix string, source, evaluated []scan.Cell) ([]Cell, error) {
	cells := make([]Cell, 0, len(evaluated))
	for i, c := range evaluated {
		var prev *Cell
		if n := len(cells); n > 0 {
			prev = &cells[n-1]
		}
		cell, err := next(prev, prefix, source[i], c)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}

	for i := range cells {
		cells[i].SIn = SerialIn
		if i > 0 {
			cells[i].SIn = WireName(cells[i-1].FullName, cells[i].FullName)
		}
		cells[i].SOut = SerialOut
		if i < len(cells)-1 {
			cells[i].SOut = WireName(cells[i].FullName, cells[i+1].FullName)
		}
	}
	return cells, nil
}

func next(prev *Cell, prefix string, src, c scan.Cell) (Cell, error) {
	width, _ := c.Width.IntValue()
	mult, _ := c.Mult.IntValue()

	lo := 0
	if prev != nil {
		lo = prev.MaxPos + 1
	}
	// lo <= MaxLength here, so neither check can overflow.
	if width > MaxLength/mult || lo+width*mult > MaxLength {
		return Cell{}, tooLong(src, width, mult, lo)
	}
	full := width * mult
	return Cell{
		Name:      c.Name,
		FullName:  FullName(prefix, c.Name),
		Direction: c.Direction,
		Width:     width,
		Mult:      mult,
		FullWidth: full,
		MinPos:    lo,
		MaxPos:    lo + full - 1,
	}, nil
}

func tooLong(src scan.Cell, width, mult, lo int) error {
	field, v := "mult", src.Mult
	if mult == 1 || width > MaxLength {
		field, v = "width", src.Width
	}
	return &scan.ExpressionError{
		Entity: "cell",
		Name:   src.Name,
		Field:  field,
		Expr:   v.String(),
		Err:    fmt.Errorf("%w: %d x %d bits at offset %d exceed the %d-bit chain limit", expr.ErrRange, width, mult, lo, MaxLength),
	}
}

// Wires returns the internal links in shift order; there are len(Cells)-1.
func (c *Chain) Wires() []Wire {
	if len(c.Cells) < 2 {
		return nil
	}
	wires := make([]Wire, 0, len(c.Cells)-1)
	for i := 0; i+1 < len(c.Cells); i++ {
		wires = append(wires, Wire{
			Name: c.Cells[i].SOut,
			From: c.Cells[i].FullName,
			To:   c.Cells[i+1].FullName,
		})
	}
	return wires
}

// Cell looks a cell up by its short or fully-qualified name.
func (c *Chain) Cell(name string) (Cell, bool) {
	for _, cell := range c.Cells {
		if cell.Name == name || cell.FullName == name {
			return cell, true
		}
	}
	return Cell{}, false
}
