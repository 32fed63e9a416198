package layout

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/scangen/pkg/expr"
	"github.com/OpenTraceLab/scangen/pkg/scan"
)

func scenarioDoc() *scan.Document {
	return &scan.Document{
		Name:   "chip_cfg",
		Prefix: "prefix",
		Parameters: scan.Params{
			{Name: "N", Value: scan.Int(4)},
		},
		Cells: []scan.Cell{
			{Name: "ctrl", Direction: scan.Write, Width: scan.Expr("N"), Mult: scan.Int(1)},
			{Name: "status", Direction: scan.Read, Width: scan.Int(2), Mult: scan.Int(3)},
		},
	}
}

func TestResolveScenario(t *testing.T) {
	chain, err := Resolve(scenarioDoc())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []Cell{
		{
			Name: "ctrl", FullName: "prefix_ctrl", Direction: scan.Write,
			Width: 4, Mult: 1, FullWidth: 4, MinPos: 0, MaxPos: 3,
			SIn: "SIn", SOut: "prefix_ctrl_to_prefix_status",
		},
		{
			Name: "status", FullName: "prefix_status", Direction: scan.Read,
			Width: 2, Mult: 3, FullWidth: 6, MinPos: 4, MaxPos: 9,
			SIn: "prefix_ctrl_to_prefix_status", SOut: "SOut",
		},
	}
	if diff := cmp.Diff(want, chain.Cells); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}
	if chain.TotalLength != 10 {
		t.Fatalf("TotalLength = %d, want 10", chain.TotalLength)
	}

	wires := chain.Wires()
	if len(wires) != 1 || wires[0].Name != "prefix_ctrl_to_prefix_status" {
		t.Fatalf("Wires() = %+v, want one prefix_ctrl_to_prefix_status", wires)
	}
	if diff := cmp.Diff([]Parameter{{Name: "N", Value: 4}}, chain.Parameters); diff != "" {
		t.Fatalf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestPrefixDefaultsToName(t *testing.T) {
	doc := scenarioDoc()
	doc.Prefix = ""
	chain, err := Resolve(doc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if chain.Prefix != "chip_cfg" || chain.Cells[0].FullName != "chip_cfg_ctrl" {
		t.Fatalf("prefix = %q, first cell = %q", chain.Prefix, chain.Cells[0].FullName)
	}
}

func randomDoc(r *rand.Rand, cells int) *scan.Document {
	doc := &scan.Document{
		Name: "rnd",
		Parameters: scan.Params{
			{Name: "A", Value: scan.Int(1 + r.Intn(8))},
			{Name: "B", Value: scan.Expr("clog2(A*5)+1")},
		},
	}
	for i := 0; i < cells; i++ {
		c := scan.Cell{
			Name:      fmt.Sprintf("c%d", i),
			Direction: scan.Read,
			Width:     scan.Int(1 + r.Intn(16)),
			Mult:      scan.Int(1 + r.Intn(4)),
		}
		if r.Intn(2) == 0 {
			c.Direction = scan.Write
			c.Width = scan.Expr("B")
		}
		if r.Intn(3) == 0 {
			c.Mult = scan.Expr("A")
		}
		doc.Cells = append(doc.Cells, c)
	}
	return doc
}

func TestPartitionAndWiringInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		n := 1 + r.Intn(20)
		chain, err := Resolve(randomDoc(r, n))
		if err != nil {
			t.Fatalf("iteration %d: Resolve failed: %v", iter, err)
		}

		// Ranges cover [0, TotalLength) in declaration order.
		covered := make([]int, chain.TotalLength)
		next := 0
		sum := 0
		for _, c := range chain.Cells {
			if c.MinPos != next {
				t.Fatalf("iteration %d: %s starts at %d, want %d", iter, c.Name, c.MinPos, next)
			}
			if c.MaxPos-c.MinPos+1 != c.FullWidth || c.FullWidth != c.Width*c.Mult {
				t.Fatalf("iteration %d: %s has inconsistent width %+v", iter, c.Name, c)
			}
			for b := c.MinPos; b <= c.MaxPos; b++ {
				covered[b]++
			}
			next = c.MaxPos + 1
			sum += c.FullWidth
		}
		if sum != chain.TotalLength {
			t.Fatalf("iteration %d: widths sum to %d, TotalLength %d", iter, sum, chain.TotalLength)
		}
		for b, hits := range covered {
			if hits != 1 {
				t.Fatalf("iteration %d: bit %d covered %d times", iter, b, hits)
			}
		}

		// Exactly N-1 links, each from cell i to i+1.
		wires := chain.Wires()
		if len(wires) != n-1 {
			t.Fatalf("iteration %d: %d wires for %d cells", iter, len(wires), n)
		}
		if chain.Cells[0].SIn != SerialIn || chain.Cells[n-1].SOut != SerialOut {
			t.Fatalf("iteration %d: primary ports not bound to the chain ends", iter)
		}
		for i, w := range wires {
			if chain.Cells[i].SOut != w.Name || chain.Cells[i+1].SIn != w.Name {
				t.Fatalf("iteration %d: wire %d (%s) not between cells %d and %d", iter, i, w.Name, i, i+1)
			}
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	once, err := Evaluate(scenarioDoc())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	twice, err := Evaluate(once)
	if err != nil {
		t.Fatalf("second Evaluate failed: %v", err)
	}
	if diff := cmp.Diff(once, twice, cmp.AllowUnexported(scan.Value{})); diff != "" {
		t.Fatalf("Evaluate changed a resolved document (-want +got):\n%s", diff)
	}
	for _, c := range once.Cells {
		if !c.Width.IsInt() || !c.Mult.IsInt() {
			t.Fatalf("cell %s left symbolic after Evaluate", c.Name)
		}
	}
}

func TestEvaluateDoesNotMutateInput(t *testing.T) {
	doc := scenarioDoc()
	if _, err := Evaluate(doc); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if doc.Cells[0].Width.IsInt() {
		t.Fatal("Evaluate mutated the source document")
	}
}

func TestResolveExpressionErrors(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(*scan.Document)
		wantEntity string
		wantName   string
		wantField  string
		wantCause  error
	}{
		{
			name: "undefined width symbol",
			mutate: func(d *scan.Document) {
				d.Cells[0].Width = scan.Expr("M")
			},
			wantEntity: "cell", wantName: "ctrl", wantField: "width", wantCause: expr.ErrUndefined,
		},
		{
			name: "forward parameter reference",
			mutate: func(d *scan.Document) {
				d.Parameters = scan.Params{
					{Name: "A", Value: scan.Expr("B+1")},
					{Name: "B", Value: scan.Int(2)},
				}
			},
			wantEntity: "parameter", wantName: "A", wantField: "value", wantCause: expr.ErrUndefined,
		},
		{
			name: "self reference",
			mutate: func(d *scan.Document) {
				d.Parameters = scan.Params{{Name: "N", Value: scan.Expr("N*2")}}
			},
			wantEntity: "parameter", wantName: "N", wantField: "value", wantCause: expr.ErrUndefined,
		},
		{
			name: "fractional mult",
			mutate: func(d *scan.Document) {
				d.Cells[1].Mult = scan.Expr("N/3")
			},
			wantEntity: "cell", wantName: "status", wantField: "mult", wantCause: expr.ErrNotInteger,
		},
		{
			name: "zero width",
			mutate: func(d *scan.Document) {
				d.Cells[1].Width = scan.Expr("N-4")
			},
			wantEntity: "cell", wantName: "status", wantField: "width",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := scenarioDoc()
			tc.mutate(doc)

			_, err := Resolve(doc)
			var ee *scan.ExpressionError
			if !errors.As(err, &ee) {
				t.Fatalf("Resolve error = %v, want ExpressionError", err)
			}
			if ee.Entity != tc.wantEntity || ee.Name != tc.wantName || ee.Field != tc.wantField {
				t.Fatalf("ExpressionError = %s/%s/%s, want %s/%s/%s",
					ee.Entity, ee.Name, ee.Field, tc.wantEntity, tc.wantName, tc.wantField)
			}
			if tc.wantCause != nil && !errors.Is(err, tc.wantCause) {
				t.Fatalf("cause = %v, want %v", ee.Err, tc.wantCause)
			}
		})
	}
}

func TestResolveRejectsDuplicateNames(t *testing.T) {
	doc := scenarioDoc()
	doc.Cells = append(doc.Cells, scan.Cell{
		Name: "ctrl", Direction: scan.Read, Width: scan.Int(1), Mult: scan.Int(1),
	})

	_, err := Resolve(doc)
	var dup *scan.DuplicateCellNameError
	if !errors.As(err, &dup) {
		t.Fatalf("Resolve error = %v, want DuplicateCellNameError", err)
	}
	if dup.FullName != "prefix_ctrl" || dup.First != 0 || dup.Second != 2 {
		t.Fatalf("DuplicateCellNameError = %+v", dup)
	}
}

func TestResolveRejectsMacroCollisions(t *testing.T) {
	cell := func(name string) scan.Cell {
		return scan.Cell{Name: name, Direction: scan.Read, Width: scan.Int(2), Mult: scan.Int(1)}
	}

	tests := []struct {
		name      string
		cells     []scan.Cell
		wantFirst int
		wantMacro string
	}{
		{"width macro after cell", []scan.Cell{cell("ctrl"), cell("ctrl_Width")}, 0, "p_ctrl_Width"},
		{"width macro before cell", []scan.Cell{cell("ctrl_Width"), cell("ctrl")}, 0, "p_ctrl_Width"},
		{"index macro", []scan.Cell{cell("bank"), cell("bank_idx")}, 0, "p_bank_idx"},
		{"total length", []scan.Cell{cell("a"), cell("TotalLength")}, -1, "p_TotalLength"},
		{"two phase", []scan.Cell{cell("TwoPhase")}, -1, "p_TwoPhase"},
		{"config latch", []scan.Cell{cell("ConfigLatch")}, -1, "p_ConfigLatch"},
		{"parameter macro", []scan.Cell{cell("P_N")}, -1, "p_P_N"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &scan.Document{
				Name:       "chip",
				Prefix:     "p",
				Parameters: scan.Params{{Name: "N", Value: scan.Int(2)}},
				Cells:      tt.cells,
			}
			_, err := Resolve(doc)

			var dup *scan.DuplicateCellNameError
			if !errors.As(err, &dup) {
				t.Fatalf("Resolve error = %v, want DuplicateCellNameError", err)
			}
			if dup.First != tt.wantFirst || dup.Macro != tt.wantMacro {
				t.Fatalf("DuplicateCellNameError = %+v, want First %d Macro %q", dup, tt.wantFirst, tt.wantMacro)
			}
		})
	}

	// Names that only look alike are fine.
	doc := &scan.Document{Name: "chip", Prefix: "p", Cells: []scan.Cell{cell("Width"), cell("ctrl_W"), cell("idx_ctrl")}}
	if _, err := Resolve(doc); err != nil {
		t.Fatalf("Resolve rejected distinct names: %v", err)
	}
}

func TestResolveRejectsOversizedChains(t *testing.T) {
	tests := []struct {
		name      string
		cells     []scan.Cell
		wantCell  string
		wantField string
	}{
		{
			name: "product overflows int",
			cells: []scan.Cell{
				{Name: "a", Direction: scan.Read, Width: scan.Int(4), Mult: scan.Int(1)},
				{Name: "b", Direction: scan.Read, Width: scan.Expr("2**40"), Mult: scan.Expr("2**40")},
				{Name: "c", Direction: scan.Read, Width: scan.Int(2), Mult: scan.Int(1)},
			},
			wantCell:  "b",
			wantField: "width",
		},
		{
			name: "replication exceeds limit",
			cells: []scan.Cell{
				{Name: "a", Direction: scan.Write, Width: scan.Int(1024), Mult: scan.Expr("2**20")},
			},
			wantCell:  "a",
			wantField: "mult",
		},
		{
			name: "running offset exceeds limit",
			cells: []scan.Cell{
				{Name: "a", Direction: scan.Read, Width: scan.Int(MaxLength / 2), Mult: scan.Int(1)},
				{Name: "b", Direction: scan.Read, Width: scan.Int(MaxLength/2 + 1), Mult: scan.Int(1)},
			},
			wantCell:  "b",
			wantField: "width",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(&scan.Document{Name: "x", Cells: tt.cells})

			var ee *scan.ExpressionError
			if !errors.As(err, &ee) {
				t.Fatalf("Resolve error = %v, want ExpressionError", err)
			}
			if ee.Name != tt.wantCell || ee.Field != tt.wantField {
				t.Fatalf("ExpressionError on %s.%s, want %s.%s", ee.Name, ee.Field, tt.wantCell, tt.wantField)
			}
			if !errors.Is(err, expr.ErrRange) {
				t.Fatalf("cause = %v, want ErrRange", ee.Err)
			}
		})
	}

	chain, err := Resolve(&scan.Document{Name: "x", Cells: []scan.Cell{
		{Name: "a", Direction: scan.Read, Width: scan.Int(MaxLength / 2), Mult: scan.Int(2)},
	}})
	if err != nil {
		t.Fatalf("Resolve rejected a chain at the limit: %v", err)
	}
	if chain.TotalLength != MaxLength {
		t.Fatalf("TotalLength = %d, want %d", chain.TotalLength, MaxLength)
	}
}

func TestResolvePrefixKeepsSource(t *testing.T) {
	doc := scenarioDoc()
	chain, err := ResolvePrefix(doc, "cc")
	if err != nil {
		t.Fatalf("ResolvePrefix failed: %v", err)
	}
	if chain.Prefix != "cc" || chain.Cells[0].FullName != "cc_ctrl" {
		t.Fatalf("override not applied: prefix %q, first cell %q", chain.Prefix, chain.Cells[0].FullName)
	}
	if chain.Source != doc || doc.Prefix != "prefix" {
		t.Fatalf("source document changed: %+v", chain.Source)
	}
}

func TestChainLookupAndInstances(t *testing.T) {
	chain, err := Resolve(scenarioDoc())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	status, ok := chain.Cell("status")
	if !ok {
		t.Fatal("Cell(status) not found")
	}
	if byFull, ok := chain.Cell("prefix_status"); !ok || byFull != status {
		t.Fatal("Cell(prefix_status) did not return the same cell")
	}
	if !status.Multi() {
		t.Fatal("status should be multi-instance")
	}

	lo, hi, err := status.InstanceRange(2)
	if err != nil || lo != 8 || hi != 9 {
		t.Fatalf("InstanceRange(2) = %d,%d,%v want 8,9,nil", lo, hi, err)
	}
	if _, _, err := status.InstanceRange(3); err == nil {
		t.Fatal("InstanceRange(3) succeeded on a 3-instance cell")
	}
}
