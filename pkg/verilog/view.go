package verilog

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/scangen/pkg/layout"
	"github.com/OpenTraceLab/scangen/pkg/scan"
)

// Bus port names.
const (
	BusInout = "Cfg"
	BusRead  = "CfgRd"
	BusWrite = "CfgWr"
)

type view struct {
	Source      *scan.Document
	Name        string
	Prefix      string
	Guard       string
	TwoPhase    int
	ConfigLatch int
	TotalLength int
	Parameters  []layout.Parameter
	Cells       []layout.Cell
	Multi       []layout.Cell
	Wires       []layout.Wire

	Ports     []string
	BusPorts  []string
	BusNames  []string
	Instances []instance
	TieOffs   []assign
	Drivers   []assign
	Tasks     []task
}

type binding struct {
	Name  string
	Value string
}

type instance struct {
	Module string
	Name   string
	Params []binding
	Ports  []binding
}

type assign struct {
	Bus      string
	FullName string
	Value    string
}

type task struct {
	Name     string
	Indexed  bool
	ValueDir string
	MSB      int
	Body     string
}

func newView(c *layout.Chain, opts Options) *view {
	v := &view{
		Source:      c.Source,
		Name:        c.Name,
		Prefix:      c.Prefix,
		Guard:       strings.ToUpper(c.Name) + "_DEFINES_V",
		TwoPhase:    flag(c.TwoPhase),
		ConfigLatch: flag(c.ConfigLatch),
		TotalLength: c.TotalLength,
		Parameters:  c.Parameters,
		Cells:       c.Cells,
		Wires:       c.Wires(),
	}
	for _, cell := range c.Cells {
		if cell.Multi() {
			v.Multi = append(v.Multi, cell)
		}
	}

	vec := fmt.Sprintf("[`%s_TotalLength-1:0]", c.Prefix)
	rdBus, wrBus := BusInout, BusInout
	if opts.SplitBus {
		rdBus, wrBus = BusRead, BusWrite
		v.BusPorts = []string{
			"input wire " + vec + " " + BusRead,
			"output wire " + vec + " " + BusWrite,
		}
		v.BusNames = []string{BusRead, BusWrite}
	} else {
		v.BusPorts = []string{"inout wire " + vec + " " + BusInout}
		v.BusNames = []string{BusInout}
	}

	v.Ports = []string{
		"input wire SClkP",
		"input wire SClkN",
		"input wire SReset",
		"input wire SEnable",
		"input wire SUpdate",
		"input wire " + layout.SerialIn,
		"output wire " + layout.SerialOut,
	}
	v.Ports = append(v.Ports, v.BusPorts...)

	for _, cell := range c.Cells {
		v.Instances = append(v.Instances, segment(c.Prefix, cell, rdBus, wrBus))

		zero := fmt.Sprintf("{`%s_Width{1'b0}}", cell.FullName)
		slice := fmt.Sprintf("cfg_q[`%s]", cell.FullName)
		switch {
		case cell.Direction == scan.Write:
			v.Drivers = append(v.Drivers, assign{Bus: wrBus, FullName: cell.FullName, Value: slice})
		case opts.SplitBus:
			tie := assign{Bus: wrBus, FullName: cell.FullName, Value: zero}
			v.TieOffs = append(v.TieOffs, tie)
			v.Drivers = append(v.Drivers, tie)
		}

		v.Tasks = append(v.Tasks, accessors(cell, rdBus)...)
	}
	return v
}

func segment(prefix string, cell layout.Cell, rdBus, wrBus string) instance {
	macro := func(s string) string { return "`" + s }
	params := []binding{
		{Name: "PWidth", Value: macro(cell.FullName + "_Width")},
		{Name: "TwoPhase", Value: macro(prefix + "_TwoPhase")},
	}
	clocks := []binding{
		{Name: "SClkP", Value: "SClkP"},
		{Name: "SClkN", Value: "SClkN"},
	}
	link := []binding{
		{Name: "SIn", Value: cell.SIn},
		{Name: "SOut", Value: cell.SOut},
	}

	if cell.Direction == scan.Read {
		ports := append(clocks,
			binding{Name: "SEnable", Value: "SEnable"},
			binding{Name: "CfgIn", Value: fmt.Sprintf("%s[`%s]", rdBus, cell.FullName)},
		)
		return instance{
			Module: ReadSegment,
			Name:   cell.FullName,
			Params: params,
			Ports:  append(ports, link...),
		}
	}

	params = append(params, binding{Name: "ConfigLatch", Value: macro(prefix + "_ConfigLatch")})
	ports := append(clocks,
		binding{Name: "SReset", Value: "SReset"},
		binding{Name: "SEnable", Value: "SEnable"},
		binding{Name: "SUpdate", Value: "SUpdate"},
		binding{Name: "CfgOut", Value: fmt.Sprintf("%s[`%s]", wrBus, cell.FullName)},
	)
	return instance{
		Module: WriteSegment,
		Name:   cell.FullName,
		Params: params,
		Ports:  append(ports, link...),
	}
}

// accessors returns get_<cell> for read cells and set_/get_ for write cells.
func accessors(cell layout.Cell, rdBus string) []task {
	sel := "`" + cell.FullName
	msb := cell.FullWidth - 1
	if cell.Multi() {
		sel = fmt.Sprintf("`%s_idx(idx)", cell.FullName)
		msb = cell.Width - 1
	}

	get := task{
		Name:     "get_" + cell.Name,
		Indexed:  cell.Multi(),
		ValueDir: "output",
		MSB:      msb,
	}
	if cell.Direction == scan.Read {
		get.Body = fmt.Sprintf("value = %s[%s]", rdBus, sel)
		return []task{get}
	}

	get.Body = fmt.Sprintf("value = cfg_q[%s]", sel)
	set := task{
		Name:     "set_" + cell.Name,
		Indexed:  cell.Multi(),
		ValueDir: "input",
		MSB:      msb,
		Body:     fmt.Sprintf("cfg_q[%s] = value", sel),
	}
	return []task{set, get}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
