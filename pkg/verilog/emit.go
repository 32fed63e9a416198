// Package verilog renders a resolved scan chain into Verilog: the chain
// module, its `define constants and the optional bypass modules used on the
// bench.
//
// Rendering is a pure function of the layout.Chain and Options. Every width,
// position and name in the output is read from the chain; nothing is
// recomputed here.
package verilog

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/OpenTraceLab/scangen/pkg/layout"
	"github.com/OpenTraceLab/scangen/pkg/scan"
)

// Options select the bus style and which artifacts are produced.
type Options struct {
	// SplitBus replaces the bidirectional Cfg port with CfgRd/CfgWr.
	SplitBus bool
	// Bypass adds the bypass core and wrapper modules.
	Bypass bool
}

// Artifact is one generated file.
type Artifact struct {
	Name    string
	Content []byte
}

// Segment module names expected by the generated instantiations.
const (
	ReadSegment  = "ReadSegment"
	WriteSegment = "WriteSegment"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("verilog").Funcs(template.FuncMap{
		"echo":       echo,
		"section":    section,
		"endSection": endSection,
		"last":       func(i, n int) bool { return i == n-1 },
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

// FileNames returns the artifact names for a chain called name.
func FileNames(name string, opts Options) []string {
	names := []string{name + ".v", name + "_defines.v"}
	if opts.Bypass {
		names = append(names, name+"_bypass_core.v", name+"_bypass.v")
	}
	return names
}

// Render produces every artifact selected by opts, in FileNames order.
func Render(c *layout.Chain, opts Options) ([]Artifact, error) {
	v := newView(c, opts)
	tmpls := []string{"module.v.tmpl", "defines.v.tmpl"}
	if opts.Bypass {
		tmpls = append(tmpls, "bypass_core.v.tmpl", "bypass.v.tmpl")
	}

	names := FileNames(c.Name, opts)
	arts := make([]Artifact, 0, len(tmpls))
	for i, name := range tmpls {
		out, err := execute(name, v)
		if err != nil {
			return nil, err
		}
		arts = append(arts, Artifact{Name: names[i], Content: out})
	}
	return arts, nil
}

// Module renders <name>.v.
func Module(c *layout.Chain, opts Options) ([]byte, error) {
	return execute("module.v.tmpl", newView(c, opts))
}

// Defines renders <name>_defines.v.
func Defines(c *layout.Chain) ([]byte, error) {
	return execute("defines.v.tmpl", newView(c, Options{}))
}

// BypassCore renders <name>_bypass_core.v.
func BypassCore(c *layout.Chain, opts Options) ([]byte, error) {
	return execute("bypass_core.v.tmpl", newView(c, opts))
}

// Bypass renders <name>_bypass.v.
func Bypass(c *layout.Chain, opts Options) ([]byte, error) {
	return execute("bypass.v.tmpl", newView(c, opts))
}

func execute(name string, v *view) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return nil, fmt.Errorf("verilog: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

var rule = "//" + strings.Repeat("-", 80) + "\n"

func section(title string) string {
	return rule + "// " + title + "\n" + rule
}

func endSection() string {
	return rule
}

// echo reproduces the source document as a comment block.
func echo(doc *scan.Document) (string, error) {
	if doc == nil {
		return "", nil
	}
	data, err := scan.Marshal(doc)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(section(fmt.Sprintf("Scan chain %q YAML configuration file", doc.Name)))
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		b.WriteString("// " + line + "\n")
	}
	b.WriteString(endSection())
	b.WriteString("\n")
	return b.String(), nil
}
