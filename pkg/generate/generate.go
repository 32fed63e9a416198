// Package generate runs the whole pipeline for scan-chain documents: load,
// schema validation, layout, rendering and the staged write of artifacts.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/scangen/pkg/layout"
	"github.com/OpenTraceLab/scangen/pkg/legacy"
	"github.com/OpenTraceLab/scangen/pkg/scan"
	"github.com/OpenTraceLab/scangen/pkg/schema"
	"github.com/OpenTraceLab/scangen/pkg/verilog"
)

// Generator turns documents into Verilog with a fixed set of Options.
type Generator struct {
	opts      *Options
	validator *schema.Validator
}

// New validates opts and compiles the schema. A nil opts means
// DefaultOptions.
func New(opts *Options) (*Generator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	v, err := schema.NewFromHome(opts.SchemaHome)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return &Generator{opts: opts, validator: v}, nil
}

// Load reads the document at path and checks it against the schema before
// decoding it.
func (g *Generator) Load(path string) (*scan.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if err := g.validator.ValidateYAML(path, data); err != nil {
		return nil, err
	}
	doc, err := scan.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	g.opts.Logger.Debug("document loaded", "path", path, "name", doc.Name, "cells", len(doc.Cells))
	return doc, nil
}

// ErrDuplicateChain reports two inputs of one run that name the same chain
// and would therefore write the same artifacts.
var ErrDuplicateChain = errors.New("duplicate chain name")

// Layout loads path, applies the prefix override and resolves the chain.
// The chain's Source stays the document as authored.
func (g *Generator) Layout(path string) (*layout.Chain, error) {
	doc, err := g.Load(path)
	if err != nil {
		return nil, err
	}
	chain, err := layout.ResolvePrefix(doc, g.opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	g.opts.Logger.Debug("chain resolved", "name", chain.Name, "prefix", chain.Prefix, "length", chain.TotalLength)
	return chain, nil
}

// Generate renders every artifact for path. Nothing is written.
func (g *Generator) Generate(path string) ([]verilog.Artifact, error) {
	chain, err := g.Layout(path)
	if err != nil {
		return nil, err
	}
	return g.render(path, chain)
}

func (g *Generator) render(path string, chain *layout.Chain) ([]verilog.Artifact, error) {
	arts, err := verilog.Render(chain, g.opts.render())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return arts, nil
}

// Run generates and writes every document. All documents are laid out in
// parallel first; nothing is written unless every one resolves and no two
// share a chain name. Each document is then written completely or not at all.
func (g *Generator) Run(ctx context.Context, paths ...string) error {
	chains := make([]*layout.Chain, len(paths))
	var resolve errgroup.Group
	for i, path := range paths {
		resolve.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chain, err := g.Layout(path)
			chains[i] = chain
			return err
		})
	}
	if err := resolve.Wait(); err != nil {
		return err
	}

	owners := make(map[string]string, len(chains))
	for i, chain := range chains {
		if prev, ok := owners[chain.Name]; ok {
			return fmt.Errorf("generate: %s and %s: %w %q", prev, paths[i], ErrDuplicateChain, chain.Name)
		}
		owners[chain.Name] = paths[i]
	}

	eg, ctx := errgroup.WithContext(ctx)
	for i, chain := range chains {
		path := paths[i]
		eg.Go(func() error {
			arts, err := g.render(path, chain)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := WriteArtifacts(g.opts.OutDir, arts); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for _, a := range arts {
				g.opts.Logger.Info("wrote", "file", filepath.Join(g.opts.OutDir, a.Name), "source", path)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Translate converts the legacy file at path and writes <name>.yml into
// outDir. It returns the written path.
func Translate(path, outDir string) (string, error) {
	doc, err := legacy.TranslateFile(path)
	if err != nil {
		return "", err
	}
	if doc.Name == "" {
		return "", fmt.Errorf("generate: %s: no Name line", path)
	}
	data, err := scan.Marshal(doc)
	if err != nil {
		return "", err
	}
	name := doc.Name + ".yml"
	if err := WriteArtifacts(outDir, []verilog.Artifact{{Name: name, Content: data}}); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return filepath.Join(outDir, name), nil
}
