package generate

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/OpenTraceLab/scangen/pkg/schema"
	"github.com/OpenTraceLab/scangen/pkg/verilog"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options controls a generation run.
type Options struct {
	// Output shape
	SplitBus bool   // CfgRd/CfgWr instead of an inout Cfg bus
	Bypass   bool   // also emit the bypass core and wrapper
	Prefix   string // replaces the document prefix when set

	OutDir     string // where artifacts are written (default: ".")
	SchemaHome string // schema override root (default: $SCANGEN_HOME)

	Logger *slog.Logger // nil discards
}

// DefaultOptions returns Options that write the single-bus artifacts to the
// current directory.
func DefaultOptions() *Options {
	return &Options{
		OutDir:     ".",
		SchemaHome: os.Getenv(schema.HomeEnv),
		Logger:     slog.New(slog.DiscardHandler),
	}
}

// Validate fills in defaults and rejects a prefix that is not a Verilog
// identifier.
func (o *Options) Validate() error {
	if o.OutDir == "" {
		o.OutDir = "."
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Prefix != "" && !identRegexp.MatchString(o.Prefix) {
		return fmt.Errorf("generate: prefix %q is not an identifier", o.Prefix)
	}
	return nil
}

func (o *Options) render() verilog.Options {
	return verilog.Options{SplitBus: o.SplitBus, Bypass: o.Bypass}
}
