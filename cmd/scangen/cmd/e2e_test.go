package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const chipYAML = `name: chip_cfg
prefix: prefix
parameters:
  N: 4
cells:
  - name: ctrl
    R/W: W
    width: N
    mult: 1
  - name: status
    R/W: R
    width: 2
    mult: 3
`

const legacyText = `$param{"N"} = 4;
Name = chip_cfg
ctrl W $param{"N"} 1
status R 2 3
`

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	// Reset flags to prevent accumulation between tests
	verbose = false
	splitRW = false
	prefix = ""
	bypass = false
	translate = false
	outDir = "."
	layoutPrefix = ""

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestCommandsE2E(t *testing.T) {
	t.Setenv("SCANGEN_HOME", t.TempDir())

	src := t.TempDir()
	config := filepath.Join(src, "chip.yml")
	if err := os.WriteFile(config, []byte(chipYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	legacy := filepath.Join(src, "chip.scan")
	if err := os.WriteFile(legacy, []byte(legacyText), 0o644); err != nil {
		t.Fatalf("failed to write legacy file: %v", err)
	}

	tests := []struct {
		name        string
		args        func(out string) []string
		wantErr     bool
		wantContain []string
		wantFiles   []string
	}{
		{
			name: "generate",
			args: func(out string) []string { return []string{"generate", "-o", out, config} },
			wantContain: []string{
				"Generated 1 document(s)",
			},
			wantFiles: []string{"chip_cfg.v", "chip_cfg_defines.v"},
		},
		{
			name: "generate split bypass",
			args: func(out string) []string { return []string{"generate", "-s", "-b", "-o", out, config} },
			wantFiles: []string{"chip_cfg.v", "chip_cfg_bypass.v", "chip_cfg_bypass_core.v", "chip_cfg_defines.v"},
		},
		{
			name: "translate",
			args: func(out string) []string { return []string{"generate", "--translate", "-o", out, legacy} },
			wantContain: []string{
				"Translated",
				"chip_cfg.yml",
			},
			wantFiles: []string{"chip_cfg.yml"},
		},
		{
			name:    "translate with generation flags",
			args:    func(out string) []string { return []string{"generate", "-t", "-b", "-o", out, legacy} },
			wantErr: true,
		},
		{
			name:    "generate missing file",
			args:    func(out string) []string { return []string{"generate", "-o", out, filepath.Join(src, "nope.yml")} },
			wantErr: true,
		},
		{
			name:    "generate bad prefix",
			args:    func(out string) []string { return []string{"generate", "-p", "9x", "-o", out, config} },
			wantErr: true,
		},
		{
			name: "layout",
			args: func(string) []string { return []string{"layout", config} },
			wantContain: []string{
				"Scan Chain Layout",
				"chip_cfg",
				"10 bits",
				"prefix_ctrl",
				"[3:0]",
				"[9:4]",
				"N                    = 4",
				"prefix_ctrl_to_prefix_status",
			},
		},
		{
			name: "layout verbose with prefix",
			args: func(string) []string { return []string{"layout", "-v", "-p", "cc", config} },
			wantContain: []string{
				"cc_status",
				"[2] 9:8",
				"cc_ctrl_to_cc_status",
			},
		},
		{
			name: "encode",
			args: func(string) []string { return []string{"encode", config, "ctrl=0x5", "status[2]=3"} },
			wantContain: []string{
				"Stream: 1100000101",
				"Config: 0000000101 (MSB first)",
			},
		},
		{
			name:    "encode unknown cell",
			args:    func(string) []string { return []string{"encode", config, "nope=1"} },
			wantErr: true,
		},
		{
			name:    "encode value too wide",
			args:    func(string) []string { return []string{"encode", config, "ctrl=0x10"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			output, err := run(t, tt.args(out)...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				if n := len(files(t, out)); n != 0 {
					t.Errorf("failed command wrote %d file(s)", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot:\n%s", want, output)
				}
			}
			if tt.wantFiles != nil {
				got := files(t, out)
				if strings.Join(got, ",") != strings.Join(tt.wantFiles, ",") {
					t.Errorf("files = %v, want %v", got, tt.wantFiles)
				}
			}
		})
	}
}
