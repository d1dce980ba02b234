package main

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// rcConfig is the optional .goawkrc.toml project config (SPEC_FULL.md
// §1a): default flag values applied when the CLI invocation omits them.
// Explicit flags always win over the config file.
type rcConfig struct {
	FieldSeparator string   `toml:"field_separator"`
	InputMode      string   `toml:"input_mode"`
	OutputMode     string   `toml:"output_mode"`
	Assign         []string `toml:"assign"`
}

// loadRCConfig reads path (or ./.goawkrc.toml if path is empty and that
// file exists); a missing default file is not an error, but a missing
// explicitly-named one is.
func loadRCConfig(path string) (*rcConfig, error) {
	explicit := path != ""
	if path == "" {
		path = ".goawkrc.toml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &rcConfig{}, nil
		}
		return nil, fmt.Errorf("goawk: %w", err)
	}
	var cfg rcConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("goawk: %s: %w", path, err)
	}
	return &cfg, nil
}

// applyDefaults fills in any flag the user left at its zero value with
// the config file's value; flags explicitly set on the command line are
// never overwritten.
func (c *rcConfig) applyDefaults(flags *cliFlags) {
	if flags.fieldSep == "" {
		flags.fieldSep = c.FieldSeparator
	}
	if flags.inputMode == "" {
		flags.inputMode = c.InputMode
	}
	if flags.outputMode == "" {
		flags.outputMode = c.OutputMode
	}
	if len(flags.assigns) == 0 {
		flags.assigns = c.Assign
	}
}
