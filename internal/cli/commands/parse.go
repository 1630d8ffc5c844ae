package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viewsmith/viewsmith/pkg/model"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <component-or-file>",
		Short: "Parse a component and print its model",
		Long: `Parse one component file into the canonical model and print it as JSON.
The argument is a component identifier relative to the components
directory, or a direct file path. Parse diagnostics go to stderr; a
model is printed even when the file has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0])
		},
	}
	return cmd
}

func runParse(cmd *cobra.Command, arg string) error {
	cfg := GetConfig(cmd.Context())

	path := arg
	if _, err := os.Stat(path); err != nil {
		// Treat the argument as a component identifier.
		candidate := filepath.Join(cfg.ComponentsDir, filepath.FromSlash(strings.TrimSuffix(arg, cfg.Extension))+cfg.Extension)
		if _, err := os.Stat(candidate); err != nil {
			return fmt.Errorf("component not found: %s", arg)
		}
		path = candidate
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	m := newParser(cfg).Parse(path, string(data))
	m.ID = model.IDFromPath(cfg.ComponentsDir, path)

	for _, pe := range m.ParseErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, pe)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
