package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/viewsmith/viewsmith/pkg/generator"
	"github.com/viewsmith/viewsmith/pkg/model"
)

// NewNewCommand creates the new command.
func NewNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <component-id>",
		Short: "Create a new component file",
		Long: `Generate a fresh component file for the given identifier. Nested
identifiers create nested directories: "forms/login-form" becomes
components/forms/login-form.tsx declaring LoginForm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd, args[0])
		},
	}
	return cmd
}

func runNew(cmd *cobra.Command, id string) error {
	cfg := GetConfig(cmd.Context())

	path := filepath.Join(cfg.ComponentsDir, filepath.FromSlash(id)+cfg.Extension)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("component %s already exists at %s", id, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create component directory: %w", err)
	}

	text := generator.New().Fresh(model.New(id, path))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write component: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
