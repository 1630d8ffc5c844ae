// Package cli provides the command-line interface for viewsmith.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/viewsmith/viewsmith/internal/cli/commands"
	"github.com/viewsmith/viewsmith/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "viewsmith",
		Short: "Viewsmith - Visual Component Sync Engine",
		Long: `Viewsmith keeps a visual editing surface and component source files
consistent in both directions. It parses component files into a canonical
model, writes visual edits back as minimal text mutations, and watches the
filesystem for changes made in other editors.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./viewsmith.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "Path to the project root")
	rootCmd.PersistentFlags().String("components-dir", "", "Path to components directory")
	rootCmd.PersistentFlags().String("extension", "", "Component file extension")
	rootCmd.PersistentFlags().Int("debounce-ms", 0, "Quiet period before pending edits flush, in milliseconds")
	rootCmd.PersistentFlags().String("state-path", "", "Path to state database")
	rootCmd.PersistentFlags().IntP("port", "p", 0, "API server port")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewNewCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
