package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/viewsmith/viewsmith/internal/config"
	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/parser"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all components",
		Long: `List all component files below the components directory with their
declared name, property count, data queries and parse diagnostics.`,
		Example: `  # List all components
  viewsmith list

  # List components as JSON
  viewsmith list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("output")
			return runList(cmd, format)
		},
	}
	cmd.Flags().StringP("output", "o", "table", "Output format (table|json)")
	return cmd
}

// componentRow is one listed component.
type componentRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Props   int    `json:"props"`
	Queries int    `json:"queries"`
	Errors  int    `json:"errors"`
}

func runList(cmd *cobra.Command, format string) error {
	cfg := GetConfig(cmd.Context())
	p := newParser(cfg)

	rows, err := collectComponents(cfg, p)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return renderComponentTable(cmd.OutOrStdout(), rows)
}

func collectComponents(cfg *config.Config, p *parser.Parser) ([]componentRow, error) {
	var rows []componentRow
	err := filepath.WalkDir(cfg.ComponentsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == cfg.ComponentsDir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cfg.ComponentsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != cfg.Extension {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		m := p.Parse(path, string(data))
		rows = append(rows, componentRow{
			ID:      model.IDFromPath(cfg.ComponentsDir, path),
			Name:    m.Signature.Name,
			Path:    path,
			Props:   len(m.Signature.Props.Fields),
			Queries: len(m.Queries),
			Errors:  len(m.ParseErrors),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func renderComponentTable(w io.Writer, rows []componentRow) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(no components)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Props", "Queries", "Errors"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.Name, r.Props, r.Queries, r.Errors})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d components)\n", len(rows))
	return nil
}
