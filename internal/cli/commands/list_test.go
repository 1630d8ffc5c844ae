package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewsmith/viewsmith/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		ProjectRoot:   root,
		ComponentsDir: filepath.Join(root, "components"),
		StatePath:     filepath.Join(root, ".viewsmith", "state.db"),
	}
	cfg.ApplyDefaults()
	require.NoError(t, os.MkdirAll(cfg.ComponentsDir, 0o755))
	return cfg
}

func writeComponent(t *testing.T, cfg *config.Config, rel, src string) {
	t.Helper()
	path := filepath.Join(cfg.ComponentsDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestCollectComponents(t *testing.T) {
	cfg := testConfig(t)
	writeComponent(t, cfg, "hero.tsx",
		"export default function Hero({ ctx }) {\n  return (\n    <div>Hero</div>\n  );\n}\n")
	writeComponent(t, cfg, filepath.Join("cards", "stat.tsx"),
		"export default async function Stat({ ctx }) {\n"+
			"  const rows = await sql`SELECT 1`;\n"+
			"  return (\n    <div>{rows}</div>\n  );\n}\n")
	writeComponent(t, cfg, "notes.md", "not a component")

	rows, err := collectComponents(cfg, newParser(cfg))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "cards/stat", rows[0].ID, "sorted by identifier")
	assert.Equal(t, "Stat", rows[0].Name)
	assert.Equal(t, 1, rows[0].Queries)
	assert.Equal(t, "hero", rows[1].ID)
	assert.Zero(t, rows[1].Errors)
}

func TestCollectComponents_MissingDirIsEmpty(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.RemoveAll(cfg.ComponentsDir))

	rows, err := collectComponents(cfg, newParser(cfg))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRenderComponentTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderComponentTable(&buf, []componentRow{
		{ID: "hero", Name: "Hero", Props: 2, Queries: 1},
	}))
	out := buf.String()
	assert.Contains(t, out, "hero")
	assert.Contains(t, out, "Hero")
	assert.Contains(t, out, "(1 components)")

	buf.Reset()
	require.NoError(t, renderComponentTable(&buf, nil))
	assert.Contains(t, buf.String(), "(no components)")
}
