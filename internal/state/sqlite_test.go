package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore()
	require.NoError(t, s.Open(":memory:"))
	require.NoError(t, s.InitSchema())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_UpsertAndGetHash(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertComponent("hero", "components/hero.tsx", "aaa"))

	hash, ok, err := s.GetHash("hero")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "aaa", hash)

	require.NoError(t, s.UpsertComponent("hero", "components/hero.tsx", "bbb"))
	hash, ok, err = s.GetHash("hero")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bbb", hash, "upsert replaces the stored hash")
}

func TestSQLiteStore_GetHashMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetHash("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ListComponents(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertComponent("zeta", "components/zeta.tsx", "z"))
	require.NoError(t, s.UpsertComponent("alpha", "components/alpha.tsx", "a"))

	recs, err := s.ListComponents()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "alpha", recs[0].ID, "ordered by identifier")
	assert.Equal(t, "zeta", recs[1].ID)
	assert.Equal(t, "components/alpha.tsx", recs[0].Path)
	assert.False(t, recs[0].UpdatedAt.IsZero())
}

func TestSQLiteStore_DeleteComponentKeepsHistory(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertComponent("hero", "components/hero.tsx", "aaa"))
	require.NoError(t, s.RecordSave("hero", "aaa", 120, SaveModeFresh))
	require.NoError(t, s.DeleteComponent("hero"))

	_, ok, err := s.GetHash("hero")
	require.NoError(t, err)
	assert.False(t, ok)

	hist, err := s.History("hero", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1, "history survives component deletion")
}

func TestSQLiteStore_History(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordSave("hero", "h1", 100, SaveModeFresh))
	require.NoError(t, s.RecordSave("hero", "h2", 110, SaveModeMutation))
	require.NoError(t, s.RecordSave("hero", "h3", 115, SaveModePatch))
	require.NoError(t, s.RecordSave("other", "x1", 50, SaveModeFresh))

	hist, err := s.History("hero", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2, "limit caps the result")
	for _, rec := range hist {
		assert.Equal(t, "hero", rec.ComponentID)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	}

	hist, err = s.History("hero", 0)
	require.NoError(t, err)
	assert.Len(t, hist, 3, "non-positive limit falls back to the default")
}

func TestSQLiteStore_ConflictLifecycle(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordConflict("hero", "external-change"))
	require.NoError(t, s.RecordConflict("hero", "divergent-on-disk"))
	require.NoError(t, s.RecordConflict("other", "external-change"))

	open, err := s.OpenConflicts()
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Empty(t, open[0].Resolution)
	assert.Nil(t, open[0].ResolvedAt)

	require.NoError(t, s.MarkConflictResolved("hero", "keep_disk"))

	open, err = s.OpenConflicts()
	require.NoError(t, err)
	require.Len(t, open, 1, "resolving closes every open conflict for the component")
	assert.Equal(t, "other", open[0].ComponentID)
}

func TestSQLiteStore_InitSchemaRequiresOpen(t *testing.T) {
	s := NewSQLiteStore()
	require.Error(t, s.InitSchema())
}
