package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smfdb/internal/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fields := []*FieldMeta{
		{Name: "id", Type: types.IntType, Length: 4, Nullable: false, Visible: true},
		{Name: "name", Type: types.CharType, Length: 32, Nullable: true, Visible: true},
	}
	tm := NewTableMeta(1, "users", fields, RowFormat)
	path := MetaPath(dir, "users")

	require.NoError(t, Save(path, tm))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, tm.Name, loaded.Name)
	assert.Equal(t, tm.RecordSize, loaded.RecordSize)
	require.Len(t, loaded.Fields, 2)
	assert.Equal(t, "name", loaded.Fields[1].Name)
	assert.Equal(t, types.CharType, loaded.Fields[1].Type)
}

func TestAddIndexPersists(t *testing.T) {
	dir := t.TempDir()
	fields := []*FieldMeta{{Name: "a", Type: types.IntType, Length: 4, Visible: true}}
	tm := NewTableMeta(1, "t", fields, RowFormat)
	path := MetaPath(dir, "t")
	require.NoError(t, Save(path, tm))

	require.NoError(t, AddIndex(path, tm, &IndexMeta{Name: "idx_a", FieldNames: []string{"a"}, IsUnique: true}))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Indexes, 1)
	assert.True(t, loaded.Indexes[0].IsUnique)

	err = AddIndex(path, tm, &IndexMeta{Name: "idx_a", FieldNames: []string{"a"}})
	assert.Error(t, err)
}

func TestMetaPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "foo.meta.json"), MetaPath("/data", "foo"))
}
