package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoad_Missing(t *testing.T) {
	var d doc
	found, err := Load(filepath.Join(t.TempDir(), "nope.json"), &d)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, doc{}, d)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	require.NoError(t, Save(path, doc{Name: "a", Count: 2}))

	var got doc
	found, err := Load(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc{Name: "a", Count: 2}, got)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var d doc
	found, err := Load(path, &d)
	assert.True(t, found)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	require.NoError(t, Save(path, doc{Name: "first"}))
	require.NoError(t, Save(path, doc{Name: "second"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, Save(path, doc{Name: "kept"}))

	// Channels cannot be marshalled, so the write aborts before touching disk.
	err := Save(path, map[string]any{"bad": make(chan int)})
	require.Error(t, err)

	var got doc
	_, err = Load(path, &got)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Name)
}
