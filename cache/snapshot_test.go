package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloudwalk-rag/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NotFound(t *testing.T) {
	docs, err := Load(filepath.Join(t.TempDir(), "missing.json"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, docs)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docs.json")
	docs := []models.Document{
		{SourceURL: "https://www.cloudwalk.io", Text: strings.Repeat("a", 150), Meta: map[string]string{"title": "CloudWalk"}},
		{SourceURL: "https://www.cloudwalk.io/stub", Text: "cookies"},
	}

	require.NoError(t, Save(path, docs))
	assert.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, loaded, 2, "snapshot keeps unfiltered documents")
	assert.Equal(t, docs[0], loaded[0])
	assert.Equal(t, "cookies", loaded[1].Text)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_Schema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	raw := `{"version":1,"created_at":"2026-01-02T15:04:05Z","documents":[
		{"source_url":"https://example.com","text":"hello","metadata":{"language":"en"}}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	docs, err := Load(path)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "https://example.com", docs[0].SourceURL)
	assert.Equal(t, "en", docs[0].Meta["language"])
}

func TestLoad_NewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99,"documents":[]}`), 0o644))

	_, err := Load(path)

	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFilter(t *testing.T) {
	docs := []models.Document{
		{SourceURL: "short", Text: strings.Repeat("x", 50)},
		{SourceURL: "long", Text: strings.Repeat("x", 150)},
		{SourceURL: "exact", Text: strings.Repeat("x", 100)},
		{SourceURL: "padded", Text: "   " + strings.Repeat("x", 99) + "\n\n\n"},
		{SourceURL: "multibyte", Text: strings.Repeat("ç", 101)},
	}

	kept := Filter(docs, DefaultMinLength)

	var sources []string
	for _, d := range kept {
		sources = append(sources, d.SourceURL)
	}
	assert.Equal(t, []string{"long", "multibyte"}, sources)
}

func TestExists_Directory(t *testing.T) {
	assert.False(t, Exists(t.TempDir()))
}
