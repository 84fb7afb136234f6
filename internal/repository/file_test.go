package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/vinime/internal/domain"
)

func TestFileRepository_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "anime_catalog.json")
	repo := NewFileRepository(zerolog.Nop(), path)

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrCatalogNotFound)

	entries := []domain.CatalogEntry{
		{Title: "Naruto", URL: "https://otakudesu.cloud/anime/naruto/", CoverURL: "https://otakudesu.cloud/n.jpg"},
		{Title: "Bleach", URL: "https://otakudesu.cloud/anime/bleach/"},
	}
	require.NoError(t, repo.Save(context.Background(), entries))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"cover": ""`)
	assert.Contains(t, string(raw), `"title": "Naruto"`)

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	t.Run("rewrites whole file", func(t *testing.T) {
		require.NoError(t, repo.Save(context.Background(), entries[1:]))
		loaded, err := repo.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entries[1:], loaded)

		files, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, files, 1, "temporary files are cleaned up")
	})
}

func TestFileRepository_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anime_catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":`), 0o644))

	_, err := NewFileRepository(zerolog.Nop(), path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCatalogNotFound)
}

func TestFileRepository_Directory(t *testing.T) {
	_, err := NewFileRepository(zerolog.Nop(), t.TempDir()).Load(context.Background())
	assert.ErrorContains(t, err, "is a directory")
}

func TestFileRepository_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anime_catalog.json")
	repo := NewFileRepository(zerolog.Nop(), path)

	require.NoError(t, repo.Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}
