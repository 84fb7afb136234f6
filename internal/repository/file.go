package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/domain"
)

// FileRepository keeps the catalog as a single JSON array on disk
type FileRepository struct {
	log  zerolog.Logger
	path string
}

func NewFileRepository(log zerolog.Logger, path string) *FileRepository {
	return &FileRepository{
		log:  log.With().Str("module", "repository").Str("backend", "json").Logger(),
		path: path,
	}
}

var _ domain.CatalogRepository = (*FileRepository)(nil)

// Load reads the catalog file. A missing file yields domain.ErrCatalogNotFound.
func (r *FileRepository) Load(ctx context.Context) ([]domain.CatalogEntry, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", r.path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", r.path)
	}

	body, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", r.path, err)
	}

	entries := []domain.CatalogEntry{}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json from %s: %w", r.path, err)
	}

	r.log.Debug().Str("path", r.path).Int("count", len(entries)).Msg("loaded catalog")
	return entries, nil
}

// Save rewrites the whole file. The new content is written to a temporary
// file in the same directory and renamed over the old one.
func (r *FileRepository) Save(ctx context.Context, entries []domain.CatalogEntry) error {
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}

	j, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(j); err != nil {
		f.Close()
		return fmt.Errorf("failed to write to file %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}

	r.log.Debug().Str("path", r.path).Int("count", len(entries)).Msg("stored catalog")
	return nil
}
