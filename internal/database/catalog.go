package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/domain"
)

// rows per INSERT statement
const insertBatch = 200

// CatalogRepo implements domain.CatalogRepository on the catalog table
type CatalogRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewCatalogRepo(log zerolog.Logger, db *DB) domain.CatalogRepository {
	return &CatalogRepo{
		log: log.With().Str("repo", "catalog").Logger(),
		db:  db,
	}
}

func (r *CatalogRepo) Load(ctx context.Context) ([]domain.CatalogEntry, error) {
	queryBuilder := r.db.squirrel.
		Select("url", "title", "cover_url").
		From("catalog").
		OrderBy("position ASC")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Load")

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	entries := []domain.CatalogEntry{}
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.URL, &e.Title, &e.CoverURL); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	if len(entries) == 0 {
		return nil, domain.ErrCatalogNotFound
	}

	return entries, nil
}

// Save replaces the table content with entries in one transaction.
func (r *CatalogRepo) Save(ctx context.Context, entries []domain.CatalogEntry) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := r.db.squirrel.Delete("catalog").ToSql()
	if err != nil {
		return errors.Wrap(err, "error building delete query")
	}

	r.log.Trace().Str("query", query).Msg("Save")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing delete query")
	}

	for start := 0; start < len(entries); start += insertBatch {
		end := min(start+insertBatch, len(entries))

		queryBuilder := r.db.squirrel.
			Replace("catalog").
			Columns("url", "title", "cover_url", "position")
		for i, e := range entries[start:end] {
			queryBuilder = queryBuilder.Values(e.URL, e.Title, e.CoverURL, start+i)
		}

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Int("rows", end-start).Msg("Save")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "error executing query")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing transaction")
	}

	r.log.Debug().Int("count", len(entries)).Msg("stored catalog")
	return nil
}
