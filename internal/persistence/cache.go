package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookworm/internal/fingerprint"
)

// bulkChunkSize bounds the number of placeholders per IN query.
const bulkChunkSize = 500

// LookupTranslation returns the cache entry for a fingerprint. Absence is
// not an error.
func (s *Store) LookupTranslation(ctx context.Context, fp fingerprint.Fingerprint) (CacheEntry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT fingerprint, translated_text, provider, model, created_at
		 FROM translation_cache
		 WHERE fingerprint = ?`,
		string(fp),
	)
	var entry CacheEntry
	var rawFP string
	if err := row.Scan(&rawFP, &entry.TranslatedText, &entry.Provider, &entry.Model, &entry.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return CacheEntry{}, false, nil
		}
		return CacheEntry{}, false, err
	}
	entry.Fingerprint = fingerprint.Fingerprint(rawFP)
	return entry, true, nil
}

// InsertTranslation writes a cache entry exactly once. Re-inserting the same
// text under the same fingerprint is an idempotent no-op; inserting different
// text returns ErrConflict and leaves the original untouched.
func (s *Store) InsertTranslation(ctx context.Context, fp fingerprint.Fingerprint, text, providerID, modelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT translated_text FROM translation_cache WHERE fingerprint = ?`,
		string(fp),
	).Scan(&existing)
	switch {
	case err == nil:
		_ = tx.Rollback()
		if existing == text {
			return nil
		}
		return fmt.Errorf("%w: fingerprint %s", ErrConflict, fp)
	case err != sql.ErrNoRows:
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO translation_cache (fingerprint, translated_text, provider, model, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(fp),
		text,
		providerID,
		modelID,
		time.Now().UTC(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// BulkLookupTranslations resolves many fingerprints in chunked IN queries so
// computing a book's miss set is not N round trips.
func (s *Store) BulkLookupTranslations(ctx context.Context, fps []fingerprint.Fingerprint) (map[fingerprint.Fingerprint]CacheEntry, error) {
	ret := make(map[fingerprint.Fingerprint]CacheEntry, len(fps))

	for start := 0; start < len(fps); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(fps))
		chunk := fps[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(chunk))
		for i, fp := range chunk {
			args[i] = string(fp)
		}

		rows, err := s.db.QueryContext(
			ctx,
			`SELECT fingerprint, translated_text, provider, model, created_at
			 FROM translation_cache
			 WHERE fingerprint IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var entry CacheEntry
			var rawFP string
			if err := rows.Scan(&rawFP, &entry.TranslatedText, &entry.Provider, &entry.Model, &entry.CreatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			entry.Fingerprint = fingerprint.Fingerprint(rawFP)
			ret[entry.Fingerprint] = entry
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return ret, nil
}

// MapUnitFingerprints records the unit→fingerprint mapping for a scan, so
// later coverage queries never recompute hashes.
func (s *Store) MapUnitFingerprints(ctx context.Context, mappings []UnitFingerprint) error {
	if len(mappings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, m := range mappings {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO unit_fingerprints (
				book_id, chapter_index, unit_index, target_lang, provider, model, fingerprint, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(book_id, chapter_index, unit_index, target_lang, provider, model) DO UPDATE SET
				fingerprint=excluded.fingerprint,
				updated_at=excluded.updated_at`,
			m.BookID,
			m.ChapterIndex,
			m.UnitIndex,
			m.TargetLang,
			m.Provider,
			m.Model,
			string(m.Fingerprint),
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// BookCoverage counts mapped and cached units for a book under one
// configuration using the stored mapping table.
func (s *Store) BookCoverage(ctx context.Context, bookID, targetLang, providerID, modelID string) (Coverage, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COUNT(tc.fingerprint)
		 FROM unit_fingerprints uf
		 LEFT JOIN translation_cache tc ON tc.fingerprint = uf.fingerprint
		 WHERE uf.book_id = ? AND uf.target_lang = ? AND uf.provider = ? AND uf.model = ?`,
		bookID,
		targetLang,
		providerID,
		modelID,
	)
	var cov Coverage
	if err := row.Scan(&cov.MappedUnits, &cov.CachedUnits); err != nil {
		return Coverage{}, err
	}
	return cov, nil
}

// ClearTranslationCache drops every cached translation. Exposed for the
// explicit cache-clear operation only; nothing in the engine calls it.
func (s *Store) ClearTranslationCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache`)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM unit_fingerprints`); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
