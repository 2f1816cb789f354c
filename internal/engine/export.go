package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"bookworm/internal/book"
	"bookworm/internal/fingerprint"
	"bookworm/internal/persistence"
)

// ErrIncompleteTranslation is matched with errors.Is against export
// failures caused by missing cache entries.
var ErrIncompleteTranslation = errors.New("incomplete translation")

// IncompleteTranslationError reports how much of the book is missing.
// User-actionable: run translate again, then re-export.
type IncompleteTranslationError struct {
	Missing int
	Total   int
}

func (e *IncompleteTranslationError) Error() string {
	return fmt.Sprintf("incomplete translation: %d of %d units missing from cache", e.Missing, e.Total)
}

func (e *IncompleteTranslationError) Is(target error) bool {
	return target == ErrIncompleteTranslation
}

// Export writes a bilingual rendition of the book: one block per unit,
// source paragraph followed by its cached translation, in document order.
// The export consumes only the cache and the unit source; it performs no
// provider calls and fails if any unit in scope lacks a cache entry, even
// though callers are expected to gate on IsFullyTranslated first.
func (e *Engine) Export(ctx context.Context, src book.UnitSource, cfg JobConfig, w io.Writer) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	scanned, err := e.scan(ctx, src, cfg)
	if err != nil {
		return err
	}

	missing, _, err := e.missingSet(ctx, scanned)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &IncompleteTranslationError{Missing: len(missing), Total: len(scanned)}
	}

	cached, err := e.bulkEntries(ctx, scanned)
	if err != nil {
		return err
	}

	buf := bufio.NewWriter(w)
	for _, su := range scanned {
		entry, ok := cached[su.fp]
		if !ok {
			// Raced with a cache clear between the check and the read.
			return &IncompleteTranslationError{Missing: 1, Total: len(scanned)}
		}
		if _, err := fmt.Fprintf(buf, "%s\n%s\n\n", strings.TrimSpace(su.unit.Text), entry.TranslatedText); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	}
	return buf.Flush()
}

func (e *Engine) bulkEntries(ctx context.Context, scanned []scanUnit) (map[fingerprint.Fingerprint]persistence.CacheEntry, error) {
	fps := make([]fingerprint.Fingerprint, len(scanned))
	for i, su := range scanned {
		fps[i] = su.fp
	}
	return e.store.BulkLookupTranslations(ctx, fps)
}
