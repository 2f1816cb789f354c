// Package engine orchestrates book translation: it computes the missing-unit
// set against the cache, drives the batch scheduler over a provider adapter,
// and derives completion state purely from cache coverage.
package engine

import (
	"context"
	"fmt"
	"strings"

	"bookworm/internal/book"
	"bookworm/internal/fingerprint"
	"bookworm/internal/persistence"
	"bookworm/internal/provider"
	"bookworm/internal/scheduler"
	"bookworm/pkg/log"
)

// Store is the slice of the persistence layer the engine reads and the
// scheduler writes through.
type Store interface {
	scheduler.CacheStore
	LookupTranslation(ctx context.Context, fp fingerprint.Fingerprint) (persistence.CacheEntry, bool, error)
	BulkLookupTranslations(ctx context.Context, fps []fingerprint.Fingerprint) (map[fingerprint.Fingerprint]persistence.CacheEntry, error)
	MapUnitFingerprints(ctx context.Context, mappings []persistence.UnitFingerprint) error
}

// JobConfig pins one job to an explicit provider configuration. Nothing here
// is process-wide: concurrent jobs against different providers never
// interfere.
type JobConfig struct {
	Provider   provider.Config
	TargetLang string
}

func (c JobConfig) validate() error {
	if strings.TrimSpace(c.TargetLang) == "" {
		return fmt.Errorf("target language is required")
	}
	return c.Provider.Validate()
}

// Result summarizes one Translate invocation.
type Result struct {
	// TotalUnits counts translatable units (empty paragraphs are excluded).
	TotalUnits int
	// CachedUnits had entries before this run.
	CachedUnits int
	// TranslatedUnits were newly cached by this run.
	TranslatedUnits int
	// FailedUnits remain missing; re-running translates only these.
	FailedUnits int
}

// Complete reports whether every unit in scope now has a cache entry.
func (r Result) Complete() bool {
	return r.CachedUnits+r.TranslatedUnits >= r.TotalUnits
}

type Engine struct {
	store    Store
	schedCfg scheduler.Config

	// newScheduler is replaceable in tests.
	newScheduler func(prov provider.Provider) batchRunner
}

type batchRunner interface {
	Run(ctx context.Context, targetLang string, missing []scheduler.UnitWork, onProgress func(delta int)) (scheduler.Result, error)
}

func New(store Store, schedCfg scheduler.Config) *Engine {
	e := &Engine{store: store, schedCfg: schedCfg}
	e.newScheduler = func(prov provider.Provider) batchRunner {
		return scheduler.New(prov, store, schedCfg)
	}
	return e
}

// scanUnit pairs a unit with its fingerprint under one job configuration.
type scanUnit struct {
	unit book.Unit
	fp   fingerprint.Fingerprint
}

// scan walks the book's units, skipping empty ones, and computes the
// fingerprint of each under cfg. The mapping is persisted so coverage
// queries stay cheap.
func (e *Engine) scan(ctx context.Context, src book.UnitSource, cfg JobConfig) ([]scanUnit, error) {
	var scanned []scanUnit
	mappings := make([]persistence.UnitFingerprint, 0)

	for _, u := range book.Units(src) {
		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		fp := fingerprint.Compute(u.Text, cfg.TargetLang, cfg.Provider.ID, cfg.Provider.Model)
		scanned = append(scanned, scanUnit{unit: u, fp: fp})
		mappings = append(mappings, persistence.UnitFingerprint{
			BookID:       u.BookID,
			ChapterIndex: u.ChapterIndex,
			UnitIndex:    u.UnitIndex,
			TargetLang:   cfg.TargetLang,
			Provider:     cfg.Provider.ID,
			Model:        cfg.Provider.Model,
			Fingerprint:  fp,
		})
	}

	if err := e.store.MapUnitFingerprints(ctx, mappings); err != nil {
		return nil, fmt.Errorf("persist unit fingerprints: %w", err)
	}
	return scanned, nil
}

// missingSet resolves which scanned units lack cache entries. Repeated
// paragraphs share a fingerprint: only the first occurrence enters the work
// list and later ones bump its Occurrences count, so a fingerprint is never
// dispatched or inserted twice in one run and every position resolves
// through the single cache entry.
func (e *Engine) missingSet(ctx context.Context, scanned []scanUnit) ([]scheduler.UnitWork, int, error) {
	fps := make([]fingerprint.Fingerprint, len(scanned))
	for i, su := range scanned {
		fps[i] = su.fp
	}
	cached, err := e.store.BulkLookupTranslations(ctx, fps)
	if err != nil {
		return nil, 0, fmt.Errorf("bulk cache lookup: %w", err)
	}

	var missing []scheduler.UnitWork
	seen := make(map[fingerprint.Fingerprint]int)
	missingUnits := 0
	for _, su := range scanned {
		if _, ok := cached[su.fp]; ok {
			continue
		}
		missingUnits++
		if i, ok := seen[su.fp]; ok {
			missing[i].Occurrences++
			continue
		}
		seen[su.fp] = len(missing)
		missing = append(missing, scheduler.UnitWork{Unit: su.unit, Fingerprint: su.fp, Occurrences: 1})
	}
	return missing, len(scanned) - missingUnits, nil
}

// Translate runs one job over the book: scan, compute the miss set, schedule
// the misses, reconcile. It is always safe and cheap to re-run; work already
// cached is never re-paid. The passed Progress is updated throughout and may
// be polled concurrently.
func (e *Engine) Translate(ctx context.Context, src book.UnitSource, cfg JobConfig, prog *Progress) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	if prog == nil {
		prog = NewProgress()
	}

	prog.setState(StateScanning)
	scanned, err := e.scan(ctx, src, cfg)
	if err != nil {
		prog.setState(StateFailed)
		return Result{}, err
	}

	missing, cachedCount, err := e.missingSet(ctx, scanned)
	if err != nil {
		prog.setState(StateFailed)
		return Result{}, err
	}

	res := Result{
		TotalUnits:  len(scanned),
		CachedUnits: cachedCount,
	}
	prog.setScan(len(scanned), cachedCount)

	if len(missing) == 0 {
		prog.setState(StateComplete)
		return res, nil
	}

	log.Info("Book %s: %d/%d units cached, translating %d via %s/%s",
		src.BookID(), cachedCount, len(scanned), len(scanned)-cachedCount, cfg.Provider.ID, cfg.Provider.Model)

	prov, err := provider.New(cfg.Provider)
	if err != nil {
		prog.setState(StateFailed)
		return res, err
	}

	prog.setState(StateTranslating)
	runRes, runErr := e.newScheduler(prov).Run(ctx, cfg.TargetLang, missing, prog.addTranslated)
	res.TranslatedUnits = runRes.Translated
	res.FailedUnits = runRes.Failed
	prog.setFailed(runRes.Failed)

	if runErr != nil {
		// Auth failures, cache conflicts, and cancellation abort the job;
		// whatever was reconciled before the abort stays cached.
		prog.setState(StateFailed)
		return res, runErr
	}

	if res.Complete() {
		prog.setState(StateComplete)
	} else {
		prog.setState(StatePartiallyComplete)
	}
	return res, nil
}

// IsFullyTranslated reports whether every translatable unit of the book has
// a cache entry under cfg. Derived purely from cache coverage; it gates the
// bilingual export.
func (e *Engine) IsFullyTranslated(ctx context.Context, src book.UnitSource, cfg JobConfig) (bool, error) {
	if err := cfg.validate(); err != nil {
		return false, err
	}
	scanned, err := e.scan(ctx, src, cfg)
	if err != nil {
		return false, err
	}
	missing, _, err := e.missingSet(ctx, scanned)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}
