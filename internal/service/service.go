// Package service wires the library, translation engine, and job queue
// together and drives the periodic resume sweep.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"bookworm/internal/config"
	"bookworm/internal/engine"
	"bookworm/internal/jobs"
	"bookworm/internal/library"
	"bookworm/internal/persistence"
	"bookworm/internal/scheduler"
	"bookworm/pkg/log"
)

type Service struct {
	cfg   *config.Config
	store *persistence.Store
	lib   *library.Library
	eng   *engine.Engine
	queue *jobs.Queue
	cron  *cron.Cron

	mu       sync.RWMutex
	progress map[string]*engine.Progress
}

var sweepGroup singleflight.Group

func New(cfg *config.Config, store *persistence.Store, c *cron.Cron) *Service {
	eng := engine.New(store, scheduler.Config{
		MaxAttempts: cfg.Batch.RetryAttempts,
	})
	return &Service{
		cfg:      cfg,
		store:    store,
		lib:      library.New(store),
		eng:      eng,
		queue:    jobs.NewQueue(cfg.Translate.Workers, store),
		cron:     c,
		progress: make(map[string]*engine.Progress),
	}
}

func (s *Service) Library() *library.Library {
	return s.lib
}

// Start brings up the job workers and registers the resume sweep with the
// cron scheduler. Jobs interrupted by a previous crash are already rewound
// to pending by the queue and start running immediately.
func (s *Service) Start(ctx context.Context) error {
	s.queue.Start(s.execute)

	_, err := s.cron.AddFunc(s.cfg.Translate.CronExpr, func() {
		_, _, _ = sweepGroup.Do("resume-sweep", func() (any, error) {
			if err := s.resumeSweep(ctx); err != nil {
				log.Error("Resume sweep failed: %v", err)
			}
			return nil, nil
		})
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.queue.Stop()
}

// EnqueueTranslation queues one book for translation under the active
// provider configuration. Returns the job and whether it was newly queued;
// an equivalent in-flight job is returned as-is.
func (s *Service) EnqueueTranslation(ctx context.Context, bookID, source string) (*jobs.TranslationJob, bool, error) {
	if _, err := s.lib.Get(ctx, bookID); err != nil {
		return nil, false, err
	}
	prov, err := s.cfg.ActiveProvider()
	if err != nil {
		return nil, false, err
	}

	job, queued := s.queue.Enqueue(jobs.EnqueueRequest{
		Source: source,
		Payload: jobs.JobPayload{
			BookID:     bookID,
			TargetLang: s.cfg.Translate.TargetLanguage.String(),
			Provider:   prov.ID,
			Model:      prov.Model,
		},
	})
	return job, queued, nil
}

func (s *Service) Jobs() []*jobs.TranslationJob {
	return s.queue.List()
}

func (s *Service) Job(id string) (*jobs.TranslationJob, bool) {
	return s.queue.Get(id)
}

// Progress returns the live counters for a book translating under the
// active configuration, if any run has started this process lifetime.
func (s *Service) Progress(bookID string) (engine.Snapshot, bool) {
	prov, err := s.cfg.ActiveProvider()
	if err != nil {
		return engine.Snapshot{}, false
	}
	key := jobs.JobPayload{
		BookID:     bookID,
		TargetLang: s.cfg.Translate.TargetLanguage.String(),
		Provider:   prov.ID,
		Model:      prov.Model,
	}.DedupeKey()

	s.mu.RLock()
	prog, ok := s.progress[key]
	s.mu.RUnlock()
	if !ok {
		return engine.Snapshot{}, false
	}
	return prog.Snapshot(), true
}

// Export writes the bilingual text of a fully translated book to w.
func (s *Service) Export(ctx context.Context, bookID string, w io.Writer) error {
	src, err := s.lib.Source(ctx, bookID)
	if err != nil {
		return err
	}
	cfg, err := s.jobConfig(jobs.JobPayload{})
	if err != nil {
		return err
	}
	return s.eng.Export(ctx, src, cfg, w)
}

// Coverage reports how much of a book is cached under the active
// configuration.
func (s *Service) Coverage(ctx context.Context, bookID string) (persistence.Coverage, error) {
	prov, err := s.cfg.ActiveProvider()
	if err != nil {
		return persistence.Coverage{}, err
	}
	return s.store.BookCoverage(ctx, bookID, s.cfg.Translate.TargetLanguage.String(), prov.ID, prov.Model)
}

// ClearCache drops every cached translation and the unit mappings with
// them; the next run re-scans and re-pays for everything.
func (s *Service) ClearCache(ctx context.Context) (int64, error) {
	return s.store.ClearTranslationCache(ctx)
}

// TranslateBook runs one translation synchronously under the active
// configuration, bypassing the queue. Progress is pollable via Progress
// while the run is in flight.
func (s *Service) TranslateBook(ctx context.Context, bookID string) (engine.Result, error) {
	prov, err := s.cfg.ActiveProvider()
	if err != nil {
		return engine.Result{}, err
	}
	payload := jobs.JobPayload{
		BookID:     bookID,
		TargetLang: s.cfg.Translate.TargetLanguage.String(),
		Provider:   prov.ID,
		Model:      prov.Model,
	}
	cfg, err := s.jobConfig(payload)
	if err != nil {
		return engine.Result{}, err
	}
	src, err := s.lib.Source(ctx, bookID)
	if err != nil {
		return engine.Result{}, err
	}

	prog := engine.NewProgress()
	s.mu.Lock()
	s.progress[payload.DedupeKey()] = prog
	s.mu.Unlock()

	return s.eng.Translate(ctx, src, cfg, prog)
}

// execute runs one queued job through the engine.
func (s *Service) execute(ctx context.Context, job *jobs.TranslationJob) (jobs.Result, error) {
	cfg, err := s.jobConfig(job.Payload)
	if err != nil {
		return jobs.Result{}, err
	}

	src, err := s.lib.Source(ctx, job.Payload.BookID)
	if err != nil {
		return jobs.Result{}, err
	}

	prog := engine.NewProgress()
	s.mu.Lock()
	s.progress[job.DedupeKey] = prog
	s.mu.Unlock()

	start := time.Now()
	res, err := s.eng.Translate(ctx, src, cfg, prog)
	result := jobs.Result{
		TranslatedUnits: res.CachedUnits + res.TranslatedUnits,
		TotalUnits:      res.TotalUnits,
	}
	if err != nil {
		return result, err
	}

	log.Info("Job %s finished in %v: %d/%d units cached", job.ID, time.Since(start).Round(time.Second), result.TranslatedUnits, result.TotalUnits)
	return result, nil
}

// jobConfig assembles the engine configuration for a job payload. An empty
// payload falls back to the active provider.
func (s *Service) jobConfig(payload jobs.JobPayload) (engine.JobConfig, error) {
	name := payload.Provider
	if name == "" {
		name = s.cfg.Translate.Provider
	}
	prov, err := s.cfg.ProviderByName(name)
	if err != nil {
		return engine.JobConfig{}, err
	}
	if payload.Model != "" {
		prov.Model = payload.Model
	}
	targetLang := payload.TargetLang
	if targetLang == "" {
		targetLang = s.cfg.Translate.TargetLanguage.String()
	}
	return engine.JobConfig{Provider: prov, TargetLang: targetLang}, nil
}

// resumeSweep re-enqueues every book that was started but not finished
// under the active configuration. Books never translated are left alone;
// starting them is an explicit user action.
func (s *Service) resumeSweep(ctx context.Context) error {
	prov, err := s.cfg.ActiveProvider()
	if err != nil {
		return err
	}
	targetLang := s.cfg.Translate.TargetLanguage.String()

	books, err := s.lib.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	resumed := 0
	for _, b := range books {
		cov, err := s.store.BookCoverage(ctx, b.ID, targetLang, prov.ID, prov.Model)
		if err != nil {
			log.Error("Coverage lookup for book %s failed: %v", b.ID, err)
			continue
		}
		if cov.MappedUnits == 0 || cov.CachedUnits >= cov.MappedUnits {
			continue
		}
		if _, queued, err := s.EnqueueTranslation(ctx, b.ID, "resume-sweep"); err != nil {
			log.Error("Failed to resume book %s: %v", b.ID, err)
		} else if queued {
			resumed++
			log.Info("Resuming book %s (%d/%d units cached)", b.Title, cov.CachedUnits, cov.MappedUnits)
		}
	}
	if resumed > 0 {
		log.Info("Resume sweep queued %d book(s)", resumed)
	}
	return nil
}
