// Package scheduler turns an unbounded list of missing translation units
// into a bounded sequence of provider calls and reconciles the results into
// the cache. Batches are dispatched sequentially per book; transient failures
// retry with backoff, and a failed batch stays in the missing set for the
// next run instead of aborting the job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"bookworm/internal/fingerprint"
	"bookworm/internal/provider"
	"bookworm/pkg/log"
)

// CacheStore is the slice of the persistence layer the scheduler writes to.
type CacheStore interface {
	InsertTranslation(ctx context.Context, fp fingerprint.Fingerprint, text, providerID, modelID string) error
}

// Config carries the retry tunables. Zero values pick conservative defaults.
type Config struct {
	// MaxAttempts bounds tries per batch for RateLimited/Unavailable
	// failures. MalformedResponse always retries exactly once.
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit; BreakerCooldown is how long it stays open.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = time.Minute
	}
	return c
}

// Result summarizes one scheduling run.
type Result struct {
	Translated    int
	Failed        int
	FailedBatches int
}

type Scheduler struct {
	prov    provider.Provider
	store   CacheStore
	cfg     Config
	breaker *gobreaker.CircuitBreaker

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(prov provider.Provider, store CacheStore, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    prov.ID(),
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
	})
	return &Scheduler{
		prov:    prov,
		store:   store,
		cfg:     cfg,
		breaker: breaker,
		sleep:   sleepContext,
	}
}

// Run groups the missing units into batches and dispatches them in order.
// onProgress, if non-nil, receives the number of newly cached units after
// each reconciled batch. Run returns a non-nil error only for failures that
// must abort the whole job: credential errors, cache conflicts, storage
// errors, and context cancellation. Everything else is batch-local.
func (s *Scheduler) Run(ctx context.Context, targetLang string, missing []UnitWork, onProgress func(delta int)) (Result, error) {
	var res Result

	batches := buildBatches(missing, s.prov.Limits())
	log.Info("Scheduling %d units across %d batches via %s/%s", workUnits(missing), len(batches), s.prov.ID(), s.prov.Model())

	for i, batch := range batches {
		// Cancellation is cooperative between batches: an in-flight call
		// finishes or times out, cached results stay cached.
		if err := ctx.Err(); err != nil {
			res.Failed += remainingUnits(batches[i:])
			return res, err
		}

		translations, err := s.dispatch(ctx, batch, targetLang)
		if err != nil {
			if provider.IsKind(err, provider.KindAuth) {
				res.Failed += remainingUnits(batches[i:])
				return res, err
			}
			if ctx.Err() != nil {
				res.Failed += remainingUnits(batches[i:])
				return res, ctx.Err()
			}
			log.Warn("Batch %d/%d failed, units stay in missing set: %v", i+1, len(batches), err)
			res.Failed += workUnits(batch.Work)
			res.FailedBatches++
			continue
		}

		// Reconcile: every unit is durably cached before the progress
		// counter advances, so a crash loses at most this batch. On a
		// storage error the already-inserted prefix still counts as
		// translated; only the rest of the work is lost.
		for j, w := range batch.Work {
			if err := s.store.InsertTranslation(ctx, w.Fingerprint, translations[j], s.prov.ID(), s.prov.Model()); err != nil {
				done := workUnits(batch.Work[:j])
				res.Translated += done
				if onProgress != nil && done > 0 {
					onProgress(done)
				}
				res.Failed += workUnits(batch.Work[j:]) + remainingUnits(batches[i+1:])
				return res, fmt.Errorf("reconcile batch %d: %w", i+1, err)
			}
		}
		res.Translated += workUnits(batch.Work)
		if onProgress != nil {
			onProgress(workUnits(batch.Work))
		}
	}

	return res, nil
}

// dispatch runs one batch through the provider with the retry policy:
// transient failures back off exponentially up to MaxAttempts, a malformed
// response is retried exactly once, auth errors surface immediately.
func (s *Scheduler) dispatch(ctx context.Context, batch Batch, targetLang string) ([]string, error) {
	texts := batch.texts()

	attempt := 0
	malformedRetried := false
	for {
		attempt++

		raw, err := s.breaker.Execute(func() (interface{}, error) {
			return s.prov.TranslateBatch(ctx, texts, targetLang)
		})
		if err == nil {
			translations, ok := raw.([]string)
			if !ok || len(translations) != len(texts) {
				// The adapter already enforces the count contract;
				// this is a second line of defense.
				return nil, &provider.Error{
					Kind:     provider.KindMalformed,
					Provider: s.prov.ID(),
					Message:  "adapter returned wrong segment count",
				}
			}
			return translations, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &provider.Error{
				Kind:     provider.KindUnavailable,
				Provider: s.prov.ID(),
				Message:  "circuit breaker open",
				Cause:    err,
			}
		}

		kind, _ := provider.KindOf(err)
		switch kind {
		case provider.KindAuth:
			return nil, err
		case provider.KindMalformed:
			if malformedRetried {
				return nil, err
			}
			malformedRetried = true
			log.Warn("Malformed response from %s, retrying batch once: %v", s.prov.ID(), err)
			continue
		case provider.KindRateLimited, provider.KindUnavailable:
			if attempt >= s.cfg.MaxAttempts {
				return nil, err
			}
			delay := s.backoff(attempt)
			log.Warn("Transient failure from %s (attempt %d/%d), retrying in %s: %v",
				s.prov.ID(), attempt, s.cfg.MaxAttempts, delay, err)
			if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
				return nil, err
			}
		default:
			// Untyped errors are treated as transient.
			if attempt >= s.cfg.MaxAttempts {
				return nil, err
			}
			if sleepErr := s.sleep(ctx, s.backoff(attempt)); sleepErr != nil {
				return nil, err
			}
		}
	}
}

func (s *Scheduler) backoff(attempt int) time.Duration {
	delay := s.cfg.BackoffBase << (attempt - 1)
	if delay > s.cfg.BackoffMax {
		delay = s.cfg.BackoffMax
	}
	return delay
}

func workUnits(work []UnitWork) int {
	total := 0
	for _, w := range work {
		total += w.units()
	}
	return total
}

func remainingUnits(batches []Batch) int {
	total := 0
	for _, b := range batches {
		total += workUnits(b.Work)
	}
	return total
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
