package persistence

import (
	"context"
	"fmt"

	"bookworm/internal/jobs"
)

// The Store satisfies jobs.Store so the queue survives process restarts.

func (s *Store) LoadJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, dedupe_key, book_id, target_lang, provider, model,
		        status, error, translated_units, total_units, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		var item jobs.TranslationJob
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&item.Payload.BookID,
			&item.Payload.TargetLang,
			&item.Payload.Provider,
			&item.Payload.Model,
			&status,
			&item.Error,
			&item.TranslatedUnits,
			&item.TotalUnits,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) UpsertJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, source, dedupe_key, book_id, target_lang, provider, model,
			status, error, translated_units, total_units, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			dedupe_key=excluded.dedupe_key,
			book_id=excluded.book_id,
			target_lang=excluded.target_lang,
			provider=excluded.provider,
			model=excluded.model,
			status=excluded.status,
			error=excluded.error,
			translated_units=excluded.translated_units,
			total_units=excluded.total_units,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.DedupeKey,
		job.Payload.BookID,
		job.Payload.TargetLang,
		job.Payload.Provider,
		job.Payload.Model,
		string(job.Status),
		job.Error,
		job.TranslatedUnits,
		job.TotalUnits,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}
