package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload(bookID string) JobPayload {
	return JobPayload{BookID: bookID, TargetLang: "zh-CN", Provider: "openai", Model: "gpt-4o-mini"}
}

func TestQueue_Enqueue_DeduplicatesSamePayload(t *testing.T) {
	q := NewQueue(2, nil)

	jobA, createdA := q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-1")})
	jobB, createdB := q.Enqueue(EnqueueRequest{Source: "resume-sweep", Payload: samplePayload("book-1")})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, jobA)
	require.NotNil(t, jobB)
	assert.Equal(t, jobA.ID, jobB.ID)
}

func TestQueue_Enqueue_DifferentConfigsAreSeparateJobs(t *testing.T) {
	q := NewQueue(2, nil)

	jobA, _ := q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-1")})

	other := samplePayload("book-1")
	other.Model = "gpt-4o"
	jobB, created := q.Enqueue(EnqueueRequest{Source: "manual", Payload: other})

	require.True(t, created)
	assert.NotEqual(t, jobA.ID, jobB.ID)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts int
	q.Start(func(_ context.Context, _ *TranslationJob) (Result, error) {
		attempts++
		if attempts == 1 {
			return Result{}, assert.AnError
		}
		return Result{TranslatedUnits: 5, TotalUnits: 5}, nil
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-1")})
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got.Status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	second, created := q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-1")})
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)

	require.Eventually(t, func() bool {
		got, ok := q.Get(second.ID)
		return ok && got.Status == StatusSuccess && got.TranslatedUnits == 5
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_PartialResultMarksPartial(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(func(_ context.Context, _ *TranslationJob) (Result, error) {
		return Result{TranslatedUnits: 7, TotalUnits: 10}, nil
	})
	defer q.Stop()

	job, created := q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-1")})
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusPartial && got.TranslatedUnits == 7 && got.TotalUnits == 10
	}, time.Second, 10*time.Millisecond)

	// A partial book may be enqueued again to resume.
	_, created = q.Enqueue(EnqueueRequest{Source: "resume-sweep", Payload: samplePayload("book-1")})
	assert.True(t, created)
}

// memJobStore is an in-memory jobs.Store for persistence tests.
type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*TranslationJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*TranslationJob)}
}

func (s *memJobStore) LoadJobs(context.Context) ([]*TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]*TranslationJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		tmp := *j
		ret = append(ret, &tmp)
	}
	return ret, nil
}

func (s *memJobStore) UpsertJob(_ context.Context, job *TranslationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := *job
	s.jobs[job.ID] = &tmp
	return nil
}

func (s *memJobStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func TestQueue_HydrateRewindsRunningJobs(t *testing.T) {
	store := newMemJobStore()
	now := time.Now()
	require.NoError(t, store.UpsertJob(context.Background(), &TranslationJob{
		ID:        "job-3",
		Source:    "manual",
		DedupeKey: samplePayload("book-1").DedupeKey(),
		Payload:   samplePayload("book-1"),
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	q := NewQueue(1, store)

	got, ok := q.Get("job-3")
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)

	// New IDs continue after the persisted counter.
	fresh, created := q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-2")})
	require.True(t, created)
	assert.Equal(t, "job-4", fresh.ID)
}

func TestQueue_HydratedJobRunsOnStart(t *testing.T) {
	store := newMemJobStore()
	now := time.Now()
	require.NoError(t, store.UpsertJob(context.Background(), &TranslationJob{
		ID:        "job-1",
		Payload:   samplePayload("book-1"),
		DedupeKey: samplePayload("book-1").DedupeKey(),
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	q := NewQueue(1, store)
	q.Start(func(_ context.Context, _ *TranslationJob) (Result, error) {
		return Result{TranslatedUnits: 3, TotalUnits: 3}, nil
	})
	defer q.Stop()

	require.Eventually(t, func() bool {
		got, ok := q.Get("job-1")
		return ok && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)

	// Terminal state reached the store too.
	persisted, err := store.LoadJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, StatusSuccess, persisted[0].Status)
}

func TestQueue_List_SortedByCreation(t *testing.T) {
	q := NewQueue(1, nil)

	q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-1")})
	q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-2")})
	q.Enqueue(EnqueueRequest{Source: "manual", Payload: samplePayload("book-3")})

	got := q.List()
	require.Len(t, got, 3)
	assert.Equal(t, "book-1", got[0].Payload.BookID)
	assert.Equal(t, "book-3", got[2].Payload.BookID)
}

func TestJobPayload_DedupeKey(t *testing.T) {
	a := samplePayload("book-1")
	b := samplePayload("book-1")
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())

	b.TargetLang = "ja"
	assert.NotEqual(t, a.DedupeKey(), b.DedupeKey())
}
