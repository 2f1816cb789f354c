package jobs

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	// StatusPartial means some units failed this run but remain in the
	// missing set; re-enqueueing the same book resumes them.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// JobPayload pins one book-translation job to an explicit configuration.
// Jobs against different providers or languages never share state.
type JobPayload struct {
	BookID     string `json:"book_id"`
	TargetLang string `json:"target_lang"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

// DedupeKey identifies the unit of work a job covers; enqueueing the same
// book/config twice while one is in flight returns the existing job.
func (p JobPayload) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", p.BookID, p.TargetLang, p.Provider, p.Model)
}

type EnqueueRequest struct {
	Source  string
	Payload JobPayload
}

type TranslationJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	// Unit counters from the last completed run.
	TranslatedUnits int       `json:"translated_units"`
	TotalUnits      int       `json:"total_units"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Result is what an executor reports back for a finished run.
type Result struct {
	TranslatedUnits int
	TotalUnits      int
}

// Complete reports whether every unit in scope ended up translated.
func (r Result) Complete() bool {
	return r.TranslatedUnits >= r.TotalUnits
}
