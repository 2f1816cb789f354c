package engine

import "sync"

// State is the lifecycle of one book-translation job.
type State string

const (
	StateIdle              State = "idle"
	StateScanning          State = "scanning"
	StateTranslating       State = "translating"
	StateComplete          State = "complete"
	// StatePartiallyComplete is not an error state: re-running the same job
	// re-scans and submits only the still-missing units.
	StatePartiallyComplete State = "partially_complete"
	StateFailed            State = "failed"
)

// Progress is the pollable counters for a running job. The engine updates
// it; any caller (CLI, UI, export gate) reads snapshots. No callbacks.
type Progress struct {
	mu         sync.Mutex
	state      State
	total      int
	cached     int
	translated int
	failed     int
}

// Snapshot is an immutable view of a Progress at one instant.
type Snapshot struct {
	State State
	// TotalUnits counts translatable (non-empty) units in scope.
	TotalUnits int
	// CachedUnits were already translated before this run started.
	CachedUnits int
	// TranslatedUnits were newly cached by this run.
	TranslatedUnits int
	// FailedUnits stay in the missing set for the next run.
	FailedUnits int
}

// Done is how many units currently have a cache entry.
func (s Snapshot) Done() int {
	return s.CachedUnits + s.TranslatedUnits
}

// Remaining is how many units still lack a cache entry.
func (s Snapshot) Remaining() int {
	return s.TotalUnits - s.Done()
}

func NewProgress() *Progress {
	return &Progress{state: StateIdle}
}

func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		State:           p.state,
		TotalUnits:      p.total,
		CachedUnits:     p.cached,
		TranslatedUnits: p.translated,
		FailedUnits:     p.failed,
	}
}

func (p *Progress) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

func (p *Progress) setScan(total, cached int) {
	p.mu.Lock()
	p.total = total
	p.cached = cached
	p.translated = 0
	p.failed = 0
	p.mu.Unlock()
}

func (p *Progress) addTranslated(delta int) {
	p.mu.Lock()
	p.translated += delta
	p.mu.Unlock()
}

func (p *Progress) setFailed(failed int) {
	p.mu.Lock()
	p.failed = failed
	p.mu.Unlock()
}
