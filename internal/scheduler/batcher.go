package scheduler

import (
	"bookworm/internal/book"
	"bookworm/internal/fingerprint"
	"bookworm/internal/provider"
)

// UnitWork is one missing text together with its precomputed cache key.
// A book may repeat a paragraph; all occurrences share a fingerprint, so a
// single representative is dispatched and Occurrences records how many
// source units its cache entry resolves. Zero means one.
type UnitWork struct {
	Unit        book.Unit
	Fingerprint fingerprint.Fingerprint
	Occurrences int
}

func (w UnitWork) units() int {
	if w.Occurrences > 1 {
		return w.Occurrences
	}
	return 1
}

// Batch is an ephemeral grouping of units destined for one provider call.
type Batch struct {
	Work []UnitWork
}

func (b Batch) texts() []string {
	texts := make([]string, len(b.Work))
	for i, w := range b.Work {
		texts[i] = w.Unit.Text
	}
	return texts
}

func (b Batch) chars() int {
	total := 0
	for _, w := range b.Work {
		total += len(w.Unit.Text)
	}
	return total
}

// buildBatches groups consecutive missing units, preserving document order
// for locality of context, until the unit-count or character ceiling binds.
// A single unit is never split, so an oversized unit travels alone.
func buildBatches(missing []UnitWork, limits provider.BatchLimits) []Batch {
	maxUnits := limits.MaxUnits
	if maxUnits <= 0 {
		maxUnits = 1
	}

	var batches []Batch
	var current Batch

	for _, w := range missing {
		if len(current.Work) > 0 {
			overUnits := len(current.Work) >= maxUnits
			overChars := limits.MaxChars > 0 && current.chars()+len(w.Unit.Text) > limits.MaxChars
			if overUnits || overChars {
				batches = append(batches, current)
				current = Batch{}
			}
		}
		current.Work = append(current.Work, w)
	}
	if len(current.Work) > 0 {
		batches = append(batches, current)
	}
	return batches
}
