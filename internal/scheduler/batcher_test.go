package scheduler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm/internal/book"
	"bookworm/internal/fingerprint"
	"bookworm/internal/provider"
)

func makeWork(n int, text string) []UnitWork {
	work := make([]UnitWork, n)
	for i := range work {
		unitText := fmt.Sprintf("%s %d", text, i)
		work[i] = UnitWork{
			Unit:        book.Unit{BookID: "b", ChapterIndex: 0, UnitIndex: i, Text: unitText},
			Fingerprint: fingerprint.Compute(unitText, "zh-CN", "openai", "m"),
		}
	}
	return work
}

func TestBuildBatches_UnitCeiling(t *testing.T) {
	work := makeWork(45, "paragraph")
	batches := buildBatches(work, provider.BatchLimits{MaxUnits: 20, MaxChars: 1 << 20})

	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Work, 20)
	assert.Len(t, batches[1].Work, 20)
	assert.Len(t, batches[2].Work, 5)
}

func TestBuildBatches_CharCeiling(t *testing.T) {
	long := strings.Repeat("x", 400)
	work := makeWork(10, long)
	batches := buildBatches(work, provider.BatchLimits{MaxUnits: 20, MaxChars: 1000})

	require.NotEmpty(t, batches)
	for _, b := range batches {
		assert.LessOrEqual(t, b.chars(), 1000)
	}
}

func TestBuildBatches_OversizedUnitTravelsAlone(t *testing.T) {
	huge := UnitWork{Unit: book.Unit{Text: strings.Repeat("y", 9000)}}
	small := UnitWork{Unit: book.Unit{Text: "small"}}
	batches := buildBatches([]UnitWork{small, huge, small}, provider.BatchLimits{MaxUnits: 20, MaxChars: 6000})

	require.Len(t, batches, 3)
	assert.Len(t, batches[1].Work, 1)
}

func TestBuildBatches_PreservesDocumentOrder(t *testing.T) {
	work := makeWork(30, "p")
	batches := buildBatches(work, provider.BatchLimits{MaxUnits: 7, MaxChars: 1 << 20})

	var flat []UnitWork
	for _, b := range batches {
		flat = append(flat, b.Work...)
	}
	require.Len(t, flat, len(work))
	for i := range work {
		assert.Equal(t, work[i].Unit.UnitIndex, flat[i].Unit.UnitIndex)
	}
}

func TestBuildBatches_Empty(t *testing.T) {
	assert.Empty(t, buildBatches(nil, provider.BatchLimits{MaxUnits: 20}))
}
