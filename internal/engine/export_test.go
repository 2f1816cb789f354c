package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm/internal/book"
	"bookworm/internal/fingerprint"
)

func TestEngine_Export_RejectsIncompleteBook(t *testing.T) {
	prov := &fakeProvider{}
	eng, store := newTestEngine(t, prov)
	ctx := context.Background()
	cfg := testJobConfig()

	src := book.NewSource("book-1", []book.Chapter{
		{Index: 0, Paragraphs: []string{"one", "two", "three"}},
	})

	// Cache two of three units by hand.
	for _, text := range []string{"one", "two"} {
		fp := fingerprint.Compute(text, cfg.TargetLang, cfg.Provider.ID, cfg.Provider.Model)
		require.NoError(t, store.InsertTranslation(ctx, fp, "译:"+text, cfg.Provider.ID, cfg.Provider.Model))
	}

	var buf bytes.Buffer
	err := eng.Export(ctx, src, cfg, &buf)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIncompleteTranslation)

	var incomplete *IncompleteTranslationError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 1, incomplete.Missing)
	assert.Equal(t, 3, incomplete.Total)
	assert.Zero(t, buf.Len(), "nothing may be written on failure")
}

func TestEngine_Export_BilingualBlocksInDocumentOrder(t *testing.T) {
	prov := &fakeProvider{}
	eng, _ := newTestEngine(t, prov)
	ctx := context.Background()
	cfg := testJobConfig()
	src := testSource()

	_, err := eng.Translate(ctx, src, cfg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, eng.Export(ctx, src, cfg, &buf))

	blocks := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n\n")
	require.Len(t, blocks, 7)

	wantOrder := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	for i, blk := range blocks {
		lines := strings.SplitN(blk, "\n", 2)
		require.Len(t, lines, 2, "block %d", i)
		assert.Equal(t, wantOrder[i], lines[0])
		assert.Equal(t, "译:"+wantOrder[i], lines[1])
	}
}

func TestEngine_Export_NoProviderCalls(t *testing.T) {
	prov := &fakeProvider{}
	eng, _ := newTestEngine(t, prov)
	ctx := context.Background()
	cfg := testJobConfig()
	src := testSource()

	_, err := eng.Translate(ctx, src, cfg, nil)
	require.NoError(t, err)
	calls := prov.callCount()

	var buf bytes.Buffer
	require.NoError(t, eng.Export(ctx, src, cfg, &buf))
	assert.Equal(t, calls, prov.callCount())
}

func TestIncompleteTranslationError_MatchesSentinel(t *testing.T) {
	err := &IncompleteTranslationError{Missing: 2, Total: 10}
	assert.True(t, errors.Is(err, ErrIncompleteTranslation))
	assert.Contains(t, err.Error(), "2 of 10")
}
