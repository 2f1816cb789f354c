package persistence

import (
	"errors"
	"time"

	"bookworm/internal/fingerprint"
)

// ErrConflict signals an attempt to bind a fingerprint that already holds
// different text. Fingerprinting is deterministic, so this never happens in a
// correct system; when it does it is a bug upstream and must surface loudly
// instead of being resolved by overwrite.
var ErrConflict = errors.New("translation cache conflict: fingerprint already bound to different text")

// CacheEntry is one immutable cached translation. Entries are inserted once
// per fingerprint and never mutated.
type CacheEntry struct {
	Fingerprint    fingerprint.Fingerprint
	TranslatedText string
	Provider       string
	Model          string
	CreatedAt      time.Time
}

// UnitFingerprint maps a document position under one configuration to its
// cache key, so coverage queries avoid recomputing hashes for stored units.
type UnitFingerprint struct {
	BookID       string
	ChapterIndex int
	UnitIndex    int
	TargetLang   string
	Provider     string
	Model        string
	Fingerprint  fingerprint.Fingerprint
}

// Coverage is the cached/total state of a book under one configuration.
type Coverage struct {
	MappedUnits int
	CachedUnits int
}
