// Package fingerprint computes the deterministic cache key for a translation
// request. Any change to the source text, target language, provider, or model
// yields a different fingerprint, so cached translations are never reused
// across configurations.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is a hex-encoded sha256 digest used as the cache key.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Compute derives the fingerprint for one translation unit under one
// provider/model/target-language configuration.
func Compute(sourceText, targetLang, providerID, modelID string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(Normalize(sourceText)))
	h.Write([]byte{0})
	h.Write([]byte(targetLang))
	h.Write([]byte{0})
	h.Write([]byte(providerID))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Normalize collapses runs of whitespace to single spaces and trims the ends,
// so reflowed text keeps its cache entry.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
