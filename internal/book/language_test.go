package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestDetectLanguage_English(t *testing.T) {
	chapters := []Chapter{{
		Index: 0,
		Paragraphs: []string{
			"It was a bright cold day in April, and the clocks were striking thirteen.",
			"The hallway smelt of boiled cabbage and old rag mats.",
			"At one end of it a coloured poster, too large for indoor display, had been tacked to the wall.",
		},
	}}

	tag := DetectLanguage(chapters)
	assert.Equal(t, language.English, tag)
}

func TestDetectLanguage_SkipsShortParagraphs(t *testing.T) {
	chapters := []Chapter{{
		Index:      0,
		Paragraphs: []string{"ok", "---", "短"},
	}}

	assert.Equal(t, language.Und, DetectLanguage(chapters))
}

func TestDetectLanguage_Empty(t *testing.T) {
	assert.Equal(t, language.Und, DetectLanguage(nil))
}
